package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophcheck/internal/server/migrations"
	"github.com/dmitrijs2005/gophcheck/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/gophcheck/internal/server/repositories/quota"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories over one
// connection pool.
type PostgresRepositoryManager struct {
	db          *sql.DB
	quota       *quota.PostgresRepository
	credentials *credentials.PostgresRepository
}

// NewPostgresRepositoryManager opens the pool and checks it is reachable.
func NewPostgresRepositoryManager(ctx context.Context, dsn string) (*PostgresRepositoryManager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	return newPostgresRepositoryManager(db), nil
}

func newPostgresRepositoryManager(db *sql.DB) *PostgresRepositoryManager {
	return &PostgresRepositoryManager{
		db:          db,
		quota:       quota.NewPostgresRepository(db),
		credentials: credentials.NewPostgresRepository(db),
	}
}

func (m *PostgresRepositoryManager) Quota() quota.Repository { return m.quota }

func (m *PostgresRepositoryManager) Credentials() credentials.Repository { return m.credentials }

// RunMigrations applies the embedded postgres migrations.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, m.db, migrations.PostgresDir)
}

func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}
