package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophcheck/internal/filex"
	"github.com/dmitrijs2005/gophcheck/internal/server/migrations"
	"github.com/dmitrijs2005/gophcheck/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/gophcheck/internal/server/repositories/quota"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLiteRepositoryManager vends repositories stored in one SQLite file.
type SQLiteRepositoryManager struct {
	db          *sql.DB
	quota       *quota.SQLiteRepository
	credentials *credentials.SQLiteRepository
}

// sqlitePath returns the filesystem path of a DSN, or "" for in-memory
// databases.
func sqlitePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	path, _, _ = strings.Cut(path, "?")
	if path == "" || path == ":memory:" || strings.Contains(dsn, "mode=memory") {
		return ""
	}
	return path
}

// NewSQLiteRepositoryManager opens (creating if needed) the database file.
// SQLite allows a single writer, so the pool is limited to one connection.
func NewSQLiteRepositoryManager(ctx context.Context, dsn string) (*SQLiteRepositoryManager, error) {
	if path := sqlitePath(dsn); path != "" {
		if err := filex.EnsureParentDir(path); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	return &SQLiteRepositoryManager{
		db:          db,
		quota:       quota.NewSQLiteRepository(db),
		credentials: credentials.NewSQLiteRepository(db),
	}, nil
}

func (m *SQLiteRepositoryManager) Quota() quota.Repository { return m.quota }

func (m *SQLiteRepositoryManager) Credentials() credentials.Repository { return m.credentials }

// RunMigrations applies the embedded sqlite migrations.
func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return gooseUpContext(ctx, m.db, migrations.SQLiteDir)
}

func (m *SQLiteRepositoryManager) Close() error {
	return m.db.Close()
}
