package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophcheck/internal/common"
	"github.com/dmitrijs2005/gophcheck/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Exists(ctx context.Context, userID string) (bool, error) {
	query :=
		`SELECT EXISTS (SELECT 1 FROM credentials WHERE user_id = $1)
		 `

	var ok bool
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return ok, nil
}

func (r *PostgresRepository) Save(ctx context.Context, userID string, blob []byte) error {
	query :=
		`INSERT INTO credentials (user_id, blob)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE
		 SET blob = EXCLUDED.blob, created_at = now()
		 `

	if _, err := r.db.ExecContext(ctx, query, userID, blob); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Load(ctx context.Context, userID string) ([]byte, error) {
	query :=
		`SELECT blob FROM credentials
		 WHERE user_id = $1
		 `

	var blob []byte
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return blob, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID string) error {
	query :=
		`DELETE FROM credentials
		 WHERE user_id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
