package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophcheck/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) (int, error) {
	query :=
		`SELECT checks_done FROM quota
		 WHERE user_id = $1
		 `

	var n int
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&n)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("db error: %w", err)
	}

	return n, nil
}

func (r *PostgresRepository) Increment(ctx context.Context, userID string, n int) (int, error) {
	query :=
		`INSERT INTO quota (user_id, checks_done)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE
		 SET checks_done = quota.checks_done + EXCLUDED.checks_done, updated_at = now()
		 RETURNING checks_done
		 `

	var total int
	if err := r.db.QueryRowContext(ctx, query, userID, n).Scan(&total); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return total, nil
}

func (r *PostgresRepository) Reset(ctx context.Context, userID string) error {
	query :=
		`UPDATE quota SET checks_done = 0, updated_at = now()
		 WHERE user_id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
