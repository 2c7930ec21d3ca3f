package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophcheck/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT checks_done FROM quota WHERE user_id = ?`, userID).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get quota[%s]: %w", userID, err)
	}
	return n, nil
}

func (r *SQLiteRepository) Increment(ctx context.Context, userID string, n int) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO quota (user_id, checks_done) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE
		SET checks_done = checks_done + excluded.checks_done, updated_at = CURRENT_TIMESTAMP
		RETURNING checks_done
	`, userID, n).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to increment quota[%s]: %w", userID, err)
	}
	return total, nil
}

func (r *SQLiteRepository) Reset(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE quota SET checks_done = 0, updated_at = CURRENT_TIMESTAMP WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to reset quota[%s]: %w", userID, err)
	}
	return nil
}
