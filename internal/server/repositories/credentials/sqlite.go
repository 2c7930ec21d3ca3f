package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophcheck/internal/common"
	"github.com/dmitrijs2005/gophcheck/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Exists(ctx context.Context, userID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM credentials WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check credential[%s]: %w", userID, err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, userID string, blob []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO credentials (user_id, blob) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET blob = excluded.blob, created_at = CURRENT_TIMESTAMP
	`, userID, blob)
	if err != nil {
		return fmt.Errorf("failed to save credential[%s]: %w", userID, err)
	}
	return nil
}

func (r *SQLiteRepository) Load(ctx context.Context, userID string) ([]byte, error) {
	var blob []byte
	err := r.db.QueryRowContext(ctx, `SELECT blob FROM credentials WHERE user_id = ?`, userID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credential[%s]: %w", userID, err)
	}
	return blob, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete credential[%s]: %w", userID, err)
	}
	return nil
}
