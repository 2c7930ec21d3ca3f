// Package services contains the server-side business logic: the quota
// ledger, credential revocation, the sign-in state machine and the batch
// verification pipeline.
package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophcheck/internal/server/models"
	"github.com/dmitrijs2005/gophcheck/internal/server/repositories/quota"
)

// DefaultQuotaLimit is the number of checks allowed per credential.
const DefaultQuotaLimit = 120

// Ledger counts checks per user against a fixed limit.
type Ledger struct {
	repo  quota.Repository
	limit int
}

func NewLedger(repo quota.Repository, limit int) *Ledger {
	return &Ledger{repo: repo, limit: limit}
}

func (l *Ledger) Limit() int { return l.limit }

func (l *Ledger) Get(ctx context.Context, userID string) (int, error) {
	n, err := l.repo.Get(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("quota get: %w", err)
	}
	return n, nil
}

// Increment adds n checks and returns the new total.
func (l *Ledger) Increment(ctx context.Context, userID string, n int) (int, error) {
	total, err := l.repo.Increment(ctx, userID, n)
	if err != nil {
		return 0, fmt.Errorf("quota increment: %w", err)
	}
	return total, nil
}

func (l *Ledger) Reset(ctx context.Context, userID string) error {
	if err := l.repo.Reset(ctx, userID); err != nil {
		return fmt.Errorf("quota reset: %w", err)
	}
	return nil
}

// Status returns checks done and checks remaining, never below zero.
func (l *Ledger) Status(ctx context.Context, userID string) (checksDone, remaining int, err error) {
	checksDone, err = l.Get(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	return checksDone, max(0, l.limit-checksDone), nil
}

// Report is Status in the shape shown to users.
func (l *Ledger) Report(ctx context.Context, userID string) (models.QuotaStatus, error) {
	done, remaining, err := l.Status(ctx, userID)
	if err != nil {
		return models.QuotaStatus{}, err
	}
	return models.QuotaStatus{ChecksDone: done, Limit: l.limit, Remaining: remaining}, nil
}
