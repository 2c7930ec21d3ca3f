package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophcheck/internal/logging"
	"github.com/dmitrijs2005/gophcheck/internal/server/repositories/credentials"
)

// Revoker removes a user's credential and zeroes the ledger. Running it
// again is harmless.
type Revoker struct {
	creds  credentials.Repository
	ledger *Ledger
	logger logging.Logger
}

func NewRevoker(creds credentials.Repository, ledger *Ledger, l logging.Logger) *Revoker {
	return &Revoker{creds: creds, ledger: ledger, logger: l.With("module", "revoker")}
}

// Revoke deletes the credential, then resets the counter. The counter is
// reset even when the delete fails so that a retry starts from zero.
func (r *Revoker) Revoke(ctx context.Context, userID string, reason string) error {
	delErr := r.creds.Delete(ctx, userID)
	resetErr := r.ledger.Reset(ctx, userID)

	if delErr != nil {
		return fmt.Errorf("revoke credential: %w", delErr)
	}
	if resetErr != nil {
		return fmt.Errorf("revoke: %w", resetErr)
	}

	r.logger.Info(ctx, "credential revoked", "user_id", userID, "reason", reason)
	return nil
}
