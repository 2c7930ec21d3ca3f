package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophcheck/internal/clock"
	"github.com/dmitrijs2005/gophcheck/internal/common"
	"github.com/dmitrijs2005/gophcheck/internal/logging"
	"github.com/dmitrijs2005/gophcheck/internal/server/models"
	"github.com/dmitrijs2005/gophcheck/internal/server/platform"
	"github.com/dmitrijs2005/gophcheck/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/gophcheck/internal/server/repositories/quota"
)

// Deps are the collaborators of a Checker.
type Deps struct {
	Dialer        platform.Dialer
	Credentials   credentials.Repository
	Quota         quota.Repository
	Clock         clock.Clock
	Notifier      Notifier
	Logger        logging.Logger
	QuotaLimit    int
	SessionPolicy SessionPolicy
	VerifyPolicy  VerifyPolicy
}

// Checker is the front-end facing entry point. All work for one user is
// serialized; different users never wait on each other.
type Checker struct {
	*SessionService
	verifier *Verifier
	ledger   *Ledger
	revoker  *Revoker
	creds    credentials.Repository
	locks    *userLocks
	logger   logging.Logger
}

func NewChecker(d Deps) *Checker {
	if d.Clock == nil {
		d.Clock = clock.Real()
	}
	if d.QuotaLimit <= 0 {
		d.QuotaLimit = DefaultQuotaLimit
	}
	if d.SessionPolicy == (SessionPolicy{}) {
		d.SessionPolicy = DefaultSessionPolicy()
	}
	if d.VerifyPolicy == (VerifyPolicy{}) {
		d.VerifyPolicy = DefaultVerifyPolicy()
	}

	locks := newUserLocks()
	ledger := NewLedger(d.Quota, d.QuotaLimit)
	revoker := NewRevoker(d.Credentials, ledger, d.Logger)

	return &Checker{
		SessionService: NewSessionService(d.Dialer, d.Credentials, ledger, locks, d.Clock, d.SessionPolicy, d.Notifier, d.Logger),
		verifier:       NewVerifier(d.Dialer, d.Credentials, ledger, revoker, locks, d.VerifyPolicy, d.Logger),
		ledger:         ledger,
		revoker:        revoker,
		creds:          d.Credentials,
		locks:          locks,
		logger:         d.Logger.With("module", "checker"),
	}
}

func (c *Checker) Verify(ctx context.Context, userID string, raw []string, opts ...VerifyOption) (*models.VerificationResult, error) {
	return c.verifier.Verify(ctx, userID, raw, opts...)
}

func (c *Checker) Status(ctx context.Context, userID string) (models.QuotaStatus, error) {
	st, err := c.ledger.Report(ctx, userID)
	if err != nil {
		return models.QuotaStatus{}, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	return st, nil
}

// LogoutResult describes what a logout removed.
type LogoutResult struct {
	ChecksDone    int
	HadCredential bool
}

// Logout drops any sign-in in progress and revokes the stored credential.
func (c *Checker) Logout(ctx context.Context, userID string) (LogoutResult, error) {
	c.Abort(ctx, userID)

	release, err := c.locks.Acquire(ctx, userID)
	if err != nil {
		return LogoutResult{}, err
	}
	defer release()

	done, err := c.ledger.Get(ctx, userID)
	if err != nil {
		return LogoutResult{}, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	had, err := c.creds.Exists(ctx, userID)
	if err != nil {
		return LogoutResult{}, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	if err := c.revoker.Revoke(ctx, userID, "logout"); err != nil {
		return LogoutResult{}, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	c.logger.Info(ctx, "logged out", "user_id", userID, "checks_done", done, "had_credential", had)
	return LogoutResult{ChecksDone: done, HadCredential: had}, nil
}
