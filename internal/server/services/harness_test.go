package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophcheck/internal/clock"
	"github.com/dmitrijs2005/gophcheck/internal/logging"
	"github.com/dmitrijs2005/gophcheck/internal/server/models"
	"github.com/dmitrijs2005/gophcheck/internal/server/platform"
	"github.com/dmitrijs2005/gophcheck/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/gophcheck/internal/server/repositories/quota"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

const (
	testUser  = "user-1"
	testPhone = "+254792813919"
)

type expiry struct {
	userID string
	state  models.SessionState
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []expiry
}

func (r *recordingNotifier) SessionExpired(userID string, state models.SessionState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, expiry{userID, state})
}

func (r *recordingNotifier) all() []expiry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]expiry(nil), r.events...)
}

type harness struct {
	checker  *Checker
	platform *platform.Simulated
	clock    *clock.FakeClock
	creds    *credentials.MemoryRepository
	quota    *quota.MemoryRepository
	notifier *recordingNotifier
}

func testVerifyPolicy() VerifyPolicy {
	return VerifyPolicy{
		ChunkSize:      10,
		MaxAttempts:    3,
		AttemptTimeout: time.Second,
		RetryDelay:     time.Millisecond,
	}
}

func newHarnessWithDialer(t *testing.T, p *platform.Simulated, dialer platform.Dialer) *harness {
	t.Helper()

	h := &harness{
		platform: p,
		clock:    clock.Fake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		creds:    credentials.NewMemoryRepository(),
		quota:    quota.NewMemoryRepository(),
		notifier: &recordingNotifier{},
	}
	h.checker = NewChecker(Deps{
		Dialer:        dialer,
		Credentials:   h.creds,
		Quota:         h.quota,
		Clock:         h.clock,
		Notifier:      h.notifier,
		Logger:        nopLogger{},
		QuotaLimit:    DefaultQuotaLimit,
		SessionPolicy: DefaultSessionPolicy(),
		VerifyPolicy:  testVerifyPolicy(),
	})
	t.Cleanup(h.checker.Close)
	return h
}

func newHarness(t *testing.T, opts ...platform.SimulatedOption) *harness {
	t.Helper()
	p := platform.NewSimulated(opts...)
	return newHarnessWithDialer(t, p, p)
}

// authorize stores a working credential for userID without going through
// the state machine.
func (h *harness) authorize(t *testing.T, userID string) {
	t.Helper()
	ctx := context.Background()

	c, err := h.platform.Dial(ctx, nil)
	require.NoError(t, err)
	token, err := c.RequestCode(ctx, testPhone)
	require.NoError(t, err)
	out, err := c.SignInWithCode(ctx, testPhone, platform.DefaultSimulatedCode, token)
	require.NoError(t, err)
	require.Equal(t, platform.CodeAuthorized, out)
	blob, err := c.Session(ctx)
	require.NoError(t, err)
	require.NoError(t, h.creds.Save(ctx, userID, blob))
}

func (h *harness) setChecks(t *testing.T, userID string, n int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.quota.Reset(ctx, userID))
	_, err := h.quota.Increment(ctx, userID, n)
	require.NoError(t, err)
}

func (h *harness) checks(t *testing.T, userID string) int {
	t.Helper()
	n, err := h.quota.Get(context.Background(), userID)
	require.NoError(t, err)
	return n
}

func (h *harness) hasCredential(t *testing.T, userID string) bool {
	t.Helper()
	ok, err := h.creds.Exists(context.Background(), userID)
	require.NoError(t, err)
	return ok
}

// scriptedClient is a platform.Client whose calls are driven by the test.
type scriptedClient struct {
	mu          sync.Mutex
	requestCode func(ctx context.Context) (string, error)
	signIn      func(ctx context.Context) (platform.CodeOutcome, error)
	disconnects int
}

func (c *scriptedClient) Connect(context.Context) error                { return nil }
func (c *scriptedClient) IsAuthorized(context.Context) (bool, error)    { return true, nil }
func (c *scriptedClient) Session(context.Context) ([]byte, error)       { return []byte("blob"), nil }
func (c *scriptedClient) RollbackBatch(context.Context, []string) error { return nil }

func (c *scriptedClient) RequestCode(ctx context.Context, _ string) (string, error) {
	if c.requestCode != nil {
		return c.requestCode(ctx)
	}
	return "token", nil
}

func (c *scriptedClient) SignInWithCode(ctx context.Context, _, _, _ string) (platform.CodeOutcome, error) {
	if c.signIn != nil {
		return c.signIn(ctx)
	}
	return platform.CodeAuthorized, nil
}

func (c *scriptedClient) SignInWithPassword(context.Context, string) (platform.PasswordOutcome, error) {
	return platform.PasswordAuthorized, nil
}

func (c *scriptedClient) ResolveBatch(_ context.Context, chunk []string) ([]string, error) {
	return nil, nil
}

func (c *scriptedClient) Disconnect(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects++
	return nil
}

func (c *scriptedClient) disconnectCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnects
}
