package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophcheck/internal/common"
	"github.com/dmitrijs2005/gophcheck/internal/server/models"
	"github.com/dmitrijs2005/gophcheck/internal/server/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeginSession_InvalidPhone(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, raw := range []string{"", "254792813919", "+", "+12 34", "+1234567890123456"} {
		st, err := h.checker.BeginSession(ctx, testUser, raw)
		assert.ErrorIs(t, err, common.ErrInvalidPhoneFormat, raw)
		assert.Equal(t, models.StateIdle, st, raw)
	}
	assert.Zero(t, h.platform.Stats().Connects)
}

func TestSession_CodeSignIn(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.setChecks(t, testUser, 50)

	st, err := h.checker.BeginSession(ctx, testUser, testPhone)
	require.NoError(t, err)
	assert.Equal(t, models.StateAwaitingCode, st)
	assert.Equal(t, models.StateAwaitingCode, h.checker.State(ctx, testUser).State)

	st, err = h.checker.SubmitCode(ctx, testUser, " "+platform.DefaultSimulatedCode+" ")
	require.NoError(t, err)
	assert.Equal(t, models.StateAuthenticated, st)

	assert.True(t, h.hasCredential(t, testUser))
	assert.Zero(t, h.checks(t, testUser))
	assert.Equal(t, models.StateAuthenticated, h.checker.State(ctx, testUser).State)

	stats := h.platform.Stats()
	assert.Equal(t, 1, stats.Connects)
	assert.Equal(t, 1, stats.Disconnects)
	assert.Zero(t, h.clock.Pending())
}

func TestSession_CodeRetryCeiling(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.checker.BeginSession(ctx, testUser, testPhone)
	require.NoError(t, err)

	for i := 1; i <= 2; i++ {
		st, err := h.checker.SubmitCode(ctx, testUser, "00000")
		assert.Equal(t, models.StateAwaitingCode, st)
		require.ErrorIs(t, err, common.ErrCodeInvalid)

		ae, ok := IsAttempt(err)
		require.True(t, ok)
		assert.Equal(t, i, ae.Attempts)
		assert.Equal(t, 3-i, ae.Remaining())
		assert.Equal(t, i, h.checker.State(ctx, testUser).CodeAttempts)
	}

	st, err := h.checker.SubmitCode(ctx, testUser, "00000")
	assert.Equal(t, models.StateIdle, st)
	require.ErrorIs(t, err, common.ErrRetryCeilingExceeded)
	ae, ok := IsAttempt(err)
	require.True(t, ok)
	assert.Zero(t, ae.Remaining())

	assert.Equal(t, models.StateIdle, h.checker.State(ctx, testUser).State)
	assert.False(t, h.hasCredential(t, testUser))
	assert.Equal(t, 1, h.platform.Stats().Disconnects)

	_, err = h.checker.SubmitCode(ctx, testUser, platform.DefaultSimulatedCode)
	assert.ErrorIs(t, err, common.ErrNoPendingSession)
}

func TestSession_ValidCodeAfterFailures(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.checker.BeginSession(ctx, testUser, testPhone)
	require.NoError(t, err)
	for range 2 {
		_, err := h.checker.SubmitCode(ctx, testUser, "99999")
		require.ErrorIs(t, err, common.ErrCodeInvalid)
	}

	st, err := h.checker.SubmitCode(ctx, testUser, platform.DefaultSimulatedCode)
	require.NoError(t, err)
	assert.Equal(t, models.StateAuthenticated, st)
}

func TestSession_NewSessionHasFreshCounters(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.checker.BeginSession(ctx, testUser, testPhone)
	require.NoError(t, err)
	_, err = h.checker.SubmitCode(ctx, testUser, "99999")
	require.ErrorIs(t, err, common.ErrCodeInvalid)

	_, err = h.checker.BeginSession(ctx, testUser, testPhone)
	require.NoError(t, err)
	assert.Zero(t, h.checker.State(ctx, testUser).CodeAttempts)

	// the replaced session's client is released
	assert.Equal(t, 1, h.platform.Stats().Disconnects)
}

func TestSession_SecondFactor(t *testing.T) {
	h := newHarness(t, platform.WithAccount(testPhone, platform.Account{Code: "24680", Password: "hunter2"}))
	ctx := context.Background()

	_, err := h.checker.BeginSession(ctx, testUser, testPhone)
	require.NoError(t, err)

	st, err := h.checker.SubmitCode(ctx, testUser, "24680")
	require.NoError(t, err)
	assert.Equal(t, models.StateAwaitingPassword, st)

	_, err = h.checker.SubmitCode(ctx, testUser, "24680")
	assert.ErrorIs(t, err, common.ErrNoPendingSession)

	st, err = h.checker.SubmitPassword(ctx, testUser, "wrong")
	assert.Equal(t, models.StateAwaitingPassword, st)
	require.ErrorIs(t, err, common.ErrPasswordInvalid)
	assert.Equal(t, 1, h.checker.State(ctx, testUser).PasswordTries)

	st, err = h.checker.SubmitPassword(ctx, testUser, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, models.StateAuthenticated, st)
	assert.True(t, h.hasCredential(t, testUser))
}

func TestSession_PasswordRetryCeiling(t *testing.T) {
	h := newHarness(t, platform.WithAccount(testPhone, platform.Account{Password: "hunter2"}))
	ctx := context.Background()

	_, err := h.checker.BeginSession(ctx, testUser, testPhone)
	require.NoError(t, err)
	_, err = h.checker.SubmitCode(ctx, testUser, platform.DefaultSimulatedCode)
	require.NoError(t, err)

	for range 2 {
		_, err = h.checker.SubmitPassword(ctx, testUser, "nope")
		require.ErrorIs(t, err, common.ErrPasswordInvalid)
	}
	st, err := h.checker.SubmitPassword(ctx, testUser, "nope")
	assert.Equal(t, models.StateIdle, st)
	assert.ErrorIs(t, err, common.ErrRetryCeilingExceeded)
	assert.False(t, h.hasCredential(t, testUser))
}

func TestSession_ExpiredChallenge(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.checker.BeginSession(ctx, testUser, testPhone)
	require.NoError(t, err)
	h.platform.ExpireChallenges()

	st, err := h.checker.SubmitCode(ctx, testUser, platform.DefaultSimulatedCode)
	assert.Equal(t, models.StateIdle, st)
	assert.ErrorIs(t, err, common.ErrCodeExpired)
	assert.Equal(t, 1, h.platform.Stats().Disconnects)
}

func TestSession_CodeTimeout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.checker.BeginSession(ctx, testUser, testPhone)
	require.NoError(t, err)

	h.clock.Advance(59 * time.Second)
	assert.Equal(t, models.StateAwaitingCode, h.checker.State(ctx, testUser).State)

	h.clock.Advance(time.Second)
	snap := h.checker.State(ctx, testUser)
	assert.Equal(t, models.StateIdle, snap.State)
	assert.True(t, snap.HasLastExpired)
	assert.Equal(t, models.StateAwaitingCode, snap.LastExpiredIn)

	assert.Equal(t, []expiry{{testUser, models.StateAwaitingCode}}, h.notifier.all())
	assert.Equal(t, 1, h.platform.Stats().Disconnects)

	_, err = h.checker.SubmitCode(ctx, testUser, platform.DefaultSimulatedCode)
	assert.ErrorIs(t, err, common.ErrNoPendingSession)

	// a new session clears the expiry marker
	_, err = h.checker.BeginSession(ctx, testUser, testPhone)
	require.NoError(t, err)
	assert.False(t, h.checker.State(ctx, testUser).HasLastExpired)
}

func TestSession_InvalidCodeRearmsTimer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.checker.BeginSession(ctx, testUser, testPhone)
	require.NoError(t, err)

	h.clock.Advance(50 * time.Second)
	_, err = h.checker.SubmitCode(ctx, testUser, "00000")
	require.ErrorIs(t, err, common.ErrCodeInvalid)

	h.clock.Advance(50 * time.Second)
	assert.Equal(t, models.StateAwaitingCode, h.checker.State(ctx, testUser).State)
	assert.Empty(t, h.notifier.all())

	h.clock.Advance(10 * time.Second)
	assert.Equal(t, models.StateIdle, h.checker.State(ctx, testUser).State)
	assert.Len(t, h.notifier.all(), 1)
}

func TestSession_PasswordTimeout(t *testing.T) {
	h := newHarness(t, platform.WithAccount(testPhone, platform.Account{Password: "hunter2"}))
	ctx := context.Background()

	_, err := h.checker.BeginSession(ctx, testUser, testPhone)
	require.NoError(t, err)
	_, err = h.checker.SubmitCode(ctx, testUser, platform.DefaultSimulatedCode)
	require.NoError(t, err)

	h.clock.Advance(60 * time.Second)
	assert.Equal(t, []expiry{{testUser, models.StateAwaitingPassword}}, h.notifier.all())

	_, err = h.checker.SubmitPassword(ctx, testUser, "hunter2")
	assert.ErrorIs(t, err, common.ErrNoPendingSession)
	assert.False(t, h.hasCredential(t, testUser))
}

func TestSession_StaleTimerIsIgnored(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.checker.BeginSession(ctx, testUser, testPhone)
	require.NoError(t, err)

	h.checker.mu.Lock()
	sess := h.checker.sessions[testUser]
	staleSeq := sess.timerSeq - 1
	h.checker.mu.Unlock()

	h.checker.expire(sess, staleSeq, models.StateAwaitingPhone)
	h.checker.expire(sess, sess.timerSeq, models.StateAwaitingPhone)

	assert.Equal(t, models.StateAwaitingCode, h.checker.State(ctx, testUser).State)
	assert.Empty(t, h.notifier.all())
}

func TestSession_PhoneTimeoutCancelsInFlightRequest(t *testing.T) {
	started := make(chan struct{})
	client := &scriptedClient{
		requestCode: func(ctx context.Context) (string, error) {
			close(started)
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
	h := newHarnessWithDialer(t, platform.NewSimulated(), platform.DialerFunc(
		func(context.Context, []byte) (platform.Client, error) { return client, nil },
	))
	ctx := context.Background()

	type result struct {
		st  models.SessionState
		err error
	}
	done := make(chan result, 1)
	go func() {
		st, err := h.checker.BeginSession(ctx, testUser, testPhone)
		done <- result{st, err}
	}()

	<-started
	h.clock.Advance(120 * time.Second)

	select {
	case r := <-done:
		assert.Equal(t, models.StateIdle, r.st)
		assert.ErrorIs(t, r.err, common.ErrTimeoutExceeded)
	case <-time.After(5 * time.Second):
		t.Fatal("BeginSession did not return after the phone timeout")
	}

	assert.Equal(t, 1, client.disconnectCount())
	assert.Equal(t, []expiry{{testUser, models.StateAwaitingPhone}}, h.notifier.all())
}

func TestSession_TransportFailureOnBegin(t *testing.T) {
	client := &scriptedClient{
		requestCode: func(context.Context) (string, error) { return "", errors.New("connection reset") },
	}
	h := newHarnessWithDialer(t, platform.NewSimulated(), platform.DialerFunc(
		func(context.Context, []byte) (platform.Client, error) { return client, nil },
	))
	ctx := context.Background()

	st, err := h.checker.BeginSession(ctx, testUser, testPhone)
	assert.Equal(t, models.StateIdle, st)
	assert.ErrorIs(t, err, common.ErrTransportFailure)
	assert.Equal(t, 1, client.disconnectCount())
	assert.Equal(t, models.StateIdle, h.checker.State(ctx, testUser).State)
	assert.Zero(t, h.clock.Pending())
}

func TestSession_DialFailure(t *testing.T) {
	h := newHarnessWithDialer(t, platform.NewSimulated(), platform.DialerFunc(
		func(context.Context, []byte) (platform.Client, error) { return nil, errors.New("no route") },
	))

	_, err := h.checker.BeginSession(context.Background(), testUser, testPhone)
	assert.ErrorIs(t, err, common.ErrTransportFailure)
}

func TestSession_Abort(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assert.False(t, h.checker.Abort(ctx, testUser))

	_, err := h.checker.BeginSession(ctx, testUser, testPhone)
	require.NoError(t, err)

	assert.True(t, h.checker.Abort(ctx, testUser))
	assert.Equal(t, models.StateIdle, h.checker.State(ctx, testUser).State)
	assert.Equal(t, 1, h.platform.Stats().Disconnects)
	assert.Zero(t, h.clock.Pending())
	assert.False(t, h.checker.Abort(ctx, testUser))

	_, err = h.checker.SubmitCode(ctx, testUser, platform.DefaultSimulatedCode)
	assert.ErrorIs(t, err, common.ErrNoPendingSession)
}

func TestSession_AbortCancelsInFlightSignIn(t *testing.T) {
	started := make(chan struct{})
	client := &scriptedClient{
		signIn: func(ctx context.Context) (platform.CodeOutcome, error) {
			close(started)
			<-ctx.Done()
			return platform.CodeInvalid, ctx.Err()
		},
	}
	h := newHarnessWithDialer(t, platform.NewSimulated(), platform.DialerFunc(
		func(context.Context, []byte) (platform.Client, error) { return client, nil },
	))
	ctx := context.Background()

	_, err := h.checker.BeginSession(ctx, testUser, testPhone)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := h.checker.SubmitCode(ctx, testUser, "12345")
		errCh <- err
	}()

	<-started
	assert.True(t, h.checker.Abort(ctx, testUser))

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, common.ErrTimeoutExceeded)
	case <-time.After(5 * time.Second):
		t.Fatal("SubmitCode did not return after Abort")
	}
	assert.Equal(t, 1, client.disconnectCount())
	assert.False(t, h.hasCredential(t, testUser))
}

func TestSession_UsersAreIndependent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.checker.BeginSession(ctx, "alice", testPhone)
	require.NoError(t, err)
	_, err = h.checker.BeginSession(ctx, "bob", "+15551234567")
	require.NoError(t, err)

	_, err = h.checker.SubmitCode(ctx, "alice", platform.DefaultSimulatedCode)
	require.NoError(t, err)

	assert.Equal(t, models.StateAuthenticated, h.checker.State(ctx, "alice").State)
	assert.Equal(t, models.StateAwaitingCode, h.checker.State(ctx, "bob").State)
	assert.False(t, h.hasCredential(t, "bob"))
}

func TestSession_CloseDropsSessions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.checker.BeginSession(ctx, testUser, testPhone)
	require.NoError(t, err)

	h.checker.Close()
	assert.Equal(t, models.StateIdle, h.checker.State(ctx, testUser).State)
	assert.Equal(t, 1, h.platform.Stats().Disconnects)
	assert.Zero(t, h.clock.Pending())
}
