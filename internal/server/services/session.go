package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophcheck/internal/clock"
	"github.com/dmitrijs2005/gophcheck/internal/common"
	"github.com/dmitrijs2005/gophcheck/internal/logging"
	"github.com/dmitrijs2005/gophcheck/internal/phone"
	"github.com/dmitrijs2005/gophcheck/internal/server/models"
	"github.com/dmitrijs2005/gophcheck/internal/server/platform"
	"github.com/dmitrijs2005/gophcheck/internal/server/repositories/credentials"
)

// disconnectTimeout bounds cleanup calls made after the caller's context
// may already be gone.
const disconnectTimeout = 10 * time.Second

// SessionPolicy holds the timeouts and retry ceilings of the sign-in flow.
// Every duration must be positive.
type SessionPolicy struct {
	PhoneTimeout       time.Duration
	CodeTimeout        time.Duration
	PasswordTimeout    time.Duration
	MaxCodeRetries     int
	MaxPasswordRetries int
}

func DefaultSessionPolicy() SessionPolicy {
	return SessionPolicy{
		PhoneTimeout:       120 * time.Second,
		CodeTimeout:        60 * time.Second,
		PasswordTimeout:    60 * time.Second,
		MaxCodeRetries:     3,
		MaxPasswordRetries: 3,
	}
}

// AttemptError reports a rejected code or password together with how many
// tries were used. It unwraps to the underlying sentinel.
type AttemptError struct {
	Err      error
	Attempts int
	Max      int
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("%v (attempt %d of %d)", e.Err, e.Attempts, e.Max)
}

func (e *AttemptError) Unwrap() error { return e.Err }

// Remaining is the number of tries left before the session is dropped.
func (e *AttemptError) Remaining() int { return max(0, e.Max-e.Attempts) }

// Notifier is told when a sign-in session times out. Implementations must
// not block.
type Notifier interface {
	SessionExpired(userID string, state models.SessionState)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(userID string, state models.SessionState)

func (f NotifierFunc) SessionExpired(userID string, state models.SessionState) { f(userID, state) }

type loginSession struct {
	userID         string
	state          models.SessionState
	phone          string
	challengeToken string
	codeTries      int
	passwordTries  int

	client platform.Client
	timer  clock.Timer
	// timerSeq identifies the armed timer; a firing timer whose sequence
	// no longer matches is stale.
	timerSeq uint64

	inFlight   bool
	cancelCall context.CancelFunc
	ended      bool
}

// SessionService drives the phone, code, password sign-in exchange for
// each user and stores the resulting credential.
type SessionService struct {
	dialer   platform.Dialer
	creds    credentials.Repository
	ledger   *Ledger
	locks    *userLocks
	clock    clock.Clock
	policy   SessionPolicy
	notifier Notifier
	logger   logging.Logger

	mu          sync.Mutex
	sessions    map[string]*loginSession
	lastExpired map[string]models.SessionState
}

func NewSessionService(
	dialer platform.Dialer,
	creds credentials.Repository,
	ledger *Ledger,
	locks *userLocks,
	clk clock.Clock,
	policy SessionPolicy,
	notifier Notifier,
	l logging.Logger,
) *SessionService {
	if notifier == nil {
		notifier = NotifierFunc(func(string, models.SessionState) {})
	}
	return &SessionService{
		dialer:      dialer,
		creds:       creds,
		ledger:      ledger,
		locks:       locks,
		clock:       clk,
		policy:      policy,
		notifier:    notifier,
		logger:      l.With("module", "session"),
		sessions:    make(map[string]*loginSession),
		lastExpired: make(map[string]models.SessionState),
	}
}

func (s *SessionService) liveLocked(sess *loginSession) bool {
	return !sess.ended && s.sessions[sess.userID] == sess
}

func (s *SessionService) timeoutFor(state models.SessionState) time.Duration {
	switch state {
	case models.StateAwaitingPhone:
		return s.policy.PhoneTimeout
	case models.StateAwaitingCode:
		return s.policy.CodeTimeout
	default:
		return s.policy.PasswordTimeout
	}
}

// armLocked replaces the session timer with one guarding the current state.
func (s *SessionService) armLocked(sess *loginSession) {
	if sess.timer != nil {
		sess.timer.Stop()
	}
	sess.timerSeq++
	seq, state := sess.timerSeq, sess.state
	sess.timer = s.clock.AfterFunc(s.timeoutFor(state), func() {
		s.expire(sess, seq, state)
	})
}

func (s *SessionService) stopTimerLocked(sess *loginSession) {
	if sess.timer != nil {
		sess.timer.Stop()
		sess.timer = nil
	}
	sess.timerSeq++
}

// endLocked removes the session and cancels any in-flight platform call.
// It returns the client the caller must disconnect, or nil when the step
// running the in-flight call will do it.
func (s *SessionService) endLocked(sess *loginSession) platform.Client {
	sess.ended = true
	s.stopTimerLocked(sess)
	if s.sessions[sess.userID] == sess {
		delete(s.sessions, sess.userID)
	}
	if sess.cancelCall != nil {
		sess.cancelCall()
	}
	if sess.inFlight {
		return nil
	}
	client := sess.client
	sess.client = nil
	return client
}

// beginStepLocked marks a platform call in progress and returns the context
// it must use. Timers and Abort cancel that context.
func (s *SessionService) beginStepLocked(ctx context.Context, sess *loginSession) context.Context {
	callCtx, cancel := context.WithCancel(ctx)
	sess.inFlight = true
	sess.cancelCall = cancel
	return callCtx
}

func (s *SessionService) endStepLocked(sess *loginSession) {
	if sess.cancelCall != nil {
		sess.cancelCall()
		sess.cancelCall = nil
	}
	sess.inFlight = false
}

func (s *SessionService) disconnect(client platform.Client, userID string) {
	if client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		s.logger.Warn(ctx, "platform disconnect failed", "user_id", userID, "error", err)
	}
}

func (s *SessionService) expire(sess *loginSession, seq uint64, armed models.SessionState) {
	s.mu.Lock()
	if !s.liveLocked(sess) || sess.timerSeq != seq || sess.state != armed {
		s.mu.Unlock()
		return
	}
	s.lastExpired[sess.userID] = armed
	client := s.endLocked(sess)
	s.mu.Unlock()

	s.disconnect(client, sess.userID)
	s.logger.Info(context.Background(), "login session expired", "user_id", sess.userID, "state", armed.String())
	s.notifier.SessionExpired(sess.userID, armed)
}

// failStep ends sess after a step that was in flight and disconnects its
// client. It reports whether the session had already been ended by a timer
// or by Abort while the call ran.
func (s *SessionService) failStep(sess *loginSession, client platform.Client) (wasLive bool) {
	s.mu.Lock()
	wasLive = s.liveLocked(sess)
	s.endStepLocked(sess)
	if wasLive {
		s.endLocked(sess)
	}
	sess.client = nil
	s.mu.Unlock()

	s.disconnect(client, sess.userID)
	return wasLive
}

func transportErr(err error) error {
	return fmt.Errorf("%w: %v", common.ErrTransportFailure, err)
}

func interruptedErr() error {
	return fmt.Errorf("%w: login session ended while waiting for the platform", common.ErrTimeoutExceeded)
}

// BeginSession validates the phone number and asks the platform for a
// one-time code. Any session the user already had is discarded.
func (s *SessionService) BeginSession(ctx context.Context, userID, rawPhone string) (models.SessionState, error) {
	if !phone.ValidLogin(rawPhone) {
		return s.State(ctx, userID).State, common.ErrInvalidPhoneFormat
	}
	number := strings.TrimSpace(rawPhone)

	release, err := s.locks.Acquire(ctx, userID)
	if err != nil {
		return models.StateIdle, err
	}
	defer release()

	sess := &loginSession{userID: userID, state: models.StateAwaitingPhone, phone: number}

	s.mu.Lock()
	var previous platform.Client
	if old, ok := s.sessions[userID]; ok {
		previous = s.endLocked(old)
	}
	s.sessions[userID] = sess
	delete(s.lastExpired, userID)
	s.armLocked(sess)
	callCtx := s.beginStepLocked(ctx, sess)
	s.mu.Unlock()

	s.disconnect(previous, userID)

	client, token, err := s.requestCode(callCtx, number)
	if err != nil {
		if !s.failStep(sess, client) {
			return models.StateIdle, interruptedErr()
		}
		s.logger.Warn(ctx, "code request failed", "user_id", userID, "error", err)
		return models.StateIdle, transportErr(err)
	}

	s.mu.Lock()
	s.endStepLocked(sess)
	if !s.liveLocked(sess) {
		s.mu.Unlock()
		s.disconnect(client, userID)
		return models.StateIdle, interruptedErr()
	}
	sess.client = client
	sess.challengeToken = token
	sess.state = models.StateAwaitingCode
	s.armLocked(sess)
	s.mu.Unlock()

	s.logger.Info(ctx, "code requested", "user_id", userID)
	return models.StateAwaitingCode, nil
}

// requestCode returns the dialed client even on failure so the caller can
// release it.
func (s *SessionService) requestCode(ctx context.Context, number string) (platform.Client, string, error) {
	client, err := s.dialer.Dial(ctx, nil)
	if err != nil {
		return nil, "", err
	}
	if err := client.Connect(ctx); err != nil {
		return client, "", err
	}
	token, err := client.RequestCode(ctx, number)
	if err != nil {
		return client, "", err
	}
	return client, token, nil
}

// takeStep fetches the user's session when it is in want and marks a call
// in flight.
func (s *SessionService) takeStep(ctx context.Context, userID string, want models.SessionState) (*loginSession, context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok || sess.state != want || sess.inFlight {
		return nil, nil, common.ErrNoPendingSession
	}
	return sess, s.beginStepLocked(ctx, sess), nil
}

// SubmitCode signs in with the one-time code.
func (s *SessionService) SubmitCode(ctx context.Context, userID, code string) (models.SessionState, error) {
	release, err := s.locks.Acquire(ctx, userID)
	if err != nil {
		return models.StateIdle, err
	}
	defer release()

	sess, callCtx, err := s.takeStep(ctx, userID, models.StateAwaitingCode)
	if err != nil {
		return models.StateIdle, err
	}

	outcome, err := sess.client.SignInWithCode(callCtx, sess.phone, strings.TrimSpace(code), sess.challengeToken)
	if err != nil {
		if !s.failStep(sess, sess.client) {
			return models.StateIdle, interruptedErr()
		}
		s.logger.Warn(ctx, "code sign-in failed", "user_id", userID, "error", err)
		return models.StateIdle, transportErr(err)
	}

	s.mu.Lock()
	if !s.liveLocked(sess) {
		s.endStepLocked(sess)
		client := sess.client
		sess.client = nil
		s.mu.Unlock()
		s.disconnect(client, userID)
		return models.StateIdle, interruptedErr()
	}

	switch outcome {
	case platform.CodeAuthorized:
		sess.state = models.StateAuthenticated
		s.stopTimerLocked(sess)
		s.mu.Unlock()
		return s.complete(ctx, callCtx, sess)

	case platform.CodeSecondFactorRequired:
		sess.state = models.StateAwaitingPassword
		s.endStepLocked(sess)
		s.armLocked(sess)
		s.mu.Unlock()
		s.logger.Info(ctx, "second factor required", "user_id", userID)
		return models.StateAwaitingPassword, nil

	case platform.CodeInvalid:
		sess.codeTries++
		attempt := &AttemptError{Err: common.ErrCodeInvalid, Attempts: sess.codeTries, Max: s.policy.MaxCodeRetries}
		s.endStepLocked(sess)
		if sess.codeTries < s.policy.MaxCodeRetries {
			s.armLocked(sess)
			s.mu.Unlock()
			return models.StateAwaitingCode, attempt
		}
		client := s.endLocked(sess)
		s.mu.Unlock()
		s.disconnect(client, userID)
		s.logger.Info(ctx, "code retry ceiling reached", "user_id", userID)
		return models.StateIdle, &AttemptError{Err: common.ErrRetryCeilingExceeded, Attempts: attempt.Attempts, Max: attempt.Max}

	default:
		s.endStepLocked(sess)
		client := s.endLocked(sess)
		s.mu.Unlock()
		s.disconnect(client, userID)
		return models.StateIdle, common.ErrCodeExpired
	}
}

// SubmitPassword completes a sign-in that needs the second factor.
func (s *SessionService) SubmitPassword(ctx context.Context, userID, password string) (models.SessionState, error) {
	release, err := s.locks.Acquire(ctx, userID)
	if err != nil {
		return models.StateIdle, err
	}
	defer release()

	sess, callCtx, err := s.takeStep(ctx, userID, models.StateAwaitingPassword)
	if err != nil {
		return models.StateIdle, err
	}

	outcome, err := sess.client.SignInWithPassword(callCtx, password)
	if err != nil {
		if !s.failStep(sess, sess.client) {
			return models.StateIdle, interruptedErr()
		}
		s.logger.Warn(ctx, "password sign-in failed", "user_id", userID, "error", err)
		return models.StateIdle, transportErr(err)
	}

	s.mu.Lock()
	if !s.liveLocked(sess) {
		s.endStepLocked(sess)
		client := sess.client
		sess.client = nil
		s.mu.Unlock()
		s.disconnect(client, userID)
		return models.StateIdle, interruptedErr()
	}

	if outcome == platform.PasswordAuthorized {
		sess.state = models.StateAuthenticated
		s.stopTimerLocked(sess)
		s.mu.Unlock()
		return s.complete(ctx, callCtx, sess)
	}

	sess.passwordTries++
	attempt := &AttemptError{Err: common.ErrPasswordInvalid, Attempts: sess.passwordTries, Max: s.policy.MaxPasswordRetries}
	s.endStepLocked(sess)
	if sess.passwordTries < s.policy.MaxPasswordRetries {
		s.armLocked(sess)
		s.mu.Unlock()
		return models.StateAwaitingPassword, attempt
	}
	client := s.endLocked(sess)
	s.mu.Unlock()
	s.disconnect(client, userID)
	s.logger.Info(ctx, "password retry ceiling reached", "user_id", userID)
	return models.StateIdle, &AttemptError{Err: common.ErrRetryCeilingExceeded, Attempts: attempt.Attempts, Max: attempt.Max}
}

// complete stores the new credential and starts its quota from zero. The
// session is discarded whatever the outcome.
func (s *SessionService) complete(ctx, callCtx context.Context, sess *loginSession) (models.SessionState, error) {
	persistErr := s.persist(ctx, callCtx, sess)

	s.mu.Lock()
	s.endStepLocked(sess)
	client := s.endLocked(sess)
	s.mu.Unlock()
	s.disconnect(client, sess.userID)

	if persistErr != nil {
		s.logger.Error(ctx, "storing credential failed", "user_id", sess.userID, "error", persistErr)
		return models.StateIdle, persistErr
	}

	s.logger.Info(ctx, "credential stored", "user_id", sess.userID)
	return models.StateAuthenticated, nil
}

func (s *SessionService) persist(ctx, callCtx context.Context, sess *loginSession) error {
	blob, err := sess.client.Session(callCtx)
	if err != nil {
		return transportErr(err)
	}
	if err := s.creds.Save(ctx, sess.userID, blob); err != nil {
		return fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	if err := s.ledger.Reset(ctx, sess.userID); err != nil {
		return fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	return nil
}

// Abort drops the user's sign-in session, cancelling any platform call in
// progress. It reports whether there was a session to drop.
func (s *SessionService) Abort(ctx context.Context, userID string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[userID]
	if !ok {
		s.mu.Unlock()
		return false
	}
	sess.state = models.StateAborted
	client := s.endLocked(sess)
	s.mu.Unlock()

	s.disconnect(client, userID)
	s.logger.Info(ctx, "login session aborted", "user_id", userID)
	return true
}

// State describes the user's sign-in progress. Without a session the user
// is Authenticated if a credential is stored, otherwise Idle.
func (s *SessionService) State(ctx context.Context, userID string) models.SessionSnapshot {
	s.mu.Lock()
	snap := models.SessionSnapshot{State: models.StateIdle}
	if expired, ok := s.lastExpired[userID]; ok {
		snap.LastExpiredIn = expired
		snap.HasLastExpired = true
	}
	if sess, ok := s.sessions[userID]; ok {
		snap.State = sess.state
		snap.Phone = sess.phone
		snap.CodeAttempts = sess.codeTries
		snap.PasswordTries = sess.passwordTries
		s.mu.Unlock()
		return snap
	}
	s.mu.Unlock()

	ok, err := s.creds.Exists(ctx, userID)
	if err != nil {
		s.logger.Warn(ctx, "credential lookup failed", "user_id", userID, "error", err)
		return snap
	}
	if ok {
		snap.State = models.StateAuthenticated
	}
	return snap
}

// Close drops every session. Used on shutdown.
func (s *SessionService) Close() {
	s.mu.Lock()
	var clients []platform.Client
	var users []string
	for _, sess := range s.sessions {
		if c := s.endLocked(sess); c != nil {
			clients = append(clients, c)
			users = append(users, sess.userID)
		}
	}
	s.mu.Unlock()

	for i, c := range clients {
		s.disconnect(c, users[i])
	}
}

// IsAttempt reports whether err carries attempt counts.
func IsAttempt(err error) (*AttemptError, bool) {
	var ae *AttemptError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
