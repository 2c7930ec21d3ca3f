package platform

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSimulatedCode is accepted for every account without its own code.
const DefaultSimulatedCode = "12345"

var (
	ErrSimulatedNotSignedIn = errors.New("simulated platform: not signed in")
	ErrSimulatedNoPassword  = errors.New("simulated platform: no second factor pending")
)

// Account is a sign-in identity known to the simulated platform.
type Account struct {
	Code     string
	Password string
}

// ResolveHook lets tests fail or stall individual ResolveBatch calls.
// call counts every ResolveBatch made against the platform, from 1.
type ResolveHook func(ctx context.Context, chunk []string, call int) error

// Simulated is an in-process platform with deterministic behavior. It is
// used by tests and for local runs without a gateway.
type Simulated struct {
	mu sync.Mutex

	registered map[string]struct{}
	accounts   map[string]Account
	challenges map[string]string // challenge token -> phone
	sessions   map[string]string // session token -> phone
	imported   map[string]struct{}

	latency     time.Duration
	resolveHook ResolveHook
	rollbackErr error

	resolves    int
	rollbacks   int
	connects    int
	disconnects int
}

type SimulatedOption func(*Simulated)

// WithRegistered marks numbers as existing platform accounts.
func WithRegistered(numbers ...string) SimulatedOption {
	return func(s *Simulated) {
		for _, n := range numbers {
			s.registered[n] = struct{}{}
		}
	}
}

// WithAccount sets the code and optional password for phone.
func WithAccount(phone string, acc Account) SimulatedOption {
	return func(s *Simulated) { s.accounts[phone] = acc }
}

// WithLatency delays every ResolveBatch by d, honoring cancellation.
func WithLatency(d time.Duration) SimulatedOption {
	return func(s *Simulated) { s.latency = d }
}

func WithResolveHook(h ResolveHook) SimulatedOption {
	return func(s *Simulated) { s.resolveHook = h }
}

func WithRollbackError(err error) SimulatedOption {
	return func(s *Simulated) { s.rollbackErr = err }
}

func NewSimulated(opts ...SimulatedOption) *Simulated {
	s := &Simulated{
		registered: make(map[string]struct{}),
		accounts:   make(map[string]Account),
		challenges: make(map[string]string),
		sessions:   make(map[string]string),
		imported:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dial implements Dialer.
func (s *Simulated) Dial(_ context.Context, credential []byte) (Client, error) {
	return &simulatedClient{platform: s, session: string(credential)}, nil
}

// ExpireChallenges invalidates every outstanding one-time code.
func (s *Simulated) ExpireChallenges() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.challenges)
}

// ExpireSessions signs every stored credential out.
func (s *Simulated) ExpireSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.sessions)
}

// Stats reports call counters and contacts still imported.
type Stats struct {
	Resolves    int
	Rollbacks   int
	Connects    int
	Disconnects int
	Imported    int
}

func (s *Simulated) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Resolves:    s.resolves,
		Rollbacks:   s.rollbacks,
		Connects:    s.connects,
		Disconnects: s.disconnects,
		Imported:    len(s.imported),
	}
}

func (s *Simulated) codeFor(phone string) string {
	if acc, ok := s.accounts[phone]; ok && acc.Code != "" {
		return acc.Code
	}
	return DefaultSimulatedCode
}

type simulatedClient struct {
	platform *Simulated
	session  string
	pending  string // phone waiting for its password
}

func (c *simulatedClient) Connect(context.Context) error {
	c.platform.mu.Lock()
	defer c.platform.mu.Unlock()
	c.platform.connects++
	return nil
}

func (c *simulatedClient) IsAuthorized(context.Context) (bool, error) {
	c.platform.mu.Lock()
	defer c.platform.mu.Unlock()
	_, ok := c.platform.sessions[c.session]
	return ok, nil
}

func (c *simulatedClient) RequestCode(_ context.Context, phone string) (string, error) {
	c.platform.mu.Lock()
	defer c.platform.mu.Unlock()
	token := uuid.NewString()
	c.platform.challenges[token] = phone
	return token, nil
}

func (c *simulatedClient) authorizeLocked(phone string) {
	c.session = uuid.NewString()
	c.platform.sessions[c.session] = phone
	c.pending = ""
}

func (c *simulatedClient) SignInWithCode(_ context.Context, phone, code, challengeToken string) (CodeOutcome, error) {
	p := c.platform
	p.mu.Lock()
	defer p.mu.Unlock()

	if owner, ok := p.challenges[challengeToken]; !ok || owner != phone {
		return CodeExpired, nil
	}
	if code != p.codeFor(phone) {
		return CodeInvalid, nil
	}
	delete(p.challenges, challengeToken)

	if p.accounts[phone].Password != "" {
		c.pending = phone
		return CodeSecondFactorRequired, nil
	}
	c.authorizeLocked(phone)
	return CodeAuthorized, nil
}

func (c *simulatedClient) SignInWithPassword(_ context.Context, password string) (PasswordOutcome, error) {
	p := c.platform
	p.mu.Lock()
	defer p.mu.Unlock()

	if c.pending == "" {
		return PasswordInvalid, ErrSimulatedNoPassword
	}
	if password != p.accounts[c.pending].Password {
		return PasswordInvalid, nil
	}
	c.authorizeLocked(c.pending)
	return PasswordAuthorized, nil
}

func (c *simulatedClient) ResolveBatch(ctx context.Context, chunk []string) ([]string, error) {
	p := c.platform

	p.mu.Lock()
	p.resolves++
	call := p.resolves
	hook, latency := p.resolveHook, p.latency
	_, authorized := p.sessions[c.session]
	p.mu.Unlock()

	if !authorized {
		return nil, ErrSimulatedNotSignedIn
	}

	if latency > 0 {
		t := time.NewTimer(latency)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if hook != nil {
		if err := hook(ctx, chunk, call); err != nil {
			return nil, err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	found := make([]string, 0, len(chunk))
	for _, n := range chunk {
		p.imported[n] = struct{}{}
		if _, ok := p.registered[n]; ok {
			found = append(found, n)
		}
	}
	return found, nil
}

func (c *simulatedClient) RollbackBatch(_ context.Context, chunk []string) error {
	p := c.platform
	p.mu.Lock()
	defer p.mu.Unlock()

	p.rollbacks++
	if p.rollbackErr != nil {
		return p.rollbackErr
	}
	for _, n := range chunk {
		delete(p.imported, n)
	}
	return nil
}

func (c *simulatedClient) Session(context.Context) ([]byte, error) {
	c.platform.mu.Lock()
	defer c.platform.mu.Unlock()
	if _, ok := c.platform.sessions[c.session]; !ok {
		return nil, ErrSimulatedNotSignedIn
	}
	return []byte(c.session), nil
}

func (c *simulatedClient) Disconnect(context.Context) error {
	c.platform.mu.Lock()
	defer c.platform.mu.Unlock()
	c.platform.disconnects++
	return nil
}
