// Package platform abstracts the remote messaging platform behind a small
// capability interface. Sign-in steps report their result as tagged
// outcomes; any returned error means the call itself failed.
package platform

import "context"

// CodeOutcome is the result of submitting a one-time code.
type CodeOutcome int

const (
	CodeAuthorized CodeOutcome = iota
	CodeSecondFactorRequired
	CodeInvalid
	CodeExpired
)

func (o CodeOutcome) String() string {
	switch o {
	case CodeAuthorized:
		return "authorized"
	case CodeSecondFactorRequired:
		return "second_factor_required"
	case CodeInvalid:
		return "invalid_code"
	case CodeExpired:
		return "expired_code"
	}
	return "unknown"
}

// PasswordOutcome is the result of submitting the second-factor password.
type PasswordOutcome int

const (
	PasswordAuthorized PasswordOutcome = iota
	PasswordInvalid
)

func (o PasswordOutcome) String() string {
	switch o {
	case PasswordAuthorized:
		return "authorized"
	case PasswordInvalid:
		return "invalid_password"
	}
	return "unknown"
}

// Client is one live connection to the platform, acting as a single
// account. It is not safe for concurrent use.
type Client interface {
	Connect(ctx context.Context) error
	IsAuthorized(ctx context.Context) (bool, error)

	// RequestCode asks the platform to send a one-time code to phone and
	// returns the token that must accompany the code.
	RequestCode(ctx context.Context, phone string) (string, error)
	SignInWithCode(ctx context.Context, phone, code, challengeToken string) (CodeOutcome, error)
	SignInWithPassword(ctx context.Context, password string) (PasswordOutcome, error)

	// ResolveBatch returns the members of chunk that are platform accounts,
	// in chunk order. Resolution may import the numbers as contacts.
	ResolveBatch(ctx context.Context, chunk []string) ([]string, error)
	// RollbackBatch undoes the contact import of a previous ResolveBatch.
	RollbackBatch(ctx context.Context, chunk []string) error

	// Session serializes the signed-in account so it can be restored later
	// through Dialer.Dial.
	Session(ctx context.Context) ([]byte, error)
	Disconnect(ctx context.Context) error
}

// Dialer creates clients. A nil credential yields a fresh, signed-out
// client for the login flow.
type Dialer interface {
	Dial(ctx context.Context, credential []byte) (Client, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, credential []byte) (Client, error)

func (f DialerFunc) Dial(ctx context.Context, credential []byte) (Client, error) {
	return f(ctx, credential)
}
