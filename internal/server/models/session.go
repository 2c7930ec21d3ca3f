package models

// SessionState is a step of the sign-in exchange for one user.
type SessionState int

const (
	StateIdle SessionState = iota
	StateAwaitingPhone
	StateAwaitingCode
	StateAwaitingPassword
	StateAuthenticated
	StateAborted
)

var sessionStateNames = [...]string{
	StateIdle:             "idle",
	StateAwaitingPhone:    "awaiting_phone",
	StateAwaitingCode:     "awaiting_code",
	StateAwaitingPassword: "awaiting_password",
	StateAuthenticated:    "authenticated",
	StateAborted:          "aborted",
}

func (s SessionState) String() string {
	if s < 0 || int(s) >= len(sessionStateNames) {
		return "unknown"
	}
	return sessionStateNames[s]
}

// ParseSessionState is the inverse of String. Unknown names map to StateIdle.
func ParseSessionState(name string) SessionState {
	for i, n := range sessionStateNames {
		if n == name {
			return SessionState(i)
		}
	}
	return StateIdle
}

// SessionSnapshot is what a front-end learns about a user's sign-in.
type SessionSnapshot struct {
	State          SessionState
	Phone          string
	CodeAttempts   int
	PasswordTries  int
	LastExpiredIn  SessionState
	HasLastExpired bool
}
