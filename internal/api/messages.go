package api

// Session states as they appear on the wire.
const (
	StateIdle             = "idle"
	StateAwaitingPhone    = "awaiting_phone"
	StateAwaitingCode     = "awaiting_code"
	StateAwaitingPassword = "awaiting_password"
	StateAuthenticated    = "authenticated"
	StateAborted          = "aborted"
)

type BeginSessionRequest struct {
	Phone string `json:"phone"`
}

type SubmitCodeRequest struct {
	Code string `json:"code"`
}

type SubmitPasswordRequest struct {
	Password string `json:"password"`
}

// StepResponse is the state a sign-in step left the session in.
type StepResponse struct {
	State string `json:"state"`
}

type AbortSessionRequest struct{}

type AbortSessionResponse struct {
	Aborted bool `json:"aborted"`
}

type SessionStateRequest struct{}

type SessionStateResponse struct {
	State         string `json:"state"`
	Phone         string `json:"phone,omitempty"`
	CodeAttempts  int    `json:"code_attempts"`
	PasswordTries int    `json:"password_tries"`
	// LastExpiredIn names the state the previous session timed out in.
	LastExpiredIn string `json:"last_expired_in,omitempty"`
}

type VerifyRequest struct {
	Phones []string `json:"phones"`
}

type VerifyResult struct {
	RunID        string   `json:"run_id"`
	Registered   []string `json:"registered"`
	Unregistered []string `json:"unregistered"`
	Failed       []string `json:"failed,omitempty"`
	Skipped      []string `json:"skipped,omitempty"`
	ChecksDone   int      `json:"checks_done"`
	Remaining    int      `json:"remaining"`
	Revoked      bool     `json:"revoked"`
}

type VerifyProgress struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

// VerifyEvent is one message of the Verify stream. Exactly one field is
// set; the stream ends after the result.
type VerifyEvent struct {
	Progress *VerifyProgress `json:"progress,omitempty"`
	Result   *VerifyResult   `json:"result,omitempty"`
}

type StatusRequest struct{}

type StatusResponse struct {
	ChecksDone  int `json:"checks_done"`
	Limit       int `json:"limit"`
	Remaining   int `json:"remaining"`
	PercentLeft int `json:"percent_left"`
}

type LogoutRequest struct{}

type LogoutResponse struct {
	ChecksDone    int  `json:"checks_done"`
	HadCredential bool `json:"had_credential"`
}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}
