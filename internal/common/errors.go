// Package common defines shared constants and sentinel errors used across
// the server, the services and the CLI front-end. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")
	ErrBusy       = errors.New("another operation is in progress for this user")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Input validation.
	ErrInvalidPhoneFormat = errors.New("invalid phone number format")

	// Credential lifecycle.
	ErrNoActiveCredential = errors.New("no active credential")
	ErrCredentialExpired  = errors.New("credential unauthorized or expired")

	// Login flow outcomes.
	ErrCodeInvalid          = errors.New("invalid code")
	ErrCodeExpired          = errors.New("code expired")
	ErrPasswordInvalid      = errors.New("invalid password")
	ErrRetryCeilingExceeded = errors.New("too many invalid attempts")
	ErrNoPendingSession     = errors.New("no pending login session")

	// Remote call failures.
	ErrTimeoutExceeded  = errors.New("timeout exceeded")
	ErrTransportFailure = errors.New("platform transport failure")

	// Quota.
	ErrQuotaExhausted = errors.New("quota exhausted")
)
