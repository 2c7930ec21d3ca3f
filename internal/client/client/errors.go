package client

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrUnavailable    = errors.New("server unavailable")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrRejected       = errors.New("input rejected")
	ErrAborted        = errors.New("login aborted")
	ErrQuotaExhausted = errors.New("quota exhausted")
)

// RemoteError is a failure reported by the server. Message is meant for
// the end user.
type RemoteError struct {
	Code    codes.Code
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

func (e *RemoteError) Unwrap() error {
	switch e.Code {
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.InvalidArgument, codes.FailedPrecondition:
		return ErrRejected
	case codes.Aborted:
		return ErrAborted
	case codes.ResourceExhausted:
		return ErrQuotaExhausted
	default:
		return nil
	}
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	return &RemoteError{Code: st.Code(), Message: st.Message()}
}
