package client

import (
	"context"

	"github.com/dmitrijs2005/gophcheck/internal/api"
)

// Client is the front-end view of the checker service. Verify may return a
// partial result together with an error.
type Client interface {
	Close() error
	Ping(ctx context.Context) error
	BeginSession(ctx context.Context, phone string) (string, error)
	SubmitCode(ctx context.Context, code string) (string, error)
	SubmitPassword(ctx context.Context, password string) (string, error)
	Abort(ctx context.Context) (bool, error)
	State(ctx context.Context) (*api.SessionStateResponse, error)
	Verify(ctx context.Context, phones []string, onProgress func(done, total int)) (*api.VerifyResult, error)
	Status(ctx context.Context) (*api.StatusResponse, error)
	Logout(ctx context.Context) (*api.LogoutResponse, error)
}
