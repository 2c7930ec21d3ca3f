package grpc

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/gophcheck/internal/api"
	"github.com/dmitrijs2005/gophcheck/internal/common"
	"github.com/dmitrijs2005/gophcheck/internal/server/models"
	"github.com/dmitrijs2005/gophcheck/internal/server/services"
)

// handler adapts the Checker to api.CheckerServer.
type handler struct {
	s *GRPCServer
}

func (h *handler) user(ctx context.Context) (string, error) {
	id, ok := userIDFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "unauthorized")
	}
	return id, nil
}

func (h *handler) step(ctx context.Context, op string, run func(userID string) (models.SessionState, error)) (*api.StepResponse, error) {
	userID, err := h.user(ctx)
	if err != nil {
		return nil, err
	}

	st, err := run(userID)
	if err != nil {
		return nil, h.s.toStatus(ctx, op, userID, err)
	}
	return &api.StepResponse{State: st.String()}, nil
}

func (h *handler) BeginSession(ctx context.Context, req *api.BeginSessionRequest) (*api.StepResponse, error) {
	return h.step(ctx, "begin_session", func(userID string) (models.SessionState, error) {
		return h.s.checker.BeginSession(ctx, userID, req.Phone)
	})
}

func (h *handler) SubmitCode(ctx context.Context, req *api.SubmitCodeRequest) (*api.StepResponse, error) {
	return h.step(ctx, "submit_code", func(userID string) (models.SessionState, error) {
		return h.s.checker.SubmitCode(ctx, userID, req.Code)
	})
}

func (h *handler) SubmitPassword(ctx context.Context, req *api.SubmitPasswordRequest) (*api.StepResponse, error) {
	return h.step(ctx, "submit_password", func(userID string) (models.SessionState, error) {
		return h.s.checker.SubmitPassword(ctx, userID, req.Password)
	})
}

func (h *handler) AbortSession(ctx context.Context, _ *api.AbortSessionRequest) (*api.AbortSessionResponse, error) {
	userID, err := h.user(ctx)
	if err != nil {
		return nil, err
	}
	return &api.AbortSessionResponse{Aborted: h.s.checker.Abort(ctx, userID)}, nil
}

func (h *handler) SessionState(ctx context.Context, _ *api.SessionStateRequest) (*api.SessionStateResponse, error) {
	userID, err := h.user(ctx)
	if err != nil {
		return nil, err
	}

	snap := h.s.checker.State(ctx, userID)
	resp := &api.SessionStateResponse{
		State:         snap.State.String(),
		Phone:         snap.Phone,
		CodeAttempts:  snap.CodeAttempts,
		PasswordTries: snap.PasswordTries,
	}
	if snap.HasLastExpired {
		resp.LastExpiredIn = snap.LastExpiredIn.String()
	}
	return resp, nil
}

func (h *handler) Verify(req *api.VerifyRequest, stream api.VerifyStream) error {
	ctx := stream.Context()
	userID, err := h.user(ctx)
	if err != nil {
		return err
	}

	progress := services.WithProgress(func(done, total int) {
		if err := stream.Send(&api.VerifyEvent{Progress: &api.VerifyProgress{Done: done, Total: total}}); err != nil {
			h.s.logger.Warn(ctx, "progress not delivered", "user_id", userID, "error", err)
		}
	})

	res, err := h.s.checker.Verify(ctx, userID, req.Phones, progress)
	if err != nil {
		// A partial result still tells the caller which chunks were charged.
		if res != nil {
			if serr := stream.Send(&api.VerifyEvent{Result: verifyResult(res)}); serr != nil {
				h.s.logger.Warn(ctx, "partial result not delivered", "user_id", userID, "error", serr)
			}
		}
		return h.s.toStatus(ctx, "verify", userID, err)
	}

	return stream.Send(&api.VerifyEvent{Result: verifyResult(res)})
}

func verifyResult(res *models.VerificationResult) *api.VerifyResult {
	return &api.VerifyResult{
		RunID:        res.RunID,
		Registered:   res.Registered,
		Unregistered: res.Unregistered,
		Failed:       res.Failed,
		Skipped:      res.Skipped,
		ChecksDone:   res.ChecksDone,
		Remaining:    res.Remaining,
		Revoked:      res.Revoked,
	}
}

func (h *handler) Status(ctx context.Context, _ *api.StatusRequest) (*api.StatusResponse, error) {
	userID, err := h.user(ctx)
	if err != nil {
		return nil, err
	}

	st, err := h.s.checker.Status(ctx, userID)
	if err != nil {
		return nil, h.s.toStatus(ctx, "status", userID, err)
	}
	return &api.StatusResponse{
		ChecksDone:  st.ChecksDone,
		Limit:       st.Limit,
		Remaining:   st.Remaining,
		PercentLeft: st.PercentLeft(),
	}, nil
}

func (h *handler) Logout(ctx context.Context, _ *api.LogoutRequest) (*api.LogoutResponse, error) {
	userID, err := h.user(ctx)
	if err != nil {
		return nil, err
	}

	res, err := h.s.checker.Logout(ctx, userID)
	if err != nil {
		return nil, h.s.toStatus(ctx, "logout", userID, err)
	}
	return &api.LogoutResponse{ChecksDone: res.ChecksDone, HadCredential: res.HadCredential}, nil
}

func (h *handler) Ping(context.Context, *api.PingRequest) (*api.PingResponse, error) {
	return &api.PingResponse{Status: "OK"}, nil
}

// toStatus turns a service error into a gRPC status with a message fit for
// the end user. Unknown errors are logged and hidden.
func (s *GRPCServer) toStatus(ctx context.Context, op, userID string, err error) error {
	if ae, ok := services.IsAttempt(err); ok && !errors.Is(err, common.ErrRetryCeilingExceeded) {
		what := "code"
		if errors.Is(err, common.ErrPasswordInvalid) {
			what = "password"
		}
		return status.Error(codes.FailedPrecondition,
			fmt.Sprintf("Invalid %s. %d attempt(s) left.", what, ae.Remaining()))
	}

	switch {
	case errors.Is(err, common.ErrInvalidPhoneFormat):
		return status.Error(codes.InvalidArgument, "Invalid phone number format. Use + followed by 1 to 15 digits.")
	case errors.Is(err, common.ErrRetryCeilingExceeded):
		return status.Error(codes.Aborted, "Too many invalid attempts. Start the login again.")
	case errors.Is(err, common.ErrCodeExpired):
		return status.Error(codes.Aborted, "The code has expired. Start the login again.")
	case errors.Is(err, common.ErrNoPendingSession):
		return status.Error(codes.Aborted, "No login is waiting for this step. Start the login again.")
	case errors.Is(err, common.ErrNoActiveCredential):
		return status.Error(codes.Unauthenticated, "No active session. Log in first.")
	case errors.Is(err, common.ErrCredentialExpired):
		return status.Error(codes.Unauthenticated, "The platform session is no longer valid. Log in again.")
	case errors.Is(err, common.ErrQuotaExhausted):
		return status.Error(codes.ResourceExhausted, "Check limit reached. The session was closed; log in again to continue.")
	case errors.Is(err, common.ErrBusy):
		return status.Error(codes.Unavailable, "Another operation is still running. Try again shortly.")
	case errors.Is(err, common.ErrTimeoutExceeded):
		return status.Error(codes.DeadlineExceeded, "The platform did not answer in time. Try again.")
	case errors.Is(err, common.ErrTransportFailure):
		return status.Error(codes.Unavailable, "The platform is unreachable. Try again later.")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "cancelled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	}

	s.logger.Error(ctx, "request failed", "op", op, "user_id", userID, "error", err)
	return status.Error(codes.Internal, "internal error")
}
