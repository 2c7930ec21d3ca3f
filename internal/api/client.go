package api

import (
	"context"
	"errors"
	"io"

	"google.golang.org/grpc"
)

// CheckerClient calls a CheckerService over cc using the JSON codec.
type CheckerClient struct {
	cc grpc.ClientConnInterface
}

func NewCheckerClient(cc grpc.ClientConnInterface) *CheckerClient {
	return &CheckerClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{CallOption()}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CheckerClient) BeginSession(ctx context.Context, in *BeginSessionRequest, opts ...grpc.CallOption) (*StepResponse, error) {
	return invoke[StepResponse](ctx, c.cc, MethodBeginSession, in, opts)
}

func (c *CheckerClient) SubmitCode(ctx context.Context, in *SubmitCodeRequest, opts ...grpc.CallOption) (*StepResponse, error) {
	return invoke[StepResponse](ctx, c.cc, MethodSubmitCode, in, opts)
}

func (c *CheckerClient) SubmitPassword(ctx context.Context, in *SubmitPasswordRequest, opts ...grpc.CallOption) (*StepResponse, error) {
	return invoke[StepResponse](ctx, c.cc, MethodSubmitPassword, in, opts)
}

func (c *CheckerClient) AbortSession(ctx context.Context, in *AbortSessionRequest, opts ...grpc.CallOption) (*AbortSessionResponse, error) {
	return invoke[AbortSessionResponse](ctx, c.cc, MethodAbortSession, in, opts)
}

func (c *CheckerClient) SessionState(ctx context.Context, in *SessionStateRequest, opts ...grpc.CallOption) (*SessionStateResponse, error) {
	return invoke[SessionStateResponse](ctx, c.cc, MethodSessionState, in, opts)
}

func (c *CheckerClient) Status(ctx context.Context, in *StatusRequest, opts ...grpc.CallOption) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c.cc, MethodStatus, in, opts)
}

func (c *CheckerClient) Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*LogoutResponse, error) {
	return invoke[LogoutResponse](ctx, c.cc, MethodLogout, in, opts)
}

func (c *CheckerClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, MethodPing, in, opts)
}

// Verify runs a check and calls onProgress for every progress event. It
// returns the final result. When the server fails after sending a partial
// result, both the partial result and the error are returned.
func (c *CheckerClient) Verify(ctx context.Context, in *VerifyRequest, onProgress func(VerifyProgress), opts ...grpc.CallOption) (*VerifyResult, error) {
	opts = append([]grpc.CallOption{CallOption()}, opts...)
	stream, err := c.cc.NewStream(ctx, &CheckerServiceDesc.Streams[0], MethodVerify, opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}

	var result *VerifyResult
	for {
		ev := new(VerifyEvent)
		err := stream.RecvMsg(ev)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, err
		}
		switch {
		case ev.Result != nil:
			result = ev.Result
		case ev.Progress != nil && onProgress != nil:
			onProgress(*ev.Progress)
		}
	}

	if result == nil {
		return nil, errors.New("verify stream ended without a result")
	}
	return result, nil
}
