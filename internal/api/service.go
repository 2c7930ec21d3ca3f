package api

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "gophcheck.CheckerService"

// Full method names, as seen by interceptors.
const (
	MethodBeginSession   = "/" + ServiceName + "/BeginSession"
	MethodSubmitCode     = "/" + ServiceName + "/SubmitCode"
	MethodSubmitPassword = "/" + ServiceName + "/SubmitPassword"
	MethodAbortSession   = "/" + ServiceName + "/AbortSession"
	MethodSessionState   = "/" + ServiceName + "/SessionState"
	MethodVerify         = "/" + ServiceName + "/Verify"
	MethodStatus         = "/" + ServiceName + "/Status"
	MethodLogout         = "/" + ServiceName + "/Logout"
	MethodPing           = "/" + ServiceName + "/Ping"
)

// CheckerServer is implemented by the gophcheck server.
type CheckerServer interface {
	BeginSession(context.Context, *BeginSessionRequest) (*StepResponse, error)
	SubmitCode(context.Context, *SubmitCodeRequest) (*StepResponse, error)
	SubmitPassword(context.Context, *SubmitPasswordRequest) (*StepResponse, error)
	AbortSession(context.Context, *AbortSessionRequest) (*AbortSessionResponse, error)
	SessionState(context.Context, *SessionStateRequest) (*SessionStateResponse, error)
	Verify(*VerifyRequest, VerifyStream) error
	Status(context.Context, *StatusRequest) (*StatusResponse, error)
	Logout(context.Context, *LogoutRequest) (*LogoutResponse, error)
	Ping(context.Context, *PingRequest) (*PingResponse, error)
}

// VerifyStream is the server side of the Verify stream.
type VerifyStream interface {
	Send(*VerifyEvent) error
	Context() context.Context
}

func RegisterCheckerServer(s grpc.ServiceRegistrar, srv CheckerServer) {
	s.RegisterService(&CheckerServiceDesc, srv)
}

func unaryHandler[Req any, Resp any](method string, call func(CheckerServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CheckerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CheckerServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

type verifyServerStream struct {
	grpc.ServerStream
}

func (s *verifyServerStream) Send(e *VerifyEvent) error {
	return s.ServerStream.SendMsg(e)
}

func verifyHandler(srv any, stream grpc.ServerStream) error {
	in := new(VerifyRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(CheckerServer).Verify(in, &verifyServerStream{stream})
}

var CheckerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CheckerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "BeginSession", Handler: unaryHandler(MethodBeginSession, CheckerServer.BeginSession)},
		{MethodName: "SubmitCode", Handler: unaryHandler(MethodSubmitCode, CheckerServer.SubmitCode)},
		{MethodName: "SubmitPassword", Handler: unaryHandler(MethodSubmitPassword, CheckerServer.SubmitPassword)},
		{MethodName: "AbortSession", Handler: unaryHandler(MethodAbortSession, CheckerServer.AbortSession)},
		{MethodName: "SessionState", Handler: unaryHandler(MethodSessionState, CheckerServer.SessionState)},
		{MethodName: "Status", Handler: unaryHandler(MethodStatus, CheckerServer.Status)},
		{MethodName: "Logout", Handler: unaryHandler(MethodLogout, CheckerServer.Logout)},
		{MethodName: "Ping", Handler: unaryHandler(MethodPing, CheckerServer.Ping)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Verify", Handler: verifyHandler, ServerStreams: true},
	},
	Metadata: "gophcheck/checker.json",
}
