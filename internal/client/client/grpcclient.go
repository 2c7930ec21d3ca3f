package client

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/dmitrijs2005/gophcheck/internal/api"
	"github.com/dmitrijs2005/gophcheck/internal/common"
	"github.com/dmitrijs2005/gophcheck/internal/server/auth"
)

const tokenTTL = 5 * time.Minute

type GRPCClient struct {
	endpointURL string
	userID      string
	secretKey   []byte
	conn        *grpc.ClientConn
	client      *api.CheckerClient
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) authorize(ctx context.Context) (context.Context, error) {
	token, err := auth.GenerateToken(s.userID, s.secretKey, tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("mint access token: %w", err)
	}
	return withAccessToken(ctx, token), nil
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	ctx, err := s.authorize(ctx)
	if err != nil {
		return err
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

func (s *GRPCClient) streamAccessTokenInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	ctx, err := s.authorize(ctx)
	if err != nil {
		return nil, err
	}
	return streamer(ctx, desc, cc, method, opts...)
}

// NewCheckerClientService connects to endpointURL acting for userID.
// Extra dial options are appended after the defaults.
func NewCheckerClientService(endpointURL, userID, secretKey string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, userID: userID, secretKey: []byte(secretKey)}
	if err := c.InitGRPCClient(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient(opts ...grpc.DialOption) error {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithChainUnaryInterceptor(s.accessTokenInterceptor),
		grpc.WithChainStreamInterceptor(s.streamAccessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(s.endpointURL, dialOpts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = api.NewCheckerClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, &api.PingRequest{})
	if err != nil {
		return mapError(err)
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) BeginSession(ctx context.Context, phone string) (string, error) {
	resp, err := s.client.BeginSession(ctx, &api.BeginSessionRequest{Phone: phone})
	if err != nil {
		return "", mapError(err)
	}
	return resp.State, nil
}

func (s *GRPCClient) SubmitCode(ctx context.Context, code string) (string, error) {
	resp, err := s.client.SubmitCode(ctx, &api.SubmitCodeRequest{Code: code})
	if err != nil {
		return "", mapError(err)
	}
	return resp.State, nil
}

func (s *GRPCClient) SubmitPassword(ctx context.Context, password string) (string, error) {
	resp, err := s.client.SubmitPassword(ctx, &api.SubmitPasswordRequest{Password: password})
	if err != nil {
		return "", mapError(err)
	}
	return resp.State, nil
}

func (s *GRPCClient) Abort(ctx context.Context) (bool, error) {
	resp, err := s.client.AbortSession(ctx, &api.AbortSessionRequest{})
	if err != nil {
		return false, mapError(err)
	}
	return resp.Aborted, nil
}

func (s *GRPCClient) State(ctx context.Context) (*api.SessionStateResponse, error) {
	resp, err := s.client.SessionState(ctx, &api.SessionStateRequest{})
	if err != nil {
		return nil, mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) Verify(ctx context.Context, phones []string, onProgress func(done, total int)) (*api.VerifyResult, error) {
	progress := func(p api.VerifyProgress) {
		if onProgress != nil {
			onProgress(p.Done, p.Total)
		}
	}
	resp, err := s.client.Verify(ctx, &api.VerifyRequest{Phones: phones}, progress)
	if err != nil {
		return resp, mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) Status(ctx context.Context) (*api.StatusResponse, error) {
	resp, err := s.client.Status(ctx, &api.StatusRequest{})
	if err != nil {
		return nil, mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) Logout(ctx context.Context) (*api.LogoutResponse, error) {
	resp, err := s.client.Logout(ctx, &api.LogoutRequest{})
	if err != nil {
		return nil, mapError(err)
	}
	return resp, nil
}
