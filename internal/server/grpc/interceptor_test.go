package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophcheck/internal/api"
	"github.com/dmitrijs2005/gophcheck/internal/common"
	"github.com/dmitrijs2005/gophcheck/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func newTestServer(secret string) *GRPCServer {
	return NewGRPCServer("127.0.0.1:0", nopLogger{}, &fakeChecker{}, secret, false)
}

func withToken(ctx context.Context, token string) context.Context {
	return metadata.NewIncomingContext(ctx, metadata.Pairs(common.AccessTokenHeaderName, token))
}

func TestInterceptor_OpenMethodsSkipAuth(t *testing.T) {
	s := newTestServer("secret")

	for _, method := range []string{api.MethodPing, "/grpc.health.v1.Health/Check"} {
		called := false
		h := func(ctx context.Context, req any) (any, error) {
			called = true
			return "ok", nil
		}

		resp, err := s.accessTokenInterceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: method}, h)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", method, err)
		}
		if !called || resp != "ok" {
			t.Fatalf("%s: handler not called or wrong resp %v", method, resp)
		}
	}
}

func TestInterceptor_MissingToken(t *testing.T) {
	s := newTestServer("secret")

	h := func(ctx context.Context, req any) (any, error) {
		t.Fatal("handler should not be called when token missing")
		return nil, nil
	}

	_, err := s.accessTokenInterceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: api.MethodStatus}, h)
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}
}

func TestInterceptor_InvalidAndExpiredToken(t *testing.T) {
	s := newTestServer("secret")

	expired, err := auth.GenerateToken("u1", []byte("secret"), -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	foreign, err := auth.GenerateToken("u1", []byte("other"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	tests := []struct {
		name    string
		token   string
		message string
	}{
		{"garbage", "not-a-token", "invalid token"},
		{"foreign secret", foreign, "invalid token"},
		{"expired", expired, "token expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := func(ctx context.Context, req any) (any, error) {
				t.Fatal("handler must not be called")
				return nil, nil
			}
			_, err := s.accessTokenInterceptor(withToken(context.Background(), tt.token), nil,
				&grpc.UnaryServerInfo{FullMethod: api.MethodVerify}, h)

			st, _ := status.FromError(err)
			if st.Code() != codes.Unauthenticated || st.Message() != tt.message {
				t.Fatalf("got %v, want Unauthenticated %q", err, tt.message)
			}
		})
	}
}

func TestInterceptor_ValidTokenSetsUser(t *testing.T) {
	s := newTestServer("secret")

	tok, err := auth.GenerateToken("user-42", []byte("secret"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	var got string
	h := func(ctx context.Context, req any) (any, error) {
		got, _ = userIDFromContext(ctx)
		return nil, nil
	}

	if _, err := s.accessTokenInterceptor(withToken(context.Background(), tok), nil,
		&grpc.UnaryServerInfo{FullMethod: api.MethodBeginSession}, h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "user-42" {
		t.Fatalf("user id in context = %q, want user-42", got)
	}
}

type stubStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s stubStream) Context() context.Context { return s.ctx }

func TestStreamInterceptor(t *testing.T) {
	s := newTestServer("secret")
	info := &grpc.StreamServerInfo{FullMethod: api.MethodVerify, IsServerStream: true}

	err := s.streamAccessTokenInterceptor(nil, stubStream{ctx: context.Background()}, info,
		func(any, grpc.ServerStream) error { return nil })
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}

	tok, _ := auth.GenerateToken("user-7", []byte("secret"), time.Hour)
	var got string
	err = s.streamAccessTokenInterceptor(nil, stubStream{ctx: withToken(context.Background(), tok)}, info,
		func(_ any, ss grpc.ServerStream) error {
			got, _ = userIDFromContext(ss.Context())
			return nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "user-7" {
		t.Fatalf("user id in stream context = %q", got)
	}
}
