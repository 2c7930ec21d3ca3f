package grpc

import (
	"context"
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthgrpc "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dmitrijs2005/gophcheck/internal/api"
	"github.com/dmitrijs2005/gophcheck/internal/logging"
	"github.com/dmitrijs2005/gophcheck/internal/server/models"
	"github.com/dmitrijs2005/gophcheck/internal/server/services"
)

// Checker is the service surface the gRPC layer drives.
type Checker interface {
	BeginSession(ctx context.Context, userID, phone string) (models.SessionState, error)
	SubmitCode(ctx context.Context, userID, code string) (models.SessionState, error)
	SubmitPassword(ctx context.Context, userID, password string) (models.SessionState, error)
	Abort(ctx context.Context, userID string) bool
	State(ctx context.Context, userID string) models.SessionSnapshot
	Verify(ctx context.Context, userID string, raw []string, opts ...services.VerifyOption) (*models.VerificationResult, error)
	Status(ctx context.Context, userID string) (models.QuotaStatus, error)
	Logout(ctx context.Context, userID string) (services.LogoutResult, error)
}

type GRPCServer struct {
	address   string
	checker   Checker
	logger    logging.Logger
	jwtSecret []byte
	tracing   bool
	health    *health.Server
}

func NewGRPCServer(a string, l logging.Logger, c Checker, secretKey string, tracing bool) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		checker:   c,
		jwtSecret: []byte(secretKey),
		tracing:   tracing,
		health:    health.NewServer(),
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(s.accessTokenInterceptor),
		grpc.ChainStreamInterceptor(s.streamAccessTokenInterceptor),
	}
	if s.tracing {
		opts = append(opts, grpc.StatsHandler(otelgrpc.NewServerHandler()))
	}

	srv := grpc.NewServer(opts...)
	api.RegisterCheckerServer(srv, &handler{s: s})
	healthgrpc.RegisterHealthServer(srv, s.health)
	s.health.SetServingStatus(api.ServiceName, healthgrpc.HealthCheckResponse_SERVING)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	stopped := make(chan struct{})
	defer close(stopped)

	go func() {
		select {
		case <-ctx.Done():
		case <-stopped:
			return
		}
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
