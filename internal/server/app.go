// Package server wires the gophcheck server together: storage, the
// platform binding, the checker services and the gRPC endpoint. It also
// owns startup and graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/gophcheck/internal/logging"
	"github.com/dmitrijs2005/gophcheck/internal/server/config"
	"github.com/dmitrijs2005/gophcheck/internal/server/models"
	"github.com/dmitrijs2005/gophcheck/internal/server/platform"
	"github.com/dmitrijs2005/gophcheck/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/gophcheck/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophcheck/internal/server/services"
	"github.com/dmitrijs2005/gophcheck/internal/server/telemetry"

	gs "github.com/dmitrijs2005/gophcheck/internal/server/grpc"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config   *config.Config
	logger   logging.Logger
	repos    repomanager.RepositoryManager
	checker  *services.Checker
	server   *gs.GRPCServer
	closers  []func() error
	shutdown func(context.Context) error
}

// NewApp opens storage, applies migrations and builds the services. The
// returned App owns every resource it opened.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogFormat, logging.ParseLevel(c.LogLevel))
	return newApp(ctx, c, logger)
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger) (app *App, err error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	app = &App{config: c, logger: logger}
	defer func() {
		if err != nil {
			app.close(ctx)
			app = nil
		}
	}()

	app.shutdown, err = telemetry.Setup(ctx, c.OTLPEndpoint)
	if err != nil {
		return app, fmt.Errorf("telemetry init error: %w", err)
	}

	app.repos, err = repomanager.Open(ctx, c.DatabaseDriver, c.DatabaseDSN)
	if err != nil {
		return app, fmt.Errorf("db init error: %w", err)
	}
	app.closers = append(app.closers, app.repos.Close)

	if err = app.repos.RunMigrations(ctx); err != nil {
		return app, fmt.Errorf("migrations: %w", err)
	}

	creds, err := app.credentialStore(ctx)
	if err != nil {
		return app, fmt.Errorf("credential store: %w", err)
	}

	dialer, err := app.dialer()
	if err != nil {
		return app, fmt.Errorf("platform: %w", err)
	}

	app.checker = services.NewChecker(services.Deps{
		Dialer:      dialer,
		Credentials: creds,
		Quota:       app.repos.Quota(),
		Notifier: services.NotifierFunc(func(userID string, state models.SessionState) {
			logger.Info(context.Background(), "login session timed out", "user_id", userID, "state", state.String())
		}),
		Logger:     logger,
		QuotaLimit: c.QuotaLimit,
		SessionPolicy: services.SessionPolicy{
			PhoneTimeout:       c.PhoneTimeout,
			CodeTimeout:        c.CodeTimeout,
			PasswordTimeout:    c.PasswordTimeout,
			MaxCodeRetries:     c.MaxCodeRetries,
			MaxPasswordRetries: c.MaxPasswordRetries,
		},
		VerifyPolicy: services.VerifyPolicy{
			ChunkSize:      c.ChunkSize,
			MaxAttempts:    c.MaxAttempts,
			AttemptTimeout: c.AttemptTimeout,
			RetryDelay:     c.RetryDelay,
			ChunkInterval:  c.ChunkInterval,
		},
	})

	app.server = gs.NewGRPCServer(c.EndpointAddrGRPC, logger, app.checker, c.SecretKey, c.OTLPEndpoint != "")
	return app, nil
}

func (app *App) credentialStore(ctx context.Context) (credentials.Repository, error) {
	var store credentials.Repository

	switch app.config.CredentialBackend {
	case config.BackendSQL:
		store = app.repos.Credentials()
	case config.BackendS3:
		s3, err := credentials.NewS3Repository(ctx, credentials.S3Options{
			Region:       app.config.S3Region,
			AccessKey:    app.config.S3AccessKey,
			SecretKey:    app.config.S3SecretKey,
			BaseEndpoint: app.config.S3BaseEndpoint,
			Bucket:       app.config.S3Bucket,
		})
		if err != nil {
			return nil, err
		}
		store = s3
	case config.BackendMemory:
		store = credentials.NewMemoryRepository()
	default:
		return nil, fmt.Errorf("unknown credential backend %q", app.config.CredentialBackend)
	}

	if app.config.CredentialSecret != "" {
		store = credentials.NewSealed(store, app.config.CredentialSecret)
	}
	return store, nil
}

func (app *App) dialer() (platform.Dialer, error) {
	switch app.config.Platform {
	case config.PlatformGateway:
		gw, err := platform.NewGateway(app.config.PlatformGatewayAddr)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, gw.Close)
		return gw, nil
	case config.PlatformSimulated:
		app.logger.Warn(context.Background(), "using the simulated platform; numbers are not checked for real")
		return platform.NewSimulated(), nil
	}
	return nil, fmt.Errorf("unknown platform %q", app.config.Platform)
}

func (app *App) initSignalHandler(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
}

// Run serves until ctx is cancelled or a signal arrives, then releases
// everything the App opened.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := app.initSignalHandler(ctx)
	defer stop()

	app.logger.Info(ctx, "Starting app...")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.server.Run(gctx)
	})

	err := g.Wait()
	app.close(context.Background())

	if err != nil && !errors.Is(err, context.Canceled) {
		app.logger.Error(ctx, "server stopped with error", "error", err)
		return err
	}
	app.logger.Info(context.Background(), "App stopped")
	return nil
}

func (app *App) close(ctx context.Context) {
	if app.checker != nil {
		app.checker.Close()
	}
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Warn(ctx, "close failed", "error", err)
		}
	}
	app.closers = nil

	if app.shutdown != nil {
		sctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		if err := app.shutdown(sctx); err != nil {
			app.logger.Warn(ctx, "telemetry shutdown failed", "error", err)
		}
		app.shutdown = nil
	}
}
