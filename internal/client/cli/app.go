package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/gophcheck/internal/api"
	"github.com/dmitrijs2005/gophcheck/internal/client/client"
	"github.com/dmitrijs2005/gophcheck/internal/client/config"
)

type App struct {
	config  *config.Config
	client  client.Client
	reader  *bufio.Reader
	out     io.Writer
	state   string
	timeout time.Duration
}

func NewApp(c *config.Config) (*App, error) {
	apiClient, err := client.NewCheckerClientService(c.ServerEndpointAddr, c.UserID, c.SecretKey)
	if err != nil {
		return nil, err
	}

	return &App{
		config:  c,
		client:  apiClient,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		state:   api.StateIdle,
		timeout: c.RequestTimeout,
	}, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.client.Close()

	printlnFn("Welcome to gophcheck (type 'help' for commands)")

	pctx, cancel := a.callCtx(ctx)
	if err := a.client.Ping(pctx); err != nil {
		printlnFn("Warning: server not reachable:", err.Error())
	}
	cancel()

	_ = a.State(ctx)

	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) getStatus() string {
	return fmt.Sprintf("(%s %s)", a.config.UserID, a.state)
}

// callCtx bounds short calls by the configured request timeout.
func (a *App) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}
