package platform

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophcheck/internal/api"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// GatewayService is the gRPC service exposed by the platform gateway
// sidecar. The sidecar owns the vendor client library; each Open creates
// a vendor client on its side and returns a handle for later calls.
const GatewayService = "gophcheck.platform.v1.Gateway"

type gwOpenRequest struct {
	Credential []byte `json:"credential,omitempty"`
}

type gwOpenResponse struct {
	Handle string `json:"handle"`
}

type gwHandleRequest struct {
	Handle string `json:"handle"`
}

type gwAuthorizedResponse struct {
	Authorized bool `json:"authorized"`
}

type gwRequestCodeRequest struct {
	Handle string `json:"handle"`
	Phone  string `json:"phone"`
}

type gwRequestCodeResponse struct {
	ChallengeToken string `json:"challenge_token"`
}

type gwSignInCodeRequest struct {
	Handle         string `json:"handle"`
	Phone          string `json:"phone"`
	Code           string `json:"code"`
	ChallengeToken string `json:"challenge_token"`
}

type gwSignInPasswordRequest struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

type gwOutcomeResponse struct {
	Outcome string `json:"outcome"`
}

type gwBatchRequest struct {
	Handle string   `json:"handle"`
	Phones []string `json:"phones"`
}

type gwResolveResponse struct {
	Registered []string `json:"registered"`
}

type gwSessionResponse struct {
	Credential []byte `json:"credential"`
}

type gwEmpty struct{}

// Gateway dials clients through a platform gateway sidecar.
type Gateway struct {
	conn *grpc.ClientConn
}

// NewGateway connects lazily to the sidecar at addr.
func NewGateway(addr string, opts ...grpc.DialOption) (*Gateway, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithDefaultCallOptions(api.CallOption()),
	}, opts...)

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("gateway client: %w", err)
	}
	return &Gateway{conn: conn}, nil
}

func (g *Gateway) Close() error {
	return g.conn.Close()
}

func (g *Gateway) invoke(ctx context.Context, method string, req, resp any) error {
	return g.conn.Invoke(ctx, "/"+GatewayService+"/"+method, req, resp)
}

// Dial implements Dialer.
func (g *Gateway) Dial(ctx context.Context, credential []byte) (Client, error) {
	var resp gwOpenResponse
	if err := g.invoke(ctx, "Open", &gwOpenRequest{Credential: credential}, &resp); err != nil {
		return nil, fmt.Errorf("gateway open: %w", err)
	}
	return &gatewayClient{gw: g, handle: resp.Handle}, nil
}

type gatewayClient struct {
	gw     *Gateway
	handle string
}

func (c *gatewayClient) Connect(ctx context.Context) error {
	return c.gw.invoke(ctx, "Connect", &gwHandleRequest{Handle: c.handle}, &gwEmpty{})
}

func (c *gatewayClient) IsAuthorized(ctx context.Context) (bool, error) {
	var resp gwAuthorizedResponse
	if err := c.gw.invoke(ctx, "IsAuthorized", &gwHandleRequest{Handle: c.handle}, &resp); err != nil {
		return false, err
	}
	return resp.Authorized, nil
}

func (c *gatewayClient) RequestCode(ctx context.Context, phone string) (string, error) {
	var resp gwRequestCodeResponse
	err := c.gw.invoke(ctx, "RequestCode", &gwRequestCodeRequest{Handle: c.handle, Phone: phone}, &resp)
	if err != nil {
		return "", err
	}
	return resp.ChallengeToken, nil
}

func (c *gatewayClient) SignInWithCode(ctx context.Context, phone, code, challengeToken string) (CodeOutcome, error) {
	var resp gwOutcomeResponse
	req := &gwSignInCodeRequest{Handle: c.handle, Phone: phone, Code: code, ChallengeToken: challengeToken}
	if err := c.gw.invoke(ctx, "SignInWithCode", req, &resp); err != nil {
		return CodeInvalid, err
	}

	for _, o := range []CodeOutcome{CodeAuthorized, CodeSecondFactorRequired, CodeInvalid, CodeExpired} {
		if o.String() == resp.Outcome {
			return o, nil
		}
	}
	return CodeInvalid, fmt.Errorf("gateway: unknown code outcome %q", resp.Outcome)
}

func (c *gatewayClient) SignInWithPassword(ctx context.Context, password string) (PasswordOutcome, error) {
	var resp gwOutcomeResponse
	req := &gwSignInPasswordRequest{Handle: c.handle, Password: password}
	if err := c.gw.invoke(ctx, "SignInWithPassword", req, &resp); err != nil {
		return PasswordInvalid, err
	}

	switch resp.Outcome {
	case PasswordAuthorized.String():
		return PasswordAuthorized, nil
	case PasswordInvalid.String():
		return PasswordInvalid, nil
	}
	return PasswordInvalid, fmt.Errorf("gateway: unknown password outcome %q", resp.Outcome)
}

func (c *gatewayClient) ResolveBatch(ctx context.Context, chunk []string) ([]string, error) {
	var resp gwResolveResponse
	if err := c.gw.invoke(ctx, "ResolveBatch", &gwBatchRequest{Handle: c.handle, Phones: chunk}, &resp); err != nil {
		return nil, err
	}
	return resp.Registered, nil
}

func (c *gatewayClient) RollbackBatch(ctx context.Context, chunk []string) error {
	return c.gw.invoke(ctx, "RollbackBatch", &gwBatchRequest{Handle: c.handle, Phones: chunk}, &gwEmpty{})
}

func (c *gatewayClient) Session(ctx context.Context) ([]byte, error) {
	var resp gwSessionResponse
	if err := c.gw.invoke(ctx, "Session", &gwHandleRequest{Handle: c.handle}, &resp); err != nil {
		return nil, err
	}
	return resp.Credential, nil
}

// Disconnect releases the sidecar's vendor client for this handle.
func (c *gatewayClient) Disconnect(ctx context.Context) error {
	return c.gw.invoke(ctx, "Close", &gwHandleRequest{Handle: c.handle}, &gwEmpty{})
}
