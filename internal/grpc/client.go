package grpc

import (
	"context"
	"fmt"

	d "github.com/fjod/scalecommerce/domain"
	"github.com/fjod/scalecommerce/internal/payment"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// Client is a payment.Gateway backed by a remote PaymentGateway service.
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// DialOptions are the options every gateway connection needs.
func DialOptions() []grpc.DialOption {
	return []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	}
}

// Dial connects to the gateway at addr. The caller closes the connection.
func Dial(addr string, opts ...grpc.DialOption) (*Client, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr, append(DialOptions(), opts...)...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to payment gateway: %w", err)
	}
	return NewClient(conn), conn, nil
}

func (c *Client) DetailsFor(ctx context.Context, token string) (payment.CardDetails, error) {
	var out payment.CardDetails
	err := c.invoke(ctx, "DetailsFor", &DetailsRequest{Token: token}, &out)
	return out, err
}

func (c *Client) Authorize(ctx context.Context, token string, amount d.Money) (payment.AuthorizationResult, error) {
	var out payment.AuthorizationResult
	err := c.invoke(ctx, "Authorize", &AuthorizeRequest{Token: token, Amount: amount}, &out)
	return out, err
}

func (c *Client) Capture(ctx context.Context, authorizationID string, amount d.Money) (payment.CaptureResult, error) {
	var out payment.CaptureResult
	err := c.invoke(ctx, "Capture", &CaptureRequest{AuthorizationID: authorizationID, Amount: amount}, &out)
	return out, err
}

func (c *Client) Void(ctx context.Context, authorizationID string) error {
	return c.invoke(ctx, "Void", &VoidRequest{AuthorizationID: authorizationID}, &VoidResponse{})
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	err := c.conn.Invoke(ctx, fullMethod(method), in, out)
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.Unavailable {
		return fmt.Errorf("%s: %w: %w", method, payment.ErrGatewayUnavailable, err)
	}
	return fmt.Errorf("%s: %w", method, err)
}
