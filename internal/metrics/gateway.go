package metrics

import (
	"context"
	"time"

	d "github.com/fjod/scalecommerce/domain"
	"github.com/fjod/scalecommerce/internal/payment"
)

// Gateway times every call of the wrapped gateway.
type Gateway struct {
	next payment.Gateway
	m    *Metrics
}

func (m *Metrics) InstrumentGateway(next payment.Gateway) *Gateway {
	return &Gateway{next: next, m: m}
}

func outcome(success bool, err error) string {
	switch {
	case err != nil:
		return "error"
	case !success:
		return "declined"
	default:
		return "success"
	}
}

func (g *Gateway) DetailsFor(ctx context.Context, token string) (payment.CardDetails, error) {
	start := time.Now()
	res, err := g.next.DetailsFor(ctx, token)
	g.m.GatewayCall("details_for", outcome(true, err), start)
	return res, err
}

func (g *Gateway) Authorize(ctx context.Context, token string, amount d.Money) (payment.AuthorizationResult, error) {
	start := time.Now()
	res, err := g.next.Authorize(ctx, token, amount)
	g.m.GatewayCall("authorize", outcome(res.Success, err), start)
	return res, err
}

func (g *Gateway) Capture(ctx context.Context, authorizationID string, amount d.Money) (payment.CaptureResult, error) {
	start := time.Now()
	res, err := g.next.Capture(ctx, authorizationID, amount)
	g.m.GatewayCall("capture", outcome(res.Success, err), start)
	return res, err
}

func (g *Gateway) Void(ctx context.Context, authorizationID string) error {
	start := time.Now()
	err := g.next.Void(ctx, authorizationID)
	g.m.GatewayCall("void", outcome(true, err), start)
	return err
}
