package service

import (
	"context"
	"sync"

	d "github.com/fjod/scalecommerce/domain"
	"github.com/fjod/scalecommerce/internal/notify"
	"github.com/fjod/scalecommerce/internal/payment"
)

// scriptedGateway behaves like the simulated gateway unless a step is
// overridden.
type scriptedGateway struct {
	*payment.Simulated

	mu             sync.Mutex
	declineCapture bool
	captureErr     error
	authorized     []d.Money
	captured       []d.Money
	voided         []string
}

func newScriptedGateway() *scriptedGateway {
	return &scriptedGateway{Simulated: payment.NewSimulated(0)}
}

func (g *scriptedGateway) Authorize(ctx context.Context, token string, amount d.Money) (payment.AuthorizationResult, error) {
	g.mu.Lock()
	g.authorized = append(g.authorized, amount)
	g.mu.Unlock()
	return g.Simulated.Authorize(ctx, token, amount)
}

func (g *scriptedGateway) Capture(ctx context.Context, authorizationID string, amount d.Money) (payment.CaptureResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.captured = append(g.captured, amount)
	if g.captureErr != nil {
		return payment.CaptureResult{}, g.captureErr
	}
	if g.declineCapture {
		return payment.CaptureResult{Success: false, Error: payment.ReasonInvalidAuthorization, Amount: amount}, nil
	}
	return g.Simulated.Capture(ctx, authorizationID, amount)
}

func (g *scriptedGateway) Void(ctx context.Context, authorizationID string) error {
	g.mu.Lock()
	g.voided = append(g.voided, authorizationID)
	g.mu.Unlock()
	return g.Simulated.Void(ctx, authorizationID)
}

type published struct {
	basketUUID string
	event      notify.Event
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (n *recordingNotifier) Publish(_ context.Context, basketUUID string, ev notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, published{basketUUID: basketUUID, event: ev})
	return n.err
}

func (n *recordingNotifier) all() []published {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]published(nil), n.events...)
}
