package service

import (
	"context"
	"time"

	d "github.com/fjod/scalecommerce/domain"
	"github.com/fjod/scalecommerce/internal/payment"
)

// PaymentHandler bounds every gateway call with a timeout.
type PaymentHandler struct {
	gateway payment.Gateway
	timeout time.Duration
}

func NewPaymentHandler(gateway payment.Gateway, timeout time.Duration) *PaymentHandler {
	return &PaymentHandler{
		gateway: gateway,
		timeout: timeout,
	}
}

func (h *PaymentHandler) detailsFor(ctx context.Context, token string) (payment.CardDetails, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	return h.gateway.DetailsFor(ctx, token)
}

func (h *PaymentHandler) authorize(ctx context.Context, token string, amount d.Money) (payment.AuthorizationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	return h.gateway.Authorize(ctx, token, amount)
}

func (h *PaymentHandler) capture(ctx context.Context, authorizationID string, amount d.Money) (payment.CaptureResult, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	return h.gateway.Capture(ctx, authorizationID, amount)
}

func (h *PaymentHandler) void(ctx context.Context, authorizationID string) error {
	// a void must still go out when the job's context is being cancelled
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.timeout)
	defer cancel()
	return h.gateway.Void(ctx, authorizationID)
}
