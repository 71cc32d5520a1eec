package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	d "github.com/fjod/scalecommerce/domain"
	"github.com/fjod/scalecommerce/internal/jobs"
	"github.com/fjod/scalecommerce/internal/metrics"
	r "github.com/fjod/scalecommerce/internal/repository"
)

type CheckoutService interface {
	InitiateCheckout(ctx context.Context, request *d.CheckoutRequest) (*d.Order, error)
	Checkout(ctx context.Context, cmd *d.CheckoutCommand) (*d.Order, error)
	ResumeCapture(ctx context.Context, order *d.Order) (*d.Order, error)
}

type CheckoutServiceImpl struct {
	repo    r.RepoInterface
	payment *PaymentHandler
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewCheckoutService(repo r.RepoInterface, payment *PaymentHandler, m *metrics.Metrics, logger *slog.Logger) *CheckoutServiceImpl {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckoutServiceImpl{
		repo:    repo,
		payment: payment,
		metrics: m,
		logger:  logger,
	}
}

// InitiateCheckout validates the request and records a pending order together
// with the job that will run the checkout. It returns r.ErrDuplicateCheckout
// when the basket already has an order that is not failed.
func (s *CheckoutServiceImpl) InitiateCheckout(ctx context.Context, request *d.CheckoutRequest) (*d.Order, error) {
	if err := validateRequest(request); err != nil {
		return nil, err
	}

	basket, err := s.repo.GetBasketByUUID(ctx, request.BasketUUID)
	if err != nil {
		return nil, err
	}

	job := jobs.CheckoutJob{
		BasketID:     basket.ID,
		Email:        request.Email,
		PaymentToken: request.PaymentToken,
		Address:      request.Address,
	}
	payload, err := job.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checkout job: %w", err)
	}

	order, err := s.repo.CreatePendingOrder(ctx, basket, &r.OutboxEvent{
		AggregateId: job.Key(),
		EventType:   jobs.EventCheckoutRequested,
		Payload:     payload,
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "checkout accepted", "order_id", order.ID, "basket_id", basket.ID)
	return order, nil
}

func validateRequest(req *d.CheckoutRequest) error {
	if strings.TrimSpace(req.Email) == "" {
		return validationError("email is required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return validationError("email is invalid")
	}
	if strings.TrimSpace(req.PaymentToken) == "" {
		return validationError("payment_token is required")
	}
	if err := req.Address.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}
