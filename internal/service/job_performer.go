package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	d "github.com/fjod/scalecommerce/domain"
	"github.com/fjod/scalecommerce/internal/jobs"
	"github.com/fjod/scalecommerce/internal/metrics"
	"github.com/fjod/scalecommerce/internal/notify"
	r "github.com/fjod/scalecommerce/internal/repository"
)

// CheckoutJobPerformer runs checkout jobs and reports their outcome on the
// basket's notification topic.
type CheckoutJobPerformer struct {
	repo     r.RepoInterface
	checkout CheckoutService
	notifier notify.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewCheckoutJobPerformer(repo r.RepoInterface, checkout CheckoutService, notifier notify.Notifier, m *metrics.Metrics, logger *slog.Logger) *CheckoutJobPerformer {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckoutJobPerformer{repo: repo, checkout: checkout, notifier: notifier, metrics: m, logger: logger}
}

// Perform handles an empty basket or a refused payment by failing the order
// and publishing a failed event. A job for an order that another attempt has
// already taken past pending is skipped without an event. Any other error is
// returned to the runner.
func (p *CheckoutJobPerformer) Perform(ctx context.Context, job jobs.CheckoutJob) error {
	basket, err := p.repo.GetBasketByID(ctx, job.BasketID)
	if err != nil {
		p.metrics.JobProcessed("error")
		return fmt.Errorf("load basket %d: %w", job.BasketID, err)
	}
	order, err := p.repo.GetOrderByBasketID(ctx, basket.ID)
	if err != nil {
		p.metrics.JobProcessed("error")
		return fmt.Errorf("load order of basket %d: %w", basket.ID, err)
	}
	if !order.Status.CanAuthorize() {
		p.skipDuplicate(ctx, order)
		return nil
	}

	completed, err := p.checkout.Checkout(ctx, &d.CheckoutCommand{
		Basket:       basket,
		Order:        order,
		Email:        job.Email,
		PaymentToken: job.PaymentToken,
		Address:      job.Address,
	})

	var payErr *PaymentError
	switch {
	case err == nil:
		p.metrics.JobProcessed("completed")
		p.logger.InfoContext(ctx, "checkout completed", "order_id", completed.ID, "basket_id", basket.ID)
		p.publish(ctx, basket.UUID, notify.Completed(completed))
		return nil

	case errors.Is(err, ErrEmptyBasket):
		p.metrics.JobProcessed("empty_basket")
		p.logger.ErrorContext(ctx, "checkout failed", "basket_id", basket.ID, "error", err)
		p.markFailed(ctx, order.ID, err.Error())
		p.publish(ctx, basket.UUID, notify.Failed(notify.CodeEmptyBasket, err.Error()))
		return nil

	case errors.Is(err, r.ErrOrderStateChanged), errors.As(err, &payErr) && payErr.Phase == PhaseGuard:
		p.skipDuplicate(ctx, order)
		return nil

	case errors.As(err, &payErr):
		p.metrics.JobProcessed("payment_failed")
		p.logger.ErrorContext(ctx, "checkout payment failed", "basket_id", basket.ID, "phase", payErr.Phase, "error", err)
		// a declined capture has already failed the order while compensating
		if payErr.Phase == PhaseAuthorize {
			p.markFailed(ctx, order.ID, payErr.Message)
		}
		p.publish(ctx, basket.UUID, notify.Failed(notify.CodePaymentRequired, payErr.Message))
		return nil

	default:
		p.metrics.JobProcessed("error")
		return err
	}
}

// ResumeCapture settles an order left authorized after a capture with an
// unknown outcome and publishes the result on the basket's topic.
func (p *CheckoutJobPerformer) ResumeCapture(ctx context.Context, order *d.Order) error {
	completed, err := p.checkout.ResumeCapture(ctx, order)

	var payErr *PaymentError
	switch {
	case err == nil:
		p.metrics.JobProcessed("recovered")
		p.logger.InfoContext(ctx, "pending capture completed", "order_id", order.ID)
		p.publish(ctx, order.BasketUUID, notify.Completed(completed))
		return nil

	case errors.As(err, &payErr):
		p.metrics.JobProcessed("payment_failed")
		p.logger.ErrorContext(ctx, "pending capture declined", "order_id", order.ID, "error", err)
		p.publish(ctx, order.BasketUUID, notify.Failed(notify.CodePaymentRequired, payErr.Message))
		return nil

	case errors.Is(err, r.ErrOrderStateChanged):
		p.logger.InfoContext(ctx, "order settled elsewhere, capture not resumed", "order_id", order.ID)
		return nil

	default:
		return err
	}
}

func (p *CheckoutJobPerformer) skipDuplicate(ctx context.Context, order *d.Order) {
	p.metrics.JobProcessed("duplicate")
	p.logger.InfoContext(ctx, "checkout already taken by another attempt, skipping job",
		"order_id", order.ID, "status", order.Status)
}

func (p *CheckoutJobPerformer) markFailed(ctx context.Context, orderID int64, reason string) {
	if err := p.repo.MarkOrderFailed(ctx, orderID, reason); err != nil {
		p.logger.ErrorContext(ctx, "failed to mark order failed", "order_id", orderID, "error", err)
	}
}

func (p *CheckoutJobPerformer) publish(ctx context.Context, basketUUID string, ev notify.Event) {
	if err := p.notifier.Publish(ctx, basketUUID, ev); err != nil {
		p.logger.WarnContext(ctx, "failed to publish checkout event", "basket_uuid", basketUUID, "status", ev.Status, "error", err)
	}
}
