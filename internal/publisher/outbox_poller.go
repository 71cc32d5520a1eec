package publisher

import (
	"context"
	"log/slog"
	"time"

	d "github.com/fjod/scalecommerce/domain"
	"github.com/fjod/scalecommerce/internal/jobs"
	r "github.com/fjod/scalecommerce/internal/repository"
)

const (
	batchSize  = 100
	stuckAfter = time.Minute
)

type Store interface {
	r.OutboxStore
	GetStuckOrders(ctx context.Context, status d.OrderStatus, olderThan time.Time, limit int) ([]*d.Order, error)
	TransitionOrder(ctx context.Context, id int64, from, to d.OrderStatus) error
}

// Capturer settles an order left authorized by a capture whose outcome was
// never learned.
type Capturer interface {
	ResumeCapture(ctx context.Context, order *d.Order) error
}

// OutboxPoller moves accepted checkouts from the outbox to the job queue and
// settles orders a worker left half way: captured but not completed, or
// authorized with no capture outcome.
type OutboxPoller struct {
	eventTick    time.Duration
	recoveryTick time.Duration
	repo         Store
	queue        jobs.Enqueuer
	capturer     Capturer
	logger       *slog.Logger
}

func NewOutboxPoller(repo Store, queue jobs.Enqueuer, eventTick time.Duration, logger *slog.Logger) *OutboxPoller {
	if eventTick <= 0 {
		eventTick = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OutboxPoller{
		eventTick:    eventTick,
		recoveryTick: 5 * eventTick,
		repo:         repo,
		queue:        queue,
		logger:       logger,
	}
}

// WithCapturer enables the sweep of orders stuck in authorized.
func (p *OutboxPoller) WithCapturer(c Capturer) *OutboxPoller {
	p.capturer = c
	return p
}

// Run blocks until ctx is done.
func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	recoveryTicker := time.NewTicker(p.recoveryTick)
	defer eventTicker.Stop()
	defer recoveryTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-recoveryTicker.C:
			p.recoverStuckOrders(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, batchSize)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to fetch outbox events", "error", err)
		return
	}

	for _, event := range events {
		if err := p.queue.Enqueue(ctx, event.AggregateId, event.Payload); err != nil {
			p.logger.ErrorContext(ctx, "failed to enqueue event", "event_id", event.ID, "error", err)
			continue
		}
		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			// the job is enqueued again next tick; the order claim makes the rerun a no-op
			p.logger.ErrorContext(ctx, "failed to mark event as processed", "event_id", event.ID, "error", err)
		}
	}
}

func (p *OutboxPoller) recoverStuckOrders(ctx context.Context) {
	cutoff := time.Now().Add(-stuckAfter)
	p.completeCapturedOrders(ctx, cutoff)
	if p.capturer != nil {
		p.resumeAuthorizedOrders(ctx, cutoff)
	}
}

// completeCapturedOrders completes orders left in captured by a worker that
// died between recording the capture and completing the order.
func (p *OutboxPoller) completeCapturedOrders(ctx context.Context, cutoff time.Time) {
	orders, err := p.repo.GetStuckOrders(ctx, d.OrderStatusCaptured, cutoff, batchSize)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to get stuck orders", "status", d.OrderStatusCaptured, "error", err)
		return
	}
	for _, order := range orders {
		if err := p.repo.TransitionOrder(ctx, order.ID, d.OrderStatusCaptured, d.OrderStatusCompleted); err != nil {
			p.logger.ErrorContext(ctx, "failed to complete stuck order", "order_id", order.ID, "error", err)
			continue
		}
		p.logger.InfoContext(ctx, "stuck order completed", "order_id", order.ID)
	}
}

// resumeAuthorizedOrders retries the capture of orders whose stock was
// reserved but whose capture failed in transport or never ran.
func (p *OutboxPoller) resumeAuthorizedOrders(ctx context.Context, cutoff time.Time) {
	orders, err := p.repo.GetStuckOrders(ctx, d.OrderStatusAuthorized, cutoff, batchSize)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to get stuck orders", "status", d.OrderStatusAuthorized, "error", err)
		return
	}
	for _, order := range orders {
		if err := p.capturer.ResumeCapture(ctx, order); err != nil {
			p.logger.ErrorContext(ctx, "failed to resume capture", "order_id", order.ID, "error", err)
		}
	}
}
