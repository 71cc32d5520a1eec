// Package circuitbreaker guards a payment gateway with a gobreaker circuit.
// Transport failures count against the circuit; declines do not.
package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	d "github.com/fjod/scalecommerce/domain"
	"github.com/fjod/scalecommerce/internal/payment"
	"github.com/sony/gobreaker/v2"
)

type Config struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}

type Gateway struct {
	next payment.Gateway
	cb   *gobreaker.CircuitBreaker[any]
}

func New(next payment.Gateway, cfg Config, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		// a caller giving up says nothing about the gateway's health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	return &Gateway{next: next, cb: gobreaker.NewCircuitBreaker[any](settings)}
}

func (g *Gateway) State() gobreaker.State {
	return g.cb.State()
}

func (g *Gateway) DetailsFor(ctx context.Context, token string) (payment.CardDetails, error) {
	return execute(g.cb, func() (payment.CardDetails, error) { return g.next.DetailsFor(ctx, token) })
}

func (g *Gateway) Authorize(ctx context.Context, token string, amount d.Money) (payment.AuthorizationResult, error) {
	return execute(g.cb, func() (payment.AuthorizationResult, error) { return g.next.Authorize(ctx, token, amount) })
}

func (g *Gateway) Capture(ctx context.Context, authorizationID string, amount d.Money) (payment.CaptureResult, error) {
	return execute(g.cb, func() (payment.CaptureResult, error) { return g.next.Capture(ctx, authorizationID, amount) })
}

func (g *Gateway) Void(ctx context.Context, authorizationID string) error {
	_, err := execute(g.cb, func() (struct{}, error) { return struct{}{}, g.next.Void(ctx, authorizationID) })
	return err
}

func execute[T any](cb *gobreaker.CircuitBreaker[any], fn func() (T, error)) (T, error) {
	var zero T
	res, err := cb.Execute(func() (any, error) { return fn() })
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return zero, fmt.Errorf("%w: %w", payment.ErrGatewayUnavailable, err)
	}
	if err != nil {
		return zero, err
	}
	return res.(T), nil
}
