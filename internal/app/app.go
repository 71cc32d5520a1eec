// Package app builds the components shared by the binaries from a Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fjod/scalecommerce/internal/config"
	gw "github.com/fjod/scalecommerce/internal/grpc"
	"github.com/fjod/scalecommerce/internal/metrics"
	"github.com/fjod/scalecommerce/internal/notify"
	"github.com/fjod/scalecommerce/internal/payment"
	"github.com/fjod/scalecommerce/internal/repository"
	"github.com/fjod/scalecommerce/pkg/circuitbreaker"
	"github.com/redis/go-redis/v9"
)

// Closers releases resources in reverse order of acquisition.
type Closers []func() error

func (c *Closers) Add(fn func() error) {
	*c = append(*c, fn)
}

func (c Closers) Close() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OpenRepository connects to the configured database and migrates it.
func OpenRepository(cfg *config.Config, logger *slog.Logger) (*repository.Repository, error) {
	var (
		repo *repository.Repository
		err  error
	)
	switch cfg.DBDriver {
	case config.DriverPostgres:
		repo, err = repository.NewRepository(&cfg.Postgres)
	default:
		repo, err = repository.NewSQLiteRepository(cfg.SQLitePath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := repo.RunMigrations(cfg.MigrationsPath); err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("database ready", "driver", cfg.DBDriver)
	return repo, nil
}

// NewGateway returns the payment gateway behind metrics and a circuit
// breaker: the remote gateway when an address is configured, otherwise the
// simulator.
func NewGateway(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger, closers *Closers) (payment.Gateway, error) {
	var next payment.Gateway
	if cfg.PaymentGatewayAddr == "" {
		logger.Info("using in-process payment gateway simulator")
		next = payment.NewSimulated(cfg.GatewayLatency)
	} else {
		client, conn, err := gw.Dial(cfg.PaymentGatewayAddr)
		if err != nil {
			return nil, err
		}
		closers.Add(conn.Close)
		logger.Info("connected to payment gateway", "addr", cfg.PaymentGatewayAddr)
		next = client
	}
	return circuitbreaker.New(m.InstrumentGateway(next), circuitbreaker.DefaultConfig("payment-gateway"), logger), nil
}

// Subscriber is implemented by notifiers that can also stream events.
type Subscriber interface {
	Subscribe(ctx context.Context, basketUUID string) (<-chan notify.Event, func(), error)
}

// NewNotifiers returns the publisher for job outcomes and the subscriber the
// events endpoint reads from. Without Redis both are an in-process hub, which
// only reaches clients of the same process.
func NewNotifiers(cfg *config.Config, logger *slog.Logger, closers *Closers) (notify.Notifier, Subscriber, error) {
	var (
		fanout notify.Fanout
		events Subscriber
	)

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		closers.Add(client.Close)
		rn := notify.NewRedisNotifier(client, logger)
		fanout = append(fanout, rn)
		events = rn
	} else {
		local := notify.NewLocal()
		fanout = append(fanout, local)
		events = local
	}

	if cfg.AMQPURL != "" {
		conn, ch, err := notify.SetupAMQP(cfg.AMQPURL, 5, logger)
		if err != nil {
			return nil, nil, err
		}
		closers.Add(conn.Close)
		closers.Add(ch.Close)
		fanout = append(fanout, notify.NewAMQPNotifier(ch))
	}

	if len(fanout) == 1 {
		return fanout[0], events, nil
	}
	return fanout, events, nil
}
