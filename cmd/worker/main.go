package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/scalecommerce/internal/app"
	"github.com/fjod/scalecommerce/internal/config"
	"github.com/fjod/scalecommerce/internal/jobs"
	"github.com/fjod/scalecommerce/internal/metrics"
	"github.com/fjod/scalecommerce/internal/service"
	"github.com/fjod/scalecommerce/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New("worker", cfg.LogLevel)
	slog.SetDefault(log)

	if cfg.InProcessQueue() {
		log.Error("KAFKA_BROKERS is required for the worker; without it the api runs checkout jobs itself")
		os.Exit(1)
	}
	if cfg.RedisAddr == "" && cfg.AMQPURL == "" {
		log.Warn("no REDIS_ADDR or AMQP_URL configured, checkout outcomes will not reach clients")
	}

	if err := run(cfg, log); err != nil {
		log.Error("worker stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("worker stopped")
}

func run(cfg *config.Config, log *slog.Logger) error {
	var closers app.Closers
	defer func() {
		if err := closers.Close(); err != nil {
			log.Error("failed to release resources", "error", err)
		}
	}()

	repo, err := app.OpenRepository(cfg, log)
	if err != nil {
		return err
	}
	closers.Add(repo.Close)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	gateway, err := app.NewGateway(cfg, m, log, &closers)
	if err != nil {
		return err
	}
	notifier, _, err := app.NewNotifiers(cfg, log, &closers)
	if err != nil {
		return err
	}

	checkout := service.NewCheckoutService(repo, service.NewPaymentHandler(gateway, cfg.GatewayTimeout), m, log)
	performer := service.NewCheckoutJobPerformer(repo, checkout, notifier, m, log)
	consumer := jobs.NewKafkaConsumer(cfg.KafkaTopic, cfg.KafkaGroupID, cfg.Workers, log, cfg.KafkaBrokers...)
	closers.Add(consumer.Close)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("worker consuming", "topic", cfg.KafkaTopic, "group", cfg.KafkaGroupID, "readers", cfg.Workers)
		consumer.Run(ctx, performer.Perform)
		return nil
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
