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
	h "github.com/fjod/scalecommerce/internal/http"
	"github.com/fjod/scalecommerce/internal/jobs"
	"github.com/fjod/scalecommerce/internal/metrics"
	"github.com/fjod/scalecommerce/internal/publisher"
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
	log := logger.New("api", cfg.LogLevel)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("api stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("api stopped")
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
	notifier, events, err := app.NewNotifiers(cfg, log, &closers)
	if err != nil {
		return err
	}

	checkout := service.NewCheckoutService(repo, service.NewPaymentHandler(gateway, cfg.GatewayTimeout), m, log)

	var (
		queue       jobs.Enqueuer
		memoryQueue *jobs.MemoryQueue
	)
	if cfg.InProcessQueue() {
		memoryQueue = jobs.NewMemoryQueue(cfg.QueueBuffer, cfg.Workers, log)
		queue = memoryQueue
		log.Info("running checkout workers in-process", "workers", cfg.Workers)
	} else {
		kafkaQueue := jobs.NewKafkaQueue(cfg.KafkaTopic, cfg.KafkaBrokers...)
		closers.Add(kafkaQueue.Close)
		queue = kafkaQueue
		log.Info("publishing checkout jobs to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}
	performer := service.NewCheckoutJobPerformer(repo, checkout, notifier, m, log)
	poller := publisher.NewOutboxPoller(repo, queue, cfg.OutboxTick, log).WithCapturer(performer)

	router := h.NewRouter(h.RouterConfig{
		Catalog:            service.NewCatalogService(repo, repo),
		Baskets:            service.NewBasketService(repo, log),
		Checkout:           checkout,
		Events:             events,
		Metrics:            m,
		Gatherer:           reg,
		Logger:             log,
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	})
	srv := &http.Server{
		Addr:        ":" + cfg.HTTPPort,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("api listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		poller.Run(ctx)
		return nil
	})
	if memoryQueue != nil {
		g.Go(func() error {
			// queued jobs are drained after shutdown starts
			memoryQueue.Run(context.WithoutCancel(ctx), performer.Perform)
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down api")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if memoryQueue != nil {
			memoryQueue.Close()
		}
		return err
	})

	return g.Wait()
}
