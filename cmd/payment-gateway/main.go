package main

import (
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/fjod/scalecommerce/internal/config"
	pg "github.com/fjod/scalecommerce/internal/grpc"
	"github.com/fjod/scalecommerce/internal/payment"
	"github.com/fjod/scalecommerce/pkg/logger"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New("payment-gateway", cfg.LogLevel)
	slog.SetDefault(log)

	server := pg.NewPaymentGatewayService(payment.NewSimulated(cfg.GatewayLatency), log)

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Error("failed to listen", "port", cfg.GRPCPort, "error", err)
		os.Exit(1)
	}

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	pg.RegisterPaymentGatewayServer(grpcServer, server)

	// Enable reflection for grpcurl/grpcui
	reflection.Register(grpcServer)

	go func() {
		log.Info("payment gateway listening", "port", cfg.GRPCPort, "latency", cfg.GatewayLatency)
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("failed to serve", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down payment gateway")
	grpcServer.GracefulStop()
	log.Info("payment gateway stopped")
}
