package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"

	"github.com/rl1809/inventory-metafields/internal/adapter/handler"
	"github.com/rl1809/inventory-metafields/internal/app"
	"github.com/rl1809/inventory-metafields/internal/config"
	"github.com/rl1809/inventory-metafields/internal/core/service"
	"github.com/rl1809/inventory-metafields/internal/logging"
	"github.com/rl1809/inventory-metafields/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New(logging.Config{})
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	reconcileMetrics := metrics.NewPrometheus(registry, "")

	grpcHandler := handler.NewGRPCHandler(&logger)

	application, err := app.New(ctx, cfg, &logger, false,
		service.WithMetrics(reconcileMetrics),
		service.WithObserver(grpcHandler),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize")
	}

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	grpcHandler.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.GRPCAddr()).Msg("failed to listen")
	}

	go func() {
		logger.Info().Str("addr", cfg.GRPCAddr()).Msg("gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error().Err(err).Msg("gRPC server error")
		}
	}()

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(application.Reconciler, application.Runs, &logger)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           httpHandler.Routes(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr()).Str("shop", cfg.Shop).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown")
	}
	logger.Info().Msg("HTTP server stopped")

	grpcHandler.Shutdown()
	grpcServer.GracefulStop()
	logger.Info().Msg("gRPC server stopped")

	// Stop the in-flight reconciliation so it records its outcome
	if err := application.Reconciler.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("reconciler did not stop in time")
	}
	logger.Info().Msg("reconciler stopped")

	if err := application.Close(); err != nil {
		logger.Error().Err(err).Msg("failed to close connections")
	}
	logger.Info().Msg("connections closed")
}
