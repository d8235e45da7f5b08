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

	"github.com/DanielPopoola/ficmart-settlement/internal/application"
	"github.com/DanielPopoola/ficmart-settlement/internal/application/services"
	"github.com/DanielPopoola/ficmart-settlement/internal/clock"
	"github.com/DanielPopoola/ficmart-settlement/internal/config"
	"github.com/DanielPopoola/ficmart-settlement/internal/infrastructure/cache"
	"github.com/DanielPopoola/ficmart-settlement/internal/infrastructure/gateway"
	"github.com/DanielPopoola/ficmart-settlement/internal/infrastructure/persistence/postgres"
	"github.com/DanielPopoola/ficmart-settlement/internal/interfaces/rest/handlers"
	"github.com/DanielPopoola/ficmart-settlement/internal/interfaces/rest/middleware"
	"github.com/DanielPopoola/ficmart-settlement/internal/interfaces/rest/router"
	"github.com/DanielPopoola/ficmart-settlement/internal/observability"
	"github.com/DanielPopoola/ficmart-settlement/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting settlement service",
		"port", cfg.Server.Port,
		"log_level", cfg.Logger.Level,
		"sweep_batch_size", cfg.Sweep.BatchSize,
		"sweep_interval", cfg.Sweep.Interval,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("settlement service stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("server exited")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			return err
		}
	}

	telemetry, err := observability.NewProvider(ctx, cfg.Telemetry, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Warn("failed to flush metrics", "error", err)
		}
	}()

	metrics, err := observability.NewMetrics(telemetry.Meter())
	if err != nil {
		return err
	}

	if cfg.Gateway.SecretKey == "" {
		logger.Warn("payment gateway secret key is not set, captures will fail until it is configured")
	}

	orderRepo := postgres.NewOrderRepository(db)
	gatewayClient := gateway.NewRetryingClient(gateway.NewClient(cfg.Gateway), cfg.Retry, logger)

	var replay application.DeliveryReplayGuard
	if cfg.Redis.Enabled() {
		guard := cache.NewReplayGuard(cfg.Redis)
		defer guard.Close()

		if err := guard.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, delivery replays fall back to the store", "addr", cfg.Redis.Addr, "error", err)
		}
		replay = guard
	}

	clk := clock.NewSystem()

	sweepService := services.NewSweepService(orderRepo, gatewayClient, metrics, cfg.Sweep, logger)
	deliveryService := services.NewDeliveryService(orderRepo, gatewayClient, replay, metrics, logger)
	disputeService := services.NewDisputeService(orderRepo, logger)
	queryService := services.NewQueryService(orderRepo)

	h := handlers.NewHandlers(
		sweepService,
		deliveryService,
		disputeService,
		queryService,
		db,
		clk,
		logger,
	)

	limiter := middleware.NewRateLimiter(cfg.RateLimit)
	go limiter.Run(ctx)

	handler, err := router.New(h, cfg, limiter, logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	if cfg.Sweep.Interval > 0 {
		captureWorker := worker.NewCaptureWorker(sweepService, clk, cfg.Sweep.Interval, logger)
		go captureWorker.Start(ctx)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	return nil
}
