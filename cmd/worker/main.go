package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/common/logger"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/common/otel"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/core/config"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/app"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/worker"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)
	slog.InfoContext(ctx, "poi worker starting",
		"env", cfg.Env,
		"schedule", cfg.Tick.Schedule,
		"max_requests", cfg.Tick.MaxRequests,
		"max_queue_items", cfg.Tick.MaxQueueItems)

	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to initialize", "error", err)
		os.Exit(1)
	}

	scheduler, err := worker.NewScheduler(a.Services.Jobs(), worker.Config{
		Schedule:  cfg.Tick.Schedule,
		ListLimit: cfg.JobsLimit,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create scheduler", "error", err)
		os.Exit(1)
	}

	if err := scheduler.Start(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to start scheduler", "error", err)
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		scheduler.Stop()
		close(stopped)
	}()

	select {
	case <-shutdownCtx.Done():
		slog.WarnContext(ctx, "shutdown timeout exceeded")
	case <-stopped:
	}

	a.Close(shutdownCtx)

	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
	}

	slog.InfoContext(ctx, "worker shutdown complete")
}
