// Command tick runs a single tick of one collection job and prints the result
// as JSON. It is meant for hosts that invoke a process per tick on their own
// schedule, such as serverless cron.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/common/logger"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/common/otel"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/core/config"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/app"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/engine"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/service"
)

func main() {
	os.Exit(run())
}

func run() int {
	jobID := flag.Int64("job", 0, "id of the job to tick")
	maxRequests := flag.Int("max-requests", 0, "provider request budget (0 uses TICK_MAX_REQUESTS)")
	maxItems := flag.Int("max-items", 0, "queue item budget (0 uses TICK_MAX_QUEUE_ITEMS)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *jobID == 0 {
		slog.ErrorContext(ctx, "-job is required")
		return 2
	}

	cfg, err := config.Load(config.ServiceTypeTick)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		return 1
	}

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		return 1
	}
	defer telemetry.Shutdown(context.WithoutCancel(ctx)) //nolint:errcheck

	logger.Setup(cfg)

	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to initialize", "error", err)
		return 1
	}
	defer a.Close(context.WithoutCancel(ctx))

	result, err := a.Services.Jobs().Tick(ctx, *jobID, engine.Budget{
		MaxRequests:   *maxRequests,
		MaxQueueItems: *maxItems,
	})
	if result != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(result); encErr != nil {
			slog.ErrorContext(ctx, "failed to write result", "error", encErr)
		}
	}
	if err != nil {
		slog.ErrorContext(ctx, "tick failed", "job_id", *jobID, "error", err)
		if errors.Is(err, service.ErrJobBusy) {
			return 3
		}
		return 1
	}
	return 0
}
