package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/common/logger"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/engine"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/model"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/service"
)

// runnableStates are the states a tick will do work in.
var runnableStates = []model.State{model.StateRunning, model.StatePausedRateLimit}

// JobTicker is the part of service.JobService the scheduler drives.
type JobTicker interface {
	List(ctx context.Context, states []model.State, limit int32) ([]model.Job, error)
	Tick(ctx context.Context, jobID int64, budget engine.Budget) (*engine.TickResult, error)
}

type Config struct {
	Schedule string
	// Budget is passed to every tick; zero fields use the service defaults.
	Budget    engine.Budget
	ListLimit int32
}

// RunSummary counts what one scheduler pass did.
type RunSummary struct {
	Jobs    int
	Ticked  int
	Busy    int
	Failed  int
	Stopped map[engine.StopReason]int
}

// Scheduler ticks every runnable job on a cron schedule. Jobs are ticked one
// after another; the job lock inside the service keeps other processes off
// a job that is being ticked here.
type Scheduler struct {
	jobs JobTicker
	cfg  Config
	cron *cron.Cron

	mu     sync.Mutex
	cancel context.CancelFunc
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func NewScheduler(jobs JobTicker, cfg Config) (*Scheduler, error) {
	if _, err := cronParser.Parse(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("parsing tick schedule %q: %w", cfg.Schedule, err)
	}
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = 100
	}

	log := cronLogger{}
	return &Scheduler{
		jobs: jobs,
		cfg:  cfg,
		cron: cron.New(
			cron.WithParser(cronParser),
			cron.WithLogger(log),
			cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
		),
	}, nil
}

// Start registers the pass and starts the cron loop. Passes run with ctx
// until Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	if _, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			slog.ErrorContext(ctx, "scheduler pass failed", "error", err)
		}
	}); err != nil {
		cancel()
		return fmt.Errorf("scheduling tick pass: %w", err)
	}

	s.cron.Start()
	slog.InfoContext(ctx, "tick scheduler started", "schedule", s.cfg.Schedule)
	return nil
}

// Stop stops scheduling, cancels a pass in flight and waits for it to return.
// A tick in flight still persists its progress.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	<-s.cron.Stop().Done()
}

// RunOnce ticks each runnable job once.
func (s *Scheduler) RunOnce(ctx context.Context) (RunSummary, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "poi.worker.scheduler"})
	summary := RunSummary{Stopped: map[engine.StopReason]int{}}

	jobs, err := s.jobs.List(ctx, runnableStates, s.cfg.ListLimit)
	if err != nil {
		return summary, fmt.Errorf("listing runnable jobs: %w", err)
	}
	summary.Jobs = len(jobs)

	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		jctx := logger.WithLogFields(ctx, logger.LogFields{JobID: logger.Ptr(job.ID)})

		result, err := s.jobs.Tick(jctx, job.ID, s.cfg.Budget)
		switch {
		case errors.Is(err, service.ErrJobBusy):
			summary.Busy++
			slog.DebugContext(jctx, "job busy, skipped this pass")
			continue
		case err != nil:
			summary.Failed++
			slog.ErrorContext(jctx, "scheduled tick failed", "error", err)
			continue
		}

		summary.Ticked++
		summary.Stopped[result.StopReason]++
	}

	if summary.Jobs > 0 {
		slog.InfoContext(ctx, "scheduler pass finished",
			"jobs", summary.Jobs,
			"ticked", summary.Ticked,
			"busy", summary.Busy,
			"failed", summary.Failed)
	}
	return summary, nil
}

// cronLogger routes cron's own logging to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
