package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/common/logger"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/model"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/places"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/qualify"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/store"
)

// ErrPersist wraps a failure to save progress at the end of a tick. The job
// is marked failed when this happens.
var ErrPersist = errors.New("persist progress")

// Text search returns at most this many places per query.
const maxResultsPerQuery = 20

type Budget struct {
	MaxRequests   int `json:"max_requests"`
	MaxQueueItems int `json:"max_queue_items"`
}

type StopReason string

const (
	StopBudgetRequests StopReason = "budget_requests"
	StopBudgetItems    StopReason = "budget_items"
	StopQueueExhausted StopReason = "queue_exhausted"
	StopPaused         StopReason = "paused"
	StopNotRunnable    StopReason = "not_runnable"
	StopCancelled      StopReason = "cancelled"
)

// TickResult is the updated progress plus what this tick alone did.
type TickResult struct {
	JobID          int64          `json:"job_id,string"`
	Progress       model.Progress `json:"progress"`
	RequestsUsed   int            `json:"requests_used"`
	ItemsProcessed int            `json:"items_processed"`
	Discovered     int            `json:"discovered"`
	DetailsFetched int            `json:"details_fetched"`
	Upserted       int            `json:"upserted"`
	Skipped        int            `json:"skipped"`
	StopReason     StopReason     `json:"stop_reason"`
	Duration       time.Duration  `json:"duration_ns"`
}

// JobStore is the part of the job store a tick needs.
type JobStore interface {
	Get(ctx context.Context, id int64) (*model.Job, error)
	Update(ctx context.Context, id int64, upd store.JobUpdate) error
}

// Upserter writes a qualified place to both stores.
type Upserter interface {
	Upsert(ctx context.Context, jobID int64, destination string, categories []string, details *places.PlaceDetails) (*model.POI, error)
}

// Recorder receives tick telemetry. The zero Executor uses a no-op recorder.
type Recorder interface {
	ProviderCall(op, outcome string)
	Upserted(category string)
	TickCompleted(result *TickResult)
}

type noopRecorder struct{}

func (noopRecorder) ProviderCall(string, string) {}
func (noopRecorder) Upserted(string) {}
func (noopRecorder) TickCompleted(*TickResult) {}

// Executor runs ticks. It holds no per-job state; everything lives in the
// job store between calls.
type Executor struct {
	jobs     JobStore
	client   places.Client
	writer   Upserter
	rules    qualify.Rules
	catalog  Catalog
	recorder Recorder
	now      func() time.Time
}

type Option func(*Executor)

func WithRecorder(r Recorder) Option {
	return func(e *Executor) {
		if r != nil {
			e.recorder = r
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

func NewExecutor(jobs JobStore, client places.Client, writer Upserter, rules qualify.Rules, catalog Catalog, opts ...Option) *Executor {
	e := &Executor{
		jobs:     jobs,
		client:   client,
		writer:   writer,
		rules:    rules,
		catalog:  catalog,
		recorder: noopRecorder{},
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tick advances job jobID by at most budget and persists the result.
//
// Jobs that are paused (except on a rate limit, which clears by itself) or
// terminal are returned untouched. A persistence failure marks the job failed
// and returns an error wrapping ErrPersist together with the failed progress.
func (e *Executor) Tick(ctx context.Context, jobID int64, budget Budget) (*TickResult, error) {
	start := e.now()

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		JobID:     logger.Ptr(jobID),
		Component: "poi.engine.tick",
	})
	sc := logger.StartSpan(ctx, "engine.tick")
	defer sc.End()
	ctx = sc.Context()

	job, err := e.jobs.Get(ctx, jobID)
	if err != nil {
		sc.RecordError(err)
		return nil, fmt.Errorf("loading job %d: %w", jobID, err)
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{BatchID: logger.Ptr(job.Progress.Batch.ID)})

	if !job.Progress.State.AcceptsTicks() {
		slog.InfoContext(ctx, "job not runnable, tick skipped",
			"state", job.Progress.State,
			"reason", job.Progress.Reason)
		return &TickResult{JobID: jobID, Progress: job.Progress, StopReason: StopNotRunnable}, nil
	}

	progress := job.Progress.Clone()
	if progress.State == model.StatePausedRateLimit {
		slog.InfoContext(ctx, "resuming job paused on rate limit", "reason", progress.Reason)
		progress.MarkRunning(e.now())
	}

	st := &tickState{
		job:      job,
		progress: &progress,
		meter: &meter{
			client:   e.client,
			progress: &progress,
			recorder: e.recorder,
			limit:    budget.MaxRequests,
		},
	}

	stop := e.run(ctx, st, budget)

	if stop != StopPaused && progress.Exhausted() {
		progress.MarkCompleted(e.now())
		stop = StopQueueExhausted
	}
	progress.Touch(e.now())

	result := &TickResult{
		JobID:          jobID,
		Progress:       progress,
		RequestsUsed:   st.meter.used,
		ItemsProcessed: st.itemsProcessed,
		Discovered:     st.discovered,
		DetailsFetched: st.detailsFetched,
		Upserted:       st.upserted,
		Skipped:        st.skipped,
		StopReason:     stop,
	}

	// The write must land even when the caller gave up on the tick.
	persistCtx := context.WithoutCancel(ctx)
	if err := e.persist(persistCtx, jobID, &progress, nil); err != nil {
		sc.RecordError(err)
		result.Progress = e.failPersist(persistCtx, jobID, progress, err)
		result.Duration = e.now().Sub(start)
		e.recorder.TickCompleted(result)
		return result, fmt.Errorf("%w: %w", ErrPersist, err)
	}

	result.Duration = e.now().Sub(start)
	sc.SetAttributes(
		attribute.Int("tick.requests_used", result.RequestsUsed),
		attribute.Int("tick.items_processed", result.ItemsProcessed),
		attribute.String("tick.stop_reason", string(stop)),
		attribute.String("job.state", string(progress.State)),
	)
	e.recorder.TickCompleted(result)

	slog.InfoContext(ctx, "tick finished",
		"state", progress.State,
		"stop_reason", stop,
		"current_index", progress.CurrentIndex,
		"queue_len", len(progress.Queue),
		"requests_used", result.RequestsUsed,
		"requests_used_total", progress.RequestsUsedTotal,
		"items_processed", result.ItemsProcessed,
		"upserted", result.Upserted,
		"duration_ms", result.Duration.Milliseconds())

	return result, nil
}

// run is the tick loop. It returns why the loop stopped; completion is
// decided by the caller from the cursor.
func (e *Executor) run(ctx context.Context, st *tickState, budget Budget) StopReason {
	p := st.progress

	for {
		switch {
		case p.Exhausted():
			return StopQueueExhausted
		case st.meter.remaining() == 0:
			return StopBudgetRequests
		case st.itemsProcessed >= budget.MaxQueueItems:
			return StopBudgetItems
		}

		item := p.Current()
		if item.Status.IsTerminal() {
			p.Advance(e.now())
			continue
		}

		ictx := logger.WithLogFields(ctx, logger.LogFields{
			QueueIndex: logger.Ptr(p.CurrentIndex),
			Location:   logger.Ptr(item.Name),
		})
		isc := logger.StartSpan(ictx, "engine.item")
		out := e.processItem(isc.Context(), st)
		if out.Err != nil {
			isc.RecordError(out.Err)
		}
		isc.End()

		switch out.Verdict {
		case Advance:
			item.ClearCheckpoint()
			st.itemsProcessed++
			p.Advance(e.now())
		case Pause:
			item.ClearCheckpoint()
			e.pause(ictx, p, out)
			return StopPaused
		case Yield:
			if ctx.Err() != nil {
				slog.WarnContext(ictx, "tick cancelled mid-item", "error", ctx.Err())
				return StopCancelled
			}
			return StopBudgetRequests
		}
	}
}

func (e *Executor) pause(ctx context.Context, p *model.Progress, out Outcome) {
	if out.Quota == places.QuotaRateLimit {
		p.MarkPausedRateLimit(out.Reason, e.now())
	} else {
		p.MarkPausedBudget(out.Reason, e.now())
	}
	slog.WarnContext(ctx, "job paused on provider quota",
		"state", p.State,
		"reason", logger.Truncate(out.Reason, 300))
}

func (e *Executor) persist(ctx context.Context, jobID int64, p *model.Progress, errMsg *string) error {
	status := p.State
	return e.jobs.Update(ctx, jobID, store.JobUpdate{
		Status:   &status,
		Progress: p,
		Error:    errMsg,
	})
}

// failPersist marks the progress failed and makes one best-effort attempt to
// record that. The failed progress is returned either way.
func (e *Executor) failPersist(ctx context.Context, jobID int64, progress model.Progress, cause error) model.Progress {
	reason := fmt.Sprintf("%s: %v", ErrPersist, cause)
	progress.MarkFailed(reason, e.now())

	slog.ErrorContext(ctx, "failed to persist progress, marking job failed", "error", cause)

	if err := e.persist(ctx, jobID, &progress, &reason); err != nil {
		slog.ErrorContext(ctx, "failed to record job failure", "error", err)
	}
	return progress
}
