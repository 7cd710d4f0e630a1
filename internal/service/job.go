package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/common/id"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/common/logger"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/engine"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/model"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/store"
)

type JobService interface {
	Start(ctx context.Context, req StartRequest) (*model.Job, error)
	Tick(ctx context.Context, jobID int64, budget engine.Budget) (*engine.TickResult, error)
	Pause(ctx context.Context, jobID int64, reason string) (*model.Job, error)
	Resume(ctx context.Context, jobID int64) (*model.Job, error)
	Get(ctx context.Context, jobID int64) (*model.Job, error)
	List(ctx context.Context, states []model.State, limit int32) ([]model.Job, error)
	Stats(ctx context.Context, jobID int64) (*JobStats, error)
}

// Ticker runs one tick of a job.
type Ticker interface {
	Tick(ctx context.Context, jobID int64, budget engine.Budget) (*engine.TickResult, error)
}

// DestinationCounter reads per-destination POI counts from the graph store.
type DestinationCounter interface {
	CountByDestination(ctx context.Context, slugs []string) ([]model.DestinationCount, error)
}

// Hooks receives job lifecycle events outside ticks. Ticks report through
// the executor's recorder.
type Hooks interface {
	JobStarted()
	JobTransition(state string)
}

type noopHooks struct{}

func (noopHooks) JobStarted()          {}
func (noopHooks) JobTransition(string) {}

// JobStats is the read-only projection served to operators.
type JobStats struct {
	JobID             int64             `json:"job_id,string"`
	State             model.State       `json:"state"`
	Reason            string            `json:"reason,omitempty"`
	RequestsUsedTotal int64             `json:"requests_used_total"`
	CurrentIndex      int               `json:"current_index"`
	Items             model.Summary     `json:"items"`
	Batch             model.Batch       `json:"batch"`
	POIs              model.JobPOIStats `json:"pois"`
	// Graph counts every POI node under the job's destinations, including
	// nodes written by other jobs.
	Graph []model.DestinationCount `json:"graph,omitempty"`
}

type JobServiceConfig struct {
	DefaultBudget engine.Budget
	LockTTL       time.Duration
	// Categories reports whether a category has search queries.
	Categories func(string) bool
	// QueriesPerItem is the number of text searches one queue item needs.
	// Used only to log when items will span several ticks.
	QueriesPerItem func(categories []string) int
}

type jobService struct {
	jobs   store.JobStore
	pois   store.POIStore
	graph  DestinationCounter
	ticker Ticker
	locker Locker
	hooks  Hooks
	cfg    JobServiceConfig
	now    func() time.Time
}

func NewJobService(jobs store.JobStore, pois store.POIStore, graph DestinationCounter, ticker Ticker, locker Locker, hooks Hooks, cfg JobServiceConfig) JobService {
	if locker == nil {
		locker = noopLocker{}
	}
	if hooks == nil {
		hooks = noopHooks{}
	}
	if cfg.Categories == nil {
		cfg.Categories = func(string) bool { return true }
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Minute
	}
	return &jobService{
		jobs:   jobs,
		pois:   pois,
		graph:  graph,
		ticker: ticker,
		locker: locker,
		hooks:  hooks,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *jobService) Start(ctx context.Context, req StartRequest) (*model.Job, error) {
	params, queue, err := req.normalize(s.cfg.Categories)
	if err != nil {
		return nil, err
	}

	now := s.now()
	progress := model.NewProgress(queue, id.NewBatchID(), now)
	job := &model.Job{
		ID:       id.New(),
		Status:   progress.State,
		Params:   params,
		Progress: progress,
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}
	s.hooks.JobStarted()

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		JobID:   logger.Ptr(job.ID),
		BatchID: logger.Ptr(progress.Batch.ID),
	})
	slog.InfoContext(ctx, "collection job started",
		"locations", len(queue),
		"categories", strings.Join(params.Categories, ","),
		"result_cap", params.ResultCap)
	s.logItemCost(ctx, params, s.cfg.DefaultBudget)

	return job, nil
}

func (s *jobService) Tick(ctx context.Context, jobID int64, budget engine.Budget) (*engine.TickResult, error) {
	if budget.MaxRequests < 0 || budget.MaxQueueItems < 0 {
		return nil, fmt.Errorf("%w: budget must not be negative", ErrInvalidRequest)
	}
	if budget.MaxRequests == 0 {
		budget.MaxRequests = s.cfg.DefaultBudget.MaxRequests
	}
	if budget.MaxQueueItems == 0 {
		budget.MaxQueueItems = s.cfg.DefaultBudget.MaxQueueItems
	}

	var result *engine.TickResult
	err := s.withLock(ctx, jobID, func() error {
		var err error
		result, err = s.ticker.Tick(ctx, jobID, budget)
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		// A persistence failure still carries the failed progress.
		return result, err
	}
	return result, nil
}

// Pause sets paused_manual. Pausing an already paused job replaces the
// reason; terminal jobs cannot be paused.
func (s *jobService) Pause(ctx context.Context, jobID int64, reason string) (*model.Job, error) {
	if strings.TrimSpace(reason) == "" {
		reason = "paused by operator"
	}
	return s.transition(ctx, jobID, func(p *model.Progress) (bool, error) {
		if p.State.IsTerminal() {
			return false, fmt.Errorf("%w: cannot pause a %s job", ErrInvalidTransition, p.State)
		}
		if p.State == model.StatePausedManual && p.Reason == reason {
			return false, nil
		}
		p.MarkPausedManual(reason, s.now())
		return true, nil
	})
}

// Resume clears any pause. The cursor and the in-flight item's checkpoint are
// untouched; a quota pause already dropped that checkpoint, so such an item
// restarts from geocode. Resuming a running job is a no-op.
func (s *jobService) Resume(ctx context.Context, jobID int64) (*model.Job, error) {
	return s.transition(ctx, jobID, func(p *model.Progress) (bool, error) {
		switch {
		case p.State.IsTerminal():
			return false, fmt.Errorf("%w: cannot resume a %s job", ErrInvalidTransition, p.State)
		case p.State == model.StateRunning:
			return false, nil
		}
		p.MarkRunning(s.now())
		return true, nil
	})
}

func (s *jobService) transition(ctx context.Context, jobID int64, apply func(p *model.Progress) (bool, error)) (*model.Job, error) {
	var job *model.Job
	err := s.withLock(ctx, jobID, func() error {
		var err error
		job, err = s.jobs.Get(ctx, jobID)
		if err != nil {
			return err
		}

		changed, err := apply(&job.Progress)
		if err != nil || !changed {
			return err
		}

		job.Status = job.Progress.State
		if err := s.jobs.Update(ctx, jobID, store.JobUpdate{
			Status:   &job.Status,
			Progress: &job.Progress,
		}); err != nil {
			return fmt.Errorf("updating job: %w", err)
		}
		job.UpdatedAt = job.Progress.UpdatedAt
		s.hooks.JobTransition(string(job.Status))

		lctx := logger.WithLogFields(ctx, logger.LogFields{JobID: logger.Ptr(jobID)})
		slog.InfoContext(lctx, "job state changed",
			"state", job.Status,
			"reason", job.Progress.Reason,
			"current_index", job.Progress.CurrentIndex)
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

func (s *jobService) Get(ctx context.Context, jobID int64) (*model.Job, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("getting job: %w", err)
	}
	return job, nil
}

func (s *jobService) List(ctx context.Context, states []model.State, limit int32) ([]model.Job, error) {
	for _, st := range states {
		if !st.Valid() {
			return nil, fmt.Errorf("%w: unknown state %q", ErrInvalidRequest, st)
		}
	}
	if limit <= 0 {
		limit = 100
	}
	jobs, err := s.jobs.ListByState(ctx, states, limit)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	return jobs, nil
}

func (s *jobService) Stats(ctx context.Context, jobID int64) (*JobStats, error) {
	job, err := s.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	pois, err := s.pois.JobStats(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("counting job pois: %w", err)
	}

	p := job.Progress
	stats := &JobStats{
		JobID:             job.ID,
		State:             p.State,
		Reason:            p.Reason,
		RequestsUsedTotal: p.RequestsUsedTotal,
		CurrentIndex:      p.CurrentIndex,
		Items:             p.Summary(),
		Batch:             p.Batch,
		POIs:              pois,
	}

	if s.graph != nil {
		stats.Graph, err = s.graph.CountByDestination(ctx, destinationSlugs(p.Queue))
		if err != nil {
			return nil, fmt.Errorf("counting graph destinations: %w", err)
		}
	}
	return stats, nil
}

func destinationSlugs(queue []model.QueueItem) []string {
	slugs := make([]string, 0, len(queue))
	for _, item := range queue {
		slug := model.DestinationSlug(item.Name)
		if !slices.Contains(slugs, slug) {
			slugs = append(slugs, slug)
		}
	}
	return slugs
}

func (s *jobService) withLock(ctx context.Context, jobID int64, fn func() error) error {
	release, ok, err := s.locker.Acquire(ctx, jobLockKey(jobID), s.cfg.LockTTL)
	if err != nil {
		return fmt.Errorf("acquiring job lock: %w", err)
	}
	if !ok {
		return ErrJobBusy
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			slog.WarnContext(ctx, "failed to release job lock", "job_id", jobID, "error", err)
		}
	}()
	return fn()
}

// logItemCost notes when the default tick budget is below the worst-case
// cost of one queue item. Such items span several ticks.
func (s *jobService) logItemCost(ctx context.Context, params model.Params, budget engine.Budget) {
	if s.cfg.QueriesPerItem == nil || budget.MaxRequests <= 0 {
		return
	}
	need := 1 + s.cfg.QueriesPerItem(params.Categories) + params.ResultCap
	if budget.MaxRequests < need {
		slog.InfoContext(ctx, "queue items will span several ticks",
			"max_requests", budget.MaxRequests,
			"worst_case_requests_per_item", need)
	}
}
