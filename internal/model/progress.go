package model

import (
	"slices"
	"time"
)

// State is the lifecycle state of a collection job.
type State string

const (
	StateRunning         State = "running"
	StatePausedManual    State = "paused_manual"
	StatePausedBudget    State = "paused_budget"
	StatePausedRateLimit State = "paused_rate_limit"
	StateCompleted       State = "completed"
	StateFailed          State = "failed"
)

func (s State) Valid() bool {
	switch s {
	case StateRunning, StatePausedManual, StatePausedBudget, StatePausedRateLimit, StateCompleted, StateFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the job can never run again.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

func (s State) IsPaused() bool {
	return s == StatePausedManual || s == StatePausedBudget || s == StatePausedRateLimit
}

// AcceptsTicks reports whether a tick may do work in this state. Rate-limit
// pauses clear with time, so the next tick resumes them on its own; the other
// pauses need an explicit resume.
func (s State) AcceptsTicks() bool {
	return s == StateRunning || s == StatePausedRateLimit
}

type ItemStatus string

const (
	ItemPending ItemStatus = "pending"
	ItemRunning ItemStatus = "running"
	ItemDone    ItemStatus = "done"
	ItemFailed  ItemStatus = "failed"
	ItemSkipped ItemStatus = "skipped"
)

func (s ItemStatus) IsTerminal() bool {
	return s == ItemDone || s == ItemFailed || s == ItemSkipped
}

type LocationKind string

const (
	LocationCity   LocationKind = "city"
	LocationRegion LocationKind = "region"
)

func (k LocationKind) Valid() bool {
	return k == LocationCity || k == LocationRegion
}

type CategoryStats struct {
	Discovered     int `json:"discovered"`
	DetailsFetched int `json:"details_fetched"`
	Upserted       int `json:"upserted"`
}

// Delta is an additive counter change. Zero fields leave counters untouched.
type Delta struct {
	Discovered     int
	DetailsFetched int
	Upserted       int
}

type QueueItem struct {
	Name     string                   `json:"name"`
	Kind     LocationKind             `json:"kind"`
	RadiusKm float64                  `json:"radius_km"`
	Status   ItemStatus               `json:"status"`
	Error    string                   `json:"error,omitempty"`
	Stats    map[string]CategoryStats `json:"stats"`

	// Checkpoint of a running item. A tick that runs out of requests leaves
	// it behind and the next tick picks up where it stopped.
	Center       *LatLng     `json:"center,omitempty"`
	SearchesDone int         `json:"searches_done,omitempty"`
	Discovered   bool        `json:"discovered,omitempty"`
	Candidates   []Candidate `json:"candidates,omitempty"`
	DetailsDone  int         `json:"details_done,omitempty"`
}

// Candidate is a place found during discovery with every category that found it.
type Candidate struct {
	PlaceID    string   `json:"place_id"`
	Categories []string `json:"categories"`
}

// ClearCheckpoint drops the checkpoint so the next attempt begins at geocode.
func (q *QueueItem) ClearCheckpoint() {
	q.Center = nil
	q.SearchesDone = 0
	q.Discovered = false
	q.Candidates = nil
	q.DetailsDone = 0
}

// CandidateCount is how many candidates category contributed so far.
func (q *QueueItem) CandidateCount(category string) int {
	n := 0
	for _, c := range q.Candidates {
		if slices.Contains(c.Categories, category) {
			n++
		}
	}
	return n
}

// Batch holds cumulative per-category counters for one collection run.
type Batch struct {
	ID                       string         `json:"batch_id"`
	StartedAt                time.Time      `json:"started_at"`
	DiscoveredByCategory     map[string]int `json:"discovered_by_category"`
	DetailsFetchedByCategory map[string]int `json:"details_fetched_by_category"`
	UpsertedByCategory       map[string]int `json:"upserted_by_category"`
}

// Progress is the persisted, mutable state of a job. All methods are pure
// in-memory transitions; persistence is the job store's concern.
type Progress struct {
	State             State       `json:"state"`
	Reason            string      `json:"reason,omitempty"`
	RequestsUsedTotal int64       `json:"requests_used_total"`
	CurrentIndex      int         `json:"current_index"`
	Queue             []QueueItem `json:"queue"`
	Batch             Batch       `json:"batch"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// NewProgress starts a job over queue: every item pending, cursor at zero,
// counters empty.
func NewProgress(queue []QueueItem, batchID string, now time.Time) Progress {
	items := make([]QueueItem, len(queue))
	for i, item := range queue {
		items[i] = QueueItem{
			Name:     item.Name,
			Kind:     item.Kind,
			RadiusKm: item.RadiusKm,
			Status:   ItemPending,
			Stats:    map[string]CategoryStats{},
		}
	}

	return Progress{
		State:        StateRunning,
		CurrentIndex: 0,
		Queue:        items,
		Batch: Batch{
			ID:                       batchID,
			StartedAt:                now,
			DiscoveredByCategory:     map[string]int{},
			DetailsFetchedByCategory: map[string]int{},
			UpsertedByCategory:       map[string]int{},
		},
		UpdatedAt: now,
	}
}

func (p *Progress) MarkPausedManual(reason string, now time.Time) {
	p.setState(StatePausedManual, reason, now)
}

func (p *Progress) MarkPausedBudget(reason string, now time.Time) {
	p.setState(StatePausedBudget, reason, now)
}

func (p *Progress) MarkPausedRateLimit(reason string, now time.Time) {
	p.setState(StatePausedRateLimit, reason, now)
}

func (p *Progress) MarkFailed(reason string, now time.Time) {
	p.setState(StateFailed, reason, now)
}

func (p *Progress) MarkCompleted(now time.Time) {
	p.setState(StateCompleted, "", now)
}

// MarkRunning clears a pause. The cursor and queue are left as they were, so
// an item that was in flight is retried from the top by the next tick.
func (p *Progress) MarkRunning(now time.Time) {
	p.setState(StateRunning, "", now)
}

func (p *Progress) setState(s State, reason string, now time.Time) {
	p.State = s
	p.Reason = reason
	p.UpdatedAt = now
}

func (p *Progress) Touch(now time.Time) {
	p.UpdatedAt = now
}

// AddRequests records provider calls that were actually issued.
func (p *Progress) AddRequests(n int) {
	if n > 0 {
		p.RequestsUsedTotal += int64(n)
	}
}

// BumpCounters adds d to the item's stats for category and to the batch
// totals. Counters only ever grow.
func (p *Progress) BumpCounters(index int, category string, d Delta, now time.Time) {
	d = Delta{
		Discovered:     max(d.Discovered, 0),
		DetailsFetched: max(d.DetailsFetched, 0),
		Upserted:       max(d.Upserted, 0),
	}

	if index >= 0 && index < len(p.Queue) {
		item := &p.Queue[index]
		if item.Stats == nil {
			item.Stats = map[string]CategoryStats{}
		}
		s := item.Stats[category]
		s.Discovered += d.Discovered
		s.DetailsFetched += d.DetailsFetched
		s.Upserted += d.Upserted
		item.Stats[category] = s
	}

	p.Batch.DiscoveredByCategory = addCount(p.Batch.DiscoveredByCategory, category, d.Discovered)
	p.Batch.DetailsFetchedByCategory = addCount(p.Batch.DetailsFetchedByCategory, category, d.DetailsFetched)
	p.Batch.UpsertedByCategory = addCount(p.Batch.UpsertedByCategory, category, d.Upserted)
	p.UpdatedAt = now
}

func addCount(m map[string]int, key string, n int) map[string]int {
	if m == nil {
		m = map[string]int{}
	}
	if n > 0 {
		m[key] += n
	}
	return m
}

// Current returns the item under the cursor, or nil once the queue is exhausted.
func (p *Progress) Current() *QueueItem {
	if p.CurrentIndex < 0 || p.CurrentIndex >= len(p.Queue) {
		return nil
	}
	return &p.Queue[p.CurrentIndex]
}

// Advance moves the cursor forward by one, never past the queue length.
func (p *Progress) Advance(now time.Time) {
	if p.CurrentIndex < len(p.Queue) {
		p.CurrentIndex++
	}
	p.UpdatedAt = now
}

func (p *Progress) Exhausted() bool {
	return p.CurrentIndex >= len(p.Queue)
}

// Clone returns a deep copy so callers can mutate it without touching the original.
func (p Progress) Clone() Progress {
	out := p
	out.Queue = make([]QueueItem, len(p.Queue))
	for i, item := range p.Queue {
		item.Stats = cloneStats(item.Stats)
		if item.Center != nil {
			center := *item.Center
			item.Center = &center
		}
		if item.Candidates != nil {
			cands := make([]Candidate, len(item.Candidates))
			for j, c := range item.Candidates {
				cands[j] = Candidate{PlaceID: c.PlaceID, Categories: slices.Clone(c.Categories)}
			}
			item.Candidates = cands
		}
		out.Queue[i] = item
	}
	out.Batch.DiscoveredByCategory = cloneCounts(p.Batch.DiscoveredByCategory)
	out.Batch.DetailsFetchedByCategory = cloneCounts(p.Batch.DetailsFetchedByCategory)
	out.Batch.UpsertedByCategory = cloneCounts(p.Batch.UpsertedByCategory)
	return out
}

func cloneStats(m map[string]CategoryStats) map[string]CategoryStats {
	out := make(map[string]CategoryStats, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type Summary struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Running int `json:"running"`
	Done    int `json:"done"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

func (p Progress) Summary() Summary {
	s := Summary{Total: len(p.Queue)}
	for _, item := range p.Queue {
		switch item.Status {
		case ItemPending:
			s.Pending++
		case ItemRunning:
			s.Running++
		case ItemDone:
			s.Done++
		case ItemFailed:
			s.Failed++
		case ItemSkipped:
			s.Skipped++
		}
	}
	return s
}
