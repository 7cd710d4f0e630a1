package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/common/logger"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/model"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/places"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/qualify"
)

// Verdict tells the tick loop what to do after a step.
type Verdict int

const (
	// Continue with the next step of the same item.
	Continue Verdict = iota
	// Advance past the current item; it reached done or failed.
	Advance
	// Pause the job on a quota signal. The item stays running and its
	// checkpoint is dropped, so a resumed job retries it from geocode.
	Pause
	// Yield ends the tick because the request budget ran out mid-item.
	// The item stays running and continues from its checkpoint next tick.
	Yield
)

func (v Verdict) String() string {
	switch v {
	case Continue:
		return "continue"
	case Advance:
		return "advance"
	case Pause:
		return "pause"
	case Yield:
		return "yield"
	}
	return fmt.Sprintf("verdict(%d)", int(v))
}

// Outcome is what a step returns to the loop.
type Outcome struct {
	Verdict Verdict
	Quota   places.QuotaKind // set with Pause
	Reason  string           // human-readable cause of a pause
	Err     error
}

// tickState is everything one tick mutates. Steps read and write it
// explicitly; nothing survives between ticks except what lands in progress,
// including the checkpoint on the current queue item.
type tickState struct {
	job      *model.Job
	progress *model.Progress
	meter    *meter

	itemsProcessed int
	discovered     int
	detailsFetched int
	upserted       int
	skipped        int
}

// classify maps a provider error to the loop's reaction. Non-quota errors
// come back as Continue with Err set; each step decides what that means.
func classify(ctx context.Context, step string, err error) Outcome {
	if errors.Is(err, ErrBudgetExhausted) {
		return Outcome{Verdict: Yield}
	}
	if ctx.Err() != nil {
		return Outcome{Verdict: Yield, Err: ctx.Err()}
	}
	if kind, ok := places.Classify(err); ok {
		return Outcome{
			Verdict: Pause,
			Quota:   kind,
			Reason:  fmt.Sprintf("%s during %s: %v", quotaLabel(kind), step, err),
			Err:     err,
		}
	}
	return Outcome{Verdict: Continue, Err: err}
}

func quotaLabel(kind places.QuotaKind) string {
	if kind == places.QuotaRateLimit {
		return "provider rate limit"
	}
	return "provider quota exhausted"
}

func (e *Executor) geocodeStep(ctx context.Context, st *tickState, item *model.QueueItem) Outcome {
	center, err := st.meter.Geocode(ctx, item.Name)
	if err == nil {
		item.Center = &center
		return Outcome{Verdict: Continue}
	}

	out := classify(ctx, "geocode", err)
	if out.Verdict != Continue {
		return out
	}

	item.Status = model.ItemFailed
	item.Error = fmt.Sprintf("geocode: %v", err)
	slog.WarnContext(ctx, "geocode failed, skipping location", "error", err)
	return Outcome{Verdict: Advance, Err: err}
}

// search is one text query of the discovery plan.
type search struct {
	category string
	query    string
}

// searchPlan lists every query discovery may issue for an item, category by
// category. item.SearchesDone indexes into it.
func (e *Executor) searchPlan(categories []string, location string) []search {
	var plan []search
	for _, category := range categories {
		for _, query := range e.catalog.Queries(category, location) {
			plan = append(plan, search{category: category, query: query})
		}
	}
	return plan
}

func (e *Executor) discoverStep(ctx context.Context, st *tickState, item *model.QueueItem) Outcome {
	if item.Discovered {
		return Outcome{Verdict: Continue}
	}

	perCap := st.job.Params.PerCategoryCap()
	index := st.progress.CurrentIndex
	plan := e.searchPlan(st.job.Params.Categories, item.Name)

	for item.SearchesDone < len(plan) {
		s := plan[item.SearchesDone]
		cctx := logger.WithLogFields(ctx, logger.LogFields{Category: logger.Ptr(s.category)})

		have := item.CandidateCount(s.category)
		if have >= perCap {
			item.SearchesDone++
			continue
		}

		results, err := st.meter.TextSearch(cctx, places.SearchRequest{
			Query:      s.query,
			Center:     *item.Center,
			RadiusKm:   item.RadiusKm,
			MaxResults: min(perCap-have, maxResultsPerQuery),
		})
		if err != nil {
			out := classify(cctx, "text_search", err)
			if out.Verdict != Continue {
				return out
			}
			slog.WarnContext(cctx, "text search failed, trying next query",
				"query", s.query,
				"error", err)
			item.SearchesDone++
			continue
		}
		item.SearchesDone++

		added := 0
		for _, r := range results {
			if have+added >= perCap {
				break
			}
			if addCandidate(item, r.ID, s.category) {
				added++
			}
		}

		st.progress.BumpCounters(index, s.category, model.Delta{Discovered: added}, e.now())
		st.discovered += added
	}

	item.Discovered = true
	slog.DebugContext(ctx, "discovery finished", "candidates", len(item.Candidates), "per_category_cap", perCap)
	return Outcome{Verdict: Continue}
}

// addCandidate records that category found placeID. It reports false when
// the category already had it.
func addCandidate(item *model.QueueItem, placeID, category string) bool {
	for i := range item.Candidates {
		c := &item.Candidates[i]
		if c.PlaceID != placeID {
			continue
		}
		if slices.Contains(c.Categories, category) {
			return false
		}
		c.Categories = append(c.Categories, category)
		return true
	}
	item.Candidates = append(item.Candidates, model.Candidate{PlaceID: placeID, Categories: []string{category}})
	return true
}

func (e *Executor) detailsStep(ctx context.Context, st *tickState, item *model.QueueItem) Outcome {
	index := st.progress.CurrentIndex
	limit := st.job.Params.ResultCap
	if limit <= 0 || limit > len(item.Candidates) {
		limit = len(item.Candidates)
	}

	for item.DetailsDone < limit {
		c := item.Candidates[item.DetailsDone]
		pctx := logger.WithLogFields(ctx, logger.LogFields{PlaceID: logger.Ptr(c.PlaceID)})

		details, err := st.meter.Details(pctx, c.PlaceID)
		if err != nil {
			out := classify(pctx, "details", err)
			if out.Verdict != Continue {
				return out
			}
			slog.WarnContext(pctx, "place details failed, skipping place", "error", err)
			item.DetailsDone++
			continue
		}
		item.DetailsDone++

		for _, category := range c.Categories {
			st.progress.BumpCounters(index, category, model.Delta{DetailsFetched: 1}, e.now())
		}
		st.detailsFetched++

		signals := qualify.Signals{Rating: details.Rating, ReviewCount: details.ReviewCount, PriceTier: details.PriceTier}
		if !e.rules.QualifiesAny(c.Categories, signals) {
			st.skipped++
			continue
		}

		if _, err := e.writer.Upsert(pctx, st.job.ID, item.Name, c.Categories, details); err != nil {
			item.Error = fmt.Sprintf("upsert %s: %v", c.PlaceID, err)
			slog.ErrorContext(pctx, "poi upsert failed", "error", err)
			continue
		}

		for _, category := range c.Categories {
			st.progress.BumpCounters(index, category, model.Delta{Upserted: 1}, e.now())
			e.recorder.Upserted(category)
		}
		st.upserted++
	}

	return Outcome{Verdict: Continue}
}

// processItem runs geocode, discover and details for the item under the
// cursor, each from the item's checkpoint, and marks it done when every
// step got through.
func (e *Executor) processItem(ctx context.Context, st *tickState) Outcome {
	item := st.progress.Current()
	if item.Center == nil {
		item.Error = ""
	}
	item.Status = model.ItemRunning
	st.progress.Touch(e.now())

	if item.Center == nil {
		if out := e.geocodeStep(ctx, st, item); out.Verdict != Continue {
			return out
		}
	}

	if out := e.discoverStep(ctx, st, item); out.Verdict != Continue {
		return out
	}

	if out := e.detailsStep(ctx, st, item); out.Verdict != Continue {
		return out
	}

	item.Status = model.ItemDone
	return Outcome{Verdict: Advance}
}
