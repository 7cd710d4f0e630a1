package engine

import (
	"context"
	"errors"

	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/model"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/places"
)

// ErrBudgetExhausted is returned by the meter instead of issuing a call once
// the tick's request budget is spent.
var ErrBudgetExhausted = errors.New("tick request budget exhausted")

// meter wraps the provider client so that every issued request is counted
// against the tick budget and the job's lifetime total, and no request is
// issued past the budget. Transport retries are requests too: the client
// asks the meter before each one.
type meter struct {
	client   places.Client
	progress *model.Progress
	recorder Recorder
	limit    int
	used     int
}

func (m *meter) remaining() int {
	return max(m.limit-m.used, 0)
}

func (m *meter) take() error {
	if m.used >= m.limit {
		return ErrBudgetExhausted
	}
	m.used++
	m.progress.AddRequests(1)
	return nil
}

func (m *meter) gated(ctx context.Context) context.Context {
	return places.WithRetryGate(ctx, m.take)
}

func (m *meter) observe(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if _, ok := places.Classify(err); ok {
			outcome = "quota"
		}
	}
	m.recorder.ProviderCall(op, outcome)
}

func (m *meter) Geocode(ctx context.Context, query string) (model.LatLng, error) {
	if err := m.take(); err != nil {
		return model.LatLng{}, err
	}
	loc, err := m.client.Geocode(m.gated(ctx), query)
	m.observe("geocode", err)
	return loc, err
}

func (m *meter) TextSearch(ctx context.Context, req places.SearchRequest) ([]places.PlaceSummary, error) {
	if err := m.take(); err != nil {
		return nil, err
	}
	res, err := m.client.TextSearch(m.gated(ctx), req)
	m.observe("text_search", err)
	return res, err
}

func (m *meter) Details(ctx context.Context, placeID string) (*places.PlaceDetails, error) {
	if err := m.take(); err != nil {
		return nil, err
	}
	d, err := m.client.Details(m.gated(ctx), placeID)
	m.observe("details", err)
	return d, err
}
