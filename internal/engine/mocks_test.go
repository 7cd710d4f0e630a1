package engine_test

import (
	"context"
	"fmt"

	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/engine"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/model"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/places"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/store"
)

// memoryJobStore is a last-write-wins job store that hands out copies.
type memoryJobStore struct {
	jobs      map[int64]*model.Job
	updates   int
	updateErr func(attempt int) error
}

func newMemoryJobStore(jobs ...*model.Job) *memoryJobStore {
	s := &memoryJobStore{jobs: map[int64]*model.Job{}}
	for _, j := range jobs {
		s.jobs[j.ID] = j
	}
	return s
}

func (s *memoryJobStore) Get(_ context.Context, id int64) (*model.Job, error) {
	j, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *j
	cp.Progress = j.Progress.Clone()
	return &cp, nil
}

func (s *memoryJobStore) Update(_ context.Context, id int64, upd store.JobUpdate) error {
	s.updates++
	if s.updateErr != nil {
		if err := s.updateErr(s.updates); err != nil {
			return err
		}
	}
	j, ok := s.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	if upd.Status != nil {
		j.Status = *upd.Status
	}
	if upd.Progress != nil {
		j.Progress = upd.Progress.Clone()
	}
	if upd.Params != nil {
		j.Params = *upd.Params
	}
	if upd.Error != nil {
		msg := *upd.Error
		j.Error = &msg
	}
	return nil
}

// mockClient records every provider call in order.
type mockClient struct {
	calls        []string
	geocodeFn    func(ctx context.Context, query string) (model.LatLng, error)
	textSearchFn func(ctx context.Context, req places.SearchRequest) ([]places.PlaceSummary, error)
	detailsFn    func(ctx context.Context, placeID string) (*places.PlaceDetails, error)
}

func (m *mockClient) Geocode(ctx context.Context, query string) (model.LatLng, error) {
	m.calls = append(m.calls, "geocode:"+query)
	if m.geocodeFn != nil {
		return m.geocodeFn(ctx, query)
	}
	return model.LatLng{Lat: 43.7, Lng: 7.4}, nil
}

func (m *mockClient) TextSearch(ctx context.Context, req places.SearchRequest) ([]places.PlaceSummary, error) {
	m.calls = append(m.calls, "search:"+req.Query)
	if m.textSearchFn != nil {
		return m.textSearchFn(ctx, req)
	}
	return nil, nil
}

func (m *mockClient) Details(ctx context.Context, placeID string) (*places.PlaceDetails, error) {
	m.calls = append(m.calls, "details:"+placeID)
	if m.detailsFn != nil {
		return m.detailsFn(ctx, placeID)
	}
	return &places.PlaceDetails{ID: placeID, Name: placeID}, nil
}

type upsertCall struct {
	jobID       int64
	destination string
	categories  []string
	placeID     string
}

type mockWriter struct {
	calls    []upsertCall
	upsertFn func(placeID string) error
}

func (m *mockWriter) Upsert(_ context.Context, jobID int64, destination string, categories []string, d *places.PlaceDetails) (*model.POI, error) {
	m.calls = append(m.calls, upsertCall{jobID: jobID, destination: destination, categories: categories, placeID: d.ID})
	if m.upsertFn != nil {
		if err := m.upsertFn(d.ID); err != nil {
			return nil, err
		}
	}
	return &model.POI{ProviderPlaceID: d.ID}, nil
}

type mockRecorder struct {
	providerCalls map[string]int
	upserted      map[string]int
	ticks         int
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{providerCalls: map[string]int{}, upserted: map[string]int{}}
}

func (r *mockRecorder) ProviderCall(op, outcome string) {
	r.providerCalls[fmt.Sprintf("%s/%s", op, outcome)]++
}

func (r *mockRecorder) Upserted(category string) { r.upserted[category]++ }

func (r *mockRecorder) TickCompleted(*engine.TickResult) { r.ticks++ }
