package store

import (
	"context"
	"errors"

	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// JobUpdate carries the fields to change; nil fields are left untouched.
// Writes are last-write-wins.
type JobUpdate struct {
	Status   *model.State
	Params   *model.Params
	Progress *model.Progress
	Error    *string
}

// JobStore defines the contract for collection job persistence
type JobStore interface {
	Create(ctx context.Context, job *model.Job) error
	Get(ctx context.Context, id int64) (*model.Job, error)
	Update(ctx context.Context, id int64, upd JobUpdate) error
	// ListByState returns jobs in any of states, least recently updated first.
	// An empty states slice lists every job.
	ListByState(ctx context.Context, states []model.State, limit int32) ([]model.Job, error)
}

// POIStore defines the contract for the relational side of the POI upsert
type POIStore interface {
	// Upsert inserts or merges a POI keyed by (provider, provider_place_id)
	// and returns the id of the stored row, which is the existing id on conflict.
	Upsert(ctx context.Context, poi *model.POI) (int64, error)
	LinkJob(ctx context.Context, jobID, poiID int64, categories []string) error
	JobStats(ctx context.Context, jobID int64) (model.JobPOIStats, error)
}
