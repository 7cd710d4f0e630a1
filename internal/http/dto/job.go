package dto

import (
	"time"

	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/engine"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/model"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/service"
)

type LocationRequest struct {
	Name     string  `json:"name" binding:"required,min=1,max=255"`
	Kind     string  `json:"kind,omitempty" binding:"omitempty,oneof=city region"`
	RadiusKm float64 `json:"radius_km,omitempty" binding:"omitempty,gt=0"`
}

type StartJobRequest struct {
	Locations      []LocationRequest `json:"locations" binding:"required,min=1,dive"`
	Categories     []string          `json:"categories" binding:"required,min=1"`
	ResultCap      int               `json:"result_cap,omitempty" binding:"omitempty,min=1"`
	CityRadiusKm   float64           `json:"city_radius_km,omitempty" binding:"omitempty,gt=0"`
	RegionRadiusKm float64           `json:"region_radius_km,omitempty" binding:"omitempty,gt=0"`
}

func (r StartJobRequest) ToService() service.StartRequest {
	locations := make([]service.LocationInput, 0, len(r.Locations))
	for _, l := range r.Locations {
		locations = append(locations, service.LocationInput{
			Name:     l.Name,
			Kind:     model.LocationKind(l.Kind),
			RadiusKm: l.RadiusKm,
		})
	}
	return service.StartRequest{
		Locations:      locations,
		Categories:     r.Categories,
		ResultCap:      r.ResultCap,
		CityRadiusKm:   r.CityRadiusKm,
		RegionRadiusKm: r.RegionRadiusKm,
	}
}

// TickRequest is optional; zero fields fall back to the configured budget.
type TickRequest struct {
	MaxRequests   int `json:"max_requests" binding:"omitempty,min=1"`
	MaxQueueItems int `json:"max_queue_items" binding:"omitempty,min=1"`
}

type PauseRequest struct {
	Reason string `json:"reason,omitempty" binding:"omitempty,max=500"`
}

type JobResponse struct {
	ID        int64          `json:"id,string"`
	Status    model.State    `json:"status"`
	Params    model.Params   `json:"params"`
	Progress  model.Progress `json:"progress"`
	Summary   model.Summary  `json:"summary"`
	Error     *string        `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func ToJobResponse(job *model.Job) *JobResponse {
	return &JobResponse{
		ID:        job.ID,
		Status:    job.Status,
		Params:    job.Params,
		Progress:  job.Progress,
		Summary:   job.Progress.Summary(),
		Error:     job.Error,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
}

// JobListItem leaves out the queue, which can be large.
type JobListItem struct {
	ID                int64         `json:"id,string"`
	Status            model.State   `json:"status"`
	Reason            string        `json:"reason,omitempty"`
	Categories        []string      `json:"categories"`
	RequestsUsedTotal int64         `json:"requests_used_total"`
	CurrentIndex      int           `json:"current_index"`
	Summary           model.Summary `json:"summary"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

func ToJobList(jobs []model.Job) []JobListItem {
	out := make([]JobListItem, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, JobListItem{
			ID:                j.ID,
			Status:            j.Status,
			Reason:            j.Progress.Reason,
			Categories:        j.Params.Categories,
			RequestsUsedTotal: j.Progress.RequestsUsedTotal,
			CurrentIndex:      j.Progress.CurrentIndex,
			Summary:           j.Progress.Summary(),
			UpdatedAt:         j.UpdatedAt,
		})
	}
	return out
}

type TickResponse struct {
	JobID          int64             `json:"job_id,string"`
	Progress       model.Progress    `json:"progress"`
	RequestsUsed   int               `json:"requests_used"`
	ItemsProcessed int               `json:"items_processed"`
	Discovered     int               `json:"discovered"`
	DetailsFetched int               `json:"details_fetched"`
	Upserted       int               `json:"upserted"`
	Skipped        int               `json:"skipped"`
	StopReason     engine.StopReason `json:"stop_reason"`
	DurationMs     int64             `json:"duration_ms"`
}

func ToTickResponse(r *engine.TickResult) *TickResponse {
	return &TickResponse{
		JobID:          r.JobID,
		Progress:       r.Progress,
		RequestsUsed:   r.RequestsUsed,
		ItemsProcessed: r.ItemsProcessed,
		Discovered:     r.Discovered,
		DetailsFetched: r.DetailsFetched,
		Upserted:       r.Upserted,
		Skipped:        r.Skipped,
		StopReason:     r.StopReason,
		DurationMs:     r.Duration.Milliseconds(),
	}
}
