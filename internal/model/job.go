package model

import "time"

// Params are fixed at job start and shape every tick.
type Params struct {
	Categories     []string `json:"categories"`
	ResultCap      int      `json:"result_cap"` // per location, across all categories
	CityRadiusKm   float64  `json:"city_radius_km"`
	RegionRadiusKm float64  `json:"region_radius_km"`
}

// PerCategoryCap is ceil(ResultCap / len(Categories)).
func (p Params) PerCategoryCap() int {
	n := len(p.Categories)
	if n == 0 || p.ResultCap <= 0 {
		return 0
	}
	return (p.ResultCap + n - 1) / n
}

// RadiusFor returns the search radius used for a location of the given kind.
func (p Params) RadiusFor(kind LocationKind) float64 {
	if kind == LocationRegion {
		return p.RegionRadiusKm
	}
	return p.CityRadiusKm
}

type Job struct {
	ID        int64     `json:"id"`
	Status    State     `json:"status"` // mirrors Progress.State
	Params    Params    `json:"params"`
	Progress  Progress  `json:"progress"`
	Error     *string   `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
