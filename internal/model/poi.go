package model

import (
	"time"

	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/common"
)

const ProviderGoogle = "google"

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// POI is a normalized place ready to be written to both stores.
type POI struct {
	ID              int64     `json:"id"`
	Provider        string    `json:"provider"`
	ProviderPlaceID string    `json:"provider_place_id"`
	Name            string    `json:"name"`
	Address         string    `json:"address,omitempty"`
	Location        LatLng    `json:"location"`
	Rating          *float64  `json:"rating,omitempty"`
	ReviewCount     *int      `json:"review_count,omitempty"`
	PriceTier       *int      `json:"price_tier,omitempty"`
	Website         *string   `json:"website,omitempty"`
	Phone           *string   `json:"phone,omitempty"`
	OpeningHours    []string  `json:"opening_hours,omitempty"`
	Categories      []string  `json:"categories"`
	Destination     string    `json:"destination"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// UID is the graph node identity, "provider:place_id".
func (p POI) UID() string {
	return p.Provider + ":" + p.ProviderPlaceID
}

// DestinationSlug keys the destination node, so "Monaco" and " monaco"
// land on the same node in either graph backend.
func (p POI) DestinationSlug() string {
	return DestinationSlug(p.Destination)
}

func DestinationSlug(name string) string {
	slug, _ := common.Slugify(name, "unknown") // fallback never empties
	return slug
}

// DestinationCount is the number of POI nodes linked to one destination
// node in the graph store.
type DestinationCount struct {
	Destination string `json:"destination"`
	Slug        string `json:"slug"`
	POIs        int64  `json:"pois"`
}

// JobPOIStats aggregates the POIs linked to one job in the relational store.
type JobPOIStats struct {
	Total      int64            `json:"total"`
	ByCategory map[string]int64 `json:"by_category"`
}
