package places

import (
	"context"
	"errors"

	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/model"
)

// ErrNoResults is returned by Geocode when the provider cannot resolve the text.
var ErrNoResults = errors.New("no results")

// Client is the narrow surface the tick executor uses to reach the provider.
// Every method issues exactly one logical provider call.
type Client interface {
	Geocode(ctx context.Context, query string) (model.LatLng, error)
	TextSearch(ctx context.Context, req SearchRequest) ([]PlaceSummary, error)
	Details(ctx context.Context, placeID string) (*PlaceDetails, error)
}

type SearchRequest struct {
	Query      string
	Center     model.LatLng
	RadiusKm   float64
	MaxResults int
}

type PlaceSummary struct {
	ID          string
	Name        string
	Location    model.LatLng
	Rating      *float64
	ReviewCount *int
	PriceTier   *int
}

type PlaceDetails struct {
	ID           string
	Name         string
	Address      string
	Location     model.LatLng
	Rating       *float64
	ReviewCount  *int
	PriceTier    *int
	Website      *string
	Phone        *string
	OpeningHours []string
}
