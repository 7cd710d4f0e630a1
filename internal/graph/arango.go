package graph

import (
	"context"
	"fmt"

	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/common/arangodb"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/model"
)

type ArangoStore struct {
	client arangodb.Client
}

func NewArangoStore(client arangodb.Client) *ArangoStore {
	return &ArangoStore{client: client}
}

func (s *ArangoStore) EnsureSchema(ctx context.Context) error {
	if err := s.client.EnsureDatabase(ctx); err != nil {
		return fmt.Errorf("arangodb database: %w", err)
	}
	if err := s.client.EnsureCollections(ctx); err != nil {
		return fmt.Errorf("arangodb collections: %w", err)
	}
	if err := s.client.EnsureGraph(ctx); err != nil {
		return fmt.Errorf("arangodb graph: %w", err)
	}
	return nil
}

func (s *ArangoStore) UpsertPOI(ctx context.Context, poi model.POI) error {
	return s.client.UpsertPOI(ctx, toDocument(poi))
}

func (s *ArangoStore) CountByDestination(ctx context.Context, slugs []string) ([]model.DestinationCount, error) {
	docs, err := s.client.CountByDestination(ctx, slugs)
	if err != nil {
		return nil, fmt.Errorf("arangodb count by destination: %w", err)
	}
	counts := make([]model.DestinationCount, 0, len(docs))
	for _, d := range docs {
		counts = append(counts, model.DestinationCount{Destination: d.Destination, Slug: d.Key, POIs: d.POIs})
	}
	return counts, nil
}

func (s *ArangoStore) Close(_ context.Context) error {
	return s.client.Close()
}

func toDocument(poi model.POI) arangodb.POIDocument {
	return arangodb.POIDocument{
		UID:             poi.UID(),
		Provider:        poi.Provider,
		ProviderPlaceID: poi.ProviderPlaceID,
		Name:            poi.Name,
		Address:         poi.Address,
		Lat:             poi.Location.Lat,
		Lng:             poi.Location.Lng,
		Rating:          poi.Rating,
		ReviewCount:     poi.ReviewCount,
		PriceTier:       poi.PriceTier,
		Website:         poi.Website,
		Phone:           poi.Phone,
		OpeningHours:    poi.OpeningHours,
		Categories:      poi.Categories,
		Destination:     poi.Destination,
		DestinationKey:  poi.DestinationSlug(),
	}
}
