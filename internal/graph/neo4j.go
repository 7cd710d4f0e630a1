package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v6/neo4j"

	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/core/config"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/model"
)

type cypherRunner func(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)

type Neo4jStore struct {
	driver neo4j.Driver
	run    cypherRunner
}

func NewNeo4jStore(ctx context.Context, cfg config.Neo4jConfig) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriver(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}

	var options []neo4j.ExecuteQueryConfigurationOption
	if cfg.Database != "" {
		options = append(options, neo4j.ExecuteQueryWithDatabase(cfg.Database))
	}

	s := &Neo4jStore{driver: driver}
	s.run = func(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
		res, err := neo4j.ExecuteQuery(ctx, driver, query, params, neo4j.EagerResultTransformer, options...)
		if err != nil {
			return nil, err
		}
		rows := make([]map[string]any, 0, len(res.Records))
		for _, record := range res.Records {
			rows = append(rows, record.AsMap())
		}
		return rows, nil
	}
	return s, nil
}

var neo4jSchema = []string{
	`CREATE CONSTRAINT poi_uid IF NOT EXISTS FOR (p:POI) REQUIRE p.poi_uid IS UNIQUE`,
	`CREATE CONSTRAINT destination_slug IF NOT EXISTS FOR (d:Destination) REQUIRE d.slug IS UNIQUE`,
	`CREATE INDEX poi_destination IF NOT EXISTS FOR (p:POI) ON (p.destination)`,
}

func (s *Neo4jStore) EnsureSchema(ctx context.Context) error {
	for _, q := range neo4jSchema {
		if _, err := s.run(ctx, q, nil); err != nil {
			return fmt.Errorf("neo4j schema: %w", err)
		}
	}
	return nil
}

// Curated fields (name, address, website, phone) keep what is already on
// the node; provider metrics refresh when the provider reports them.
const upsertPOICypher = `
MERGE (p:POI {poi_uid: $uid})
ON CREATE SET
  p.provider = $provider,
  p.provider_place_id = $place_id,
  p.name = $name,
  p.address = $address,
  p.website = $website,
  p.phone = $phone,
  p.categories = $categories,
  p.destination = $destination,
  p.created_at = datetime()
ON MATCH SET
  p.name = coalesce(p.name, $name),
  p.address = coalesce(p.address, $address),
  p.website = coalesce(p.website, $website),
  p.phone = coalesce(p.phone, $phone),
  p.categories = reduce(acc = coalesce(p.categories, []), c IN $categories |
    CASE WHEN c IN acc THEN acc ELSE acc + c END)
SET
  p.lat = $lat,
  p.lng = $lng,
  p.rating = coalesce($rating, p.rating),
  p.review_count = coalesce($review_count, p.review_count),
  p.price_tier = coalesce($price_tier, p.price_tier),
  p.opening_hours = coalesce($opening_hours, p.opening_hours),
  p.updated_at = datetime()
MERGE (d:Destination {slug: $destination_slug})
ON CREATE SET d.name = $destination
MERGE (p)-[:LOCATED_IN]->(d)
`

func (s *Neo4jStore) UpsertPOI(ctx context.Context, poi model.POI) error {
	if _, err := s.run(ctx, upsertPOICypher, poiParams(poi)); err != nil {
		return fmt.Errorf("neo4j upsert %s: %w", poi.UID(), err)
	}
	slog.DebugContext(ctx, "neo4j poi upserted", "uid", poi.UID())
	return nil
}

const countByDestinationCypher = `
MATCH (d:Destination)
WHERE d.slug IN $slugs
OPTIONAL MATCH (p:POI)-[:LOCATED_IN]->(d)
RETURN d.name AS destination, d.slug AS slug, count(p) AS pois
ORDER BY destination
`

func (s *Neo4jStore) CountByDestination(ctx context.Context, slugs []string) ([]model.DestinationCount, error) {
	if len(slugs) == 0 {
		return nil, nil
	}
	rows, err := s.run(ctx, countByDestinationCypher, map[string]any{"slugs": slugs})
	if err != nil {
		return nil, fmt.Errorf("neo4j count by destination: %w", err)
	}

	counts := make([]model.DestinationCount, 0, len(rows))
	for _, row := range rows {
		name, _ := row["destination"].(string)
		slug, _ := row["slug"].(string)
		pois, _ := row["pois"].(int64)
		counts = append(counts, model.DestinationCount{Destination: name, Slug: slug, POIs: pois})
	}
	return counts, nil
}

func (s *Neo4jStore) Close(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Close(ctx)
}

// poiParams flattens a POI into driver-native parameter values. Absent
// optional signals become nil so the coalesce calls keep stored values.
func poiParams(poi model.POI) map[string]any {
	categories := poi.Categories
	if categories == nil {
		categories = []string{}
	}

	var hours any
	if len(poi.OpeningHours) > 0 {
		hours = poi.OpeningHours
	}

	return map[string]any{
		"uid":              poi.UID(),
		"provider":         poi.Provider,
		"place_id":         poi.ProviderPlaceID,
		"name":             poi.Name,
		"address":          nilIfEmpty(poi.Address),
		"website":          deref(poi.Website),
		"phone":            deref(poi.Phone),
		"categories":       categories,
		"destination":      poi.Destination,
		"destination_slug": poi.DestinationSlug(),
		"lat":              poi.Location.Lat,
		"lng":              poi.Location.Lng,
		"rating":           deref(poi.Rating),
		"review_count":     derefInt(poi.ReviewCount),
		"price_tier":       derefInt(poi.PriceTier),
		"opening_hours":    hours,
	}
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// derefInt widens to int64, the driver's native integer type.
func derefInt(p *int) any {
	if p == nil {
		return nil
	}
	return int64(*p)
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
