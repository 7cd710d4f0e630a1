package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/core/db"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/model"
)

type poiStore struct {
	db db.DBTX
}

func newPOIStore(conn db.DBTX) POIStore {
	return &poiStore{db: conn}
}

// Provider-sourced metrics refresh on every write. Contact fields keep any
// value already present so manual corrections survive later collections,
// and the first destination a place was collected for stays its home.
const upsertPOISQL = `
	INSERT INTO pois (
		id, provider, provider_place_id, name, address, lat, lng,
		rating, review_count, price_tier, website, phone, opening_hours,
		categories, destination
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	ON CONFLICT (provider, provider_place_id) DO UPDATE SET
		name          = EXCLUDED.name,
		address       = COALESCE(EXCLUDED.address, pois.address),
		lat           = EXCLUDED.lat,
		lng           = EXCLUDED.lng,
		rating        = COALESCE(EXCLUDED.rating, pois.rating),
		review_count  = COALESCE(EXCLUDED.review_count, pois.review_count),
		price_tier    = COALESCE(EXCLUDED.price_tier, pois.price_tier),
		website       = COALESCE(pois.website, EXCLUDED.website),
		phone         = COALESCE(pois.phone, EXCLUDED.phone),
		opening_hours = COALESCE(EXCLUDED.opening_hours, pois.opening_hours),
		categories    = ARRAY(SELECT DISTINCT c FROM unnest(pois.categories || EXCLUDED.categories) AS c ORDER BY c),
		updated_at    = now()
	RETURNING id`

func (s *poiStore) Upsert(ctx context.Context, poi *model.POI) (int64, error) {
	var hours []byte
	if len(poi.OpeningHours) > 0 {
		var err error
		if hours, err = json.Marshal(poi.OpeningHours); err != nil {
			return 0, fmt.Errorf("encoding opening hours: %w", err)
		}
	}

	var address *string
	if poi.Address != "" {
		address = &poi.Address
	}

	categories := poi.Categories
	if categories == nil {
		categories = []string{}
	}

	var id int64
	err := s.db.QueryRow(ctx, upsertPOISQL,
		poi.ID, poi.Provider, poi.ProviderPlaceID, poi.Name, address,
		poi.Location.Lat, poi.Location.Lng,
		poi.Rating, poi.ReviewCount, poi.PriceTier, poi.Website, poi.Phone, hours,
		categories, poi.Destination,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting poi %s: %w", poi.UID(), err)
	}
	return id, nil
}

func (s *poiStore) LinkJob(ctx context.Context, jobID, poiID int64, categories []string) error {
	if categories == nil {
		categories = []string{}
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO collection_job_pois (job_id, poi_id, categories)
		VALUES ($1, $2, $3)
		ON CONFLICT (job_id, poi_id) DO UPDATE SET
			categories = ARRAY(SELECT DISTINCT c FROM unnest(collection_job_pois.categories || EXCLUDED.categories) AS c ORDER BY c)`,
		jobID, poiID, categories)
	if err != nil {
		return fmt.Errorf("linking poi %d to job %d: %w", poiID, jobID, err)
	}
	return nil
}

func (s *poiStore) JobStats(ctx context.Context, jobID int64) (model.JobPOIStats, error) {
	stats := model.JobPOIStats{ByCategory: map[string]int64{}}

	if err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM collection_job_pois WHERE job_id = $1`, jobID,
	).Scan(&stats.Total); err != nil {
		return model.JobPOIStats{}, fmt.Errorf("counting job pois: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT c, count(*)
		FROM collection_job_pois, unnest(categories) AS c
		WHERE job_id = $1
		GROUP BY c`, jobID)
	if err != nil {
		return model.JobPOIStats{}, fmt.Errorf("counting job pois by category: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			category string
			n        int64
		)
		if err := rows.Scan(&category, &n); err != nil {
			return model.JobPOIStats{}, err
		}
		stats.ByCategory[category] = n
	}
	return stats, rows.Err()
}
