package poi_test

import (
	"context"
	"slices"

	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/model"
)

// memoryPOIStore merges on (provider, provider_place_id) like the SQL store.
type memoryPOIStore struct {
	rows      map[string]*model.POI
	links     map[[2]int64][]string
	upsertErr error
}

func newMemoryPOIStore() *memoryPOIStore {
	return &memoryPOIStore{rows: map[string]*model.POI{}, links: map[[2]int64][]string{}}
}

func (m *memoryPOIStore) Upsert(_ context.Context, poi *model.POI) (int64, error) {
	if m.upsertErr != nil {
		return 0, m.upsertErr
	}
	key := poi.Provider + "/" + poi.ProviderPlaceID
	if existing, ok := m.rows[key]; ok {
		existing.Name = poi.Name
		existing.Rating = poi.Rating
		existing.Categories = mergeCategories(existing.Categories, poi.Categories)
		return existing.ID, nil
	}
	row := *poi
	m.rows[key] = &row
	return row.ID, nil
}

func (m *memoryPOIStore) LinkJob(_ context.Context, jobID, poiID int64, categories []string) error {
	k := [2]int64{jobID, poiID}
	m.links[k] = mergeCategories(m.links[k], categories)
	return nil
}

func (m *memoryPOIStore) JobStats(_ context.Context, jobID int64) (model.JobPOIStats, error) {
	stats := model.JobPOIStats{ByCategory: map[string]int64{}}
	for k, cats := range m.links {
		if k[0] != jobID {
			continue
		}
		stats.Total++
		for _, c := range cats {
			stats.ByCategory[c]++
		}
	}
	return stats, nil
}

// memoryGraph merges nodes on the provider uid.
type memoryGraph struct {
	nodes     map[string]model.POI
	edges     map[string]string
	upsertErr error
}

func newMemoryGraph() *memoryGraph {
	return &memoryGraph{nodes: map[string]model.POI{}, edges: map[string]string{}}
}

func (g *memoryGraph) EnsureSchema(context.Context) error { return nil }

func (g *memoryGraph) UpsertPOI(_ context.Context, poi model.POI) error {
	if g.upsertErr != nil {
		return g.upsertErr
	}
	if existing, ok := g.nodes[poi.UID()]; ok {
		if existing.Website != nil {
			poi.Website = existing.Website
		}
		poi.Categories = mergeCategories(existing.Categories, poi.Categories)
	}
	g.nodes[poi.UID()] = poi
	g.edges[poi.UID()] = poi.Destination
	return nil
}

func (g *memoryGraph) CountByDestination(context.Context, []string) ([]model.DestinationCount, error) {
	return nil, nil
}

func (g *memoryGraph) Close(context.Context) error { return nil }

func mergeCategories(a, b []string) []string {
	out := append(slices.Clone(a), b...)
	slices.Sort(out)
	return slices.Compact(out)
}
