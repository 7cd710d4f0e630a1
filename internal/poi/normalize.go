package poi

import (
	"slices"
	"strings"

	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/model"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/places"
)

// Normalize turns provider details into the record written to both stores.
// The id is left zero; the writer assigns one.
func Normalize(d *places.PlaceDetails, categories []string, destination string) model.POI {
	return model.POI{
		Provider:        model.ProviderGoogle,
		ProviderPlaceID: d.ID,
		Name:            strings.TrimSpace(d.Name),
		Address:         strings.TrimSpace(d.Address),
		Location:        d.Location,
		Rating:          d.Rating,
		ReviewCount:     d.ReviewCount,
		PriceTier:       d.PriceTier,
		Website:         trimmed(d.Website),
		Phone:           trimmed(d.Phone),
		OpeningHours:    d.OpeningHours,
		Categories:      normalizeCategories(categories),
		Destination:     strings.TrimSpace(destination),
	}
}

func normalizeCategories(categories []string) []string {
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			out = append(out, c)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
