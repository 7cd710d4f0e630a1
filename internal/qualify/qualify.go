package qualify

import "github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/core/config"

const CategoryDining = "dining"

// Signals are the quality hints the provider may or may not return.
// A nil field means the provider did not report it.
type Signals struct {
	Rating      *float64
	ReviewCount *int
	PriceTier   *int
}

// Rules is the minimum-quality gate applied before a place is persisted.
type Rules struct {
	MinRating        map[string]float64 // per-category overrides
	DefaultMinRating float64
	MinReviews       int
	MinPriceTier     int
}

func DefaultRules() Rules {
	return Rules{
		MinRating:        map[string]float64{CategoryDining: 4.5},
		DefaultMinRating: 4.3,
		MinReviews:       50,
		MinPriceTier:     3,
	}
}

func FromConfig(cfg config.QualifyConfig) Rules {
	return Rules{
		MinRating:        map[string]float64{CategoryDining: cfg.DiningMinRating},
		DefaultMinRating: cfg.DefaultMinRating,
		MinReviews:       cfg.MinReviews,
		MinPriceTier:     cfg.MinPriceTier,
	}
}

func (r Rules) minRating(category string) float64 {
	if v, ok := r.MinRating[category]; ok {
		return v
	}
	return r.DefaultMinRating
}

// Qualifies rejects a place only on a signal that is present and below the
// bar. Missing signals never disqualify.
func (r Rules) Qualifies(category string, s Signals) bool {
	if s.Rating != nil && *s.Rating < r.minRating(category) {
		return false
	}
	if s.ReviewCount != nil && *s.ReviewCount < r.MinReviews {
		return false
	}
	if s.PriceTier != nil && *s.PriceTier < r.MinPriceTier {
		return false
	}
	return true
}

// QualifiesAny reports whether at least one of the categories accepts the place.
func (r Rules) QualifiesAny(categories []string, s Signals) bool {
	for _, c := range categories {
		if r.Qualifies(c, s) {
			return true
		}
	}
	return false
}
