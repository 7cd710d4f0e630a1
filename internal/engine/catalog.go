package engine

import (
	"slices"
	"strings"
)

const locationPlaceholder = "{location}"

// Catalog maps a category to its ordered text-search query templates.
// "{location}" in a template is replaced with the queue item name.
type Catalog map[string][]string

func DefaultCatalog() Catalog {
	return Catalog{
		"dining": {
			"fine dining restaurants in {location}",
			"michelin star restaurants in {location}",
		},
		"hotels": {
			"luxury hotels in {location}",
			"five star resorts in {location}",
		},
		"attractions": {
			"top attractions in {location}",
			"landmarks in {location}",
		},
		"spas": {
			"luxury spas in {location}",
		},
		"nightlife": {
			"cocktail bars in {location}",
			"exclusive nightclubs in {location}",
		},
		"shopping": {
			"luxury boutiques in {location}",
		},
		"beaches": {
			"beach clubs in {location}",
			"best beaches in {location}",
		},
		"experiences": {
			"private tours in {location}",
			"yacht charters in {location}",
		},
	}
}

// Queries expands the templates of category for location, in order.
func (c Catalog) Queries(category, location string) []string {
	templates := c[category]
	out := make([]string, 0, len(templates))
	for _, t := range templates {
		out = append(out, strings.ReplaceAll(t, locationPlaceholder, location))
	}
	return out
}

func (c Catalog) Has(category string) bool {
	return len(c[category]) > 0
}

// Categories returns the known categories sorted by name.
func (c Catalog) Categories() []string {
	out := make([]string, 0, len(c))
	for k := range c {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// QueryCount is the number of text searches one queue item issues at most
// for categories.
func (c Catalog) QueryCount(categories []string) int {
	n := 0
	for _, category := range categories {
		n += len(c[category])
	}
	return n
}
