package arangodb

// Collection and graph names of the POI world map.
const (
	GraphName             = "worldmap"
	CollectionPOIs        = "pois"
	CollectionDestination = "destinations"
	CollectionLocatedIn   = "located_in"
)

// POIDocument is the graph-side shape of a place. Pointer fields are optional
// provider signals and are stored as null when absent.
type POIDocument struct {
	UID             string   `json:"uid"` // "provider:place_id"
	Provider        string   `json:"provider"`
	ProviderPlaceID string   `json:"provider_place_id"`
	Name            string   `json:"name"`
	Address         string   `json:"address,omitempty"`
	Lat             float64  `json:"lat"`
	Lng             float64  `json:"lng"`
	Rating          *float64 `json:"rating"`
	ReviewCount     *int     `json:"review_count"`
	PriceTier       *int     `json:"price_tier"`
	Website         *string  `json:"website"`
	Phone           *string  `json:"phone"`
	OpeningHours    []string `json:"opening_hours"`
	Categories      []string `json:"categories"`
	Destination     string   `json:"destination"`
	DestinationKey  string   `json:"-"` // _key of the destination document
}

// DestinationCount is the number of POIs linked to one destination.
type DestinationCount struct {
	Destination string `json:"destination"`
	Key         string `json:"key"`
	POIs        int64  `json:"pois"`
}
