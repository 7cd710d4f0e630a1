package service

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/model"
)

const (
	DefaultCityRadiusKm   = 25
	DefaultRegionRadiusKm = 75
	DefaultResultCap      = 20
	MaxResultCap          = 200
	maxLocations          = 500
)

type LocationInput struct {
	Name     string             `json:"name" jsonschema:"required,minLength=1,description=City or region name as it should be geocoded"`
	Kind     model.LocationKind `json:"kind,omitempty" jsonschema:"enum=city,enum=region,default=city"`
	RadiusKm float64            `json:"radius_km,omitempty" jsonschema:"minimum=0,description=Overrides the radius for this location's kind"`
}

// StartRequest is the input of JobService.Start.
type StartRequest struct {
	Locations      []LocationInput `json:"locations" jsonschema:"required,minItems=1"`
	Categories     []string        `json:"categories" jsonschema:"required,minItems=1"`
	ResultCap      int             `json:"result_cap,omitempty" jsonschema:"minimum=1,maximum=200,default=20,description=Places per location across all categories"`
	CityRadiusKm   float64         `json:"city_radius_km,omitempty" jsonschema:"minimum=0,default=25"`
	RegionRadiusKm float64         `json:"region_radius_km,omitempty" jsonschema:"minimum=0,default=75"`
}

// ParamsSchema describes StartRequest for clients that build job forms.
// Known categories are listed as the enum of the categories items.
func ParamsSchema(categories []string) *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(&StartRequest{})

	if prop, ok := schema.Properties.Get("categories"); ok && prop.Items != nil {
		prop.Items.Enum = make([]any, 0, len(categories))
		for _, c := range categories {
			prop.Items.Enum = append(prop.Items.Enum, c)
		}
	}
	return schema
}

// normalize validates req and returns the job params and initial queue.
func (req StartRequest) normalize(known func(string) bool) (model.Params, []model.QueueItem, error) {
	if len(req.Locations) == 0 {
		return model.Params{}, nil, fmt.Errorf("%w: at least one location is required", ErrInvalidRequest)
	}
	if len(req.Locations) > maxLocations {
		return model.Params{}, nil, fmt.Errorf("%w: at most %d locations per job", ErrInvalidRequest, maxLocations)
	}

	var categories []string
	for _, c := range req.Categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" || slices.Contains(categories, c) {
			continue
		}
		if !known(c) {
			return model.Params{}, nil, fmt.Errorf("%w: unknown category %q", ErrInvalidRequest, c)
		}
		categories = append(categories, c)
	}
	if len(categories) == 0 {
		return model.Params{}, nil, fmt.Errorf("%w: at least one category is required", ErrInvalidRequest)
	}

	params := model.Params{
		Categories:     categories,
		ResultCap:      req.ResultCap,
		CityRadiusKm:   req.CityRadiusKm,
		RegionRadiusKm: req.RegionRadiusKm,
	}
	if params.ResultCap == 0 {
		params.ResultCap = DefaultResultCap
	}
	if params.ResultCap < 0 || params.ResultCap > MaxResultCap {
		return model.Params{}, nil, fmt.Errorf("%w: result_cap must be between 1 and %d", ErrInvalidRequest, MaxResultCap)
	}
	if params.CityRadiusKm < 0 || params.RegionRadiusKm < 0 {
		return model.Params{}, nil, fmt.Errorf("%w: radius must not be negative", ErrInvalidRequest)
	}
	if params.CityRadiusKm == 0 {
		params.CityRadiusKm = DefaultCityRadiusKm
	}
	if params.RegionRadiusKm == 0 {
		params.RegionRadiusKm = DefaultRegionRadiusKm
	}

	queue := make([]model.QueueItem, 0, len(req.Locations))
	for i, loc := range req.Locations {
		name := strings.TrimSpace(loc.Name)
		if name == "" {
			return model.Params{}, nil, fmt.Errorf("%w: location %d has no name", ErrInvalidRequest, i)
		}
		kind := loc.Kind
		if kind == "" {
			kind = model.LocationCity
		}
		if !kind.Valid() {
			return model.Params{}, nil, fmt.Errorf("%w: location %q has unknown kind %q", ErrInvalidRequest, name, loc.Kind)
		}
		if loc.RadiusKm < 0 {
			return model.Params{}, nil, fmt.Errorf("%w: location %q has a negative radius", ErrInvalidRequest, name)
		}
		radius := loc.RadiusKm
		if radius == 0 {
			radius = params.RadiusFor(kind)
		}
		queue = append(queue, model.QueueItem{Name: name, Kind: kind, RadiusKm: radius})
	}

	return params, queue, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
