package places

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/core/config"
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/model"
)

const (
	// Places API (New) caps both the location bias radius and the result count.
	maxBiasRadiusMeters = 50000.0
	maxSearchResults    = 20

	searchFieldMask  = "places.id,places.displayName,places.location,places.rating,places.userRatingCount,places.priceLevel"
	detailsFieldMask = "id,displayName,formattedAddress,location,rating,userRatingCount,priceLevel,websiteUri,internationalPhoneNumber,regularOpeningHours.weekdayDescriptions"
)

// GoogleClient talks to the Geocoding API and the Places API (New).
type GoogleClient struct {
	http       *retryablehttp.Client
	limiter    *rate.Limiter
	apiKey     string
	placesBase string
	geocodeURL string
	language   string
}

type Option func(*GoogleClient)

// WithRetryWait overrides the transport backoff bounds.
func WithRetryWait(minWait, maxWait time.Duration) Option {
	return func(c *GoogleClient) {
		c.http.RetryWaitMin = minWait
		c.http.RetryWaitMax = maxWait
	}
}

func NewGoogleClient(cfg config.PlacesConfig, opts ...Option) *GoogleClient {
	rc := retryablehttp.NewClient()
	rc.RetryMax = max(cfg.Retries, 0)
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.CheckRetry = checkRetry
	rc.PrepareRetry = prepareRetry
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = slog.Default()

	limit := rate.Inf
	if cfg.QPS > 0 {
		limit = rate.Limit(cfg.QPS)
	}

	c := &GoogleClient{
		http:       rc,
		limiter:    rate.NewLimiter(limit, 1),
		apiKey:     cfg.APIKey,
		placesBase: strings.TrimRight(cfg.PlacesBaseURL, "/"),
		geocodeURL: cfg.GeocodeURL,
		language:   cfg.Language,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// checkRetry retries transport failures and 5xx only. Quota answers must
// reach the engine on the first attempt so it can pause the job.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if resp != nil && (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden) {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

func (c *GoogleClient) Geocode(ctx context.Context, query string) (model.LatLng, error) {
	q := url.Values{}
	q.Set("address", query)
	q.Set("key", c.apiKey)
	if c.language != "" {
		q.Set("language", c.language)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.geocodeURL+"?"+q.Encode(), nil)
	if err != nil {
		return model.LatLng{}, fmt.Errorf("building geocode request: %w", err)
	}

	var resp geocodeResponse
	if err := c.do(req, "geocode", &resp); err != nil {
		return model.LatLng{}, err
	}

	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return model.LatLng{}, fmt.Errorf("geocode %q: %w", query, ErrNoResults)
	default:
		return model.LatLng{}, asQuota(&APIError{Op: "geocode", Status: resp.Status, Message: resp.ErrorMessage})
	}

	if len(resp.Results) == 0 {
		return model.LatLng{}, fmt.Errorf("geocode %q: %w", query, ErrNoResults)
	}

	loc := resp.Results[0].Geometry.Location
	return model.LatLng{Lat: loc.Lat, Lng: loc.Lng}, nil
}

type displayName struct {
	Text string `json:"text"`
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type place struct {
	ID                       string      `json:"id"`
	DisplayName              displayName `json:"displayName"`
	FormattedAddress         string      `json:"formattedAddress"`
	Location                 latLng      `json:"location"`
	Rating                   *float64    `json:"rating"`
	UserRatingCount          *int        `json:"userRatingCount"`
	PriceLevel               string      `json:"priceLevel"`
	WebsiteURI               string      `json:"websiteUri"`
	InternationalPhoneNumber string      `json:"internationalPhoneNumber"`
	RegularOpeningHours      *struct {
		WeekdayDescriptions []string `json:"weekdayDescriptions"`
	} `json:"regularOpeningHours"`
}

type searchTextRequest struct {
	TextQuery      string       `json:"textQuery"`
	MaxResultCount int          `json:"maxResultCount,omitempty"`
	LanguageCode   string       `json:"languageCode,omitempty"`
	LocationBias   locationBias `json:"locationBias"`
}

type locationBias struct {
	Circle circle `json:"circle"`
}

type circle struct {
	Center latLng  `json:"center"`
	Radius float64 `json:"radius"`
}

func (c *GoogleClient) TextSearch(ctx context.Context, sr SearchRequest) ([]PlaceSummary, error) {
	body := searchTextRequest{
		TextQuery:      sr.Query,
		MaxResultCount: clampResults(sr.MaxResults),
		LanguageCode:   c.language,
		LocationBias: locationBias{Circle: circle{
			Center: latLng{Latitude: sr.Center.Lat, Longitude: sr.Center.Lng},
			Radius: math.Min(sr.RadiusKm*1000, maxBiasRadiusMeters),
		}},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding search request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.placesBase+"/places:searchText", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-FieldMask", searchFieldMask)

	var resp struct {
		Places []place `json:"places"`
	}
	if err := c.do(req, "text_search", &resp); err != nil {
		return nil, err
	}

	out := make([]PlaceSummary, 0, len(resp.Places))
	for _, p := range resp.Places {
		if p.ID == "" {
			continue
		}
		out = append(out, PlaceSummary{
			ID:          p.ID,
			Name:        p.DisplayName.Text,
			Location:    model.LatLng{Lat: p.Location.Latitude, Lng: p.Location.Longitude},
			Rating:      p.Rating,
			ReviewCount: p.UserRatingCount,
			PriceTier:   PriceTier(p.PriceLevel),
		})
	}
	return out, nil
}

func (c *GoogleClient) Details(ctx context.Context, placeID string) (*PlaceDetails, error) {
	u := c.placesBase + "/places/" + url.PathEscape(placeID)
	if c.language != "" {
		u += "?languageCode=" + url.QueryEscape(c.language)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building details request: %w", err)
	}
	req.Header.Set("X-Goog-FieldMask", detailsFieldMask)

	var p place
	if err := c.do(req, "details", &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = placeID
	}

	d := &PlaceDetails{
		ID:          p.ID,
		Name:        p.DisplayName.Text,
		Address:     p.FormattedAddress,
		Location:    model.LatLng{Lat: p.Location.Latitude, Lng: p.Location.Longitude},
		Rating:      p.Rating,
		ReviewCount: p.UserRatingCount,
		PriceTier:   PriceTier(p.PriceLevel),
		Website:     nonEmpty(p.WebsiteURI),
		Phone:       nonEmpty(p.InternationalPhoneNumber),
	}
	if p.RegularOpeningHours != nil {
		d.OpeningHours = p.RegularOpeningHours.WeekdayDescriptions
	}
	return d, nil
}

type googleError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// do sends req after waiting for the pacing limiter and decodes a 2xx body
// into out. Non-2xx answers become an APIError, wrapped in a QuotaError when
// they carry a quota signal.
func (c *GoogleClient) do(req *retryablehttp.Request, op string, out any) error {
	ctx := req.Context()
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("places %s: waiting for rate limiter: %w", op, err)
	}

	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("places %s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("places %s: reading body: %w", op, err)
	}

	slog.DebugContext(ctx, "places call completed",
		"op", op,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Op: op, StatusCode: resp.StatusCode}
		var ge googleError
		if json.Unmarshal(raw, &ge) == nil && ge.Error.Message != "" {
			apiErr.Status = ge.Error.Status
			apiErr.Message = ge.Error.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return asQuota(apiErr)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("places %s: decoding response: %w", op, err)
	}
	return nil
}

// PriceTier maps a Places API price level to 0 (free) through 4 (very expensive).
func PriceTier(level string) *int {
	var tier int
	switch level {
	case "PRICE_LEVEL_FREE":
		tier = 0
	case "PRICE_LEVEL_INEXPENSIVE":
		tier = 1
	case "PRICE_LEVEL_MODERATE":
		tier = 2
	case "PRICE_LEVEL_EXPENSIVE":
		tier = 3
	case "PRICE_LEVEL_VERY_EXPENSIVE":
		tier = 4
	default:
		return nil
	}
	return &tier
}

func clampResults(n int) int {
	if n <= 0 || n > maxSearchResults {
		return maxSearchResults
	}
	return n
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
