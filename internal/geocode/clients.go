package geocode

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/neexbeast/trip-planner/internal/itinerary"
	"github.com/neexbeast/trip-planner/internal/upstream"
)

// ---- Mapbox ----

const (
	mapboxGeocodeDefault    = "https://api.mapbox.com/geocoding/v5/mapbox.places"
	mapboxDirectionsDefault = "https://api.mapbox.com/directions/v5/mapbox/driving"
)

// MapboxClient talks to the Mapbox geocoding and directions APIs.
type MapboxClient struct {
	token         string
	geocodeURL    string
	directionsURL string
	client        *http.Client
	log           *slog.Logger
}

// NewMapboxClient constructs a MapboxClient with the given access token.
func NewMapboxClient(token string, log *slog.Logger) *MapboxClient {
	return NewMapboxClientWithURLs(mapboxGeocodeDefault, mapboxDirectionsDefault, token, log)
}

// NewMapboxClientWithURLs constructs a MapboxClient pointing at custom URLs (for tests).
func NewMapboxClientWithURLs(geocodeURL, directionsURL, token string, log *slog.Logger) *MapboxClient {
	if log == nil {
		log = slog.Default()
	}
	return &MapboxClient{
		token:         token,
		geocodeURL:    geocodeURL,
		directionsURL: directionsURL,
		client:        upstream.NewHTTPClient(),
		log:           log,
	}
}

type mapboxGeocodeResponse struct {
	Features []struct {
		PlaceName string    `json:"place_name"`
		Center    []float64 `json:"center"`
	} `json:"features"`
}

// Geocode returns the top match for search, optionally restricted to an
// ISO country code. No match is ErrNotFound.
func (c *MapboxClient) Geocode(ctx context.Context, search, country string) (*Result, error) {
	q := url.Values{}
	q.Set("access_token", c.token)
	q.Set("limit", "1")
	if country != "" {
		q.Set("country", country)
	}
	endpoint := c.geocodeURL + "/" + url.PathEscape(search) + ".json?" + q.Encode()

	var raw mapboxGeocodeResponse
	if err := upstream.GetJSON(ctx, c.client, "mapbox_geocode", endpoint, &raw); err != nil {
		c.log.Warn("mapbox geocode failed", "query", search, "err", err)
		return nil, fmt.Errorf("mapbox geocode for %s: %w", search, err)
	}

	if len(raw.Features) == 0 || len(raw.Features[0].Center) < 2 {
		return nil, fmt.Errorf("mapbox geocode for %s: %w", search, ErrNotFound)
	}

	top := raw.Features[0]
	return &Result{
		Coordinates: itinerary.Coordinates{Lng: top.Center[0], Lat: top.Center[1]},
		PlaceName:   top.PlaceName,
		CountryCode: country,
	}, nil
}

type mapboxDirectionsResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"routes"`
}

// Route returns the driving route between two points.
func (c *MapboxClient) Route(ctx context.Context, from, to itinerary.Coordinates) (*RouteSummary, error) {
	q := url.Values{}
	q.Set("access_token", c.token)
	q.Set("geometries", "geojson")
	q.Set("overview", "full")
	endpoint := fmt.Sprintf("%s/%f,%f;%f,%f?%s", c.directionsURL, from.Lng, from.Lat, to.Lng, to.Lat, q.Encode())

	var raw mapboxDirectionsResponse
	if err := upstream.GetJSON(ctx, c.client, "mapbox_directions", endpoint, &raw); err != nil {
		c.log.Warn("mapbox directions failed", "err", err)
		return nil, fmt.Errorf("mapbox directions: %w", err)
	}

	if len(raw.Routes) == 0 {
		return nil, fmt.Errorf("mapbox directions (%s): %w", raw.Code, ErrNotFound)
	}

	r := raw.Routes[0]
	geometry := make([]itinerary.Coordinates, 0, len(r.Geometry.Coordinates))
	for _, p := range r.Geometry.Coordinates {
		if len(p) < 2 {
			continue
		}
		geometry = append(geometry, itinerary.Coordinates{Lng: p[0], Lat: p[1]})
	}

	return &RouteSummary{
		DistanceMeters:  r.Distance,
		DurationSeconds: r.Duration,
		Geometry:        geometry,
	}, nil
}
