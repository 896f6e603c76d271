// Package geocode resolves free-text place names to coordinates and drive
// composites to start/end pairs. Successful lookups are memoized for the life
// of the process (and, with a Store, across restarts).
package geocode

import (
	"errors"

	"github.com/neexbeast/trip-planner/internal/itinerary"
	"github.com/neexbeast/trip-planner/internal/upstream"
)

var (
	// ErrNotFound means the provider returned no match for the query.
	ErrNotFound = errors.New("location not found")

	// ErrFormat means a drive composite did not split into two places.
	ErrFormat = errors.New("malformed drive location")

	// ErrUpstream means the provider could not be reached or answered with
	// an error. Such failures are never cached.
	ErrUpstream = upstream.ErrUnavailable
)

// UpstreamError wraps a transport or HTTP failure from a provider.
type UpstreamError = upstream.Error

// Result is a resolved place.
type Result struct {
	Coordinates itinerary.Coordinates `json:"coordinates"`
	PlaceName   string                `json:"place_name"`
	Query       string                `json:"query"`
	CountryCode string                `json:"country_code,omitempty"`
}

// DriveRoute is the outcome of resolving a "<start> to <end>" composite.
// Either side may be nil with its error set; Midpoint is only present when
// both sides resolved.
type DriveRoute struct {
	Start    *Result                `json:"start"`
	End      *Result                `json:"end"`
	StartErr error                  `json:"-"`
	EndErr   error                  `json:"-"`
	Midpoint *itinerary.Coordinates `json:"midpoint,omitempty"`
}

// RouteSummary is what the directions provider reports for a single leg.
type RouteSummary struct {
	DistanceMeters  float64                 `json:"distance_meters"`
	DurationSeconds float64                 `json:"duration_seconds"`
	Geometry        []itinerary.Coordinates `json:"geometry"`
}
