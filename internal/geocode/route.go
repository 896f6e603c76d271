package geocode

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/neexbeast/trip-planner/internal/itinerary"
)

// Resolver resolves a single place. *Cache satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, query string) (*Result, error)
}

// Directions is the upstream routing provider. MapboxClient satisfies it.
type Directions interface {
	Route(ctx context.Context, from, to itinerary.Coordinates) (*RouteSummary, error)
}

// RouteResolver turns drive composites into coordinate pairs and fetches
// road geometry between resolved points.
type RouteResolver struct {
	places     Resolver
	directions Directions
	log        *slog.Logger
}

// NewRouteResolver constructs a RouteResolver.
func NewRouteResolver(places Resolver, directions Directions, log *slog.Logger) *RouteResolver {
	if log == nil {
		log = slog.Default()
	}
	return &RouteResolver{places: places, directions: directions, log: log}
}

// SplitComposite splits a drive location on the case-insensitive separator
// " to ". Anything other than exactly two non-empty parts is ErrFormat.
func SplitComposite(composite string) (from, to string, err error) {
	sep := itinerary.DriveSeparator

	seps := itinerary.IndexDriveSeparators(composite)
	if len(seps) != 1 {
		return "", "", fmt.Errorf("%w: %q needs exactly one %q", ErrFormat, composite, strings.TrimSpace(sep))
	}
	i := seps[0]
	from = strings.TrimSpace(composite[:i])
	to = strings.TrimSpace(composite[i+len(sep):])
	if from == "" || to == "" {
		return "", "", fmt.Errorf("%w: %q has an empty side", ErrFormat, composite)
	}
	return from, to, nil
}

// ResolveDrive resolves both ends of a drive. Each side resolves on its own;
// a failure on one side is reported in StartErr/EndErr and does not fail the
// call. Only a malformed composite returns an error.
func (r *RouteResolver) ResolveDrive(ctx context.Context, composite string) (*DriveRoute, error) {
	from, to, err := SplitComposite(composite)
	if err != nil {
		return nil, err
	}

	var route DriveRoute
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		route.Start, route.StartErr = r.places.Resolve(gCtx, from)
		return nil
	})
	g.Go(func() error {
		route.End, route.EndErr = r.places.Resolve(gCtx, to)
		return nil
	})
	_ = g.Wait()

	if route.Start != nil && route.End != nil {
		mid := Midpoint(route.Start.Coordinates, route.End.Coordinates)
		route.Midpoint = &mid
	}
	return &route, nil
}

// Midpoint is the arithmetic mean of two positions. Good enough between
// cities; it is not a geodesic midpoint.
func Midpoint(a, b itinerary.Coordinates) itinerary.Coordinates {
	return itinerary.Coordinates{Lng: (a.Lng + b.Lng) / 2, Lat: (a.Lat + b.Lat) / 2}
}

// Summarize returns distance, duration and geometry for the leg.
func (r *RouteResolver) Summarize(ctx context.Context, from, to itinerary.Coordinates) (*RouteSummary, error) {
	s, err := r.directions.Route(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("summarizing route: %w", err)
	}
	return s, nil
}

// FetchRouteGeometry returns the road-following polyline between two points.
func (r *RouteResolver) FetchRouteGeometry(ctx context.Context, from, to itinerary.Coordinates) ([]itinerary.Coordinates, error) {
	s, err := r.directions.Route(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetching route geometry: %w", err)
	}
	if len(s.Geometry) < 2 {
		return nil, fmt.Errorf("fetching route geometry: %w", ErrNotFound)
	}
	return s.Geometry, nil
}

// GeometryOrStraightLine is FetchRouteGeometry that falls back to the
// straight segment [from, to] when the provider fails.
func (r *RouteResolver) GeometryOrStraightLine(ctx context.Context, from, to itinerary.Coordinates) []itinerary.Coordinates {
	line, err := r.FetchRouteGeometry(ctx, from, to)
	if err != nil {
		r.log.Warn("route geometry unavailable, using straight line", "err", err)
		return []itinerary.Coordinates{from, to}
	}
	return line
}

// FormatDistance renders meters as "12 km", or "850 m" under a kilometre.
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%.0f m", meters)
	}
	return fmt.Sprintf("%.0f km", meters/1000)
}

// FormatDuration renders seconds as "2h 5m" (or "45m" under an hour).
func FormatDuration(seconds float64) string {
	mins := int(seconds/60 + 0.5)
	h, m := mins/60, mins%60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}
