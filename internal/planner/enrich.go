package planner

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/neexbeast/trip-planner/internal/geocode"
	"github.com/neexbeast/trip-planner/internal/itinerary"
)

const maxGeometryFetches = 4

// enrichStop resolves coordinates for a freshly added stop. Failures are
// logged and leave the stop as it was. It returns nil when nothing changed.
func (s *Service) enrichStop(ctx context.Context, stop itinerary.Stop) *itinerary.StopPatch {
	if stop.Type != itinerary.StopDrive {
		if stop.Coordinates != nil {
			return nil
		}
		r, err := s.places.Resolve(ctx, stop.Location)
		if err != nil {
			s.log.Warn("geocoding new stop failed", "query", stop.Location, "err", err)
			return nil
		}
		c := r.Coordinates
		return &itinerary.StopPatch{Coordinates: &c}
	}

	route, err := s.routes.ResolveDrive(ctx, stop.Location)
	if err != nil {
		s.log.Warn("resolving new drive failed", "query", stop.Location, "err", err)
		return nil
	}

	var patch itinerary.StopPatch
	changed := applyDrive(&patch, stop, route)
	if route.Start == nil || route.End == nil || (stop.DrivingTime != "" && stop.Distance != "") {
		return patchOrNil(&patch, changed)
	}

	summary, err := s.routes.Summarize(ctx, route.Start.Coordinates, route.End.Coordinates)
	if err != nil {
		s.log.Warn("drive summary unavailable", "query", stop.Location, "err", err)
		return patchOrNil(&patch, changed)
	}
	if stop.DrivingTime == "" {
		d := geocode.FormatDuration(summary.DurationSeconds)
		patch.DrivingTime = &d
	}
	if stop.Distance == "" {
		d := geocode.FormatDistance(summary.DistanceMeters)
		patch.Distance = &d
	}
	return &patch
}

// applyDrive copies resolved drive ends into patch for the fields the stop
// is still missing.
func applyDrive(patch *itinerary.StopPatch, stop itinerary.Stop, route *geocode.DriveRoute) bool {
	changed := false
	if stop.StartCoordinates == nil && route.Start != nil {
		c := route.Start.Coordinates
		patch.StartCoordinates = &c
		changed = true
	}
	if stop.EndCoordinates == nil && route.End != nil {
		c := route.End.Coordinates
		patch.EndCoordinates = &c
		changed = true
	}
	if stop.Coordinates == nil && route.Midpoint != nil {
		c := *route.Midpoint
		patch.Coordinates = &c
		changed = true
	}
	return changed
}

// errStopChanged aborts an enrichment merge whose stop was edited, moved
// away from its location or deleted while the lookups ran.
var errStopChanged = errors.New("stop changed during enrichment")

// onlyMissing trims p to the fields cur still lacks. It reports false when
// nothing is left to apply.
func onlyMissing(p itinerary.StopPatch, cur itinerary.Stop) (itinerary.StopPatch, bool) {
	var out itinerary.StopPatch
	if cur.Coordinates == nil && p.Coordinates != nil {
		out.Coordinates = p.Coordinates
	}
	if cur.StartCoordinates == nil && p.StartCoordinates != nil {
		out.StartCoordinates = p.StartCoordinates
	}
	if cur.EndCoordinates == nil && p.EndCoordinates != nil {
		out.EndCoordinates = p.EndCoordinates
	}
	if cur.DrivingTime == "" && p.DrivingTime != nil {
		out.DrivingTime = p.DrivingTime
	}
	if cur.Distance == "" && p.Distance != nil {
		out.Distance = p.Distance
	}
	return out, out != (itinerary.StopPatch{})
}

func patchOrNil(p *itinerary.StopPatch, changed bool) *itinerary.StopPatch {
	if !changed {
		return nil
	}
	return p
}

// ResolveMissingCoordinates geocodes every stop without coordinates through
// the paced batch resolver, saves the result and then refreshes sun times.
// The lock is only held while writing, so edits made during the batch are
// kept and stops removed meanwhile are skipped.
func (s *Service) ResolveMissingCoordinates(ctx context.Context, id string, progress geocode.Progress) (*itinerary.Trip, error) {
	snapshot, err := s.GetTrip(ctx, id)
	if err != nil {
		return nil, err
	}

	queries := missingQueries(snapshot)
	if len(queries) == 0 {
		return s.AugmentSunTimes(ctx, id)
	}

	results, batchErr := s.places.ResolveBatch(ctx, queries, s.cfg.Pacing, progress)
	resolved := make(map[string]*geocode.Result, len(results))
	for _, r := range results {
		if r.Err != nil {
			s.log.Warn("geocoding stop failed", "trip_id", id, "query", r.Query, "err", r.Err)
			continue
		}
		resolved[geocode.Normalize(r.Query)] = r.Result
	}

	if len(resolved) > 0 {
		_, err = s.mutate(ctx, id, func(t *itinerary.Trip) error {
			return applyResolved(t, resolved)
		})
		if err != nil {
			return nil, err
		}
	}
	if batchErr != nil {
		return nil, fmt.Errorf("resolving coordinates for trip %s: %w", id, batchErr)
	}

	return s.AugmentSunTimes(ctx, id)
}

// missingQueries lists the distinct place names the trip still needs.
func missingQueries(t *itinerary.Trip) []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(q string) {
		k := geocode.Normalize(q)
		if k == "" {
			return
		}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, q)
	}

	for _, ref := range t.StopsMissingCoordinates() {
		day, _ := t.Day(ref.DayID)
		for _, stop := range day.Stops {
			if stop.ID != ref.StopID {
				continue
			}
			if stop.Type != itinerary.StopDrive {
				add(stop.Location)
				continue
			}
			from, to, err := geocode.SplitComposite(stop.Location)
			if err != nil {
				continue
			}
			add(from)
			add(to)
		}
	}
	return out
}

func applyResolved(t *itinerary.Trip, resolved map[string]*geocode.Result) error {
	lookup := func(q string) *geocode.Result { return resolved[geocode.Normalize(q)] }

	for _, ref := range t.StopsMissingCoordinates() {
		day, _ := t.Day(ref.DayID)
		var stop itinerary.Stop
		for _, st := range day.Stops {
			if st.ID == ref.StopID {
				stop = st
			}
		}

		var patch itinerary.StopPatch
		changed := false
		if stop.Type != itinerary.StopDrive {
			if r := lookup(stop.Location); r != nil {
				c := r.Coordinates
				patch.Coordinates = &c
				changed = true
			}
		} else if from, to, err := geocode.SplitComposite(stop.Location); err == nil {
			route := &geocode.DriveRoute{Start: lookup(from), End: lookup(to)}
			if route.Start != nil && route.End != nil {
				mid := geocode.Midpoint(route.Start.Coordinates, route.End.Coordinates)
				route.Midpoint = &mid
			}
			changed = applyDrive(&patch, stop, route)
		}

		if !changed {
			continue
		}
		if _, err := t.UpdateStop(ref.DayID, ref.StopID, patch); err != nil {
			return err
		}
	}
	return nil
}

// AugmentSunTimes refreshes sunrise and sunset for every day that has a
// geocoded stop. Provider calls happen without the trip lock; the results
// are merged into the current state by day id.
func (s *Service) AugmentSunTimes(ctx context.Context, id string) (*itinerary.Trip, error) {
	snapshot, err := s.GetTrip(ctx, id)
	if err != nil {
		return nil, err
	}

	augmented := s.sun.AugmentTrip(ctx, snapshot)
	times := make(map[string]itinerary.Day, len(augmented.Days))
	changed := false
	for i, d := range augmented.Days {
		times[d.ID] = d
		if d.Sunrise != snapshot.Days[i].Sunrise || d.Sunset != snapshot.Days[i].Sunset {
			changed = true
		}
	}
	if !changed {
		return snapshot, nil
	}

	return s.mutate(ctx, id, func(t *itinerary.Trip) error {
		for i := range t.Days {
			d, ok := times[t.Days[i].ID]
			if !ok || !d.Date.Equal(t.Days[i].Date) || d.Sunrise == "" {
				continue
			}
			t.Days[i].Sunrise = d.Sunrise
			t.Days[i].Sunset = d.Sunset
		}
		return nil
	})
}

// RouteGeometry returns the polyline through every positioned stop in
// itinerary order. Legs the routing provider cannot serve are straight
// lines.
func (s *Service) RouteGeometry(ctx context.Context, id string) ([]itinerary.Coordinates, error) {
	trip, err := s.GetTrip(ctx, id)
	if err != nil {
		return nil, err
	}

	points := waypoints(trip)
	if len(points) < 2 {
		return points, nil
	}

	legs := make([][]itinerary.Coordinates, len(points)-1)
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxGeometryFetches)
	for i := range legs {
		i := i
		g.Go(func() error {
			legs[i] = s.routes.GeometryOrStraightLine(gCtx, points[i], points[i+1])
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	line := []itinerary.Coordinates{points[0]}
	for _, leg := range legs {
		if len(leg) == 0 {
			continue
		}
		// each leg starts where the previous one ended
		line = append(line, leg[1:]...)
	}
	return line, nil
}

// waypoints lists stop positions in order; drives contribute both ends.
func waypoints(t *itinerary.Trip) []itinerary.Coordinates {
	var out []itinerary.Coordinates
	push := func(c *itinerary.Coordinates) {
		if c == nil {
			return
		}
		if n := len(out); n > 0 && out[n-1] == *c {
			return
		}
		out = append(out, *c)
	}

	for _, d := range t.Days {
		for _, st := range d.Stops {
			if st.Type == itinerary.StopDrive && (st.StartCoordinates != nil || st.EndCoordinates != nil) {
				push(st.StartCoordinates)
				push(st.EndCoordinates)
				continue
			}
			push(st.Coordinates)
		}
	}
	return out
}

// BackfillAll resolves missing coordinates for every stored trip and
// returns how many trips were processed without error.
func (s *Service) BackfillAll(ctx context.Context) (int, error) {
	trips, err := s.ListTrips(ctx)
	if err != nil {
		return 0, err
	}

	var errs []error
	done := 0
	for _, t := range trips {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if _, err := s.ResolveMissingCoordinates(ctx, t.ID, nil); err != nil {
			errs = append(errs, fmt.Errorf("trip %s: %w", t.ID, err))
			continue
		}
		done++
	}
	return done, errors.Join(errs...)
}
