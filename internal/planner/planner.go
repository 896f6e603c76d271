// Package planner loads a trip, applies one itinerary operation, enriches
// the result and persists it. Mutations of the same trip are serialized.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/neexbeast/trip-planner/internal/export"
	"github.com/neexbeast/trip-planner/internal/geocode"
	"github.com/neexbeast/trip-planner/internal/itinerary"
	"github.com/neexbeast/trip-planner/internal/storage"
)

// ErrConfirmRequired means a date change would discard days that still
// hold stops and the caller did not confirm it.
var ErrConfirmRequired = errors.New("change discards stops, confirmation required")

// TripStore persists trips. *storage.Repository satisfies it.
type TripStore interface {
	CreateTrip(ctx context.Context, trip *itinerary.Trip) error
	GetTrip(ctx context.Context, id string) (*itinerary.Trip, error)
	ListTrips(ctx context.Context) ([]storage.TripSummary, error)
	SaveTrip(ctx context.Context, trip *itinerary.Trip) error
	DeleteTrip(ctx context.Context, id string) error
}

// Places resolves and batch-resolves place names. *geocode.Cache satisfies it.
type Places interface {
	Resolve(ctx context.Context, query string) (*geocode.Result, error)
	ResolveBatch(ctx context.Context, queries []string, pacing time.Duration, progress geocode.Progress) ([]geocode.BatchResult, error)
}

// Routes resolves drives and fetches road geometry. *geocode.RouteResolver
// satisfies it.
type Routes interface {
	ResolveDrive(ctx context.Context, composite string) (*geocode.DriveRoute, error)
	Summarize(ctx context.Context, from, to itinerary.Coordinates) (*geocode.RouteSummary, error)
	GeometryOrStraightLine(ctx context.Context, from, to itinerary.Coordinates) []itinerary.Coordinates
}

// SunTimes adds sunrise and sunset to each day. *suntime.Augmenter satisfies it.
type SunTimes interface {
	AugmentTrip(ctx context.Context, trip *itinerary.Trip) *itinerary.Trip
}

// Config holds the planner's tunables.
type Config struct {
	// Pacing is the wait between upstream geocode requests in a batch.
	Pacing time.Duration
	// Location is the zone used for calendar export.
	Location *time.Location
}

// Service is the itinerary application service.
type Service struct {
	store  TripStore
	places Places
	routes Routes
	sun    SunTimes
	cfg    Config
	log    *slog.Logger
	locks  *tripLocks
	now    func() time.Time
}

// New constructs a Service.
func New(store TripStore, places Places, routes Routes, sun SunTimes, cfg Config, log *slog.Logger) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:  store,
		places: places,
		routes: routes,
		sun:    sun,
		cfg:    cfg,
		log:    log,
		locks:  newTripLocks(),
		now:    time.Now,
	}
}

// ---- trips ----

// CreateTrip creates a trip with one empty day per date.
func (s *Service) CreateTrip(ctx context.Context, title string, start, end itinerary.Date) (*itinerary.Trip, error) {
	trip, err := itinerary.NewTrip("", title, start, end)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateTrip(ctx, trip); err != nil {
		return nil, fmt.Errorf("creating trip: %w", err)
	}
	s.log.Info("trip created", "trip_id", trip.ID, "days", len(trip.Days))
	return trip, nil
}

// GetTrip loads a trip.
func (s *Service) GetTrip(ctx context.Context, id string) (*itinerary.Trip, error) {
	trip, err := s.store.GetTrip(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading trip %s: %w", id, err)
	}
	if trip == nil {
		return nil, fmt.Errorf("trip %s: %w", id, itinerary.ErrNotFound)
	}
	return trip, nil
}

// ListTrips lists stored trips without their days.
func (s *Service) ListTrips(ctx context.Context) ([]storage.TripSummary, error) {
	trips, err := s.store.ListTrips(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing trips: %w", err)
	}
	return trips, nil
}

// DeleteTrip removes a trip.
func (s *Service) DeleteTrip(ctx context.Context, id string) error {
	unlock := s.locks.lock(id)
	defer unlock()
	return s.store.DeleteTrip(ctx, id)
}

// RenameTrip changes the title.
func (s *Service) RenameTrip(ctx context.Context, id, title string) (*itinerary.Trip, error) {
	return s.mutate(ctx, id, func(t *itinerary.Trip) error {
		return t.Rename(title)
	})
}

// ---- days ----

// ResizeDates moves the trip onto a new date range. When trailing days with
// stops would be dropped the change is refused unless confirm is set.
func (s *Service) ResizeDates(ctx context.Context, id string, start, end itinerary.Date, confirm bool) (*itinerary.Trip, itinerary.ResizeResult, error) {
	var res itinerary.ResizeResult
	trip, err := s.mutate(ctx, id, func(t *itinerary.Trip) error {
		r, err := t.ResizeDates(start, end)
		if err != nil {
			return err
		}
		if r.Destructive() && !confirm {
			return fmt.Errorf("%w: %d day(s) would be dropped", ErrConfirmRequired, len(r.Dropped))
		}
		res = r
		return nil
	})
	return trip, res, err
}

// InsertDay adds an empty day at index.
func (s *Service) InsertDay(ctx context.Context, id string, index int) (*itinerary.Trip, error) {
	return s.mutate(ctx, id, func(t *itinerary.Trip) error {
		_, err := t.InsertDay(index)
		return err
	})
}

// RemoveDay deletes a day and its stops.
func (s *Service) RemoveDay(ctx context.Context, id, dayID string) (*itinerary.Trip, error) {
	return s.mutate(ctx, id, func(t *itinerary.Trip) error {
		return t.RemoveDay(dayID)
	})
}

// ---- stops ----

// AddStop adds a stop and, best effort, geocodes it. Drives also get their
// driving time and distance from the routing provider unless the input
// already carries them. The stop is saved first; provider calls run without
// the trip lock and their result is merged afterwards, provided the stop
// still exists with the same location.
func (s *Service) AddStop(ctx context.Context, id, dayID string, in itinerary.StopInput, insertIndex *int) (itinerary.Stop, error) {
	var added itinerary.Stop
	_, err := s.mutate(ctx, id, func(t *itinerary.Trip) error {
		var err error
		added, err = t.AddStop(dayID, in, insertIndex)
		return err
	})
	if err != nil {
		return itinerary.Stop{}, err
	}

	patch := s.enrichStop(ctx, added)
	if patch == nil {
		return added, nil
	}

	enriched := added
	_, err = s.mutate(ctx, id, func(t *itinerary.Trip) error {
		cur, curDay, ok := t.FindStop(added.ID)
		if !ok || cur.Location != added.Location || cur.Type != added.Type {
			return errStopChanged
		}
		missing, ok := onlyMissing(*patch, cur)
		if !ok {
			enriched = cur
			return errStopChanged
		}
		var err error
		enriched, err = t.UpdateStop(curDay, cur.ID, missing)
		return err
	})
	switch {
	case errors.Is(err, errStopChanged):
		s.log.Debug("stop changed before enrichment landed", "trip_id", id, "stop_id", added.ID)
	case err != nil:
		s.log.Warn("saving stop enrichment failed", "trip_id", id, "stop_id", added.ID, "err", err)
		return added, nil
	}
	return enriched, nil
}

// UpdateStop applies a field patch or a reorder to one day.
func (s *Service) UpdateStop(ctx context.Context, id, dayID string, intent itinerary.UpdateIntent) (*itinerary.Trip, error) {
	return s.mutate(ctx, id, func(t *itinerary.Trip) error {
		return t.ApplyUpdate(dayID, intent)
	})
}

// DeleteStop removes a stop. Removing a stop that is already gone succeeds.
func (s *Service) DeleteStop(ctx context.Context, id, dayID, stopID string) (*itinerary.Trip, error) {
	return s.mutate(ctx, id, func(t *itinerary.Trip) error {
		return t.DeleteStop(dayID, stopID)
	})
}

// MoveStop moves a stop between days and returns the index it landed at.
func (s *Service) MoveStop(ctx context.Context, id, fromDayID, toDayID, stopID string, targetIndex *int) (*itinerary.Trip, int, error) {
	var idx int
	trip, err := s.mutate(ctx, id, func(t *itinerary.Trip) error {
		var err error
		idx, err = t.MoveStop(fromDayID, toDayID, stopID, targetIndex)
		return err
	})
	return trip, idx, err
}

// ---- exports ----

// Calendar renders the trip as iCalendar.
func (s *Service) Calendar(ctx context.Context, id string) (string, error) {
	trip, err := s.GetTrip(ctx, id)
	if err != nil {
		return "", err
	}
	return export.Calendar(trip, s.cfg.Location, s.now()), nil
}

// mutate runs fn against a fresh copy of the trip while holding the trip's
// lock and saves the result. When fn fails nothing is written.
func (s *Service) mutate(ctx context.Context, id string, fn func(t *itinerary.Trip) error) (*itinerary.Trip, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	trip, err := s.GetTrip(ctx, id)
	if err != nil {
		return nil, err
	}

	work := trip.Clone()
	if err := fn(work); err != nil {
		return nil, err
	}
	if err := work.Validate(); err != nil {
		return nil, fmt.Errorf("trip %s after update: %w", id, err)
	}

	if err := s.store.SaveTrip(ctx, work); err != nil {
		return nil, fmt.Errorf("saving trip %s: %w", id, err)
	}
	return work, nil
}
