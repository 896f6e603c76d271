package planner_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/trip-planner/internal/geocode"
	"github.com/neexbeast/trip-planner/internal/itinerary"
	"github.com/neexbeast/trip-planner/internal/planner"
	"github.com/neexbeast/trip-planner/internal/storage"
)

// ---- fakes ----

type memStore struct {
	mu    sync.Mutex
	trips map[string]*itinerary.Trip
	saves int

	getErr  error
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{trips: map[string]*itinerary.Trip{}}
}

func (m *memStore) CreateTrip(_ context.Context, trip *itinerary.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.ID] = trip.Clone()
	return nil
}

func (m *memStore) GetTrip(_ context.Context, id string) (*itinerary.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	t, ok := m.trips[id]
	if !ok {
		return nil, nil
	}
	return t.Clone(), nil
}

func (m *memStore) ListTrips(_ context.Context) ([]storage.TripSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]storage.TripSummary, 0, len(m.trips))
	for _, t := range m.trips {
		out = append(out, storage.TripSummary{ID: t.ID, Title: t.Title, StartDate: t.StartDate, EndDate: t.EndDate})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (m *memStore) SaveTrip(_ context.Context, trip *itinerary.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.trips[trip.ID]; !ok {
		return itinerary.ErrNotFound
	}
	m.trips[trip.ID] = trip.Clone()
	m.saves++
	return nil
}

func (m *memStore) DeleteTrip(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trips[id]; !ok {
		return itinerary.ErrNotFound
	}
	delete(m.trips, id)
	return nil
}

func (m *memStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

type fakePlaces struct {
	mu    sync.Mutex
	known map[string]itinerary.Coordinates
	calls []string
	// hold, when set, runs before each lookup and may block it.
	hold func(query string)
}

func (f *fakePlaces) Resolve(_ context.Context, query string) (*geocode.Result, error) {
	if f.hold != nil {
		f.hold(query)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, query)
	c, ok := f.known[geocode.Normalize(query)]
	if !ok {
		return nil, fmt.Errorf("%q: %w", query, geocode.ErrNotFound)
	}
	return &geocode.Result{Coordinates: c, PlaceName: query, Query: query}, nil
}

func (f *fakePlaces) ResolveBatch(ctx context.Context, queries []string, _ time.Duration, progress geocode.Progress) ([]geocode.BatchResult, error) {
	out := make([]geocode.BatchResult, 0, len(queries))
	for i, q := range queries {
		r, err := f.Resolve(ctx, q)
		out = append(out, geocode.BatchResult{Query: q, Result: r, Err: err})
		if progress != nil {
			progress(i+1, len(queries))
		}
	}
	return out, nil
}

func (f *fakePlaces) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeDirections struct {
	summary *geocode.RouteSummary
	err     error
}

func (f *fakeDirections) Route(_ context.Context, _, _ itinerary.Coordinates) (*geocode.RouteSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.summary, nil
}

type fakeSun struct{}

func (fakeSun) AugmentTrip(_ context.Context, trip *itinerary.Trip) *itinerary.Trip {
	out := trip.Clone()
	for i := range out.Days {
		if out.Days[i].FirstGeocoded() != nil {
			out.Days[i].Sunrise = "05:30"
			out.Days[i].Sunset = "21:45"
		}
	}
	return out
}

// ---- helpers ----

var (
	paris = itinerary.Coordinates{Lng: 2.35, Lat: 48.86}
	lyon  = itinerary.Coordinates{Lng: 4.84, Lat: 45.76}
)

type harness struct {
	svc        *planner.Service
	store      *memStore
	places     *fakePlaces
	directions *fakeDirections
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := newMemStore()
	places := &fakePlaces{known: map[string]itinerary.Coordinates{
		"paris": paris,
		"lyon":  lyon,
	}}
	directions := &fakeDirections{summary: &geocode.RouteSummary{
		DistanceMeters:  465000,
		DurationSeconds: 16200,
		Geometry:        []itinerary.Coordinates{paris, {Lng: 3.5, Lat: 47}, lyon},
	}}
	routes := geocode.NewRouteResolver(places, directions, nil)
	svc := planner.New(store, places, routes, fakeSun{}, planner.Config{}, nil)
	return &harness{svc: svc, store: store, places: places, directions: directions}
}

func (h *harness) createTrip(t *testing.T, start, end string) *itinerary.Trip {
	t.Helper()
	trip, err := h.svc.CreateTrip(context.Background(), "Road trip",
		itinerary.MustParseDate(start), itinerary.MustParseDate(end))
	require.NoError(t, err)
	return trip
}

// seed writes a trip straight into the store, skipping enrichment.
func (h *harness) seed(t *testing.T, trip *itinerary.Trip) {
	t.Helper()
	require.NoError(t, h.store.CreateTrip(context.Background(), trip))
}

func intPtr(i int) *int { return &i }

// ---- trips ----

func TestCreateTrip_PersistsDays(t *testing.T) {
	h := newHarness(t)
	trip := h.createTrip(t, "2025-06-10", "2025-06-12")

	got, err := h.svc.GetTrip(context.Background(), trip.ID)
	require.NoError(t, err)
	assert.Len(t, got.Days, 3)
	assert.Equal(t, "Road trip", got.Title)
}

func TestCreateTrip_InvalidRange(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.CreateTrip(context.Background(), "Trip",
		itinerary.MustParseDate("2025-06-12"), itinerary.MustParseDate("2025-06-10"))
	require.ErrorIs(t, err, itinerary.ErrInvalidRange)
}

func TestGetTrip_Missing(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.GetTrip(context.Background(), "nope")
	require.ErrorIs(t, err, itinerary.ErrNotFound)
}

func TestRenameTrip(t *testing.T) {
	h := newHarness(t)
	trip := h.createTrip(t, "2025-06-10", "2025-06-10")

	got, err := h.svc.RenameTrip(context.Background(), trip.ID, "  Alps  ")
	require.NoError(t, err)
	assert.Equal(t, "Alps", got.Title)

	_, err = h.svc.RenameTrip(context.Background(), trip.ID, "")
	require.ErrorIs(t, err, itinerary.ErrValidation)
}

func TestDeleteTrip(t *testing.T) {
	h := newHarness(t)
	trip := h.createTrip(t, "2025-06-10", "2025-06-10")

	require.NoError(t, h.svc.DeleteTrip(context.Background(), trip.ID))
	_, err := h.svc.GetTrip(context.Background(), trip.ID)
	require.ErrorIs(t, err, itinerary.ErrNotFound)
}

// ---- stops ----

func TestAddStop_GeocodesPlace(t *testing.T) {
	h := newHarness(t)
	trip := h.createTrip(t, "2025-06-10", "2025-06-10")

	stop, err := h.svc.AddStop(context.Background(), trip.ID, trip.Days[0].ID,
		itinerary.StopInput{Time: "10:00", Location: "Paris", Type: itinerary.StopActivity}, nil)
	require.NoError(t, err)
	require.NotNil(t, stop.Coordinates)
	assert.Equal(t, paris, *stop.Coordinates)

	stored, err := h.svc.GetTrip(context.Background(), trip.ID)
	require.NoError(t, err)
	require.Len(t, stored.Days[0].Stops, 1)
	assert.Equal(t, paris, *stored.Days[0].Stops[0].Coordinates)
}

func TestAddStop_GeocodeFailureStillSaves(t *testing.T) {
	h := newHarness(t)
	trip := h.createTrip(t, "2025-06-10", "2025-06-10")

	stop, err := h.svc.AddStop(context.Background(), trip.ID, trip.Days[0].ID,
		itinerary.StopInput{Location: "Atlantis", Type: itinerary.StopPlain}, nil)
	require.NoError(t, err)
	assert.Nil(t, stop.Coordinates)

	stored, err := h.svc.GetTrip(context.Background(), trip.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Days[0].Stops, 1)
}

func TestAddStop_KnownCoordinatesSkipGeocoding(t *testing.T) {
	h := newHarness(t)
	trip := h.createTrip(t, "2025-06-10", "2025-06-10")

	c := itinerary.Coordinates{Lng: 1, Lat: 1}
	stop, err := h.svc.AddStop(context.Background(), trip.ID, trip.Days[0].ID,
		itinerary.StopInput{Location: "Paris", Type: itinerary.StopPlain, Coordinates: &c}, nil)
	require.NoError(t, err)
	assert.Equal(t, c, *stop.Coordinates)
	assert.Zero(t, h.places.callCount())
}

func TestAddStop_DriveGetsEndsAndSummary(t *testing.T) {
	h := newHarness(t)
	trip := h.createTrip(t, "2025-06-10", "2025-06-10")

	stop, err := h.svc.AddStop(context.Background(), trip.ID, trip.Days[0].ID, itinerary.StopInput{
		Time:          "09:00",
		Type:          itinerary.StopDrive,
		StartLocation: "Paris",
		EndLocation:   "Lyon",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "Paris to Lyon", stop.Location)
	require.NotNil(t, stop.StartCoordinates)
	require.NotNil(t, stop.EndCoordinates)
	require.NotNil(t, stop.Coordinates)
	assert.Equal(t, paris, *stop.StartCoordinates)
	assert.Equal(t, lyon, *stop.EndCoordinates)
	assert.InDelta(t, 3.595, stop.Coordinates.Lng, 1e-9)
	assert.InDelta(t, 47.31, stop.Coordinates.Lat, 1e-9)
	assert.Equal(t, "4h 30m", stop.DrivingTime)
	assert.Equal(t, "465 km", stop.Distance)
}

func TestAddStop_DriveKeepsGivenSummary(t *testing.T) {
	h := newHarness(t)
	trip := h.createTrip(t, "2025-06-10", "2025-06-10")

	stop, err := h.svc.AddStop(context.Background(), trip.ID, trip.Days[0].ID, itinerary.StopInput{
		Type:        itinerary.StopDrive,
		Location:    "Paris to Lyon",
		DrivingTime: "5h",
		Distance:    "470 km",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "5h", stop.DrivingTime)
	assert.Equal(t, "470 km", stop.Distance)
	require.NotNil(t, stop.StartCoordinates)
}

func TestAddStop_DriveSummaryFailureKeepsCoordinates(t *testing.T) {
	h := newHarness(t)
	h.directions.err = errors.New("directions down")
	trip := h.createTrip(t, "2025-06-10", "2025-06-10")

	stop, err := h.svc.AddStop(context.Background(), trip.ID, trip.Days[0].ID,
		itinerary.StopInput{Type: itinerary.StopDrive, Location: "Paris to Lyon"}, nil)
	require.NoError(t, err)
	require.NotNil(t, stop.StartCoordinates)
	assert.Empty(t, stop.DrivingTime)
	assert.Empty(t, stop.Distance)
}

func TestAddStop_DriveOneSideUnknown(t *testing.T) {
	h := newHarness(t)
	trip := h.createTrip(t, "2025-06-10", "2025-06-10")

	stop, err := h.svc.AddStop(context.Background(), trip.ID, trip.Days[0].ID,
		itinerary.StopInput{Type: itinerary.StopDrive, Location: "Paris to Atlantis"}, nil)
	require.NoError(t, err)
	require.NotNil(t, stop.StartCoordinates)
	assert.Nil(t, stop.EndCoordinates)
	assert.Nil(t, stop.Coordinates)
	assert.Empty(t, stop.Distance)
}

func TestAddStop_LookupDoesNotBlockOtherEdits(t *testing.T) {
	h := newHarness(t)
	trip := h.createTrip(t, "2025-06-10", "2025-06-10")

	started := make(chan struct{})
	release := make(chan struct{})
	h.places.hold = func(q string) {
		if q == "Paris" {
			close(started)
			<-release
		}
	}

	type outcome struct {
		stop itinerary.Stop
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		st, err := h.svc.AddStop(context.Background(), trip.ID, trip.Days[0].ID,
			itinerary.StopInput{Time: "10:00", Location: "Paris", Type: itinerary.StopActivity}, nil)
		done <- outcome{st, err}
	}()
	<-started

	renamed := make(chan error, 1)
	go func() {
		_, err := h.svc.RenameTrip(context.Background(), trip.ID, "Renamed")
		renamed <- err
	}()
	select {
	case err := <-renamed:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		close(release)
		t.Fatal("rename waited for the geocode lookup")
	}

	close(release)
	res := <-done
	require.NoError(t, res.err)
	require.NotNil(t, res.stop.Coordinates)
	assert.Equal(t, paris, *res.stop.Coordinates)

	stored, err := h.svc.GetTrip(context.Background(), trip.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.Title)
	require.Len(t, stored.Days[0].Stops, 1)
	assert.Equal(t, paris, *stored.Days[0].Stops[0].Coordinates)
}

func TestAddStop_EnrichmentSkipsStopEditedMeanwhile(t *testing.T) {
	h := newHarness(t)
	trip := h.createTrip(t, "2025-06-10", "2025-06-10")
	dayID := trip.Days[0].ID

	var stopID string
	h.places.hold = func(q string) {
		if q != "Paris" {
			return
		}
		// the user retargets the stop while its lookup is in flight
		cur, err := h.svc.GetTrip(context.Background(), trip.ID)
		require.NoError(t, err)
		stopID = cur.Days[0].Stops[0].ID
		loc := "Lyon"
		_, err = h.svc.UpdateStop(context.Background(), trip.ID, dayID,
			itinerary.FieldPatch{StopID: stopID, Patch: itinerary.StopPatch{Location: &loc}})
		require.NoError(t, err)
	}

	_, err := h.svc.AddStop(context.Background(), trip.ID, dayID,
		itinerary.StopInput{Location: "Paris", Type: itinerary.StopPlain}, nil)
	require.NoError(t, err)

	stored, err := h.svc.GetTrip(context.Background(), trip.ID)
	require.NoError(t, err)
	require.Len(t, stored.Days[0].Stops, 1)
	assert.Equal(t, "Lyon", stored.Days[0].Stops[0].Location)
	assert.Nil(t, stored.Days[0].Stops[0].Coordinates, "Paris coordinates must not land on the Lyon stop")
}

func TestAddStop_UnknownDayDoesNotSave(t *testing.T) {
	h := newHarness(t)
	trip := h.createTrip(t, "2025-06-10", "2025-06-10")

	_, err := h.svc.AddStop(context.Background(), trip.ID, "missing-day",
		itinerary.StopInput{Location: "Paris", Type: itinerary.StopPlain}, nil)
	require.ErrorIs(t, err, itinerary.ErrNotFound)
	assert.Zero(t, h.store.saveCount())
}

func TestAddStop_ConcurrentAddsAreSerialized(t *testing.T) {
	h := newHarness(t)
	trip := h.createTrip(t, "2025-06-10", "2025-06-10")

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.svc.AddStop(context.Background(), trip.ID, trip.Days[0].ID,
				itinerary.StopInput{Location: fmt.Sprintf("Place %d", i), Type: itinerary.StopPlain}, nil)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stored, err := h.svc.GetTrip(context.Background(), trip.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Days[0].Stops, n, "no add may be lost to a concurrent write")
}

func TestUpdateStop_FieldPatchAndReorder(t *testing.T) {
	h := newHarness(t)
	trip := h.createTrip(t, "2025-06-10", "2025-06-10")
	dayID := trip.Days[0].ID
	a, err := h.svc.AddStop(context.Background(), trip.ID, dayID, itinerary.StopInput{Location: "A", Type: itinerary.StopPlain}, nil)
	require.NoError(t, err)
	b, err := h.svc.AddStop(context.Background(), trip.ID, dayID, itinerary.StopInput{Location: "B", Type: itinerary.StopPlain}, nil)
	require.NoError(t, err)

	notes := "bring snacks"
	got, err := h.svc.UpdateStop(context.Background(), trip.ID, dayID,
		itinerary.FieldPatch{StopID: a.ID, Patch: itinerary.StopPatch{Notes: &notes}})
	require.NoError(t, err)
	assert.Equal(t, notes, got.Days[0].Stops[0].Notes)

	got, err = h.svc.UpdateStop(context.Background(), trip.ID, dayID, itinerary.Reorder{StopIDs: []string{b.ID, a.ID}})
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.Days[0].Stops[0].ID)
}

func TestDeleteStop_Idempotent(t *testing.T) {
	h := newHarness(t)
	trip := h.createTrip(t, "2025-06-10", "2025-06-10")
	dayID := trip.Days[0].ID
	s, err := h.svc.AddStop(context.Background(), trip.ID, dayID, itinerary.StopInput{Location: "A", Type: itinerary.StopPlain}, nil)
	require.NoError(t, err)

	_, err = h.svc.DeleteStop(context.Background(), trip.ID, dayID, s.ID)
	require.NoError(t, err)
	got, err := h.svc.DeleteStop(context.Background(), trip.ID, dayID, s.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Days[0].Stops)
}

func TestMoveStop_ConflictLeavesStoreUntouched(t *testing.T) {
	h := newHarness(t)
	trip, err := itinerary.NewTrip("t1", "Trip", itinerary.MustParseDate("2025-06-10"), itinerary.MustParseDate("2025-06-11"))
	require.NoError(t, err)
	_, err = trip.AddStop(trip.Days[1].ID, itinerary.StopInput{Time: "09:00", Location: "A", Type: itinerary.StopActivity}, nil)
	require.NoError(t, err)
	moving, err := trip.AddStop(trip.Days[0].ID, itinerary.StopInput{Time: "09:00", Location: "M", Type: itinerary.StopActivity}, nil)
	require.NoError(t, err)
	h.seed(t, trip)

	_, _, err = h.svc.MoveStop(context.Background(), trip.ID, trip.Days[0].ID, trip.Days[1].ID, moving.ID, nil)
	require.ErrorIs(t, err, itinerary.ErrTimeConflict)
	assert.Zero(t, h.store.saveCount())

	stored, err := h.svc.GetTrip(context.Background(), trip.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Days[0].Stops, 1)
	assert.Len(t, stored.Days[1].Stops, 1)
}

func TestMoveStop_ReturnsLandingIndex(t *testing.T) {
	h := newHarness(t)
	trip, err := itinerary.NewTrip("t1", "Trip", itinerary.MustParseDate("2025-06-10"), itinerary.MustParseDate("2025-06-11"))
	require.NoError(t, err)
	for _, tm := range []string{"09:00", "11:00"} {
		_, err = trip.AddStop(trip.Days[1].ID, itinerary.StopInput{Time: tm, Location: "A", Type: itinerary.StopActivity}, nil)
		require.NoError(t, err)
	}
	moving, err := trip.AddStop(trip.Days[0].ID, itinerary.StopInput{Time: "10:00", Location: "M", Type: itinerary.StopActivity}, nil)
	require.NoError(t, err)
	h.seed(t, trip)

	got, idx, err := h.svc.MoveStop(context.Background(), trip.ID, trip.Days[0].ID, trip.Days[1].ID, moving.ID, intPtr(0))
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, moving.ID, got.Days[1].Stops[1].ID)
}

func TestMutate_SaveFailureIsReported(t *testing.T) {
	h := newHarness(t)
	trip := h.createTrip(t, "2025-06-10", "2025-06-10")
	h.store.saveErr = errors.New("disk full")

	_, err := h.svc.RenameTrip(context.Background(), trip.ID, "Other")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestMutate_InvalidTripIsNotSaved(t *testing.T) {
	h := newHarness(t)
	trip, err := itinerary.NewTrip("t1", "Trip", itinerary.MustParseDate("2025-06-10"), itinerary.MustParseDate("2025-06-10"))
	require.NoError(t, err)
	trip.Days[0].Stops = []itinerary.Stop{
		{ID: "a", Time: "11:00", Location: "A", Type: itinerary.StopPlain},
		{ID: "b", Time: "09:00", Location: "B", Type: itinerary.StopPlain},
	}
	h.seed(t, trip)

	_, err = h.svc.RenameTrip(context.Background(), trip.ID, "Other")
	require.ErrorIs(t, err, itinerary.ErrOutOfOrder)
	assert.Zero(t, h.store.saveCount())
}

// ---- days ----

func TestResizeDates_DestructiveNeedsConfirm(t *testing.T) {
	h := newHarness(t)
	trip, err := itinerary.NewTrip("t1", "Trip", itinerary.MustParseDate("2025-06-10"), itinerary.MustParseDate("2025-06-12"))
	require.NoError(t, err)
	_, err = trip.AddStop(trip.Days[2].ID, itinerary.StopInput{Location: "Lyon", Type: itinerary.StopPlain}, nil)
	require.NoError(t, err)
	h.seed(t, trip)

	start, end := itinerary.MustParseDate("2025-06-10"), itinerary.MustParseDate("2025-06-11")

	_, _, err = h.svc.ResizeDates(context.Background(), trip.ID, start, end, false)
	require.ErrorIs(t, err, planner.ErrConfirmRequired)
	assert.Zero(t, h.store.saveCount())

	got, res, err := h.svc.ResizeDates(context.Background(), trip.ID, start, end, true)
	require.NoError(t, err)
	assert.Len(t, got.Days, 2)
	require.Len(t, res.Dropped, 1)
	assert.Len(t, res.Dropped[0].Stops, 1)
}

func TestResizeDates_EmptyTrailingDaysNeedNoConfirm(t *testing.T) {
	h := newHarness(t)
	trip := h.createTrip(t, "2025-06-10", "2025-06-12")

	got, res, err := h.svc.ResizeDates(context.Background(), trip.ID,
		itinerary.MustParseDate("2025-07-01"), itinerary.MustParseDate("2025-07-01"), false)
	require.NoError(t, err)
	assert.Len(t, got.Days, 1)
	assert.Equal(t, "2025-07-01", got.StartDate.String())
	assert.Len(t, res.Dropped, 2)
}

func TestInsertAndRemoveDay(t *testing.T) {
	h := newHarness(t)
	trip := h.createTrip(t, "2025-06-10", "2025-06-11")

	got, err := h.svc.InsertDay(context.Background(), trip.ID, 0)
	require.NoError(t, err)
	require.Len(t, got.Days, 3)
	assert.Equal(t, "2025-06-09", got.StartDate.String())

	got, err = h.svc.RemoveDay(context.Background(), trip.ID, got.Days[0].ID)
	require.NoError(t, err)
	assert.Len(t, got.Days, 2)

	got, err = h.svc.RemoveDay(context.Background(), trip.ID, got.Days[0].ID)
	require.NoError(t, err)
	_, err = h.svc.RemoveDay(context.Background(), trip.ID, got.Days[0].ID)
	require.ErrorIs(t, err, itinerary.ErrLastDay)
}

// ---- enrichment ----

func seedUngeocoded(t *testing.T, h *harness) *itinerary.Trip {
	t.Helper()
	trip, err := itinerary.NewTrip("t1", "Trip", itinerary.MustParseDate("2025-06-10"), itinerary.MustParseDate("2025-06-11"))
	require.NoError(t, err)
	for _, in := range []itinerary.StopInput{
		{Time: "09:00", Location: "Paris to Lyon", Type: itinerary.StopDrive},
		{Time: "15:00", Location: "Lyon", Type: itinerary.StopActivity},
		{Time: "18:00", Location: "Atlantis", Type: itinerary.StopPlain},
	} {
		_, err := trip.AddStop(trip.Days[0].ID, in, nil)
		require.NoError(t, err)
	}
	_, err = trip.AddStop(trip.Days[1].ID, itinerary.StopInput{Location: "paris", Type: itinerary.StopPlain}, nil)
	require.NoError(t, err)
	h.seed(t, trip)
	return trip
}

func TestResolveMissingCoordinates(t *testing.T) {
	h := newHarness(t)
	trip := seedUngeocoded(t, h)

	var progress [][2]int
	got, err := h.svc.ResolveMissingCoordinates(context.Background(), trip.ID, func(done, total int) {
		progress = append(progress, [2]int{done, total})
	})
	require.NoError(t, err)

	// paris, lyon and atlantis, each asked once
	assert.Equal(t, 3, h.places.callCount())
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, progress)

	day0 := got.Days[0]
	assert.Equal(t, paris, *day0.Stops[0].StartCoordinates)
	assert.Equal(t, lyon, *day0.Stops[0].EndCoordinates)
	assert.NotNil(t, day0.Stops[0].Coordinates)
	assert.Equal(t, lyon, *day0.Stops[1].Coordinates)
	assert.Nil(t, day0.Stops[2].Coordinates)
	assert.Equal(t, paris, *got.Days[1].Stops[0].Coordinates)

	assert.Equal(t, "05:30", day0.Sunrise)
	assert.Equal(t, "21:45", got.Days[1].Sunset)

	stored, err := h.svc.GetTrip(context.Background(), trip.ID)
	require.NoError(t, err)
	assert.Equal(t, got, stored)
}

func TestResolveMissingCoordinates_NothingMissing(t *testing.T) {
	h := newHarness(t)
	trip := h.createTrip(t, "2025-06-10", "2025-06-10")

	got, err := h.svc.ResolveMissingCoordinates(context.Background(), trip.ID, nil)
	require.NoError(t, err)
	assert.Zero(t, h.places.callCount())
	assert.Empty(t, got.Days[0].Sunrise)
	assert.Zero(t, h.store.saveCount())
}

func TestAugmentSunTimes_OnlyPositionedDays(t *testing.T) {
	h := newHarness(t)
	trip := h.createTrip(t, "2025-06-10", "2025-06-11")
	_, err := h.svc.AddStop(context.Background(), trip.ID, trip.Days[1].ID,
		itinerary.StopInput{Location: "Lyon", Type: itinerary.StopPlain}, nil)
	require.NoError(t, err)

	got, err := h.svc.AugmentSunTimes(context.Background(), trip.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Days[0].Sunrise)
	assert.Equal(t, "05:30", got.Days[1].Sunrise)
}

func TestRouteGeometry_ConcatenatesLegs(t *testing.T) {
	h := newHarness(t)
	trip := h.createTrip(t, "2025-06-10", "2025-06-10")
	_, err := h.svc.AddStop(context.Background(), trip.ID, trip.Days[0].ID,
		itinerary.StopInput{Time: "09:00", Location: "Paris", Type: itinerary.StopPlain}, nil)
	require.NoError(t, err)
	_, err = h.svc.AddStop(context.Background(), trip.ID, trip.Days[0].ID,
		itinerary.StopInput{Time: "15:00", Location: "Lyon", Type: itinerary.StopPlain}, nil)
	require.NoError(t, err)

	line, err := h.svc.RouteGeometry(context.Background(), trip.ID)
	require.NoError(t, err)
	assert.Equal(t, h.directions.summary.Geometry, line)
}

func TestRouteGeometry_StraightLineFallback(t *testing.T) {
	h := newHarness(t)
	trip := h.createTrip(t, "2025-06-10", "2025-06-10")
	for _, loc := range []string{"Paris", "Lyon"} {
		_, err := h.svc.AddStop(context.Background(), trip.ID, trip.Days[0].ID,
			itinerary.StopInput{Location: loc, Type: itinerary.StopPlain}, nil)
		require.NoError(t, err)
	}
	h.directions.err = errors.New("directions down")

	line, err := h.svc.RouteGeometry(context.Background(), trip.ID)
	require.NoError(t, err)
	assert.Equal(t, []itinerary.Coordinates{paris, lyon}, line)
}

func TestRouteGeometry_DriveEndsAreWaypoints(t *testing.T) {
	h := newHarness(t)
	h.directions.err = errors.New("directions down")
	trip := h.createTrip(t, "2025-06-10", "2025-06-10")
	dayID := trip.Days[0].ID
	for _, in := range []itinerary.StopInput{
		{Time: "08:00", Location: "Paris", Type: itinerary.StopPlain},
		{Time: "09:00", Location: "Paris to Lyon", Type: itinerary.StopDrive},
		{Time: "15:00", Location: "Lyon", Type: itinerary.StopPlain},
	} {
		_, err := h.svc.AddStop(context.Background(), trip.ID, dayID, in, nil)
		require.NoError(t, err)
	}

	line, err := h.svc.RouteGeometry(context.Background(), trip.ID)
	require.NoError(t, err)
	assert.Equal(t, []itinerary.Coordinates{paris, lyon}, line, "repeated positions collapse")
}

func TestRouteGeometry_SinglePoint(t *testing.T) {
	h := newHarness(t)
	trip := h.createTrip(t, "2025-06-10", "2025-06-10")
	_, err := h.svc.AddStop(context.Background(), trip.ID, trip.Days[0].ID,
		itinerary.StopInput{Location: "Paris", Type: itinerary.StopPlain}, nil)
	require.NoError(t, err)

	line, err := h.svc.RouteGeometry(context.Background(), trip.ID)
	require.NoError(t, err)
	assert.Equal(t, []itinerary.Coordinates{paris}, line)
}

func TestBackfillAll(t *testing.T) {
	h := newHarness(t)
	seedUngeocoded(t, h)
	other := h.createTrip(t, "2025-08-01", "2025-08-01")

	n, err := h.svc.BackfillAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := h.svc.GetTrip(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, lyon, *got.Days[0].Stops[1].Coordinates)

	_, err = h.svc.GetTrip(context.Background(), other.ID)
	require.NoError(t, err)
}

func TestBackfillAll_CollectsErrors(t *testing.T) {
	h := newHarness(t)
	seedUngeocoded(t, h)
	h.store.getErr = errors.New("connection reset")

	n, err := h.svc.BackfillAll(context.Background())
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Contains(t, err.Error(), "trip t1")
}

// ---- exports ----

func TestCalendar(t *testing.T) {
	h := newHarness(t)
	trip := h.createTrip(t, "2025-06-10", "2025-06-10")
	_, err := h.svc.AddStop(context.Background(), trip.ID, trip.Days[0].ID,
		itinerary.StopInput{Time: "10:00", Location: "Paris", Type: itinerary.StopActivity}, nil)
	require.NoError(t, err)

	ics, err := h.svc.Calendar(context.Background(), trip.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ics, "BEGIN:VCALENDAR"))
	assert.Contains(t, ics, "Paris")
}
