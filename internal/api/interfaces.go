package api

import (
	"context"

	"github.com/neexbeast/trip-planner/internal/favorites"
	"github.com/neexbeast/trip-planner/internal/geocode"
	"github.com/neexbeast/trip-planner/internal/itinerary"
	"github.com/neexbeast/trip-planner/internal/storage"
)

// Planner defines the trip operations needed by handlers.
type Planner interface {
	CreateTrip(ctx context.Context, title string, start, end itinerary.Date) (*itinerary.Trip, error)
	GetTrip(ctx context.Context, id string) (*itinerary.Trip, error)
	ListTrips(ctx context.Context) ([]storage.TripSummary, error)
	DeleteTrip(ctx context.Context, id string) error
	RenameTrip(ctx context.Context, id, title string) (*itinerary.Trip, error)

	ResizeDates(ctx context.Context, id string, start, end itinerary.Date, confirm bool) (*itinerary.Trip, itinerary.ResizeResult, error)
	InsertDay(ctx context.Context, id string, index int) (*itinerary.Trip, error)
	RemoveDay(ctx context.Context, id, dayID string) (*itinerary.Trip, error)

	AddStop(ctx context.Context, id, dayID string, in itinerary.StopInput, insertIndex *int) (itinerary.Stop, error)
	UpdateStop(ctx context.Context, id, dayID string, intent itinerary.UpdateIntent) (*itinerary.Trip, error)
	DeleteStop(ctx context.Context, id, dayID, stopID string) (*itinerary.Trip, error)
	MoveStop(ctx context.Context, id, fromDayID, toDayID, stopID string, targetIndex *int) (*itinerary.Trip, int, error)

	ResolveMissingCoordinates(ctx context.Context, id string, progress geocode.Progress) (*itinerary.Trip, error)
	AugmentSunTimes(ctx context.Context, id string) (*itinerary.Trip, error)
	RouteGeometry(ctx context.Context, id string) ([]itinerary.Coordinates, error)
	Calendar(ctx context.Context, id string) (string, error)
}

// PlaceLookup defines the single-place geocoding needed by handlers.
type PlaceLookup interface {
	Resolve(ctx context.Context, query string) (*geocode.Result, error)
}

// DriveLookup defines the drive resolution needed by handlers.
type DriveLookup interface {
	ResolveDrive(ctx context.Context, composite string) (*geocode.DriveRoute, error)
	Summarize(ctx context.Context, from, to itinerary.Coordinates) (*geocode.RouteSummary, error)
}

// FavoriteStore defines the saved-place operations needed by handlers.
type FavoriteStore interface {
	Save(ctx context.Context, scope string, p favorites.Place) (favorites.Place, error)
	Get(ctx context.Context, scope, name string) (favorites.Place, error)
	List(ctx context.Context, scope string) ([]favorites.Place, error)
	Delete(ctx context.Context, scope, name string) error
}
