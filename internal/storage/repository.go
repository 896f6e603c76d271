package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/neexbeast/trip-planner/internal/itinerary"
)

// Querier abstracts the subset of pgxpool.Pool used by Repository.
// This allows injection of a mock in tests.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// TripSummary is a trip row without its days.
type TripSummary struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	StartDate itinerary.Date `json:"start_date"`
	EndDate   itinerary.Date `json:"end_date"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// tripData is the shape of the trip_data column.
type tripData struct {
	Days []itinerary.Day `json:"days"`
}

// Repository provides database access for trips.
type Repository struct {
	q Querier
}

// NewRepository constructs a Repository backed by the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{q: pool}
}

// NewRepositoryWithQuerier constructs a Repository with a custom Querier (for tests).
func NewRepositoryWithQuerier(q Querier) *Repository {
	return &Repository{q: q}
}

// CreateTrip inserts a new trip row.
func (r *Repository) CreateTrip(ctx context.Context, trip *itinerary.Trip) error {
	data, err := json.Marshal(tripData{Days: trip.Days})
	if err != nil {
		return fmt.Errorf("marshaling days for trip %s: %w", trip.ID, err)
	}

	const q = `
		INSERT INTO trips (id, title, start_date, end_date, trip_data)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := r.q.Exec(ctx, q, trip.ID, trip.Title, trip.StartDate.Time(), trip.EndDate.Time(), data); err != nil {
		return fmt.Errorf("inserting trip %s: %w", trip.ID, err)
	}

	return nil
}

// GetTrip retrieves a trip with all its days.
// Returns nil, nil when the trip is not found, including when id is not a UUID.
func (r *Repository) GetTrip(ctx context.Context, id string) (*itinerary.Trip, error) {
	if !validID(id) {
		return nil, nil
	}

	const q = `
		SELECT id::text, title, start_date, end_date, trip_data
		FROM trips
		WHERE id = $1
	`

	var trip itinerary.Trip
	var start, end time.Time
	var dataJSON []byte

	err := r.q.QueryRow(ctx, q, id).Scan(&trip.ID, &trip.Title, &start, &end, &dataJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying trip %s: %w", id, err)
	}

	var data tripData
	if err := json.Unmarshal(dataJSON, &data); err != nil {
		return nil, fmt.Errorf("unmarshaling days for trip %s: %w", id, err)
	}

	trip.StartDate = dateOf(start)
	trip.EndDate = dateOf(end)
	trip.Days = data.Days
	if trip.Days == nil {
		trip.Days = []itinerary.Day{}
	}
	return &trip, nil
}

// ListTrips returns all trips, most recently updated first.
func (r *Repository) ListTrips(ctx context.Context) ([]TripSummary, error) {
	const q = `
		SELECT id::text, title, start_date, end_date, created_at, updated_at
		FROM trips
		ORDER BY updated_at DESC
	`

	rows, err := r.q.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying trips: %w", err)
	}
	defer rows.Close()

	results := []TripSummary{}
	for rows.Next() {
		var s TripSummary
		var start, end time.Time

		if err := rows.Scan(&s.ID, &s.Title, &start, &end, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning trip row: %w", err)
		}

		s.StartDate = dateOf(start)
		s.EndDate = dateOf(end)
		results = append(results, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating trip rows: %w", err)
	}

	return results, nil
}

// SaveTrip writes the full days array along with title and dates. A trip
// that does not exist is itinerary.ErrNotFound.
func (r *Repository) SaveTrip(ctx context.Context, trip *itinerary.Trip) error {
	if !validID(trip.ID) {
		return fmt.Errorf("trip %s: %w", trip.ID, itinerary.ErrNotFound)
	}
	data, err := json.Marshal(tripData{Days: trip.Days})
	if err != nil {
		return fmt.Errorf("marshaling days for trip %s: %w", trip.ID, err)
	}

	const q = `
		UPDATE trips
		SET title      = $2,
		    start_date = $3,
		    end_date   = $4,
		    trip_data  = $5,
		    updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.q.Exec(ctx, q, trip.ID, trip.Title, trip.StartDate.Time(), trip.EndDate.Time(), data)
	if err != nil {
		return fmt.Errorf("updating trip %s: %w", trip.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("trip %s: %w", trip.ID, itinerary.ErrNotFound)
	}

	return nil
}

// DeleteTrip removes a trip. A trip that does not exist is itinerary.ErrNotFound.
func (r *Repository) DeleteTrip(ctx context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("trip %s: %w", id, itinerary.ErrNotFound)
	}
	tag, err := r.q.Exec(ctx, `DELETE FROM trips WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting trip %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("trip %s: %w", id, itinerary.ErrNotFound)
	}
	return nil
}

// validID reports whether id can address a row of the uuid-keyed trips table.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func dateOf(t time.Time) itinerary.Date {
	return itinerary.NewDate(t.Year(), t.Month(), t.Day())
}
