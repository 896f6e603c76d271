// Package favorites keeps saved places per scope (a user, a device, a trip)
// on top of an injected key-value store.
package favorites

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/neexbeast/trip-planner/internal/itinerary"
)

var (
	ErrNotFound   = errors.New("favorite not found")
	ErrValidation = errors.New("validation error")
)

// KV is a scoped key-value store. Get returns nil, nil for a missing key.
// cache.HashStore satisfies it.
type KV interface {
	Get(ctx context.Context, scope, key string) ([]byte, error)
	Set(ctx context.Context, scope, key string, value []byte) error
	List(ctx context.Context, scope string) (map[string][]byte, error)
	Delete(ctx context.Context, scope, key string) error
}

// Place is a saved location.
type Place struct {
	Name        string                 `json:"name"`
	Location    string                 `json:"location"`
	Type        itinerary.StopType     `json:"type,omitempty"`
	Coordinates *itinerary.Coordinates `json:"coordinates,omitempty"`
	Notes       string                 `json:"notes,omitempty"`
	SavedAt     time.Time              `json:"saved_at"`
}

// Service reads and writes favorites.
type Service struct {
	kv  KV
	now func() time.Time
}

// NewService constructs a Service.
func NewService(kv KV) *Service {
	return &Service{kv: kv, now: time.Now}
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Save stores p under its name, replacing any favorite with the same name.
func (s *Service) Save(ctx context.Context, scope string, p Place) (Place, error) {
	if strings.TrimSpace(scope) == "" {
		return Place{}, fmt.Errorf("%w: scope is required", ErrValidation)
	}
	p.Name = strings.TrimSpace(p.Name)
	p.Location = strings.TrimSpace(p.Location)
	if p.Name == "" || p.Location == "" {
		return Place{}, fmt.Errorf("%w: name and location are required", ErrValidation)
	}
	if p.Type != "" && !p.Type.Valid() {
		return Place{}, fmt.Errorf("%w: unknown type %q", ErrValidation, p.Type)
	}
	p.SavedAt = s.now().UTC()

	b, err := json.Marshal(p)
	if err != nil {
		return Place{}, fmt.Errorf("marshaling favorite %s: %w", p.Name, err)
	}
	if err := s.kv.Set(ctx, scope, key(p.Name), b); err != nil {
		return Place{}, fmt.Errorf("saving favorite %s: %w", p.Name, err)
	}
	return p, nil
}

// Get returns the named favorite.
func (s *Service) Get(ctx context.Context, scope, name string) (Place, error) {
	b, err := s.kv.Get(ctx, scope, key(name))
	if err != nil {
		return Place{}, fmt.Errorf("loading favorite %s: %w", name, err)
	}
	if b == nil {
		return Place{}, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	var p Place
	if err := json.Unmarshal(b, &p); err != nil {
		return Place{}, fmt.Errorf("unmarshaling favorite %s: %w", name, err)
	}
	return p, nil
}

// List returns the scope's favorites sorted by name.
func (s *Service) List(ctx context.Context, scope string) ([]Place, error) {
	raw, err := s.kv.List(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}

	places := make([]Place, 0, len(raw))
	for k, b := range raw {
		var p Place
		if err := json.Unmarshal(b, &p); err != nil {
			return nil, fmt.Errorf("unmarshaling favorite %s: %w", k, err)
		}
		places = append(places, p)
	}
	sort.Slice(places, func(i, j int) bool { return key(places[i].Name) < key(places[j].Name) })
	return places, nil
}

// Delete removes the named favorite. Missing favorites are not an error.
func (s *Service) Delete(ctx context.Context, scope, name string) error {
	if err := s.kv.Delete(ctx, scope, key(name)); err != nil {
		return fmt.Errorf("deleting favorite %s: %w", name, err)
	}
	return nil
}

// AsStop turns a favorite into input for itinerary.Trip.AddStop.
func (p Place) AsStop(tm string) itinerary.StopInput {
	in := itinerary.StopInput{
		Time:        tm,
		Location:    p.Location,
		Type:        p.Type,
		Notes:       p.Notes,
		Coordinates: p.Coordinates,
	}
	if in.Type == itinerary.StopDrive {
		in.Type = itinerary.StopPlain
	}
	return in
}
