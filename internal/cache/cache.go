package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/neexbeast/trip-planner/internal/geocode"
)

// GeocodeStore keeps resolved places in Redis. Place coordinates do not
// change, so entries are written without a TTL.
type GeocodeStore struct {
	client *redis.Client
}

// NewGeocodeStore constructs a GeocodeStore.
func NewGeocodeStore(client *redis.Client) *GeocodeStore {
	return &GeocodeStore{client: client}
}

// geocodeKey returns the Redis key for the given query.
func geocodeKey(query string) string {
	return "geocode:" + geocode.Normalize(query)
}

// Get retrieves a resolved place.
// Returns nil, nil on a cache miss (not an error).
func (s *GeocodeStore) Get(ctx context.Context, query string) (*geocode.Result, error) {
	val, err := s.client.Get(ctx, geocodeKey(query)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("geocode store get for %s: %w", query, err)
	}

	var r geocode.Result
	if err := json.Unmarshal([]byte(val), &r); err != nil {
		return nil, fmt.Errorf("unmarshaling geocode entry for %s: %w", query, err)
	}

	return &r, nil
}

// Set stores a resolved place.
func (s *GeocodeStore) Set(ctx context.Context, query string, r *geocode.Result) error {
	if r == nil {
		return nil
	}

	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling geocode entry for %s: %w", query, err)
	}

	if err := s.client.Set(ctx, geocodeKey(query), b, 0).Err(); err != nil {
		return fmt.Errorf("geocode store set for %s: %w", query, err)
	}

	return nil
}

// Delete removes the stored entry for the given query.
func (s *GeocodeStore) Delete(ctx context.Context, query string) error {
	if err := s.client.Del(ctx, geocodeKey(query)).Err(); err != nil {
		return fmt.Errorf("geocode store delete for %s: %w", query, err)
	}
	return nil
}
