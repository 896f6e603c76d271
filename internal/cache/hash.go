package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// HashStore is a scoped key-value store: one Redis hash per scope.
type HashStore struct {
	client *redis.Client
	prefix string
}

// NewHashStore constructs a HashStore whose hashes are named prefix+scope.
func NewHashStore(client *redis.Client, prefix string) *HashStore {
	return &HashStore{client: client, prefix: prefix}
}

func (s *HashStore) key(scope string) string {
	return s.prefix + scope
}

// Get returns the value under key in scope, or nil, nil when absent.
func (s *HashStore) Get(ctx context.Context, scope, key string) ([]byte, error) {
	val, err := s.client.HGet(ctx, s.key(scope), key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("hash get %s/%s: %w", scope, key, err)
	}
	return val, nil
}

// Set writes value under key in scope.
func (s *HashStore) Set(ctx context.Context, scope, key string, value []byte) error {
	if err := s.client.HSet(ctx, s.key(scope), key, value).Err(); err != nil {
		return fmt.Errorf("hash set %s/%s: %w", scope, key, err)
	}
	return nil
}

// List returns every entry in scope. An unknown scope is an empty map.
func (s *HashStore) List(ctx context.Context, scope string) (map[string][]byte, error) {
	vals, err := s.client.HGetAll(ctx, s.key(scope)).Result()
	if err != nil {
		return nil, fmt.Errorf("hash list %s: %w", scope, err)
	}
	out := make(map[string][]byte, len(vals))
	for k, v := range vals {
		out[k] = []byte(v)
	}
	return out, nil
}

// Delete removes key from scope. Removing a missing key is not an error.
func (s *HashStore) Delete(ctx context.Context, scope, key string) error {
	if err := s.client.HDel(ctx, s.key(scope), key).Err(); err != nil {
		return fmt.Errorf("hash delete %s/%s: %w", scope, key, err)
	}
	return nil
}
