package geocode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/neexbeast/trip-planner/internal/metrics"
)

// lookupTimeout bounds one shared lookup, store and upstream together.
const lookupTimeout = 30 * time.Second

// Geocoder is the upstream place search. MapboxClient satisfies it.
type Geocoder interface {
	Geocode(ctx context.Context, search, country string) (*Result, error)
}

// Store is a durable tier behind the in-memory map. Get returns nil, nil on
// a miss.
type Store interface {
	Get(ctx context.Context, key string) (*Result, error)
	Set(ctx context.Context, key string, r *Result) error
}

// Cache memoizes geocode lookups by normalized query. Only successful
// lookups are stored; misses and upstream failures are retried next time.
type Cache struct {
	provider Geocoder
	store    Store
	log      *slog.Logger

	mu  sync.RWMutex
	mem map[string]*Result

	group singleflight.Group
}

// NewCache constructs a Cache. store may be nil for a memory-only cache.
func NewCache(provider Geocoder, store Store, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	return &Cache{
		provider: provider,
		store:    store,
		log:      log,
		mem:      map[string]*Result{},
	}
}

// Resolve returns the coordinates for query. Concurrent lookups of the same
// normalized query share a single upstream request.
func (c *Cache) Resolve(ctx context.Context, query string) (*Result, error) {
	r, _, err := c.resolve(ctx, query)
	return r, err
}

// Cached reports whether query is already held in memory.
func (c *Cache) Cached(query string) bool {
	_, ok := c.memGet(Normalize(query))
	return ok
}

type lookup struct {
	result   *Result
	upstream bool
}

// resolve also reports whether an upstream request was made, which drives
// batch pacing.
func (c *Cache) resolve(ctx context.Context, query string) (*Result, bool, error) {
	key := Normalize(query)
	if key == "" {
		return nil, false, fmt.Errorf("empty query: %w", ErrNotFound)
	}

	if r, ok := c.memGet(key); ok {
		metrics.GeocodeCacheHits.WithLabelValues("memory").Inc()
		return r, false, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		// shared by every waiting caller, so no single caller may cancel it
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()

		if r, ok := c.memGet(key); ok {
			return lookup{result: r}, nil
		}

		if c.store != nil {
			stored, err := c.store.Get(ctx, key)
			if err != nil {
				c.log.Warn("geocode store get failed", "query", key, "err", err)
			}
			if stored != nil {
				metrics.GeocodeCacheHits.WithLabelValues("store").Inc()
				c.memSet(key, stored)
				return lookup{result: stored}, nil
			}
		}

		metrics.GeocodeCacheMisses.Inc()
		search, country := DetectCountry(query)
		r, err := c.provider.Geocode(ctx, search, country)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				metrics.GeocodeNotFound.Inc()
			}
			return lookup{upstream: true}, err
		}
		r.Query = query
		if r.CountryCode == "" {
			r.CountryCode = country
		}

		c.memSet(key, r)
		if c.store != nil {
			if err := c.store.Set(ctx, key, r); err != nil {
				c.log.Warn("geocode store set failed", "query", key, "err", err)
			}
		}
		return lookup{result: r, upstream: true}, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("resolving %q: %w", query, ctx.Err())
	case res = <-ch:
	}

	l, _ := res.Val.(lookup)
	if err := res.Err; err != nil {
		return nil, l.upstream, fmt.Errorf("resolving %q: %w", query, err)
	}
	cp := *l.result
	return &cp, l.upstream, nil
}

func (c *Cache) memGet(key string) (*Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.mem[key]
	if !ok {
		return nil, false
	}
	cp := *r
	return &cp, true
}

func (c *Cache) memSet(key string, r *Result) {
	cp := *r
	c.mu.Lock()
	c.mem[key] = &cp
	c.mu.Unlock()
}
