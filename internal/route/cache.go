// Package route resolves and caches venue routing metadata per mint.
// Resolution order is memory, then durable store, then on-chain discovery.
// Routes are immutable once resolved, so the cache never invalidates.
package route

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"solana-position-engine/internal/domain"
	"solana-position-engine/internal/observability"
	"solana-position-engine/internal/storage"
)

// ErrNoRoute is returned when no pool exists for a mint. The caller skips the
// holding for the cycle; the mint is retried on the next resolution attempt.
var ErrNoRoute = errors.New("no route for mint")

// Discoverer finds the pool for a mint on chain. Implemented by the venue
// package; returns ErrNoRoute when the venue has no pool for the mint.
type Discoverer interface {
	Discover(ctx context.Context, mint string) (*domain.PoolRoute, error)
}

// Cache memoizes resolved routes. Concurrent resolutions of the same mint are
// collapsed so discovery runs at most once per mint per process.
type Cache struct {
	store      storage.RouteStore
	discoverer Discoverer
	logger     *log.Logger

	mu       sync.Mutex
	routes   map[string]*domain.PoolRoute
	inflight map[string]chan struct{}
}

// CacheOptions configures a Cache.
type CacheOptions struct {
	Store      storage.RouteStore
	Discoverer Discoverer
	Logger     *log.Logger
}

// NewCache creates a route cache.
func NewCache(opts CacheOptions) *Cache {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Cache{
		store:      opts.Store,
		discoverer: opts.Discoverer,
		logger:     logger,
		routes:     make(map[string]*domain.PoolRoute),
		inflight:   make(map[string]chan struct{}),
	}
}

// Resolve returns the route for a mint, discovering and persisting it on
// first use. Returns ErrNoRoute when the venue has no pool for the mint.
func (c *Cache) Resolve(ctx context.Context, mint string) (*domain.PoolRoute, error) {
	if mint == "" {
		return nil, fmt.Errorf("%w: empty mint", storage.ErrInvalidInput)
	}

	for {
		c.mu.Lock()
		if r, ok := c.routes[mint]; ok {
			c.mu.Unlock()
			return r, nil
		}
		wait, ok := c.inflight[mint]
		if !ok {
			done := make(chan struct{})
			c.inflight[mint] = done
			c.mu.Unlock()

			r, err := c.resolveSlow(ctx, mint)

			c.mu.Lock()
			if err == nil {
				c.routes[mint] = r
				observability.DefaultMetrics.RoutesCached.Set(float64(len(c.routes)))
			}
			delete(c.inflight, mint)
			close(done)
			c.mu.Unlock()
			return r, err
		}
		c.mu.Unlock()

		select {
		case <-wait:
			// Winner finished; loop to pick up its result or retry on its
			// failure.
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// resolveSlow checks the durable store, falling back to on-chain discovery.
func (c *Cache) resolveSlow(ctx context.Context, mint string) (*domain.PoolRoute, error) {
	if c.store != nil {
		r, err := c.store.Get(ctx, mint)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("route store get %s: %w", mint, err)
		}
	}

	r, err := c.discoverer.Discover(ctx, mint)
	if err != nil {
		return nil, err
	}
	if r.CreatedAt == 0 {
		r.CreatedAt = time.Now().UnixMilli()
	}

	if c.store != nil {
		if err := c.store.Put(ctx, r); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				// Another writer got there first; its record wins.
				if stored, gerr := c.store.Get(ctx, mint); gerr == nil {
					return stored, nil
				}
			} else {
				c.logger.Printf("persist route %s: %v", mint, err)
			}
		}
	}
	return r, nil
}

// Warm inserts an externally discovered route, typically from the listing
// watcher. Existing entries are kept; first resolution wins.
func (c *Cache) Warm(ctx context.Context, r *domain.PoolRoute) {
	if r == nil || r.Mint == "" {
		return
	}
	if r.CreatedAt == 0 {
		r.CreatedAt = time.Now().UnixMilli()
	}

	c.mu.Lock()
	if _, ok := c.routes[r.Mint]; ok {
		c.mu.Unlock()
		return
	}
	c.routes[r.Mint] = r
	observability.DefaultMetrics.RoutesCached.Set(float64(len(c.routes)))
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Put(ctx, r); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			c.logger.Printf("persist warmed route %s: %v", r.Mint, err)
		}
	}
}

// Size returns the number of memoized routes.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.routes)
}
