package route

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-position-engine/internal/domain"
	"solana-position-engine/internal/storage"
	"solana-position-engine/internal/storage/memory"
)

type fakeDiscoverer struct {
	calls  atomic.Int64
	routes map[string]*domain.PoolRoute
}

func (f *fakeDiscoverer) Discover(_ context.Context, mint string) (*domain.PoolRoute, error) {
	f.calls.Add(1)
	r, ok := f.routes[mint]
	if !ok {
		return nil, ErrNoRoute
	}
	cp := *r
	return &cp, nil
}

func discoverable(mint string) map[string]*domain.PoolRoute {
	return map[string]*domain.PoolRoute{
		mint: {Mint: mint, PoolID: "pool-" + mint, BaseMint: "So11111111111111111111111111111111111111112", QuoteMint: mint},
	}
}

func TestResolve_DiscoversOncePerMint(t *testing.T) {
	disc := &fakeDiscoverer{routes: discoverable("mintA")}
	cache := NewCache(CacheOptions{Store: memory.NewRouteStore(), Discoverer: disc})

	for i := 0; i < 5; i++ {
		r, err := cache.Resolve(context.Background(), "mintA")
		require.NoError(t, err)
		assert.Equal(t, "pool-mintA", r.PoolID)
	}
	assert.Equal(t, int64(1), disc.calls.Load(), "route is immutable, discovery runs once")
	assert.Equal(t, 1, cache.Size())
}

func TestResolve_ConcurrentSingleFlight(t *testing.T) {
	disc := &fakeDiscoverer{routes: discoverable("mintA")}
	cache := NewCache(CacheOptions{Store: memory.NewRouteStore(), Discoverer: disc})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := cache.Resolve(context.Background(), "mintA")
			assert.NoError(t, err)
			assert.Equal(t, "pool-mintA", r.PoolID)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), disc.calls.Load(), "concurrent resolvers collapse into one discovery")
}

func TestResolve_PrefersDurableStore(t *testing.T) {
	store := memory.NewRouteStore()
	stored := &domain.PoolRoute{Mint: "mintA", PoolID: "persisted-pool", CreatedAt: 1}
	require.NoError(t, store.Put(context.Background(), stored))

	disc := &fakeDiscoverer{routes: discoverable("mintA")}
	cache := NewCache(CacheOptions{Store: store, Discoverer: disc})

	r, err := cache.Resolve(context.Background(), "mintA")
	require.NoError(t, err)
	assert.Equal(t, "persisted-pool", r.PoolID)
	assert.Zero(t, disc.calls.Load(), "stored route skips discovery")
}

// racingStore simulates another writer landing between the cache's store
// read and its put: Get misses until Put has been attempted, and Put always
// reports a duplicate.
type racingStore struct {
	winner       *domain.PoolRoute
	putAttempted bool
}

func (s *racingStore) Get(_ context.Context, mint string) (*domain.PoolRoute, error) {
	if !s.putAttempted {
		return nil, storage.ErrNotFound
	}
	cp := *s.winner
	return &cp, nil
}

func (s *racingStore) Put(context.Context, *domain.PoolRoute) error {
	s.putAttempted = true
	return storage.ErrDuplicateKey
}

func TestResolve_DuplicateWriteKeepsFirstWriter(t *testing.T) {
	store := &racingStore{winner: &domain.PoolRoute{Mint: "mintA", PoolID: "winner-pool"}}
	disc := &fakeDiscoverer{routes: discoverable("mintA")}
	cache := NewCache(CacheOptions{Store: store, Discoverer: disc})

	r, err := cache.Resolve(context.Background(), "mintA")
	require.NoError(t, err)
	assert.Equal(t, "winner-pool", r.PoolID, "loser discards its discovery and re-reads")
	assert.Equal(t, int64(1), disc.calls.Load())
}

func TestResolve_NoRoute(t *testing.T) {
	disc := &fakeDiscoverer{routes: map[string]*domain.PoolRoute{}}
	cache := NewCache(CacheOptions{Store: memory.NewRouteStore(), Discoverer: disc})

	_, err := cache.Resolve(context.Background(), "orphan")
	require.ErrorIs(t, err, ErrNoRoute)

	// Failure is not memoized; the mint is retried next time.
	_, err = cache.Resolve(context.Background(), "orphan")
	require.ErrorIs(t, err, ErrNoRoute)
	assert.Equal(t, int64(2), disc.calls.Load())
}

func TestWarm_FirstResolutionWins(t *testing.T) {
	store := memory.NewRouteStore()
	disc := &fakeDiscoverer{routes: discoverable("mintA")}
	cache := NewCache(CacheOptions{Store: store, Discoverer: disc})

	cache.Warm(context.Background(), &domain.PoolRoute{Mint: "mintA", PoolID: "warmed-pool"})

	r, err := cache.Resolve(context.Background(), "mintA")
	require.NoError(t, err)
	assert.Equal(t, "warmed-pool", r.PoolID)
	assert.Zero(t, disc.calls.Load())

	// A second warm does not displace the first.
	cache.Warm(context.Background(), &domain.PoolRoute{Mint: "mintA", PoolID: "late-pool"})
	r, _ = cache.Resolve(context.Background(), "mintA")
	assert.Equal(t, "warmed-pool", r.PoolID)
}
