package memory

import (
	"context"
	"sync"

	"solana-position-engine/internal/domain"
	"solana-position-engine/internal/storage"
)

// RouteStore is an in-memory implementation of storage.RouteStore.
type RouteStore struct {
	mu     sync.RWMutex
	routes map[string]*domain.PoolRoute
}

// NewRouteStore creates a new in-memory route store.
func NewRouteStore() *RouteStore {
	return &RouteStore{
		routes: make(map[string]*domain.PoolRoute),
	}
}

// Get retrieves the route for a mint.
func (s *RouteStore) Get(_ context.Context, mint string) (*domain.PoolRoute, error) {
	if mint == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.routes[mint]
	if !ok {
		return nil, storage.ErrNotFound
	}

	// Copy on read so callers cannot mutate stored state.
	cp := *r
	return &cp, nil
}

// Put persists a newly resolved route.
func (s *RouteStore) Put(_ context.Context, r *domain.PoolRoute) error {
	if r == nil || r.Mint == "" || r.PoolID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.routes[r.Mint]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *r
	s.routes[r.Mint] = &cp
	return nil
}

var _ storage.RouteStore = (*RouteStore)(nil)
