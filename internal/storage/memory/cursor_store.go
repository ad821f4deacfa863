package memory

import (
	"context"
	"sync"

	"solana-position-engine/internal/storage"
)

// CursorStore is an in-memory implementation of storage.CursorStore.
type CursorStore struct {
	mu        sync.RWMutex
	cursor    *storage.ReconcileCursor
	processed map[string]bool
}

// NewCursorStore creates a new in-memory cursor store.
func NewCursorStore() *CursorStore {
	return &CursorStore{
		processed: make(map[string]bool),
	}
}

// GetCursor returns the saved cursor.
func (s *CursorStore) GetCursor(_ context.Context) (*storage.ReconcileCursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cursor == nil {
		return nil, storage.ErrNotFound
	}

	return &storage.ReconcileCursor{Signature: s.cursor.Signature}, nil
}

// SetCursor saves the cursor.
func (s *CursorStore) SetCursor(_ context.Context, cursor *storage.ReconcileCursor) error {
	if cursor == nil || cursor.Signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cursor = &storage.ReconcileCursor{Signature: cursor.Signature}
	return nil
}

// MarkProcessed records that a signature has been consumed.
func (s *CursorStore) MarkProcessed(_ context.Context, signature string) error {
	if signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.processed[signature] = true
	return nil
}

// IsProcessed checks whether a signature has been consumed.
func (s *CursorStore) IsProcessed(_ context.Context, signature string) (bool, error) {
	if signature == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.processed[signature], nil
}

// LoadProcessed returns all consumed signatures.
func (s *CursorStore) LoadProcessed(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sigs := make([]string, 0, len(s.processed))
	for sig := range s.processed {
		sigs = append(sigs, sig)
	}
	return sigs, nil
}

var _ storage.CursorStore = (*CursorStore)(nil)
