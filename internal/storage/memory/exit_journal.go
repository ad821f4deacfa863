package memory

import (
	"context"
	"sort"
	"sync"

	"solana-position-engine/internal/domain"
	"solana-position-engine/internal/storage"
)

// ExitJournal is an in-memory implementation of storage.ExitJournal.
type ExitJournal struct {
	mu      sync.RWMutex
	records []*domain.ExitRecord
}

// NewExitJournal creates a new in-memory exit journal.
func NewExitJournal() *ExitJournal {
	return &ExitJournal{}
}

// Insert appends one record.
func (j *ExitJournal) Insert(_ context.Context, rec *domain.ExitRecord) error {
	if rec == nil || rec.Mint == "" {
		return storage.ErrInvalidInput
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	cp := *rec
	j.records = append(j.records, &cp)
	return nil
}

// GetByMint retrieves all records for a mint, ordered by execution time.
func (j *ExitJournal) GetByMint(_ context.Context, mint string) ([]*domain.ExitRecord, error) {
	if mint == "" {
		return nil, storage.ErrInvalidInput
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	var out []*domain.ExitRecord
	for _, rec := range j.records {
		if rec.Mint == mint {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, k int) bool {
		return out[i].ExecutedAt < out[k].ExecutedAt
	})
	return out, nil
}

var _ storage.ExitJournal = (*ExitJournal)(nil)
