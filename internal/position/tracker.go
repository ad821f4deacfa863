// Package position maintains the authoritative in-memory view of the
// wallet's holdings and reconciles their cost basis from settlement history.
package position

import (
	"context"
	"fmt"
	"log"
	"sync"

	"solana-position-engine/internal/domain"
	"solana-position-engine/internal/observability"
)

// AccountSource is the confirmed account-state collaborator.
type AccountSource interface {
	Holdings(ctx context.Context) ([]domain.Holding, domain.AccountStats, error)
	Owner() string
}

// Tracker owns the holdings set. It is mutated only at well-defined points of
// a scheduler cycle: Refresh replaces the set atomically, ApplyCostBasis
// merges reconciler output. The decision engine only ever sees snapshots.
type Tracker struct {
	source AccountSource
	logger *log.Logger

	mu       sync.RWMutex
	holdings map[string]domain.Holding
	stats    domain.AccountStats
}

// NewTracker creates a Tracker backed by the given account source.
func NewTracker(source AccountSource, logger *log.Logger) *Tracker {
	if logger == nil {
		logger = log.Default()
	}
	return &Tracker{
		source:   source,
		logger:   logger,
		holdings: make(map[string]domain.Holding),
	}
}

// Refresh replaces the holdings set from the account source. Cost basis
// already reconciled for a mint survives the refresh. If the read fails the
// previous set is retained unchanged and the error is returned so the cycle
// can be marked failed.
func (t *Tracker) Refresh(ctx context.Context) error {
	fresh, stats, err := t.source.Holdings(ctx)
	if err != nil {
		return fmt.Errorf("refresh holdings: %w", err)
	}

	next := make(map[string]domain.Holding, len(fresh))
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, h := range fresh {
		if prev, ok := t.holdings[h.Mint]; ok {
			h.CostBasis = prev.CostBasis
		}
		next[h.Mint] = h
	}

	// Atomic replacement: mints absent from the fresh read are dropped,
	// interpreted as fully exited.
	t.holdings = next
	t.stats = stats
	return nil
}

// ApplyCostBasis merges reconciled acquisition costs into tracked holdings.
// A cost is only set when the holding has none yet; it is never decreased.
func (t *Tracker) ApplyCostBasis(costs map[string]float64) {
	if len(costs) == 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for mint, cost := range costs {
		h, ok := t.holdings[mint]
		if !ok || cost <= 0 {
			continue
		}
		if h.CostBasis != nil {
			continue
		}
		c := cost
		h.CostBasis = &c
		t.holdings[mint] = h
		observability.DefaultMetrics.CostBasisApplied.Inc()
		t.logger.Printf("cost basis reconciled: mint=%s cost=%.9f SOL", mint, cost)
	}
}

// Snapshot returns a copy of the current holdings.
func (t *Tracker) Snapshot() []domain.Holding {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]domain.Holding, 0, len(t.holdings))
	for _, h := range t.holdings {
		out = append(out, h)
	}
	return out
}

// Stats returns account stats from the most recent successful refresh.
func (t *Tracker) Stats() domain.AccountStats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stats
}
