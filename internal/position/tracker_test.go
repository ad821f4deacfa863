package position

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-position-engine/internal/domain"
)

type fakeAccountSource struct {
	holdings []domain.Holding
	stats    domain.AccountStats
	err      error
}

func (f *fakeAccountSource) Holdings(context.Context) ([]domain.Holding, domain.AccountStats, error) {
	if f.err != nil {
		return nil, domain.AccountStats{}, f.err
	}
	return f.holdings, f.stats, nil
}

func (f *fakeAccountSource) Owner() string { return "owner" }

func snapshotByMint(tr *Tracker) map[string]domain.Holding {
	out := make(map[string]domain.Holding)
	for _, h := range tr.Snapshot() {
		out[h.Mint] = h
	}
	return out
}

func TestTracker_RefreshReplacesSet(t *testing.T) {
	src := &fakeAccountSource{holdings: []domain.Holding{
		{Mint: "a", Amount: 100},
		{Mint: "b", Amount: 200},
	}}
	tr := NewTracker(src, nil)
	require.NoError(t, tr.Refresh(context.Background()))
	require.Len(t, tr.Snapshot(), 2)

	// Mint b disappears: fully exited, dropped from the set.
	src.holdings = []domain.Holding{{Mint: "a", Amount: 50}}
	require.NoError(t, tr.Refresh(context.Background()))

	snap := snapshotByMint(tr)
	require.Len(t, snap, 1)
	assert.Equal(t, 50.0, snap["a"].Amount)
}

func TestTracker_FailedRefreshRetainsPrevious(t *testing.T) {
	src := &fakeAccountSource{holdings: []domain.Holding{{Mint: "a", Amount: 100}}}
	tr := NewTracker(src, nil)
	require.NoError(t, tr.Refresh(context.Background()))

	src.err = fmt.Errorf("rpc unavailable")
	err := tr.Refresh(context.Background())
	require.Error(t, err)

	snap := snapshotByMint(tr)
	require.Len(t, snap, 1, "previous snapshot survives a failed refresh")
	assert.Equal(t, 100.0, snap["a"].Amount)
}

func TestTracker_CostBasisSurvivesRefresh(t *testing.T) {
	src := &fakeAccountSource{holdings: []domain.Holding{{Mint: "a", Amount: 100}}}
	tr := NewTracker(src, nil)
	require.NoError(t, tr.Refresh(context.Background()))

	tr.ApplyCostBasis(map[string]float64{"a": 1.5})
	require.True(t, snapshotByMint(tr)["a"].HasCostBasis())

	// Balance changes; the reconciled cost carries forward.
	src.holdings = []domain.Holding{{Mint: "a", Amount: 80}}
	require.NoError(t, tr.Refresh(context.Background()))

	h := snapshotByMint(tr)["a"]
	require.True(t, h.HasCostBasis())
	assert.Equal(t, 1.5, *h.CostBasis)
	assert.Equal(t, 80.0, h.Amount)
}

func TestTracker_ApplyCostBasisRules(t *testing.T) {
	src := &fakeAccountSource{holdings: []domain.Holding{{Mint: "a", Amount: 100}}}
	tr := NewTracker(src, nil)
	require.NoError(t, tr.Refresh(context.Background()))

	// Untracked mints and non-positive costs are ignored.
	tr.ApplyCostBasis(map[string]float64{"unknown": 2.0, "a": 0})
	assert.False(t, snapshotByMint(tr)["a"].HasCostBasis())

	tr.ApplyCostBasis(map[string]float64{"a": 1.0})
	require.True(t, snapshotByMint(tr)["a"].HasCostBasis())

	// Once set, a cost basis is never overwritten.
	tr.ApplyCostBasis(map[string]float64{"a": 9.0})
	assert.Equal(t, 1.0, *snapshotByMint(tr)["a"].CostBasis)
}

func TestTracker_StatsFromRefresh(t *testing.T) {
	src := &fakeAccountSource{
		holdings: []domain.Holding{{Mint: "a", Amount: 100}},
		stats:    domain.AccountStats{Vacant: 3, Frozen: 1},
	}
	tr := NewTracker(src, nil)
	require.NoError(t, tr.Refresh(context.Background()))

	assert.Equal(t, domain.AccountStats{Vacant: 3, Frozen: 1}, tr.Stats())
}
