package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-position-engine/internal/domain"
	"solana-position-engine/internal/storage"
)

func TestExitJournal_InsertAndGetByMint(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	journal := NewExitJournal(conn)
	ctx := context.Background()

	rec := &domain.ExitRecord{
		CycleSeq:    42,
		Mint:        "MintA",
		Strategy:    domain.StrategyProtective,
		AmountIn:    1000,
		AmountOut:   0.0042,
		PriceImpact: 94.5,
		CostBasis:   0.5,
		TxSignature: "ExitSig123",
		Reason:      "price impact above cutoff",
		ExecutedAt:  1700000000123,
	}
	require.NoError(t, journal.Insert(ctx, rec))

	records, err := journal.GetByMint(ctx, "MintA")
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	assert.Equal(t, int64(42), got.CycleSeq)
	assert.Equal(t, domain.StrategyProtective, got.Strategy)
	assert.Equal(t, 1000.0, got.AmountIn)
	assert.Equal(t, 94.5, got.PriceImpact)
	assert.Equal(t, "ExitSig123", got.TxSignature)
	assert.Equal(t, int64(1700000000123), got.ExecutedAt, "millisecond precision survives the round trip")
}

func TestExitJournal_OrderedByExecutionTime(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	journal := NewExitJournal(conn)
	ctx := context.Background()

	for i, ts := range []int64{1700000003000, 1700000001000, 1700000002000} {
		require.NoError(t, journal.Insert(ctx, &domain.ExitRecord{
			CycleSeq:   int64(i),
			Mint:       "MintA",
			Strategy:   domain.StrategyProfitTarget,
			ExecutedAt: ts,
		}))
	}

	records, err := journal.GetByMint(ctx, "MintA")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, int64(1700000001000), records[0].ExecutedAt)
	assert.Equal(t, int64(1700000002000), records[1].ExecutedAt)
	assert.Equal(t, int64(1700000003000), records[2].ExecutedAt)
}

func TestExitJournal_MintIsolation(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	journal := NewExitJournal(conn)
	ctx := context.Background()

	require.NoError(t, journal.Insert(ctx, &domain.ExitRecord{Mint: "MintA", ExecutedAt: 1}))
	require.NoError(t, journal.Insert(ctx, &domain.ExitRecord{Mint: "MintB", ExecutedAt: 2}))

	records, err := journal.GetByMint(ctx, "MintB")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "MintB", records[0].Mint)
}

func TestExitJournal_InvalidInput(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	journal := NewExitJournal(conn)
	ctx := context.Background()

	assert.ErrorIs(t, journal.Insert(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, journal.Insert(ctx, &domain.ExitRecord{}), storage.ErrInvalidInput)

	_, err := journal.GetByMint(ctx, "")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
