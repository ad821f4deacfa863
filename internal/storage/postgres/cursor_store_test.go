package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-position-engine/internal/storage"
)

func TestCursorStore_GetCursorEmpty(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCursorStore(pool)

	_, err := store.GetCursor(context.Background())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCursorStore_SetAndGetCursor(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCursorStore(pool)
	ctx := context.Background()

	require.NoError(t, store.SetCursor(ctx, &storage.ReconcileCursor{Signature: "sig1"}))

	cur, err := store.GetCursor(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sig1", cur.Signature)

	// Upsert replaces the single row.
	require.NoError(t, store.SetCursor(ctx, &storage.ReconcileCursor{Signature: "sig2"}))

	cur, err = store.GetCursor(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sig2", cur.Signature)
}

func TestCursorStore_SetCursorInvalid(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCursorStore(pool)
	ctx := context.Background()

	assert.ErrorIs(t, store.SetCursor(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.SetCursor(ctx, &storage.ReconcileCursor{}), storage.ErrInvalidInput)
}

func TestCursorStore_ProcessedSet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCursorStore(pool)
	ctx := context.Background()

	ok, err := store.IsProcessed(ctx, "sig1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.MarkProcessed(ctx, "sig1"))

	ok, err = store.IsProcessed(ctx, "sig1")
	require.NoError(t, err)
	assert.True(t, ok)

	// Marking again is a no-op, not an error.
	require.NoError(t, store.MarkProcessed(ctx, "sig1"))
}

func TestCursorStore_LoadProcessed(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCursorStore(pool)
	ctx := context.Background()

	require.NoError(t, store.MarkProcessed(ctx, "sig1"))
	require.NoError(t, store.MarkProcessed(ctx, "sig2"))
	require.NoError(t, store.MarkProcessed(ctx, "sig3"))

	sigs, err := store.LoadProcessed(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"sig1", "sig2", "sig3"}, sigs)
}
