package storage

import (
	"context"

	"solana-position-engine/internal/domain"
)

// RouteStore provides durable pool-route storage keyed by mint.
type RouteStore interface {
	// Get retrieves the route for a mint. Returns ErrNotFound if no route
	// has been persisted.
	Get(ctx context.Context, mint string) (*domain.PoolRoute, error)

	// Put persists a newly resolved route. Returns ErrDuplicateKey if a
	// route for the mint already exists; the caller re-reads and keeps the
	// first writer's record.
	Put(ctx context.Context, route *domain.PoolRoute) error
}

// ReconcileCursor is the last processed position in the wallet's settlement
// history. The cursor never rewinds.
type ReconcileCursor struct {
	Signature string // newest signature consumed by the reconciler
}

// CursorStore persists reconciliation progress so restarts neither reprocess
// nor duplicate settlement activity.
type CursorStore interface {
	// GetCursor returns the saved cursor. Returns ErrNotFound before the
	// first reconciliation pass completes.
	GetCursor(ctx context.Context) (*ReconcileCursor, error)

	// SetCursor saves the cursor, replacing any previous value.
	SetCursor(ctx context.Context, cursor *ReconcileCursor) error

	// MarkProcessed records that a signature has been consumed. Marking the
	// same signature twice is not an error.
	MarkProcessed(ctx context.Context, signature string) error

	// IsProcessed checks whether a signature has been consumed.
	IsProcessed(ctx context.Context, signature string) (bool, error)

	// LoadProcessed returns all consumed signatures, for warming the
	// reconciler's in-memory dedup set at startup.
	LoadProcessed(ctx context.Context) ([]string, error)
}

// ExitJournal is the append-only record of decision outcomes.
type ExitJournal interface {
	// Insert appends one record. The journal is append-only; records are
	// never updated.
	Insert(ctx context.Context, rec *domain.ExitRecord) error

	// GetByMint retrieves all records for a mint, ordered by ExecutedAt ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.ExitRecord, error)
}
