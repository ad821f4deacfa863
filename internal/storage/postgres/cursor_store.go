package postgres

import (
	"context"

	"solana-position-engine/internal/storage"
)

// CursorStore is a PostgreSQL implementation of storage.CursorStore.
// Uses two tables:
//   - reconcile_cursor: single row with the newest consumed signature
//   - processed_signatures: set of consumed signatures
type CursorStore struct {
	pool *Pool
}

// NewCursorStore creates a new PostgreSQL cursor store.
func NewCursorStore(pool *Pool) *CursorStore {
	return &CursorStore{pool: pool}
}

// GetCursor returns the saved cursor.
func (s *CursorStore) GetCursor(ctx context.Context) (*storage.ReconcileCursor, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT signature
		FROM reconcile_cursor
		LIMIT 1
	`)

	var cursor storage.ReconcileCursor
	if err := row.Scan(&cursor.Signature); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	return &cursor, nil
}

// SetCursor saves the cursor. Uses upsert to handle the initial insert and
// subsequent updates.
func (s *CursorStore) SetCursor(ctx context.Context, cursor *storage.ReconcileCursor) error {
	if cursor == nil || cursor.Signature == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO reconcile_cursor (id, signature, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE
		SET signature = EXCLUDED.signature,
		    updated_at = NOW()
	`, cursor.Signature)

	return err
}

// MarkProcessed records that a signature has been consumed.
func (s *CursorStore) MarkProcessed(ctx context.Context, signature string) error {
	if signature == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO processed_signatures (signature, processed_at)
		VALUES ($1, NOW())
		ON CONFLICT (signature) DO NOTHING
	`, signature)

	return err
}

// IsProcessed checks whether a signature has been consumed.
func (s *CursorStore) IsProcessed(ctx context.Context, signature string) (bool, error) {
	if signature == "" {
		return false, storage.ErrInvalidInput
	}

	row := s.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM processed_signatures WHERE signature = $1)
	`, signature)

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}

	return exists, nil
}

// LoadProcessed returns all consumed signatures.
func (s *CursorStore) LoadProcessed(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT signature FROM processed_signatures
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sigs []string
	for rows.Next() {
		var sig string
		if err := rows.Scan(&sig); err != nil {
			return nil, err
		}
		sigs = append(sigs, sig)
	}

	return sigs, rows.Err()
}

var _ storage.CursorStore = (*CursorStore)(nil)
