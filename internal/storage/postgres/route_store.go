package postgres

import (
	"context"

	"solana-position-engine/internal/domain"
	"solana-position-engine/internal/storage"
)

// RouteStore is a PostgreSQL implementation of storage.RouteStore. Routes are
// insert-only; the unique constraint on mint enforces first-writer-wins.
type RouteStore struct {
	pool *Pool
}

// NewRouteStore creates a new PostgreSQL route store.
func NewRouteStore(pool *Pool) *RouteStore {
	return &RouteStore{pool: pool}
}

// Get retrieves the route for a mint.
func (s *RouteStore) Get(ctx context.Context, mint string) (*domain.PoolRoute, error) {
	if mint == "" {
		return nil, storage.ErrInvalidInput
	}

	row := s.pool.QueryRow(ctx, `
		SELECT mint, pool_id, base_mint, quote_mint, base_vault, quote_vault,
		       open_orders, market_id, program_id, base_decimals, quote_decimals,
		       created_at
		FROM pool_routes
		WHERE mint = $1
	`, mint)

	var r domain.PoolRoute
	err := row.Scan(&r.Mint, &r.PoolID, &r.BaseMint, &r.QuoteMint, &r.BaseVault,
		&r.QuoteVault, &r.OpenOrders, &r.MarketID, &r.ProgramID,
		&r.BaseDecimals, &r.QuoteDecimals, &r.CreatedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	return &r, nil
}

// Put persists a newly resolved route. Returns storage.ErrDuplicateKey when
// the mint already has one.
func (s *RouteStore) Put(ctx context.Context, r *domain.PoolRoute) error {
	if r == nil || r.Mint == "" || r.PoolID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO pool_routes (
			mint, pool_id, base_mint, quote_mint, base_vault, quote_vault,
			open_orders, market_id, program_id, base_decimals, quote_decimals,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, r.Mint, r.PoolID, r.BaseMint, r.QuoteMint, r.BaseVault, r.QuoteVault,
		r.OpenOrders, r.MarketID, r.ProgramID, r.BaseDecimals, r.QuoteDecimals,
		r.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return err
	}

	return nil
}

var _ storage.RouteStore = (*RouteStore)(nil)
