package domain

// PoolRoute is the venue routing metadata for a single mint. Immutable once
// resolved: a pool's identity never changes, only its reserves, which are
// fetched per-quote and never cached here.
type PoolRoute struct {
	Mint          string // token mint this route prices
	PoolID        string // AMM pool account
	BaseMint      string // pool base mint
	QuoteMint     string // pool quote mint
	BaseVault     string // pool base token vault
	QuoteVault    string // pool quote token vault
	OpenOrders    string // pool open-orders account
	MarketID      string // serum market account
	ProgramID     string // AMM program that owns the pool
	BaseDecimals  int
	QuoteDecimals int
	CreatedAt     int64 // Unix timestamp in milliseconds of first resolution
}

// TokenSide returns the mint and decimals of the non-SOL side of the pool.
func (r PoolRoute) TokenSide(wsolMint string) (string, int) {
	if r.BaseMint == wsolMint {
		return r.QuoteMint, r.QuoteDecimals
	}
	return r.BaseMint, r.BaseDecimals
}
