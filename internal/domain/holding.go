package domain

// Holding represents one token position owned by the wallet.
// Amount is expressed in UI units (raw amount scaled by Decimals).
type Holding struct {
	Mint           string   // token mint address, unique key
	TokenAccount   string   // SPL token account holding the balance
	Amount         float64  // current balance, UI units, >= 0
	Decimals       int      // token decimals
	CostBasis      *float64 // total SOL paid to acquire the position; nil until reconciled
	LastObservedAt int64    // Unix timestamp in milliseconds of the last refresh
}

// HasCostBasis reports whether acquisition evidence has been reconciled.
func (h Holding) HasCostBasis() bool {
	return h.CostBasis != nil && *h.CostBasis > 0
}

// AccountStats summarizes token accounts observed during a refresh that are
// not tracked as holdings.
type AccountStats struct {
	Vacant int // zero-balance accounts (fully exited, rent not reclaimed)
	Frozen int // accounts whose state is "frozen"
}
