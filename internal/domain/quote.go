package domain

// QuoteState distinguishes a usable quote from the two venue-side conditions
// the decision engine must never compare numerically.
type QuoteState string

const (
	// QuoteValid means AmountOut and PriceImpactPct are usable numbers.
	QuoteValid QuoteState = "valid"
	// QuoteNoLiquidity means the pool cannot absorb the trade at all.
	QuoteNoLiquidity QuoteState = "no_liquidity"
	// QuoteFailed means the venue returned an error or undecodable data.
	QuoteFailed QuoteState = "failed"
)

// Quote is the transient result of pricing a prospective swap. Not persisted.
type Quote struct {
	State          QuoteState
	AmountOut      float64 // expected output, human units of the out-side asset
	MinAmountOut   float64 // AmountOut reduced by the requested slippage
	PriceImpactPct float64 // percentage degradation caused by the trade's own size
}

// Usable reports whether the quote's numbers may participate in comparisons.
func (q Quote) Usable() bool {
	return q.State == QuoteValid
}
