// Package venue prices and executes swaps against a single AMM liquidity
// venue. Quoting is read-only math over live vault reserves; execution is
// delegated to an injected transaction builder so the venue never touches
// key material.
package venue

import (
	"context"

	"solana-position-engine/internal/domain"
)

// Direction of a swap relative to the tracked token.
type Direction string

const (
	// DirectionSell swaps token into SOL.
	DirectionSell Direction = "sell"
	// DirectionBuy swaps SOL into token.
	DirectionBuy Direction = "buy"
)

// SwapRequest describes one swap to price or execute.
type SwapRequest struct {
	Route       *domain.PoolRoute
	Direction   Direction
	AmountIn    float64 // UI units of the in-side asset
	SlippageBps int     // tolerated slippage in basis points
}

// SwapResult is the outcome of an executed swap.
type SwapResult struct {
	Signature string
	Quote     domain.Quote // quote the execution was based on
}

// Gateway is the venue surface the decision engine depends on.
type Gateway interface {
	// Quote prices a prospective swap without executing it. Venue-side
	// failure is reported in the quote's State, not as an error; an error
	// means the request itself was malformed.
	Quote(ctx context.Context, req SwapRequest) (domain.Quote, error)

	// Swap executes the request and waits for confirmation. A returned
	// error means the swap provably did not land; the caller reports it
	// and moves on without retrying in the same cycle.
	Swap(ctx context.Context, req SwapRequest) (*SwapResult, error)
}

// TxBuilder assembles and signs a swap transaction for the custodial wallet.
// Instruction encoding and key custody live behind this boundary.
type TxBuilder interface {
	// BuildSwap returns a base64-encoded signed transaction implementing
	// the request with the given minimum output.
	BuildSwap(ctx context.Context, req SwapRequest, minAmountOut float64) (string, error)
}
