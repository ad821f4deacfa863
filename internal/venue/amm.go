package venue

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"solana-position-engine/internal/domain"
	"solana-position-engine/internal/solana"
	"solana-position-engine/internal/storage"
)

// swapFeeRate is the venue's taker fee applied to the input amount.
const swapFeeRate = 0.0025

// AMMOptions configures an AMMGateway.
type AMMOptions struct {
	RPC     solana.RPCClient
	Builder TxBuilder
	Logger  *log.Logger

	// MaxSendAttempts bounds transaction resubmission. Defaults to 3.
	MaxSendAttempts int
	// ConfirmTimeout bounds waiting for one submission to confirm.
	// Defaults to 30s.
	ConfirmTimeout time.Duration
	// ConfirmPollInterval is the status poll period. Defaults to 2s.
	ConfirmPollInterval time.Duration
}

// AMMGateway implements Gateway against a constant-product AMM. Reserves are
// read live from the pool vaults on every quote; nothing venue-side is cached.
type AMMGateway struct {
	rpc     solana.RPCClient
	builder TxBuilder
	logger  *log.Logger

	maxSendAttempts int
	confirmTimeout  time.Duration
	confirmPoll     time.Duration
}

// NewAMMGateway creates a gateway.
func NewAMMGateway(opts AMMOptions) *AMMGateway {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	g := &AMMGateway{
		rpc:             opts.RPC,
		builder:         opts.Builder,
		logger:          logger,
		maxSendAttempts: opts.MaxSendAttempts,
		confirmTimeout:  opts.ConfirmTimeout,
		confirmPoll:     opts.ConfirmPollInterval,
	}
	if g.maxSendAttempts <= 0 {
		g.maxSendAttempts = 3
	}
	if g.confirmTimeout <= 0 {
		g.confirmTimeout = 30 * time.Second
	}
	if g.confirmPoll <= 0 {
		g.confirmPoll = 2 * time.Second
	}
	return g
}

// Quote prices the request against live vault reserves.
func (g *AMMGateway) Quote(ctx context.Context, req SwapRequest) (domain.Quote, error) {
	if err := validateRequest(req); err != nil {
		return domain.Quote{State: domain.QuoteFailed}, err
	}

	reserveIn, reserveOut, err := g.reserves(ctx, req.Route, req.Direction)
	if err != nil {
		g.logger.Printf("quote %s: reserve fetch failed: %v", req.Route.Mint, err)
		return domain.Quote{State: domain.QuoteFailed}, nil
	}
	if reserveIn <= 0 || reserveOut <= 0 {
		return domain.Quote{State: domain.QuoteNoLiquidity}, nil
	}

	amountOut, impact := constantProductOut(req.AmountIn, reserveIn, reserveOut)
	if amountOut <= 0 || math.IsNaN(amountOut) || math.IsInf(amountOut, 0) {
		return domain.Quote{State: domain.QuoteNoLiquidity}, nil
	}

	return domain.Quote{
		State:          domain.QuoteValid,
		AmountOut:      amountOut,
		MinAmountOut:   amountOut * (1 - float64(req.SlippageBps)/10000),
		PriceImpactPct: impact,
	}, nil
}

// Swap quotes, builds, submits and confirms the request. Resubmission only
// happens after the previous signature is confirmed absent, so a swap can
// never land twice.
func (g *AMMGateway) Swap(ctx context.Context, req SwapRequest) (*SwapResult, error) {
	quote, err := g.Quote(ctx, req)
	if err != nil {
		return nil, err
	}
	if !quote.Usable() {
		return nil, fmt.Errorf("swap %s: quote unusable (%s)", req.Route.Mint, quote.State)
	}

	txBase64, err := g.builder.BuildSwap(ctx, req, quote.MinAmountOut)
	if err != nil {
		return nil, fmt.Errorf("build swap %s: %w", req.Route.Mint, err)
	}

	var lastSig string
	for attempt := 1; attempt <= g.maxSendAttempts; attempt++ {
		if lastSig != "" {
			// Confirm before retry: the previous submission may have landed
			// even though we never saw the confirmation.
			landed, err := g.checkLanded(ctx, lastSig)
			if err != nil {
				return nil, err
			}
			if landed {
				return &SwapResult{Signature: lastSig, Quote: quote}, nil
			}
		}

		sig, err := g.rpc.SendTransaction(ctx, txBase64)
		if err != nil {
			g.logger.Printf("swap %s attempt %d: send failed: %v", req.Route.Mint, attempt, err)
			continue
		}
		lastSig = sig

		confirmed, err := g.awaitConfirmation(ctx, sig)
		if err != nil {
			return nil, err
		}
		if confirmed {
			return &SwapResult{Signature: sig, Quote: quote}, nil
		}
		g.logger.Printf("swap %s attempt %d: %s not confirmed in %v", req.Route.Mint, attempt, sig, g.confirmTimeout)
	}

	return nil, fmt.Errorf("swap %s: not confirmed after %d attempts", req.Route.Mint, g.maxSendAttempts)
}

// reserves reads live balances of both vaults, oriented by swap direction.
// For a sell the in side is the token vault and the out side is the SOL vault.
func (g *AMMGateway) reserves(ctx context.Context, r *domain.PoolRoute, dir Direction) (float64, float64, error) {
	base, err := g.rpc.GetTokenAccountBalance(ctx, r.BaseVault)
	if err != nil {
		return 0, 0, fmt.Errorf("base vault %s: %w", r.BaseVault, err)
	}
	quote, err := g.rpc.GetTokenAccountBalance(ctx, r.QuoteVault)
	if err != nil {
		return 0, 0, fmt.Errorf("quote vault %s: %w", r.QuoteVault, err)
	}

	solReserve, tokenReserve := base.UIAmount, quote.UIAmount
	if r.BaseMint != solana.WSOLMint {
		solReserve, tokenReserve = quote.UIAmount, base.UIAmount
	}

	if dir == DirectionSell {
		return tokenReserve, solReserve, nil
	}
	return solReserve, tokenReserve, nil
}

// awaitConfirmation polls signature status until confirmed, failed on chain,
// or the confirm timeout elapses.
func (g *AMMGateway) awaitConfirmation(ctx context.Context, sig string) (bool, error) {
	deadline := time.Now().Add(g.confirmTimeout)
	ticker := time.NewTicker(g.confirmPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
		}

		statuses, err := g.rpc.GetSignatureStatuses(ctx, []string{sig})
		if err != nil {
			g.logger.Printf("status poll %s: %v", sig, err)
		} else if len(statuses) > 0 && statuses[0] != nil {
			if statuses[0].Confirmed() {
				return true, nil
			}
			if statuses[0].Err != nil {
				return false, fmt.Errorf("transaction %s failed on chain", sig)
			}
		}

		if time.Now().After(deadline) {
			return false, nil
		}
	}
}

// checkLanded does a single status lookup for a previously submitted
// signature. An RPC failure here is fatal for the swap: resubmitting without
// knowing the previous outcome risks a double execution.
func (g *AMMGateway) checkLanded(ctx context.Context, sig string) (bool, error) {
	statuses, err := g.rpc.GetSignatureStatuses(ctx, []string{sig})
	if err != nil {
		return false, fmt.Errorf("verify previous submission %s: %w", sig, err)
	}
	return len(statuses) > 0 && statuses[0].Confirmed(), nil
}

// constantProductOut applies the x*y=k curve with the venue fee and returns
// the output amount and the trade's price impact percentage.
func constantProductOut(amountIn, reserveIn, reserveOut float64) (float64, float64) {
	amountInWithFee := amountIn * (1 - swapFeeRate)
	amountOut := reserveOut * amountInWithFee / (reserveIn + amountInWithFee)

	spotPrice := reserveOut / reserveIn
	execPrice := amountOut / amountIn
	impact := (spotPrice - execPrice) / spotPrice * 100
	if impact < 0 {
		impact = 0
	}
	return amountOut, impact
}

func validateRequest(req SwapRequest) error {
	if req.Route == nil {
		return fmt.Errorf("%w: nil route", storage.ErrInvalidInput)
	}
	if req.AmountIn <= 0 {
		return fmt.Errorf("%w: amount in must be positive", storage.ErrInvalidInput)
	}
	if req.SlippageBps < 0 || req.SlippageBps > 10000 {
		return fmt.Errorf("%w: slippage bps out of range", storage.ErrInvalidInput)
	}
	return nil
}

var _ Gateway = (*AMMGateway)(nil)
