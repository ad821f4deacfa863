// Package engine evaluates exit strategies against tracked holdings.
// Two strategies run per holding, mutually exclusive within a cycle: the
// protective exit fires on a collapsing pool regardless of cost basis, the
// profit target fires on reconciled gains. The engine decides and reports;
// it never retries a failed execution within the same cycle.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"solana-position-engine/internal/domain"
	"solana-position-engine/internal/observability"
	"solana-position-engine/internal/route"
	"solana-position-engine/internal/storage"
	"solana-position-engine/internal/venue"
)

// Skip reasons recorded in the exit journal and skip metrics.
const (
	ReasonNoRoute     = "no_route"
	ReasonQuoteFailed = "quote_failed"
	ReasonNoLiquidity = "no_liquidity"
	ReasonSwapFailed  = "swap_failed"
)

// StrategyConfig holds the decision thresholds.
type StrategyConfig struct {
	// ProbeDivisor sets the protective probe size as a fraction of the
	// holding: probe amount = holding / ProbeDivisor.
	ProbeDivisor float64
	// ProbeSlippageBps is the slippage tolerance for protective exits.
	// Deliberately wide: when the pool is collapsing, leaving matters more
	// than the price.
	ProbeSlippageBps int
	// ImpactCutoffPct is the probe price impact above which the position
	// is considered trapped and exited protectively.
	ImpactCutoffPct float64
	// DustFloorSOL is the minimum probe output worth acting on. Below it
	// the position is economically dead and not worth a transaction fee.
	DustFloorSOL float64
	// ProfitThresholdPct is the gain over cost basis that triggers the
	// profit-target exit.
	ProfitThresholdPct float64
	// DefaultSlippageBps is the slippage tolerance for profit-target exits.
	DefaultSlippageBps int
}

// DefaultStrategyConfig returns the production thresholds.
func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		ProbeDivisor:       100,
		ProbeSlippageBps:   5000,
		ImpactCutoffPct:    90,
		DustFloorSOL:       0.0001,
		ProfitThresholdPct: 10,
		DefaultSlippageBps: 50,
	}
}

// RouteResolver resolves the venue route for a mint.
type RouteResolver interface {
	Resolve(ctx context.Context, mint string) (*domain.PoolRoute, error)
}

// Notifier posts operator notifications without blocking.
type Notifier interface {
	Notify(title, body string)
}

// Options configures an Engine.
type Options struct {
	Resolver RouteResolver
	Gateway  venue.Gateway
	Journal  storage.ExitJournal
	Notifier Notifier
	Config   StrategyConfig
	Logger   *log.Logger
}

// Engine evaluates holdings one at a time. Safe for concurrent use; all
// state lives in the collaborators.
type Engine struct {
	resolver RouteResolver
	gateway  venue.Gateway
	journal  storage.ExitJournal
	notifier Notifier
	cfg      StrategyConfig
	logger   *log.Logger
}

// New creates an Engine. Zero thresholds in the config fall back to defaults.
func New(opts Options) *Engine {
	cfg := opts.Config
	def := DefaultStrategyConfig()
	if cfg.ProbeDivisor <= 0 {
		cfg.ProbeDivisor = def.ProbeDivisor
	}
	if cfg.ProbeSlippageBps <= 0 {
		cfg.ProbeSlippageBps = def.ProbeSlippageBps
	}
	if cfg.ImpactCutoffPct <= 0 {
		cfg.ImpactCutoffPct = def.ImpactCutoffPct
	}
	if cfg.DustFloorSOL <= 0 {
		cfg.DustFloorSOL = def.DustFloorSOL
	}
	if cfg.ProfitThresholdPct <= 0 {
		cfg.ProfitThresholdPct = def.ProfitThresholdPct
	}
	if cfg.DefaultSlippageBps <= 0 {
		cfg.DefaultSlippageBps = def.DefaultSlippageBps
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		resolver: opts.Resolver,
		gateway:  opts.Gateway,
		journal:  opts.Journal,
		notifier: opts.Notifier,
		cfg:      cfg,
		logger:   logger,
	}
}

// EvaluateHolding runs both strategies against one holding. At most one swap
// is executed. A failed swap is journaled and reported, never retried here;
// the next cycle re-evaluates from fresh state. The returned error is only
// non-nil for context cancellation.
func (e *Engine) EvaluateHolding(ctx context.Context, cycleSeq int64, h domain.Holding) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if h.Amount <= 0 {
		observability.RecordSkip("empty_balance")
		return nil
	}

	r, err := e.resolver.Resolve(ctx, h.Mint)
	if err != nil {
		if errors.Is(err, route.ErrNoRoute) {
			observability.RecordSkip(ReasonNoRoute)
			e.journalSkip(ctx, cycleSeq, h, ReasonNoRoute)
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		e.logger.Printf("resolve route %s: %v", h.Mint, err)
		observability.RecordSkip(ReasonNoRoute)
		return nil
	}

	fired, err := e.protectiveExit(ctx, cycleSeq, h, r)
	if err != nil || fired {
		return err
	}
	return e.profitTarget(ctx, cycleSeq, h, r)
}

// protectiveExit probes the pool with a small slice of the holding. A probe
// whose price impact exceeds the cutoff means the pool can no longer absorb
// the position; the probe slice itself is sold immediately at wide slippage
// to salvage what the pool will still pay out. Reports whether an exit was
// attempted, stopping the profit target from also firing this cycle.
func (e *Engine) protectiveExit(ctx context.Context, cycleSeq int64, h domain.Holding, r *domain.PoolRoute) (bool, error) {
	probe := venue.SwapRequest{
		Route:       r,
		Direction:   venue.DirectionSell,
		AmountIn:    h.Amount / e.cfg.ProbeDivisor,
		SlippageBps: e.cfg.ProbeSlippageBps,
	}

	quote, err := e.quote(ctx, probe)
	if err != nil {
		return false, err
	}
	if !quote.Usable() {
		reason := ReasonQuoteFailed
		if quote.State == domain.QuoteNoLiquidity {
			reason = ReasonNoLiquidity
		}
		observability.RecordSkip(reason)
		e.journalSkip(ctx, cycleSeq, h, reason)
		// Neither strategy can evaluate without a usable probe.
		return true, nil
	}

	if quote.PriceImpactPct <= e.cfg.ImpactCutoffPct || quote.AmountOut < e.cfg.DustFloorSOL {
		return false, nil
	}

	e.logger.Printf("protective exit: mint=%s probe_impact=%.2f%% probe_out=%.9f SOL",
		h.Mint, quote.PriceImpactPct, quote.AmountOut)

	e.execute(ctx, cycleSeq, h, probe, domain.StrategyProtective,
		fmt.Sprintf("probe impact %.2f%% above cutoff %.2f%%", quote.PriceImpactPct, e.cfg.ImpactCutoffPct))
	return true, nil
}

// profitTarget sells the full holding when its quoted value exceeds the
// reconciled cost basis by the configured threshold. Holdings without a cost
// basis are held; there is no evidence to take profit against.
func (e *Engine) profitTarget(ctx context.Context, cycleSeq int64, h domain.Holding, r *domain.PoolRoute) error {
	if !h.HasCostBasis() {
		observability.RecordSkip("no_cost_basis")
		return nil
	}

	req := venue.SwapRequest{
		Route:       r,
		Direction:   venue.DirectionSell,
		AmountIn:    h.Amount,
		SlippageBps: e.cfg.DefaultSlippageBps,
	}

	quote, err := e.quote(ctx, req)
	if err != nil {
		return err
	}
	if !quote.Usable() {
		reason := ReasonQuoteFailed
		if quote.State == domain.QuoteNoLiquidity {
			reason = ReasonNoLiquidity
		}
		observability.RecordSkip(reason)
		e.journalSkip(ctx, cycleSeq, h, reason)
		return nil
	}

	cost := *h.CostBasis
	gainPct := (quote.AmountOut - cost) / cost * 100
	if gainPct <= e.cfg.ProfitThresholdPct {
		return nil
	}

	e.logger.Printf("profit target: mint=%s gain=%.2f%% out=%.9f SOL cost=%.9f SOL",
		h.Mint, gainPct, quote.AmountOut, cost)
	e.execute(ctx, cycleSeq, h, req, domain.StrategyProfitTarget,
		fmt.Sprintf("gain %.2f%% above threshold %.2f%%", gainPct, e.cfg.ProfitThresholdPct))
	return nil
}

func (e *Engine) quote(ctx context.Context, req venue.SwapRequest) (domain.Quote, error) {
	start := time.Now()
	quote, err := e.gateway.Quote(ctx, req)
	observability.RecordQuote(string(quote.State), time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return quote, err
		}
		e.logger.Printf("quote %s: %v", req.Route.Mint, err)
		return domain.Quote{State: domain.QuoteFailed}, nil
	}
	return quote, nil
}

// execute runs the swap and journals the outcome either way.
func (e *Engine) execute(ctx context.Context, cycleSeq int64, h domain.Holding, req venue.SwapRequest, strategy, reason string) {
	rec := &domain.ExitRecord{
		CycleSeq:   cycleSeq,
		Mint:       h.Mint,
		Strategy:   strategy,
		AmountIn:   req.AmountIn,
		Reason:     reason,
		ExecutedAt: time.Now().UnixMilli(),
	}
	if h.CostBasis != nil {
		rec.CostBasis = *h.CostBasis
	}

	result, err := e.gateway.Swap(ctx, req)
	if err != nil {
		observability.RecordSwapFailure()
		e.logger.Printf("swap %s (%s) failed: %v", h.Mint, strategy, err)
		rec.Reason = fmt.Sprintf("%s; %s: %v", reason, ReasonSwapFailed, err)
		e.appendJournal(ctx, rec)
		e.notify("Swap failed", fmt.Sprintf("mint `%s`\nstrategy %s\n%v", h.Mint, strategy, err))
		return
	}

	rec.AmountOut = result.Quote.AmountOut
	rec.PriceImpact = result.Quote.PriceImpactPct
	rec.TxSignature = result.Signature
	observability.RecordExit(strategy)
	e.logger.Printf("exit executed: mint=%s strategy=%s sig=%s out=%.9f SOL",
		h.Mint, strategy, result.Signature, result.Quote.AmountOut)
	e.appendJournal(ctx, rec)
	e.notify("Position exited",
		fmt.Sprintf("mint `%s`\nstrategy %s\nsold %.6f for ~%.6f SOL\nsig `%s`",
			h.Mint, strategy, req.AmountIn, result.Quote.AmountOut, result.Signature))
}

// journalSkip records a holding the engine looked at but could not or would
// not act on. Below-threshold holds are not journaled; they are the steady
// state and tracked by metrics only.
func (e *Engine) journalSkip(ctx context.Context, cycleSeq int64, h domain.Holding, reason string) {
	rec := &domain.ExitRecord{
		CycleSeq:   cycleSeq,
		Mint:       h.Mint,
		AmountIn:   h.Amount,
		Reason:     reason,
		ExecutedAt: time.Now().UnixMilli(),
	}
	if h.CostBasis != nil {
		rec.CostBasis = *h.CostBasis
	}
	e.appendJournal(ctx, rec)
}

// appendJournal appends a record, tolerating journal unavailability. Losing a
// journal row must never stop an exit decision.
func (e *Engine) appendJournal(ctx context.Context, rec *domain.ExitRecord) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Insert(ctx, rec); err != nil {
		e.logger.Printf("journal insert %s: %v", rec.Mint, err)
	}
}

func (e *Engine) notify(title, body string) {
	if e.notifier != nil {
		e.notifier.Notify(title, body)
	}
}
