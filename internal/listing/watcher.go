// Package listing watches the venue program's log stream for new pool
// initializations. Each listing warms the route cache so the first quote for
// a fresh mint needs no on-chain scan, and can optionally open a small
// position in the new token.
package listing

import (
	"context"
	"log"
	"strings"
	"sync"

	"solana-position-engine/internal/domain"
	"solana-position-engine/internal/observability"
	"solana-position-engine/internal/solana"
	"solana-position-engine/internal/venue"
)

// Pool initialization markers in the venue program's logs.
var initMarkers = []string{"initialize2", "init_pc_amount"}

// RouteWarmer resolves and persists the route for a mint. Implemented by the
// route cache.
type RouteWarmer interface {
	Resolve(ctx context.Context, mint string) (*domain.PoolRoute, error)
}

// Options configures a Watcher.
type Options struct {
	WS        solana.WSClient
	RPC       solana.RPCClient
	Warmer    RouteWarmer
	Gateway   venue.Gateway
	ProgramID string
	Logger    *log.Logger

	// AutoBuySOL, when positive, buys this much SOL worth of every new
	// listing. Zero disables buying; the watcher only warms routes.
	AutoBuySOL float64
	// BuySlippageBps is the slippage tolerance for auto-buys.
	BuySlippageBps int
}

// Watcher consumes the log subscription until its context is canceled.
// Delivery is at least once; a signature set absorbs replays after
// reconnects.
type Watcher struct {
	ws        solana.WSClient
	rpc       solana.RPCClient
	warmer    RouteWarmer
	gateway   venue.Gateway
	programID string
	logger    *log.Logger

	autoBuySOL     float64
	buySlippageBps int

	mu   sync.Mutex
	seen map[string]struct{}
}

// New creates a Watcher.
func New(opts Options) *Watcher {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Watcher{
		ws:             opts.WS,
		rpc:            opts.RPC,
		warmer:         opts.Warmer,
		gateway:        opts.Gateway,
		programID:      opts.ProgramID,
		logger:         logger,
		autoBuySOL:     opts.AutoBuySOL,
		buySlippageBps: opts.BuySlippageBps,
		seen:           make(map[string]struct{}),
	}
}

// Run subscribes to venue program logs and processes notifications until ctx
// is canceled or the subscription channel closes.
func (w *Watcher) Run(ctx context.Context) error {
	ch, err := w.ws.SubscribeLogs(ctx, solana.LogsFilter{Mentions: []string{w.programID}})
	if err != nil {
		return err
	}
	w.logger.Printf("listing watcher: subscribed to %s", w.programID)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case notif, ok := <-ch:
			if !ok {
				return nil
			}
			w.handle(ctx, notif)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, notif solana.LogNotification) {
	if notif.Err != nil || !isInitialization(notif.Logs) {
		return
	}
	if !w.markSeen(notif.Signature) {
		return
	}
	observability.DefaultMetrics.ListingsSeen.Inc()

	tx, err := w.rpc.GetParsedTransaction(ctx, notif.Signature)
	if err != nil || tx == nil || tx.Failed {
		if err != nil {
			w.logger.Printf("listing %s: fetch failed: %v", notif.Signature, err)
		}
		return
	}

	mint := listedMint(tx)
	if mint == "" {
		return
	}
	w.logger.Printf("new listing: mint=%s sig=%s", mint, notif.Signature)

	r, err := w.warmer.Resolve(ctx, mint)
	if err != nil {
		w.logger.Printf("listing %s: route resolution failed: %v", mint, err)
		return
	}

	if w.autoBuySOL > 0 && w.gateway != nil {
		w.buy(ctx, r)
	}
}

// buy opens a small position in the new listing. Failures are logged only;
// a missed entry is not an error condition.
func (w *Watcher) buy(ctx context.Context, r *domain.PoolRoute) {
	result, err := w.gateway.Swap(ctx, venue.SwapRequest{
		Route:       r,
		Direction:   venue.DirectionBuy,
		AmountIn:    w.autoBuySOL,
		SlippageBps: w.buySlippageBps,
	})
	if err != nil {
		w.logger.Printf("auto-buy %s: %v", r.Mint, err)
		return
	}
	w.logger.Printf("auto-buy %s: %.6f SOL, sig=%s", r.Mint, w.autoBuySOL, result.Signature)
}

// markSeen reports whether the signature is new, recording it either way.
func (w *Watcher) markSeen(sig string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.seen[sig]; ok {
		return false
	}
	w.seen[sig] = struct{}{}
	return true
}

func isInitialization(logs []string) bool {
	for _, line := range logs {
		for _, marker := range initMarkers {
			if strings.Contains(line, marker) {
				return true
			}
		}
	}
	return false
}

// listedMint extracts the non-SOL mint funded by the initialization.
func listedMint(tx *solana.ParsedTransaction) string {
	for _, bal := range tx.PostTokenBalances {
		if bal.Mint != solana.WSOLMint && bal.Mint != "" {
			return bal.Mint
		}
	}
	return ""
}
