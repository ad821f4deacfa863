package position

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"

	"solana-position-engine/internal/domain"
	"solana-position-engine/internal/observability"
	"solana-position-engine/internal/solana"
	"solana-position-engine/internal/storage"
)

// HistorySource is the settlement-history collaborator.
type HistorySource interface {
	Owner() string
	NewSignatures(ctx context.Context, until string) ([]string, error)
	Transactions(ctx context.Context, signatures []string) []*solana.ParsedTransaction
}

// Reconciler derives acquisition costs from confirmed settlement history.
// Each signature is consumed at most once: the newest-signature cursor bounds
// the history page and a processed set absorbs replays, so re-running a pass
// over already-seen signatures is a no-op.
type Reconciler struct {
	source HistorySource
	store  storage.CursorStore
	logger *log.Logger

	mu        sync.Mutex
	cursor    string
	processed map[string]struct{}
	pushed    []string // signatures delivered out of band, drained next pass
	loaded    bool
}

// ReconcilerOptions configures a Reconciler.
type ReconcilerOptions struct {
	Source HistorySource
	Store  storage.CursorStore
	Logger *log.Logger
}

// NewReconciler creates a Reconciler.
func NewReconciler(opts ReconcilerOptions) *Reconciler {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Reconciler{
		source:    opts.Source,
		store:     opts.Store,
		logger:    logger,
		processed: make(map[string]struct{}),
	}
}

// PushSignature queues a signature observed out of band, for example from a
// log subscription. It is merged into the next reconciliation pass and goes
// through the same dedup as polled signatures.
func (r *Reconciler) PushSignature(sig string) {
	if sig == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.processed[sig]; ok {
		return
	}
	r.pushed = append(r.pushed, sig)
}

// Reconcile fetches settlement history newer than the cursor, parses each
// transaction, and returns total SOL paid per acquired mint. Mints already
// carrying a cost basis are the tracker's concern; the reconciler reports
// everything it can prove. Per-transaction parse failures are skipped, never
// fatal.
func (r *Reconciler) Reconcile(ctx context.Context) (map[string]float64, error) {
	if err := r.restore(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	cursor := r.cursor
	pushed := r.pushed
	r.pushed = nil
	r.mu.Unlock()

	sigs, err := r.source.NewSignatures(ctx, cursor)
	if err != nil {
		// Pushed signatures go back on the queue for the next pass.
		r.mu.Lock()
		r.pushed = append(pushed, r.pushed...)
		r.mu.Unlock()
		return nil, fmt.Errorf("fetch settlement history: %w", err)
	}

	// Newest polled signature becomes the cursor even if some of the page is
	// already processed; pushed signatures never move the cursor.
	newCursor := cursor
	if len(sigs) > 0 {
		newCursor = sigs[0]
	}

	fresh := r.filterProcessed(ctx, append(sigs, pushed...))
	costs := make(map[string]float64)

	if len(fresh) > 0 {
		owner := r.source.Owner()
		for _, tx := range r.source.Transactions(ctx, fresh) {
			act := ParseActivity(tx, owner)
			if act.Kind == domain.ActivityAcquisition && act.CostPaid > 0 {
				costs[act.Mint] += act.CostPaid
				observability.DefaultMetrics.AcquisitionsParsed.Inc()
			}
		}
		observability.DefaultMetrics.SignaturesConsumed.Add(float64(len(fresh)))
	}

	r.advance(ctx, newCursor, fresh)
	return costs, nil
}

// restore loads the persisted cursor and processed set once per process.
func (r *Reconciler) restore(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded || r.store == nil {
		r.loaded = true
		return nil
	}

	cur, err := r.store.GetCursor(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("restore cursor: %w", err)
	}
	if cur != nil {
		r.cursor = cur.Signature
	}

	seen, err := r.store.LoadProcessed(ctx)
	if err != nil {
		return fmt.Errorf("restore processed set: %w", err)
	}
	for _, sig := range seen {
		r.processed[sig] = struct{}{}
	}

	r.loaded = true
	return nil
}

// filterProcessed returns the subset of signatures not yet consumed,
// preserving order and dropping duplicates within the batch. The in-memory
// set answers for this process; a signature it has not seen is checked
// against the store, which outlives restarts and hears from other writers.
func (r *Reconciler) filterProcessed(ctx context.Context, sigs []string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	fresh := make([]string, 0, len(sigs))
	batch := make(map[string]struct{}, len(sigs))
	for _, sig := range sigs {
		if _, ok := r.processed[sig]; ok {
			continue
		}
		if _, ok := batch[sig]; ok {
			continue
		}
		if r.store != nil {
			done, err := r.store.IsProcessed(ctx, sig)
			if err != nil {
				// Treated as fresh: replaying a signature reconciles to
				// the same cost, so over-processing is harmless.
				r.logger.Printf("check processed %s: %v", sig, err)
			} else if done {
				r.processed[sig] = struct{}{}
				continue
			}
		}
		batch[sig] = struct{}{}
		fresh = append(fresh, sig)
	}
	return fresh
}

// advance records consumed signatures and persists the cursor. Persistence
// failures are logged and tolerated; the in-memory set still protects this
// process, and a replayed signature after restart reconciles to the same cost.
func (r *Reconciler) advance(ctx context.Context, cursor string, consumed []string) {
	r.mu.Lock()
	for _, sig := range consumed {
		r.processed[sig] = struct{}{}
	}
	r.cursor = cursor
	r.mu.Unlock()

	if r.store == nil {
		return
	}
	for _, sig := range consumed {
		if err := r.store.MarkProcessed(ctx, sig); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			r.logger.Printf("mark processed %s: %v", sig, err)
		}
	}
	if cursor != "" {
		if err := r.store.SetCursor(ctx, &storage.ReconcileCursor{Signature: cursor}); err != nil {
			r.logger.Printf("persist cursor: %v", err)
		}
	}
}

// ParseActivity classifies one confirmed transaction from the wallet's point
// of view. An acquisition is a transaction where the wallet both sent SOL (an
// inner transfer authorized by the owner) and received tokens of some mint
// (a post token balance owned by the owner). Anything the parser cannot prove
// is ActivityOther, which costs nothing and is safe to ignore.
func ParseActivity(tx *solana.ParsedTransaction, owner string) domain.SettlementActivity {
	act := domain.SettlementActivity{
		Signature:  tx.Signature,
		Kind:       domain.ActivityOther,
		OccurredAt: tx.BlockTime,
	}

	var mint string
	var received float64
	for _, bal := range tx.PostTokenBalances {
		if bal.Owner == owner && bal.Mint != solana.WSOLMint {
			mint = bal.Mint
			received = bal.Amount.UIAmount
			break
		}
	}
	if mint == "" {
		return act
	}
	act.Mint = mint
	act.AmountReceived = received

	// Swaps move value through inner transfers: the leg the owner authorized
	// is the SOL paid, a leg authorized by someone else is the tokens coming
	// back from the pool.
	var paidLamports uint64
	var sawIncoming bool
	for _, in := range tx.InnerInstructions {
		if in.Type != "transfer" && in.Type != "transferChecked" {
			continue
		}
		if in.Info.Authority == owner {
			if paidLamports == 0 {
				paidLamports = transferLamports(in.Info)
			}
		} else if in.Info.Authority != "" {
			sawIncoming = true
		}
	}

	if paidLamports > 0 && sawIncoming {
		act.Kind = domain.ActivityAcquisition
		act.CostPaid = float64(paidLamports) / solana.LamportsPerSOL
	}
	return act
}

// transferLamports extracts the lamport value of a parsed transfer. System
// transfers carry lamports directly; SPL transfers of wrapped SOL carry the
// same value as a raw amount string.
func transferLamports(info solana.InstructionInfo) uint64 {
	if info.Lamports > 0 {
		return info.Lamports
	}
	n, err := strconv.ParseUint(info.Amount, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
