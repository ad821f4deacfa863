// Package scheduler drives the periodic decision cycle. Cycles never overlap:
// a tick that arrives while a cycle is in flight is dropped, not queued, so a
// slow venue can stretch the effective period but never stack work.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"solana-position-engine/internal/domain"
	"solana-position-engine/internal/observability"
)

// Defaults applied when options are zero.
const (
	DefaultInterval     = 5 * time.Second
	DefaultCycleTimeout = 2 * time.Minute
	DefaultFanOut       = 4
)

// PositionTracker is the holdings side of a cycle.
type PositionTracker interface {
	Refresh(ctx context.Context) error
	ApplyCostBasis(costs map[string]float64)
	Snapshot() []domain.Holding
	Stats() domain.AccountStats
}

// CostReconciler derives acquisition costs from settlement history.
type CostReconciler interface {
	Reconcile(ctx context.Context) (map[string]float64, error)
}

// Evaluator decides and executes exits for one holding.
type Evaluator interface {
	EvaluateHolding(ctx context.Context, cycleSeq int64, h domain.Holding) error
}

// Notifier reports cycle failures to the operator. Implementations must not
// block.
type Notifier interface {
	Notify(title, body string)
}

// Options configures a Scheduler.
type Options struct {
	Tracker    PositionTracker
	Reconciler CostReconciler
	Evaluator  Evaluator
	Notifier   Notifier // optional
	Logger     *log.Logger

	// Interval between cycle starts.
	Interval time.Duration
	// CycleTimeout bounds one full cycle. A stuck RPC or venue call fails
	// the cycle instead of wedging the guard forever.
	CycleTimeout time.Duration
	// FanOut caps concurrent holding evaluations within a cycle.
	FanOut int
}

// Scheduler runs decision cycles until its context is canceled.
type Scheduler struct {
	tracker    PositionTracker
	reconciler CostReconciler
	evaluator  Evaluator
	notifier   Notifier
	logger     *log.Logger

	interval     time.Duration
	cycleTimeout time.Duration
	fanOut       int

	running  atomic.Bool // guard: one cycle in flight at a time
	cycleSeq atomic.Int64
}

// New creates a Scheduler.
func New(opts Options) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	s := &Scheduler{
		tracker:      opts.Tracker,
		reconciler:   opts.Reconciler,
		evaluator:    opts.Evaluator,
		notifier:     opts.Notifier,
		logger:       logger,
		interval:     opts.Interval,
		cycleTimeout: opts.CycleTimeout,
		fanOut:       opts.FanOut,
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	if s.cycleTimeout <= 0 {
		s.cycleTimeout = DefaultCycleTimeout
	}
	if s.fanOut <= 0 {
		s.fanOut = DefaultFanOut
	}
	return s
}

// Run executes cycles on the configured interval until ctx is canceled.
// The first cycle starts immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one cycle unless one is already in flight.
func (s *Scheduler) tick(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		observability.RecordCycleSkipped()
		return
	}
	defer s.running.Store(false)

	seq := s.cycleSeq.Add(1)
	start := time.Now()

	cycleCtx, cancel := context.WithTimeout(ctx, s.cycleTimeout)
	defer cancel()

	if err := s.runCycle(cycleCtx, seq); err != nil {
		observability.RecordCycle("failed", time.Since(start).Seconds())
		s.logger.Printf("cycle %d failed after %v: %v", seq, time.Since(start), err)
		if s.notifier != nil {
			s.notifier.Notify("Cycle failed", fmt.Sprintf("cycle %d: %v", seq, err))
		}
		return
	}
	observability.RecordCycle("ok", time.Since(start).Seconds())
	observability.DefaultMetrics.LastSuccessfulCycle.Set(float64(time.Now().Unix()))
}

// runCycle is one full pass: refresh holdings, reconcile cost basis, then
// evaluate every holding of the snapshot with bounded concurrency.
func (s *Scheduler) runCycle(ctx context.Context, seq int64) error {
	if err := s.tracker.Refresh(ctx); err != nil {
		// Previous snapshot is retained; deciding on stale balances is
		// worse than skipping a beat.
		return err
	}

	costs, err := s.reconciler.Reconcile(ctx)
	if err != nil {
		// Holdings are fresh even if history is unavailable; the
		// protective strategy needs no cost basis, so the cycle goes on.
		s.logger.Printf("cycle %d: reconcile: %v", seq, err)
	} else {
		s.tracker.ApplyCostBasis(costs)
	}

	snapshot := s.tracker.Snapshot()
	stats := s.tracker.Stats()
	observability.UpdatePositionStats(len(snapshot), stats.Vacant, stats.Frozen)

	if len(snapshot) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fanOut)
	for _, h := range snapshot {
		g.Go(func() error {
			return s.evaluator.EvaluateHolding(gctx, seq, h)
		})
	}
	return g.Wait()
}
