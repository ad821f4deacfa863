// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Cycle metrics
	CyclesTotal   *prometheus.CounterVec
	CyclesSkipped prometheus.Counter
	CycleDuration prometheus.Histogram

	// Position metrics
	HoldingsTracked  prometheus.Gauge
	VacantAccounts   prometheus.Gauge
	FrozenAccounts   prometheus.Gauge
	CostBasisApplied prometheus.Counter

	// Reconciliation metrics
	SignaturesConsumed prometheus.Counter
	AcquisitionsParsed prometheus.Counter

	// Decision metrics
	ExitsExecuted   *prometheus.CounterVec
	HoldingsSkipped *prometheus.CounterVec
	SwapFailures    prometheus.Counter

	// Venue metrics
	QuotesIssued  *prometheus.CounterVec
	QuoteLatency  prometheus.Histogram
	RoutesCached  prometheus.Gauge
	RPCCallErrors *prometheus.CounterVec

	// Listing metrics
	ListingsSeen prometheus.Counter

	// Notification metrics
	NotificationsSent    prometheus.Counter
	NotificationsDropped prometheus.Counter

	// Health metrics
	LastSuccessfulCycle prometheus.Gauge
	WalletBalanceSOL    prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "position_engine"
	}

	return &Metrics{
		// Cycle metrics
		CyclesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "cycles_total",
			Help:      "Total number of decision cycles by status",
		}, []string{"status"}),
		CyclesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "cycles_skipped_total",
			Help:      "Total number of ticks skipped because a cycle was in flight",
		}),
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "cycle_duration_seconds",
			Help:      "Decision cycle duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),

		// Position metrics
		HoldingsTracked: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "position",
			Name:      "holdings_tracked",
			Help:      "Number of holdings in the current snapshot",
		}),
		VacantAccounts: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "position",
			Name:      "vacant_accounts",
			Help:      "Token accounts below the tracked balance floor",
		}),
		FrozenAccounts: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "position",
			Name:      "frozen_accounts",
			Help:      "Token accounts in frozen state",
		}),
		CostBasisApplied: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "position",
			Name:      "cost_basis_applied_total",
			Help:      "Total number of holdings that received a reconciled cost basis",
		}),

		// Reconciliation metrics
		SignaturesConsumed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "signatures_consumed_total",
			Help:      "Total number of settlement signatures consumed",
		}),
		AcquisitionsParsed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "acquisitions_parsed_total",
			Help:      "Total number of acquisition transactions parsed",
		}),

		// Decision metrics
		ExitsExecuted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "exits_executed_total",
			Help:      "Total number of executed exits by strategy",
		}, []string{"strategy"}),
		HoldingsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "holdings_skipped_total",
			Help:      "Total number of holdings skipped during evaluation by reason",
		}, []string{"reason"}),
		SwapFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "swap_failures_total",
			Help:      "Total number of swap executions that failed",
		}),

		// Venue metrics
		QuotesIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "venue",
			Name:      "quotes_issued_total",
			Help:      "Total number of quotes issued by state",
		}, []string{"state"}),
		QuoteLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "venue",
			Name:      "quote_latency_seconds",
			Help:      "Quote latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		RoutesCached: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "venue",
			Name:      "routes_cached",
			Help:      "Number of memoized pool routes",
		}),
		RPCCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_errors_total",
			Help:      "Total number of RPC call errors by method",
		}, []string{"method"}),

		// Listing metrics
		ListingsSeen: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listing",
			Name:      "listings_seen_total",
			Help:      "Total number of new pool listings observed",
		}),

		// Notification metrics
		NotificationsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "sent_total",
			Help:      "Total number of notifications delivered",
		}),
		NotificationsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "dropped_total",
			Help:      "Total number of notifications dropped due to a full queue",
		}),

		// Health metrics
		LastSuccessfulCycle: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_cycle_timestamp",
			Help:      "Unix timestamp of the last successful decision cycle",
		}),
		WalletBalanceSOL: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "wallet_balance_sol",
			Help:      "Wallet SOL balance in human units",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordCycle records one finished decision cycle.
func RecordCycle(status string, durationSeconds float64) {
	DefaultMetrics.CyclesTotal.WithLabelValues(status).Inc()
	DefaultMetrics.CycleDuration.Observe(durationSeconds)
}

// RecordCycleSkipped increments the skipped ticks counter.
func RecordCycleSkipped() {
	DefaultMetrics.CyclesSkipped.Inc()
}

// RecordExit records one executed exit.
func RecordExit(strategy string) {
	DefaultMetrics.ExitsExecuted.WithLabelValues(strategy).Inc()
}

// RecordSkip records a holding skipped during evaluation.
func RecordSkip(reason string) {
	DefaultMetrics.HoldingsSkipped.WithLabelValues(reason).Inc()
}

// RecordSwapFailure increments the swap failures counter.
func RecordSwapFailure() {
	DefaultMetrics.SwapFailures.Inc()
}

// RecordQuote records a quote outcome.
func RecordQuote(state string, seconds float64) {
	DefaultMetrics.QuotesIssued.WithLabelValues(state).Inc()
	DefaultMetrics.QuoteLatency.Observe(seconds)
}

// UpdatePositionStats updates the position gauges after a refresh.
func UpdatePositionStats(holdings, vacant, frozen int) {
	DefaultMetrics.HoldingsTracked.Set(float64(holdings))
	DefaultMetrics.VacantAccounts.Set(float64(vacant))
	DefaultMetrics.FrozenAccounts.Set(float64(frozen))
}
