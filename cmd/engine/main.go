// Package main runs the position engine: periodic holding refresh, cost-basis
// reconciliation and exit-strategy evaluation against the liquidity venue,
// with an optional new-listing watcher.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"solana-position-engine/internal/config"
	"solana-position-engine/internal/engine"
	"solana-position-engine/internal/listing"
	"solana-position-engine/internal/notify"
	"solana-position-engine/internal/observability"
	"solana-position-engine/internal/position"
	"solana-position-engine/internal/route"
	"solana-position-engine/internal/scheduler"
	"solana-position-engine/internal/solana"
	"solana-position-engine/internal/storage"
	chstore "solana-position-engine/internal/storage/clickhouse"
	"solana-position-engine/internal/storage/memory"
	"solana-position-engine/internal/storage/migrations"
	pgstore "solana-position-engine/internal/storage/postgres"
	"solana-position-engine/internal/venue"
	"solana-position-engine/internal/wallet"
)

// stores holds the durable collaborators behind their interfaces.
type stores struct {
	routes  storage.RouteStore
	cursor  storage.CursorStore
	journal storage.ExitJournal
}

func main() {
	configPath := flag.String("config", "", "Path to TOML configuration file")
	rpcEndpoint := flag.String("rpc-endpoint", "", "Solana RPC HTTP endpoint (overrides config)")
	wsEndpoint := flag.String("ws-endpoint", "", "Solana WebSocket endpoint (overrides config)")
	owner := flag.String("owner", "", "Wallet address to manage (overrides config)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (overrides config)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (overrides config)")
	interval := flag.Duration("interval", 0, "Decision cycle interval (overrides config)")

	flag.Parse()

	logger := log.New(os.Stdout, "[engine] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	applyFlags(cfg, *rpcEndpoint, *wsEndpoint, *owner, *postgresDSN, *clickhouseDSN, *useMemory, *metricsAddr, *interval)
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, cleanup, err := createStores(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Handle shutdown signals
	done := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	go startHTTPServer(cfg.MetricsAddr, logger)

	err = run(ctx, cfg, st, logger)
	close(done)

	if err != nil && err != context.Canceled {
		logger.Fatalf("Engine error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// run wires the components and drives them until ctx is canceled.
func run(ctx context.Context, cfg *config.Config, st *stores, logger *log.Logger) error {
	rpc := solana.NewHTTPClient(cfg.RPC.Endpoint,
		solana.WithTimeout(cfg.RPC.Timeout),
		solana.WithMaxRetries(cfg.RPC.MaxRetries),
	)

	reader := wallet.NewReader(wallet.ReaderOptions{
		RPC:            rpc,
		Owner:          cfg.Wallet.Owner,
		BurnAddress:    cfg.Wallet.BurnAddress,
		SignatureLimit: cfg.Wallet.SignatureLimit,
		Logger:         log.New(os.Stdout, "[wallet] ", log.LstdFlags),
	})

	tracker := position.NewTracker(reader, log.New(os.Stdout, "[position] ", log.LstdFlags))
	reconciler := position.NewReconciler(position.ReconcilerOptions{
		Source: reader,
		Store:  st.cursor,
		Logger: log.New(os.Stdout, "[reconcile] ", log.LstdFlags),
	})

	discoverer := venue.NewPoolDiscoverer(rpc, cfg.Venue.ProgramID,
		log.New(os.Stdout, "[venue] ", log.LstdFlags))
	routes := route.NewCache(route.CacheOptions{
		Store:      st.routes,
		Discoverer: discoverer,
		Logger:     log.New(os.Stdout, "[route] ", log.LstdFlags),
	})

	gateway := venue.NewAMMGateway(venue.AMMOptions{
		RPC:             rpc,
		Builder:         venue.NewHTTPBuilder(cfg.Venue.BuilderURL, cfg.Venue.BuilderTimeout),
		Logger:          log.New(os.Stdout, "[venue] ", log.LstdFlags),
		MaxSendAttempts: cfg.Venue.MaxSendAttempts,
		ConfirmTimeout:  cfg.Venue.ConfirmTimeout,
	})

	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	notifier := notify.NewNotifier(senders, cfg.Notify.QueueSize,
		log.New(os.Stdout, "[notify] ", log.LstdFlags))
	defer notifier.Close()

	eng := engine.New(engine.Options{
		Resolver: routes,
		Gateway:  gateway,
		Journal:  st.journal,
		Notifier: notifier,
		Config: engine.StrategyConfig{
			ProbeDivisor:       cfg.Strategy.ProbeDivisor,
			ProbeSlippageBps:   cfg.Strategy.ProbeSlippageBps,
			ImpactCutoffPct:    cfg.Strategy.ImpactCutoffPct,
			DustFloorSOL:       cfg.Strategy.DustFloorSOL,
			ProfitThresholdPct: cfg.Strategy.ProfitThresholdPct,
			DefaultSlippageBps: cfg.Strategy.DefaultSlippageBps,
		},
		Logger: log.New(os.Stdout, "[decision] ", log.LstdFlags),
	})

	sched := scheduler.New(scheduler.Options{
		Tracker:      tracker,
		Reconciler:   reconciler,
		Evaluator:    eng,
		Notifier:     notifier,
		Logger:       log.New(os.Stdout, "[scheduler] ", log.LstdFlags),
		Interval:     cfg.Scheduler.Interval,
		CycleTimeout: cfg.Scheduler.CycleTimeout,
		FanOut:       cfg.Scheduler.FanOut,
	})

	logger.Printf("Managing wallet %s against venue %s, cycle every %v",
		cfg.Wallet.Owner, cfg.Venue.ProgramID, cfg.Scheduler.Interval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sched.Run(gctx) })
	g.Go(func() error { return runSummary(gctx, reader, tracker, notifier) })

	if cfg.RPC.WSEndpoint != "" {
		ws, err := solana.NewWSClient(ctx, cfg.RPC.WSEndpoint, nil)
		if err != nil {
			return fmt.Errorf("connect websocket: %w", err)
		}
		defer ws.Close()

		feed := wallet.NewSignatureFeed(ws, cfg.Wallet.Owner, reconciler,
			log.New(os.Stdout, "[feed] ", log.LstdFlags))
		g.Go(func() error { return feed.Run(gctx) })

		if cfg.Listing.Enabled {
			watcher := listing.New(listing.Options{
				WS:             ws,
				RPC:            rpc,
				Warmer:         routes,
				Gateway:        gateway,
				ProgramID:      cfg.Venue.ProgramID,
				Logger:         log.New(os.Stdout, "[listing] ", log.LstdFlags),
				AutoBuySOL:     cfg.Listing.AutoBuySOL,
				BuySlippageBps: cfg.Listing.BuySlippageBps,
			})
			g.Go(func() error { return watcher.Run(gctx) })
		}
	}

	return g.Wait()
}

// summaryInterval is how often the wallet summary is reported.
const summaryInterval = time.Hour

// runSummary periodically reads the wallet balance, updates the balance gauge
// and posts a holdings summary notification.
func runSummary(ctx context.Context, reader *wallet.Reader, tracker *position.Tracker, notifier *notify.Notifier) error {
	ticker := time.NewTicker(summaryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		balance, err := reader.Balance(ctx)
		if err != nil {
			continue
		}
		observability.DefaultMetrics.WalletBalanceSOL.Set(balance)

		snapshot := tracker.Snapshot()
		notifier.Notify("Wallet summary",
			fmt.Sprintf("%d holdings tracked, balance %.4f SOL", len(snapshot), balance))
	}
}

// applyFlags overlays non-empty flag values on the loaded config.
func applyFlags(cfg *config.Config, rpcEndpoint, wsEndpoint, owner, postgresDSN, clickhouseDSN string, useMemory bool, metricsAddr string, interval time.Duration) {
	if rpcEndpoint != "" {
		cfg.RPC.Endpoint = rpcEndpoint
	}
	if wsEndpoint != "" {
		cfg.RPC.WSEndpoint = wsEndpoint
	}
	if owner != "" {
		cfg.Wallet.Owner = owner
	}
	if postgresDSN != "" {
		cfg.Postgres.DSN = postgresDSN
	}
	if clickhouseDSN != "" {
		cfg.ClickHouse.DSN = clickhouseDSN
	}
	if useMemory {
		cfg.UseMemory = true
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}
	if interval > 0 {
		cfg.Scheduler.Interval = interval
	}
}

// createStores creates the durable stores, running migrations first.
func createStores(ctx context.Context, cfg *config.Config) (*stores, func(), error) {
	if cfg.UseMemory {
		return &stores{
			routes:  memory.NewRouteStore(),
			cursor:  memory.NewCursorStore(),
			journal: memory.NewExitJournal(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.PoolMaxConns)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
	}

	cleanup := func() {
		pool.Close()
		chConn.Close()
	}
	return &stores{
		routes:  pgstore.NewRouteStore(pool),
		cursor:  pgstore.NewCursorStore(pool),
		journal: chstore.NewExitJournal(chConn),
	}, cleanup, nil
}

// startHTTPServer serves /metrics and /health.
func startHTTPServer(addr string, logger *log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	logger.Printf("HTTP server listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Printf("HTTP server error: %v", err)
	}
}
