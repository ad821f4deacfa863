// Package config defines the engine's configuration and validation helpers.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by ENGINE_* environment variables.
type Config struct {
	RPC        RPCConfig        `toml:"rpc"`
	Wallet     WalletConfig     `toml:"wallet"`
	Postgres   PostgresConfig   `toml:"postgres"`
	ClickHouse ClickHouseConfig `toml:"clickhouse"`
	Venue      VenueConfig      `toml:"venue"`
	Strategy   StrategyConfig   `toml:"strategy"`
	Scheduler  SchedulerConfig  `toml:"scheduler"`
	Listing    ListingConfig    `toml:"listing"`
	Notify     NotifyConfig     `toml:"notify"`

	// MetricsAddr is the listen address of the /metrics and /health server.
	MetricsAddr string `toml:"metrics_addr"`
	// UseMemory swaps all durable storage for in-memory implementations.
	UseMemory bool `toml:"use_memory"`
}

// RPCConfig holds Solana RPC endpoints.
type RPCConfig struct {
	Endpoint   string        `toml:"endpoint"`
	WSEndpoint string        `toml:"ws_endpoint"`
	Timeout    time.Duration `toml:"timeout"`
	MaxRetries int           `toml:"max_retries"`
}

// WalletConfig identifies the custodial wallet. Key material never appears
// here; signing happens in the transaction builder service.
type WalletConfig struct {
	Owner          string `toml:"owner"`
	BurnAddress    string `toml:"burn_address"`
	SignatureLimit int    `toml:"signature_limit"`
}

// PostgresConfig holds route and cursor store connection parameters.
type PostgresConfig struct {
	DSN          string `toml:"dsn"`
	PoolMaxConns int    `toml:"pool_max_conns"`
}

// ClickHouseConfig holds exit journal connection parameters.
type ClickHouseConfig struct {
	DSN string `toml:"dsn"`
}

// VenueConfig identifies the liquidity venue and its transaction builder.
type VenueConfig struct {
	ProgramID       string        `toml:"program_id"`
	BuilderURL      string        `toml:"builder_url"`
	BuilderTimeout  time.Duration `toml:"builder_timeout"`
	MaxSendAttempts int           `toml:"max_send_attempts"`
	ConfirmTimeout  time.Duration `toml:"confirm_timeout"`
}

// StrategyConfig holds the decision thresholds. Zero values fall back to the
// engine defaults.
type StrategyConfig struct {
	ProbeDivisor       float64 `toml:"probe_divisor"`
	ProbeSlippageBps   int     `toml:"probe_slippage_bps"`
	ImpactCutoffPct    float64 `toml:"impact_cutoff_pct"`
	DustFloorSOL       float64 `toml:"dust_floor_sol"`
	ProfitThresholdPct float64 `toml:"profit_threshold_pct"`
	DefaultSlippageBps int     `toml:"default_slippage_bps"`
}

// SchedulerConfig holds cycle timing parameters.
type SchedulerConfig struct {
	Interval     time.Duration `toml:"interval"`
	CycleTimeout time.Duration `toml:"cycle_timeout"`
	FanOut       int           `toml:"fan_out"`
}

// ListingConfig controls the new-listing watcher.
type ListingConfig struct {
	Enabled        bool    `toml:"enabled"`
	AutoBuySOL     float64 `toml:"auto_buy_sol"`
	BuySlippageBps int     `toml:"buy_slippage_bps"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken  string `toml:"telegram_token"`
	TelegramChatID string `toml:"telegram_chat_id"`
	QueueSize      int    `toml:"queue_size"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		RPC: RPCConfig{
			Endpoint:   "https://api.mainnet-beta.solana.com",
			WSEndpoint: "wss://api.mainnet-beta.solana.com",
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
		Wallet: WalletConfig{
			SignatureLimit: 100,
		},
		Postgres: PostgresConfig{
			PoolMaxConns: 10,
		},
		Venue: VenueConfig{
			ProgramID:       "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8",
			BuilderTimeout:  10 * time.Second,
			MaxSendAttempts: 3,
			ConfirmTimeout:  30 * time.Second,
		},
		Strategy: StrategyConfig{
			ProbeDivisor:       100,
			ProbeSlippageBps:   5000,
			ImpactCutoffPct:    90,
			DustFloorSOL:       0.0001,
			ProfitThresholdPct: 10,
			DefaultSlippageBps: 50,
		},
		Scheduler: SchedulerConfig{
			Interval:     5 * time.Second,
			CycleTimeout: 2 * time.Minute,
			FanOut:       4,
		},
		Listing: ListingConfig{
			BuySlippageBps: 500,
		},
		Notify: NotifyConfig{
			QueueSize: 64,
		},
		MetricsAddr: ":9090",
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.RPC.Endpoint == "" {
		return fmt.Errorf("rpc.endpoint is required")
	}
	if c.Wallet.Owner == "" {
		return fmt.Errorf("wallet.owner is required")
	}
	if c.Venue.ProgramID == "" {
		return fmt.Errorf("venue.program_id is required")
	}
	if c.Venue.BuilderURL == "" {
		return fmt.Errorf("venue.builder_url is required")
	}
	if !c.UseMemory {
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required unless use_memory is set")
		}
		if c.ClickHouse.DSN == "" {
			return fmt.Errorf("clickhouse.dsn is required unless use_memory is set")
		}
	}
	if c.Listing.Enabled && c.RPC.WSEndpoint == "" {
		return fmt.Errorf("rpc.ws_endpoint is required when listing.enabled is set")
	}
	if c.Strategy.ProbeSlippageBps < 0 || c.Strategy.ProbeSlippageBps > 10000 {
		return fmt.Errorf("strategy.probe_slippage_bps must be within [0, 10000]")
	}
	if c.Strategy.DefaultSlippageBps < 0 || c.Strategy.DefaultSlippageBps > 10000 {
		return fmt.Errorf("strategy.default_slippage_bps must be within [0, 10000]")
	}
	if c.Scheduler.Interval < time.Second {
		return fmt.Errorf("scheduler.interval must be at least 1s")
	}
	return nil
}

// Redacted returns a copy of the config safe for logging.
func (c *Config) Redacted() Config {
	out := *c
	redact(&out.Postgres.DSN)
	redact(&out.ClickHouse.DSN)
	redact(&out.Notify.TelegramToken)
	return out
}

const redacted = "***"

func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
