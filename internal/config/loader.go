package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path (optional, empty path skips
// it), merges it on top of the built-in defaults, applies ENGINE_*
// environment variable overrides and returns the final Config. The caller
// should invoke Validate afterwards.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	// .env file is optional.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// applyEnvOverrides reads well-known ENGINE_* environment variables and
// overwrites the corresponding fields when set. This lets operators inject
// secrets at deploy time without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.RPC.Endpoint, "ENGINE_RPC_ENDPOINT")
	setStr(&cfg.RPC.WSEndpoint, "ENGINE_RPC_WS_ENDPOINT")

	setStr(&cfg.Wallet.Owner, "ENGINE_WALLET_OWNER")
	setStr(&cfg.Wallet.BurnAddress, "ENGINE_WALLET_BURN_ADDRESS")

	setStr(&cfg.Postgres.DSN, "ENGINE_POSTGRES_DSN")
	setStr(&cfg.ClickHouse.DSN, "ENGINE_CLICKHOUSE_DSN")

	setStr(&cfg.Venue.ProgramID, "ENGINE_VENUE_PROGRAM_ID")
	setStr(&cfg.Venue.BuilderURL, "ENGINE_VENUE_BUILDER_URL")

	setFloat64(&cfg.Strategy.ProfitThresholdPct, "ENGINE_STRATEGY_PROFIT_THRESHOLD_PCT")
	setFloat64(&cfg.Strategy.ImpactCutoffPct, "ENGINE_STRATEGY_IMPACT_CUTOFF_PCT")

	setDuration(&cfg.Scheduler.Interval, "ENGINE_SCHEDULER_INTERVAL")

	setBool(&cfg.Listing.Enabled, "ENGINE_LISTING_ENABLED")
	setFloat64(&cfg.Listing.AutoBuySOL, "ENGINE_LISTING_AUTO_BUY_SOL")

	setStr(&cfg.Notify.TelegramToken, "ENGINE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ENGINE_NOTIFY_TELEGRAM_CHAT_ID")

	setStr(&cfg.MetricsAddr, "ENGINE_METRICS_ADDR")
	setBool(&cfg.UseMemory, "ENGINE_USE_MEMORY")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
