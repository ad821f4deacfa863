package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig is Defaults plus the fields that have no sensible default.
func validConfig() Config {
	cfg := Defaults()
	cfg.Wallet.Owner = "WALLETowner111111111111111111111111111111111"
	cfg.Venue.BuilderURL = "http://localhost:8080/swap"
	cfg.UseMemory = true
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, "https://api.mainnet-beta.solana.com", cfg.RPC.Endpoint)
	assert.Equal(t, 100.0, cfg.Strategy.ProbeDivisor)
	assert.Equal(t, 5000, cfg.Strategy.ProbeSlippageBps)
	assert.Equal(t, 90.0, cfg.Strategy.ImpactCutoffPct)
	assert.Equal(t, 10.0, cfg.Strategy.ProfitThresholdPct)
	assert.Equal(t, 5*time.Second, cfg.Scheduler.Interval)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
}

func TestLoad_FileOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.toml")
	body := `
metrics_addr = ":9999"
use_memory = true

[wallet]
owner = "WALLETowner111111111111111111111111111111111"

[venue]
builder_url = "http://builder:8080/swap"

[strategy]
profit_threshold_pct = 25.0
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.MetricsAddr)
	assert.Equal(t, 25.0, cfg.Strategy.ProfitThresholdPct)
	// Untouched sections keep their defaults.
	assert.Equal(t, 5000, cfg.Strategy.ProbeSlippageBps)
	assert.Equal(t, "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8", cfg.Venue.ProgramID)

	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileIsOptional(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults().RPC.Endpoint, cfg.RPC.Endpoint)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("ENGINE_WALLET_OWNER", "ENVowner1111111111111111111111111111111111111")
	t.Setenv("ENGINE_STRATEGY_PROFIT_THRESHOLD_PCT", "42.5")
	t.Setenv("ENGINE_SCHEDULER_INTERVAL", "30s")
	t.Setenv("ENGINE_USE_MEMORY", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "ENVowner1111111111111111111111111111111111111", cfg.Wallet.Owner)
	assert.Equal(t, 42.5, cfg.Strategy.ProfitThresholdPct)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.Interval)
	assert.True(t, cfg.UseMemory)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing owner", func(c *Config) { c.Wallet.Owner = "" }, "wallet.owner"},
		{"missing rpc endpoint", func(c *Config) { c.RPC.Endpoint = "" }, "rpc.endpoint"},
		{"missing builder url", func(c *Config) { c.Venue.BuilderURL = "" }, "venue.builder_url"},
		{"durable without postgres dsn", func(c *Config) { c.UseMemory = false }, "postgres.dsn"},
		{"probe slippage out of range", func(c *Config) { c.Strategy.ProbeSlippageBps = 10001 }, "probe_slippage_bps"},
		{"interval too short", func(c *Config) { c.Scheduler.Interval = 100 * time.Millisecond }, "scheduler.interval"},
		{"listing without ws endpoint", func(c *Config) {
			c.Listing.Enabled = true
			c.RPC.WSEndpoint = ""
		}, "ws_endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRedacted(t *testing.T) {
	cfg := validConfig()
	cfg.Postgres.DSN = "postgres://user:secret@db/engine"
	cfg.ClickHouse.DSN = "clickhouse://user:secret@ch/engine"
	cfg.Notify.TelegramToken = "123:abc"

	red := cfg.Redacted()
	assert.Equal(t, "***", red.Postgres.DSN)
	assert.Equal(t, "***", red.ClickHouse.DSN)
	assert.Equal(t, "***", red.Notify.TelegramToken)

	// Original is untouched and non-secret fields survive.
	assert.Equal(t, "postgres://user:secret@db/engine", cfg.Postgres.DSN)
	assert.Equal(t, cfg.Wallet.Owner, red.Wallet.Owner)
}
