package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns defaults patched to pass Validate.
func validConfig() Config {
	cfg := Defaults()
	cfg.Wallet.Address = "0x1111111111111111111111111111111111111111"
	cfg.Wallet.RPCURL = "https://rpc.example.org"
	cfg.Subgraph.URL = "https://gateway.thegraph.com/api/subgraphs/id/abc"
	return cfg
}

func TestValidateDefaultsWithRequiredFields(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidateMissingAddress(t *testing.T) {
	cfg := validConfig()
	cfg.Wallet.Address = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wallet: address")
}

func TestValidateAllocationBandOrdering(t *testing.T) {
	cfg := validConfig()
	cfg.Allocation.MinIdealPct = 80
	cfg.Allocation.TargetPct = 70
	cfg.Allocation.MaxIdealPct = 90

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min <= target <= max")
}

func TestValidateHysteresisBelowTrigger(t *testing.T) {
	cfg := validConfig()
	cfg.Trigger.RecenterTriggerPct = 1.0
	cfg.Trigger.HysteresisReentryPct = 1.0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hysteresis_reentry_pct")
}

func TestValidateAutoExecuteNeedsKey(t *testing.T) {
	cfg := validConfig()
	cfg.Executor.AutoExecute = true

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "private_key or encrypted_key_path")

	cfg.Wallet.PrivateKey = "0xabc123"
	require.NoError(t, cfg.Validate())
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "scrape"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
mode = "monitor"

[trigger]
recenter_trigger_pct = 2.5

[sync]
interval = "30s"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "monitor", cfg.Mode)
	assert.InDelta(t, 2.5, cfg.Trigger.RecenterTriggerPct, 1e-9)
	assert.Equal(t, "30s", cfg.Sync.Interval.Duration.String())
	// Untouched sections keep their defaults.
	assert.Equal(t, "https://api.hyperliquid.xyz", cfg.Hyperliquid.BaseURL)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HEDGEMON_WALLET_ADDRESS", "0x2222222222222222222222222222222222222222")
	t.Setenv("HEDGEMON_TRIGGER_COOLDOWN_HOURS", "12")
	t.Setenv("HEDGEMON_EXECUTOR_AUTO_EXECUTE", "true")
	t.Setenv("HEDGEMON_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, "0x2222222222222222222222222222222222222222", cfg.Wallet.Address)
	assert.InDelta(t, 12.0, cfg.Trigger.CooldownHours, 1e-9)
	assert.True(t, cfg.Executor.AutoExecute)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestRedactedConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Wallet.PrivateKey = "0xdeadbeef"
	cfg.Octav.ApiKey = "octav-secret"
	cfg.Postgres.Password = "pg-secret"
	cfg.Notify.TelegramToken = "tg-secret"

	red := RedactedConfig(&cfg)

	assert.Equal(t, "***", red.Wallet.PrivateKey)
	assert.Equal(t, "***", red.Octav.ApiKey)
	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.Notify.TelegramToken)
	// The original is untouched.
	assert.Equal(t, "0xdeadbeef", cfg.Wallet.PrivateKey)
	// Non-secret fields pass through.
	assert.Equal(t, cfg.Wallet.Address, red.Wallet.Address)
}
