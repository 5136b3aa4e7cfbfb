// Package config defines the top-level configuration for the hedge monitor
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by HEDGEMON_* environment variables.
type Config struct {
	Wallet      WalletConfig      `toml:"wallet"`
	Hyperliquid HyperliquidConfig `toml:"hyperliquid"`
	Octav       OctavConfig       `toml:"octav"`
	Subgraph    SubgraphConfig    `toml:"subgraph"`
	Pool        PoolConfig        `toml:"pool"`
	Postgres    PostgresConfig    `toml:"postgres"`
	Redis       RedisConfig       `toml:"redis"`
	S3          S3Config          `toml:"s3"`
	Reconcile   ReconcileConfig   `toml:"reconcile"`
	Allocation  AllocationConfig  `toml:"allocation"`
	Trigger     TriggerConfig     `toml:"trigger"`
	Safety      SafetyConfig      `toml:"safety"`
	Executor    ExecutorConfig    `toml:"executor"`
	Sync        SyncConfig        `toml:"sync"`
	Server      ServerConfig      `toml:"server"`
	Notify      NotifyConfig      `toml:"notify"`
	Mode        string            `toml:"mode"`
	LogLevel    string            `toml:"log_level"`
}

// WalletConfig holds the monitored address and the optional signing key.
// Without a key source the monitor runs read-only and execution is disabled.
type WalletConfig struct {
	Address          string `toml:"address"`
	RPCURL           string `toml:"rpc_url"`
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// HyperliquidConfig holds the hedge venue API endpoints.
type HyperliquidConfig struct {
	BaseURL string `toml:"base_url"`
	WsURL   string `toml:"ws_url"`
	// VenueName is how this venue is labelled in balances and the
	// allocation report.
	VenueName string `toml:"venue_name"`
}

// OctavConfig holds the portfolio aggregator API parameters.
type OctavConfig struct {
	BaseURL string `toml:"base_url"`
	ApiKey  string `toml:"api_key"`
}

// SubgraphConfig holds the Uniswap v3 subgraph endpoint.
type SubgraphConfig struct {
	URL    string `toml:"url"`
	ApiKey string `toml:"api_key"`
}

// PoolConfig pins the managed LP position: the pool, its tokens, and the
// contracts the executor calls.
type PoolConfig struct {
	PoolID          string `toml:"pool_id"`
	PositionManager string `toml:"position_manager"`
	SwapRouter      string `toml:"swap_router"`
	Token0          string `toml:"token0"`
	Token0Symbol    string `toml:"token0_symbol"`
	Token0Decimals  int    `toml:"token0_decimals"`
	Token1          string `toml:"token1"`
	Token1Symbol    string `toml:"token1_symbol"`
	Token1Decimals  int    `toml:"token1_decimals"`
	FeeTier         int    `toml:"fee_tier"`
	PositionTokenID uint64 `toml:"position_token_id"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for snapshot
// archival.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ReconcileConfig holds hedge reconciliation thresholds.
type ReconcileConfig struct {
	// TolerancePct is the drift, as a percentage of the LP balance, below
	// which a token counts as balanced.
	TolerancePct float64 `toml:"tolerance_pct"`
	// ValueThresholdPct marks an adjustment required when its USD value
	// reaches this percentage of total capital.
	ValueThresholdPct float64 `toml:"value_threshold_pct"`
	PriorityFirst     bool    `toml:"priority_first"`
}

// AllocationConfig holds the capital allocation band, as percentages of
// total capital deployed to the LP venue.
type AllocationConfig struct {
	MinIdealPct float64 `toml:"min_ideal_pct"`
	TargetPct   float64 `toml:"target_pct"`
	MaxIdealPct float64 `toml:"max_ideal_pct"`
}

// TriggerConfig holds the recenter trigger and hysteresis parameters.
type TriggerConfig struct {
	// RecenterTriggerPct is the price deviation from range center that
	// raises the recenter signal.
	RecenterTriggerPct float64 `toml:"recenter_trigger_pct"`
	// HysteresisReentryPct must be below the trigger; the signal re-arms
	// only once deviation falls under it.
	HysteresisReentryPct float64 `toml:"hysteresis_reentry_pct"`
	CooldownHours        float64 `toml:"cooldown_hours"`
}

// SafetyConfig holds the pre-execution check thresholds.
type SafetyConfig struct {
	GasReserveMin       float64 `toml:"gas_reserve_min"`
	GasReserveTarget    float64 `toml:"gas_reserve_target"`
	HedgeCashMinPct     float64 `toml:"hedge_cash_min_pct"`
	HedgeCashTargetPct  float64 `toml:"hedge_cash_target_pct"`
	MaxSlippageBps      int     `toml:"max_slippage_bps"`
	GasCapNative        float64 `toml:"gas_cap_native"`
	MinPoolLiquidityUSD float64 `toml:"min_pool_liquidity_usd"`
}

// ExecutorConfig holds execution-mode parameters.
type ExecutorConfig struct {
	// AutoExecute lets a passing safety report start the full recenter
	// sequence without operator action.
	AutoExecute bool `toml:"auto_execute"`
}

// SyncConfig holds the portfolio sync loop and archival parameters.
type SyncConfig struct {
	Interval             duration `toml:"interval"`
	PriceTTL             duration `toml:"price_ttl"`
	ArchiveRetentionDays int      `toml:"archive_retention_days"`
	ArchiveCron          string   `toml:"archive_cron"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	APIKey      string   `toml:"api_key"`
	CORSOrigins []string `toml:"cors_origins"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Hyperliquid: HyperliquidConfig{
			BaseURL:   "https://api.hyperliquid.xyz",
			WsURL:     "wss://api.hyperliquid.xyz/ws",
			VenueName: "hyperliquid",
		},
		Octav: OctavConfig{
			BaseURL: "https://api.octav.fi",
		},
		Pool: PoolConfig{
			Token0Decimals: 18,
			Token1Decimals: 6,
			FeeTier:        500,
		},
		Postgres: PostgresConfig{
			DSN:           "",
			Host:          "localhost",
			Port:          5432,
			Database:      "hedgemon",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "hedgemon-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Reconcile: ReconcileConfig{
			TolerancePct:      1.0,
			ValueThresholdPct: 1.0,
			PriorityFirst:     true,
		},
		Allocation: AllocationConfig{
			MinIdealPct: 66.0,
			TargetPct:   70.0,
			MaxIdealPct: 80.0,
		},
		Trigger: TriggerConfig{
			RecenterTriggerPct:   1.0,
			HysteresisReentryPct: 0.3,
			CooldownHours:        4,
		},
		Safety: SafetyConfig{
			GasReserveMin:       0.01,
			GasReserveTarget:    0.05,
			HedgeCashMinPct:     0.02,
			HedgeCashTargetPct:  0.05,
			MaxSlippageBps:      50,
			GasCapNative:        0.02,
			MinPoolLiquidityUSD: 100_000,
		},
		Executor: ExecutorConfig{
			AutoExecute: false,
		},
		Sync: SyncConfig{
			Interval:             duration{5 * time.Minute},
			PriceTTL:             duration{2 * time.Minute},
			ArchiveRetentionDays: 90,
			ArchiveCron:          "0 3 1 * *",
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"recenter_triggered", "hedge_drift", "execution_completed", "error"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"monitor": true,
	"sync":    true,
	"serve":   true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: monitor, sync, serve, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Wallet — the monitored address is always required; a key source only
	// when auto execution is on.
	if strings.TrimSpace(c.Wallet.Address) == "" {
		errs = append(errs, "wallet: address must not be empty")
	}
	if c.Wallet.RPCURL == "" {
		errs = append(errs, "wallet: rpc_url must not be empty")
	}
	if c.Executor.AutoExecute {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: either private_key or encrypted_key_path must be set when executor.auto_execute is on")
		}
	}
	if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
		errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
	}

	// Venue endpoints
	if c.Hyperliquid.BaseURL == "" {
		errs = append(errs, "hyperliquid: base_url must not be empty")
	}
	if c.Subgraph.URL == "" {
		errs = append(errs, "subgraph: url must not be empty")
	}
	if c.Octav.BaseURL == "" {
		errs = append(errs, "octav: base_url must not be empty")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3
	if c.S3.Endpoint == "" {
		errs = append(errs, "s3: endpoint must not be empty")
	}
	if c.S3.Bucket == "" {
		errs = append(errs, "s3: bucket must not be empty")
	}

	// Reconcile
	if c.Reconcile.TolerancePct < 0 {
		errs = append(errs, "reconcile: tolerance_pct must be >= 0")
	}
	if c.Reconcile.ValueThresholdPct <= 0 {
		errs = append(errs, "reconcile: value_threshold_pct must be > 0")
	}

	// Allocation band must be ordered min <= target <= max.
	if c.Allocation.MinIdealPct <= 0 || c.Allocation.MinIdealPct >= 100 {
		errs = append(errs, "allocation: min_ideal_pct must be in (0, 100)")
	}
	if c.Allocation.MaxIdealPct <= 0 || c.Allocation.MaxIdealPct > 100 {
		errs = append(errs, "allocation: max_ideal_pct must be in (0, 100]")
	}
	if c.Allocation.MinIdealPct > c.Allocation.TargetPct || c.Allocation.TargetPct > c.Allocation.MaxIdealPct {
		errs = append(errs, fmt.Sprintf("allocation: band must satisfy min <= target <= max, got %.1f/%.1f/%.1f",
			c.Allocation.MinIdealPct, c.Allocation.TargetPct, c.Allocation.MaxIdealPct))
	}

	// Trigger — reentry must sit strictly below the trigger for the
	// hysteresis to have any effect.
	if c.Trigger.RecenterTriggerPct <= 0 {
		errs = append(errs, "trigger: recenter_trigger_pct must be > 0")
	}
	if c.Trigger.HysteresisReentryPct < 0 {
		errs = append(errs, "trigger: hysteresis_reentry_pct must be >= 0")
	}
	if c.Trigger.HysteresisReentryPct >= c.Trigger.RecenterTriggerPct {
		errs = append(errs, fmt.Sprintf("trigger: hysteresis_reentry_pct (%.2f) must be below recenter_trigger_pct (%.2f)",
			c.Trigger.HysteresisReentryPct, c.Trigger.RecenterTriggerPct))
	}
	if c.Trigger.CooldownHours < 0 {
		errs = append(errs, "trigger: cooldown_hours must be >= 0")
	}

	// Safety
	if c.Safety.GasReserveMin < 0 || c.Safety.GasReserveTarget < c.Safety.GasReserveMin {
		errs = append(errs, "safety: gas_reserve_target must be >= gas_reserve_min >= 0")
	}
	if c.Safety.HedgeCashMinPct < 0 || c.Safety.HedgeCashTargetPct < c.Safety.HedgeCashMinPct {
		errs = append(errs, "safety: hedge_cash_target_pct must be >= hedge_cash_min_pct >= 0")
	}
	if c.Safety.MaxSlippageBps <= 0 {
		errs = append(errs, "safety: max_slippage_bps must be > 0")
	}

	// Sync
	if c.Sync.Interval.Duration <= 0 {
		errs = append(errs, "sync: interval must be > 0")
	}
	if c.Sync.ArchiveRetentionDays < 1 {
		errs = append(errs, "sync: archive_retention_days must be >= 1")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
