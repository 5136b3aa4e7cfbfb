package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies HEDGEMON_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known HEDGEMON_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.Address, "HEDGEMON_WALLET_ADDRESS")
	setStr(&cfg.Wallet.RPCURL, "HEDGEMON_WALLET_RPC_URL")
	setStr(&cfg.Wallet.PrivateKey, "HEDGEMON_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "HEDGEMON_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "HEDGEMON_WALLET_KEY_PASSWORD")

	// ── Hyperliquid ──
	setStr(&cfg.Hyperliquid.BaseURL, "HEDGEMON_HYPERLIQUID_BASE_URL")
	setStr(&cfg.Hyperliquid.WsURL, "HEDGEMON_HYPERLIQUID_WS_URL")
	setStr(&cfg.Hyperliquid.VenueName, "HEDGEMON_HYPERLIQUID_VENUE_NAME")

	// ── Octav ──
	setStr(&cfg.Octav.BaseURL, "HEDGEMON_OCTAV_BASE_URL")
	setStr(&cfg.Octav.ApiKey, "HEDGEMON_OCTAV_API_KEY")

	// ── Subgraph ──
	setStr(&cfg.Subgraph.URL, "HEDGEMON_SUBGRAPH_URL")
	setStr(&cfg.Subgraph.ApiKey, "HEDGEMON_SUBGRAPH_API_KEY")

	// ── Pool ──
	setStr(&cfg.Pool.PoolID, "HEDGEMON_POOL_POOL_ID")
	setStr(&cfg.Pool.PositionManager, "HEDGEMON_POOL_POSITION_MANAGER")
	setStr(&cfg.Pool.SwapRouter, "HEDGEMON_POOL_SWAP_ROUTER")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "HEDGEMON_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "HEDGEMON_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "HEDGEMON_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "HEDGEMON_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "HEDGEMON_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "HEDGEMON_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "HEDGEMON_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "HEDGEMON_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "HEDGEMON_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "HEDGEMON_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "HEDGEMON_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "HEDGEMON_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "HEDGEMON_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "HEDGEMON_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "HEDGEMON_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "HEDGEMON_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "HEDGEMON_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "HEDGEMON_S3_REGION")
	setStr(&cfg.S3.Bucket, "HEDGEMON_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "HEDGEMON_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "HEDGEMON_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "HEDGEMON_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "HEDGEMON_S3_FORCE_PATH_STYLE")

	// ── Reconcile ──
	setFloat64(&cfg.Reconcile.TolerancePct, "HEDGEMON_RECONCILE_TOLERANCE_PCT")
	setFloat64(&cfg.Reconcile.ValueThresholdPct, "HEDGEMON_RECONCILE_VALUE_THRESHOLD_PCT")
	setBool(&cfg.Reconcile.PriorityFirst, "HEDGEMON_RECONCILE_PRIORITY_FIRST")

	// ── Allocation ──
	setFloat64(&cfg.Allocation.MinIdealPct, "HEDGEMON_ALLOCATION_MIN_IDEAL_PCT")
	setFloat64(&cfg.Allocation.TargetPct, "HEDGEMON_ALLOCATION_TARGET_PCT")
	setFloat64(&cfg.Allocation.MaxIdealPct, "HEDGEMON_ALLOCATION_MAX_IDEAL_PCT")

	// ── Trigger ──
	setFloat64(&cfg.Trigger.RecenterTriggerPct, "HEDGEMON_TRIGGER_RECENTER_TRIGGER_PCT")
	setFloat64(&cfg.Trigger.HysteresisReentryPct, "HEDGEMON_TRIGGER_HYSTERESIS_REENTRY_PCT")
	setFloat64(&cfg.Trigger.CooldownHours, "HEDGEMON_TRIGGER_COOLDOWN_HOURS")

	// ── Safety ──
	setFloat64(&cfg.Safety.GasReserveMin, "HEDGEMON_SAFETY_GAS_RESERVE_MIN")
	setFloat64(&cfg.Safety.GasReserveTarget, "HEDGEMON_SAFETY_GAS_RESERVE_TARGET")
	setFloat64(&cfg.Safety.HedgeCashMinPct, "HEDGEMON_SAFETY_HEDGE_CASH_MIN_PCT")
	setFloat64(&cfg.Safety.HedgeCashTargetPct, "HEDGEMON_SAFETY_HEDGE_CASH_TARGET_PCT")
	setInt(&cfg.Safety.MaxSlippageBps, "HEDGEMON_SAFETY_MAX_SLIPPAGE_BPS")
	setFloat64(&cfg.Safety.GasCapNative, "HEDGEMON_SAFETY_GAS_CAP_NATIVE")
	setFloat64(&cfg.Safety.MinPoolLiquidityUSD, "HEDGEMON_SAFETY_MIN_POOL_LIQUIDITY_USD")

	// ── Executor ──
	setBool(&cfg.Executor.AutoExecute, "HEDGEMON_EXECUTOR_AUTO_EXECUTE")

	// ── Sync ──
	setDuration(&cfg.Sync.Interval, "HEDGEMON_SYNC_INTERVAL")
	setDuration(&cfg.Sync.PriceTTL, "HEDGEMON_SYNC_PRICE_TTL")
	setInt(&cfg.Sync.ArchiveRetentionDays, "HEDGEMON_SYNC_ARCHIVE_RETENTION_DAYS")
	setStr(&cfg.Sync.ArchiveCron, "HEDGEMON_SYNC_ARCHIVE_CRON")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "HEDGEMON_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "HEDGEMON_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "HEDGEMON_SERVER_API_KEY")
	setStringSlice(&cfg.Server.CORSOrigins, "HEDGEMON_SERVER_CORS_ORIGINS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "HEDGEMON_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "HEDGEMON_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "HEDGEMON_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "HEDGEMON_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "HEDGEMON_MODE")
	setStr(&cfg.LogLevel, "HEDGEMON_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
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

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
