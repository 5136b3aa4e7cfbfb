package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/hedgemon/internal/allocation"
	s3blob "github.com/alanyoungcy/hedgemon/internal/blob/s3"
	"github.com/alanyoungcy/hedgemon/internal/cache/redis"
	"github.com/alanyoungcy/hedgemon/internal/config"
	"github.com/alanyoungcy/hedgemon/internal/crypto"
	"github.com/alanyoungcy/hedgemon/internal/delta"
	"github.com/alanyoungcy/hedgemon/internal/domain"
	"github.com/alanyoungcy/hedgemon/internal/executor"
	"github.com/alanyoungcy/hedgemon/internal/notify"
	"github.com/alanyoungcy/hedgemon/internal/platform/evm"
	"github.com/alanyoungcy/hedgemon/internal/platform/hyperliquid"
	"github.com/alanyoungcy/hedgemon/internal/platform/octav"
	"github.com/alanyoungcy/hedgemon/internal/platform/uniswap"
	"github.com/alanyoungcy/hedgemon/internal/quota"
	"github.com/alanyoungcy/hedgemon/internal/safety"
	"github.com/alanyoungcy/hedgemon/internal/service"
	"github.com/alanyoungcy/hedgemon/internal/store/postgres"
	"github.com/alanyoungcy/hedgemon/internal/trigger"
)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Stores
	SnapshotStore  domain.SnapshotStore
	CashFlowStore  domain.CashFlowStore
	ExecutionStore domain.ExecutionStore

	// Caches
	PriceCache  domain.PriceCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager

	// Platform clients
	LPClient    *uniswap.Client
	HedgeClient *hyperliquid.Client
	Aggregator  *octav.Client
	GasWallet   *evm.Wallet

	// Execution
	Orchestrator *executor.Orchestrator

	// Services
	Portfolio *service.PortfolioService
	Sync      *service.SyncService
	Monitor   *service.MonitorService

	// Notifications
	Notifier *notify.Notifier
}

// needsPostgres returns true for modes that require a database connection.
func needsPostgres(mode string) bool {
	switch mode {
	case "sync", "serve", "full":
		return true
	default:
		return false
	}
}

// needsS3 returns true for modes that archive history to object storage.
func needsS3(mode string) bool {
	switch mode {
	case "sync", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL (only for modes that need persistence) ---
	if needsPostgres(cfg.Mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.SnapshotStore = postgres.NewSnapshotStore(pool)
		deps.CashFlowStore = postgres.NewCashFlowStore(pool)
		deps.ExecutionStore = postgres.NewExecutionStore(pool)
	}

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.PriceCache = redis.NewPriceCache(redisClient, cfg.Sync.PriceTTL.Duration)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)

	// --- Platform clients ---
	deps.LPClient = uniswap.NewClient(cfg.Subgraph.URL, cfg.Subgraph.ApiKey)
	deps.HedgeClient = hyperliquid.NewClient(cfg.Hyperliquid.BaseURL, cfg.Wallet.Address)
	deps.Aggregator = octav.NewClient(cfg.Octav.BaseURL, cfg.Octav.ApiKey)

	gasWallet, err := evm.Dial(ctx, cfg.Wallet.RPCURL, cfg.Wallet.Address)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: evm rpc: %w", err)
	}
	closers = append(closers, gasWallet.Close)
	deps.GasWallet = gasWallet

	// --- Blob archiver (only for modes that sweep history) ---
	var archiver *s3blob.Archiver
	if needsS3(cfg.Mode) && deps.SnapshotStore != nil {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), deps.SnapshotStore)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Execution ---
	orch, err := wireExecutor(ctx, cfg, deps, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	deps.Orchestrator = orch

	// --- Decision engines and services ---
	reconciler := delta.NewReconciler(delta.ReconcilerConfig{
		TolerancePct:      cfg.Reconcile.TolerancePct,
		ValueThresholdPct: cfg.Reconcile.ValueThresholdPct,
		PriorityFirst:     cfg.Reconcile.PriorityFirst,
	})
	classifier := allocation.NewClassifier(allocation.Config{
		MinIdeal:   cfg.Allocation.MinIdealPct,
		Target:     cfg.Allocation.TargetPct,
		MaxIdeal:   cfg.Allocation.MaxIdealPct,
		HedgeVenue: cfg.Hyperliquid.VenueName,
	})
	// Trigger thresholds are configured in percent; the monitor works on
	// deviation fractions.
	trigMonitor := trigger.NewMonitor(trigger.Config{
		RecenterTrigger:   cfg.Trigger.RecenterTriggerPct / 100,
		HysteresisReentry: cfg.Trigger.HysteresisReentryPct / 100,
		CooldownHours:     cfg.Trigger.CooldownHours,
	})
	checker := safety.NewChecker(safety.Config{
		GasReserveMin:       cfg.Safety.GasReserveMin,
		GasReserveTarget:    cfg.Safety.GasReserveTarget,
		HedgeCashMinPct:     cfg.Safety.HedgeCashMinPct,
		HedgeCashTargetPct:  cfg.Safety.HedgeCashTargetPct,
		MaxSlippageBps:      cfg.Safety.MaxSlippageBps,
		GasCapNative:        cfg.Safety.GasCapNative,
		MinPoolLiquidityUSD: cfg.Safety.MinPoolLiquidityUSD,
	})

	deps.Portfolio = service.NewPortfolioService(
		deps.LPClient,
		deps.HedgeClient,
		deps.Aggregator,
		deps.PriceCache,
		reconciler,
		classifier,
		cfg.Wallet.Address,
		cfg.Hyperliquid.VenueName,
		logger.With(slog.String("component", "portfolio")),
	)

	if deps.SnapshotStore != nil && deps.CashFlowStore != nil {
		retention := time.Duration(cfg.Sync.ArchiveRetentionDays) * 24 * time.Hour
		deps.Sync = service.NewSyncService(
			deps.Portfolio,
			deps.SnapshotStore,
			deps.CashFlowStore,
			deps.PriceCache,
			quota.NewEngine(),
			archiver,
			deps.Notifier,
			cfg.Sync.Interval.Duration,
			retention,
			logger.With(slog.String("component", "sync")),
		)
	}

	deps.Monitor = service.NewMonitorService(
		deps.Portfolio,
		deps.LPClient,
		deps.HedgeClient,
		deps.GasWallet,
		trigMonitor,
		checker,
		deps.Orchestrator,
		deps.Notifier,
		service.MonitorConfig{
			Interval:        cfg.Sync.Interval.Duration,
			PoolID:          cfg.Pool.PoolID,
			FeeTier:         cfg.Pool.FeeTier,
			SwapSlippageBps: cfg.Safety.MaxSlippageBps,
			AutoExecute:     cfg.Executor.AutoExecute,
		},
		logger.With(slog.String("component", "monitor")),
	)

	return deps, cleanup, nil
}

// wireExecutor builds the execution orchestrator. Without a configured key
// source the deployment is read-only: the orchestrator exists but refuses
// both execution modes.
func wireExecutor(ctx context.Context, cfg *config.Config, deps *Dependencies, logger *slog.Logger) (*executor.Orchestrator, error) {
	hasKey := cfg.Wallet.PrivateKey != "" || cfg.Wallet.EncryptedKeyPath != ""
	if !hasKey {
		return executor.NewOrchestrator(nil, nil, deps.ExecutionStore, deps.LockManager, false, logger), nil
	}

	keyHex, err := crypto.LoadKey(crypto.KeyConfig{
		RawPrivateKey:    cfg.Wallet.PrivateKey,
		EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      cfg.Wallet.KeyPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("wire: load signing key: %w", err)
	}
	key, err := evm.ParsePrivateKey(keyHex)
	if err != nil {
		return nil, fmt.Errorf("wire: parse signing key: %w", err)
	}

	liquidity, err := evm.NewLiquidityExecutor(ctx, deps.GasWallet.Client(), key, evm.PoolBinding{
		PositionManager: cfg.Pool.PositionManager,
		SwapRouter:      cfg.Pool.SwapRouter,
		Token0:          cfg.Pool.Token0,
		Token0Symbol:    cfg.Pool.Token0Symbol,
		Token0Decimals:  cfg.Pool.Token0Decimals,
		Token1:          cfg.Pool.Token1,
		Token1Symbol:    cfg.Pool.Token1Symbol,
		Token1Decimals:  cfg.Pool.Token1Decimals,
		FeeTier:         cfg.Pool.FeeTier,
		TokenID:         cfg.Pool.PositionTokenID,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("wire: liquidity executor: %w", err)
	}

	trader := hyperliquid.NewTrader(deps.HedgeClient, key, logger)

	return executor.NewOrchestrator(liquidity, trader, deps.ExecutionStore, deps.LockManager, true, logger), nil
}
