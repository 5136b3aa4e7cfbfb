package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/hedgemon/internal/platform/hyperliquid"
	"github.com/alanyoungcy/hedgemon/internal/server"
	"github.com/alanyoungcy/hedgemon/internal/server/handler"
)

// MonitorMode runs the decision loop and notifications without the HTTP API
// or the persistence loop.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Monitor.Run(ctx)
	})
	a.startPriceFeed(ctx, g, deps)

	return g.Wait()
}

// SyncMode runs only the periodic portfolio sync and archival loop.
func (a *App) SyncMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting sync mode")

	if deps.Sync == nil {
		return fmt.Errorf("sync mode: persistence is not wired")
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Sync.Run(ctx)
	})
	a.startPriceFeed(ctx, g, deps)

	return g.Wait()
}

// ServeMode runs the HTTP API backed by a live decision loop, without the
// sync loop. Useful when another deployment owns persistence writes.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Monitor.Run(ctx)
	})
	a.startPriceFeed(ctx, g, deps)
	if err := a.startHTTPServer(ctx, g, deps); err != nil {
		return fmt.Errorf("serve mode: %w", err)
	}

	return g.Wait()
}

// FullMode runs every subsystem: decision loop, sync loop, price feed, and
// the HTTP API.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	if deps.Sync == nil {
		return fmt.Errorf("full mode: persistence is not wired")
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Monitor.Run(ctx)
	})
	g.Go(func() error {
		return deps.Sync.Run(ctx)
	})
	a.startPriceFeed(ctx, g, deps)

	if a.cfg.Server.Enabled {
		if err := a.startHTTPServer(ctx, g, deps); err != nil {
			return fmt.Errorf("full mode: %w", err)
		}
	}

	return g.Wait()
}

// startPriceFeed streams venue mid prices into the price cache over
// WebSocket so decision cycles read fresh marks between REST fetches.
func (a *App) startPriceFeed(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	wsClient := hyperliquid.NewWSClient(a.cfg.Hyperliquid.WsURL)
	wsClient.OnMids(func(mids map[string]float64) {
		now := time.Now().UTC()
		for coin, px := range mids {
			if err := deps.PriceCache.SetPrice(ctx, coin, px, now); err != nil {
				a.logger.WarnContext(ctx, "price feed: cache write failed",
					slog.String("coin", coin),
					slog.String("error", err.Error()),
				)
				return
			}
		}
	})

	g.Go(func() error {
		if err := wsClient.Connect(ctx); err != nil {
			// The feed is an optimization over REST mids; a dead socket
			// must not take the process down.
			a.logger.WarnContext(ctx, "price feed: connect failed, running without stream",
				slog.String("error", err.Error()),
			)
			return nil
		}
		if err := wsClient.SubscribeMids(ctx); err != nil {
			a.logger.WarnContext(ctx, "price feed: subscribe failed, running without stream",
				slog.String("error", err.Error()),
			)
		}
		<-ctx.Done()
		return wsClient.Close()
	})
}

// startHTTPServer builds the handler set, registers it on the API server,
// and runs it under the errgroup with graceful shutdown.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) error {
	if deps.Sync == nil || deps.ExecutionStore == nil {
		return fmt.Errorf("http server requires persistence")
	}

	handlers := server.Handlers{
		Health:      handler.NewHealthHandler(a.logger),
		Portfolio:   handler.NewPortfolioHandler(deps.Monitor, a.logger),
		Performance: handler.NewPerformanceHandler(deps.Sync, a.logger),
		CashFlow:    handler.NewCashFlowHandler(deps.Sync, a.logger),
		Execute:     handler.NewExecuteHandler(deps.Monitor, deps.ExecutionStore, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   120,
		RateWindow:  time.Minute,
	}, handlers, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
	return nil
}
