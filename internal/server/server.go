package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/hedgemon/internal/domain"
	"github.com/alanyoungcy/hedgemon/internal/server/handler"
	"github.com/alanyoungcy/hedgemon/internal/server/middleware"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// RateLimit caps requests per client IP per RateWindow. Zero disables
	// rate limiting even when a limiter is wired.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health      *handler.HealthHandler
	Portfolio   *handler.PortfolioHandler
	Performance *handler.PerformanceHandler
	CashFlow    *handler.CashFlowHandler
	Execute     *handler.ExecuteHandler
}

// Server is the headless JSON API for the hedge monitor.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux
// and the middleware chain (rate limiting, CORS, logging, auth) wired up.
// limiter may be nil to disable rate limiting.
func NewServer(cfg Config, handlers Handlers, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Decision-cycle views.
	mux.HandleFunc("GET /api/portfolio", handlers.Portfolio.GetStatus)
	mux.HandleFunc("GET /api/portfolio/exposures", handlers.Portfolio.GetExposures)
	mux.HandleFunc("GET /api/portfolio/suggestions", handlers.Portfolio.GetSuggestions)
	mux.HandleFunc("GET /api/portfolio/allocation", handlers.Portfolio.GetAllocation)
	mux.HandleFunc("GET /api/trigger", handlers.Portfolio.GetTrigger)
	mux.HandleFunc("GET /api/safety", handlers.Portfolio.GetSafety)

	// Unit accounting.
	mux.HandleFunc("GET /api/performance", handlers.Performance.GetMetrics)
	mux.HandleFunc("GET /api/performance/series", handlers.Performance.GetSeries)

	// Cash flows.
	mux.HandleFunc("POST /api/cashflows", handlers.CashFlow.RecordCashFlow)
	mux.HandleFunc("GET /api/cashflows", handlers.CashFlow.ListCashFlows)

	// Execution.
	mux.HandleFunc("POST /api/execute", handlers.Execute.Execute)
	mux.HandleFunc("GET /api/executions", handlers.Execute.ListExecutions)

	// Build the middleware chain, innermost first.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)
	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow)(h)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
