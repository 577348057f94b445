package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sportpools/matchpool/internal/domain"
	"github.com/sportpools/matchpool/internal/server/handler"
	"github.com/sportpools/matchpool/internal/server/middleware"
	"github.com/sportpools/matchpool/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port            int
	CORSOrigins     []string
	APIKey          string // if empty, authentication is disabled
	RateLimitPerMin int    // if zero or no limiter, rate limiting is disabled
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health      *handler.HealthHandler
	Markets     *handler.MarketHandler
	Settlements *handler.SettlementHandler
	Errors      *handler.ErrorsHandler
}

// Server is the headless HTTP + WebSocket API for the prediction pools.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth, rate limiting) and attaches
// the WebSocket hub. The limiter may be nil, which disables rate limiting.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check.
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Market endpoints.
	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)
	mux.HandleFunc("GET /api/markets/{id}/state", handlers.Markets.GetState)
	mux.HandleFunc("GET /api/markets/{id}/payout", handlers.Markets.GetPayout)

	// Settlement endpoints.
	mux.HandleFunc("POST /api/markets/{id}/settle", handlers.Settlements.SettleMarket)
	mux.HandleFunc("GET /api/settlements", handlers.Settlements.ListSettlements)

	// Engine error history.
	mux.HandleFunc("GET /api/errors/recent", handlers.Errors.ListRecent)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux

	h = middleware.Auth(cfg.APIKey)(h)

	if limiter != nil && cfg.RateLimitPerMin > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimitPerMin, time.Minute)(h)
	}

	h = middleware.Logging(logger)(h)

	h = middleware.CORS(cfg.CORSOrigins)(h)

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
