// Package server hosts the local HTTP API the desktop UI talks to. It is a
// thin surface over the projection, the cart engine, and the wallet proxy;
// all authoritative state lives upstream.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/IOS2004/we-news-sub000/internal/server/handler"
	"github.com/IOS2004/we-news-sub000/internal/server/middleware"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health *handler.HealthHandler
	Rounds *handler.RoundHandler
	Cart   *handler.CartHandler
	Wallet *handler.WalletHandler
}

// Server is the local HTTP API server.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux
// and the logging, CORS, and auth middleware applied.
func NewServer(cfg Config, handlers Handlers, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required beyond the shared middleware chain).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Projected round state.
	mux.HandleFunc("GET /api/rounds", handlers.Rounds.ListRounds)
	mux.HandleFunc("GET /api/rounds/{category}", handlers.Rounds.GetRound)

	// Cart operations.
	mux.HandleFunc("GET /api/cart", handlers.Cart.GetCart)
	mux.HandleFunc("POST /api/cart/items", handlers.Cart.AddItem)
	mux.HandleFunc("DELETE /api/cart/items/{id}", handlers.Cart.RemoveItem)
	mux.HandleFunc("DELETE /api/cart", handlers.Cart.ClearCart)
	mux.HandleFunc("POST /api/cart/submit", handlers.Cart.Submit)

	// Wallet proxy.
	mux.HandleFunc("GET /api/wallet", handlers.Wallet.GetBalance)

	// Build the middleware chain.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
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
		logger:     logger.With(slog.String("component", "server")),
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
