package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/stablex/driver/internal/config"
)

// Server runs the observability HTTP/WebSocket surface: GET /healthz,
// GET /snapshot?batch=N, GET /ws, and /tick?batch=N. All routes but /tick
// only read the driver's state; /tick runs one Driver.Tick (and so the
// matcher) through the configured Ticker.
type Server struct {
	cfg      config.DashboardConfig
	provider Provider
	hub      *Hub
	handlers *Handlers
	server   *http.Server
	logger   *slog.Logger
}

// NewServer creates a new observability server. ticker may be nil if
// the external scheduler drives batches some other way.
func NewServer(cfg config.DashboardConfig, provider Provider, ticker Ticker, logger *slog.Logger) *Server {
	hub := NewHub(logger)
	handlers := NewHandlers(provider, ticker, cfg, hub, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handlers.HandleHealth)
	mux.HandleFunc("/snapshot", handlers.HandleSnapshot)
	mux.HandleFunc("/ws", handlers.HandleWebSocket)
	mux.HandleFunc("/tick", handlers.HandleTick)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		cfg:      cfg,
		provider: provider,
		hub:      hub,
		handlers: handlers,
		server:   server,
		logger:   logger.With("component", "api-server"),
	}
}

// Hub exposes the WebSocket hub so callers (cmd/driver's
// shadow-divergence hook) can broadcast events onto it.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start starts the API server and hub. Blocks until Stop is called.
func (s *Server) Start() error {
	go s.hub.Run()

	s.logger.Info("observability server starting", "addr", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop() error {
	s.logger.Info("stopping observability server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}
