// Package status serves an HTTP+WebSocket surface exposing every running
// bot's exchange-loop and order-manager state to an operator, grounded on
// the teacher's internal/api package (server/handlers/events/snapshot/
// stream) rewired from Polymarket market/fill/position events to the
// generic status variables of spec §4.2/§4.3.
package status

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Config controls the status server's listen address and WebSocket origin
// policy, mirroring the teacher's DashboardConfig.
type Config struct {
	Addr           string
	AllowedOrigins []string
	// PushInterval is how often the WebSocket hub is sent a fresh snapshot.
	PushInterval time.Duration
}

const defaultPushInterval = 2 * time.Second

// Server runs the status HTTP/WebSocket API for one or more supervised bots.
type Server struct {
	cfg      Config
	bots     []BotView
	hub      *Hub
	handlers *Handlers
	server   *http.Server
	logger   *slog.Logger

	stop chan struct{}
}

// NewServer builds a Server over bots. bots is read, never mutated; callers
// must not add or remove bots after construction.
func NewServer(cfg Config, bots []BotView, logger *slog.Logger) *Server {
	if cfg.PushInterval <= 0 {
		cfg.PushInterval = defaultPushInterval
	}

	hub := NewHub(logger)
	handlers := NewHandlers(bots, cfg, hub, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handlers.HandleHealth)
	mux.HandleFunc("/snapshot", handlers.HandleSnapshot)
	mux.HandleFunc("/ws", handlers.HandleWebSocket)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		cfg:      cfg,
		bots:     bots,
		hub:      hub,
		handlers: handlers,
		server:   httpServer,
		logger:   logger.With("component", "status-server"),
		stop:     make(chan struct{}),
	}
}

// Start runs the hub, the periodic snapshot pusher, and the HTTP listener.
// It blocks until the server is stopped or fails to listen.
func (s *Server) Start() error {
	go s.hub.Run()
	go s.pushLoop()

	s.logger.Info("status server starting", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("status server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP listener and the push loop.
func (s *Server) Stop() error {
	s.logger.Info("stopping status server")
	close(s.stop)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// pushLoop periodically broadcasts a fresh snapshot to every connected
// client, the push mechanism spec §4.2 leaves room for in place of clients
// polling /snapshot themselves.
func (s *Server) pushLoop() {
	ticker := time.NewTicker(s.cfg.PushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.hub.BroadcastSnapshot(BuildSnapshot(s.bots))
		}
	}
}
