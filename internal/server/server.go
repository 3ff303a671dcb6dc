package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/BioHazard786/tandem/internal/config"
	"github.com/BioHazard786/tandem/internal/metrics"
	"github.com/BioHazard786/tandem/internal/signaling"
)

const shutdownTimeout = 5 * time.Second

// Server is the relay process: state objects, hub and HTTP surface.
type Server struct {
	cfg     *config.Server
	log     *slog.Logger
	hub     *Hub
	metrics *metrics.Metrics
	handler http.Handler
}

// New wires the connection registry, room table, router and coordinator
// into a hub and builds the HTTP routes.
func New(cfg *config.Server, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}

	registry := signaling.NewRegistry()
	rooms := signaling.NewRoomTable()
	coord := signaling.NewCoordinator(log, registry, rooms, signaling.NewRouter(rooms))

	m := metrics.New(metrics.Gauges{
		Connections: registry.Len,
		Rooms:       rooms.Len,
	})
	hub := NewHub(log, coord, m, cfg.SendBuffer)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthCheckHandler)
	mux.HandleFunc("/stats", statsHandler(hub))
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/ws", ServeWs(hub, NewUpgrader(cfg.AllowedOrigins), cfg.ReadLimit))

	return &Server{
		cfg:     cfg,
		log:     log,
		hub:     hub,
		metrics: m,
		handler: mux,
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("Starting signaling relay", "address", listener.Addr().String())
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Hijacked websocket connections are not tracked by http.Server.
	s.hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Info("Relay stopped cleanly")
	return nil
}
