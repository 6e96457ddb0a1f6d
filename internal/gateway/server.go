// Package gateway is the HTTP surface: agent chat and thread management,
// question answering over the chat archive, media endpoints, and a
// websocket stream of turn lifecycle events.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/attache-hq/attache/internal/agent"
	"github.com/attache-hq/attache/internal/ask"
	"github.com/attache-hq/attache/internal/capability/media"
	"github.com/attache-hq/attache/internal/config"
	"github.com/attache-hq/attache/internal/logging"
	"github.com/attache-hq/attache/internal/version"
)

// Server is the attache HTTP server.
type Server struct {
	cfg    config.ServerConfig
	log    *logging.Logger
	loop   *agent.Loop
	router *ask.Router
	hub    *EventHub

	// media is optional; media routes 503 without it.
	media *media.Service

	startedAt  time.Time
	httpServer *http.Server
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithMedia enables the media endpoints.
func WithMedia(svc *media.Service) ServerOption {
	return func(s *Server) { s.media = svc }
}

// New creates the server and wires the event hub into the agent loop.
func New(cfg config.ServerConfig, loop *agent.Loop, router *ask.Router, log *logging.Logger, opts ...ServerOption) *Server {
	s := &Server{
		cfg:    cfg,
		log:    log.Sub("gateway"),
		loop:   loop,
		router: router,
		hub:    NewEventHub(cfg.AllowedOrigins, log),
	}
	for _, opt := range opts {
		opt(s)
	}

	if loop != nil {
		loop.SetObserver(s.hub.Publish)
	}
	return s
}

// Hub returns the lifecycle event hub.
func (s *Server) Hub() *EventHub { return s.hub }

// Handler builds the full middleware-wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	return withMiddleware(mux, s.log, s.cfg.AllowedOrigins, s.cfg.AuthToken)
}

// resolveBindAddr computes the listen address from config.
func resolveBindAddr(cfg config.ServerConfig) string {
	switch cfg.Bind {
	case "loopback":
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	case "lan":
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	case "custom":
		host := cfg.CustomBindHost
		if host == "" {
			host = "0.0.0.0"
		}
		return fmt.Sprintf("%s:%d", host, cfg.Port)
	default:
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	}
}

// Start listens and serves until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := resolveBindAddr(s.cfg)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(l net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.startedAt = time.Now()
	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("bind", s.cfg.Bind).
		Str("version", version.Version).
		Msg("server starting")

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the server's listen address, or empty string if not started.
func (s *Server) Addr() string {
	if s.httpServer != nil {
		return s.httpServer.Addr
	}
	return ""
}
