// Package server hosts the relay behind a gorilla/mux router with CORS,
// request logging and panic recovery.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/alanyoungcy/deadlinewatch/internal/server/middleware"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port   int
	Prefix string // e.g. "/api"; requests below it go to the relay
}

// Server serves the relay.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer routes GET, HEAD and POST under cfg.Prefix to relay, which always
// forwards a body-less GET. Other methods on the prefix get 405 and every
// other path 404. OPTIONS is answered by the
// CORS middleware before routing.
func NewServer(cfg Config, relay http.Handler, logger *slog.Logger) *Server {
	logger = logger.With(slog.String("component", "server"))

	r := mux.NewRouter()
	r.PathPrefix(cfg.Prefix+"/").Methods(http.MethodGet, http.MethodHead, http.MethodPost).Handler(relay)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	})

	// Build the middleware chain.
	var h http.Handler = r
	h = middleware.CORS(h)
	h = middleware.Logging(logger)(h)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError)),
	)(h)

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run listens and serves until ctx is cancelled, then shuts down gracefully.
// The listener is released on every return path.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener, which it takes ownership of.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("server: starting", slog.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := s.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		_ = s.httpServer.Close()
	}
	<-errCh // Serve has returned and closed ln
	if err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
