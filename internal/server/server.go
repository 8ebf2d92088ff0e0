// Package server runs the HTTP front end for the install flow.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/leadstack/gmail-ingest/internal/auth"
	"github.com/leadstack/gmail-ingest/internal/auth/middleware"
	"github.com/leadstack/gmail-ingest/internal/config"
	"github.com/leadstack/gmail-ingest/internal/logger"
)

const (
	// shutdownTimeout is the maximum time to wait for server shutdown
	shutdownTimeout = 5 * time.Second

	readHeaderTimeout = 10 * time.Second
)

// Server serves the install flow over HTTP.
type Server struct {
	config *config.Config
	auth   *auth.Service
}

// NewServer creates a new server instance with the provided configuration.
func NewServer(cfg *config.Config, authService *auth.Service) *Server {
	if cfg == nil {
		logger.Fatal("Config cannot be nil")
	}
	if authService == nil {
		logger.Fatal("Auth service cannot be nil")
	}

	return &Server{
		config: cfg,
		auth:   authService,
	}
}

// Handler builds the route mux wrapped with the middleware stack.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.auth.RegisterRoutes(mux)
	return middleware.RequestLogger(mux)
}

// Start runs the HTTP server until ctx is cancelled or the listener
// fails, then shuts down gracefully within a bounded window.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Channel for server errors
	errChan := make(chan error, 1)

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("address", addr))

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down server", zap.Duration("timeout", shutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil

	case err := <-errChan:
		return err
	}
}

// Module provides the HTTP server dependencies
var Module = fx.Module("server",
	fx.Provide(
		NewServer,
	),
)
