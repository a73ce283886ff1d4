// Package api serves the mySettle HTTP interface used by the driver app and
// the two review portals.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mysettle/mysettle/internal/maps"
	"github.com/mysettle/mysettle/internal/vision"
	"github.com/mysettle/mysettle/internal/workflow"
)

// Options tunes the HTTP server.
type Options struct {
	AllowedOrigins  []string      // CORS origins, "*" allows any
	SSEKeepAlive    time.Duration // Interval between keep-alive comments on event streams
	ShutdownTimeout time.Duration // Grace period for in-flight requests on shutdown
}

// Server exposes the workflow service over HTTP.
type Server struct {
	svc      *workflow.Service
	verifier vision.Verifier
	sketcher *maps.Sketcher
	opts     Options
	logger   *zap.Logger
}

// NewServer creates a server. A nil logger disables logging.
func NewServer(svc *workflow.Service, verifier vision.Verifier, sketcher *maps.Sketcher, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.SSEKeepAlive <= 0 {
		opts.SSEKeepAlive = 15 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	return &Server{
		svc:      svc,
		verifier: verifier,
		sketcher: sketcher,
		opts:     opts,
		logger:   logger.Named("api"),
	}
}

// Handler returns the complete HTTP handler: router, CORS and request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.cors(s.router()))
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)

	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		return nil
	}
}
