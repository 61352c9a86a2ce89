// SPDX-License-Identifier: MIT

// Package api serves the generated guides and the operational endpoints.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pkepg/epgstitch/internal/api/middleware"
	"github.com/pkepg/epgstitch/internal/config"
	"github.com/pkepg/epgstitch/internal/jobs"
	xglog "github.com/pkepg/epgstitch/internal/log"
	"github.com/pkepg/epgstitch/internal/store"
)

// RunFunc performs a full run on demand.
type RunFunc func(ctx context.Context) (*jobs.RunReport, error)

// Options configures a Server.
type Options struct {
	Config config.ServerConfig
	Store  *store.Store
	// Guides are the data-relative outputs checked by /readyz.
	Guides []string
	// Run enables POST /api/v1/run when set.
	Run RunFunc
	// RunTimeout bounds an on-demand run; default 10 minutes.
	RunTimeout time.Duration
}

// Server is the HTTP surface of serve and daemon mode.
type Server struct {
	cfg     config.ServerConfig
	store   *store.Store
	guides  []string
	runFn   RunFunc
	timeout time.Duration

	running atomic.Bool

	mu   sync.RWMutex
	last *RunStatus
}

// New creates a Server; Handler and ListenAndServe share its routes.
func New(opts Options) *Server {
	timeout := opts.RunTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Server{
		cfg:     opts.Config,
		store:   opts.Store,
		guides:  opts.Guides,
		runFn:   opts.Run,
		timeout: timeout,
	}
}

// Handler returns the routes with the middleware stack applied.
func (s *Server) Handler() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		EnableLogging:         true,
		RateLimit:             s.cfg.RateLimit,
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		if s.runFn != nil {
			r.With(middleware.RefreshRateLimit()).Post("/run", s.handleRun)
		}
	})

	files := s.guideFiles()
	r.Get("/guides/*", files.ServeHTTP)
	r.Head("/guides/*", files.ServeHTTP)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not_found", "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" is not supported here")
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down within the
// configured timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	logger := xglog.WithComponentFromContext(ctx, "api")
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str(xglog.FieldEvent, "server.listening").
			Str("addr", ln.Addr().String()).
			Msg("http server listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	logger.Info().Str(xglog.FieldEvent, "server.shutdown").Msg("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
