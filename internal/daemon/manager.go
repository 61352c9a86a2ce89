// SPDX-License-Identifier: MIT

// Package daemon runs the pipeline on a cron schedule next to the HTTP
// server, under a single-instance lock.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pkepg/epgstitch/internal/api"
	"github.com/pkepg/epgstitch/internal/config"
	"github.com/pkepg/epgstitch/internal/jobs"
	xglog "github.com/pkepg/epgstitch/internal/log"
	"github.com/pkepg/epgstitch/internal/store"
)

// ShutdownHook is a function that performs cleanup during graceful shutdown.
// Hooks are executed in reverse registration order (LIFO).
type ShutdownHook func(ctx context.Context) error

// Deps are the collaborators of a Manager.
type Deps struct {
	Daemon config.DaemonConfig
	Server config.ServerConfig
	Store  *store.Store
	// Guides are the outputs /readyz waits for.
	Guides []string
	Run    api.RunFunc
}

// Validate checks that required dependencies are present.
func (d Deps) Validate() error {
	if d.Run == nil {
		return ErrMissingRunner
	}
	if d.Store == nil {
		return ErrMissingStore
	}
	return nil
}

// Manager owns the scheduler, the HTTP server and the instance lock.
type Manager struct {
	deps   Deps
	server *api.Server
	logger zerolog.Logger

	// runMu serialises scheduled, start-up and on-demand runs.
	runMu sync.Mutex

	mu            sync.Mutex
	started       bool
	shutdownHooks []namedHook
}

type namedHook struct {
	name string
	hook ShutdownHook
}

// NewManager creates a Manager; its HTTP server triggers runs through the
// same guard as the schedule.
func NewManager(deps Deps) (*Manager, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	if deps.Daemon.Schedule == "" {
		deps.Daemon.Schedule = config.DefaultSchedule
	}
	m := &Manager{
		deps:   deps,
		logger: xglog.WithComponent("daemon"),
	}
	m.server = api.New(api.Options{
		Config: deps.Server,
		Store:  deps.Store,
		Guides: deps.Guides,
		Run:    m.runGuarded,
	})
	return m, nil
}

// Server is the HTTP server the manager runs.
func (m *Manager) Server() *api.Server { return m.server }

// Start takes the lock, starts the schedule and the server, and blocks
// until ctx is cancelled or the server fails. Shutdown hooks run before it
// returns.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.started = true
	m.mu.Unlock()

	if p := m.deps.Daemon.LockFile; p != "" {
		lock, err := AcquireLock(p)
		if err != nil {
			return err
		}
		m.RegisterShutdownHook("instance-lock", func(context.Context) error { return lock.Release() })
	}

	g, gctx := errgroup.WithContext(ctx)
	sched, err := newScheduler(gctx, m.deps.Daemon.Schedule, m.scheduledRun)
	if err != nil {
		return errors.Join(err, m.shutdown(ctx))
	}

	m.logger.Info().
		Str(xglog.FieldEvent, "daemon.start").
		Str("schedule", m.deps.Daemon.Schedule).
		Str("listen", m.deps.Server.Listen).
		Bool("run_on_start", m.deps.Daemon.RunOnStart).
		Msg("starting daemon")

	g.Go(func() error { return m.server.ListenAndServe(gctx) })
	sched.Start()
	if m.deps.Daemon.RunOnStart {
		g.Go(func() error {
			m.scheduledRun(gctx)
			return nil
		})
	}
	if next := sched.Entries(); len(next) > 0 {
		m.logger.Info().Str(xglog.FieldEvent, "daemon.next_run").Time("at", next[0].Next).Msg("next scheduled run")
	}

	<-gctx.Done()
	m.logger.Info().Str(xglog.FieldEvent, "daemon.stop").Msg("stopping daemon")

	stopped := sched.Stop()
	select {
	case <-stopped.Done():
	case <-time.After(m.shutdownTimeout()):
		m.logger.Warn().Str(xglog.FieldEvent, "daemon.stop_timeout").Msg("scheduled run still going at shutdown")
	}

	err = g.Wait()
	return errors.Join(err, m.shutdown(ctx))
}

// RegisterShutdownHook registers a cleanup function to be called during shutdown.
func (m *Manager) RegisterShutdownHook(name string, hook ShutdownHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownHooks = append(m.shutdownHooks, namedHook{name: name, hook: hook})
}

func (m *Manager) shutdown(ctx context.Context) error {
	m.mu.Lock()
	hooks := m.shutdownHooks
	m.shutdownHooks = nil
	m.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.shutdownTimeout())
	defer cancel()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		if err := h.hook(shutdownCtx); err != nil {
			m.logger.Error().Err(err).Str("hook", h.name).Msg("shutdown hook failed")
			errs = append(errs, fmt.Errorf("hook %s: %w", h.name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	m.logger.Info().Str(xglog.FieldEvent, "daemon.stopped").Msg("daemon stopped cleanly")
	return nil
}

func (m *Manager) shutdownTimeout() time.Duration {
	if t := m.deps.Server.ShutdownTimeout; t > 0 {
		return t
	}
	return 10 * time.Second
}

// runGuarded runs the pipeline unless a run is already going.
func (m *Manager) runGuarded(ctx context.Context) (*jobs.RunReport, error) {
	if !m.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer m.runMu.Unlock()
	return m.deps.Run(ctx)
}

// scheduledRun is the cron job: run, log, publish the status.
func (m *Manager) scheduledRun(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	started := time.Now()
	report, err := m.runGuarded(ctx)
	if errors.Is(err, ErrRunInProgress) {
		m.logger.Info().Str(xglog.FieldEvent, "run.skipped").Msg("previous run still in progress")
		return
	}
	m.server.SetLastRun(api.NewRunStatus(report, err, time.Now()))

	ev := m.logger.Info()
	if err != nil {
		ev = m.logger.Error().Err(err)
	}
	ev = ev.Str(xglog.FieldEvent, "run.done").Dur("duration", time.Since(started))
	if report != nil && report.Generate != nil {
		ev = ev.Int("generated", report.Generate.Count(jobs.OutcomeGenerated)).
			Int("fallback", report.Generate.Count(jobs.OutcomeFallback)).
			Int("failed", report.Generate.Count(jobs.OutcomeFailed))
	}
	ev.Msg("scheduled run finished")
}
