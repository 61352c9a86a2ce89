// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/pkepg/epgstitch/internal/api"
	"github.com/pkepg/epgstitch/internal/config"
	"github.com/pkepg/epgstitch/internal/daemon"
	"github.com/pkepg/epgstitch/internal/fetch"
	"github.com/pkepg/epgstitch/internal/jobs"
	"github.com/pkepg/epgstitch/internal/store"
)

// fetchOptions maps the configured transport; zero values take the fetch
// defaults.
func fetchOptions(h config.HTTPConfig) fetch.Options {
	return fetch.Options{
		Timeout:          h.Timeout,
		Attempts:         uint(max(h.Retries, 1)),
		Backoff:          h.Backoff,
		MaxBackoff:       h.MaxBackoff,
		RatePerHost:      h.RatePerHost,
		Burst:            h.Burst,
		BreakerThreshold: h.BreakerThreshold,
		BreakerReset:     h.BreakerReset,
		MaxBodyBytes:     int64(h.MaxBodyMB) << 20,
		UserAgent:        h.UserAgent,
	}
}

func buildDeps(cfg config.AppConfig) jobs.Deps {
	return jobs.Deps{
		Store: store.NewOS(cfg.DataDir),
		HTTP:  fetch.New(fetchOptions(cfg.HTTP), nil),
	}
}

func guideOutputs(cfg config.AppConfig) []string {
	out := make([]string, 0, len(cfg.Guides))
	for _, g := range cfg.Guides {
		out = append(out, g.Output)
	}
	return out
}

// withRunLock runs fn under the instance lock when one is configured, so a
// manual run never overlaps the daemon.
func withRunLock(cfg config.AppConfig, fn func() error) error {
	if cfg.Daemon.LockFile == "" {
		return fn()
	}
	lock, err := daemon.AcquireLock(cfg.Daemon.LockFile)
	if err != nil {
		return fmt.Errorf("run lock: %w", err)
	}
	defer func() { _ = lock.Release() }()
	return fn()
}

func runner(cfg config.AppConfig, deps jobs.Deps) func(context.Context) (*jobs.RunReport, error) {
	return func(ctx context.Context) (*jobs.RunReport, error) {
		return jobs.Run(ctx, cfg, deps, false)
	}
}

// lockedRunner takes the instance lock around every on-demand run. A lock
// held by another process is answered like an overlapping run.
func lockedRunner(cfg config.AppConfig, deps jobs.Deps) api.RunFunc {
	run := runner(cfg, deps)
	return func(ctx context.Context) (*jobs.RunReport, error) {
		var report *jobs.RunReport
		err := withRunLock(cfg, func() error {
			var err error
			report, err = run(ctx)
			return err
		})
		if errors.Is(err, daemon.ErrLocked) {
			return nil, fmt.Errorf("%w: %w", api.ErrRunInProgress, err)
		}
		return report, err
	}
}
