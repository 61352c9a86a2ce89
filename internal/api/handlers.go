// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/pkepg/epgstitch/internal/jobs"
	xglog "github.com/pkepg/epgstitch/internal/log"
	"github.com/pkepg/epgstitch/internal/version"
)

// ErrRunInProgress is returned by a RunFunc that refuses to overlap runs.
var ErrRunInProgress = errors.New("a run is already in progress")

// RunStatus is the JSON summary of the most recent run.
type RunStatus struct {
	JobID     string        `json:"jobId,omitempty"`
	Finished  time.Time     `json:"finished"`
	Generated int           `json:"generated"`
	Fallback  int           `json:"fallback"`
	Fresh     int           `json:"fresh"`
	Failed    int           `json:"failed"`
	Feeds     int           `json:"feeds"`
	Guides    []GuideStatus `json:"guides,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// GuideStatus summarises one aggregated guide.
type GuideStatus struct {
	Name       string `json:"name"`
	Output     string `json:"output"`
	Channels   int    `json:"channels"`
	Programmes int    `json:"programmes"`
	Skipped    int    `json:"skipped"`
}

// NewRunStatus condenses a run report.
func NewRunStatus(report *jobs.RunReport, err error, finished time.Time) RunStatus {
	st := RunStatus{Finished: finished.UTC()}
	if err != nil {
		st.Error = err.Error()
	}
	if report == nil {
		return st
	}
	st.Feeds = len(report.Feeds)
	if g := report.Generate; g != nil {
		st.JobID = g.JobID
		st.Generated = g.Count(jobs.OutcomeGenerated)
		st.Fallback = g.Count(jobs.OutcomeFallback)
		st.Fresh = g.Count(jobs.OutcomeFresh)
		st.Failed = g.Count(jobs.OutcomeFailed)
	}
	for _, g := range report.Guides {
		st.Guides = append(st.Guides, GuideStatus{
			Name:       g.Name,
			Output:     g.Output,
			Channels:   g.Channels,
			Programmes: g.Programmes,
			Skipped:    g.Skipped,
		})
	}
	return st
}

// SetLastRun records the outcome shown by /api/v1/status.
func (s *Server) SetLastRun(st RunStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &st
}

// LastRun returns the recorded outcome, if any.
func (s *Server) LastRun() (RunStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return RunStatus{}, false
	}
	return *s.last, true
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version.Version})
}

// handleReady reports ready once every configured guide has been written.
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	var missing []string
	for _, g := range s.guides {
		if !s.store.Exists(g) {
			missing = append(missing, g)
		}
	}
	if len(missing) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not_ready", "missing": missing})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	st, ok := s.LastRun()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]string{"status": "no_run_yet"})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleRun runs synchronously; a second request while one is in flight
// gets 409.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	logger := xglog.WithComponentFromContext(r.Context(), "api")

	if !s.running.CompareAndSwap(false, true) {
		logger.Warn().Str(xglog.FieldEvent, "run.conflict").Msg("run already in progress")
		w.Header().Set("Retry-After", "30")
		writeError(w, r, http.StatusConflict, "conflict", "a run is already in progress")
		return
	}
	defer s.running.Store(false)

	// The run outlives a disconnecting client.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.timeout)
	defer cancel()

	logger.Info().Str(xglog.FieldEvent, "run.requested").Str("remote_addr", r.RemoteAddr).Msg("on-demand run")
	report, err := s.runFn(ctx)
	if errors.Is(err, ErrRunInProgress) {
		w.Header().Set("Retry-After", "30")
		writeError(w, r, http.StatusConflict, "conflict", err.Error())
		return
	}
	st := NewRunStatus(report, err, time.Now())
	s.SetLastRun(st)

	code := http.StatusOK
	if err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "run.failed").Msg("on-demand run failed")
		code = http.StatusInternalServerError
	}
	writeJSON(w, code, st)
}
