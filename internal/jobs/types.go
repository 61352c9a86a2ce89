// SPDX-License-Identifier: MIT

// Package jobs runs the batch operations: mirroring feeds, generating one
// document per channel and aggregating documents into guides.
package jobs

import (
	"errors"
	"time"

	"github.com/pkepg/epgstitch/internal/source"
	"github.com/pkepg/epgstitch/internal/store"
)

// ErrNothingProduced is the only run-level failure: every selected channel
// failed and no document exists for any of them.
var ErrNothingProduced = errors.New("no channel produced a document")

// ErrNoGuideWritten is returned by Aggregate when every selected guide
// failed to be written.
var ErrNoGuideWritten = errors.New("no guide could be written")

// ErrUnknownChannel is returned when a requested channel id is not configured.
var ErrUnknownChannel = errors.New("unknown channel")

// Outcome of one channel pipeline.
type Outcome string

const (
	OutcomeGenerated Outcome = "generated"
	OutcomeFallback  Outcome = "fallback"
	OutcomeFresh     Outcome = "fresh"
	OutcomeFailed    Outcome = "failed"
)

// Deps holds the shared resources of a run.
type Deps struct {
	Store *store.Store
	HTTP  source.Getter
	// Clock defaults to time.Now.
	Clock func() time.Time
}

func (d Deps) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now()
}

// ChannelResult is the outcome of one channel pipeline.
type ChannelResult struct {
	ID         string
	Name       string
	Kind       string
	Outcome    Outcome
	Programmes int
	Dropped    int
	Filled     int
	Deduped    int
	Enriched   int
	Outputs    []string
	Duration   time.Duration
	Err        error
}

// Report summarises a generate run.
type Report struct {
	JobID    string
	Started  time.Time
	Finished time.Time
	Channels []ChannelResult
}

// Count returns how many channels ended with outcome o.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, c := range r.Channels {
		if c.Outcome == o {
			n++
		}
	}
	return n
}

// GuideResult is the outcome of one aggregation.
type GuideResult struct {
	Name       string
	Output     string
	Merged     int
	Skipped    int
	Channels   int
	Programmes int
	Err        error
}

// FeedResult is the outcome of mirroring one feed.
type FeedResult struct {
	Name    string
	Output  string
	Outcome string
	Bytes   int
	Err     error
}
