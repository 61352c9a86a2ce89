// SPDX-License-Identifier: MIT

package schedule

import (
	"errors"
	"slices"
	"time"

	"github.com/pkepg/epgstitch/internal/epg"
)

// ErrEmptySchedule is returned when no entry survives parsing. Callers
// replace the schedule with FallbackGrid.
var ErrEmptySchedule = errors.New("no usable schedule entries")

// DefaultDuration is given to a trailing timeline entry with no stop.
const DefaultDuration = 30 * time.Minute

// Mode selects how raw entries are turned into programmes.
type Mode int

const (
	// Weekly listings carry weekday labels and start clocks only.
	Weekly Mode = iota
	// Timeline listings carry absolute starts and optional stops.
	Timeline
)

func (m Mode) String() string {
	if m == Timeline {
		return "timeline"
	}
	return "weekly"
}

// Options configures Build for one channel.
type Options struct {
	Mode      Mode
	Window    Window
	ChannelID string
	// FillGaps inserts Gap over uncovered intervals.
	FillGaps bool
	Gap      Filler
}

// Result is the outcome of Build.
type Result struct {
	Programmes []epg.Programme
	// Dropped holds one error per entry that could not be used.
	Dropped []error
	Filled  int
	Deduped int
	// Skipped lists window days without listings that were bridged by the
	// entry before them.
	Skipped []Day
}

// Build runs the normaliser, stitcher, de-duplicator and gap filler for one
// channel. It returns ErrEmptySchedule, together with the dropped entries,
// when nothing usable remains.
func Build(entries []epg.RawEntry, opts Options) (Result, error) {
	var res Result
	switch opts.Mode {
	case Timeline:
		res.Programmes, res.Dropped = timeline(entries, opts.Window, opts.ChannelID)
	default:
		res.Programmes, res.Dropped = Stitch(entries, opts.Window, opts.ChannelID)
		res.Skipped = SkippedDays(entries, opts.Window)
	}
	if len(res.Programmes) == 0 {
		return res, ErrEmptySchedule
	}

	res.Programmes, res.Deduped = Dedup(res.Programmes)
	if opts.FillGaps {
		res.Programmes, res.Filled = FillGaps(res.Programmes, opts.Gap)
	}
	return res, nil
}

// timeline orders entries with absolute times, takes missing stops from the
// next start and keeps those starting inside the window.
func timeline(entries []epg.RawEntry, w Window, channelID string) ([]epg.Programme, []error) {
	loc := w.location()
	today := epg.LocalMidnight(w.Now, loc)

	var (
		errs  []error
		progs = make([]epg.Programme, 0, len(entries))
	)
	for _, e := range entries {
		day := today
		if !e.Date.IsZero() {
			day = epg.LocalMidnight(e.Date, loc)
		}
		start, err := Normalize(e.StartToken, day)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		p := programmeFrom(e, start, channelID)
		if e.EndToken != "" {
			stop, err := Normalize(e.EndToken, day)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if !stop.After(start) {
				if !IsClockToken(e.EndToken) {
					errs = append(errs, timeError(e.EndToken, "stop not after start"))
					continue
				}
				// clock-only stop past midnight
				stop = stop.Add(24 * time.Hour)
			}
			p.Stop = stop
		}
		progs = append(progs, p)
	}
	slices.SortStableFunc(progs, func(a, b epg.Programme) int { return a.Start.Compare(b.Start) })

	for i := range progs {
		if progs[i].HasStop() {
			continue
		}
		if i+1 < len(progs) {
			progs[i].Stop = progs[i+1].Start
		} else {
			progs[i].Stop = progs[i].Start.Add(DefaultDuration)
		}
	}

	progs = slices.DeleteFunc(progs, func(p epg.Programme) bool { return !w.Contains(p.Start) })
	return dropEmpty(progs), errs
}
