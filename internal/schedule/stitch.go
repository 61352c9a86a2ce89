// SPDX-License-Identifier: MIT

package schedule

import (
	"slices"
	"strings"
	"time"

	"github.com/pkepg/epgstitch/internal/epg"
)

// Week is the period the weekly loop closure assumes.
const Week = 7 * 24 * time.Hour

// Window is the rolling range of days a weekly listing is projected onto.
type Window struct {
	// Now is the reference instant; its date in Location is day 0.
	Now      time.Time
	Location *time.Location
	// Days is the window length, 1..7. Zero means a full week.
	Days int
}

// Day is one concrete calendar day of a window.
type Day struct {
	Weekday time.Weekday
	// Date is local midnight in the window's location.
	Date time.Time
}

func (w Window) location() *time.Location {
	if w.Location == nil {
		return time.UTC
	}
	return w.Location
}

func (w Window) length() int {
	if w.Days <= 0 || w.Days > 7 {
		return 7
	}
	return w.Days
}

// DayOrder lists the window's days starting at today's weekday and wrapping
// around the week.
func (w Window) DayOrder() []Day {
	start := epg.LocalMidnight(w.Now, w.location())
	out := make([]Day, w.length())
	for i := range out {
		d := start.AddDate(0, 0, i)
		out[i] = Day{Weekday: d.Weekday(), Date: d}
	}
	return out
}

// Contains reports whether t falls on one of the window's calendar days.
func (w Window) Contains(t time.Time) bool {
	start := epg.LocalMidnight(w.Now, w.location())
	end := start.AddDate(0, 0, w.length())
	return !t.Before(start) && t.Before(end)
}

// cursor is threaded through the day walk. open is the index in the output of
// the entry still waiting for a stop, or -1.
type cursor struct {
	day  Day
	open int
}

// Stitch projects weekday-labelled entries onto the window and infers every
// stop from the following start. The last entry of a day is linked to the
// first entry of the next day that has any; days without entries are
// skipped. The very last entry closes the weekly loop at the first start
// plus seven days.
//
// Entries that cannot be placed are returned as errors and left out.
func Stitch(entries []epg.RawEntry, w Window, channelID string) ([]epg.Programme, []error) {
	var errs []error
	byDay := make(map[time.Weekday][]epg.RawEntry, 7)
	for _, e := range entries {
		wd, err := entryWeekday(e, w.location())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		byDay[wd] = append(byDay[wd], e)
	}

	var out []epg.Programme
	cur := cursor{open: -1}
	for _, day := range w.DayOrder() {
		raw := byDay[day.Weekday]
		if len(raw) == 0 {
			continue
		}
		var dayErrs []error
		out, cur, dayErrs = stitchDay(out, cur, day, raw, channelID)
		errs = append(errs, dayErrs...)
	}
	if len(out) == 0 {
		return nil, errs
	}
	if cur.open >= 0 {
		out[cur.open].Stop = out[0].Start.Add(Week)
	}
	return dropEmpty(out), errs
}

// stitchDay appends one day's entries, closing the entry left open by the
// previous non-empty day.
func stitchDay(out []epg.Programme, cur cursor, day Day, raw []epg.RawEntry, channelID string) ([]epg.Programme, cursor, []error) {
	var errs []error
	items := make([]epg.Programme, 0, len(raw))
	for _, e := range raw {
		start, err := Normalize(e.StartToken, day.Date)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		items = append(items, programmeFrom(e, start, channelID))
	}
	if len(items) == 0 {
		return out, cur, errs
	}
	slices.SortStableFunc(items, func(a, b epg.Programme) int { return a.Start.Compare(b.Start) })

	if cur.open >= 0 {
		out[cur.open].Stop = items[0].Start
	}
	for i := 0; i < len(items)-1; i++ {
		items[i].Stop = items[i+1].Start
	}
	out = append(out, items...)
	return out, cursor{day: day, open: len(out) - 1}, errs
}

func entryWeekday(e epg.RawEntry, loc *time.Location) (time.Weekday, error) {
	if strings.TrimSpace(e.Weekday) == "" && !e.Date.IsZero() {
		return e.Date.In(loc).Weekday(), nil
	}
	return ParseWeekday(e.Weekday)
}

func programmeFrom(e epg.RawEntry, start time.Time, channelID string) epg.Programme {
	return epg.Programme{
		Title:    strings.TrimSpace(e.Title),
		SubTitle: strings.TrimSpace(e.SubTitle),
		Desc:     strings.TrimSpace(e.Desc),
		Start:    start,
		Channel:  channelID,
	}
}

// dropEmpty removes entries whose stop does not follow their start. Duplicate
// starts produce these; the later duplicate keeps the slot.
func dropEmpty(progs []epg.Programme) []epg.Programme {
	return slices.DeleteFunc(progs, func(p epg.Programme) bool {
		return p.HasStop() && !p.Stop.After(p.Start)
	})
}

// SkippedDays returns the window days that have no entries while a later day
// does. Cross-day linking spans them, so the entry before such a gap runs
// for more than a day.
func SkippedDays(entries []epg.RawEntry, w Window) []Day {
	present := make(map[time.Weekday]bool, 7)
	for _, e := range entries {
		if wd, err := entryWeekday(e, w.location()); err == nil {
			present[wd] = true
		}
	}
	var (
		out     []Day
		pending []Day
		seen    bool
	)
	for _, d := range w.DayOrder() {
		if present[d.Weekday] {
			if seen {
				out = append(out, pending...)
			}
			pending = pending[:0]
			seen = true
			continue
		}
		if seen {
			pending = append(pending, d)
		}
	}
	return out
}
