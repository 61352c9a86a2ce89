// SPDX-License-Identifier: MIT

package schedule

import (
	"fmt"
	"time"

	"github.com/pkepg/epgstitch/internal/epg"
)

// Filler describes the synthetic programme used for gaps and for the
// fallback grid.
type Filler struct {
	Title    string
	SubTitle string
	Desc     string
}

// Defaults used when a channel configures none.
var (
	DefaultGapFiller = Filler{
		Title: "Special Programme",
		Desc:  "Special Programme",
	}
	DefaultFallbackFiller = Filler{
		Title:    "Generic Show",
		SubTitle: "Generic Show Category",
		Desc:     "Regular programming. Listings for this channel are not available.",
	}
)

func (f Filler) programme(start, stop time.Time, channelID string) epg.Programme {
	return epg.Programme{
		Title:    f.Title,
		SubTitle: f.SubTitle,
		Desc:     f.Desc,
		Start:    start,
		Stop:     stop,
		Channel:  channelID,
	}
}

// FillGaps inserts one filler entry for every uncovered interval between
// consecutive programmes. progs must be sorted by start. An interval counts as
// covered when any earlier programme still runs into it, so overlapping input
// never produces negative fillers.
func FillGaps(progs []epg.Programme, f Filler) ([]epg.Programme, int) {
	if len(progs) < 2 {
		return progs, 0
	}
	out := make([]epg.Programme, 0, len(progs))
	var (
		reach  time.Time
		filled int
	)
	for i, p := range progs {
		if i > 0 && !reach.IsZero() && reach.Before(p.Start) {
			out = append(out, f.programme(reach, p.Start, p.Channel))
			filled++
		}
		out = append(out, p)
		end := p.Stop
		if !p.HasStop() {
			end = p.Start
		}
		if end.After(reach) {
			reach = end
		}
	}
	return out, filled
}

type dedupKey struct {
	start, stop int64
	title       string
}

// Dedup drops later entries that repeat the (start, stop, normalised title)
// of an earlier one. Survivors keep their relative order.
func Dedup(progs []epg.Programme) ([]epg.Programme, int) {
	seen := make(map[dedupKey]struct{}, len(progs))
	out := make([]epg.Programme, 0, len(progs))
	for _, p := range progs {
		k := dedupKey{
			start: p.Start.UnixNano(),
			title: epg.NormalizeTitle(p.Title),
		}
		if p.HasStop() {
			k.stop = p.Stop.UnixNano()
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out, len(progs) - len(out)
}

// FallbackGrid produces a contiguous grid of filler slots covering days
// calendar days from local midnight of now in loc. slot must divide a day.
func FallbackGrid(now time.Time, loc *time.Location, days int, slot time.Duration, f Filler, channelID string) ([]epg.Programme, error) {
	if loc == nil {
		loc = time.UTC
	}
	if days <= 0 {
		return nil, fmt.Errorf("fallback grid: days must be positive, got %d", days)
	}
	if slot <= 0 || (24*time.Hour)%slot != 0 {
		return nil, fmt.Errorf("fallback grid: slot %s does not divide a day", slot)
	}
	perDay := int((24 * time.Hour) / slot)
	start := epg.LocalMidnight(now, loc)

	out := make([]epg.Programme, 0, days*perDay)
	for d := 0; d < days; d++ {
		dayStart := start.AddDate(0, 0, d)
		for i := 0; i < perDay; i++ {
			s := dayStart.Add(time.Duration(i) * slot)
			out = append(out, f.programme(s, s.Add(slot), channelID))
		}
	}
	return out, nil
}
