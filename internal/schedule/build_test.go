// SPDX-License-Identifier: MIT

package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkepg/epgstitch/internal/epg"
)

func TestBuild_Weekly(t *testing.T) {
	entries := []epg.RawEntry{
		raw("Monday", "06:00", "News"),
		raw("Monday", "07:00", "Talk"),
		raw("Monday", "bogus", "Broken"),
		raw("Thursday", "06:00", "News"),
	}
	res, err := Build(entries, Options{
		Mode:      Weekly,
		Window:    Window{Now: monday, Location: pkt, Days: 7},
		ChannelID: "ch",
		FillGaps:  true,
		Gap:       DefaultGapFiller,
	})
	require.NoError(t, err)
	require.Len(t, res.Programmes, 3)
	assert.Len(t, res.Dropped, 1)
	assert.Zero(t, res.Filled)
	assert.Len(t, res.Skipped, 2)
	requireContinuous(t, res.Programmes)
}

func TestBuild_Empty(t *testing.T) {
	res, err := Build([]epg.RawEntry{raw("Monday", "TBA", "x")}, Options{
		Window:    Window{Now: monday, Location: pkt},
		ChannelID: "ch",
	})
	assert.ErrorIs(t, err, ErrEmptySchedule)
	assert.Empty(t, res.Programmes)
	assert.Len(t, res.Dropped, 1)

	_, err = Build(nil, Options{Mode: Timeline, Window: Window{Now: monday, Location: pkt, Days: 3}})
	assert.ErrorIs(t, err, ErrEmptySchedule)
}

func TestBuild_Timeline(t *testing.T) {
	src := epg.MustOffset("+01:00")
	entries := []epg.RawEntry{
		// out of window (yesterday in +05:00)
		{Title: "Old", StartToken: "20250309120000 +0500", EndToken: "20250309130000 +0500"},
		{Title: "Newshour", StartToken: "20250310060000 +0100", EndToken: "20250310070000 +0100"},
		{Title: "Inside Story", StartToken: "20250310070000 +0100"},
		{Title: "Gap follows", StartToken: "20250310080000 +0100", EndToken: "20250310083000 +0100"},
		{Title: "Witness", StartToken: "20250310090000 +0100", EndToken: "20250310100000 +0100"},
		{Title: "Witness", StartToken: "20250310090000 +0100", EndToken: "20250310100000 +0100"},
		{Title: "Late", StartToken: "20250312210000 +0500"},
		// out of window (day 3)
		{Title: "Future", StartToken: "20250313000000 +0500"},
	}
	res, err := Build(entries, Options{
		Mode:      Timeline,
		Window:    Window{Now: monday, Location: pkt, Days: 3},
		ChannelID: "aj",
		FillGaps:  true,
		Gap:       Filler{Title: "Filler"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Deduped)
	assert.Empty(t, res.Dropped)

	titles := make([]string, 0, len(res.Programmes))
	for _, p := range res.Programmes {
		titles = append(titles, p.Title)
		assert.Equal(t, "aj", p.Channel)
	}
	assert.Equal(t, []string{"Newshour", "Inside Story", "Gap follows", "Filler", "Witness", "Filler", "Late"}, titles)

	newshour := res.Programmes[0]
	assert.Equal(t, "20250310100000 +0500", epg.FormatXMLTVTime(newshour.Start, pkt))
	assert.True(t, newshour.Start.Equal(time.Date(2025, 3, 10, 6, 0, 0, 0, src)))
	// missing stop taken from the next start
	assert.True(t, res.Programmes[1].Stop.Equal(time.Date(2025, 3, 10, 8, 0, 0, 0, src)))
	// stops are inferred before the window cut, so Late runs until Future
	last := res.Programmes[len(res.Programmes)-1]
	assert.True(t, last.Stop.Equal(time.Date(2025, 3, 13, 0, 0, 0, 0, pkt)))
}

func TestBuild_TimelineClockTokens(t *testing.T) {
	day := time.Date(2025, 3, 11, 0, 0, 0, 0, pkt)
	entries := []epg.RawEntry{
		{Title: "Night", StartToken: "11:00 PM", EndToken: "1:00 AM", Date: day},
		{Title: "Morning", StartToken: "1:00 AM", Date: day.AddDate(0, 0, 1)},
	}
	res, err := Build(entries, Options{
		Mode:      Timeline,
		Window:    Window{Now: monday, Location: pkt, Days: 3},
		ChannelID: "ch",
	})
	require.NoError(t, err)
	require.Len(t, res.Programmes, 2)
	assert.Equal(t, at(1, 23, 0), res.Programmes[0].Start)
	assert.Equal(t, at(2, 1, 0), res.Programmes[0].Stop)
	assert.Equal(t, at(2, 1, 0), res.Programmes[1].Start)
	// trailing entry gets the default duration
	assert.Equal(t, DefaultDuration, res.Programmes[1].Duration())
}

func TestBuild_TimelineReversedAbsoluteStop(t *testing.T) {
	entries := []epg.RawEntry{
		{Title: "A", StartToken: "2025-03-10T10:00:00Z", EndToken: "2025-03-10T09:00:00Z"},
		{Title: "B", StartToken: "2025-03-10T12:00:00Z", EndToken: "2025-03-10T13:00:00Z"},
		{Title: "C", StartToken: "2025-03-10 20:00", EndToken: "2025-03-10 19:30"},
	}
	res, err := Build(entries, Options{
		Mode:      Timeline,
		Window:    Window{Now: monday, Location: pkt, Days: 3},
		ChannelID: "ch",
	})
	require.NoError(t, err)
	require.Len(t, res.Programmes, 1)
	assert.Equal(t, "B", res.Programmes[0].Title)
	require.Len(t, res.Dropped, 2)
	for _, err := range res.Dropped {
		assert.ErrorIs(t, err, ErrParse)
	}
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "weekly", Weekly.String())
	assert.Equal(t, "timeline", Timeline.String())
}
