// SPDX-License-Identifier: MIT

package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkepg/epgstitch/internal/epg"
)

// 2025-03-10 is a Monday.
var monday = time.Date(2025, 3, 10, 9, 0, 0, 0, pkt)

func at(dayOffset, hour, minute int) time.Time {
	return time.Date(2025, 3, 10+dayOffset, hour, minute, 0, 0, pkt)
}

func raw(weekday, start, title string) epg.RawEntry {
	return epg.RawEntry{Weekday: weekday, StartToken: start, Title: title}
}

func requireContinuous(t *testing.T, progs []epg.Programme) {
	t.Helper()
	for i := range progs {
		require.True(t, progs[i].HasStop(), "entry %d has no stop", i)
		require.True(t, progs[i].Stop.After(progs[i].Start), "entry %d is empty", i)
		if i+1 < len(progs) {
			require.False(t, progs[i+1].Start.Before(progs[i].Start), "entry %d out of order", i+1)
			require.True(t, progs[i].Stop.Equal(progs[i+1].Start), "entry %d stop %v != next start %v", i, progs[i].Stop, progs[i+1].Start)
		}
	}
}

func TestWindow_DayOrder(t *testing.T) {
	w := Window{Now: time.Date(2025, 3, 12, 22, 0, 0, 0, time.UTC), Location: pkt, Days: 7}
	days := w.DayOrder()
	require.Len(t, days, 7)
	// 22:00 UTC Wednesday is already Thursday in +05:00
	assert.Equal(t, time.Thursday, days[0].Weekday)
	assert.Equal(t, time.Date(2025, 3, 13, 0, 0, 0, 0, pkt), days[0].Date)
	assert.Equal(t, time.Wednesday, days[6].Weekday)
	assert.Equal(t, time.Date(2025, 3, 19, 0, 0, 0, 0, pkt), days[6].Date)

	w.Days = 3
	assert.Len(t, w.DayOrder(), 3)
	w.Days = 0
	assert.Len(t, w.DayOrder(), 7)
}

func TestStitch_SingleDayScenario(t *testing.T) {
	entries := []epg.RawEntry{
		raw("Monday", "06:00", "A"),
		raw("Monday", "07:30", "B"),
		raw("Monday", "09:00", "C"),
		raw("Tuesday", "05:00", "D"),
	}
	progs, errs := Stitch(entries, Window{Now: monday, Location: pkt, Days: 7}, "ch")
	require.Empty(t, errs)
	require.Len(t, progs, 4)

	assert.Equal(t, "A", progs[0].Title)
	assert.Equal(t, at(0, 6, 0), progs[0].Start)
	assert.Equal(t, at(0, 7, 30), progs[0].Stop)
	assert.Equal(t, at(0, 7, 30), progs[1].Start)
	assert.Equal(t, at(0, 9, 0), progs[1].Stop)
	assert.Equal(t, at(0, 9, 0), progs[2].Start)
	// C runs until the next day's first start
	assert.Equal(t, at(1, 5, 0), progs[2].Stop)
	assert.Equal(t, "ch", progs[2].Channel)
	requireContinuous(t, progs)
}

func TestStitch_LoopClosure(t *testing.T) {
	entries := []epg.RawEntry{
		raw("Monday", "08:00", "Morning"),
		raw("Monday", "20:00", "Evening"),
		raw("Wednesday", "10:00", "Midweek"),
	}
	progs, errs := Stitch(entries, Window{Now: monday, Location: pkt, Days: 7}, "ch")
	require.Empty(t, errs)
	require.Len(t, progs, 3)
	assert.Equal(t, at(2, 10, 0), progs[1].Stop)
	assert.Equal(t, at(0, 8, 0).Add(7*24*time.Hour), progs[2].Stop)
	requireContinuous(t, progs)
}

func TestStitch_SortsWithinDayAndWrapsWeek(t *testing.T) {
	// Listed out of order; Sunday precedes Monday in the listing but follows
	// it in a window starting on Monday.
	entries := []epg.RawEntry{
		raw("Sunday", "10:00 PM", "Late"),
		raw("Sunday", "6:00 AM", "Early"),
		raw("Monday", "9:00 PM", "Drama"),
		raw("Monday", "0800", "News"),
		raw("Tue", "1200NOON", "Noon"),
	}
	progs, errs := Stitch(entries, Window{Now: monday, Location: pkt, Days: 7}, "ch")
	require.Empty(t, errs)

	titles := make([]string, 0, len(progs))
	for _, p := range progs {
		titles = append(titles, p.Title)
	}
	assert.Equal(t, []string{"News", "Drama", "Noon", "Early", "Late"}, titles)
	assert.Equal(t, at(6, 6, 0), progs[3].Start)
	assert.Equal(t, at(0, 8, 0).Add(Week), progs[4].Stop)
	requireContinuous(t, progs)
}

func TestStitch_DropsBadEntriesOnly(t *testing.T) {
	entries := []epg.RawEntry{
		raw("Monday", "06:00", "A"),
		raw("Monday", "TBA", "Unknown"),
		raw("Someday", "07:00", "Nowhere"),
		raw("Monday", "08:00", "B"),
	}
	progs, errs := Stitch(entries, Window{Now: monday, Location: pkt, Days: 7}, "ch")
	require.Len(t, progs, 2)
	require.Len(t, errs, 2)
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrParse)
	}
	assert.Equal(t, at(0, 8, 0), progs[0].Stop)
}

func TestStitch_DuplicateStartsLeaveNoEmptySlots(t *testing.T) {
	entries := []epg.RawEntry{
		raw("Monday", "06:00", "A"),
		raw("Monday", "06:00", "A again"),
		raw("Monday", "07:00", "B"),
	}
	progs, _ := Stitch(entries, Window{Now: monday, Location: pkt, Days: 7}, "ch")
	require.Len(t, progs, 2)
	assert.Equal(t, "A again", progs[0].Title)
	requireContinuous(t, progs)
}

func TestStitch_ShortWindowIgnoresOtherDays(t *testing.T) {
	entries := []epg.RawEntry{
		raw("Monday", "06:00", "A"),
		raw("Tuesday", "06:00", "B"),
		raw("Friday", "06:00", "Outside"),
	}
	progs, errs := Stitch(entries, Window{Now: monday, Location: pkt, Days: 3}, "ch")
	require.Empty(t, errs)
	require.Len(t, progs, 2)
	assert.Equal(t, "B", progs[1].Title)
	assert.Equal(t, at(7, 6, 0), progs[1].Stop)
}

func TestStitch_Empty(t *testing.T) {
	progs, errs := Stitch(nil, Window{Now: monday, Location: pkt}, "ch")
	assert.Empty(t, progs)
	assert.Empty(t, errs)
}

func TestStitch_DateWithoutWeekday(t *testing.T) {
	entries := []epg.RawEntry{
		{Title: "Pinned", StartToken: "10:00", Date: at(1, 0, 0)},
	}
	progs, errs := Stitch(entries, Window{Now: monday, Location: pkt}, "ch")
	require.Empty(t, errs)
	require.Len(t, progs, 1)
	assert.Equal(t, at(1, 10, 0), progs[0].Start)
}

func TestSkippedDays(t *testing.T) {
	entries := []epg.RawEntry{
		raw("Monday", "06:00", "A"),
		raw("Thursday", "06:00", "B"),
	}
	w := Window{Now: monday, Location: pkt, Days: 7}
	skipped := SkippedDays(entries, w)
	require.Len(t, skipped, 2)
	assert.Equal(t, time.Tuesday, skipped[0].Weekday)
	assert.Equal(t, time.Wednesday, skipped[1].Weekday)

	progs, _ := Stitch(entries, w, "ch")
	require.Len(t, progs, 2)
	assert.Equal(t, 72*time.Hour, progs[0].Duration())
}
