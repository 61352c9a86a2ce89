// SPDX-License-Identifier: MIT

package epg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOffset(t *testing.T) {
	tests := []struct {
		in      string
		secs    int
		name    string
		wantErr bool
	}{
		{in: "+05:00", secs: 5 * 3600, name: "+0500"},
		{in: "+0500", secs: 5 * 3600, name: "+0500"},
		{in: "-03:30", secs: -(3*3600 + 30*60), name: "-0330"},
		{in: "+12:45", secs: 12*3600 + 45*60, name: "+1245"},
		{in: "Z", secs: 0, name: "UTC"},
		{in: "utc", secs: 0, name: "UTC"},
		{in: "+00:00", secs: 0, name: "UTC"},
		{in: "05:00", wantErr: true},
		{in: "+5", wantErr: true},
		{in: "+15:00", wantErr: true},
		{in: "+05:60", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			loc, err := ParseOffset(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			name, secs := time.Date(2025, 1, 1, 0, 0, 0, 0, loc).Zone()
			assert.Equal(t, tt.secs, secs)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestFormatXMLTVTime_ProjectsAbsoluteInstant(t *testing.T) {
	src := MustOffset("+01:00")
	target := MustOffset("+05:00")

	in := time.Date(2025, 3, 10, 6, 0, 0, 0, src)
	assert.Equal(t, "20250310100000 +0500", FormatXMLTVTime(in, target))
	// nil keeps the source offset
	assert.Equal(t, "20250310060000 +0100", FormatXMLTVTime(in, nil))
}

func TestFormatXMLTVTime_CrossesMidnight(t *testing.T) {
	in := time.Date(2025, 3, 10, 22, 30, 0, 0, time.UTC)
	assert.Equal(t, "20250311033000 +0500", FormatXMLTVTime(in, MustOffset("+05:00")))
}

func TestFormatXMLTVTime_Idempotent(t *testing.T) {
	loc := MustOffset("+05:00")
	in := time.Date(2025, 7, 4, 23, 59, 0, 0, MustOffset("-04:00"))
	assert.Equal(t, FormatXMLTVTime(in, loc), FormatXMLTVTime(in, loc))
}

func TestXMLTVTime_RoundTrip(t *testing.T) {
	instants := []time.Time{
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 15, 19, 45, 0, 0, MustOffset("+05:00")),
		time.Date(2024, 2, 29, 23, 59, 59, 0, MustOffset("-09:30")),
	}
	for _, in := range instants {
		for _, loc := range []*time.Location{nil, MustOffset("+05:00"), time.UTC} {
			s := FormatXMLTVTime(in, loc)
			got, err := ParseXMLTVTime(s)
			require.NoError(t, err, s)
			assert.True(t, got.Equal(in), "%s: got %v want %v", s, got, in)
		}
	}
}

func TestParseXMLTVTime_NoOffsetIsUTC(t *testing.T) {
	got, err := ParseXMLTVTime("20250310060000")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)))

	got, err = ParseXMLTVTime("20250310060000 +0100")
	require.NoError(t, err)
	assert.Equal(t, "20250310100000 +0500", FormatXMLTVTime(got, MustOffset("+05:00")))
}

func TestParseXMLTVTime_Rejects(t *testing.T) {
	for _, in := range []string{"", "2025031006", "20250310060000 +05:00", "not a time", "20251310060000 +0000"} {
		_, err := ParseXMLTVTime(in)
		assert.Error(t, err, in)
	}
}

func TestLocalMidnight(t *testing.T) {
	loc := MustOffset("+05:00")
	in := time.Date(2025, 3, 10, 20, 30, 0, 0, time.UTC) // 01:30 next day in +05:00
	got := LocalMidnight(in, loc)
	assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, loc), got)
}
