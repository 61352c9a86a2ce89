// SPDX-License-Identifier: MIT

package epg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTitleCase(t *testing.T) {
	tests := map[string]string{
		"NEWS HEADLINES (R)":   "News Headlines (R)",
		"drama serial (ep 12)": "Drama Serial (Ep 12)",
		"  morning show (f)  ": "Morning Show (F)",
		"KHABARNAMA":           "Khabarnama",
	}
	for in, want := range tests {
		assert.Equal(t, want, TitleCase(in), in)
	}
}

func TestDescribeFromTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"KHABARNAMA", "Khabarnama"},
		{"KHABARNAMA (LIVE)", "Khabarnama (Live)\nLive"},
		{"Drama (EP-12) (R)", "Drama (Ep-12) (R)\nEpisode 12\nRepeat"},
		{"Show (Fresh Repeat)", "Show (Fresh Repeat)\nFresh Repeat"},
		{"Show (F) (RPT)", "Show (F) (Rpt)\nFresh\nRepeat"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DescribeFromTitle(tt.in), tt.in)
	}
	assert.Contains(t, DescribeFromTitle("Quiz (1ST RPT)"), "\n1st Repeat")
}

func TestStableID(t *testing.T) {
	assert.Equal(t, "PTV.News.pk", StableID("PTV News", "pk"))
	assert.Equal(t, "Geo.Entertainment.pk", StableID("  Geo -- Entertainment ", "PK"))
	assert.Equal(t, "ARY.Zauq", StableID("ARY Zauq!", ""))
	assert.Equal(t, "", StableID("!!!", "pk"))
	assert.Equal(t, "Cafe.TV", StableID("Café TV", ""))
}

func TestFileSlug(t *testing.T) {
	assert.Equal(t, "Geo-News", FileSlug("Geo News"))
	assert.Equal(t, "Al-Jazeera", FileSlug("Al.Jazeera"))
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, Similarity("Newshour", "NEWSHOUR"), 1e-9)
	assert.InDelta(t, 1.0, Similarity("Inside: Story", "story inside"), 1e-9)
	assert.Less(t, Similarity("Cricket Highlights Tonight", "Newshour"), DefaultMatchThreshold)
	assert.Zero(t, Similarity("", ""))
}

func TestEnrich(t *testing.T) {
	start := time.Date(2025, 3, 10, 6, 0, 0, 0, pkt)
	progs := []Programme{
		{Title: "Inside Story", Start: start},
		{Title: "Cricket Highlights Tonight", Start: start.Add(time.Hour)},
		{Title: "Inside Story", Start: start.Add(2 * time.Hour)},
		{Title: "Newshour", Desc: "kept", Start: start.Add(3 * time.Hour)},
	}
	reference := []Programme{
		{Title: "Inside Story Americas", Desc: "Debate"},
		{Title: "Newshour", Desc: "World news"},
		{Title: "Cricket", Desc: ""},
	}

	n := Enrich(progs, reference, DefaultMatchThreshold)
	assert.Equal(t, 2, n)
	assert.Equal(t, "Debate", progs[0].Desc)
	assert.Empty(t, progs[1].Desc)
	assert.Equal(t, "Debate", progs[2].Desc)
	assert.Equal(t, "kept", progs[3].Desc)

	assert.Zero(t, Enrich(progs, nil, DefaultMatchThreshold))
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 3, levenshtein("kitten", "sitting"))
	assert.Equal(t, 4, levenshtein("", "news"))
	assert.Equal(t, 0, levenshtein("geo", "geo"))
}
