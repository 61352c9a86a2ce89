// SPDX-License-Identifier: MIT

package epg

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	markerRerun   = regexp.MustCompile(`(?i)\(r\)`)
	markerFresh   = regexp.MustCompile(`(?i)\(f\)`)
	markerEpisode = regexp.MustCompile(`(?i)\(ep`)
)

// TitleCase capitalises each word of a listing title while keeping the
// broadcaster's (R), (F) and (Ep markers readable.
func TitleCase(s string) string {
	// Caser carries state and is not safe for concurrent use.
	t := cases.Title(language.English).String(strings.ToLower(strings.TrimSpace(s)))
	t = markerRerun.ReplaceAllString(t, "(R)")
	t = markerFresh.ReplaceAllString(t, "(F)")
	return markerEpisode.ReplaceAllString(t, "(Ep")
}

type titleMarker struct {
	pattern *regexp.Regexp
	label   string
}

// Order matters: it is the order labels appear in the description.
var titleMarkers = []titleMarker{
	{regexp.MustCompile(`(?i)\(FRESH REPEAT\)`), "Fresh Repeat"},
	{regexp.MustCompile(`(?i)\(FRESH\)|\(F\)`), "Fresh"},
	{regexp.MustCompile(`(?i)\(1ST RPT\)`), "1st Repeat"},
	{regexp.MustCompile(`(?i)\(SPECIAL\)|\(S\)`), "Special"},
	{regexp.MustCompile(`(?i)\(LIVE\)`), "Live"},
	{regexp.MustCompile(`(?i)\(EP\s*[:\-]?\s*(\d+[^)]*)\)`), ""},
	{regexp.MustCompile(`(?i)\(RPT\)|\(REPEAT\)|\(R\)`), "Repeat"},
}

// DescribeFromTitle builds a description for sources that list only titles:
// the title-cased title followed by one line per recognised marker.
func DescribeFromTitle(raw string) string {
	lines := []string{TitleCase(raw)}
	seen := make(map[string]struct{})
	for _, m := range titleMarkers {
		match := m.pattern.FindStringSubmatch(raw)
		if match == nil {
			continue
		}
		label := m.label
		if label == "" {
			label = "Episode " + strings.TrimSpace(match[1])
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		lines = append(lines, label)
	}
	return strings.Join(lines, "\n")
}
