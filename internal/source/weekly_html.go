// SPDX-License-Identifier: MIT

package source

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/net/html"

	"github.com/pkepg/epgstitch/internal/epg"
	xglog "github.com/pkepg/epgstitch/internal/log"
	"github.com/pkepg/epgstitch/internal/schedule"
)

// weeklyHTML reads a schedule page split into weekday sections by
// <!-- Monday --> style comments. Inside a section the n-th time element
// belongs to the n-th title element.
type weeklyHTML struct {
	spec Spec
	deps Deps
}

func (a *weeklyHTML) Fetch(ctx context.Context) (Result, error) {
	logger := xglog.WithComponentFromContext(ctx, "source")
	url := a.spec.URLs[0]

	resp, err := a.deps.HTTP.Get(ctx, url)
	if err != nil {
		return Result{}, err
	}
	entries, err := ParseWeeklyHTML(resp.Body, a.spec.Time, a.spec.Title)
	if err != nil {
		return Result{}, fmt.Errorf("parse %s: %w", url, err)
	}
	logger.Debug().
		Str(xglog.FieldEvent, "source.parsed").
		Str(xglog.FieldURL, url).
		Int("entries", len(entries)).
		Msg("parsed weekly schedule page")

	now := resp.Date
	if now.IsZero() {
		now = a.deps.HTTP.ServerTime(ctx, url)
	}
	return Result{Entries: entries, Now: now, Mode: schedule.Weekly}, nil
}

type daySection struct {
	label  string
	times  []string
	titles []string
}

// ParseWeeklyHTML extracts raw entries from a weekday-sectioned page.
func ParseWeeklyHTML(body []byte, timeSel, titleSel Selector) ([]epg.RawEntry, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var (
		sections []*daySection
		current  *daySection
	)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.CommentNode:
			// any other comment (footer, widget) ends the open day
			current = nil
			label := strings.TrimSpace(n.Data)
			if !strings.ContainsAny(label, " \t\n") {
				if _, err := schedule.ParseWeekday(label); err == nil {
					current = &daySection{label: label}
					sections = append(sections, current)
				}
			}
			return
		case html.ElementNode:
			switch {
			case timeSel.matches(n):
				if current != nil {
					current.times = append(current.times, timeText(n))
				}
				return
			case titleSel.matches(n):
				if current != nil {
					if t := clean(textContent(n)); t != "" {
						current.titles = append(current.titles, t)
					}
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	var out []epg.RawEntry
	for _, s := range sections {
		n := min(len(s.times), len(s.titles))
		for i := 0; i < n; i++ {
			start, end := SplitRange(s.times[i])
			out = append(out, epg.RawEntry{
				Title:      s.titles[i],
				StartToken: start,
				EndToken:   end,
				Weekday:    s.label,
			})
		}
	}
	return out, nil
}

func (s Selector) matches(n *html.Node) bool {
	if n.Type != html.ElementNode || !strings.EqualFold(n.Data, s.Tag) {
		return false
	}
	if s.Class == "" {
		return true
	}
	var have []string
	for _, a := range n.Attr {
		if a.Key == "class" {
			have = strings.Fields(a.Val)
		}
	}
	for _, want := range strings.Fields(s.Class) {
		if !slices.Contains(have, want) {
			return false
		}
	}
	return true
}

// timeText is the element's own text, or else the first line of the text
// that follows it (icon fonts put the time next to an empty <i>).
func timeText(n *html.Node) string {
	if t := clean(textContent(n)); t != "" {
		return t
	}
	var b strings.Builder
	for sib := n.NextSibling; sib != nil && sib.Type == html.TextNode; sib = sib.NextSibling {
		b.WriteString(sib.Data)
	}
	for _, line := range strings.Split(b.String(), "\n") {
		if line = clean(line); line != "" {
			return line
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}

var rangeSep = regexp.MustCompile(`(?i)\s*[-\x{2013}\x{2014}]\s*|\s+to\s+`)

// SplitRange splits "8:00 PM - 9:00 PM" into its two ends. A single time
// returns an empty end.
func SplitRange(s string) (start, end string) {
	parts := rangeSep.Split(strings.TrimSpace(s), 2)
	start = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		end = strings.TrimSpace(parts[1])
	}
	return start, end
}
