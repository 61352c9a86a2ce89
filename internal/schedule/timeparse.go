// SPDX-License-Identifier: MIT

// Package schedule turns raw listing entries into continuous programme
// sequences: clock normalisation, weekly stitching, gap filling,
// de-duplication and the synthetic fallback grid.
package schedule

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkepg/epgstitch/internal/epg"
)

// ErrParse classifies tokens and labels that could not be interpreted. Only
// the offending entry is dropped.
var ErrParse = errors.New("schedule parse error")

// ParseError carries the original token.
type ParseError struct {
	Kind   string // "time", "weekday"
	Token  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("unparseable %s %q", e.Kind, e.Token)
	}
	return fmt.Sprintf("unparseable %s %q: %s", e.Kind, e.Token, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrParse }

func timeError(token, reason string) error {
	return &ParseError{Kind: "time", Token: token, Reason: reason}
}

// Layouts tried in order against the canonical clock string.
var clockLayouts = []string{"3:04 PM", "15:04", "3:04PM"}

var (
	clockNoise   = regexp.MustCompile(`[^A-Z0-9: ]+`)
	clockSpaces  = regexp.MustCompile(`\s+`)
	clockPattern = regexp.MustCompile(`(\d+)(?::(\d{2}))?(?::\d{2})?(\s*)(NOON|MN|AM|PM)?`)

	meridiemDots = strings.NewReplacer("A.M.", "AM", "P.M.", "PM", "A.M", "AM", "P.M", "PM")

	dateTimePattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})[ T](\d{2}:\d{2}(?::\d{2})?)`)
)

// ParseClock interprets a wall-clock token ("8:00 PM", "0800", "1200NOON",
// "1200MN", "20.30") on the calendar date of day, in day's location.
// Seconds are accepted and dropped.
//
// NOON is read as PM and MN as AM, so "1200MN" is the start of the day.
func ParseClock(token string, day time.Time) (time.Time, error) {
	s := strings.ToUpper(strings.TrimSpace(token))
	s = meridiemDots.Replace(s)
	s = strings.ReplaceAll(s, ".", ":")
	s = clockNoise.ReplaceAllString(s, " ")
	s = strings.TrimSpace(clockSpaces.ReplaceAllString(s, " "))

	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, timeError(token, "no digits")
	}
	digits, minutes, gap, marker := m[1], m[2], m[3], m[4]

	var hour string
	switch {
	case minutes != "":
		hour = digits
	case len(digits) == 3 || len(digits) == 4:
		hour, minutes = digits[:len(digits)-2], digits[len(digits)-2:]
	case len(digits) <= 2:
		hour, minutes = digits, "00"
	default:
		return time.Time{}, timeError(token, "digit run too long")
	}
	h, err := strconv.Atoi(hour)
	if err != nil {
		return time.Time{}, timeError(token, err.Error())
	}

	switch marker {
	case "NOON":
		marker = "PM"
	case "MN":
		marker = "AM"
	}
	if h > 12 {
		// "13:00 PM": a 24-hour value with a stray marker
		marker = ""
	}
	if marker != "" && h == 0 {
		return time.Time{}, timeError(token, "hour 0 on a 12-hour clock")
	}

	canonical := fmt.Sprintf("%d:%s", h, minutes)
	switch {
	case marker == "":
	case gap == "":
		canonical += marker
	default:
		canonical += " " + marker
	}

	for _, layout := range clockLayouts {
		t, err := time.Parse(layout, canonical)
		if err != nil {
			continue
		}
		return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), nil
	}
	return time.Time{}, timeError(token, "no layout matched")
}

// Normalize turns any supported start/stop token into an absolute instant:
// XMLTV timestamps (no offset means UTC), RFC 3339, "2006-01-02 15:04[:05]"
// in day's location, or a clock token on day's date.
func Normalize(token string, day time.Time) (time.Time, error) {
	s := strings.TrimSpace(token)
	if s == "" {
		return time.Time{}, timeError(token, "empty")
	}
	if epg.IsXMLTVTime(s) {
		t, err := epg.ParseXMLTVTime(s)
		if err != nil {
			return time.Time{}, timeError(token, err.Error())
		}
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if m := dateTimePattern.FindStringSubmatch(s); m != nil {
		layout := "2006-01-02 15:04"
		if len(m[2]) == len("15:04:05") {
			layout = "2006-01-02 15:04:05"
		}
		t, err := time.ParseInLocation(layout, m[1]+" "+m[2], day.Location())
		if err != nil {
			return time.Time{}, timeError(token, err.Error())
		}
		return t, nil
	}
	return ParseClock(s, day)
}

// IsClockToken reports whether token carries no date of its own, so that
// Normalize places it on the day it is given.
func IsClockToken(token string) bool {
	s := strings.TrimSpace(token)
	return s != "" && !epg.IsXMLTVTime(s) && !dateTimePattern.MatchString(s)
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday accepts full English weekday names and their three-letter
// prefixes, case-insensitively.
func ParseWeekday(label string) (time.Weekday, error) {
	s := strings.ToLower(strings.Trim(strings.TrimSpace(label), ".:"))
	if wd, ok := weekdays[s]; ok {
		return wd, nil
	}
	if len(s) >= 3 {
		for name, wd := range weekdays {
			if strings.HasPrefix(name, s) {
				return wd, nil
			}
		}
	}
	return time.Sunday, &ParseError{Kind: "weekday", Token: label}
}
