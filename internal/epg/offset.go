// SPDX-License-Identifier: MIT

package epg

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// XMLTVLayout is the XMLTV timestamp layout: YYYYMMDDHHMMSS +ZZZZ
const XMLTVLayout = "20060102150405 -0700"

var (
	offsetPattern    = regexp.MustCompile(`^([+-])(\d{2}):?(\d{2})$`)
	timestampPattern = regexp.MustCompile(`^(\d{14})(?:\s*([+-]\d{4}))?$`)
)

// ParseOffset turns "+05:00", "+0500", "-0330", "Z" or "UTC" into a fixed
// location. The location name is the compact offset so logs stay readable.
func ParseOffset(s string) (*time.Location, error) {
	s = strings.TrimSpace(s)
	switch strings.ToUpper(s) {
	case "Z", "UTC", "+00:00", "+0000", "-00:00", "-0000":
		return time.UTC, nil
	}
	m := offsetPattern.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("invalid utc offset %q", s)
	}
	hh, _ := strconv.Atoi(m[2])
	mm, _ := strconv.Atoi(m[3])
	if hh > 14 || mm > 59 {
		return nil, fmt.Errorf("utc offset %q out of range", s)
	}
	secs := hh*3600 + mm*60
	if m[1] == "-" {
		secs = -secs
	}
	return time.FixedZone(m[1]+m[2]+m[3], secs), nil
}

// MustOffset is ParseOffset for compile-time constants.
func MustOffset(s string) *time.Location {
	loc, err := ParseOffset(s)
	if err != nil {
		panic(err)
	}
	return loc
}

// FormatXMLTVTime projects the absolute instant t onto loc and formats it in
// XMLTV format. A nil loc keeps the offset t already carries.
func FormatXMLTVTime(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(XMLTVLayout)
}

// ParseXMLTVTime parses "YYYYMMDDHHMMSS +ZZZZ". A timestamp without offset is
// taken as UTC.
func ParseXMLTVTime(s string) (time.Time, error) {
	m := timestampPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return time.Time{}, fmt.Errorf("unrecognised xmltv timestamp %q", s)
	}
	if m[2] == "" {
		return time.ParseInLocation("20060102150405", m[1], time.UTC)
	}
	return time.Parse(XMLTVLayout, m[1]+" "+m[2])
}

// IsXMLTVTime reports whether s looks like an XMLTV timestamp.
func IsXMLTVTime(s string) bool {
	return timestampPattern.MatchString(strings.TrimSpace(s))
}

// LocalMidnight returns 00:00 of t's calendar day in loc.
func LocalMidnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
