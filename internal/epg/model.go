// SPDX-License-Identifier: MIT

// Package epg holds the programme guide model, the XMLTV codec, timezone
// projection and multi-document aggregation.
package epg

import "time"

// Channel is the metadata block of one broadcast channel.
type Channel struct {
	ID          string
	DisplayName string
	Logo        string
}

// Programme is one slot of a channel's schedule.
// Stop is the zero time until the slot has been stitched or supplied.
type Programme struct {
	Title    string
	SubTitle string
	Desc     string
	Start    time.Time
	Stop     time.Time
	Channel  string
}

// HasStop reports whether the programme has a known stop instant.
func (p Programme) HasStop() bool { return !p.Stop.IsZero() }

// Duration returns Stop-Start, or 0 when the stop is unknown.
func (p Programme) Duration() time.Duration {
	if !p.HasStop() {
		return 0
	}
	return p.Stop.Sub(p.Start)
}

// Schedule is the per-channel document.
type Schedule struct {
	Channel    Channel
	Programmes []Programme
}

// Guide is a combined document over many channels.
type Guide struct {
	Channels   []Channel
	Programmes []Programme
}

// RawEntry is what a source adapter extracts before any time handling.
//
// StartToken is mandatory. EndToken is optional. Weekday carries the label of
// the weekday section the entry was listed under ("Monday", "tue", ...), and
// Date pins clock tokens to a calendar date when the source states one.
type RawEntry struct {
	Title      string
	SubTitle   string
	Desc       string
	StartToken string
	EndToken   string
	Weekday    string
	Date       time.Time
}
