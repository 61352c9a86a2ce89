// SPDX-License-Identifier: MIT

package epg

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	unorm "golang.org/x/text/unicode/norm"
)

// Generator is written into generator-info-name.
const Generator = "epgstitch"

// MaxDocumentSize bounds how much of a single XMLTV document is decoded.
// Country-wide feeds run to a few hundred MB uncompressed.
const MaxDocumentSize = 512 * 1024 * 1024

// TV is the XMLTV root element.
type TV struct {
	XMLName   xml.Name       `xml:"tv"`
	Generator string         `xml:"generator-info-name,attr,omitempty"`
	Channels  []XMLChannel   `xml:"channel"`
	Programs  []XMLProgramme `xml:"programme"`
}

type XMLChannel struct {
	ID          string   `xml:"id,attr"`
	DisplayName []string `xml:"display-name"`
	Icon        *Icon    `xml:"icon,omitempty"`
}

type Icon struct {
	Src string `xml:"src,attr"`
}

type XMLProgramme struct {
	Start    string `xml:"start,attr"`
	Stop     string `xml:"stop,attr,omitempty"`
	Channel  string `xml:"channel,attr"`
	Title    Text   `xml:"title"`
	SubTitle *Text  `xml:"sub-title,omitempty"`
	Desc     *Text  `xml:"desc,omitempty"`
}

// Text is a localisable XMLTV text element.
type Text struct {
	// Lang contains the language code (optional).
	Lang string `xml:"lang,attr,omitempty"`
	// Value is the character data of the element.
	Value string `xml:",chardata"`
}

func optionalText(s string) *Text {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &Text{Value: s}
}

func textValue(t *Text) string {
	if t == nil {
		return ""
	}
	return strings.TrimSpace(t.Value)
}

// ToXMLChannel converts channel metadata to its XMLTV element.
func ToXMLChannel(c Channel) XMLChannel {
	out := XMLChannel{ID: c.ID, DisplayName: []string{c.DisplayName}}
	if c.Logo != "" {
		out.Icon = &Icon{Src: c.Logo}
	}
	return out
}

// ToXMLProgramme converts a programme, projecting its instants onto loc.
// A nil loc keeps each instant's own offset.
func ToXMLProgramme(p Programme, loc *time.Location) XMLProgramme {
	out := XMLProgramme{
		Start:    FormatXMLTVTime(p.Start, loc),
		Channel:  p.Channel,
		Title:    Text{Value: p.Title},
		SubTitle: optionalText(p.SubTitle),
		Desc:     optionalText(p.Desc),
	}
	if p.HasStop() {
		out.Stop = FormatXMLTVTime(p.Stop, loc)
	}
	return out
}

// FromXMLChannel converts an XMLTV channel element. The first non-empty
// display-name wins.
func FromXMLChannel(c XMLChannel) Channel {
	out := Channel{ID: strings.TrimSpace(c.ID)}
	for _, name := range c.DisplayName {
		if name = strings.TrimSpace(name); name != "" {
			out.DisplayName = name
			break
		}
	}
	if c.Icon != nil {
		out.Logo = strings.TrimSpace(c.Icon.Src)
	}
	return out
}

// FromXMLProgramme parses the timestamps of an XMLTV programme element.
func FromXMLProgramme(p XMLProgramme) (Programme, error) {
	start, err := ParseXMLTVTime(p.Start)
	if err != nil {
		return Programme{}, fmt.Errorf("programme start: %w", err)
	}
	out := Programme{
		Title:    strings.TrimSpace(p.Title.Value),
		SubTitle: textValue(p.SubTitle),
		Desc:     textValue(p.Desc),
		Start:    start,
		Channel:  strings.TrimSpace(p.Channel),
	}
	if strings.TrimSpace(p.Stop) != "" {
		stop, err := ParseXMLTVTime(p.Stop)
		if err != nil {
			return Programme{}, fmt.Errorf("programme stop: %w", err)
		}
		out.Stop = stop
	}
	return out, nil
}

// BuildTV assembles an XMLTV document. Programme instants are projected onto
// loc (nil keeps their own offsets).
func BuildTV(channels []Channel, programmes []Programme, loc *time.Location) *TV {
	tv := &TV{
		Generator: Generator,
		Channels:  make([]XMLChannel, 0, len(channels)),
		Programs:  make([]XMLProgramme, 0, len(programmes)),
	}
	for _, c := range channels {
		tv.Channels = append(tv.Channels, ToXMLChannel(c))
	}
	for _, p := range programmes {
		tv.Programs = append(tv.Programs, ToXMLProgramme(p, loc))
	}
	return tv
}

// Encode renders tv as an indented UTF-8 XMLTV document.
func Encode(tv *TV) ([]byte, error) {
	out, err := xml.MarshalIndent(tv, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal xmltv: %w", err)
	}
	var buf bytes.Buffer
	buf.Grow(len(out) + 64)
	buf.WriteString(xml.Header)
	buf.Write(out)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// EncodeSchedule renders a per-channel document in the target offset.
func EncodeSchedule(s Schedule, loc *time.Location) ([]byte, error) {
	return Encode(BuildTV([]Channel{s.Channel}, s.Programmes, loc))
}

// EncodeGuide renders a combined document. Timestamps keep the offset each
// programme was read with.
func EncodeGuide(g Guide) ([]byte, error) {
	return Encode(BuildTV(g.Channels, g.Programmes, nil))
}

// DecodeTV reads a whole XMLTV document with strict parsing and entity
// expansion disabled.
func DecodeTV(r io.Reader) (*TV, error) {
	var doc TV
	dec := newDecoder(io.LimitReader(r, MaxDocumentSize))
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode xmltv: %w", err)
	}
	return &doc, nil
}

func newDecoder(r io.Reader) *xml.Decoder {
	dec := xml.NewDecoder(r)
	dec.Strict = true
	dec.Entity = make(map[string]string)
	return dec
}

// DecodeDocument decodes an XMLTV document into a Guide. Programmes whose
// timestamps do not parse are skipped and returned as errors alongside the
// guide; a document without a channel block is an InputError.
func DecodeDocument(name string, r io.Reader) (Guide, []error, error) {
	tv, err := DecodeTV(r)
	if err != nil {
		return Guide{}, nil, &InputError{Document: name, Err: err}
	}
	if len(tv.Channels) == 0 {
		return Guide{}, nil, &InputError{Document: name, Err: errors.New("no channel element")}
	}

	var g Guide
	for _, c := range tv.Channels {
		ch := FromXMLChannel(c)
		if ch.ID == "" {
			continue
		}
		g.Channels = append(g.Channels, ch)
	}
	if len(g.Channels) == 0 {
		return Guide{}, nil, &InputError{Document: name, Err: errors.New("no channel with an id")}
	}

	var dropped []error
	g.Programmes = make([]Programme, 0, len(tv.Programs))
	for i, xp := range tv.Programs {
		p, err := FromXMLProgramme(xp)
		if err != nil {
			dropped = append(dropped, fmt.Errorf("%s: programme %d: %w", name, i, err))
			continue
		}
		g.Programmes = append(g.Programmes, p)
	}
	return g, dropped, nil
}

// StreamChannel walks an XMLTV feed element by element and returns the
// channel block and programmes of a single channel id. Feeds are large, so
// nothing outside that channel is kept.
func StreamChannel(r io.Reader, channelID string) (*Channel, []XMLProgramme, error) {
	dec := newDecoder(io.LimitReader(r, MaxDocumentSize))
	dec.Strict = false

	var (
		channel *Channel
		progs   []XMLProgramme
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return channel, progs, fmt.Errorf("decode xmltv feed: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "channel":
			if attr(se, "id") != channelID {
				if err := dec.Skip(); err != nil {
					return channel, progs, fmt.Errorf("skip channel: %w", err)
				}
				continue
			}
			var xc XMLChannel
			if err := dec.DecodeElement(&xc, &se); err != nil {
				return channel, progs, fmt.Errorf("decode channel %q: %w", channelID, err)
			}
			c := FromXMLChannel(xc)
			channel = &c
		case "programme":
			if attr(se, "channel") != channelID {
				if err := dec.Skip(); err != nil {
					return channel, progs, fmt.Errorf("skip programme: %w", err)
				}
				continue
			}
			var xp XMLProgramme
			if err := dec.DecodeElement(&xp, &se); err != nil {
				return channel, progs, fmt.Errorf("decode programme: %w", err)
			}
			progs = append(progs, xp)
		}
	}
	return channel, progs, nil
}

func attr(se xml.StartElement, name string) string {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			return strings.TrimSpace(a.Value)
		}
	}
	return ""
}

var space = regexp.MustCompile(`\s+`)

// NormalizeTitle is the comparison key for programme titles: NFC, lower case,
// collapsed whitespace.
func NormalizeTitle(s string) string {
	s = unorm.NFC.String(s)
	s = strings.ToLower(strings.TrimSpace(s))
	// lower casing can produce new combining sequences
	s = unorm.NFC.String(s)
	return space.ReplaceAllString(s, " ")
}
