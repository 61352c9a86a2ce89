// SPDX-License-Identifier: MIT

// Package source holds the schedule adapters. Each adapter knows one way a
// broadcaster publishes its listings and turns it into raw entries; all time
// handling happens later in package schedule.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/pkepg/epgstitch/internal/epg"
	"github.com/pkepg/epgstitch/internal/fetch"
	"github.com/pkepg/epgstitch/internal/schedule"
)

// Kind selects an adapter.
type Kind string

const (
	KindWeeklyHTML Kind = "weekly-html"
	KindWeeklyJSON Kind = "weekly-json"
	KindXMLTV      Kind = "xmltv"
	KindGeneric    Kind = "generic"
)

// Kinds lists every supported kind, in documentation order.
var Kinds = []Kind{KindWeeklyHTML, KindWeeklyJSON, KindXMLTV, KindGeneric}

// ErrUnknownKind is returned by New for an unsupported kind.
var ErrUnknownKind = errors.New("unknown source kind")

// ErrNoEntries reports a source that answered but listed nothing usable.
var ErrNoEntries = errors.New("source listed no entries")

// Result is what one Fetch produced.
type Result struct {
	Entries []epg.RawEntry
	// Now is the reference clock for the window: the source server's Date
	// header when available.
	Now time.Time
	// Channel is the metadata advertised by the source, if any.
	Channel *epg.Channel
	Mode    schedule.Mode
}

// Adapter fetches the listings of one channel.
type Adapter interface {
	Fetch(ctx context.Context) (Result, error)
}

// Getter is the transport an adapter needs. *fetch.Client implements it.
type Getter interface {
	Get(ctx context.Context, rawURL string) (*fetch.Response, error)
	ServerTime(ctx context.Context, rawURL string) time.Time
}

// Selector picks elements by tag name and class list.
type Selector struct {
	Tag   string
	Class string
}

// Spec is the static description of a channel's source.
type Spec struct {
	Kind Kind
	// URLs are fetched in order; weekly-json concatenates every endpoint.
	URLs []string
	// File is a feed on the data filesystem, used by xmltv instead of URLs.
	File string
	// SourceChannel is the channel id inside an XMLTV feed.
	SourceChannel string
	Time          Selector
	Title         Selector
}

// Default selectors for weekly-html pages.
var (
	DefaultTimeSelector  = Selector{Tag: "i", Class: "fa-clock"}
	DefaultTitleSelector = Selector{Tag: "h4", Class: "post-title"}
)

// Deps are the shared resources adapters are built from.
type Deps struct {
	HTTP Getter
	Fs   afero.Fs
	Now  func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// New returns the adapter for spec.Kind.
func New(spec Spec, deps Deps) (Adapter, error) {
	switch spec.Kind {
	case KindWeeklyHTML:
		if len(spec.URLs) == 0 {
			return nil, fmt.Errorf("%s: no url configured", spec.Kind)
		}
		if spec.Time.Tag == "" {
			spec.Time = DefaultTimeSelector
		}
		if spec.Title.Tag == "" {
			spec.Title = DefaultTitleSelector
		}
		return &weeklyHTML{spec: spec, deps: deps}, nil
	case KindWeeklyJSON:
		if len(spec.URLs) == 0 {
			return nil, fmt.Errorf("%s: no url configured", spec.Kind)
		}
		return &weeklyJSON{spec: spec, deps: deps}, nil
	case KindXMLTV:
		if len(spec.URLs) == 0 && spec.File == "" {
			return nil, fmt.Errorf("%s: neither url nor file configured", spec.Kind)
		}
		if spec.SourceChannel == "" {
			return nil, fmt.Errorf("%s: source channel id required", spec.Kind)
		}
		return &xmltvFeed{spec: spec, deps: deps}, nil
	case KindGeneric, "":
		return generic{deps: deps}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, spec.Kind)
	}
}

// ParseKind accepts a configured kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// generic never lists anything; its channel always gets the fallback grid.
type generic struct {
	deps Deps
}

func (g generic) Fetch(context.Context) (Result, error) {
	return Result{Now: g.deps.now(), Mode: schedule.Weekly}, nil
}

// clean collapses whitespace.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
