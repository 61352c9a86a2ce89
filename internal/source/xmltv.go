// SPDX-License-Identifier: MIT

package source

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/spf13/afero"

	"github.com/pkepg/epgstitch/internal/compress"
	"github.com/pkepg/epgstitch/internal/epg"
	xglog "github.com/pkepg/epgstitch/internal/log"
	"github.com/pkepg/epgstitch/internal/schedule"
)

// xmltvFeed takes one channel out of a bulk XMLTV feed, either downloaded
// directly or mirrored into the data directory beforehand.
type xmltvFeed struct {
	spec Spec
	deps Deps
}

func (a *xmltvFeed) Fetch(ctx context.Context) (Result, error) {
	channel, progs, date, err := a.load(ctx)
	if err != nil {
		return Result{}, err
	}
	entries := make([]epg.RawEntry, 0, len(progs))
	for _, p := range progs {
		e := epg.RawEntry{
			Title:      clean(p.Title.Value),
			StartToken: p.Start,
			EndToken:   p.Stop,
		}
		if p.SubTitle != nil {
			e.SubTitle = clean(p.SubTitle.Value)
		}
		if p.Desc != nil {
			e.Desc = clean(p.Desc.Value)
		}
		entries = append(entries, e)
	}
	// a downloaded feed is read against its server's clock, like the
	// weekly pages; a mirrored file only has the local one
	now := date
	if now.IsZero() && a.spec.File == "" {
		now = a.deps.HTTP.ServerTime(ctx, a.spec.URLs[0])
	}
	if now.IsZero() {
		now = a.deps.now()
	}
	return Result{
		Entries: entries,
		Now:     now,
		Channel: channel,
		Mode:    schedule.Timeline,
	}, nil
}

func (a *xmltvFeed) load(ctx context.Context) (*epg.Channel, []epg.XMLProgramme, time.Time, error) {
	logger := xglog.WithComponentFromContext(ctx, "source")

	body, origin, date, err := a.read(ctx)
	if err != nil {
		return nil, nil, date, err
	}
	raw, compressed, err := compress.Gunzip(body, epg.MaxDocumentSize)
	if err != nil {
		return nil, nil, date, fmt.Errorf("feed %s: %w", origin, err)
	}
	channel, progs, err := epg.StreamChannel(bytes.NewReader(raw), a.spec.SourceChannel)
	if err != nil {
		return nil, nil, date, fmt.Errorf("feed %s: %w", origin, err)
	}
	logger.Debug().
		Str(xglog.FieldEvent, "source.parsed").
		Str(xglog.FieldSource, origin).
		Str(xglog.FieldChannel, a.spec.SourceChannel).
		Bool("compressed", compressed).
		Int("programmes", len(progs)).
		Msg("extracted channel from feed")
	if channel == nil && len(progs) == 0 {
		return nil, nil, date, fmt.Errorf("%w: channel %q not in feed %s", ErrNoEntries, a.spec.SourceChannel, origin)
	}
	return channel, progs, date, nil
}

// read returns the feed body, where it came from and, for downloads, the
// server's Date header.
func (a *xmltvFeed) read(ctx context.Context) ([]byte, string, time.Time, error) {
	if a.spec.File != "" {
		fs := a.deps.Fs
		if fs == nil {
			fs = afero.NewOsFs()
		}
		b, err := afero.ReadFile(fs, a.spec.File)
		if err != nil {
			return nil, a.spec.File, time.Time{}, fmt.Errorf("read feed: %w", err)
		}
		return b, a.spec.File, time.Time{}, nil
	}
	url := a.spec.URLs[0]
	resp, err := a.deps.HTTP.Get(ctx, url)
	if err != nil {
		return nil, url, time.Time{}, err
	}
	return resp.Body, url, resp.Date, nil
}

// Reference loads the programmes of one feed channel for description
// enrichment. Programmes with unparseable times are left out.
func Reference(ctx context.Context, spec Spec, deps Deps) ([]epg.Programme, error) {
	spec.Kind = KindXMLTV
	a, err := New(spec, deps)
	if err != nil {
		return nil, err
	}
	_, progs, _, err := a.(*xmltvFeed).load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]epg.Programme, 0, len(progs))
	for _, xp := range progs {
		p, err := epg.FromXMLProgramme(xp)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
