// SPDX-License-Identifier: MIT

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkepg/epgstitch/internal/epg"
	xglog "github.com/pkepg/epgstitch/internal/log"
	"github.com/pkepg/epgstitch/internal/schedule"
)

// weeklyJSON reads programme catalogues that carry their own weekly airing
// slots:
//
//	{"data":[{"title":"...","description":"...",
//	  "schedule":[{"day":"Monday","times":[{"value":"20:00"}]}]}]}
//
// Every configured endpoint is read and the catalogues are concatenated.
type weeklyJSON struct {
	spec Spec
	deps Deps
}

type catalogue struct {
	Data []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Schedule    []struct {
			Day   string `json:"day"`
			Times []struct {
				Value string `json:"value"`
			} `json:"times"`
		} `json:"schedule"`
	} `json:"data"`
}

func (a *weeklyJSON) Fetch(ctx context.Context) (Result, error) {
	logger := xglog.WithComponentFromContext(ctx, "source")

	var entries []epg.RawEntry
	for _, url := range a.spec.URLs {
		resp, err := a.deps.HTTP.Get(ctx, url)
		if err != nil {
			return Result{}, err
		}
		got, err := ParseCatalogue(resp.Body)
		if err != nil {
			return Result{}, fmt.Errorf("parse %s: %w", url, err)
		}
		logger.Debug().
			Str(xglog.FieldEvent, "source.parsed").
			Str(xglog.FieldURL, url).
			Int("entries", len(got)).
			Msg("parsed programme catalogue")
		entries = append(entries, got...)
	}
	return Result{
		Entries: entries,
		Now:     a.deps.HTTP.ServerTime(ctx, a.spec.URLs[0]),
		Mode:    schedule.Weekly,
	}, nil
}

// ParseCatalogue flattens a catalogue into one raw entry per airing.
// Programmes without a title or without airings are skipped.
func ParseCatalogue(body []byte) ([]epg.RawEntry, error) {
	var c catalogue
	if err := json.Unmarshal(body, &c); err != nil {
		return nil, err
	}
	var out []epg.RawEntry
	for _, p := range c.Data {
		title := clean(p.Title)
		if title == "" {
			continue
		}
		for _, s := range p.Schedule {
			for _, t := range s.Times {
				if strings.TrimSpace(t.Value) == "" {
					continue
				}
				out = append(out, epg.RawEntry{
					Title:      title,
					Desc:       strings.TrimSpace(p.Description),
					StartToken: strings.TrimSpace(t.Value),
					Weekday:    strings.TrimSpace(s.Day),
				})
			}
		}
	}
	return out, nil
}
