// SPDX-License-Identifier: MIT

package jobs

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/pkepg/epgstitch/internal/config"
	"github.com/pkepg/epgstitch/internal/epg"
	xglog "github.com/pkepg/epgstitch/internal/log"
	"github.com/pkepg/epgstitch/internal/metrics"
)

// ErrNotXML rejects feed downloads that are not XML documents (typically
// an HTML error page served with status 200).
var ErrNotXML = errors.New("feed is not an XML document")

// MirrorFeeds downloads every configured bulk feed into the data directory,
// decompressed, unless it was already mirrored today. Failures are logged
// and reported per feed; the previous copy stays in place.
func MirrorFeeds(ctx context.Context, cfg config.AppConfig, deps Deps, force bool) []FeedResult {
	logger := xglog.WithComponentFromContext(ctx, "jobs")
	started := time.Now()

	loc, err := epg.ParseOffset(cfg.Timezone)
	if err != nil {
		loc = time.UTC
	}

	results := make([]FeedResult, 0, len(cfg.Feeds))
	failed := 0
	for _, f := range cfg.Feeds {
		res := mirrorFeed(ctx, cfg, deps, loc, f, force)
		if res.Err != nil {
			failed++
			logger.Warn().Err(res.Err).
				Str(xglog.FieldEvent, "feed.failed").
				Str(xglog.FieldFeed, f.Name).
				Str(xglog.FieldURL, f.URL).
				Msg("feed not mirrored")
		}
		metrics.RecordFeedMirror(f.Name, res.Outcome)
		results = append(results, res)
	}

	var runErr error
	if failed > 0 {
		runErr = errors.New("some feeds failed")
	}
	metrics.RecordRun("mirror", time.Since(started), runErr)
	return results
}

func mirrorFeed(ctx context.Context, cfg config.AppConfig, deps Deps, loc *time.Location, f config.FeedConfig, force bool) FeedResult {
	logger := xglog.WithComponentFromContext(ctx, "jobs")
	res := FeedResult{Name: f.Name, Output: f.FeedOutput()}

	if !force && deps.Store.FreshToday(res.Output, deps.now(), loc) {
		res.Outcome = "fresh"
		logger.Debug().
			Str(xglog.FieldEvent, "feed.fresh").
			Str(xglog.FieldFeed, f.Name).
			Msg("feed already mirrored today")
		return res
	}

	resp, err := deps.HTTP.Get(ctx, f.URL)
	if err != nil {
		res.Outcome, res.Err = "failed", err
		return res
	}
	if err := checkXML(resp.Body); err != nil {
		res.Outcome, res.Err = "failed", err
		return res
	}
	if err := deps.Store.Write(ctx, res.Output, resp.Body, false); err != nil {
		res.Outcome, res.Err = "failed", err
		return res
	}

	res.Outcome, res.Bytes = "mirrored", len(resp.Body)
	logger.Info().
		Str(xglog.FieldEvent, "feed.mirrored").
		Str(xglog.FieldFeed, f.Name).
		Str(xglog.FieldPath, res.Output).
		Bool("compressed", resp.Compressed).
		Int("bytes", res.Bytes).
		Msg("feed mirrored")
	return res
}

func checkXML(b []byte) error {
	if mimetype.Detect(b).Is("text/html") {
		return ErrNotXML
	}
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(b, []byte("\xef\xbb\xbf")), " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '<' {
		return ErrNotXML
	}
	return nil
}
