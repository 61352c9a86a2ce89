// SPDX-License-Identifier: MIT

package jobs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"time"

	"github.com/pkepg/epgstitch/internal/config"
	"github.com/pkepg/epgstitch/internal/epg"
	xglog "github.com/pkepg/epgstitch/internal/log"
	"github.com/pkepg/epgstitch/internal/metrics"
)

// ErrUnknownGuide is returned when a requested guide is not configured.
var ErrUnknownGuide = errors.New("unknown guide")

// Aggregate merges the per-channel documents of every selected guide
// (all when names is empty). Malformed documents are skipped. A guide that
// cannot be written is reported in its result; the call fails with
// ErrNoGuideWritten only when none was written.
func Aggregate(ctx context.Context, cfg config.AppConfig, deps Deps, names []string) ([]GuideResult, error) {
	logger := xglog.WithComponentFromContext(ctx, "jobs")
	started := time.Now()

	guides := cfg.Guides
	if len(names) > 0 {
		guides = guides[:0:0]
		for _, name := range names {
			i := slices.IndexFunc(cfg.Guides, func(g config.GuideConfig) bool { return g.Name == name })
			if i < 0 {
				return nil, fmt.Errorf("%w: %q", ErrUnknownGuide, name)
			}
			guides = append(guides, cfg.Guides[i])
		}
	}

	results := make([]GuideResult, 0, len(guides))
	var errs []error
	for _, g := range guides {
		res := aggregateGuide(ctx, cfg, deps, g)
		if res.Err != nil {
			errs = append(errs, res.Err)
			logger.Error().Err(res.Err).
				Str(xglog.FieldEvent, "aggregate.failed").
				Str(xglog.FieldGuide, g.Name).
				Msg("guide not written")
		}
		results = append(results, res)
	}

	var err error
	if len(guides) > 0 && len(errs) == len(guides) {
		err = fmt.Errorf("%w: %w", ErrNoGuideWritten, errors.Join(errs...))
	}
	metrics.RecordRun("aggregate", time.Since(started), err)
	return results, err
}

func aggregateGuide(ctx context.Context, cfg config.AppConfig, deps Deps, g config.GuideConfig) GuideResult {
	logger := xglog.WithComponentFromContext(ctx, "jobs").With().Str(xglog.FieldGuide, g.Name).Logger()
	res := GuideResult{Name: g.Name, Output: g.Output}

	inputs, err := guideInputs(deps, g)
	if err != nil {
		res.Err = fmt.Errorf("guide %s: %w", g.Name, err)
		return res
	}

	docs := make([]epg.Guide, 0, len(inputs))
	for _, name := range inputs {
		doc, err := readDocument(deps, name)
		if err != nil {
			res.Skipped++
			logger.Warn().Err(err).
				Str(xglog.FieldEvent, "aggregate.skip").
				Str(xglog.FieldPath, name).
				Msg("document skipped")
			continue
		}
		docs = append(docs, doc)
		res.Merged++
	}

	merged := epg.Merge(docs...)
	res.Channels = len(merged.Channels)
	res.Programmes = len(merged.Programmes)
	metrics.RecordAggregate(g.Name, res.Merged, res.Skipped, res.Programmes)

	data, err := epg.EncodeGuide(merged)
	if err != nil {
		res.Err = fmt.Errorf("guide %s: encode: %w", g.Name, err)
		return res
	}
	if err := deps.Store.Write(ctx, g.Output, data, cfg.Gzip); err != nil {
		res.Err = fmt.Errorf("guide %s: %w", g.Name, err)
		return res
	}

	logger.Info().
		Str(xglog.FieldEvent, "aggregate.written").
		Str(xglog.FieldPath, g.Output).
		Int("merged", res.Merged).
		Int("skipped", res.Skipped).
		Int("channels", res.Channels).
		Int("programmes", res.Programmes).
		Msg("guide written")
	return res
}

// guideInputs lists the documents of every input directory, sorted, without
// the guide's own output. A missing directory contributes nothing.
func guideInputs(deps Deps, g config.GuideConfig) ([]string, error) {
	var out []string
	for _, dir := range g.Inputs {
		names, err := deps.Store.List(dir, g.Pattern)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, names...)
	}
	out = slices.DeleteFunc(out, func(name string) bool { return name == path.Clean(g.Output) })
	slices.Sort(out)
	return slices.Compact(out), nil
}

func readDocument(deps Deps, name string) (epg.Guide, error) {
	data, err := deps.Store.Read(name)
	if err != nil {
		return epg.Guide{}, &epg.InputError{Document: name, Err: err}
	}
	doc, dropped, err := epg.DecodeDocument(name, bytes.NewReader(data))
	if err != nil {
		return epg.Guide{}, err
	}
	if len(dropped) > 0 {
		logger := xglog.WithComponent("jobs")
		logger.Debug().
			Str(xglog.FieldEvent, "aggregate.dropped").
			Str(xglog.FieldPath, name).
			Int("programmes", len(dropped)).
			Msg("programmes with unparseable times left out")
	}
	return doc, nil
}
