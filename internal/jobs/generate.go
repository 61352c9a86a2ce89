// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pkepg/epgstitch/internal/config"
	"github.com/pkepg/epgstitch/internal/epg"
	xglog "github.com/pkepg/epgstitch/internal/log"
	"github.com/pkepg/epgstitch/internal/metrics"
	"github.com/pkepg/epgstitch/internal/schedule"
	"github.com/pkepg/epgstitch/internal/source"
	"github.com/pkepg/epgstitch/internal/store"
)

// GenerateOptions narrows a generate run.
type GenerateOptions struct {
	// Channels restricts the run to these ids; empty means all.
	Channels []string
	// Force ignores the freshness guard.
	Force bool
}

// Generate runs every selected channel pipeline (fetch, build, enrich,
// write) with bounded parallelism. A failing channel is logged and left
// with its previous output; the run fails only with ErrNothingProduced.
func Generate(ctx context.Context, cfg config.AppConfig, deps Deps, opts GenerateOptions) (*Report, error) {
	jobID := uuid.NewString()
	ctx = xglog.ContextWithJobID(ctx, jobID)
	logger := xglog.WithComponentFromContext(ctx, "jobs")

	loc, err := epg.ParseOffset(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	channels, err := selectChannels(cfg.Channels, opts.Channels)
	if err != nil {
		return nil, err
	}

	report := &Report{JobID: jobID, Started: deps.now()}
	logger.Info().
		Str(xglog.FieldEvent, "generate.start").
		Int("channels", len(channels)).
		Int("concurrency", cfg.Concurrency).
		Msg("starting generate run")

	report.Channels = make([]ChannelResult, len(channels))
	var g errgroup.Group
	g.SetLimit(max(cfg.Concurrency, 1))
	for i, ch := range channels {
		g.Go(func() error {
			report.Channels[i] = runChannel(ctx, cfg, deps, loc, ch, opts.Force)
			return nil
		})
	}
	_ = g.Wait()
	report.Finished = deps.now()

	if len(channels) > 0 && report.Count(OutcomeFailed) == len(channels) {
		err = ErrNothingProduced
	}
	metrics.RecordRun("generate", report.Finished.Sub(report.Started), err)

	logger.Info().
		Str(xglog.FieldEvent, "generate.done").
		Int("generated", report.Count(OutcomeGenerated)).
		Int("fallback", report.Count(OutcomeFallback)).
		Int("fresh", report.Count(OutcomeFresh)).
		Int("failed", report.Count(OutcomeFailed)).
		Dur("duration", report.Finished.Sub(report.Started)).
		Msg("generate run finished")
	return report, err
}

func selectChannels(all []config.ChannelConfig, ids []string) ([]config.ChannelConfig, error) {
	if len(ids) == 0 {
		return all, nil
	}
	out := make([]config.ChannelConfig, 0, len(ids))
	for _, id := range ids {
		i := slices.IndexFunc(all, func(c config.ChannelConfig) bool { return c.ID == id })
		if i < 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, id)
		}
		out = append(out, all[i])
	}
	return out, nil
}

// runChannel never returns an error; failures end up in the result.
func runChannel(ctx context.Context, cfg config.AppConfig, deps Deps, loc *time.Location, ch config.ChannelConfig, force bool) (res ChannelResult) {
	started := time.Now()
	ctx = xglog.ContextWithChannel(ctx, ch.ID)
	logger := xglog.WithComponentFromContext(ctx, "jobs").With().
		Str(xglog.FieldSource, ch.Kind).
		Logger()

	res = ChannelResult{ID: ch.ID, Name: ch.Name, Kind: ch.Kind}
	defer func() {
		res.Duration = time.Since(started)
		metrics.RecordChannelRun(ch.ID, string(res.Outcome))
	}()

	if !force && !ch.Refresh && isFresh(deps, ch, loc) {
		res.Outcome = OutcomeFresh
		res.Outputs = ch.Outputs
		logger.Debug().Str(xglog.FieldEvent, "channel.fresh").Msg("outputs already written today, skipping")
		return res
	}

	fail := func(stage string, err error) ChannelResult {
		res.Outcome = OutcomeFailed
		res.Err = fmt.Errorf("%s: %w", stage, err)
		logger.Warn().Err(err).
			Str(xglog.FieldEvent, "channel.failed").
			Str("stage", stage).
			Msg("channel skipped, previous output left in place")
		return res
	}

	spec, err := sourceSpec(cfg, deps, ch)
	if err != nil {
		return fail("source", err)
	}
	adapter, err := source.New(spec, sourceDeps(deps))
	if err != nil {
		return fail("source", err)
	}
	fetched, err := adapter.Fetch(ctx)
	if err != nil {
		return fail("fetch", err)
	}

	progs, outcome, err := buildProgrammes(cfg, deps, loc, ch, fetched, &res, logger)
	if err != nil {
		return fail("build", err)
	}
	res.Outcome = outcome

	if ch.TitleCase || ch.DescribeFromTitle {
		decorate(progs, ch)
	}
	if ch.Reference != nil && outcome == OutcomeGenerated {
		res.Enriched = enrich(ctx, cfg, deps, ch, progs, logger)
	}

	doc := epg.Schedule{Channel: channelMeta(ch, fetched.Channel), Programmes: progs}
	data, err := epg.EncodeSchedule(doc, loc)
	if err != nil {
		return fail("encode", err)
	}
	for _, out := range ch.Outputs {
		if err := deps.Store.Write(ctx, out, data, cfg.Gzip); err != nil {
			return fail("write", err)
		}
		res.Outputs = append(res.Outputs, out)
	}

	res.Programmes = len(progs)
	metrics.SetProgrammesEmitted(ch.ID, len(progs))
	logger.Info().
		Str(xglog.FieldEvent, "channel.written").
		Str("outcome", string(res.Outcome)).
		Int("programmes", len(progs)).
		Int("dropped", res.Dropped).
		Int("filled", res.Filled).
		Strs("outputs", res.Outputs).
		Msg("channel document written")
	return res
}

func isFresh(deps Deps, ch config.ChannelConfig, loc *time.Location) bool {
	if len(ch.Outputs) == 0 {
		return false
	}
	now := deps.now()
	for _, out := range ch.Outputs {
		if !deps.Store.FreshToday(out, now, loc) {
			return false
		}
	}
	return true
}

// buildProgrammes stitches the fetched entries, falling back to the generic
// grid when nothing usable remains.
func buildProgrammes(cfg config.AppConfig, deps Deps, loc *time.Location, ch config.ChannelConfig, fetched source.Result, res *ChannelResult, logger zerolog.Logger) ([]epg.Programme, Outcome, error) {
	now := fetched.Now
	if now.IsZero() {
		now = deps.now()
	}

	windowLoc := loc
	if fetched.Mode == schedule.Weekly && ch.Timezone != "" {
		l, err := epg.ParseOffset(ch.Timezone)
		if err != nil {
			return nil, "", err
		}
		windowLoc = l
	}

	built, err := schedule.Build(fetched.Entries, schedule.Options{
		Mode:      fetched.Mode,
		Window:    schedule.Window{Now: now, Location: windowLoc, Days: cfg.Days},
		ChannelID: ch.ID,
		FillGaps:  ch.GapsEnabled(),
		Gap:       filler(cfg.Gap),
	})

	res.Dropped = len(built.Dropped)
	if res.Dropped > 0 {
		metrics.RecordDroppedEntries(ch.ID, "parse", res.Dropped)
		for _, e := range built.Dropped {
			logger.Debug().Err(e).Str(xglog.FieldEvent, "entry.dropped").Msg("unusable schedule entry")
		}
	}
	for _, d := range built.Skipped {
		logger.Debug().
			Str(xglog.FieldEvent, "day.skipped").
			Str("weekday", d.Weekday.String()).
			Str("date", d.Date.Format(time.DateOnly)).
			Msg("no listings for day, previous entry spans it")
	}

	switch {
	case errors.Is(err, schedule.ErrEmptySchedule):
		grid, gerr := schedule.FallbackGrid(now, loc, cfg.Fallback.Days, cfg.Fallback.Slot, filler(cfg.Fallback.FillerConfig), ch.ID)
		if gerr != nil {
			return nil, "", gerr
		}
		if ch.Kind != string(source.KindGeneric) {
			logger.Info().
				Str(xglog.FieldEvent, "channel.fallback").
				Int("entries", len(fetched.Entries)).
				Msg("no usable listings, writing generic schedule")
		}
		return grid, OutcomeFallback, nil
	case err != nil:
		return nil, "", err
	}

	res.Filled = built.Filled
	res.Deduped = built.Deduped
	metrics.RecordGapsFilled(ch.ID, built.Filled)
	return built.Programmes, OutcomeGenerated, nil
}

func filler(f config.FillerConfig) schedule.Filler {
	return schedule.Filler{Title: f.Title, SubTitle: f.SubTitle, Desc: f.Desc}
}

// decorate applies title casing and marker descriptions in place. The
// description is derived from the title as published.
func decorate(progs []epg.Programme, ch config.ChannelConfig) {
	for i := range progs {
		p := &progs[i]
		if ch.DescribeFromTitle && p.Desc == "" {
			p.Desc = epg.DescribeFromTitle(p.Title)
		}
		if ch.TitleCase {
			p.Title = epg.TitleCase(p.Title)
		}
	}
}

func enrich(ctx context.Context, cfg config.AppConfig, deps Deps, ch config.ChannelConfig, progs []epg.Programme, logger zerolog.Logger) int {
	spec := source.Spec{SourceChannel: ch.Reference.Channel}
	if ch.Reference.Feed != "" {
		file, err := feedFile(cfg, deps, ch.Reference.Feed)
		if err != nil {
			logger.Warn().Err(err).Str(xglog.FieldEvent, "enrich.failed").Msg("reference unavailable")
			return 0
		}
		spec.File = file
	} else {
		spec.URLs = []string{ch.Reference.URL}
	}

	ref, err := source.Reference(ctx, spec, sourceDeps(deps))
	if err != nil {
		logger.Warn().Err(err).Str(xglog.FieldEvent, "enrich.failed").Msg("reference unavailable")
		return 0
	}
	n := epg.Enrich(progs, ref, ch.Reference.Threshold)
	metrics.RecordEnriched(ch.ID, n)
	logger.Debug().
		Str(xglog.FieldEvent, "enrich.done").
		Int("reference", len(ref)).
		Int("enriched", n).
		Msg("descriptions taken from reference channel")
	return n
}

func channelMeta(ch config.ChannelConfig, advertised *epg.Channel) epg.Channel {
	out := epg.Channel{ID: ch.ID, DisplayName: ch.Name, Logo: ch.Logo}
	if advertised != nil {
		if out.Logo == "" {
			out.Logo = advertised.Logo
		}
		if out.DisplayName == "" {
			out.DisplayName = advertised.DisplayName
		}
	}
	return out
}

func sourceSpec(cfg config.AppConfig, deps Deps, ch config.ChannelConfig) (source.Spec, error) {
	kind, err := source.ParseKind(ch.Kind)
	if err != nil {
		return source.Spec{}, err
	}
	spec := source.Spec{
		Kind:          kind,
		URLs:          ch.URLs,
		SourceChannel: ch.SourceChannel,
		Time:          source.Selector{Tag: ch.TimeSelector.Tag, Class: ch.TimeSelector.Class},
		Title:         source.Selector{Tag: ch.TitleSelector.Tag, Class: ch.TitleSelector.Class},
	}
	if ch.Feed != "" {
		if spec.File, err = feedFile(cfg, deps, ch.Feed); err != nil {
			return source.Spec{}, err
		}
	}
	return spec, nil
}

func feedFile(cfg config.AppConfig, deps Deps, name string) (string, error) {
	feed, ok := cfg.FindFeed(name)
	if !ok {
		return "", fmt.Errorf("unknown feed %q", name)
	}
	p, err := deps.Store.Path(feed.FeedOutput())
	if err != nil {
		return "", err
	}
	if !deps.Store.Exists(feed.FeedOutput()) {
		return "", fmt.Errorf("feed %q not mirrored yet (%s)", name, feed.FeedOutput())
	}
	if _, err := deps.Store.Fs().Stat(p); err != nil {
		// Only the compressed companion exists.
		return p + store.GzipSuffix, nil
	}
	return p, nil
}

func sourceDeps(deps Deps) source.Deps {
	return source.Deps{HTTP: deps.HTTP, Fs: deps.Store.Fs(), Now: deps.Clock}
}
