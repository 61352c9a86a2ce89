// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"slices"

	"github.com/pkepg/epgstitch/internal/metrics"
	"github.com/pkepg/epgstitch/internal/source"
	"github.com/pkepg/epgstitch/internal/validate"
)

var httpSchemes = []string{"http", "https"}

// Validate checks the whole configuration and reports every problem at once.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.NotEmpty("dataDir", cfg.DataDir)
	v.OneOf("logLevel", cfg.LogLevel, validate.LogLevels)
	v.Offset("timezone", cfg.Timezone)
	v.Range("days", cfg.Days, 3, 7)
	v.Range("concurrency", cfg.Concurrency, 1, 64)

	v.PositiveDuration("http.timeout", cfg.HTTP.Timeout)
	v.Range("http.retries", cfg.HTTP.Retries, 1, 10)
	v.Positive("http.burst", cfg.HTTP.Burst)
	v.Positive("http.breakerThreshold", cfg.HTTP.BreakerThreshold)
	v.Positive("http.maxBodyMB", cfg.HTTP.MaxBodyMB)
	if cfg.HTTP.RatePerHost <= 0 {
		v.AddError("http.ratePerHost", "value must be positive", cfg.HTTP.RatePerHost)
	}

	v.NotEmpty("gap.title", cfg.Gap.Title)
	v.NotEmpty("fallback.title", cfg.Fallback.Title)
	v.Range("fallback.days", cfg.Fallback.Days, 1, 7)
	v.SlotLength("fallback.slot", cfg.Fallback.Slot)

	feedNames := make([]string, 0, len(cfg.Feeds))
	for i, f := range cfg.Feeds {
		fv := v.Scope(fmt.Sprintf("feeds[%d]", i))
		fv.NotEmpty("name", f.Name)
		fv.URL("url", f.URL, httpSchemes)
		fv.RelativePath("output", f.FeedOutput())
		feedNames = append(feedNames, f.Name)
	}
	v.Unique("feeds.name", feedNames)

	ids := make([]string, 0, len(cfg.Channels))
	var outputs []string
	for i, ch := range cfg.Channels {
		validateChannel(v.Scope(fmt.Sprintf("channels[%d]", i)), cfg, ch)
		ids = append(ids, ch.ID)
		outputs = append(outputs, ch.Outputs...)
	}
	v.Unique("channels.id", ids)
	v.Unique("channels.outputs", outputs)

	names := make([]string, 0, len(cfg.Guides))
	for i, g := range cfg.Guides {
		gv := v.Scope(fmt.Sprintf("guides[%d]", i))
		gv.NotEmpty("name", g.Name)
		if len(g.Inputs) == 0 {
			gv.AddError("inputs", "at least one input directory required", g.Inputs)
		}
		for j, in := range g.Inputs {
			gv.RelativePath(fmt.Sprintf("inputs[%d]", j), in)
		}
		gv.RelativePath("output", g.Output)
		names = append(names, g.Name)
	}
	v.Unique("guides.name", names)

	v.NotEmpty("server.listen", cfg.Server.Listen)
	if cfg.Server.RateLimit < 0 {
		v.AddError("server.rateLimit", "value cannot be negative", cfg.Server.RateLimit)
	}
	v.CronSpec("daemon.schedule", cfg.Daemon.Schedule)

	for range v.Errors() {
		metrics.IncConfigValidationError()
	}
	return v.Err()
}

func validateChannel(v *validate.Validator, cfg AppConfig, ch ChannelConfig) {
	v.NotEmpty("id", ch.ID)
	v.NotEmpty("name", ch.Name)
	if ch.Timezone != "" {
		v.Offset("timezone", ch.Timezone)
	}
	if len(ch.Outputs) == 0 {
		v.AddError("outputs", "at least one output required", ch.Outputs)
	}
	for j, out := range ch.Outputs {
		v.RelativePath(fmt.Sprintf("outputs[%d]", j), out)
	}

	kind, err := source.ParseKind(ch.Kind)
	if err != nil {
		v.AddError("kind", err.Error(), ch.Kind)
		return
	}
	for j, u := range ch.URLs {
		v.URL(fmt.Sprintf("urls[%d]", j), u, httpSchemes)
	}
	switch kind {
	case source.KindWeeklyHTML, source.KindWeeklyJSON:
		if len(ch.URLs) == 0 {
			v.AddError("urls", fmt.Sprintf("kind %s needs at least one url", kind), ch.URLs)
		}
	case source.KindXMLTV:
		if len(ch.URLs) == 0 && ch.Feed == "" {
			v.AddError("", "kind xmltv needs a url or a feed", ch.ID)
		}
		if ch.Feed != "" && !feedExists(cfg, ch.Feed) {
			v.AddError("feed", fmt.Sprintf("unknown feed %q", ch.Feed), ch.Feed)
		}
		v.NotEmpty("sourceChannel", ch.SourceChannel)
	}

	if ref := ch.Reference; ref != nil {
		rv := v.Scope("reference")
		switch {
		case ref.Feed != "" && !feedExists(cfg, ref.Feed):
			rv.AddError("feed", fmt.Sprintf("unknown feed %q", ref.Feed), ref.Feed)
		case ref.Feed == "":
			rv.URL("url", ref.URL, httpSchemes)
		}
		rv.NotEmpty("channel", ref.Channel)
		rv.Threshold("threshold", ref.Threshold)
	}
}

func feedExists(cfg AppConfig, name string) bool {
	return slices.ContainsFunc(cfg.Feeds, func(f FeedConfig) bool { return f.Name == name })
}
