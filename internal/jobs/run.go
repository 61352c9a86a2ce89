// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"errors"
	"slices"

	"github.com/pkepg/epgstitch/internal/config"
)

// RunReport is the outcome of a full run.
type RunReport struct {
	Feeds    []FeedResult
	Generate *Report
	Guides   []GuideResult
}

// Run mirrors feeds, generates every channel and aggregates every guide.
// Guides are aggregated even when generation produced nothing new, so
// documents from earlier runs are still combined. Partial failure is left
// in the report; Run fails only when neither a channel document nor a
// guide was produced.
func Run(ctx context.Context, cfg config.AppConfig, deps Deps, force bool) (*RunReport, error) {
	out := &RunReport{Feeds: MirrorFeeds(ctx, cfg, deps, force)}

	report, genErr := Generate(ctx, cfg, deps, GenerateOptions{Force: force})
	if report == nil {
		return out, genErr
	}
	out.Generate = report

	guides, aggErr := Aggregate(ctx, cfg, deps, nil)
	out.Guides = guides
	if genErr == nil || slices.ContainsFunc(guides, func(g GuideResult) bool { return g.Err == nil }) {
		return out, nil
	}
	return out, errors.Join(genErr, aggErr)
}
