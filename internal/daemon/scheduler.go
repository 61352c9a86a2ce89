// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	xglog "github.com/pkepg/epgstitch/internal/log"
)

// specParser matches the parser config validation uses.
var specParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug().Str(xglog.FieldEvent, "cron.info").Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error().Err(err).Str(xglog.FieldEvent, "cron.error").Fields(keysAndValues).Msg(msg)
}

// newScheduler returns a stopped cron that calls job on spec. A tick that
// arrives while the previous run is still going is skipped, and a panic in
// job is recovered and logged.
func newScheduler(ctx context.Context, spec string, job func(context.Context)) (*cron.Cron, error) {
	logger := cronLogger{logger: xglog.WithComponentFromContext(ctx, "scheduler")}
	c := cron.New(
		cron.WithParser(specParser),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(spec, func() { job(ctx) }); err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}
	return c, nil
}
