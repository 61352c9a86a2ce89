// SPDX-License-Identifier: MIT

// Package log provides structured logging utilities.
package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	jobIDKey
	channelKey
)

// correlation lists the context values copied onto every logger derived
// from a context, in output order.
var correlation = []struct {
	key   ctxKey
	field string
}{
	{requestIDKey, FieldRequestID},
	{jobIDKey, FieldJobID},
	{channelKey, FieldChannel},
}

func withValue(ctx context.Context, key ctxKey, v string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, v)
}

func value(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// ContextWithRequestID stores the HTTP request id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, requestIDKey, id)
}

// ContextWithJobID stores the id of a generate, aggregate or mirror run.
func ContextWithJobID(ctx context.Context, id string) context.Context {
	return withValue(ctx, jobIDKey, id)
}

// ContextWithChannel scopes ctx to one channel pipeline, so transport and
// storage logs can be attributed.
func ContextWithChannel(ctx context.Context, channelID string) context.Context {
	return withValue(ctx, channelKey, channelID)
}

func RequestIDFromContext(ctx context.Context) string { return value(ctx, requestIDKey) }

func JobIDFromContext(ctx context.Context) string { return value(ctx, jobIDKey) }

func ChannelFromContext(ctx context.Context) string { return value(ctx, channelKey) }

// WithContext adds the correlation fields present in ctx to logger.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	if ctx == nil {
		return logger
	}
	var (
		builder zerolog.Context
		added   bool
	)
	for _, c := range correlation {
		v := value(ctx, c.key)
		if v == "" {
			continue
		}
		if !added {
			builder = logger.With()
			added = true
		}
		builder = builder.Str(c.field, v)
	}
	if !added {
		return logger
	}
	return builder.Logger()
}

// WithComponentFromContext returns a component logger carrying the
// correlation fields of ctx.
func WithComponentFromContext(ctx context.Context, component string) zerolog.Logger {
	l := WithContext(ctx, *FromContext(ctx))
	return l.With().Str(FieldComponent, component).Logger()
}

// FromContext returns the logger attached with zerolog's WithContext, or the
// base logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
			return l
		}
	}
	b := Base()
	return &b
}
