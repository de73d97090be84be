package slogx

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return l
}

// With attaches extra attributes to the logger carried by ctx.
func With(ctx context.Context, args ...any) context.Context {
	return WithContext(ctx, FromContext(ctx).With(args...))
}

// WithRunID tags every log line of a batch run.
func WithRunID(ctx context.Context, runID string) context.Context {
	return With(ctx, "run_id", runID)
}

// WithAccount tags every log line of a single account's job.
func WithAccount(ctx context.Context, identifier string) context.Context {
	return With(ctx, "account", identifier)
}
