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

// WithActor tags the request logger with the resolved caller so every later
// log line for the request says who made it.
func WithActor(ctx context.Context, kind, id string) context.Context {
	return WithContext(ctx, FromContext(ctx).With("actor_kind", kind, "actor_id", id))
}
