package logging

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// With returns a context whose logger carries the given attributes on top of
// whatever the parent context already had.
func With(ctx context.Context, args ...any) context.Context {
	return NewContext(ctx, From(ctx).With(args...))
}

// NewContext returns a context carrying l as its logger.
func NewContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the request-scoped logger, or slog.Default().
func From(ctx context.Context) *slog.Logger {
	if ctx != nil {
		l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
		if ok && l != nil {
			return l
		}
	}

	return slog.Default()
}
