// Package logging carries a *slog.Logger on the context, enriched with
// per-dataset attributes as work descends the tree, plus a colorized
// human-facing handler and a file sink.
package logging

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// With returns a context carrying a logger derived from the one
// already on ctx (or slog.Default() if none), with attrs appended.
func With(ctx context.Context, attrs ...slog.Attr) context.Context {
	l := FromContext(ctx)
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}
	return context.WithValue(ctx, ctxKey{}, l.With(args...))
}

// FromContext returns the logger carried on ctx, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// WithError logs msg at Error level with "error" attached.
func WithError(l *slog.Logger, err error, msg string, args ...any) {
	l.Error(msg, append(args, slog.Any("error", err))...)
}
