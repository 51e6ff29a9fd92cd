package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Options configures New.
type Options struct {
	Level slog.Level
	// Human, when true, also writes colorized lines to Stderr (or
	// Writer, if set) alongside the file sink's structured JSON.
	Human  bool
	Writer io.Writer // defaults to os.Stderr when Human is set
	Sink   LogSink   // nil disables the file outlet entirely
}

// New builds the run's logger: JSON lines to the LogSink's file (if
// any) and, when Human is set, colorized lines to the terminal. Both
// outlets share the same level filter.
func New(opt Options) (*slog.Logger, error) {
	var handlers []slog.Handler

	if opt.Sink != nil {
		f, err := opt.Sink.Open()
		if err != nil {
			return nil, fmt.Errorf("logging: open sink: %w", err)
		}
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: opt.Level}))
	}
	if opt.Human {
		w := opt.Writer
		if w == nil {
			w = os.Stderr
		}
		handlers = append(handlers, newColorHandler(w, opt.Level))
	}

	switch len(handlers) {
	case 0:
		return slog.New(slog.DiscardHandler), nil
	case 1:
		return slog.New(handlers[0]), nil
	default:
		return slog.New(&fanoutHandler{handlers: handlers}), nil
	}
}

// fanoutHandler dispatches every record to all of its handlers,
// needed here because slog ships no built-in multi-writer handler.
type fanoutHandler struct {
	handlers []slog.Handler
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, child := range h.handlers {
		if child.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, child := range h.handlers {
		if !child.Enabled(ctx, r.Level) {
			continue
		}
		if err := child.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, child := range h.handlers {
		next[i] = child.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next}
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, child := range h.handlers {
		next[i] = child.WithGroup(name)
	}
	return &fanoutHandler{handlers: next}
}
