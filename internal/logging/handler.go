package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
)

// colorHandler is the human outlet: a slog.Handler that prints
// "HH:MM:SS LEVEL msg key=value ..." with the level word colored by severity,
// for an interactive TTY. File output uses slog's own JSON handler
// instead (see New).
type colorHandler struct {
	w     io.Writer
	level slog.Leveler
	attrs []slog.Attr
}

func newColorHandler(w io.Writer, level slog.Leveler) *colorHandler {
	return &colorHandler{w: w, level: level}
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	levelStr := levelColor(r.Level).Sprint(r.Level.String())
	line := fmt.Sprintf("%s %-5s %s", r.Time.Format("15:04:05"), levelStr, r.Message)
	for _, a := range h.attrs {
		line += fmt.Sprintf(" %s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		line += fmt.Sprintf(" %s=%v", a.Key, a.Value)
		return true
	})
	_, err := fmt.Fprintln(h.w, line)
	return err
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &colorHandler{w: h.w, level: h.level, attrs: append(append([]slog.Attr{}, h.attrs...), attrs...)}
}

func (h *colorHandler) WithGroup(_ string) slog.Handler {
	return h // grouping isn't meaningful for this line-oriented format
}

func levelColor(l slog.Level) *color.Color {
	switch {
	case l >= slog.LevelError:
		return color.New(color.FgRed, color.Bold)
	case l >= slog.LevelWarn:
		return color.New(color.FgYellow)
	case l >= slog.LevelInfo:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgHiBlack)
	}
}
