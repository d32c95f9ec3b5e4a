package logging

import (
	"io"
	"log/slog"
	"time"
)

// New creates the runtime's diagnostic logger on w.
// Attribute keys are normalized ("error" -> "err") and duration values are
// rendered in their human form, since scheduler accounting (running time,
// switch delay, long-run excess) is what these logs mostly carry.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: normalizeAttr,
	}))
}

func normalizeAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Key == "error" {
		a.Key = "err"
	}
	if d, ok := a.Value.Any().(time.Duration); ok {
		a.Value = slog.StringValue(d.String())
	}
	return a
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
