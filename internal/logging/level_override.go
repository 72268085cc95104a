package logging

import (
	"context"
	"log/slog"
)

// floorHandler drops records below a minimum level before they reach the
// wrapped handler. The wrapped handler keeps its own level as well, so the
// effective level is the stricter of the two.
type floorHandler struct {
	next  slog.Handler
	floor slog.Level
}

func (h *floorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.floor && h.next.Enabled(ctx, level)
}

func (h *floorHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level < h.floor {
		return nil
	}
	return h.next.Handle(ctx, record)
}

func (h *floorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &floorHandler{next: h.next.WithAttrs(attrs), floor: h.floor}
}

func (h *floorHandler) WithGroup(name string) slog.Handler {
	return &floorHandler{next: h.next.WithGroup(name), floor: h.floor}
}

// WithLevelFloor returns a logger that discards records below level while
// keeping the attributes and output of logger. Applying it twice replaces the
// earlier floor rather than stacking.
func WithLevelFloor(logger *slog.Logger, level slog.Level) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	next := logger.Handler()
	if existing, ok := next.(*floorHandler); ok {
		next = existing.next
	}
	return slog.New(&floorHandler{next: next, floor: level})
}

// ParseLevel maps a configured level name onto a slog level. Unknown names
// resolve to info.
func ParseLevel(level string) slog.Level {
	return parseLevel(level)
}
