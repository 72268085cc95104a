package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldSeasonID is the standardized key for the season identifier being analysed.
	FieldSeasonID = "season_id"
	// FieldEpisode is the standardized key for the episode ordinal.
	FieldEpisode = "episode"
)

type contextKey int

const (
	seasonKey contextKey = iota
	episodeKey
	sessionKey
)

// WithPlayback returns a context carrying the season identifier and episode
// ordinal for log enrichment.
func WithPlayback(ctx context.Context, seasonID string, episode int) context.Context {
	ctx = context.WithValue(ctx, seasonKey, seasonID)
	return context.WithValue(ctx, episodeKey, episode)
}

// WithSessionID returns a context carrying a detection session identifier.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey, sessionID)
}

// SessionIDFromContext returns the session identifier stored by WithSessionID.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(sessionKey).(string)
	return id, ok && id != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if season, ok := ctx.Value(seasonKey).(string); ok && season != "" {
		fields = append(fields, slog.String(FieldSeasonID, season))
	}
	if episode, ok := ctx.Value(episodeKey).(int); ok {
		fields = append(fields, slog.Int(FieldEpisode, episode))
	}
	if id, ok := SessionIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSessionID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(toArgs(fields)...)
}
