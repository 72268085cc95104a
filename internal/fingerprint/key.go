package fingerprint

import (
	"fmt"
	"strconv"
	"strings"
)

// Undefined is the episode ordinal for reference templates and invalidated
// stores.
const Undefined = -1

// Key identifies when, and in which episode, a fingerprint was captured.
type Key struct {
	ToEnd     int // seconds remaining before the end of the video
	FromStart int // seconds elapsed since the start of the video
	Episode   int
}

// NewKey builds a key from the current play time and total time in seconds.
func NewKey(playTime, totalTime float64, episode int) Key {
	return Key{
		ToEnd:     int(totalTime - playTime),
		FromStart: int(playTime),
		Episode:   episode,
	}
}

// IsTemplate reports whether the key is not tied to a specific episode.
func (k Key) IsTemplate() bool { return k.Episode == Undefined }

// String renders the persisted tuple form, e.g. "(120, 1260, 3)".
func (k Key) String() string {
	return fmt.Sprintf("(%d, %d, %d)", k.ToEnd, k.FromStart, k.Episode)
}

// ParseKey parses the String form of a key.
func ParseKey(value string) (Key, error) {
	trimmed := strings.TrimSpace(value)
	trimmed = strings.TrimPrefix(trimmed, "(")
	trimmed = strings.TrimSuffix(trimmed, ")")
	parts := strings.Split(trimmed, ",")
	if len(parts) != 3 {
		return Key{}, fmt.Errorf("parse key %q: expected 3 fields, got %d", value, len(parts))
	}
	fields := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return Key{}, fmt.Errorf("parse key %q: field %d: %w", value, i, err)
		}
		fields[i] = n
	}
	return Key{ToEnd: fields[0], FromStart: fields[1], Episode: fields[2]}, nil
}
