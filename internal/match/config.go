package match

import (
	"math"
	"time"
)

const (
	DefaultDetectLevel    = 90.0
	DefaultMismatchNumber = 3
	DefaultWindowSeconds  = 60

	// Templates count as a hit a little below the detect level, and lower
	// still when the previous frame already matched.
	templateMargin         = 5.0
	templatePossibleMargin = 10.0
)

// Config tunes the match engine.
type Config struct {
	// DetectLevel is the similarity percentage at which two fingerprints match.
	DetectLevel float64
	// MatchNumber is the number of consecutive hits that latch a detection.
	MatchNumber int
	// MismatchNumber is the number of misses that reset the counters.
	MismatchNumber int
	// WindowSeconds is the tolerance of past-episode lookups.
	WindowSeconds int
	// Significance and FuzzFactor tune the uncertainty correction.
	Significance float64
	FuzzFactor   float64
}

// MatchNumberFor converts a required evidence duration into a hit count for
// the given capture interval, never less than one.
func MatchNumberFor(matchSeconds float64, interval time.Duration) int {
	if interval <= 0 {
		interval = time.Second
	}
	return max(1, int(math.Round(matchSeconds/interval.Seconds())))
}

func (c Config) withDefaults() Config {
	if c.DetectLevel <= 0 {
		c.DetectLevel = DefaultDetectLevel
	}
	if c.MatchNumber <= 0 {
		c.MatchNumber = 1
	}
	if c.MismatchNumber <= 0 {
		c.MismatchNumber = DefaultMismatchNumber
	}
	if c.WindowSeconds < 0 {
		c.WindowSeconds = DefaultWindowSeconds
	}
	return c
}
