package detector

import (
	"time"

	"creditwatch/internal/config"
)

// Config is the resolved snapshot a Detector runs with.
type Config struct {
	Threads         int
	Interval        time.Duration
	CaptureLimitKB  int
	MinCaptureWidth int
	Significance    float64
	DetectLevel     float64
	MatchSeconds    float64
	MismatchCount   int
	FuzzFactor      float64
	WindowSeconds   int
	Debug           bool
	StoreDir        string
	DebugDir        string
	ReuseOffsets    bool
}

// ConfigFrom resolves the detector snapshot from application configuration.
func ConfigFrom(cfg *config.Config) Config {
	if cfg == nil {
		defaults := config.Default()
		cfg = &defaults
	}
	d := cfg.Detector
	return Config{
		Threads:         d.Threads,
		Interval:        cfg.CaptureInterval(),
		CaptureLimitKB:  d.CaptureLimitKB,
		MinCaptureWidth: d.MinCaptureWidth,
		Significance:    d.Significance,
		DetectLevel:     d.DetectLevel,
		MatchSeconds:    d.MatchSeconds,
		MismatchCount:   d.MismatchCount,
		FuzzFactor:      d.FuzzFactor,
		WindowSeconds:   d.WindowSeconds,
		Debug:           d.Debug,
		StoreDir:        cfg.Paths.StoreDir,
		DebugDir:        cfg.Paths.DebugDir,
		ReuseOffsets:    d.ReuseOffsets,
	}
}

func (c Config) interval() time.Duration {
	if c.Interval <= 0 {
		return time.Second
	}
	return c.Interval
}
