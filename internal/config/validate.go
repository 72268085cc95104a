package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDetector(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StoreDir) == "" {
		return errors.New("store_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("log_dir must be set")
	}
	if c.Detector.Debug && strings.TrimSpace(c.Paths.DebugDir) == "" {
		return errors.New("debug_dir must be set when detector debug is enabled")
	}
	return nil
}

func (c *Config) validateDetector() error {
	d := c.Detector
	if d.Threads < 1 {
		return fmt.Errorf("detector threads must be at least 1, got %d", d.Threads)
	}
	if d.CaptureIntervalMS < 50 {
		return fmt.Errorf("detector capture_interval_ms must be at least 50, got %d", d.CaptureIntervalMS)
	}
	if d.CaptureLimitKB < 1 {
		return fmt.Errorf("detector capture_limit_kb must be positive, got %d", d.CaptureLimitKB)
	}
	if d.MinCaptureWidth < 8 {
		return fmt.Errorf("detector min_capture_width must be at least 8, got %d", d.MinCaptureWidth)
	}
	if err := ensurePercent("significance", d.Significance); err != nil {
		return err
	}
	if err := ensurePercent("detect_level", d.DetectLevel); err != nil {
		return err
	}
	if d.MatchSeconds <= 0 {
		return fmt.Errorf("detector match_seconds must be positive, got %v", d.MatchSeconds)
	}
	if d.MismatchCount < 1 {
		return fmt.Errorf("detector mismatch_count must be at least 1, got %d", d.MismatchCount)
	}
	if d.FuzzFactor < 0 {
		return fmt.Errorf("detector fuzz_factor must be non-negative, got %v", d.FuzzFactor)
	}
	if d.WindowSeconds < 0 {
		return fmt.Errorf("detector window_seconds must be non-negative, got %d", d.WindowSeconds)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
	return nil
}

func ensurePercent(name string, value float64) error {
	if value <= 0 || value > 100 {
		return fmt.Errorf("detector %s must be in (0, 100], got %v", name, value)
	}
	return nil
}
