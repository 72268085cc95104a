package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDetector()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StoreDir, err = expandPath(strings.TrimSpace(c.Paths.StoreDir)); err != nil {
		return fmt.Errorf("store_dir: %w", err)
	}
	if c.Paths.DebugDir, err = expandPath(strings.TrimSpace(c.Paths.DebugDir)); err != nil {
		return fmt.Errorf("debug_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("log_dir: %w", err)
	}
	c.History.Path = strings.TrimSpace(c.History.Path)
	if c.History.Path == "" {
		c.History.Path = defaultHistoryPath
	}
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history path: %w", err)
	}
	return nil
}

// normalizeDetector fills zero values only. Negative and out of range values
// are left for Validate to report.
func (c *Config) normalizeDetector() {
	d := &c.Detector
	if d.Threads == 0 {
		d.Threads = defaultThreads
	}
	if d.CaptureIntervalMS == 0 {
		d.CaptureIntervalMS = defaultCaptureIntervalMS
	}
	if d.CaptureLimitKB == 0 {
		d.CaptureLimitKB = defaultCaptureLimitKB
	}
	if d.MinCaptureWidth == 0 {
		d.MinCaptureWidth = defaultMinCaptureWidth
	}
	if d.Significance == 0 {
		d.Significance = defaultSignificance
	}
	if d.DetectLevel == 0 {
		d.DetectLevel = defaultDetectLevel
	}
	if d.MatchSeconds == 0 {
		d.MatchSeconds = defaultMatchSeconds
	}
	if d.MismatchCount == 0 {
		d.MismatchCount = defaultMismatchCount
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	if value, ok := os.LookupEnv(logLevelEnv); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
