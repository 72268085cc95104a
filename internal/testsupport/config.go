package testsupport

import (
	"path/filepath"
	"testing"

	"creditwatch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Capture runs fast (50ms interval) so detector tests finish quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StoreDir = filepath.Join(base, "store")
	cfgVal.Paths.DebugDir = filepath.Join(base, "debug")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.History.Path = filepath.Join(base, "history.db")
	cfgVal.Detector.Threads = 2
	cfgVal.Detector.CaptureIntervalMS = 50
	cfgVal.Detector.CaptureLimitKB = 4
	cfgVal.Detector.MatchSeconds = 0.15

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithDetector edits the [detector] section.
func WithDetector(edit func(*config.Detector)) ConfigOption {
	return func(b *configBuilder) {
		edit(&b.cfg.Detector)
	}
}

// WithoutHistory disables the detection ledger.
func WithoutHistory() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
	}
}

// WithDirectories creates every configured directory.
func WithDirectories() ConfigOption {
	return func(b *configBuilder) {
		if err := b.cfg.EnsureDirectories(); err != nil {
			b.t.Fatalf("ensure directories: %v", err)
		}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StoreDir)
}
