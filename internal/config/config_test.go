package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"creditwatch/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("CREDITWATCH_LOG_LEVEL", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatalf("expected no config file, got %q", resolved)
	}
	if want := filepath.Join(tempHome, ".config", "creditwatch", "config.toml"); resolved != want {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, want)
	}

	if want := filepath.Join(tempHome, ".local", "share", "creditwatch", "fingerprints"); cfg.Paths.StoreDir != want {
		t.Fatalf("unexpected store dir: got %q want %q", cfg.Paths.StoreDir, want)
	}
	if cfg.Detector.Threads != 4 {
		t.Fatalf("unexpected threads: %d", cfg.Detector.Threads)
	}
	if cfg.CaptureInterval() != time.Second {
		t.Fatalf("unexpected capture interval: %v", cfg.CaptureInterval())
	}
	if cfg.Detector.DetectLevel != 90 {
		t.Fatalf("unexpected detect level: %v", cfg.Detector.DetectLevel)
	}
	if !cfg.Detector.ReuseOffsets {
		t.Fatal("expected offset reuse enabled by default")
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if !strings.HasPrefix(cfg.History.Path, tempHome) {
		t.Fatalf("expected history path under home, got %q", cfg.History.Path)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StoreDir, cfg.Paths.LogDir, filepath.Dir(cfg.History.Path)} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
	if _, err := os.Stat(cfg.Paths.DebugDir); !os.IsNotExist(err) {
		t.Fatalf("expected debug dir to be skipped when debug is off, got %v", err)
	}
}

func TestLoadCustomPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CREDITWATCH_LOG_LEVEL", "")
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "creditwatch.toml")

	type payload struct {
		Paths struct {
			StoreDir string `toml:"store_dir"`
		} `toml:"paths"`
		Detector struct {
			Threads       int     `toml:"threads"`
			DetectLevel   float64 `toml:"detect_level"`
			ReuseOffsets  bool    `toml:"reuse_offsets"`
			WindowSeconds int     `toml:"window_seconds"`
		} `toml:"detector"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Paths.StoreDir = filepath.Join(tempDir, "store")
	custom.Detector.Threads = 2
	custom.Detector.DetectLevel = 85
	custom.Detector.WindowSeconds = 30
	custom.Logging.Format = "JSON"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.StoreDir != custom.Paths.StoreDir {
		t.Fatalf("unexpected store dir: %q", cfg.Paths.StoreDir)
	}
	if cfg.Detector.Threads != 2 || cfg.Detector.DetectLevel != 85 || cfg.Detector.WindowSeconds != 30 {
		t.Fatalf("unexpected detector section: %+v", cfg.Detector)
	}
	if cfg.Detector.ReuseOffsets {
		t.Fatal("expected explicit reuse_offsets=false to be honoured")
	}
	if cfg.Detector.MismatchCount != 3 {
		t.Fatalf("expected default mismatch count, got %d", cfg.Detector.MismatchCount)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected format normalized to json, got %q", cfg.Logging.Format)
	}
}

func TestLoadProjectFallback(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	project := t.TempDir()
	t.Chdir(project)
	if err := os.WriteFile("creditwatch.toml", []byte("[detector]\nthreads = 3\n"), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || filepath.Base(resolved) != "creditwatch.toml" {
		t.Fatalf("expected project config to be found, got %q exists=%v", resolved, exists)
	}
	if cfg.Detector.Threads != 3 {
		t.Fatalf("unexpected threads: %d", cfg.Detector.Threads)
	}
}

func TestLogLevelEnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CREDITWATCH_LOG_LEVEL", " DEBUG ")
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(cfgPath, []byte("[logging]\nlevel = \"warn\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected env override, got %q", cfg.Logging.Level)
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(cfgPath, []byte("[detector\nthreads = "), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(cfgPath); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestValidateDetector(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"threads", func(c *config.Config) { c.Detector.Threads = -1 }, "threads"},
		{"interval", func(c *config.Config) { c.Detector.CaptureIntervalMS = 10 }, "capture_interval_ms"},
		{"limit", func(c *config.Config) { c.Detector.CaptureLimitKB = -4 }, "capture_limit_kb"},
		{"min width", func(c *config.Config) { c.Detector.MinCaptureWidth = 4 }, "min_capture_width"},
		{"significance", func(c *config.Config) { c.Detector.Significance = 140 }, "significance"},
		{"detect level", func(c *config.Config) { c.Detector.DetectLevel = -5 }, "detect_level"},
		{"match seconds", func(c *config.Config) { c.Detector.MatchSeconds = -1 }, "match_seconds"},
		{"mismatch", func(c *config.Config) { c.Detector.MismatchCount = -2 }, "mismatch_count"},
		{"fuzz", func(c *config.Config) { c.Detector.FuzzFactor = -1 }, "fuzz_factor"},
		{"window", func(c *config.Config) { c.Detector.WindowSeconds = -1 }, "window_seconds"},
		{"log level", func(c *config.Config) { c.Logging.Level = "verbose" }, "logging level"},
		{"debug dir", func(c *config.Config) { c.Detector.Debug = true; c.Paths.DebugDir = "" }, "debug_dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CREDITWATCH_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	defaults := config.Default()
	if cfg.Detector.Threads != defaults.Detector.Threads || cfg.Detector.MatchSeconds != defaults.Detector.MatchSeconds {
		t.Fatalf("sample should mirror defaults, got %+v", cfg.Detector)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := config.Default()
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode encoded config: %v", err)
	}
	if decoded.Detector != cfg.Detector {
		t.Fatalf("detector section mismatch: %+v vs %+v", decoded.Detector, cfg.Detector)
	}
}
