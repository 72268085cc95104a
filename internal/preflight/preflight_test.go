package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"creditwatch/internal/config"
	"creditwatch/internal/fingerprint"
	"creditwatch/internal/logging"
	"creditwatch/internal/store"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckStoreRecords(t *testing.T) {
	dir := t.TempDir()
	s := store.New(fingerprint.Size{Width: 4, Height: 2}, logging.NewNop())
	if err := s.Save(dir, "good"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if result := CheckStoreRecords(dir); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}

	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckStoreRecords(dir)
	if result.Passed {
		t.Fatal("expected failure with a malformed record")
	}
	if !strings.Contains(result.Detail, "bad.json") {
		t.Fatalf("expected broken record named, got: %s", result.Detail)
	}
}

func TestCheckHistory(t *testing.T) {
	result := CheckHistory(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "0 seasons") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestRunAll(t *testing.T) {
	cfg := config.Default()
	root := t.TempDir()
	cfg.Paths.StoreDir = filepath.Join(root, "store")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	cfg.History.Path = filepath.Join(root, "history.db")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), &cfg)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if Failed(results) {
		t.Fatalf("expected every check to pass: %+v", results)
	}

	cfg.Detector.Debug = true
	cfg.Paths.DebugDir = filepath.Join(root, "missing-debug")
	results = RunAll(context.Background(), &cfg)
	if !Failed(results) {
		t.Fatal("expected missing debug directory to fail")
	}
	if RunAll(context.Background(), nil) != nil {
		t.Fatal("expected nil results for nil config")
	}
}
