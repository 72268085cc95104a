package main

import (
	"context"
	"testing"

	"creditwatch/internal/fingerprint"
	"creditwatch/internal/history"
	"creditwatch/internal/store"
	"creditwatch/internal/testsupport"
)

func TestScanDetectsAndPersists(t *testing.T) {
	env := setupCLITestEnv(t)
	frames := writeBlackFrames(t, 3)

	out, _, err := runCLI(t, []string{
		"scan", "--frames", frames, "--season", "Show S01", "--episode", "3",
		"--interval", "10m", "--start", "20m",
	}, env.configPath)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, out, "Credits detected at 20:0")
	requireContains(t, out, "matched")
	requireContains(t, out, "Season record updated: Show S01 episode 3")

	summary, err := store.Inspect(store.Path(env.cfg.Paths.StoreDir, "Show S01"))
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if summary.Frames[3] == 0 {
		t.Fatalf("expected fingerprints for episode 3, got %v", summary.Frames)
	}
	if off := summary.Offsets[3]; off == nil || *off < 1200 || *off > 1205 {
		t.Fatalf("unexpected stored offset %v", off)
	}

	ledger := testsupport.MustOpenLedger(t, env.cfg)
	entries, err := ledger.List(context.Background(), "Show S01", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].Source != history.SourceMatch || entries[0].Episode != 3 {
		t.Fatalf("unexpected history: %+v", entries)
	}
}

func TestScanReusesStoredOffset(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.SeedRecord(t, env.cfg, "show", fingerprint.SizeForAspect(16.0/9.0), map[int]int{2: 1100})
	frames := writeBlackFrames(t, 3)

	out, _, err := runCLI(t, []string{
		"scan", "--frames", frames, "--season", "show", "--episode", "2",
		"--interval", "10m", "--start", "20m",
	}, env.configPath)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, out, "Credits detected at 18:20 (1100s, reused stored offset)")
}

func TestScanNoSaveLeavesStoreEmpty(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithoutHistory())
	frames := writeBlackFrames(t, 2)

	out, _, err := runCLI(t, []string{
		"scan", "--frames", frames, "--season", "Show", "--episode", "1",
		"--interval", "10m", "--no-save",
	}, env.configPath)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, out, "Credits detected")
	paths, err := store.Records(env.cfg.Paths.StoreDir)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(paths) != 0 {
		t.Fatalf("expected no records, got %v", paths)
	}
}

func TestScanRequiresFrames(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"scan", "--season", "show"}, env.configPath); err == nil {
		t.Fatal("expected missing --frames to fail")
	}
	empty := t.TempDir()
	if _, _, err := runCLI(t, []string{"scan", "--frames", empty}, env.configPath); err == nil {
		t.Fatal("expected an empty frame directory to fail")
	}
}
