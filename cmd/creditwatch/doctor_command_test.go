package main

import (
	"os"
	"path/filepath"
	"testing"

	"creditwatch/internal/testsupport"
)

func TestDoctorPasses(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithDirectories())
	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "Store directory")
	requireContains(t, out, "History ledger")
	requireContains(t, out, "Reuse stored offsets: yes")
}

func TestDoctorReportsBrokenRecord(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithDirectories())
	if err := os.WriteFile(filepath.Join(env.cfg.Paths.StoreDir, "bad.json"), []byte("not json"), 0o644); err != nil {
		t.Fatalf("write record: %v", err)
	}
	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err == nil {
		t.Fatal("expected doctor to fail")
	}
	requireContains(t, out, "FAIL")
	requireContains(t, out, "bad.json")
}
