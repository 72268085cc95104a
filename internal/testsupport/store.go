package testsupport

import (
	"testing"

	"creditwatch/internal/config"
	"creditwatch/internal/fingerprint"
	"creditwatch/internal/history"
	"creditwatch/internal/logging"
	"creditwatch/internal/store"
)

// MustOpenLedger opens the history ledger named by cfg and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *history.Ledger {
	t.Helper()

	ledger, err := history.Open(cfg.History.Path)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		ledger.Close()
	})
	return ledger
}

// SeedRecord saves a season record under cfg's store directory holding the
// given credits offsets, keyed by episode.
func SeedRecord(t testing.TB, cfg *config.Config, seasonID string, size fingerprint.Size, offsets map[int]int) {
	t.Helper()

	s := store.New(size, logging.NewNop())
	for episode, offset := range offsets {
		s.SetDetectedOffset(episode, offset)
	}
	if err := s.Save(cfg.Paths.StoreDir, seasonID); err != nil {
		t.Fatalf("seed record %s: %v", seasonID, err)
	}
}
