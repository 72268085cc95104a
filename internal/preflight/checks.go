package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"creditwatch/internal/history"
	"creditwatch/internal/store"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckStoreRecords decodes every season record under dir and names the
// ones Load would silently ignore.
func CheckStoreRecords(dir string) Result {
	const name = "Season records"

	paths, err := store.Records(dir)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	var broken []string
	for _, path := range paths {
		if _, err := store.Inspect(path); err != nil {
			broken = append(broken, filepath.Base(path))
		}
	}
	if len(broken) > 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%d of %d unreadable: %s", len(broken), len(paths), strings.Join(broken, ", "))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d readable", len(paths))}
}

// CheckHistory opens the detection ledger and counts its seasons.
func CheckHistory(ctx context.Context, path string) Result {
	const name = "History ledger"

	ledger, err := history.Open(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	defer ledger.Close()

	seasons, err := ledger.Seasons(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d seasons)", path, len(seasons))}
}
