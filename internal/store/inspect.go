package store

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"creditwatch/internal/fingerprint"
)

// Summary describes a persisted record without loading it into a Store.
type Summary struct {
	Path    string
	Version float64
	Size    fingerprint.Size
	// Frames counts fingerprints per episode.
	Frames  map[int]int
	Offsets map[int]*int
	Skipped int
}

// Episodes returns every episode that has frames or an offset entry, sorted.
func (s Summary) Episodes() []int {
	seen := make(map[int]struct{}, len(s.Frames)+len(s.Offsets))
	for ep := range s.Frames {
		seen[ep] = struct{}{}
	}
	for ep := range s.Offsets {
		seen[ep] = struct{}{}
	}
	episodes := make([]int, 0, len(seen))
	for ep := range seen {
		episodes = append(episodes, ep)
	}
	slices.Sort(episodes)
	return episodes
}

// Fingerprints returns the total number of stored fingerprints.
func (s Summary) Fingerprints() int {
	total := 0
	for _, n := range s.Frames {
		total += n
	}
	return total
}

// Inspect reads the record at path. Unlike Load it reports what went wrong.
func Inspect(path string) (Summary, error) {
	data, err := readLocked(path)
	if err != nil {
		return Summary{}, fmt.Errorf("read record: %w", err)
	}
	parsed, err := decodeRecord(data, fingerprint.Size{})
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{
		Path:    path,
		Version: parsed.version,
		Size:    parsed.size,
		Frames:  make(map[int]int),
		Offsets: parsed.offsets,
		Skipped: parsed.skipped,
	}
	for key := range parsed.data {
		summary.Frames[key.Episode]++
	}
	return summary, nil
}

// Records lists the record files under dir, sorted by name. A missing
// directory yields no records.
func Records(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read store directory: %w", err)
	}
	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != fileExt {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	slices.Sort(paths)
	return paths, nil
}
