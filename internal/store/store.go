package store

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"creditwatch/internal/fingerprint"
	"creditwatch/internal/logging"
)

// FormatVersion is the persisted record version written by Save. Records
// older than 0.3 predate the elapsed-time axis and window on time-to-end only.
const FormatVersion = 0.3

// Store holds fingerprints keyed by capture time and episode. All methods are
// safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	size     fingerprint.Size
	seasonID string
	episode  int
	version  float64
	data     map[fingerprint.Key]fingerprint.Fingerprint
	offsets  map[int]*int
	logger   *slog.Logger
}

// New creates an empty, invalid store for fingerprints of the given size.
func New(size fingerprint.Size, logger *slog.Logger) *Store {
	return &Store{
		size:    size,
		episode: fingerprint.Undefined,
		version: FormatVersion,
		data:    make(map[fingerprint.Key]fingerprint.Fingerprint),
		offsets: make(map[int]*int),
		logger:  logging.NewComponentLogger(logger, "store"),
	}
}

// Init assigns the store to a season and episode.
func (s *Store) Init(seasonID string, episode int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seasonID = strings.TrimSpace(seasonID)
	s.episode = episode
}

// Invalidate clears the store identity. Fingerprints are kept so they can
// still be merged into another store before disposal.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seasonID = ""
	s.episode = fingerprint.Undefined
}

// IsValid reports whether the store is assigned to a season and a real episode.
func (s *Store) IsValid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seasonID != "" && s.episode != fingerprint.Undefined
}

// IsValidFor reports whether the store is valid and assigned to exactly this
// season and episode.
func (s *Store) IsValidFor(seasonID string, episode int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seasonID != "" && s.episode != fingerprint.Undefined &&
		s.seasonID == strings.TrimSpace(seasonID) && s.episode == episode
}

// SeasonID returns the assigned season identifier.
func (s *Store) SeasonID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seasonID
}

// Episode returns the assigned episode ordinal.
func (s *Store) Episode() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.episode
}

// Size returns the fingerprint dimensions.
func (s *Store) Size() fingerprint.Size {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// Version returns the format version of the data held, which is the
// lowest version among the loaded and merged records, or FormatVersion for
// fresh stores.
func (s *Store) Version() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Put stores fp under key, replacing any previous capture at the same key.
func (s *Store) Put(key fingerprint.Key, fp fingerprint.Fingerprint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = fp.Clone()
}

// Get returns the fingerprint stored under key.
func (s *Store) Get(key fingerprint.Key) (fingerprint.Fingerprint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fp, ok := s.data[key]
	return fp, ok
}

// Len returns the number of stored fingerprints.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Keys returns all keys ordered by episode then elapsed time.
func (s *Store) Keys() []fingerprint.Key {
	s.mu.RLock()
	keys := make([]fingerprint.Key, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	s.mu.RUnlock()
	sortKeys(keys)
	return keys
}

// Reset discards all fingerprints. Detected offsets are kept.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[fingerprint.Key]fingerprint.Fingerprint)
	s.version = FormatVersion
}

// SetDetectedOffset records the credits start, in seconds from the start, for
// an episode.
func (s *Store) SetDetectedOffset(episode, seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offsets[episode] = &seconds
}

// DetectedOffset returns the recorded credits start for an episode. Episodes
// that were analysed without a detection report false.
func (s *Store) DetectedOffset(episode int) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	offset, ok := s.offsets[episode]
	if !ok || offset == nil {
		return 0, false
	}
	return *offset, true
}

// Offsets returns a copy of the detected offsets. A nil value marks an
// episode analysed without a detection.
func (s *Store) Offsets() map[int]*int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]*int, len(s.offsets))
	for episode, offset := range s.offsets {
		out[episode] = copyOffset(offset)
	}
	return out
}

// MarkAnalysed records an episode as analysed without overwriting a known
// offset.
func (s *Store) MarkAnalysed(episode int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.offsets[episode]; !ok {
		s.offsets[episode] = nil
	}
}

// Window returns the stored fingerprints captured within tolerance seconds of
// key, measured either from the start or to the end of the video. Entries of
// key's own episode are excluded unless includeAll is set. Legacy records
// match on the time-to-end axis only.
func (s *Store) Window(key fingerprint.Key, tolerance int, includeAll bool) map[fingerprint.Key]fingerprint.Fingerprint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	legacy := s.version < FormatVersion
	out := make(map[fingerprint.Key]fingerprint.Fingerprint)
	for k, fp := range s.data {
		if !includeAll && k.Episode == key.Episode {
			continue
		}
		nearEnd := abs(k.ToEnd-key.ToEnd) <= tolerance
		nearStart := !legacy && abs(k.FromStart-key.FromStart) <= tolerance
		if nearEnd || nearStart {
			out[k] = fp
		}
	}
	return out
}

// Merge copies fingerprints of real episodes and detected offsets from other.
// Known offsets in other replace those held here. Merging older data lowers
// the store version to match.
func (s *Store) Merge(other *Store) {
	if other == nil || other == s {
		return
	}
	data, offsets := other.snapshot()
	version := other.Version()

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(data) > 0 && version < s.version {
		s.version = version
	}
	for key, fp := range data {
		if key.Episode == fingerprint.Undefined {
			continue
		}
		s.data[key] = fp
	}
	for episode, offset := range offsets {
		if offset == nil {
			if _, ok := s.offsets[episode]; ok {
				continue
			}
		}
		s.offsets[episode] = offset
	}
}

func (s *Store) snapshot() (map[fingerprint.Key]fingerprint.Fingerprint, map[int]*int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data := make(map[fingerprint.Key]fingerprint.Fingerprint, len(s.data))
	for key, fp := range s.data {
		data[key] = fp.Clone()
	}
	offsets := make(map[int]*int, len(s.offsets))
	for episode, offset := range s.offsets {
		offsets[episode] = copyOffset(offset)
	}
	return data, offsets
}

func copyOffset(offset *int) *int {
	if offset == nil {
		return nil
	}
	v := *offset
	return &v
}

func sortKeys(keys []fingerprint.Key) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Episode != keys[j].Episode {
			return keys[i].Episode < keys[j].Episode
		}
		if keys[i].FromStart != keys[j].FromStart {
			return keys[i].FromStart < keys[j].FromStart
		}
		return keys[i].ToEnd > keys[j].ToEnd
	})
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
