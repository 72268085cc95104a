package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/gofrs/flock"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"creditwatch/internal/fingerprint"
	"creditwatch/internal/logging"
)

const fileExt = ".json"

// FileName maps a season identifier to a stable, filesystem-safe file name.
// Case and accents are folded so "Café S01" and "cafe s01" share a file.
func FileName(identifier string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), cases.Fold(), norm.NFC)
	folded, _, err := transform.String(folder, strings.TrimSpace(identifier))
	if err != nil {
		folded = strings.ToLower(strings.TrimSpace(identifier))
	}

	var b strings.Builder
	lastSep := false
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSep = false
			continue
		}
		if !lastSep && b.Len() > 0 {
			b.WriteByte('_')
			lastSep = true
		}
	}
	name := strings.TrimSuffix(b.String(), "_")
	if name == "" {
		name = "unknown"
	}
	return name + fileExt
}

// Path returns the record path for identifier under dir.
func Path(dir, identifier string) string {
	return filepath.Join(dir, FileName(identifier))
}

// Load replaces the store contents with the record saved for identifier. It
// never returns an error: missing, unreadable or malformed records are
// logged and reported as false with the store left untouched. The store
// identity is not changed.
func (s *Store) Load(dir, identifier string) bool {
	if strings.TrimSpace(identifier) == "" || dir == "" {
		return false
	}
	path := Path(dir, identifier)

	data, err := readLocked(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logging.WarnWithContext(s.logger, "fingerprint record unreadable", "store_load_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "detection runs without prior episodes"),
				logging.String(logging.FieldErrorHint, "check file permissions on the store directory"),
			)
		}
		return false
	}

	parsed, err := decodeRecord(data, s.Size())
	if err != nil {
		logging.WarnWithContext(s.logger, "fingerprint record malformed", "store_record_invalid",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "detection runs without prior episodes"),
			logging.String(logging.FieldErrorHint, "run creditwatch store clear to discard the record"),
		)
		return false
	}

	s.mu.Lock()
	s.size = parsed.size
	s.version = parsed.version
	s.data = parsed.data
	s.offsets = parsed.offsets
	s.mu.Unlock()

	s.logger.Debug("loaded fingerprint record",
		logging.String("path", path),
		logging.Int("fingerprints", len(parsed.data)),
		logging.Int("offsets", len(parsed.offsets)),
		logging.Int("skipped", parsed.skipped),
		logging.Float64("version", parsed.version),
	)
	return true
}

// Save writes every fingerprint of a real episode and all detected offsets to
// the record for identifier. The record keeps the version of the oldest data
// held, so legacy entries keep windowing on time-to-end only.
func (s *Store) Save(dir, identifier string) error {
	if strings.TrimSpace(identifier) == "" {
		return errors.New("store: season identifier is empty")
	}
	if dir == "" {
		return errors.New("store: directory is empty")
	}

	payload, err := s.encode()
	if err != nil {
		return err
	}
	path := Path(dir, identifier)
	if err := writeLocked(path, payload); err != nil {
		return err
	}
	s.logger.Debug("saved fingerprint record", logging.String("path", path), logging.Int("bytes", len(payload)))
	return nil
}

// Remove deletes the record for identifier. A missing record is not an error.
func Remove(dir, identifier string) error {
	path := Path(dir, identifier)
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", path, err)
	}
	defer lock.Unlock()
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

func (s *Store) encode() ([]byte, error) {
	s.mu.RLock()
	rec := struct {
		Version    float64             `json:"version"`
		HashSize   [2]int              `json:"hash_size"`
		Data       map[string]*big.Int `json:"data"`
		Timestamps map[string]*int     `json:"timestamps"`
	}{
		Version:    s.version,
		HashSize:   [2]int{s.size.Width, s.size.Height},
		Data:       make(map[string]*big.Int, len(s.data)),
		Timestamps: make(map[string]*int, len(s.offsets)),
	}
	for key, fp := range s.data {
		if key.Episode == fingerprint.Undefined {
			continue
		}
		rec.Data[key.String()] = fingerprint.HashToInt(fp)
	}
	for episode, offset := range s.offsets {
		rec.Timestamps[strconv.Itoa(episode)] = copyOffset(offset)
	}
	s.mu.RUnlock()

	payload, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal fingerprint record: %w", err)
	}
	return payload, nil
}

type decoded struct {
	size    fingerprint.Size
	version float64
	data    map[fingerprint.Key]fingerprint.Fingerprint
	offsets map[int]*int
	skipped int
}

func decodeRecord(payload []byte, want fingerprint.Size) (decoded, error) {
	var raw map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return decoded{}, fmt.Errorf("parse record: %w", err)
	}

	out := decoded{
		size:    want,
		data:    make(map[fingerprint.Key]fingerprint.Fingerprint),
		offsets: make(map[int]*int),
	}

	if v, ok := raw["version"]; ok {
		version, err := strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
		if err != nil {
			return decoded{}, fmt.Errorf("parse version: %w", err)
		}
		out.version = version
	}

	if v, ok := raw["hash_size"]; ok {
		var size [2]int
		if err := json.Unmarshal(v, &size); err != nil {
			return decoded{}, fmt.Errorf("parse hash_size: %w", err)
		}
		got := fingerprint.Size{Width: size[0], Height: size[1]}
		if !got.Valid() {
			return decoded{}, fmt.Errorf("invalid hash_size %v", size)
		}
		if want.Valid() && got != want {
			return decoded{}, fmt.Errorf("hash_size %s does not match %s", got, want)
		}
		out.size = got
	}
	if !out.size.Valid() {
		return decoded{}, errors.New("record has no hash_size")
	}
	bits := out.size.Pixels()

	if v, ok := raw["data"]; ok {
		var entries map[string]any
		if err := decodeNumbers(v, &entries); err != nil {
			return decoded{}, fmt.Errorf("parse data: %w", err)
		}
		for rawKey, rawValue := range entries {
			key, err := fingerprint.ParseKey(rawKey)
			if err != nil {
				out.skipped++
				continue
			}
			num, ok := rawValue.(json.Number)
			if !ok {
				out.skipped++
				continue
			}
			value, ok := new(big.Int).SetString(num.String(), 10)
			if !ok || value.Sign() < 0 || value.BitLen() > bits {
				out.skipped++
				continue
			}
			out.data[key] = fingerprint.IntToHash(value, bits)
		}
	}

	if v, ok := raw["timestamps"]; ok {
		var entries map[string]any
		if err := decodeNumbers(v, &entries); err != nil {
			return decoded{}, fmt.Errorf("parse timestamps: %w", err)
		}
		for rawEpisode, rawValue := range entries {
			episode, err := strconv.Atoi(strings.TrimSpace(rawEpisode))
			if err != nil {
				out.skipped++
				continue
			}
			switch value := rawValue.(type) {
			case nil:
				out.offsets[episode] = nil
			case json.Number:
				seconds, err := value.Float64()
				if err != nil {
					out.skipped++
					continue
				}
				offset := int(seconds)
				out.offsets[episode] = &offset
			default:
				out.skipped++
			}
		}
	}
	return out, nil
}

func decodeNumbers(payload []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	return dec.Decode(dst)
}

func readLocked(path string) ([]byte, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	lock := flock.New(path + ".lock")
	if err := lock.RLock(); err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	defer lock.Unlock()
	return os.ReadFile(path)
}

func writeLocked(path string, payload []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", path, err)
	}
	defer lock.Unlock()

	tmp, err := os.CreateTemp(dir, ".record-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
