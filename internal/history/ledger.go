package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Source describes how a detection was obtained.
type Source string

const (
	// SourceMatch means frames matched the credits templates or an earlier episode.
	SourceMatch Source = "match"
	// SourceReused means a previously persisted offset was replayed.
	SourceReused Source = "reused"
)

// Entry is one ledger row.
type Entry struct {
	ID            int64
	SessionID     string
	SeasonID      string
	Episode       int
	OffsetSeconds int
	Hits          int
	Source        Source
	DetectedAt    time.Time
}

// Season summarizes the ledger rows of one season.
type Season struct {
	SeasonID     string
	Episodes     int
	Detections   int
	LastDetected time.Time
}

// Ledger is a detection history backed by SQLite.
type Ledger struct {
	db   *sql.DB
	path string
}

const entryColumns = "id, session_id, season_id, episode, offset_seconds, hits, source, detected_at"

// timestampLayout has fixed width so detected_at sorts lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// Open initializes or connects to the ledger database at path.
func Open(path string) (*Ledger, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	ledger := &Ledger{db: db, path: path}
	if err := ledger.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return ledger, nil
}

// Path returns the database file location.
func (l *Ledger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Close closes the underlying database connection.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Record appends entry and returns its row id. A missing session id is
// replaced by a fresh UUID and a zero DetectedAt by the current time.
func (l *Ledger) Record(ctx context.Context, entry Entry) (int64, error) {
	if l == nil || l.db == nil {
		return 0, errors.New("history ledger is not open")
	}
	if strings.TrimSpace(entry.SeasonID) == "" {
		return 0, errors.New("record detection: season id is empty")
	}
	if entry.SessionID == "" {
		entry.SessionID = uuid.NewString()
	}
	if entry.DetectedAt.IsZero() {
		entry.DetectedAt = time.Now()
	}
	if entry.Source == "" {
		entry.Source = SourceMatch
	}

	var id int64
	err := retryOnBusy(ctx, func() error {
		res, err := l.db.ExecContext(ctx,
			`INSERT INTO detections (session_id, season_id, episode, offset_seconds, hits, source, detected_at)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			entry.SessionID,
			entry.SeasonID,
			entry.Episode,
			entry.OffsetSeconds,
			entry.Hits,
			string(entry.Source),
			entry.DetectedAt.UTC().Format(timestampLayout),
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("record detection: %w", err)
	}
	return id, nil
}

// List returns the newest entries first. An empty seasonID lists every
// season; limit <= 0 means no limit.
func (l *Ledger) List(ctx context.Context, seasonID string, limit int) ([]Entry, error) {
	if l == nil || l.db == nil {
		return nil, errors.New("history ledger is not open")
	}
	query := `SELECT ` + entryColumns + ` FROM detections`
	var args []any
	if seasonID != "" {
		query += ` WHERE season_id = ?`
		args = append(args, seasonID)
	}
	query += ` ORDER BY detected_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list detections: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate detections: %w", err)
	}
	return entries, nil
}

// Seasons returns one summary per season, most recently detected first.
func (l *Ledger) Seasons(ctx context.Context) ([]Season, error) {
	if l == nil || l.db == nil {
		return nil, errors.New("history ledger is not open")
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT season_id, COUNT(DISTINCT episode), COUNT(1), MAX(detected_at)
         FROM detections GROUP BY season_id ORDER BY MAX(detected_at) DESC`)
	if err != nil {
		return nil, fmt.Errorf("list seasons: %w", err)
	}
	defer rows.Close()

	var seasons []Season
	for rows.Next() {
		var (
			season Season
			last   string
		)
		if err := rows.Scan(&season.SeasonID, &season.Episodes, &season.Detections, &last); err != nil {
			return nil, fmt.Errorf("scan season: %w", err)
		}
		season.LastDetected = parseTime(last)
		seasons = append(seasons, season)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seasons: %w", err)
	}
	return seasons, nil
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (Entry, error) {
	var (
		entry    Entry
		source   string
		detected string
	)
	if err := scanner.Scan(
		&entry.ID,
		&entry.SessionID,
		&entry.SeasonID,
		&entry.Episode,
		&entry.OffsetSeconds,
		&entry.Hits,
		&source,
		&detected,
	); err != nil {
		return Entry{}, fmt.Errorf("scan detection: %w", err)
	}
	entry.Source = Source(source)
	entry.DetectedAt = parseTime(detected)
	return entry, nil
}

func parseTime(raw string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return ts
}
