package detector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"creditwatch/internal/capture"
	"creditwatch/internal/fingerprint"
	"creditwatch/internal/history"
	"creditwatch/internal/logging"
	"creditwatch/internal/match"
	"creditwatch/internal/preprocess"
	"creditwatch/internal/store"
)

var (
	// ErrAlreadyRunning is returned by Start while a session is active.
	ErrAlreadyRunning = errors.New("detector already running")
	// ErrTerminated is returned by Start after Terminate.
	ErrTerminated = errors.New("detector terminated")
)

const (
	defaultAspect = 16.0 / 9.0
	recordTimeout = 5 * time.Second
)

// Playback identifies what is being played. A fresh value is passed to every
// Start; the detector keeps no other record of player state.
type Playback struct {
	SeasonID string
	Episode  int
	// Aspect is the video width/height ratio. Zero selects 16:9.
	Aspect float64
}

// Episodic reports whether the playback belongs to a season, which is what
// makes fingerprints and offsets worth persisting.
func (p Playback) Episodic() bool {
	return strings.TrimSpace(p.SeasonID) != "" && p.Episode != fingerprint.Undefined
}

func (p Playback) aspect() float64 {
	if p.Aspect <= 0 {
		return defaultAspect
	}
	return p.Aspect
}

// Recorder receives every detection. *history.Ledger implements it.
type Recorder interface {
	Record(ctx context.Context, entry history.Entry) (int64, error)
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithRecorder records detections to r.
func WithRecorder(r Recorder) Option {
	return func(d *Detector) { d.recorder = r }
}

// WithSessionIDs replaces the UUID session id generator.
func WithSessionIDs(fn func() string) Option {
	return func(d *Detector) {
		if fn != nil {
			d.newID = fn
		}
	}
}

// Status is a snapshot of the detector.
type Status struct {
	Running      bool
	SessionID    string
	Playback     Playback
	State        match.State
	Counters     match.Counters
	Capture      capture.Stats
	Fingerprints int
	Detected     bool
	Offset       int
	Reused       bool
}

// Detector runs credits detection sessions against one frame source.
type Detector struct {
	cfg      Config
	logger   *slog.Logger
	recorder Recorder
	newID    func() string

	mu         sync.Mutex
	source     capture.FrameSource
	terminated bool
	current    *store.Store
	past       *store.Store
	playback   Playback
	session    *session
}

// New creates an idle detector sampling source.
func New(cfg Config, source capture.FrameSource, opts ...Option) *Detector {
	d := &Detector{
		cfg:    cfg,
		source: source,
		logger: logging.NewNop(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logging.NewComponentLogger(d.logger, "detector")
	return d
}

// Start begins a session for playback. Fingerprints captured earlier for the
// same season and episode are kept; anything else in the current store is
// discarded.
func (d *Detector) Start(ctx context.Context, playback Playback) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.terminated {
		return ErrTerminated
	}
	if d.source == nil {
		return errors.New("detector requires a frame source")
	}
	if d.session != nil {
		if d.session.running() {
			return ErrAlreadyRunning
		}
		d.session.cancel()
	}

	playback.SeasonID = strings.TrimSpace(playback.SeasonID)
	size := fingerprint.SizeForAspect(playback.aspect())
	d.prepareCurrent(playback, size)
	d.past = d.loadPast(playback, size)
	d.playback = playback

	id := d.newID()
	logger := logging.WithSession(d.logger, id).With(
		logging.String(logging.FieldSeasonID, playback.SeasonID),
		logging.Int(logging.FieldEpisode, playback.Episode),
	)
	runCtx, cancel := context.WithCancel(logging.WithSessionID(ctx, id))
	sess := newSession(id, playback, d.current, cancel, logger)

	if d.cfg.ReuseOffsets && playback.Episodic() {
		if offset, ok := d.past.DetectedOffset(playback.Episode); ok {
			d.session = sess
			logger.Info("reusing stored credits offset", logging.Int("offset_seconds", offset))
			go d.watchOffset(runCtx, sess, d.source, offset)
			return nil
		}
	}

	debugDir := ""
	if d.cfg.Debug && d.cfg.DebugDir != "" {
		debugDir = filepath.Join(d.cfg.DebugDir, id)
	}
	processor := preprocess.NewProcessor(preprocess.ProcessorConfig{
		HashSize:     size,
		Significance: d.cfg.Significance,
		DebugDir:     debugDir,
	}, logger)

	interval := d.cfg.interval()
	engine := match.New(match.Config{
		DetectLevel:    d.cfg.DetectLevel,
		MatchNumber:    match.MatchNumberFor(d.cfg.MatchSeconds, interval),
		MismatchNumber: d.cfg.MismatchCount,
		WindowSeconds:  d.cfg.WindowSeconds,
		Significance:   d.cfg.Significance,
		FuzzFactor:     d.cfg.FuzzFactor,
	}, size, playback.Episode, d.current, d.past, logger)
	current := d.current
	engine.OnDetected(func(index match.Index) {
		offset, _ := current.DetectedOffset(index.Episode)
		d.onDetected(sess, offset, history.SourceMatch, engine.Counters().Hits)
	})

	pool := capture.NewPool(capture.Config{
		Threads:        d.cfg.Threads,
		Interval:       interval,
		CaptureLimitKB: d.cfg.CaptureLimitKB,
		Aspect:         playback.aspect(),
		MinWidth:       d.cfg.MinCaptureWidth,
		Episode:        playback.Episode,
	}, d.source, processor, sess, logger)
	sess.engine, sess.pool = engine, pool
	if err := pool.Start(runCtx); err != nil {
		cancel()
		sess.finish()
		return fmt.Errorf("start capture: %w", err)
	}
	d.session = sess

	go func() {
		<-pool.Done()
		stats := pool.Stats()
		sess.logger.Info("detection session finished",
			logging.Int64("captured", stats.Captured),
			logging.Int64("processed", stats.Processed),
			logging.Int64("desyncs", stats.Desyncs),
			logging.Bool("detected", sess.isDetected()),
			logging.Duration("elapsed", time.Since(sess.started)),
		)
		sess.finish()
	}()

	logger.Info("detection session started",
		logging.String("hash_size", size.String()),
		logging.Int("past_fingerprints", d.past.Len()),
		logging.Duration("interval", interval),
	)
	return nil
}

func (d *Detector) prepareCurrent(playback Playback, size fingerprint.Size) {
	switch {
	case d.current == nil || d.current.Size() != size:
		d.current = store.New(size, d.logger)
	case d.current.IsValidFor(playback.SeasonID, playback.Episode):
		d.logger.Debug("keeping fingerprints of the current episode", logging.Int("fingerprints", d.current.Len()))
		return
	default:
		d.current.Invalidate()
		d.current.Reset()
	}
	if playback.Episodic() {
		d.current.Init(playback.SeasonID, playback.Episode)
	}
}

func (d *Detector) loadPast(playback Playback, size fingerprint.Size) *store.Store {
	past := store.New(size, d.logger)
	if playback.SeasonID != "" && d.cfg.StoreDir != "" {
		past.Load(d.cfg.StoreDir, playback.SeasonID)
	}
	return past
}

func (d *Detector) watchOffset(ctx context.Context, sess *session, source capture.FrameSource, offset int) {
	defer sess.finish()

	ticker := time.NewTicker(d.cfg.interval())
	defer ticker.Stop()
	for {
		if source.Time() >= float64(offset) {
			sess.current.SetDetectedOffset(sess.playback.Episode, offset)
			d.onDetected(sess, offset, history.SourceReused, 0)
			return
		}
		if !source.IsPlaying() {
			sess.logger.Debug("playback ended before the stored offset")
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (d *Detector) onDetected(sess *session, offset int, source history.Source, hits int) {
	if !sess.markDetected(offset, source) {
		return
	}
	sess.logger.Info("credits detected",
		logging.String(logging.FieldEventType, "credits_detected"),
		logging.Int("offset_seconds", offset),
		logging.String("source", string(source)),
	)
	if d.recorder == nil || sess.playback.SeasonID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if _, err := d.recorder.Record(ctx, history.Entry{
		SessionID:     sess.id,
		SeasonID:      sess.playback.SeasonID,
		Episode:       sess.playback.Episode,
		OffsetSeconds: offset,
		Hits:          hits,
		Source:        source,
	}); err != nil {
		logging.WarnWithContext(sess.logger, "detection not recorded", "history_record_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "detection is missing from creditwatch history"),
			logging.String(logging.FieldErrorHint, "run creditwatch doctor to check the history database"),
		)
	}
}

// Stop halts the running session gracefully: no new frames are captured and
// frames already queued are still evaluated. The stores are kept.
func (d *Detector) Stop() {
	d.mu.Lock()
	sess := d.session
	d.mu.Unlock()
	if sess == nil {
		return
	}
	if _, pool := sess.parts(); pool != nil {
		pool.Stop()
	}
	sess.cancel()
	<-sess.done
}

// Terminate cancels the running session, discards fingerprints that were not
// persisted by StoreData and releases the frame source. The detector cannot
// be started again.
func (d *Detector) Terminate() {
	d.mu.Lock()
	sess := d.session
	d.terminated = true
	d.source = nil
	d.mu.Unlock()

	if sess != nil {
		sess.cancel()
		if _, pool := sess.parts(); pool != nil {
			pool.Terminate()
		}
		<-sess.done
		sess.release()
	}

	d.mu.Lock()
	if d.current != nil {
		d.current.Invalidate()
		d.current.Reset()
	}
	d.current = nil
	d.past = nil
	d.mu.Unlock()
}

// StoreData merges the fingerprints and offset of the current episode into
// the season record and saves it. Non-episodic playback is not persisted.
func (d *Detector) StoreData() error {
	d.mu.Lock()
	current, past, playback := d.current, d.past, d.playback
	d.mu.Unlock()

	if current == nil || past == nil || !playback.Episodic() {
		return nil
	}
	if _, ok := current.DetectedOffset(playback.Episode); !ok {
		current.MarkAnalysed(playback.Episode)
	}
	past.Merge(current)
	if err := past.Save(d.cfg.StoreDir, playback.SeasonID); err != nil {
		logging.WarnWithContext(d.logger, "season record not saved", "store_save_failed",
			logging.String(logging.FieldSeasonID, playback.SeasonID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "later episodes cannot reuse these fingerprints"),
			logging.String(logging.FieldErrorHint, "check free space and permissions on store_dir"),
		)
		return fmt.Errorf("store season record: %w", err)
	}
	d.logger.Debug("season record saved",
		logging.String(logging.FieldSeasonID, playback.SeasonID),
		logging.Int("fingerprints", past.Len()),
	)
	return nil
}

var pending = make(chan struct{})

// Detected is closed when the running session declares credits. Before the
// first Start it never closes.
func (d *Detector) Detected() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session == nil {
		return pending
	}
	return d.session.detected
}

// Done is closed when the running session has no more work: playback ended,
// capture gave up, or Stop or Terminate returned.
func (d *Detector) Done() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session == nil {
		done := make(chan struct{})
		close(done)
		return done
	}
	return d.session.done
}

// CreditsOffset returns the detected credits start, in seconds from the
// start of the episode, of the latest session.
func (d *Detector) CreditsOffset() (int, bool) {
	d.mu.Lock()
	sess := d.session
	d.mu.Unlock()
	if sess == nil {
		return 0, false
	}
	offset, _, ok := sess.result()
	return offset, ok
}

// Status returns a snapshot of the latest session.
func (d *Detector) Status() Status {
	d.mu.Lock()
	sess, current, playback := d.session, d.current, d.playback
	d.mu.Unlock()

	status := Status{Playback: playback}
	if current != nil {
		status.Fingerprints = current.Len()
	}
	if sess == nil {
		return status
	}
	status.Running = sess.running()
	status.SessionID = sess.id
	engine, pool := sess.parts()
	if engine != nil {
		status.State = engine.State()
		status.Counters = engine.Counters()
	}
	if pool != nil {
		status.Capture = pool.Stats()
	}
	offset, source, ok := sess.result()
	status.Detected = ok
	status.Offset = offset
	status.Reused = ok && source == history.SourceReused
	if status.Reused {
		status.State = match.Match
	}
	return status
}
