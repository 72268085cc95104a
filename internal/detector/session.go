package detector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"creditwatch/internal/capture"
	"creditwatch/internal/fingerprint"
	"creditwatch/internal/history"
	"creditwatch/internal/logging"
	"creditwatch/internal/match"
	"creditwatch/internal/store"
)

// session is the state of one Start. Consumers of its pool call HandleFrame.
type session struct {
	id       string
	playback Playback
	current  *store.Store
	started  time.Time
	cancel   context.CancelFunc
	logger   *slog.Logger

	engine *match.Engine
	pool   *capture.Pool

	done       chan struct{}
	doneOnce   sync.Once
	detected   chan struct{}
	detectOnce sync.Once

	mu        sync.Mutex
	offset    int
	source    history.Source
	hasOffset bool
	sampler   *logging.ProgressSampler
}

func newSession(id string, playback Playback, current *store.Store, cancel context.CancelFunc, logger *slog.Logger) *session {
	return &session{
		id:       id,
		playback: playback,
		current:  current,
		started:  time.Now(),
		cancel:   cancel,
		logger:   logger,
		done:     make(chan struct{}),
		detected: make(chan struct{}),
		sampler:  logging.NewProgressSampler(10),
	}
}

// HandleFrame feeds one fingerprint to the engine.
func (s *session) HandleFrame(key fingerprint.Key, playTime float64, raw, filtered fingerprint.Fingerprint) {
	engine := s.engine
	if engine == nil {
		return
	}
	res := engine.Evaluate(key, playTime, raw, filtered)

	total := float64(key.FromStart + key.ToEnd)
	if total <= 0 {
		return
	}
	s.mu.Lock()
	emit := s.sampler.ShouldLog(100 * float64(key.FromStart) / total)
	s.mu.Unlock()
	if emit {
		counters := engine.Counters()
		s.logger.Info("detection progress",
			logging.Int("play_seconds", key.FromStart),
			logging.Int("remaining_seconds", key.ToEnd),
			logging.String("state", res.State.String()),
			logging.Int("hits", counters.Hits),
		)
	}
}

func (s *session) running() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *session) finish() {
	s.doneOnce.Do(func() { close(s.done) })
}

// markDetected latches the detection. It reports true only for the first call.
func (s *session) markDetected(offset int, source history.Source) bool {
	first := false
	s.detectOnce.Do(func() {
		s.mu.Lock()
		s.offset = offset
		s.source = source
		s.hasOffset = true
		s.mu.Unlock()
		close(s.detected)
		first = true
	})
	return first
}

func (s *session) isDetected() bool {
	_, _, ok := s.result()
	return ok
}

func (s *session) result() (int, history.Source, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset, s.source, s.hasOffset
}

func (s *session) parts() (*match.Engine, *capture.Pool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine, s.pool
}

// release drops the references a finished session holds. Callers must wait
// for done first so no consumer is still inside HandleFrame.
func (s *session) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.pool = nil
	s.engine = nil
}
