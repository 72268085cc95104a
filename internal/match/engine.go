package match

import (
	"log/slog"
	"slices"
	"sync"

	"creditwatch/internal/fingerprint"
	"creditwatch/internal/logging"
	"creditwatch/internal/store"
)

// Template keys identify the reference fingerprints in an Index.
var (
	SmallTemplateKey = fingerprint.Key{ToEnd: fingerprint.Undefined, FromStart: 0, Episode: fingerprint.Undefined}
	LargeTemplateKey = fingerprint.Key{ToEnd: fingerprint.Undefined, FromStart: 1, Episode: fingerprint.Undefined}
)

// State is the detection state of a run.
type State int

const (
	NoMatch State = iota
	PossibleMatch
	Match
)

func (s State) String() string {
	switch s {
	case PossibleMatch:
		return "possible"
	case Match:
		return "match"
	default:
		return "none"
	}
}

// Counters is the consecutive evidence accumulator.
type Counters struct {
	Hits     int
	Misses   int
	Detected bool
}

// Index is the live working state of the engine.
type Index struct {
	Current     fingerprint.Key
	Previous    fingerprint.Key
	HasPrevious bool
	SmallKey    fingerprint.Key
	LargeKey    fingerprint.Key
	Episode     int
	DetectedAt  fingerprint.Key
	HasDetected bool
}

// Result describes one evaluation.
type Result struct {
	CreditsSimilarity  float64
	PreviousSimilarity float64
	Hit                bool
	Miss               bool
	Possible           bool
	State              State
	// Fired is true only for the evaluation that latched the detection.
	Fired bool
}

// Engine is the hit/miss state machine. It is safe for concurrent use by
// every capture consumer.
type Engine struct {
	cfg     Config
	current *store.Store
	past    *store.Store
	small   fingerprint.Fingerprint
	large   fingerprint.Fingerprint
	opts    fingerprint.Options
	logger  *slog.Logger

	mu        sync.Mutex
	counters  Counters
	index     Index
	previous  fingerprint.Fingerprint
	listeners []func(Index)

	once     sync.Once
	detected chan struct{}
}

// New creates an engine for one playback. Fingerprints are recorded in
// current and compared against past; either may be nil.
func New(cfg Config, size fingerprint.Size, episode int, current, past *store.Store, logger *slog.Logger) *Engine {
	cfg = cfg.withDefaults()
	small, large := fingerprint.CreditsTemplates(size)
	return &Engine{
		cfg:     cfg,
		current: current,
		past:    past,
		small:   small,
		large:   large,
		opts: fingerprint.Options{
			FuzzFactor:   cfg.FuzzFactor,
			Significance: cfg.Significance,
		},
		logger: logging.NewComponentLogger(logger, "match"),
		index: Index{
			SmallKey: SmallTemplateKey,
			LargeKey: LargeTemplateKey,
			Episode:  episode,
		},
		detected: make(chan struct{}),
	}
}

// OnDetected registers fn to run once when the detection latches.
func (e *Engine) OnDetected(fn func(Index)) {
	if fn == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Detected is closed when the detection latches.
func (e *Engine) Detected() <-chan struct{} { return e.detected }

// Counters returns a snapshot of the hit/miss counters.
func (e *Engine) Counters() Counters {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counters
}

// Index returns a snapshot of the working state.
func (e *Engine) Index() Index {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index
}

// State reports the current detection state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

func (e *Engine) stateLocked() State {
	switch {
	case e.index.HasDetected:
		return Match
	case e.counters.Hits > 0:
		return PossibleMatch
	default:
		return NoMatch
	}
}

// Reset clears counters and the previous fingerprint. A latched detection
// stays latched.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.counters = Counters{}
	e.previous = nil
	e.index.HasPrevious = false
}

// Evaluate scores the fingerprint captured at key and updates the counters.
// filtered may be nil when the filtered branch was skipped.
func (e *Engine) Evaluate(key fingerprint.Key, playTime float64, raw, filtered fingerprint.Fingerprint) Result {
	opts := e.opts
	opts.Filtered = filtered

	var res Result
	res.CreditsSimilarity = max(
		fingerprint.SimilarityWith(e.small, raw, opts),
		fingerprint.SimilarityWith(e.large, raw, opts),
	)
	level := e.cfg.DetectLevel

	switch {
	case raw.IsBlank() || res.CreditsSimilarity >= level-templateMargin:
		res.Hit = true
	default:
		e.mu.Lock()
		previous := e.previous
		e.mu.Unlock()
		if previous != nil {
			res.PreviousSimilarity = fingerprint.SimilarityWith(previous, raw, opts)
		}
		res.Possible = res.PreviousSimilarity >= level
		if res.Possible && res.CreditsSimilarity >= level-templatePossibleMargin {
			res.Hit = true
			break
		}
		res.Hit = e.matchesPast(key, raw, opts)
		res.Miss = !res.Hit && !res.Possible
	}

	if e.current != nil {
		e.current.Put(key, raw)
	}

	e.mu.Lock()
	switch {
	case res.Hit:
		e.counters.Hits++
		e.counters.Misses = 0
		e.counters.Detected = e.counters.Hits >= e.cfg.MatchNumber
	case res.Miss:
		e.counters.Misses++
		if e.counters.Misses >= e.cfg.MismatchNumber {
			e.counters = Counters{}
		}
	}
	e.index.Previous = e.index.Current
	e.index.HasPrevious = e.previous != nil
	e.index.Current = key
	e.previous = raw.Clone()

	if e.counters.Detected && !e.index.HasDetected {
		e.index.HasDetected = true
		e.index.DetectedAt = key
		res.Fired = true
	}
	res.State = e.stateLocked()
	counters := e.counters
	index := e.index
	listeners := slices.Clone(e.listeners)
	e.mu.Unlock()

	e.logger.Debug("fingerprint evaluated",
		logging.String("key", key.String()),
		logging.Float64("credits_similarity", res.CreditsSimilarity),
		logging.Float64("previous_similarity", res.PreviousSimilarity),
		logging.Bool("hit", res.Hit),
		logging.Bool("miss", res.Miss),
		logging.Int("hits", counters.Hits),
		logging.Int("misses", counters.Misses),
	)

	if res.Fired {
		e.fire(index, playTime, listeners)
	}
	return res
}

func (e *Engine) matchesPast(key fingerprint.Key, raw fingerprint.Fingerprint, opts fingerprint.Options) bool {
	if e.past == nil {
		return false
	}
	for pastKey, fp := range e.past.Window(key, e.cfg.WindowSeconds, false) {
		if fingerprint.SimilarityWith(fp, raw, opts) >= e.cfg.DetectLevel {
			e.logger.Debug("matched earlier episode", logging.String("past_key", pastKey.String()))
			return true
		}
	}
	return false
}

func (e *Engine) fire(index Index, playTime float64, listeners []func(Index)) {
	e.once.Do(func() {
		if e.current != nil {
			e.current.SetDetectedOffset(index.Episode, int(playTime))
		}
		e.logger.Info("end credits detected",
			logging.String("key", index.DetectedAt.String()),
			logging.Int("offset_seconds", int(playTime)),
			logging.Int(logging.FieldEpisode, index.Episode),
		)
		close(e.detected)
		for _, fn := range listeners {
			fn(index)
		}
	})
}
