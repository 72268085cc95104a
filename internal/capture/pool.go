package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"creditwatch/internal/fingerprint"
	"creditwatch/internal/logging"
)

// ErrCaptureFailed wraps capture errors and malformed capture buffers.
var ErrCaptureFailed = errors.New("frame capture failed")

// ErrPoolRunning is returned by Start when the pool is already running.
var ErrPoolRunning = errors.New("capture pool already running")

const (
	// captureStep is how much the capture width shrinks after a failure.
	captureStep     = 8
	defaultInterval = time.Second
)

// Config controls pool sizing and pacing.
type Config struct {
	// Threads is the total worker count; one is the producer.
	Threads int
	// Interval is the capture cadence in play time.
	Interval time.Duration
	// CaptureLimitKB bounds the size of one raw capture.
	CaptureLimitKB int
	// Aspect is the video aspect ratio used to derive capture dimensions.
	Aspect float64
	// MinWidth is the capture width floor; the producer gives up below it.
	MinWidth int
	// Episode is stamped on every frame key.
	Episode int
}

// Consumers returns the number of consumer workers, at least one.
func (c Config) Consumers() int {
	return max(1, c.Threads-1)
}

func (c Config) interval() time.Duration {
	if c.Interval <= 0 {
		return defaultInterval
	}
	return c.Interval
}

// CaptureDims returns the largest capture size, in multiples of eight pixels,
// whose BGRA buffer fits limitKB at the given aspect ratio.
func CaptureDims(limitKB int, aspect float64) (int, int) {
	if aspect <= 0 || math.IsNaN(aspect) || math.IsInf(aspect, 0) {
		aspect = 16.0 / 9.0
	}
	pixels := float64(max(limitKB, 1)*1024) / 4
	height := math.Sqrt(pixels / aspect)
	width := int(height*aspect) / captureStep * captureStep
	if width < captureStep {
		width = captureStep
	}
	return width, heightFor(width, aspect)
}

func heightFor(width int, aspect float64) int {
	if aspect <= 0 {
		return width
	}
	return max(1, int(math.Round(float64(width)/aspect)))
}

// Stats counts pool activity.
type Stats struct {
	Captured  int64
	Processed int64
	Desyncs   int64
	Failures  int64
}

// Pool samples a FrameSource with one producer and Consumers() consumers.
type Pool struct {
	cfg    Config
	logger *slog.Logger

	mu        sync.Mutex
	source    FrameSource
	processor Processor
	handler   Handler
	queue     *Queue
	cancel    context.CancelFunc
	done      chan struct{}

	wg       sync.WaitGroup
	running  atomic.Bool
	stopping atomic.Bool
	active   atomic.Int32

	captured  atomic.Int64
	processed atomic.Int64
	desyncs   atomic.Int64
	failures  atomic.Int64
}

// NewPool wires a pool. It does not start any worker.
func NewPool(cfg Config, source FrameSource, processor Processor, handler Handler, logger *slog.Logger) *Pool {
	done := make(chan struct{})
	close(done)
	return &Pool{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "capture"),
		source:    source,
		processor: processor,
		handler:   handler,
		done:      done,
	}
}

// Start launches the producer and consumers. The pool keeps running until
// the source stops playing, Stop or Terminate is called, or ctx is done.
func (p *Pool) Start(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrPoolRunning
	}

	p.mu.Lock()
	if p.source == nil || p.processor == nil || p.handler == nil {
		p.mu.Unlock()
		p.running.Store(false)
		return errors.New("capture pool requires a source, processor and handler")
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.stopping.Store(false)
	p.queue = NewQueue(p.cfg.Consumers())
	p.done = make(chan struct{})
	source, processor, handler, queue, done := p.source, p.processor, p.handler, p.queue, p.done
	p.mu.Unlock()

	consumers := p.cfg.Consumers()
	p.active.Store(int32(consumers))
	p.wg.Add(consumers + 1)
	go p.produce(runCtx, source, queue, consumers)
	for i := 0; i < consumers; i++ {
		go p.consume(runCtx, i, processor, handler, queue)
	}
	go func() {
		p.wg.Wait()
		cancel()
		p.running.Store(false)
		close(done)
	}()

	p.logger.Debug("capture pool started",
		logging.Int("consumers", consumers),
		logging.Duration("interval", p.cfg.interval()),
		logging.Int("capture_limit_kb", p.cfg.CaptureLimitKB),
	)
	return nil
}

// Running reports whether any worker is still active.
func (p *Pool) Running() bool { return p.running.Load() }

// Done is closed once every worker has exited.
func (p *Pool) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Wait blocks until every worker has exited or ctx is done.
func (p *Pool) Wait(ctx context.Context) error {
	select {
	case <-p.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop asks the producer to stop after its current cycle and waits for the
// consumers to drain the queue. Handlers keep every fingerprint they received.
func (p *Pool) Stop() {
	p.stopping.Store(true)
	<-p.Done()
}

// Terminate cancels all workers immediately, waits for them to return and
// drops the pool's references to its source, processor and handler. A
// terminated pool cannot be restarted.
func (p *Pool) Terminate() {
	p.stopping.Store(true)
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	<-p.Done()

	p.mu.Lock()
	p.source = nil
	p.processor = nil
	p.handler = nil
	p.queue = nil
	p.cancel = nil
	p.mu.Unlock()
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Captured:  p.captured.Load(),
		Processed: p.processed.Load(),
		Desyncs:   p.desyncs.Load(),
		Failures:  p.failures.Load(),
	}
}

func (p *Pool) produce(ctx context.Context, source FrameSource, queue *Queue, consumers int) {
	defer p.wg.Done()

	interval := p.cfg.interval()
	width, height := CaptureDims(p.cfg.CaptureLimitKB, p.cfg.Aspect)
	minWidth := max(p.cfg.MinWidth, captureStep)

	for !p.stopping.Load() && ctx.Err() == nil {
		if p.active.Load() == 0 {
			p.logger.Debug("all consumers exited; producer exiting")
			break
		}
		if !source.IsPlaying() {
			p.logger.Debug("source stopped playing; producer exiting")
			break
		}
		started := time.Now()
		speed := source.Speed()
		if speed <= 0 {
			if !sleepCtx(ctx, interval) {
				break
			}
			continue
		}

		raw, err := capture(ctx, source, width, height)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			p.failures.Add(1)
			width -= captureStep
			height = heightFor(width, p.cfg.Aspect)
			if width < minWidth {
				logging.WarnWithContext(p.logger, "frame capture keeps failing; stopping capture", "capture_failed",
					logging.Error(err),
					logging.Int("min_width", minWidth),
					logging.String(logging.FieldImpact, "credits will not be detected for this playback"),
					logging.String(logging.FieldErrorHint, "check the frame source is playing video"),
				)
				break
			}
			p.logger.Debug("frame capture failed; retrying smaller",
				logging.Error(err),
				logging.Int("width", width),
				logging.Int("height", height),
			)
			if !sleepCtx(ctx, interval) {
				break
			}
			continue
		}

		playTime := source.Time()
		frame := Frame{
			Raw:      raw,
			Width:    width,
			Height:   height,
			Key:      fingerprint.NewKey(playTime, source.TotalTime(), p.cfg.Episode),
			PlayTime: playTime,
		}
		p.captured.Add(1)
		if err := queue.Put(ctx, frame, interval); err != nil {
			if errors.Is(err, ErrQueueTimeout) {
				p.desyncs.Add(1)
				logging.WarnWithContext(p.logger, "consumers fell behind; frame dropped", "capture_desync",
					logging.String("key", frame.Key.String()),
					logging.Int("queued", queue.Len()),
					logging.String(logging.FieldImpact, "one sample skipped; detection may fire later"),
					logging.String(logging.FieldErrorHint, "lower capture_limit_kb or raise threads"),
				)
			} else if ctx.Err() != nil {
				break
			}
		}

		wait := time.Duration(float64(interval)/speed) - time.Since(started)
		if wait > 0 && !sleepCtx(ctx, wait) {
			break
		}
	}

	queue.Close()
	if ctx.Err() != nil {
		return
	}
	// Let consumers drain what was captured, then release them.
	joinCtx, cancel := context.WithTimeout(ctx, time.Duration(consumers+1)*interval)
	defer cancel()
	if err := queue.Join(joinCtx); err != nil {
		p.logger.Debug("queue did not drain before shutdown", logging.Error(err))
	}
	for i := 0; i < consumers; i++ {
		if err := queue.PutTerminal(ctx, interval); err != nil {
			p.logger.Debug("terminal entry dropped", logging.Error(err))
		}
	}
}

func (p *Pool) consume(ctx context.Context, index int, processor Processor, handler Handler, queue *Queue) {
	defer p.wg.Done()
	defer p.active.Add(-1)

	interval := p.cfg.interval()
	if index > 0 && !sleepCtx(ctx, time.Duration(index)*interval) {
		return
	}
	timeout := time.Duration(max(p.cfg.Threads, 1)) * interval
	logger := p.logger.With(logging.Int("worker", index))

	for {
		frame, err := queue.Get(ctx, timeout)
		if err != nil {
			if errors.Is(err, ErrQueueTimeout) {
				logger.Debug("no frames queued; consumer exiting")
			}
			return
		}
		if frame.Terminal() {
			queue.Done()
			return
		}

		raw, filtered, err := processor.Process(frame.Raw, frame.Width, frame.Height)
		if err != nil {
			p.failures.Add(1)
			logger.Debug("frame processing failed", logging.Error(err), logging.String("key", frame.Key.String()))
			queue.Done()
			continue
		}
		handler.HandleFrame(frame.Key, frame.PlayTime, raw, filtered)
		p.processed.Add(1)
		queue.Done()
	}
}

func capture(ctx context.Context, source FrameSource, width, height int) ([]byte, error) {
	raw, err := source.Capture(ctx, width, height)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}
	if want := width * height * 4; len(raw) != want {
		return nil, fmt.Errorf("%w: got %d bytes for %dx%d", ErrCaptureFailed, len(raw), width, height)
	}
	return raw, nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
