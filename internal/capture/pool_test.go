package capture

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"creditwatch/internal/fingerprint"
	"creditwatch/internal/logging"
)

type fakeSource struct {
	mu       sync.Mutex
	frames   int // frames left before playback ends; < 0 plays forever
	fail     bool
	position float64
	drift    float64 // added to position on every Time call
	widths   []int
	calls    []time.Time
}

func (s *fakeSource) Capture(ctx context.Context, width, height int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.widths = append(s.widths, width)
	s.calls = append(s.calls, time.Now())
	if s.fail {
		return nil, errors.New("no frame")
	}
	if s.frames > 0 {
		s.frames--
	}
	s.position++
	return make([]byte, width*height*4), nil
}

func (s *fakeSource) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames != 0
}

func (s *fakeSource) Time() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.position
	s.position += s.drift
	return now
}

func (s *fakeSource) TotalTime() float64 { return 3600 }

func (s *fakeSource) Speed() float64 { return 1 }

func (s *fakeSource) captureTimes() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.calls...)
}

func (s *fakeSource) requestedWidths() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.widths...)
}

type fakeProcessor struct {
	gate chan struct{}
}

func (p *fakeProcessor) Process(raw []byte, width, height int) (fingerprint.Fingerprint, fingerprint.Fingerprint, error) {
	if p.gate != nil {
		<-p.gate
	}
	return fingerprint.Fingerprint{fingerprint.On, fingerprint.Off}, nil, nil
}

type recordingHandler struct {
	mu    sync.Mutex
	keys  []fingerprint.Key
	times []float64
}

func (h *recordingHandler) HandleFrame(key fingerprint.Key, playTime float64, _, _ fingerprint.Fingerprint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.keys = append(h.keys, key)
	h.times = append(h.times, playTime)
}

func (h *recordingHandler) received() []fingerprint.Key {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]fingerprint.Key(nil), h.keys...)
}

func testConfig(threads int) Config {
	return Config{
		Threads:        threads,
		Interval:       5 * time.Millisecond,
		CaptureLimitKB: 16,
		Aspect:         1,
		MinWidth:       16,
		Episode:        2,
	}
}

func waitPool(t *testing.T, p *Pool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Wait(ctx); err != nil {
		t.Fatalf("pool did not finish: %v", err)
	}
}

func TestCaptureDims(t *testing.T) {
	tests := []struct {
		limitKB       int
		aspect        float64
		width, height int
	}{
		{16, 1, 64, 64},
		{256, 16.0 / 9.0, 336, 189},
		{0, 1, 16, 16},
	}
	for _, tt := range tests {
		w, h := CaptureDims(tt.limitKB, tt.aspect)
		if w != tt.width || h != tt.height {
			t.Errorf("CaptureDims(%d, %.2f) = %dx%d, want %dx%d", tt.limitKB, tt.aspect, w, h, tt.width, tt.height)
		}
		if w%captureStep != 0 {
			t.Errorf("width %d is not a multiple of %d", w, captureStep)
		}
	}
}

func TestConsumers(t *testing.T) {
	if got := (Config{Threads: 1}).Consumers(); got != 1 {
		t.Fatalf("Consumers = %d, want at least 1", got)
	}
	if got := (Config{Threads: 4}).Consumers(); got != 3 {
		t.Fatalf("Consumers = %d, want 3", got)
	}
}

func TestPoolProcessesEveryFrame(t *testing.T) {
	source := &fakeSource{frames: 6}
	handler := &recordingHandler{}
	pool := NewPool(testConfig(3), source, &fakeProcessor{}, handler, logging.NewNop())

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitPool(t, pool)

	stats := pool.Stats()
	if stats.Captured != 6 {
		t.Fatalf("Captured = %d, want 6", stats.Captured)
	}
	if stats.Processed+stats.Desyncs != stats.Captured {
		t.Fatalf("frames lost: %+v", stats)
	}
	keys := handler.received()
	if int64(len(keys)) != stats.Processed {
		t.Fatalf("handler saw %d frames, stats say %d", len(keys), stats.Processed)
	}
	for _, key := range keys {
		if key.Episode != 2 || key.ToEnd != 3600-key.FromStart {
			t.Fatalf("unexpected key %s", key)
		}
	}
	if pool.Running() {
		t.Fatal("pool should report not running after the source ends")
	}
}

func TestPoolDesyncDropsWithoutDuplicating(t *testing.T) {
	source := &fakeSource{frames: 5}
	processor := &fakeProcessor{gate: make(chan struct{})}
	handler := &recordingHandler{}
	pool := NewPool(testConfig(2), source, processor, handler, logging.NewNop())

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	deadline := time.After(5 * time.Second)
	for pool.Stats().Desyncs == 0 {
		select {
		case <-deadline:
			t.Fatal("expected a desync while the consumer is blocked")
		case <-time.After(time.Millisecond):
		}
	}
	close(processor.gate)
	waitPool(t, pool)

	stats := pool.Stats()
	if stats.Processed+stats.Desyncs != stats.Captured {
		t.Fatalf("frames lost or duplicated: %+v", stats)
	}
	seen := map[fingerprint.Key]bool{}
	for _, key := range handler.received() {
		if seen[key] {
			t.Fatalf("frame %s handled twice", key)
		}
		seen[key] = true
	}
}

func TestPoolShrinksCaptureOnFailure(t *testing.T) {
	source := &fakeSource{frames: -1, fail: true}
	cfg := testConfig(2)
	cfg.MinWidth = 40
	pool := NewPool(cfg, source, &fakeProcessor{}, &recordingHandler{}, logging.NewNop())

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitPool(t, pool)

	want := []int{64, 56, 48, 40}
	got := source.requestedWidths()
	if len(got) != len(want) {
		t.Fatalf("capture widths = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("capture widths = %v, want %v", got, want)
		}
	}
	if pool.Stats().Failures != 4 {
		t.Fatalf("Failures = %d, want 4", pool.Stats().Failures)
	}
}

func TestPoolPausesBetweenFailedCaptures(t *testing.T) {
	source := &fakeSource{frames: -1, fail: true}
	cfg := testConfig(2)
	cfg.MinWidth = 40
	pool := NewPool(cfg, source, &fakeProcessor{}, &recordingHandler{}, logging.NewNop())

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitPool(t, pool)

	calls := source.captureTimes()
	if len(calls) < 2 {
		t.Fatalf("expected several capture attempts, got %d", len(calls))
	}
	for i := 1; i < len(calls); i++ {
		if gap := calls[i].Sub(calls[i-1]); gap < cfg.Interval {
			t.Fatalf("retry %d followed after %v, want at least %v", i, gap, cfg.Interval)
		}
	}
}

func TestPoolKeyMatchesPlayTime(t *testing.T) {
	source := &fakeSource{frames: 5, drift: 0.6}
	handler := &recordingHandler{}
	pool := NewPool(testConfig(2), source, &fakeProcessor{}, handler, logging.NewNop())

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitPool(t, pool)

	handler.mu.Lock()
	defer handler.mu.Unlock()
	if len(handler.keys) == 0 {
		t.Fatal("no frames handled")
	}
	for i, key := range handler.keys {
		if key.FromStart != int(handler.times[i]) {
			t.Fatalf("frame %d: key %s recorded at play time %v", i, key, handler.times[i])
		}
	}
}

func TestPoolStartTwice(t *testing.T) {
	pool := NewPool(testConfig(2), &fakeSource{frames: -1}, &fakeProcessor{}, &recordingHandler{}, logging.NewNop())
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer pool.Terminate()
	if err := pool.Start(context.Background()); !errors.Is(err, ErrPoolRunning) {
		t.Fatalf("expected ErrPoolRunning, got %v", err)
	}
}

func TestPoolStopKeepsProcessedFrames(t *testing.T) {
	handler := &recordingHandler{}
	pool := NewPool(testConfig(3), &fakeSource{frames: -1}, &fakeProcessor{}, handler, logging.NewNop())
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	pool.Stop()

	if pool.Running() {
		t.Fatal("pool still running after Stop")
	}
	if len(handler.received()) == 0 {
		t.Fatal("expected frames to be processed before stopping")
	}
}

func TestPoolTerminate(t *testing.T) {
	pool := NewPool(testConfig(2), &fakeSource{frames: -1}, &fakeProcessor{}, &recordingHandler{}, logging.NewNop())
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	done := make(chan struct{})
	go func() {
		pool.Terminate()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Terminate did not return")
	}
	if pool.Running() {
		t.Fatal("pool still running after Terminate")
	}
	if err := pool.Start(context.Background()); err == nil {
		t.Fatal("terminated pool must not restart")
	}
}
