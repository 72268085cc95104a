package framesource

import (
	"context"
	"image"
	"sync"
)

// Static serves one image whose play clock only moves when told to. Tests
// use it to drive the detector deterministically.
type Static struct {
	mu      sync.Mutex
	image   image.Image
	time    float64
	total   float64
	speed   float64
	playing bool
	fail    error
}

// NewStatic returns a playing source showing img for total seconds.
func NewStatic(img image.Image, total float64) *Static {
	return &Static{image: img, total: total, speed: 1, playing: true}
}

// SetImage swaps the frame being shown.
func (s *Static) SetImage(img image.Image) {
	s.mu.Lock()
	s.image = img
	s.mu.Unlock()
}

// SetTime moves the play position.
func (s *Static) SetTime(seconds float64) {
	s.mu.Lock()
	s.time = seconds
	s.mu.Unlock()
}

// Advance moves the play position forward by seconds.
func (s *Static) Advance(seconds float64) {
	s.mu.Lock()
	s.time += seconds
	s.mu.Unlock()
}

// SetPlaying starts or stops playback.
func (s *Static) SetPlaying(playing bool) {
	s.mu.Lock()
	s.playing = playing
	s.mu.Unlock()
}

// SetSpeed changes the playback rate; zero pauses.
func (s *Static) SetSpeed(speed float64) {
	s.mu.Lock()
	s.speed = speed
	s.mu.Unlock()
}

// FailWith makes every Capture return err until cleared with nil.
func (s *Static) FailWith(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

func (s *Static) Capture(ctx context.Context, width, height int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	img, fail, playing := s.image, s.fail, s.playing
	s.mu.Unlock()
	if fail != nil {
		return nil, fail
	}
	if !playing {
		return nil, ErrNotPlaying
	}
	return renderBGRA(img, width, height)
}

func (s *Static) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing && s.time < s.total
}

func (s *Static) Time() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.time
}

func (s *Static) TotalTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *Static) Speed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing {
		return 0
	}
	return s.speed
}
