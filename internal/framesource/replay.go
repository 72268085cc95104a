package framesource

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
)

var frameExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// ReplayOptions tunes a Replay.
type ReplayOptions struct {
	// FrameInterval is the play time each still covers. Defaults to one second.
	FrameInterval time.Duration
	// Speed is the playback rate relative to wall time. Defaults to 1.
	Speed float64
	// StartAt is the initial play position.
	StartAt time.Duration
}

// Replay plays the image files of a directory, in name order, as a video.
// The play clock starts on the first call that observes it.
type Replay struct {
	paths    []string
	interval time.Duration
	speed    float64
	startAt  time.Duration
	now      func() time.Time

	mu      sync.Mutex
	started time.Time
	stopped bool
	cached  int
	frame   image.Image
}

// NewReplay lists the frames under dir. It fails when the directory holds no
// PNG or JPEG files.
func NewReplay(dir string, opts ReplayOptions) (*Replay, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame directory: %w", err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if frameExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no png or jpeg frames in %s", dir)
	}
	slices.Sort(paths)

	if opts.FrameInterval <= 0 {
		opts.FrameInterval = time.Second
	}
	if opts.Speed <= 0 {
		opts.Speed = 1
	}
	return &Replay{
		paths:    paths,
		interval: opts.FrameInterval,
		speed:    opts.Speed,
		startAt:  opts.StartAt,
		now:      time.Now,
		cached:   -1,
	}, nil
}

// Frames returns the number of stills in the replay.
func (r *Replay) Frames() int { return len(r.paths) }

// Aspect returns the width/height ratio of the first frame.
func (r *Replay) Aspect() (float64, error) {
	img, err := imaging.Open(r.paths[0])
	if err != nil {
		return 0, fmt.Errorf("open first frame: %w", err)
	}
	bounds := img.Bounds()
	if bounds.Dy() == 0 {
		return 0, errors.New("first frame has zero height")
	}
	return float64(bounds.Dx()) / float64(bounds.Dy()), nil
}

// Stop ends playback; IsPlaying reports false afterwards.
func (r *Replay) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
}

// Capture decodes the still under the current play position and renders it
// at the requested size.
func (r *Replay) Capture(ctx context.Context, width, height int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	position := r.positionLocked()
	if r.stopped || position >= r.totalLocked() {
		return nil, ErrNotPlaying
	}
	index := min(int(position/r.interval), len(r.paths)-1)
	if index != r.cached {
		img, err := imaging.Open(r.paths[index])
		if err != nil {
			return nil, fmt.Errorf("decode frame %s: %w", filepath.Base(r.paths[index]), err)
		}
		r.frame = img
		r.cached = index
	}
	return renderBGRA(r.frame, width, height)
}

func (r *Replay) IsPlaying() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.stopped && r.positionLocked() < r.totalLocked()
}

func (r *Replay) Time() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return min(r.positionLocked(), r.totalLocked()).Seconds()
}

func (r *Replay) TotalTime() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totalLocked().Seconds()
}

func (r *Replay) Speed() float64 {
	if !r.IsPlaying() {
		return 0
	}
	return r.speed
}

func (r *Replay) positionLocked() time.Duration {
	now := r.now()
	if r.started.IsZero() {
		r.started = now
	}
	elapsed := float64(now.Sub(r.started)) * r.speed
	return r.startAt + time.Duration(elapsed)
}

func (r *Replay) totalLocked() time.Duration {
	return time.Duration(len(r.paths)) * r.interval
}
