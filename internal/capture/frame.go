package capture

import (
	"context"

	"creditwatch/internal/fingerprint"
)

// FrameSource is the playing media the pool samples from.
type FrameSource interface {
	// Capture returns the current frame as width*height BGRA pixels.
	Capture(ctx context.Context, width, height int) ([]byte, error)
	IsPlaying() bool
	// Time is the current play position in seconds.
	Time() float64
	// TotalTime is the media duration in seconds.
	TotalTime() float64
	// Speed is the playback rate; 0 while paused.
	Speed() float64
}

// Processor fingerprints raw BGRA frames. The filtered fingerprint may be nil.
type Processor interface {
	Process(raw []byte, width, height int) (fingerprint.Fingerprint, fingerprint.Fingerprint, error)
}

// Handler receives the fingerprints computed by consumers. It is called
// concurrently from every consumer.
type Handler interface {
	HandleFrame(key fingerprint.Key, playTime float64, raw, filtered fingerprint.Fingerprint)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(key fingerprint.Key, playTime float64, raw, filtered fingerprint.Fingerprint)

func (f HandlerFunc) HandleFrame(key fingerprint.Key, playTime float64, raw, filtered fingerprint.Fingerprint) {
	f(key, playTime, raw, filtered)
}

// Frame is one captured frame travelling through the queue.
type Frame struct {
	Raw      []byte
	Width    int
	Height   int
	Key      fingerprint.Key
	PlayTime float64

	terminal bool
}

// Terminal reports whether the entry is a shutdown marker rather than a frame.
func (f Frame) Terminal() bool { return f.terminal }
