package framesource

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

// ErrNotPlaying is returned by Capture once playback has finished.
var ErrNotPlaying = errors.New("playback is not running")

// renderBGRA scales img to width x height and packs it as BGRA bytes, the
// layout a player's render capture produces.
func renderBGRA(img image.Image, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("capture size %dx%d is invalid", width, height)
	}
	if img == nil {
		return nil, errors.New("no frame to capture")
	}
	scaled := resize.Resize(uint(width), uint(height), img, resize.Bilinear)
	pixels := imaging.Clone(scaled)
	if pixels.Rect.Dx() != width || pixels.Rect.Dy() != height {
		return nil, fmt.Errorf("rescaled frame is %dx%d, want %dx%d",
			pixels.Rect.Dx(), pixels.Rect.Dy(), width, height)
	}
	out := make([]byte, width*height*4)
	for i := 0; i < len(out); i += 4 {
		r, g, b, a := pixels.Pix[i], pixels.Pix[i+1], pixels.Pix[i+2], pixels.Pix[i+3]
		out[i], out[i+1], out[i+2], out[i+3] = b, g, r, a
	}
	return out, nil
}
