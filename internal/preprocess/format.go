package preprocess

import (
	"errors"
	"fmt"
	"image"
)

// ErrFrameSize is returned when a raw buffer does not match its stated size.
var ErrFrameSize = errors.New("frame buffer size mismatch")

// FormatBGRA converts a raw BGRA capture buffer into a grayscale image. The
// blue and red channels are swapped to RGBA order before luma conversion with
// the ITU-R 601 weights.
func FormatBGRA(raw []byte, width, height int) (*image.Gray, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: invalid size %dx%d", ErrFrameSize, width, height)
	}
	if want := width * height * 4; len(raw) != want {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrFrameSize, len(raw), want)
	}

	rgba := make([]byte, len(raw))
	copy(rgba, raw)
	for i := 0; i < len(rgba); i += 4 {
		rgba[i], rgba[i+2] = rgba[i+2], rgba[i]
	}

	out := image.NewGray(image.Rect(0, 0, width, height))
	for i, j := 0, 0; i < len(rgba); i, j = i+4, j+1 {
		r, g, b := int(rgba[i]), int(rgba[i+1]), int(rgba[i+2])
		out.Pix[j] = uint8((r*299 + g*587 + b*114 + 500) / 1000)
	}
	return out, nil
}
