package fingerprint

import (
	"fmt"
	"math"
)

// BaseHashSize is the hash height and the width used for a 1:1 aspect ratio.
const BaseHashSize = 8

// Size holds fingerprint dimensions.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Pixels returns Width*Height.
func (s Size) Pixels() int { return s.Width * s.Height }

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool { return s.Width > 0 && s.Height > 0 }

func (s Size) String() string { return fmt.Sprintf("%dx%d", s.Width, s.Height) }

// SizeForAspect returns the hash size for a video aspect ratio. The height is
// fixed and the width is scaled to the aspect ratio and rounded to an even
// number, so 16:9 content produces a 14x8 hash.
func SizeForAspect(aspect float64) Size {
	if aspect <= 0 || math.IsNaN(aspect) || math.IsInf(aspect, 0) {
		aspect = 1
	}
	width := int(math.Round(BaseHashSize*aspect/2)) * 2
	if width < 2 {
		width = 2
	}
	return Size{Width: width, Height: BaseHashSize}
}
