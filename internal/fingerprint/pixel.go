package fingerprint

import (
	"strings"
)

// Pixel is a single tri-state fingerprint value.
type Pixel uint8

const (
	// Off marks an insignificant (dark) pixel.
	Off Pixel = iota
	// On marks a significant (bright) pixel.
	On
	// Unknown marks a masked position that is ignored when comparing.
	Unknown
)

// Bit converts the pixel to its packed bit value. Unknown packs as 0, which
// makes the integer encoding lossy for templates.
func (p Pixel) Bit() uint {
	if p == On {
		return 1
	}
	return 0
}

// FromBit returns On for a non-zero bit and Off otherwise.
func FromBit(bit uint) Pixel {
	if bit != 0 {
		return On
	}
	return Off
}

func (p Pixel) String() string {
	switch p {
	case On:
		return "1"
	case Off:
		return "0"
	default:
		return "."
	}
}

// Fingerprint is an ordered tri-state pixel vector of width*height entries.
type Fingerprint []Pixel

// Len returns the number of pixels.
func (f Fingerprint) Len() int { return len(f) }

// CountOn returns the number of On pixels.
func (f Fingerprint) CountOn() int { return f.count(On) }

// CountOff returns the number of Off pixels.
func (f Fingerprint) CountOff() int { return f.count(Off) }

// CountUnknown returns the number of Unknown pixels.
func (f Fingerprint) CountUnknown() int { return f.count(Unknown) }

func (f Fingerprint) count(value Pixel) int {
	n := 0
	for _, p := range f {
		if p == value {
			n++
		}
	}
	return n
}

// IsBlank reports whether the fingerprint has pixels but none of them are On.
func (f Fingerprint) IsBlank() bool {
	return len(f) > 0 && f.CountOn() == 0
}

// Significance returns the On fraction in the range [0,1].
func (f Fingerprint) Significance() float64 {
	if len(f) == 0 {
		return 0
	}
	return float64(f.CountOn()) / float64(len(f))
}

// Flip returns a copy with On and Off swapped. Unknown entries are kept.
func (f Fingerprint) Flip() Fingerprint {
	out := make(Fingerprint, len(f))
	for i, p := range f {
		switch p {
		case On:
			out[i] = Off
		case Off:
			out[i] = On
		default:
			out[i] = Unknown
		}
	}
	return out
}

// Clone returns an independent copy.
func (f Fingerprint) Clone() Fingerprint {
	if f == nil {
		return nil
	}
	out := make(Fingerprint, len(f))
	copy(out, f)
	return out
}

// Equal reports whether both fingerprints hold identical pixels.
func (f Fingerprint) Equal(other Fingerprint) bool {
	if len(f) != len(other) {
		return false
	}
	for i := range f {
		if f[i] != other[i] {
			return false
		}
	}
	return true
}

func (f Fingerprint) String() string {
	var b strings.Builder
	b.Grow(len(f))
	for _, p := range f {
		b.WriteString(p.String())
	}
	return b.String()
}

// Rows renders the fingerprint as width-length lines for debug output.
func (f Fingerprint) Rows(width int) []string {
	if width <= 0 || len(f) == 0 {
		return nil
	}
	s := f.String()
	rows := make([]string, 0, (len(s)+width-1)/width)
	for start := 0; start < len(s); start += width {
		end := min(start+width, len(s))
		rows = append(rows, s[start:end])
	}
	return rows
}
