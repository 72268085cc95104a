package preprocess

import (
	"image"
	"math"
)

// AutoLevel stretches the histogram so the loPct and hiPct percentiles map to
// black and white. It returns img unchanged when hiPct <= loPct or when the
// histogram has a single value.
func AutoLevel(img *image.Gray, loPct, hiPct float64) *image.Gray {
	if hiPct <= loPct {
		return img
	}
	hist := histogram(img)
	total := img.Bounds().Dx() * img.Bounds().Dy()
	if total == 0 {
		return img
	}

	low := percentile(hist, total, loPct)
	high := percentile(hist, total, hiPct)
	if high <= low {
		return img
	}

	scale := 255.0 / float64(high-low)
	return mapPixels(img, func(v uint8) uint8 {
		return clamp(int(math.Round(float64(int(v)-low) * scale)))
	})
}

// percentile returns the smallest value whose cumulative share of the
// histogram reaches pct percent.
func percentile(hist [256]int, total int, pct float64) int {
	pct = math.Max(0, math.Min(100, pct))
	target := int(math.Ceil(float64(total) * pct / 100))
	if target < 1 {
		target = 1
	}
	cumulative := 0
	for value, count := range hist {
		cumulative += count
		if cumulative >= target {
			return value
		}
	}
	return 255
}

// Contrast blends img with a flat field of its mean luma. A factor of 1
// returns an identical image, 0 returns the flat field and values above 1
// increase contrast.
func Contrast(img *image.Gray, factor float64) *image.Gray {
	m := float64(mean(img))
	return mapPixels(img, func(v uint8) uint8 {
		return clamp(int(math.Round(m + factor*(float64(v)-m))))
	})
}

// Threshold binarizes img: pixels above level become 255, the rest 0.
func Threshold(img *image.Gray, level uint8) *image.Gray {
	return mapPixels(img, func(v uint8) uint8 {
		if v > level {
			return 255
		}
		return 0
	})
}
