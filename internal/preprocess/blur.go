package preprocess

import (
	"image"

	"github.com/disintegration/imaging"
)

// Filter is a single image filter.
type Filter func(*image.Gray) *image.Gray

// Predicate decides whether a filter should still be applied to img.
type Predicate func(img *image.Gray) bool

// ConditionalBlur applies each filter in order for as long as predicate holds
// for the current image. A nil predicate always holds.
func ConditionalBlur(img *image.Gray, predicate Predicate, filters ...Filter) *image.Gray {
	for _, filter := range filters {
		if filter == nil {
			continue
		}
		if predicate != nil && !predicate(img) {
			break
		}
		img = filter(img)
	}
	return img
}

// GaussianBlur returns a filter blurring with the given sigma.
func GaussianBlur(sigma float64) Filter {
	return func(img *image.Gray) *image.Gray {
		if sigma <= 0 {
			return img
		}
		return toGray(imaging.Blur(img, sigma))
	}
}

// FindEdges returns a Laplacian edge filter.
func FindEdges() Filter {
	kernel := [9]float64{
		-1, -1, -1,
		-1, 8, -1,
		-1, -1, -1,
	}
	return func(img *image.Gray) *image.Gray {
		return toGray(imaging.Convolve3x3(img, kernel, &imaging.ConvolveOptions{Abs: true}))
	}
}

// BusierThan returns a predicate that holds while more than fraction of the
// image's pixels sit above the mean luma, i.e. while the frame is still noisy.
func BusierThan(fraction float64) Predicate {
	return func(img *image.Gray) bool {
		b := img.Bounds()
		total := b.Dx() * b.Dy()
		if total == 0 {
			return false
		}
		m := mean(img)
		above := 0
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				if img.Pix[y*img.Stride+x] > m {
					above++
				}
			}
		}
		return float64(above)/float64(total) > fraction
	}
}
