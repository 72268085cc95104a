package preprocess

import (
	"image"

	"github.com/nfnt/resize"

	"creditwatch/internal/fingerprint"
)

// Resize resamples img to size. It is a no-op when img already has that size.
func Resize(img *image.Gray, size fingerprint.Size) *image.Gray {
	b := img.Bounds()
	if !size.Valid() || (b.Dx() == size.Width && b.Dy() == size.Height) {
		return img
	}
	return toGray(resize.Resize(uint(size.Width), uint(size.Height), img, resize.Bilinear))
}
