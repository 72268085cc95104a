package preprocess

import (
	"image"

	"creditwatch/internal/fingerprint"
)

// MedianDeviationHash computes the canonical frame fingerprint. Each pixel is
// remapped to its absolute deviation from the image median, and a pixel is
// On when its deviation exceeds the median deviation.
func MedianDeviationHash(img *image.Gray) fingerprint.Fingerprint {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return fingerprint.Fingerprint{}
	}

	center := int(median(img))
	deviations := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := int(img.Pix[y*img.Stride+x]) - center
			if v < 0 {
				v = -v
			}
			deviations.Pix[y*w+x] = uint8(v)
		}
	}

	threshold := median(deviations)
	fp := make(fingerprint.Fingerprint, w*h)
	for i, v := range deviations.Pix {
		if v > threshold {
			fp[i] = fingerprint.On
		} else {
			fp[i] = fingerprint.Off
		}
	}
	return fp
}

// EnableFilter reports whether the filtered-hash branch is worth running: the
// share of On pixels in fp, in percent, must exceed significance.
func EnableFilter(fp fingerprint.Fingerprint, significance float64) bool {
	return fp.Significance()*100 > significance
}
