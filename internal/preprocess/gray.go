package preprocess

import (
	"image"
	"image/draw"
)

// histogram returns the 256 bin luma histogram of img.
func histogram(img *image.Gray) [256]int {
	var hist [256]int
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[(y-b.Min.Y)*img.Stride:]
		for x := 0; x < b.Dx(); x++ {
			hist[row[x]]++
		}
	}
	return hist
}

// median returns the lower median pixel value of img.
func median(img *image.Gray) uint8 {
	hist := histogram(img)
	return medianOf(hist, img.Bounds().Dx()*img.Bounds().Dy())
}

func medianOf(hist [256]int, total int) uint8 {
	if total == 0 {
		return 0
	}
	target := (total + 1) / 2
	cumulative := 0
	for value, count := range hist {
		cumulative += count
		if cumulative >= target {
			return uint8(value)
		}
	}
	return 255
}

// mean returns the rounded mean luma of img.
func mean(img *image.Gray) uint8 {
	hist := histogram(img)
	var sum, total int
	for value, count := range hist {
		sum += value * count
		total += count
	}
	if total == 0 {
		return 0
	}
	return uint8((sum + total/2) / total)
}

// countNonZero returns the number of pixels with a non-zero value.
func countNonZero(img *image.Gray) int {
	hist := histogram(img)
	total := 0
	for value := 1; value < len(hist); value++ {
		total += hist[value]
	}
	return total
}

// clone returns a copy of img with a zero-origin rectangle.
func clone(img *image.Gray) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()], img.Pix[y*img.Stride:y*img.Stride+b.Dx()])
	}
	return out
}

// mapPixels applies fn to every pixel of a copy of img.
func mapPixels(img *image.Gray, fn func(uint8) uint8) *image.Gray {
	out := clone(img)
	for i, v := range out.Pix {
		out.Pix[i] = fn(v)
	}
	return out
}

// toGray converts any image to *image.Gray, reusing it when it already is one.
func toGray(img image.Image) *image.Gray {
	if gray, ok := img.(*image.Gray); ok {
		return gray
	}
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

func clamp(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v)
	}
}
