package preprocess

import (
	"image"
)

const (
	maxMaskIterations = 10
	// The iteration stops once the non-zero count falls to this share of the
	// significant-pixel budget.
	maskStopFraction = 0.05
)

// Multiply returns the per-pixel product a*b/255. Both images must share the
// same dimensions; the result takes the size of a.
func Multiply(a, b *image.Gray) *image.Gray {
	out := clone(a)
	bb := b.Bounds()
	for y := 0; y < out.Bounds().Dy() && y < bb.Dy(); y++ {
		for x := 0; x < out.Bounds().Dx() && x < bb.Dx(); x++ {
			i := y*out.Stride + x
			out.Pix[i] = uint8(int(out.Pix[i]) * int(b.Pix[y*b.Stride+x]) / 255)
		}
	}
	return out
}

// MultiplyMask multiplies mask against original, then keeps multiplying the
// running result against original, up to ten times or until the number of
// non-zero pixels falls to 5% of budget, the image's significant-pixel
// allowance.
func MultiplyMask(mask, original *image.Gray, budget int) *image.Gray {
	limit := int(float64(budget) * maskStopFraction)
	result := Multiply(mask, original)
	for i := 1; i < maxMaskIterations; i++ {
		if countNonZero(result) <= limit {
			break
		}
		result = Multiply(result, original)
	}
	return result
}
