package testsupport

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

// BGRAFrame builds a raw BGRA buffer whose grey level at (x, y) is luma(x, y).
func BGRAFrame(width, height int, luma func(x, y int) uint8) []byte {
	raw := make([]byte, width*height*4)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := luma(x, y)
			i := (y*width + x) * 4
			raw[i], raw[i+1], raw[i+2], raw[i+3] = v, v, v, 0xff
		}
	}
	return raw
}

// SolidFrame is a BGRA buffer of a single grey level.
func SolidFrame(width, height int, value uint8) []byte {
	return BGRAFrame(width, height, func(int, int) uint8 { return value })
}

// BandFrame is a black BGRA buffer with a white vertical band covering
// columns [from, to), the stereotypical rolling-credits layout.
func BandFrame(width, height, from, to int) []byte {
	return BGRAFrame(width, height, func(x, _ int) uint8 {
		if x >= from && x < to {
			return 0xff
		}
		return 0
	})
}

// GrayImage builds an *image.Gray from a luma function.
func GrayImage(width, height int, luma func(x, y int) uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: luma(x, y)})
		}
	}
	return img
}

// WriteFrames saves images as numbered PNG files under dir and returns their
// paths in playback order.
func WriteFrames(t testing.TB, dir string, images ...image.Image) []string {
	t.Helper()

	paths := make([]string, 0, len(images))
	for i, img := range images {
		path := filepath.Join(dir, fmt.Sprintf("frame-%04d.png", i))
		if err := imaging.Save(img, path); err != nil {
			t.Fatalf("save frame %s: %v", path, err)
		}
		paths = append(paths, path)
	}
	return paths
}
