package preprocess

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"creditwatch/internal/fingerprint"
	"creditwatch/internal/logging"
	"creditwatch/internal/testsupport"
)

func TestFormatBGRASwapsChannels(t *testing.T) {
	raw := []byte{
		0, 0, 255, 255, // pure red in BGRA order
		255, 0, 0, 255, // pure blue
	}
	img, err := FormatBGRA(raw, 2, 1)
	if err != nil {
		t.Fatalf("FormatBGRA: %v", err)
	}
	if got := img.Pix[0]; got != 76 {
		t.Fatalf("red luma = %d, want 76", got)
	}
	if got := img.Pix[1]; got != 29 {
		t.Fatalf("blue luma = %d, want 29", got)
	}
}

func TestFormatBGRARejectsWrongSize(t *testing.T) {
	if _, err := FormatBGRA(make([]byte, 7), 2, 1); !errors.Is(err, ErrFrameSize) {
		t.Fatalf("expected ErrFrameSize, got %v", err)
	}
	if _, err := FormatBGRA(nil, 0, 0); !errors.Is(err, ErrFrameSize) {
		t.Fatalf("expected ErrFrameSize for zero size, got %v", err)
	}
}

func TestAutoLevel(t *testing.T) {
	img := testsupport.GrayImage(4, 2, func(x, _ int) uint8 {
		if x < 2 {
			return 50
		}
		return 150
	})

	if out := AutoLevel(img, 80, 20); out != img {
		t.Fatal("expected identity when hi <= lo")
	}
	flat := testsupport.GrayImage(3, 3, func(int, int) uint8 { return 90 })
	if out := AutoLevel(flat, 5, 95); out != flat {
		t.Fatal("expected no-op for degenerate histogram")
	}

	out := AutoLevel(img, 0, 100)
	if out.Pix[0] != 0 || out.Pix[3] != 255 {
		t.Fatalf("expected stretch to 0..255, got %v", out.Pix)
	}
	if img.Pix[0] != 50 {
		t.Fatal("AutoLevel must not modify its input")
	}
}

func TestContrast(t *testing.T) {
	img := testsupport.GrayImage(2, 1, func(x, _ int) uint8 { return uint8(100 + x*100) })

	same := Contrast(img, 1)
	if same.Pix[0] != 100 || same.Pix[1] != 200 {
		t.Fatalf("factor 1 changed pixels: %v", same.Pix)
	}
	flat := Contrast(img, 0)
	if flat.Pix[0] != 150 || flat.Pix[1] != 150 {
		t.Fatalf("factor 0 should give mean field, got %v", flat.Pix)
	}
	strong := Contrast(img, 3)
	if strong.Pix[0] != 0 || strong.Pix[1] != 255 {
		t.Fatalf("factor 3 should clamp, got %v", strong.Pix)
	}
}

func TestThreshold(t *testing.T) {
	img := testsupport.GrayImage(3, 1, func(x, _ int) uint8 { return uint8(x * 100) })
	out := Threshold(img, 100)
	want := []uint8{0, 0, 255}
	for i, v := range want {
		if out.Pix[i] != v {
			t.Fatalf("pixel %d = %d, want %d", i, out.Pix[i], v)
		}
	}
}

func TestResize(t *testing.T) {
	size := fingerprint.Size{Width: 14, Height: 8}
	same := testsupport.GrayImage(14, 8, func(int, int) uint8 { return 1 })
	if Resize(same, size) != same {
		t.Fatal("expected no-op at target size")
	}
	big := testsupport.GrayImage(28, 16, func(int, int) uint8 { return 1 })
	out := Resize(big, size)
	if out.Bounds().Dx() != 14 || out.Bounds().Dy() != 8 {
		t.Fatalf("resized to %v", out.Bounds())
	}
}

func countSet(img *image.Gray) int {
	return countNonZero(img)
}

func TestMorphBuiltins(t *testing.T) {
	single := testsupport.GrayImage(5, 5, func(x, y int) uint8 {
		if x == 2 && y == 2 {
			return 255
		}
		return 0
	})

	t.Run("noise removal", func(t *testing.T) {
		if got := countSet(Morph(single, NoiseRemoval)); got != 0 {
			t.Fatalf("isolated pixel survived: %d set", got)
		}
		hole := testsupport.GrayImage(3, 3, func(x, y int) uint8 {
			if x == 1 && y == 1 {
				return 0
			}
			return 255
		})
		if got := Morph(hole, NoiseRemoval).Pix[4]; got != 255 {
			t.Fatalf("isolated hole not filled: %d", got)
		}
	})

	t.Run("dilation", func(t *testing.T) {
		out := Morph(single, Dilation)
		if got := countSet(out); got != 5 {
			t.Fatalf("expected plus shape of 5 pixels, got %d", got)
		}
		if out.Pix[1*5+1] != 0 {
			t.Fatal("diagonal neighbour should stay clear")
		}
	})

	t.Run("edge detect", func(t *testing.T) {
		block := testsupport.GrayImage(5, 5, func(x, y int) uint8 {
			if x >= 1 && x <= 3 && y >= 1 && y <= 3 {
				return 255
			}
			return 0
		})
		out := Morph(block, EdgeDetect)
		if got := countSet(out); got != 8 {
			t.Fatalf("expected hollow 3x3 ring, got %d set", got)
		}
		if out.Pix[2*5+2] != 0 {
			t.Fatal("interior pixel should be cleared")
		}
	})

	t.Run("corner fill", func(t *testing.T) {
		corner := testsupport.GrayImage(3, 3, func(x, y int) uint8 {
			if (x == 1 && y == 0) || (x == 0 && y == 1) {
				return 255
			}
			return 0
		})
		if got := Morph(corner, CornerFill).Pix[4]; got != 255 {
			t.Fatalf("concave corner not filled: %d", got)
		}
	})
}

func TestMorphChainsRuleSets(t *testing.T) {
	single := testsupport.GrayImage(5, 5, func(x, y int) uint8 {
		if x == 2 && y == 2 {
			return 255
		}
		return 0
	})
	// Dilation runs first, so noise removal sees a plus and keeps it.
	if got := countSet(Morph(single, Dilation, NoiseRemoval)); got != 5 {
		t.Fatalf("expected 5 pixels after chained sets, got %d", got)
	}
}

func TestParseRule(t *testing.T) {
	rules, err := ParseRule("4M:(1.. .0. ...)->1")
	if err != nil {
		t.Fatalf("ParseRule: %v", err)
	}
	if len(rules) != 4 {
		t.Fatalf("expected 4 distinct corner rules, got %d", len(rules))
	}

	rules, err = ParseRule("4:(.1. .0. ...)->1")
	if err != nil {
		t.Fatalf("ParseRule: %v", err)
	}
	if len(rules) != 4 {
		t.Fatalf("expected 4 rotations, got %d", len(rules))
	}

	for _, bad := range []string{
		"(000 010)->0",
		"000 010 000->0",
		"(000 010 000)->2",
		"(000 010 00x)->0",
		"(000 010 000)",
	} {
		if _, err := ParseRule(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestMultiplyMask(t *testing.T) {
	mask := testsupport.GrayImage(4, 4, func(int, int) uint8 { return 255 })
	original := testsupport.GrayImage(4, 4, func(int, int) uint8 { return 128 })

	if got := Multiply(mask, original).Pix[0]; got != 128 {
		t.Fatalf("Multiply = %d, want 128", got)
	}

	generous := MultiplyMask(mask, original, 1000)
	if generous.Pix[0] != 128 {
		t.Fatalf("expected a single multiply under a large budget, got %d", generous.Pix[0])
	}

	strict := MultiplyMask(mask, original, 0)
	if got := countNonZero(strict); got != 0 {
		t.Fatalf("expected iteration to drive pixels to zero, %d remain", got)
	}
}

func TestConditionalBlur(t *testing.T) {
	img := testsupport.GrayImage(4, 4, func(x, _ int) uint8 { return uint8(x * 60) })
	calls := 0
	counting := func(in *image.Gray) *image.Gray {
		calls++
		return in
	}

	ConditionalBlur(img, nil, counting, counting)
	if calls != 2 {
		t.Fatalf("nil predicate should apply every filter, got %d calls", calls)
	}

	calls = 0
	out := ConditionalBlur(img, func(*image.Gray) bool { return false }, counting)
	if calls != 0 || out != img {
		t.Fatal("false predicate should leave the image untouched")
	}
}

func TestBlurFilters(t *testing.T) {
	flat := testsupport.GrayImage(6, 6, func(int, int) uint8 { return 120 })
	if GaussianBlur(0)(flat) != flat {
		t.Fatal("zero sigma should be a no-op")
	}
	blurred := GaussianBlur(1)(flat)
	if blurred.Bounds().Dx() != 6 || blurred.Pix[0] != 120 {
		t.Fatalf("blur of flat field changed it: %d", blurred.Pix[0])
	}
	if got := countNonZero(FindEdges()(flat)); got != 0 {
		t.Fatalf("flat field has no edges, got %d", got)
	}
}

func TestConditionalBlurBlurThenEdges(t *testing.T) {
	flat := testsupport.GrayImage(8, 8, func(int, int) uint8 { return 90 })
	if got := countNonZero(ConditionalBlur(flat, nil, GaussianBlur(filterBlurSigma), FindEdges())); got != 0 {
		t.Fatalf("flat field should stay edge free after blur, got %d", got)
	}

	step := testsupport.GrayImage(8, 8, func(x, _ int) uint8 {
		if x < 4 {
			return 0
		}
		return 255
	})
	out := ConditionalBlur(step, nil, GaussianBlur(filterBlurSigma), FindEdges())
	if countNonZero(out) == 0 {
		t.Fatal("edge filter should mark the blurred step")
	}
}

func TestMedianDeviationHash(t *testing.T) {
	img := testsupport.GrayImage(4, 2, func(_, y int) uint8 {
		if y == 1 {
			return 200
		}
		return 10
	})
	fp := MedianDeviationHash(img)
	if got := fp.String(); got != "00001111" {
		t.Fatalf("hash = %s", got)
	}

	dark := testsupport.GrayImage(4, 2, func(int, int) uint8 { return 0 })
	if !MedianDeviationHash(dark).IsBlank() {
		t.Fatal("uniform frame should hash blank")
	}

	// Brightness offsets do not change the hash.
	brighter := testsupport.GrayImage(4, 2, func(_, y int) uint8 {
		if y == 1 {
			return 250
		}
		return 60
	})
	if !MedianDeviationHash(brighter).Equal(fp) {
		t.Fatal("hash should be brightness invariant")
	}
}

func TestEnableFilter(t *testing.T) {
	fp := fingerprint.Fingerprint{fingerprint.On, fingerprint.On, fingerprint.Off, fingerprint.Off}
	if !EnableFilter(fp, 25) {
		t.Fatal("50% significant should enable the filter at 25")
	}
	if EnableFilter(fp, 60) {
		t.Fatal("50% significant should not enable the filter at 60")
	}
}

func TestPipelinePassesThroughNilSteps(t *testing.T) {
	img := testsupport.GrayImage(2, 2, func(int, int) uint8 { return 10 })
	var order []string
	p := NewPipeline(
		Step{Name: "double", Apply: func(in *image.Gray) *image.Gray {
			order = append(order, "double")
			return mapPixels(in, func(v uint8) uint8 { return v * 2 })
		}},
		Step{Name: "observe", Apply: func(in *image.Gray) *image.Gray {
			order = append(order, "observe")
			return nil
		}},
		Step{Name: "skipped"},
		Step{Name: "inc", Apply: func(in *image.Gray) *image.Gray {
			order = append(order, "inc")
			return mapPixels(in, func(v uint8) uint8 { return v + 1 })
		}},
	)

	out := p.Run(img)
	if out.Pix[0] != 21 {
		t.Fatalf("pixel = %d, want 21", out.Pix[0])
	}
	if len(order) != 3 || order[1] != "observe" {
		t.Fatalf("unexpected run order %v", order)
	}
	if names := p.Names(); len(names) != 3 {
		t.Fatalf("steps without Apply should be dropped, got %v", names)
	}
}

func TestSaveStepWritesPNG(t *testing.T) {
	dir := t.TempDir()
	img := testsupport.GrayImage(3, 3, func(int, int) uint8 { return 200 })

	if out := SaveStep(dir, "trace", logging.NewNop()).Apply(img); out != nil {
		t.Fatal("save step should pass the image through")
	}
	if _, err := os.Stat(filepath.Join(dir, "trace.png")); err != nil {
		t.Fatalf("expected debug image: %v", err)
	}

	if out := SaveStep("", "trace", nil).Apply(img); out != nil {
		t.Fatal("disabled save step should return nil")
	}
}

func TestProcessor(t *testing.T) {
	size := fingerprint.Size{Width: 14, Height: 8}
	p := NewProcessor(ProcessorConfig{HashSize: size, Significance: 10}, logging.NewNop())

	raw, filtered, err := p.Process(testsupport.SolidFrame(28, 16, 0), 28, 16)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if raw.Len() != size.Pixels() || !raw.IsBlank() {
		t.Fatalf("black frame should hash blank, got %s", raw)
	}
	if filtered != nil {
		t.Fatal("blank frame should skip the filtered branch")
	}

	raw, filtered, err = p.Process(testsupport.BandFrame(28, 16, 10, 18), 28, 16)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if raw.CountOn() == 0 {
		t.Fatal("band frame should have significant pixels")
	}
	if filtered.Len() != size.Pixels() {
		t.Fatalf("filtered length = %d, want %d", filtered.Len(), size.Pixels())
	}

	if _, _, err := p.Process(make([]byte, 10), 28, 16); !errors.Is(err, ErrFrameSize) {
		t.Fatalf("expected ErrFrameSize, got %v", err)
	}
}
