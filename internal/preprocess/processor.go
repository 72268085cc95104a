package preprocess

import (
	"image"
	"log/slog"

	"creditwatch/internal/fingerprint"
	"creditwatch/internal/logging"
)

const (
	levelLowPct      = 5
	levelHighPct     = 95
	filterContrast   = 1.5
	filterBlurSigma  = 1.0
	filterBusyCutoff = 0.5
)

// ProcessorConfig tunes the per-frame fingerprint computation.
type ProcessorConfig struct {
	HashSize fingerprint.Size
	// Significance is the percentage of On pixels above which the filtered
	// branch runs.
	Significance float64
	// DebugDir receives intermediate images when non-empty.
	DebugDir string
}

// Processor turns raw BGRA frames into raw and filtered fingerprints. It is
// safe for concurrent use; every call works on its own buffers.
type Processor struct {
	cfg      ProcessorConfig
	raw      *Pipeline
	filtered *Pipeline
	logger   *slog.Logger
}

// NewProcessor builds the raw and filtered pipelines for cfg.
func NewProcessor(cfg ProcessorConfig, logger *slog.Logger) *Processor {
	logger = logging.NewComponentLogger(logger, "preprocess")
	p := &Processor{cfg: cfg, logger: logger}

	p.raw = NewPipeline(
		SaveStep(cfg.DebugDir, "raw-leveled", logger),
		Step{Name: "resize", Apply: func(img *image.Gray) *image.Gray {
			return Resize(img, cfg.HashSize)
		}},
		SaveStep(cfg.DebugDir, "raw-hash", logger),
	)

	p.filtered = NewPipeline(
		Step{Name: "contrast", Apply: func(img *image.Gray) *image.Gray {
			return Contrast(img, filterContrast)
		}},
		Step{Name: "threshold", Apply: func(img *image.Gray) *image.Gray {
			return Threshold(img, mean(img))
		}},
		Step{Name: "morph", Apply: func(img *image.Gray) *image.Gray {
			return Morph(img, NoiseRemoval, CornerFill)
		}},
		SaveStep(cfg.DebugDir, "filtered-morph", logger),
	)
	return p
}

// Process fingerprints one raw BGRA frame of the given dimensions. The
// filtered fingerprint is nil when the raw fingerprint is not significant
// enough to justify the morphology branch.
func (p *Processor) Process(raw []byte, width, height int) (fingerprint.Fingerprint, fingerprint.Fingerprint, error) {
	gray, err := FormatBGRA(raw, width, height)
	if err != nil {
		return nil, nil, err
	}
	leveled := AutoLevel(gray, levelLowPct, levelHighPct)
	rawHash := MedianDeviationHash(p.raw.Run(leveled))

	if !EnableFilter(rawHash, p.cfg.Significance) {
		return rawHash, nil, nil
	}
	return rawHash, p.filter(leveled), nil
}

func (p *Processor) filter(leveled *image.Gray) fingerprint.Fingerprint {
	binary := p.filtered.Run(leveled)
	edges := Morph(binary, EdgeDetect, Dilation)

	b := leveled.Bounds()
	budget := int(float64(b.Dx()*b.Dy()) * p.cfg.Significance / 100)
	masked := MultiplyMask(edges, leveled, budget)
	masked = ConditionalBlur(masked, BusierThan(filterBusyCutoff), GaussianBlur(filterBlurSigma), FindEdges())

	small := Resize(masked, p.cfg.HashSize)
	SaveStep(p.cfg.DebugDir, "filtered-hash", p.logger).Apply(small)
	return MedianDeviationHash(small)
}
