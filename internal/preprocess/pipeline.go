package preprocess

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"creditwatch/internal/logging"
)

// Step is one named transform in a Pipeline. Apply may return nil for side
// effect only steps; the input then flows to the next step unchanged.
type Step struct {
	Name  string
	Apply func(*image.Gray) *image.Gray
}

// Pipeline threads an image through an ordered list of steps.
type Pipeline struct {
	Steps []Step
}

// NewPipeline builds a pipeline from steps, skipping steps without an Apply.
func NewPipeline(steps ...Step) *Pipeline {
	p := &Pipeline{}
	for _, step := range steps {
		p.Add(step)
	}
	return p
}

// Add appends a step.
func (p *Pipeline) Add(step Step) {
	if step.Apply == nil {
		return
	}
	p.Steps = append(p.Steps, step)
}

// Run executes every step in order and returns the final image.
func (p *Pipeline) Run(img *image.Gray) *image.Gray {
	if p == nil {
		return img
	}
	for _, step := range p.Steps {
		if out := step.Apply(img); out != nil {
			img = out
		}
	}
	return img
}

// Names lists the step names in execution order.
func (p *Pipeline) Names() []string {
	if p == nil {
		return nil
	}
	names := make([]string, 0, len(p.Steps))
	for _, step := range p.Steps {
		names = append(names, step.Name)
	}
	return names
}

// SaveStep returns a debug step that writes the current image to
// dir/name.png. Each write replaces the previous file atomically so
// concurrent workers never leave a torn PNG behind. Failures are logged and
// never interrupt the pipeline.
func SaveStep(dir, name string, logger *slog.Logger) Step {
	return Step{
		Name: "save:" + name,
		Apply: func(img *image.Gray) *image.Gray {
			if dir == "" {
				return nil
			}
			if err := savePNG(filepath.Join(dir, name+".png"), img); err != nil {
				logging.WarnWithContext(logger, "debug frame save failed", "debug_save_failed",
					logging.String("step", name),
					logging.Error(err),
					logging.String(logging.FieldImpact, "intermediate image not written"),
					logging.String(logging.FieldErrorHint, "check debug_dir exists and is writable"),
				)
			}
			return nil
		},
	}
}

func savePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure debug dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".frame-*.png")
	if err != nil {
		return fmt.Errorf("create temp image: %w", err)
	}
	tmpName := tmp.Name()
	if err := imaging.Encode(tmp, img, imaging.PNG); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("encode png: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp image: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename image: %w", err)
	}
	return nil
}
