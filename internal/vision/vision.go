// Package vision defines the region-localization contract the pipeline
// requires from an object-detection backend and provides the ONNX
// implementation.
package vision

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/labelguard/compliance-cli/internal/config"
	"github.com/labelguard/compliance-cli/internal/model"
)

// Localizer finds candidate regions of interest in a listing image. The
// returned list is finite and may be empty; a plain-text-only listing has no
// regions. Confidence is the underlying detector's score, unmodified.
//
// Localization never fails a run: a backend outage yields an empty list and
// downstream falls back to scanning the whole image unscoped.
type Localizer interface {
	Locate(ctx context.Context, img model.ImageBlob) ([]model.Region, error)
}

// NewLocalizer creates a Localizer based on config.
func NewLocalizer(cfg config.VisionConfig) (Localizer, error) {
	switch cfg.Provider {
	case "none", "":
		return Disabled{}, nil
	case "onnx":
		if cfg.ModelPath == "" {
			return nil, eris.New("vision: onnx provider requires model_path")
		}
		return NewONNXDetector(cfg)
	default:
		return nil, eris.Errorf("vision: unknown provider %q", cfg.Provider)
	}
}

// Disabled is the no-detector provider: every image yields zero regions,
// which forces the whole-image OCR path.
type Disabled struct{}

func (Disabled) Locate(context.Context, model.ImageBlob) ([]model.Region, error) {
	return nil, nil
}

// LocateOrEmpty runs the localizer and degrades a backend failure to "no
// regions found", logging the outage. This is the only way the pipeline
// calls a Localizer.
func LocateOrEmpty(ctx context.Context, l Localizer, img model.ImageBlob) []model.Region {
	if ctx.Err() != nil {
		return nil
	}
	regions, err := l.Locate(ctx, img)
	if err != nil {
		zap.L().Warn("vision: localizer unavailable, falling back to whole image",
			zap.String("image_id", img.ID),
			zap.Error(err),
		)
		return nil
	}
	return regions
}
