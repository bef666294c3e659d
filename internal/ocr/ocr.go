// Package ocr defines the text-extraction contract the pipeline requires from
// an OCR backend and provides the Tesseract implementation.
package ocr

import (
	"context"
	"errors"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/labelguard/compliance-cli/internal/config"
	"github.com/labelguard/compliance-cli/internal/model"
)

// Extractor extracts text lines from a listing image. A nil region means the
// entire image is scanned. Lines come back in best-effort top-to-bottom,
// left-to-right reading order.
type Extractor interface {
	Extract(ctx context.Context, img model.ImageBlob, region *model.Region) ([]model.TextLine, error)
}

// ReadError reports an unreadable or corrupt image. It is the only fatal
// condition in the extraction stage: the run aborts and no report is produced.
type ReadError struct {
	ImageID string
	Err     error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("ocr: unreadable image %s: %v", e.ImageID, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// IsReadError reports whether err is (or wraps) a ReadError.
func IsReadError(err error) bool {
	var re *ReadError
	return errors.As(err, &re)
}

// ErrUnavailable signals that the OCR backend is down. The pipeline degrades
// (image text is skipped, seller text still parses) rather than failing.
var ErrUnavailable = errors.New("ocr: backend unavailable")

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.OCRConfig) (Extractor, error) {
	switch cfg.Provider {
	case "tesseract", "":
		return NewTesseract(cfg), nil
	case "none":
		return unavailableExtractor{}, nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}

// unavailableExtractor is the explicit no-backend provider: every call
// reports ErrUnavailable so the pipeline takes the degraded path.
type unavailableExtractor struct{}

func (unavailableExtractor) Extract(context.Context, model.ImageBlob, *model.Region) ([]model.TextLine, error) {
	return nil, ErrUnavailable
}
