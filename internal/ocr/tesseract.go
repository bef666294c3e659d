package ocr

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/otiai10/gosseract/v2"
	"github.com/rotisserie/eris"

	"github.com/labelguard/compliance-cli/internal/config"
	"github.com/labelguard/compliance-cli/internal/model"
)

// Tesseract implements Extractor with the gosseract client. A fresh client is
// created per call; gosseract clients are not safe for concurrent use.
type Tesseract struct {
	cfg           config.OCRConfig
	clientFactory func() *gosseract.Client
}

// NewTesseract constructs a Tesseract-backed extractor.
func NewTesseract(cfg config.OCRConfig) *Tesseract {
	return &Tesseract{cfg: cfg, clientFactory: gosseract.NewClient}
}

func (t *Tesseract) Extract(ctx context.Context, img model.ImageBlob, region *model.Region) ([]model.TextLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.cfg.TimeoutSecs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(t.cfg.TimeoutSecs)*time.Second)
		defer cancel()
	}

	decoded, bounds, err := decodeImage(img)
	if err != nil {
		return nil, err
	}

	data := img.Data
	offset := model.Position{}
	if region != nil {
		data, err = cropRegion(decoded, bounds, region.Box)
		if err != nil {
			return nil, &ReadError{ImageID: img.ID, Err: err}
		}
		offset = model.Position{X: region.Box.X, Y: region.Box.Y}
	}

	boxes, err := awaitBoxes(ctx, func() ([]gosseract.BoundingBox, error) {
		return t.recognize(img.ID, data)
	})
	if err != nil {
		return nil, err
	}

	regionID := ""
	if region != nil {
		regionID = region.ID
	}

	lines := make([]model.TextLine, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		lines = append(lines, model.TextLine{
			RegionID:   regionID,
			RawText:    text,
			Confidence: clamp01(b.Confidence / 100.0),
			Position:   pixelPosition(offset, bounds, b.Box.Min.X, b.Box.Min.Y),
		})
	}

	SortReadingOrder(lines)
	return lines, nil
}

// awaitBoxes runs the blocking tesseract calls in their own goroutine so the
// configured deadline can interrupt the wait; a stuck recognition cannot be
// cancelled, only abandoned.
func awaitBoxes(ctx context.Context, fn func() ([]gosseract.BoundingBox, error)) ([]gosseract.BoundingBox, error) {
	type result struct {
		boxes []gosseract.BoundingBox
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		boxes, err := fn()
		ch <- result{boxes: boxes, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.boxes, r.err
	}
}

func (t *Tesseract) recognize(imageID string, data []byte) ([]gosseract.BoundingBox, error) {
	c := t.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(data); err != nil {
		return nil, &ReadError{ImageID: imageID, Err: err}
	}
	if len(t.cfg.Languages) > 0 {
		if err := c.SetLanguage(t.cfg.Languages...); err != nil {
			return nil, eris.Wrap(err, "ocr: set languages")
		}
	}
	if t.cfg.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), strconv.Itoa(t.cfg.DPI)); err != nil {
			return nil, eris.Wrap(err, "ocr: set dpi")
		}
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, ErrUnavailable
	}
	return boxes, nil
}

// pixelPosition maps a pixel coordinate in the OCR input (the full image, or
// a region crop whose origin is offset) to a position normalized against the
// full image. A crop pixel px sits at offset.X + px/imageWidth.
func pixelPosition(offset model.Position, bounds image.Rectangle, x, y int) model.Position {
	return model.Position{
		X: offset.X + float64(x)/math.Max(float64(bounds.Dx()), 1),
		Y: offset.Y + float64(y)/math.Max(float64(bounds.Dy()), 1),
	}
}

// SortReadingOrder orders lines top-to-bottom, then left-to-right. Lines
// within half a percent of the same vertical position count as one row.
func SortReadingOrder(lines []model.TextLine) {
	sort.SliceStable(lines, func(i, j int) bool {
		if math.Abs(lines[i].Position.Y-lines[j].Position.Y) > 0.005 {
			return lines[i].Position.Y < lines[j].Position.Y
		}
		return lines[i].Position.X < lines[j].Position.X
	})
}

func decodeImage(img model.ImageBlob) (image.Image, image.Rectangle, error) {
	if len(img.Data) == 0 {
		return nil, image.Rectangle{}, &ReadError{ImageID: img.ID, Err: eris.New("empty image data")}
	}
	decoded, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return nil, image.Rectangle{}, &ReadError{ImageID: img.ID, Err: err}
	}
	return decoded, decoded.Bounds(), nil
}

// cropRegion cuts a normalized bounding box out of the image and re-encodes
// it for the OCR client.
func cropRegion(img image.Image, bounds image.Rectangle, box model.BoundingBox) ([]byte, error) {
	rect := image.Rect(
		bounds.Min.X+int(math.Round(box.X*float64(bounds.Dx()))),
		bounds.Min.Y+int(math.Round(box.Y*float64(bounds.Dy()))),
		bounds.Min.X+int(math.Round((box.X+box.W)*float64(bounds.Dx()))),
		bounds.Min.Y+int(math.Round((box.Y+box.H)*float64(bounds.Dy()))),
	).Intersect(bounds)
	if rect.Empty() {
		return nil, eris.New("region outside image bounds")
	}

	sub, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	})
	if !ok {
		return nil, eris.New("image does not support sub-image")
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, sub.SubImage(rect)); err != nil {
		return nil, eris.Wrap(err, "encode cropped region")
	}
	return buf.Bytes(), nil
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
