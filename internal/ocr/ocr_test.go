package ocr

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/otiai10/gosseract/v2"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labelguard/compliance-cli/internal/config"
	"github.com/labelguard/compliance-cli/internal/model"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNewExtractor(t *testing.T) {
	ex, err := NewExtractor(config.OCRConfig{Provider: "tesseract"})
	require.NoError(t, err)
	assert.IsType(t, &Tesseract{}, ex)

	ex, err = NewExtractor(config.OCRConfig{Provider: "none"})
	require.NoError(t, err)
	_, err = ex.Extract(context.Background(), model.ImageBlob{ID: "i1"}, nil)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = NewExtractor(config.OCRConfig{Provider: "bogus"})
	assert.Error(t, err)
}

func TestDecodeImage_Corrupt(t *testing.T) {
	_, _, err := decodeImage(model.ImageBlob{ID: "bad", Data: []byte("not an image")})
	require.Error(t, err)
	assert.True(t, IsReadError(err))

	_, _, err = decodeImage(model.ImageBlob{ID: "empty"})
	require.Error(t, err)
	assert.True(t, IsReadError(err))
}

func TestDecodeImage_Valid(t *testing.T) {
	img, bounds, err := decodeImage(model.ImageBlob{ID: "ok", Data: pngBytes(t, 40, 20)})
	require.NoError(t, err)
	assert.NotNil(t, img)
	assert.Equal(t, 40, bounds.Dx())
	assert.Equal(t, 20, bounds.Dy())
}

func TestCropRegion(t *testing.T) {
	img, bounds, err := decodeImage(model.ImageBlob{ID: "ok", Data: pngBytes(t, 100, 100)})
	require.NoError(t, err)

	data, err := cropRegion(img, bounds, model.BoundingBox{X: 0.25, Y: 0.25, W: 0.5, H: 0.5})
	require.NoError(t, err)

	cropped, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 50, cropped.Bounds().Dx())
	assert.Equal(t, 50, cropped.Bounds().Dy())
}

func TestCropRegion_OutsideBounds(t *testing.T) {
	img, bounds, err := decodeImage(model.ImageBlob{ID: "ok", Data: pngBytes(t, 10, 10)})
	require.NoError(t, err)

	_, err = cropRegion(img, bounds, model.BoundingBox{X: 2, Y: 2, W: 0.5, H: 0.5})
	assert.Error(t, err)
}

func TestPixelPosition_RegionCropStaysInImageFrame(t *testing.T) {
	bounds := image.Rect(0, 0, 200, 100)
	box := model.BoundingBox{X: 0.5, Y: 0.5, W: 0.5, H: 0.5}
	offset := model.Position{X: box.X, Y: box.Y}

	// Crop origin is the region's top-left corner.
	pos := pixelPosition(offset, bounds, 0, 0)
	assert.Equal(t, 0.5, pos.X)
	assert.Equal(t, 0.5, pos.Y)

	// Middle of the crop sits three quarters of the way across the image.
	pos = pixelPosition(offset, bounds, 50, 25)
	assert.InDelta(t, 0.75, pos.X, 0.0001)
	assert.InDelta(t, 0.75, pos.Y, 0.0001)

	// Far corner of the crop never maps past the image edge.
	pos = pixelPosition(offset, bounds, 100, 50)
	assert.LessOrEqual(t, pos.X, 1.0)
	assert.LessOrEqual(t, pos.Y, 1.0)
}

func TestSortReadingOrder(t *testing.T) {
	lines := []model.TextLine{
		{RawText: "c", Position: model.Position{X: 0.1, Y: 0.9}},
		{RawText: "b", Position: model.Position{X: 0.8, Y: 0.1}},
		{RawText: "a", Position: model.Position{X: 0.1, Y: 0.101}}, // same row as b
	}
	SortReadingOrder(lines)
	assert.Equal(t, "a", lines[0].RawText)
	assert.Equal(t, "b", lines[1].RawText)
	assert.Equal(t, "c", lines[2].RawText)
}

func TestAwaitBoxes_DeadlineInterruptsStuckRecognition(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	block := make(chan struct{})
	defer close(block)

	_, err := awaitBoxes(ctx, func() ([]gosseract.BoundingBox, error) {
		<-block
		return nil, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAwaitBoxes_ResultBeforeDeadline(t *testing.T) {
	boxes, err := awaitBoxes(context.Background(), func() ([]gosseract.BoundingBox, error) {
		return []gosseract.BoundingBox{{Word: "mrp"}}, nil
	})
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.Equal(t, "mrp", boxes[0].Word)
}

func TestTesseract_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewTesseract(config.OCRConfig{}).Extract(ctx, model.ImageBlob{ID: "i1", Data: pngBytes(t, 4, 4)}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
