package vision

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labelguard/compliance-cli/internal/config"
	"github.com/labelguard/compliance-cli/internal/model"
)

func TestNewLocalizer(t *testing.T) {
	l, err := NewLocalizer(config.VisionConfig{Provider: "none"})
	require.NoError(t, err)
	regions, err := l.Locate(context.Background(), model.ImageBlob{ID: "i1"})
	require.NoError(t, err)
	assert.Empty(t, regions)

	_, err = NewLocalizer(config.VisionConfig{Provider: "onnx"})
	assert.Error(t, err) // model_path required

	_, err = NewLocalizer(config.VisionConfig{Provider: "bogus"})
	assert.Error(t, err)
}

func TestParseDetections(t *testing.T) {
	// Two rows in 640-pixel space: a confident label panel and a low-score
	// text block that should be filtered out.
	rows := []float32{
		320, 320, 320, 320, 0.9, 0, // label-panel, centered half-image box
		100, 100, 50, 50, 0.1, 4, // below floor
	}

	regions := ParseDetections("img1", rows, 640, 0.25)
	require.Len(t, regions, 1)

	r := regions[0]
	assert.Equal(t, "img1-r0", r.ID)
	assert.Equal(t, model.RegionLabelPanel, r.Label)
	assert.InDelta(t, 0.9, r.Confidence, 0.001)
	assert.InDelta(t, 0.25, r.Box.X, 0.001)
	assert.InDelta(t, 0.25, r.Box.Y, 0.001)
	assert.InDelta(t, 0.5, r.Box.W, 0.001)
	assert.InDelta(t, 0.5, r.Box.H, 0.001)
}

func TestParseDetections_SortsByConfidence(t *testing.T) {
	rows := []float32{
		320, 320, 100, 100, 0.5, 1,
		320, 320, 100, 100, 0.8, 2,
	}
	regions := ParseDetections("img1", rows, 640, 0.25)
	require.Len(t, regions, 2)
	assert.Equal(t, model.RegionBarcode, regions[0].Label)
	assert.Equal(t, model.RegionPriceArea, regions[1].Label)
}

func TestParseDetections_UnknownClassDropped(t *testing.T) {
	rows := []float32{320, 320, 100, 100, 0.9, 17}
	assert.Empty(t, ParseDetections("img1", rows, 640, 0.25))
}

type failingLocalizer struct{}

func (failingLocalizer) Locate(context.Context, model.ImageBlob) ([]model.Region, error) {
	return nil, errors.New("backend down")
}

func TestLocateOrEmpty_DegradesOnFailure(t *testing.T) {
	regions := LocateOrEmpty(context.Background(), failingLocalizer{}, model.ImageBlob{ID: "i1"})
	assert.Empty(t, regions)
}

func TestLocateOrEmpty_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Empty(t, LocateOrEmpty(ctx, Disabled{}, model.ImageBlob{ID: "i1"}))
}
