package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/labelguard/compliance-cli/internal/model"
	"github.com/labelguard/compliance-cli/internal/vision"
)

type warmableLocalizer struct {
	warmed bool
}

func (*warmableLocalizer) Locate(context.Context, model.ImageBlob) ([]model.Region, error) {
	return nil, nil
}

func (w *warmableLocalizer) Warmup(context.Context) error {
	w.warmed = true
	return nil
}

func TestWarmupLocalizer(t *testing.T) {
	w := &warmableLocalizer{}
	warmupLocalizer(context.Background(), w)
	assert.True(t, w.warmed)

	// Backends without a warmup are skipped without complaint.
	warmupLocalizer(context.Background(), vision.Disabled{})
}
