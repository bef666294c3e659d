package vision

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"sort"
	"sync"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/rotisserie/eris"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/labelguard/compliance-cli/internal/config"
	"github.com/labelguard/compliance-cli/internal/model"
)

// ortInit guards one-time ONNX Runtime environment setup. The environment is
// process-wide in onnxruntime_go.
var ortInit sync.Once
var ortInitErr error

// ONNXDetector runs a single-class-head detection model (YOLO-style export:
// output rows of x, y, w, h, score, class in input-pixel coordinates).
type ONNXDetector struct {
	cfg config.VisionConfig

	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
}

// NewONNXDetector loads the detection model once; the session is shared by
// all runs and guarded by a mutex since ORT sessions are not goroutine-safe
// with reused IO tensors.
func NewONNXDetector(cfg config.VisionConfig) (*ONNXDetector, error) {
	ortInit.Do(func() {
		if cfg.LibraryPath != "" {
			ort.SetSharedLibraryPath(cfg.LibraryPath)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, eris.Wrap(ortInitErr, "vision: initialize onnxruntime")
	}

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{"images"},
		[]string{"output0"},
		nil,
	)
	if err != nil {
		return nil, eris.Wrap(err, "vision: load detection model")
	}

	return &ONNXDetector{cfg: cfg, session: session}, nil
}

// Close releases the ORT session.
func (d *ONNXDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session != nil {
		err := d.session.Destroy()
		d.session = nil
		return err
	}
	return nil
}

func (d *ONNXDetector) Locate(ctx context.Context, img model.ImageBlob) ([]model.Region, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.cfg.TimeoutSecs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(d.cfg.TimeoutSecs)*time.Second)
		defer cancel()
	}

	decoded, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		// An undecodable image is the OCR stage's ReadError to raise; the
		// localizer just reports no regions.
		return nil, nil
	}

	size := d.cfg.InputSize
	input, err := ort.NewTensor(ort.NewShape(1, 3, int64(size), int64(size)), toCHW(decoded, size))
	if err != nil {
		return nil, eris.Wrap(err, "vision: input tensor")
	}

	out, err := d.infer(ctx, input)
	if err != nil {
		return nil, err
	}
	defer out.Destroy()

	return d.parse(img.ID, out.GetData()), nil
}

// Warmup runs one inference over a blank input so the first listing of a
// serve or batch run does not pay the model-load cost.
func (d *ONNXDetector) Warmup(ctx context.Context) error {
	size := d.cfg.InputSize
	input, err := ort.NewTensor(ort.NewShape(1, 3, int64(size), int64(size)), make([]float32, 3*size*size))
	if err != nil {
		return eris.Wrap(err, "vision: warmup tensor")
	}
	out, err := d.infer(ctx, input)
	if err != nil {
		return eris.Wrap(err, "vision: warmup inference")
	}
	out.Destroy()
	return nil
}

// infer runs the session in its own goroutine so the context deadline can
// interrupt the wait; an ORT run itself cannot be cancelled, so on timeout
// the tensors are released once the stale run finishes. infer takes
// ownership of input.
func (d *ONNXDetector) infer(ctx context.Context, input *ort.Tensor[float32]) (*ort.Tensor[float32], error) {
	type result struct {
		out ort.Value
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer input.Destroy()
		outputs := []ort.Value{nil}
		d.mu.Lock()
		err := d.session.Run([]ort.Value{input}, outputs)
		d.mu.Unlock()
		ch <- result{out: outputs[0], err: err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.out != nil {
				r.out.Destroy()
			}
		}()
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, eris.Wrap(r.err, "vision: inference")
		}
		out, ok := r.out.(*ort.Tensor[float32])
		if !ok {
			return nil, eris.New("vision: unexpected output tensor type")
		}
		return out, nil
	}
}

// parse converts raw detector rows into taxonomy-labelled regions with
// normalized coordinates, score-filtered and capped at MaxRegions.
func (d *ONNXDetector) parse(imageID string, rows []float32) []model.Region {
	regions := ParseDetections(imageID, rows, float64(d.cfg.InputSize), d.cfg.ScoreFloor)
	if d.cfg.MaxRegions > 0 && len(regions) > d.cfg.MaxRegions {
		regions = regions[:d.cfg.MaxRegions]
	}
	return regions
}

// classTaxonomy maps the detector's class index to the region-label taxonomy.
// The order matches the training manifest for the label-panel detector.
var classTaxonomy = []model.RegionLabel{
	model.RegionLabelPanel,
	model.RegionPriceArea,
	model.RegionBarcode,
	model.RegionLogo,
	model.RegionTextBlock,
}

// ParseDetections decodes flat detector output rows (x, y, w, h, score,
// class, in input-pixel space) into Regions sorted by confidence descending.
// Rows below scoreFloor or with out-of-taxonomy classes are dropped.
func ParseDetections(imageID string, rows []float32, inputSize, scoreFloor float64) []model.Region {
	const stride = 6
	var regions []model.Region

	for i := 0; i+stride <= len(rows); i += stride {
		score := float64(rows[i+4])
		cls := int(rows[i+5])
		if score < scoreFloor || cls < 0 || cls >= len(classTaxonomy) {
			continue
		}
		cx, cy := float64(rows[i])/inputSize, float64(rows[i+1])/inputSize
		w, h := float64(rows[i+2])/inputSize, float64(rows[i+3])/inputSize
		box := model.BoundingBox{X: clamp01(cx - w/2), Y: clamp01(cy - h/2), W: clamp01(w), H: clamp01(h)}
		if box.W == 0 || box.H == 0 {
			continue
		}
		regions = append(regions, model.Region{
			ImageID:    imageID,
			Box:        box,
			Label:      classTaxonomy[cls],
			Confidence: score,
		})
	}

	sort.SliceStable(regions, func(i, j int) bool {
		return regions[i].Confidence > regions[j].Confidence
	})
	for i := range regions {
		regions[i].ID = fmt.Sprintf("%s-r%d", imageID, i)
	}
	return regions
}

// toCHW resizes with nearest-neighbour sampling and lays pixels out as
// channel-first float32 in [0,1], the detector's expected input.
func toCHW(img image.Image, size int) []float32 {
	bounds := img.Bounds()
	data := make([]float32, 3*size*size)
	plane := size * size

	for y := 0; y < size; y++ {
		srcY := bounds.Min.Y + y*bounds.Dy()/size
		for x := 0; x < size; x++ {
			srcX := bounds.Min.X + x*bounds.Dx()/size
			r, g, b, _ := img.At(srcX, srcY).RGBA()
			idx := y*size + x
			data[idx] = float32(r) / 65535
			data[plane+idx] = float32(g) / 65535
			data[2*plane+idx] = float32(b) / 65535
		}
	}
	return data
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
