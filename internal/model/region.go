package model

// RegionLabel is a semantic label from the fixed region taxonomy.
type RegionLabel string

const (
	RegionLabelPanel RegionLabel = "label-panel"
	RegionPriceArea  RegionLabel = "price-area"
	RegionBarcode    RegionLabel = "barcode"
	RegionLogo       RegionLabel = "logo"
	RegionTextBlock  RegionLabel = "text-block"
)

// RegionLabels lists the full region-label taxonomy.
func RegionLabels() []RegionLabel {
	return []RegionLabel{RegionLabelPanel, RegionPriceArea, RegionBarcode, RegionLogo, RegionTextBlock}
}

// BoundingBox is a rectangle in normalized [0,1] image coordinates.
type BoundingBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Region is a detected area of interest in one listing image. Immutable once
// produced by the localizer.
type Region struct {
	ID         string      `json:"id"`
	ImageID    string      `json:"image_id"`
	Box        BoundingBox `json:"box"`
	Label      RegionLabel `json:"label"`
	Confidence float64     `json:"confidence"`
}

// Position is an approximate anchor point for a text line, normalized [0,1].
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TextLine is one line of OCR output in reading order within its region.
type TextLine struct {
	RegionID   string   `json:"region_id,omitempty"`
	RawText    string   `json:"raw_text"`
	Confidence float64  `json:"confidence"`
	Position   Position `json:"position"`
}
