package model

// ImageBlob is a raw listing image as handed over by the crawler collaborator.
type ImageBlob struct {
	ID        string `json:"id"`
	SourceURL string `json:"source_url,omitempty"`
	Data      []byte `json:"-"`
}

// ListingInput is the pipeline input contract: one product listing as fetched
// from a marketplace. Zero images is valid — seller-text-only listings take
// the region-less path.
type ListingInput struct {
	URL        string      `json:"url,omitempty"`
	Title      string      `json:"title,omitempty"`
	Category   string      `json:"category"`
	SellerText string      `json:"seller_text"`
	Images     []ImageBlob `json:"images,omitempty"`
}

// HasImages reports whether any image carries data worth scanning.
func (l ListingInput) HasImages() bool {
	for _, img := range l.Images {
		if len(img.Data) > 0 {
			return true
		}
	}
	return false
}
