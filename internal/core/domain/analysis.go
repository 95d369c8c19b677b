package domain

// DocumentKind is the result of the cheap structural classification.
type DocumentKind string

const (
	// KindTextOnly documents contain no embedded images.
	KindTextOnly DocumentKind = "text-only"

	// KindImageBearing documents contain at least one embedded image.
	KindImageBearing DocumentKind = "image-bearing"
)

// ImageDescription is the analyzer's description of one image.
type ImageDescription struct {
	Description *string `json:"description"`
}

// AnalysisResult is what the analyzer returns for an image-bearing document.
type AnalysisResult struct {
	// DocumentSummary may be empty when the model returned none.
	DocumentSummary string

	// ImageDescriptions is in the same order as the uploaded images.
	ImageDescriptions []ImageDescription

	// CompleteText is the literal extracted document text.
	CompleteText string
}

// SummaryContent formats the single summary record's content so that both the
// summary and the literal text are embedded.
func (r *AnalysisResult) SummaryContent() string {
	return "## Document Summary:\n" + r.DocumentSummary + "\n\n## Complete Document:\n" + r.CompleteText
}

// PairImages zips uploaded image URLs with the analyzer's descriptions.
// One entry per URL; images without a description keep a nil Description.
func (r *AnalysisResult) PairImages(urls []string) []ImageData {
	if len(urls) == 0 {
		return nil
	}
	images := make([]ImageData, len(urls))
	for i, url := range urls {
		images[i] = ImageData{ImagePath: url}
		if i < len(r.ImageDescriptions) {
			images[i].Description = r.ImageDescriptions[i].Description
		}
	}
	return images
}
