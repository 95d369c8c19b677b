package driven

import "context"

// Extractor reads structure and text from downloaded files.
type Extractor interface {
	// HasImages reports whether the file embeds at least one image.
	// Must be cheap: it runs for every processed file.
	HasImages(ctx context.Context, path, mimeType string) (bool, error)

	// ExtractText returns the document's full text.
	ExtractText(ctx context.Context, path, mimeType string) (string, error)

	// ExtractImages writes up to max embedded images into dir, in document order.
	ExtractImages(ctx context.Context, path, mimeType, dir string, max int) ([]ExtractedImage, error)
}

// ExtractedImage is one image written to local disk by an Extractor.
type ExtractedImage struct {
	// Name identifies the image within its document, e.g. "page_2_image_1.png"
	// for a PDF or "image_3.png" for a DOCX. Numbering starts at 1.
	Name string

	// Path is the local file path.
	Path string

	ContentType string
}
