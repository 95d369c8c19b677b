// Package extract reads text and embedded images from downloaded DOCX and
// PDF files.
//
// DOCX files are read directly as OOXML zip archives. PDF files are handed
// to the poppler command line tools (pdftotext, pdfimages), which must be
// installed on the host.
package extract

import (
	"context"
	"fmt"

	"github.com/custodia-labs/driveindex/internal/core/domain"
	"github.com/custodia-labs/driveindex/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor dispatches on MIME type.
type Extractor struct {
	pdf *pdfTools
}

// New creates an extractor that runs the system poppler tools.
func New() *Extractor {
	return NewWithRunner(&execRunner{})
}

// NewWithRunner creates an extractor with a custom command runner.
func NewWithRunner(runner CommandRunner) *Extractor {
	return &Extractor{pdf: &pdfTools{runner: runner}}
}

// HasImages reports whether the document body references at least one image.
func (e *Extractor) HasImages(ctx context.Context, path, mimeType string) (bool, error) {
	switch mimeType {
	case domain.MimeTypeDOCX:
		doc, err := readDOCX(path)
		if err != nil {
			return false, err
		}
		return len(doc.images) > 0, nil
	case domain.MimeTypePDF:
		return e.pdf.hasImages(ctx, path)
	default:
		return false, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, mimeType)
	}
}

// ExtractText returns the document's text in reading order.
func (e *Extractor) ExtractText(ctx context.Context, path, mimeType string) (string, error) {
	switch mimeType {
	case domain.MimeTypeDOCX:
		doc, err := readDOCX(path)
		if err != nil {
			return "", err
		}
		return doc.text, nil
	case domain.MimeTypePDF:
		return e.pdf.text(ctx, path)
	default:
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedType, mimeType)
	}
}

// ExtractImages writes up to max images into dir in document order.
func (e *Extractor) ExtractImages(
	ctx context.Context, path, mimeType, dir string, max int,
) ([]driven.ExtractedImage, error) {
	if max <= 0 {
		return nil, nil
	}
	switch mimeType {
	case domain.MimeTypeDOCX:
		return extractDOCXImages(path, dir, max)
	case domain.MimeTypePDF:
		return e.pdf.images(ctx, path, dir, max)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, mimeType)
	}
}
