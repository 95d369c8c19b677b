package driven

import (
	"context"

	"github.com/custodia-labs/driveindex/internal/core/domain"
)

// Analyzer summarises an image-bearing document and describes its images.
type Analyzer interface {
	// Analyze must honour ctx cancellation. Images that it wants referenced
	// from the index are uploaded through req.Images, in the order their
	// descriptions are returned.
	Analyze(ctx context.Context, req *AnalysisRequest) (*domain.AnalysisResult, error)
}

// AnalysisRequest carries everything the analyzer needs for one document.
type AnalysisRequest struct {
	FilePath string
	FileID   string
	FileName string
	MimeType string
	Prompt   string

	// ImageDir is a scratch directory for extracted images.
	// The caller removes it.
	ImageDir string

	// MaxImages caps how many images may be uploaded.
	MaxImages int

	// Images uploads an extracted image and returns its URL.
	Images ImageSink
}

// ImageSink receives images produced during analysis.
type ImageSink interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
}
