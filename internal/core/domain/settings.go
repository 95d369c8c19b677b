package domain

import (
	"fmt"
	"time"
)

// Defaults for PipelineSettings.
const (
	DefaultMaxFileSize     int64 = 50 * 1024 * 1024
	DefaultAnalysisTimeout       = 240 * time.Second
	DefaultChunkSize             = 1000
	DefaultChunkOverlap          = 200
	DefaultMaxImages             = 50
	DefaultCollection            = "google_drive_data"

	// DefaultPrompt is sent to the analyzer with every image-bearing document.
	DefaultPrompt = "Summarize this document and provide a detailed description of each image it contains."
)

// DefaultSupportedTypes returns the default content-type allow-list.
func DefaultSupportedTypes() []string {
	return []string{MimeTypePDF, MimeTypeDOCX, MimeTypeGoogleDoc}
}

// RetryPolicy bounds retries of transient collaborator failures.
type RetryPolicy struct {
	// MaxAttempts includes the first call. 1 disables retries.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy returns three attempts with exponential backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
	}
}

// PipelineSettings configures one pipeline run.
type PipelineSettings struct {
	// Roots are source root names, resolved to ids at enumeration time.
	Roots []string

	// Platform is written to every FileRecord.
	Platform string

	// SupportedTypes is the content-type allow-list.
	SupportedTypes []string

	// MaxFileSize is the gatekeeper size threshold in bytes.
	MaxFileSize int64

	// AnalysisTimeout is the hard deadline for one analyzer call.
	AnalysisTimeout time.Duration

	ChunkSize    int
	ChunkOverlap int

	// MaxImages caps images uploaded per document.
	MaxImages int

	// Prompt is passed to the analyzer.
	Prompt string

	// WorkDir is the parent of each run's transient directory.
	// Empty means the system temp directory.
	WorkDir string

	Retry RetryPolicy
}

// DefaultPipelineSettings returns settings with every default applied.
func DefaultPipelineSettings() PipelineSettings {
	return PipelineSettings{
		Platform:        PlatformGoogleDrive,
		SupportedTypes:  DefaultSupportedTypes(),
		MaxFileSize:     DefaultMaxFileSize,
		AnalysisTimeout: DefaultAnalysisTimeout,
		ChunkSize:       DefaultChunkSize,
		ChunkOverlap:    DefaultChunkOverlap,
		MaxImages:       DefaultMaxImages,
		Prompt:          DefaultPrompt,
		Retry:           DefaultRetryPolicy(),
	}
}

// Validate checks the settings are usable.
func (s *PipelineSettings) Validate() error {
	switch {
	case len(s.Roots) == 0:
		return fmt.Errorf("%w: no source roots configured", ErrInvalidInput)
	case len(s.SupportedTypes) == 0:
		return fmt.Errorf("%w: no supported types configured", ErrInvalidInput)
	case s.MaxFileSize <= 0:
		return fmt.Errorf("%w: max file size must be positive", ErrInvalidInput)
	case s.AnalysisTimeout <= 0:
		return fmt.Errorf("%w: analysis timeout must be positive", ErrInvalidInput)
	case s.ChunkSize <= 0:
		return fmt.Errorf("%w: chunk size must be positive", ErrInvalidInput)
	case s.ChunkOverlap < 0 || s.ChunkOverlap >= s.ChunkSize:
		return fmt.Errorf("%w: chunk overlap must be in [0, chunk size)", ErrInvalidInput)
	case s.MaxImages < 0:
		return fmt.Errorf("%w: max images must not be negative", ErrInvalidInput)
	case s.Retry.MaxAttempts < 1:
		return fmt.Errorf("%w: retry attempts must be at least 1", ErrInvalidInput)
	}
	return nil
}
