package drive

import "github.com/custodia-labs/driveindex/internal/core/domain"

// Google Workspace MIME types.
const (
	MimeTypeGoogleDoc    = domain.MimeTypeGoogleDoc
	MimeTypeGoogleSheet  = "application/vnd.google-apps.spreadsheet"
	MimeTypeGoogleSlides = "application/vnd.google-apps.presentation"
	MimeTypeFolder       = "application/vnd.google-apps.folder"
)

// exportFormats maps native documents to the format they are downloaded as.
var exportFormats = map[string]string{
	MimeTypeGoogleDoc:    domain.MimeTypePDF,
	MimeTypeGoogleSlides: domain.MimeTypePDF,
	MimeTypeGoogleSheet:  domain.MimeTypeXLSX,
}

// ExportFormat returns the export MIME type for a native document.
// ok is false for files that download as-is.
func ExportFormat(mimeType string) (string, bool) {
	f, ok := exportFormats[mimeType]
	return f, ok
}
