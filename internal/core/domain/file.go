package domain

import (
	"strings"
	"time"
)

// PlatformGoogleDrive is the platform tag written to metadata rows.
const PlatformGoogleDrive = "Google Drive"

// MIME types used by the default allow-list.
const (
	MimeTypePDF       = "application/pdf"
	MimeTypeDOCX      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeTypeXLSX      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimeTypeGoogleDoc = "application/vnd.google-apps.document"
)

// FileRecord is the metadata row for a source file.
type FileRecord struct {
	// FileID is the stable source identifier and the join key
	// across metadata, vector index and blob storage.
	FileID string

	// FileName is the sanitised display name.
	FileName string

	// Platform tags the source system.
	Platform string

	// LastModified is the source-reported modification time (UTC).
	LastModified time.Time

	// ProcessedAt is nil while the file is not represented in the index.
	ProcessedAt *time.Time
}

// IsProcessed reports whether the file is currently represented in the index.
func (r *FileRecord) IsProcessed() bool {
	return r.ProcessedAt != nil
}

// SourceEntry is one non-folder file reported by the document source.
type SourceEntry struct {
	ID           string
	Name         string
	MimeType     string
	ModifiedTime time.Time

	// Size is nil for native documents that have no byte size until
	// exported. A missing size never excludes a file.
	Size *int64

	// Root is the configured root name the entry was found under.
	Root string
}

// SanitizeFileName replaces path separators so a source name can be
// used as a single local path element.
func SanitizeFileName(name string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(name)
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 {
	return &v
}

// SourceRoot is a top-level container visible to the source credentials.
type SourceRoot struct {
	ID   string
	Name string
}
