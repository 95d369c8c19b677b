package domain

import "time"

// Reasons reported for files missing from the index.
const (
	ReasonPending = "pending processing"
)

// UnprocessedFile is a supported file that is not currently indexed.
type UnprocessedFile struct {
	FileID       string
	FileName     string
	Reason       string
	Size         *int64
	LastModified time.Time
}
