package domain

import (
	"fmt"
	"time"
)

// EmbeddingRecord is one row in the vector index.
type EmbeddingRecord struct {
	// ID uniquely identifies the row within its collection.
	ID string

	// Content is the text passed to the embedding function.
	Content string

	// Metadata links the row back to its source file.
	Metadata EmbeddingMetadata

	// Embedding is the vector for Content. Filled by the index writer.
	Embedding []float32
}

// EmbeddingMetadata is the typed metadata carried by each EmbeddingRecord.
// Chunk fields are set only on chunk records, ImageData only on summary records.
type EmbeddingMetadata struct {
	FileID        string      `json:"file_id"`
	FileName      string      `json:"file_name"`
	SummarySource bool        `json:"summary_source"`
	ChunkNumber   *int        `json:"chunk_number,omitempty"`
	TotalChunks   *int        `json:"total_chunks,omitempty"`
	ImageData     []ImageData `json:"image_data,omitempty"`
	ProcessedAt   time.Time   `json:"processed_at"`
}

// ImageData references an extracted image stored in blob storage.
type ImageData struct {
	ImagePath   string  `json:"image_path"`
	Description *string `json:"description,omitempty"`
}

// ImagePaths returns every image URL referenced by the records, in order.
func ImagePaths(records []EmbeddingRecord) []string {
	var paths []string
	for i := range records {
		for _, img := range records[i].Metadata.ImageData {
			if img.ImagePath != "" {
				paths = append(paths, img.ImagePath)
			}
		}
	}
	return paths
}

// ValidateRecords checks that records form one valid processing pass for fileID.
//
// Either exactly one summary record, or N chunk records numbered 1..N with
// total_chunks=N on every record. All records share one processed_at.
func ValidateRecords(fileID string, records []EmbeddingRecord) error {
	if fileID == "" {
		return fmt.Errorf("%w: empty file id", ErrInvalidInput)
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: no records for %s", ErrInvalidInput, fileID)
	}

	processedAt := records[0].Metadata.ProcessedAt
	if processedAt.IsZero() {
		return fmt.Errorf("%w: missing processed_at", ErrInvalidInput)
	}

	summary := records[0].Metadata.SummarySource
	seen := make(map[int]bool, len(records))

	for i := range records {
		meta := &records[i].Metadata
		if meta.FileID != fileID {
			return fmt.Errorf("%w: record %d belongs to %q", ErrInvalidInput, i, meta.FileID)
		}
		if !meta.ProcessedAt.Equal(processedAt) {
			return fmt.Errorf("%w: record %d has a different processed_at", ErrInvalidInput, i)
		}
		if meta.SummarySource != summary {
			return fmt.Errorf("%w: summary and chunk records mixed", ErrInvalidInput)
		}
		if records[i].Content == "" {
			return fmt.Errorf("%w: record %d has empty content", ErrInvalidInput, i)
		}

		if summary {
			if meta.ChunkNumber != nil || meta.TotalChunks != nil {
				return fmt.Errorf("%w: summary record carries chunk fields", ErrInvalidInput)
			}
			continue
		}

		if meta.ChunkNumber == nil || meta.TotalChunks == nil {
			return fmt.Errorf("%w: chunk record %d missing chunk fields", ErrInvalidInput, i)
		}
		if meta.ImageData != nil {
			return fmt.Errorf("%w: chunk record %d carries image data", ErrInvalidInput, i)
		}
		if *meta.TotalChunks != len(records) {
			return fmt.Errorf("%w: total_chunks %d, have %d records",
				ErrInvalidInput, *meta.TotalChunks, len(records))
		}
		n := *meta.ChunkNumber
		if n < 1 || n > len(records) || seen[n] {
			return fmt.Errorf("%w: chunk number %d out of range or repeated", ErrInvalidInput, n)
		}
		seen[n] = true
	}

	if summary && len(records) != 1 {
		return fmt.Errorf("%w: %d summary records, want 1", ErrInvalidInput, len(records))
	}

	return nil
}
