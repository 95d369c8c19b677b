package driven

import (
	"context"

	"github.com/custodia-labs/driveindex/internal/core/domain"
)

// VectorIndex is a named collection of embedding records.
// The collection is fixed when the index is constructed.
type VectorIndex interface {
	// Insert adds records to the collection.
	Insert(ctx context.Context, records []domain.EmbeddingRecord) error

	// SelectByFileID returns every record whose metadata file_id matches.
	SelectByFileID(ctx context.Context, fileID string) ([]domain.EmbeddingRecord, error)

	// DeleteByFileID removes every record whose metadata file_id matches
	// and returns how many were removed.
	DeleteByFileID(ctx context.Context, fileID string) (int, error)

	// Close releases resources.
	Close() error
}
