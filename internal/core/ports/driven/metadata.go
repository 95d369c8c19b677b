package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/driveindex/internal/core/domain"
)

// MetadataStore persists FileRecords in the file_metadata table.
type MetadataStore interface {
	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Upsert inserts or updates a record by file_id.
	// processed_at is always written as NULL.
	Upsert(ctx context.Context, record *domain.FileRecord) error

	// MarkProcessed sets processed_at for a file.
	// Returns domain.ErrNotFound if the file has no record.
	MarkProcessed(ctx context.Context, fileID string, at time.Time) error

	// ListProcessed returns file_id -> processed_at for rows where it is not NULL.
	ListProcessed(ctx context.Context) (map[string]time.Time, error)

	// ListUnprocessed returns rows where processed_at is NULL.
	ListUnprocessed(ctx context.Context) ([]domain.FileRecord, error)

	// ListIDs returns every file_id in the table.
	ListIDs(ctx context.Context) ([]string, error)

	// Get returns one record or domain.ErrNotFound.
	Get(ctx context.Context, fileID string) (*domain.FileRecord, error)

	// Delete removes a record. Deleting a missing record is not an error.
	Delete(ctx context.Context, fileID string) error

	// Close releases resources.
	Close() error
}
