package driving

import (
	"context"

	"github.com/custodia-labs/driveindex/internal/core/domain"
)

// Reporter answers diagnostic questions about the index and the source.
type Reporter interface {
	// Unprocessed lists supported files that are not currently indexed.
	Unprocessed(ctx context.Context) ([]domain.UnprocessedFile, error)

	// Roots lists every root visible to the source credentials.
	Roots(ctx context.Context) ([]domain.SourceRoot, error)
}
