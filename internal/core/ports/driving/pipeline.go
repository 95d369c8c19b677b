package driving

import (
	"context"

	"github.com/custodia-labs/driveindex/internal/core/domain"
)

// Pipeline is the single idempotent entry point for one ingestion run.
// Callers must not invoke Run concurrently against the same collection.
type Pipeline interface {
	// Run reconciles deletions, then discovers and processes changed files.
	// The only returned error is a startup failure. Everything else is
	// reported per file in the summary.
	Run(ctx context.Context) (*domain.RunSummary, error)
}
