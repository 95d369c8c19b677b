package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/driveindex/internal/core/domain"
	"github.com/custodia-labs/driveindex/internal/core/ports/driven"
	"github.com/custodia-labs/driveindex/internal/logger"
)

// ReconcileResult summarises one deletion reconciliation pass.
type ReconcileResult struct {
	// Stale lists file ids found in metadata but not in the source.
	Stale []string

	// Deleted counts stale files removed from every store.
	Deleted int

	Blobs BlobDeleteResult

	// Failures holds per-file errors. Those files keep their metadata
	// row so the next run retries them.
	Failures []error
}

// DeletionReconciler removes files that the source no longer reports.
type DeletionReconciler struct {
	metadata driven.MetadataStore
	writer   *IndexWriter
}

// NewDeletionReconciler creates a reconciler.
func NewDeletionReconciler(metadata driven.MetadataStore, writer *IndexWriter) *DeletionReconciler {
	return &DeletionReconciler{metadata: metadata, writer: writer}
}

// StaleIDs returns metadata ids that are absent from currentIDs.
func StaleIDs(metadataIDs []string, currentIDs map[string]struct{}) []string {
	var stale []string
	for _, id := range metadataIDs {
		if _, ok := currentIDs[id]; !ok {
			stale = append(stale, id)
		}
	}
	return stale
}

// Reconcile tears down every stale file: embeddings first, then images best
// effort, then the metadata row. currentIDs must be the pre-gatekeeper id set.
// The returned error is only for failing to read metadata ids.
func (r *DeletionReconciler) Reconcile(ctx context.Context, currentIDs map[string]struct{}) (*ReconcileResult, error) {
	ids, err := r.metadata.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list metadata ids: %w", err)
	}

	result := &ReconcileResult{Stale: StaleIDs(ids, currentIDs)}
	if len(result.Stale) == 0 {
		logger.Debug("No stale files")
		return result, nil
	}

	for _, id := range result.Stale {
		if ctx.Err() != nil {
			result.Failures = append(result.Failures, ctx.Err())
			break
		}

		purge, err := r.writer.Purge(ctx, id)
		if err != nil {
			logger.Error("Failed to purge embeddings for removed file %s: %v", id, err)
			result.Failures = append(result.Failures, err)
			continue
		}
		result.Blobs.add(purge.Blobs)

		if err := r.metadata.Delete(ctx, id); err != nil {
			logger.Error("Failed to delete metadata for removed file %s: %v", id, err)
			result.Failures = append(result.Failures, fmt.Errorf("%w: delete metadata %s: %w", domain.ErrIndexWrite, id, err))
			continue
		}

		result.Deleted++
		logger.Info("Removed %s: %d records, %d images deleted, %d image deletions failed",
			id, purge.Records, purge.Blobs.Deleted, purge.Blobs.Failed)
	}

	return result, nil
}
