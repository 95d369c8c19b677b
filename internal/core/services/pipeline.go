package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/custodia-labs/driveindex/internal/core/domain"
	"github.com/custodia-labs/driveindex/internal/core/ports/driven"
	"github.com/custodia-labs/driveindex/internal/core/ports/driving"
	"github.com/custodia-labs/driveindex/internal/logger"
)

// Ensure Orchestrator implements the interface.
var _ driving.Pipeline = (*Orchestrator)(nil)

// Orchestrator sequences one ingestion run.
type Orchestrator struct {
	settings   domain.PipelineSettings
	metadata   driven.MetadataStore
	enumerator *SourceEnumerator
	gatekeeper *Gatekeeper
	reconciler *DeletionReconciler
	processor  *DocumentProcessor
}

// NewOrchestrator wires the pipeline components from their collaborators.
// embedder is optional.
func NewOrchestrator(
	settings domain.PipelineSettings,
	source driven.DocumentSource,
	metadata driven.MetadataStore,
	index driven.VectorIndex,
	blobStore driven.BlobStore,
	extractor driven.Extractor,
	analyzer driven.Analyzer,
	splitter driven.TextSplitter,
	embedder driven.EmbeddingService,
) *Orchestrator {
	blobs := NewBlobManager(blobStore)
	writer := NewIndexWriter(index, embedder, blobs)

	return &Orchestrator{
		settings:   settings,
		metadata:   metadata,
		enumerator: NewSourceEnumerator(source, settings.Retry),
		gatekeeper: NewGatekeeper(settings.SupportedTypes, settings.MaxFileSize),
		reconciler: NewDeletionReconciler(metadata, writer),
		processor:  NewDocumentProcessor(source, metadata, extractor, analyzer, splitter, writer, blobs, settings),
	}
}

// Run executes one full pass. Only a startup failure is returned as an
// error; every other problem is file-scoped and reported in the summary.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (o *Orchestrator) Run(ctx context.Context) (*domain.RunSummary, error) {
	summary := &domain.RunSummary{StartedAt: time.Now().UTC()}

	// 1. Establish the metadata store and take the history snapshot
	if err := o.metadata.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: metadata store unreachable: %w", domain.ErrStartup, err)
	}
	history, err := ReadHistory(ctx, o.metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStartup, err)
	}

	runDir, err := os.MkdirTemp(o.settings.WorkDir, "driveindex-run-*")
	if err != nil {
		return nil, fmt.Errorf("%w: create work dir: %w", domain.ErrStartup, err)
	}
	defer func() {
		if err := os.RemoveAll(runDir); err != nil {
			logger.Warn("Failed to remove work dir %s: %v", runDir, err)
		}
	}()

	logger.Info("Starting run over %d roots", len(o.settings.Roots))

	// 2. Enumerate every root once. The same snapshot drives reconciliation
	// and discovery.
	logger.Section("Enumeration")
	enum := o.enumerator.Enumerate(ctx, o.settings.Roots)
	summary.Enumerated = len(enum.Entries)
	summary.EnumerationFailures = len(enum.Failures)
	for _, err := range enum.Failures {
		summary.EnumerationErrors = append(summary.EnumerationErrors, err.Error())
	}

	// 3. Deletion reconciliation against the pre-gatekeeper id set
	logger.Section("Deletion reconciliation")
	if enum.Complete() {
		o.reconcile(ctx, enum, summary)
	} else {
		summary.ReconcileSkipped = true
		logger.Error("Skipping deletion reconciliation: %d roots or branches failed to list", len(enum.Failures))
		for _, msg := range summary.EnumerationErrors {
			logger.Error("  %s", msg)
		}
	}

	// 4. Gatekeep and detect changes against the shared snapshot
	logger.Section("Discovery")
	eligible, skipped := o.gatekeeper.Filter(enum.Entries)
	for i := range skipped {
		summary.Record(skipped[i])
	}
	toProcess, unchanged := DetectChanges(eligible, history)
	summary.Unchanged = unchanged
	logger.Info("Discovery: %d enumerated, %d skipped, %d unchanged, %d to process",
		len(enum.Entries), len(skipped), unchanged, len(toProcess))

	// 5. Process sequentially
	logger.Section("Processing")
	paths, err := domain.NewPathMap(nil)
	if err != nil {
		return nil, err
	}
	for i := range toProcess {
		if ctx.Err() != nil {
			logger.Warn("Run cancelled, %d files left unprocessed", len(toProcess)-i)
			break
		}

		entry := &toProcess[i]
		localPath := filepath.Join(runDir, entry.ID+"--"+domain.SanitizeFileName(entry.Name))
		if err := paths.Add(entry.ID, localPath); err != nil {
			summary.Record(domain.FileOutcome{
				FileID:   entry.ID,
				FileName: domain.SanitizeFileName(entry.Name),
				Status:   domain.StatusFailed,
				Reason:   err.Error(),
				Err:      err,
			})
			continue
		}

		summary.Record(o.processor.Process(ctx, entry, localPath))
	}

	// 6. Cleanup happens in the deferred RemoveAll
	logger.Section("Cleanup")
	summary.EndedAt = time.Now().UTC()
	logger.Info("Run complete in %s: %d processed, %d failed, %d timed out, %d skipped, %d removed",
		summary.Duration().Round(time.Millisecond), summary.Processed(), summary.Failed(),
		summary.TimedOut(), summary.Skipped(), summary.Deleted)

	return summary, nil
}

func (o *Orchestrator) reconcile(ctx context.Context, enum *Enumeration, summary *domain.RunSummary) {
	result, err := o.reconciler.Reconcile(ctx, enum.IDs())
	if err != nil {
		logger.Error("Deletion reconciliation failed: %v", err)
		return
	}
	summary.Deleted = result.Deleted
	summary.BlobsDeleted = result.Blobs.Deleted
	summary.BlobDeleteFailures = result.Blobs.Failed
	logger.Info("Reconciliation: %d stale, %d removed, %d images deleted, %d image deletions failed",
		len(result.Stale), result.Deleted, result.Blobs.Deleted, result.Blobs.Failed)
}
