package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/custodia-labs/driveindex/internal/core/domain"
	"github.com/custodia-labs/driveindex/internal/core/ports/driven"
	"github.com/custodia-labs/driveindex/internal/logger"
)

// PurgeResult describes a full teardown of one file's index state.
type PurgeResult struct {
	Records int
	Blobs   BlobDeleteResult
}

// IndexWriter writes embedding records with replace semantics.
// Callers must not write the same file_id concurrently.
type IndexWriter struct {
	index    driven.VectorIndex
	embedder driven.EmbeddingService
	blobs    *BlobManager
}

// NewIndexWriter creates an index writer. embedder may be nil, in which
// case records are stored without vectors.
func NewIndexWriter(index driven.VectorIndex, embedder driven.EmbeddingService, blobs *BlobManager) *IndexWriter {
	if embedder == nil {
		logger.Warn("No embedding service configured, records will be stored without vectors")
	}
	return &IndexWriter{index: index, embedder: embedder, blobs: blobs}
}

// Purge deletes every record for fileID and, best effort, every image
// those records referenced. Image paths are collected before deletion.
func (w *IndexWriter) Purge(ctx context.Context, fileID string) (*PurgeResult, error) {
	existing, err := w.index.SelectByFileID(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("%w: select records for %s: %w", domain.ErrIndexWrite, fileID, err)
	}
	paths := domain.ImagePaths(existing)

	removed, err := w.index.DeleteByFileID(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("%w: delete records for %s: %w", domain.ErrIndexWrite, fileID, err)
	}

	result := &PurgeResult{Records: removed}
	result.Blobs = w.blobs.DeleteURLs(ctx, paths)
	return result, nil
}

// Replace deletes every record for fileID, then inserts records.
// Images referenced by the old records but not the new ones are deleted.
func (w *IndexWriter) Replace(ctx context.Context, fileID string, records []domain.EmbeddingRecord) error {
	if err := domain.ValidateRecords(fileID, records); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrIndexWrite, err)
	}

	if err := w.embed(ctx, records); err != nil {
		return fmt.Errorf("%w: embed %s: %w", domain.ErrIndexWrite, fileID, err)
	}

	existing, err := w.index.SelectByFileID(ctx, fileID)
	if err != nil {
		return fmt.Errorf("%w: select records for %s: %w", domain.ErrIndexWrite, fileID, err)
	}

	if _, err := w.index.DeleteByFileID(ctx, fileID); err != nil {
		return fmt.Errorf("%w: delete records for %s: %w", domain.ErrIndexWrite, fileID, err)
	}

	if err := w.index.Insert(ctx, records); err != nil {
		return fmt.Errorf("%w: insert records for %s: %w", domain.ErrIndexWrite, fileID, err)
	}

	if orphaned := orphanedPaths(existing, records); len(orphaned) > 0 {
		w.blobs.DeleteURLs(ctx, orphaned)
	}

	logger.Debug("Wrote %d records for %s", len(records), fileID)
	return nil
}

// embed fills ID and Embedding on every record.
func (w *IndexWriter) embed(ctx context.Context, records []domain.EmbeddingRecord) error {
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = uuid.New().String()
		}
	}
	if w.embedder == nil {
		return nil
	}

	texts := make([]string, len(records))
	for i := range records {
		texts[i] = records[i].Content
	}

	vectors, err := w.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(records) {
		return fmt.Errorf("embedding service returned %d vectors for %d texts", len(vectors), len(records))
	}
	for i := range records {
		records[i].Embedding = vectors[i]
	}
	return nil
}

func orphanedPaths(old, replacement []domain.EmbeddingRecord) []string {
	keep := make(map[string]bool)
	for _, p := range domain.ImagePaths(replacement) {
		keep[p] = true
	}
	var orphaned []string
	for _, p := range domain.ImagePaths(old) {
		if !keep[p] {
			orphaned = append(orphaned, p)
		}
	}
	return orphaned
}
