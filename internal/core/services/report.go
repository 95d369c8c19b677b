package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/custodia-labs/driveindex/internal/core/domain"
	"github.com/custodia-labs/driveindex/internal/core/ports/driven"
	"github.com/custodia-labs/driveindex/internal/core/ports/driving"
	"github.com/custodia-labs/driveindex/internal/logger"
)

// Ensure Reporter implements the interface.
var _ driving.Reporter = (*Reporter)(nil)

// Reporter builds diagnostic views of the index.
type Reporter struct {
	settings   domain.PipelineSettings
	source     driven.DocumentSource
	metadata   driven.MetadataStore
	enumerator *SourceEnumerator
	gatekeeper *Gatekeeper
}

// NewReporter creates a reporter.
func NewReporter(settings domain.PipelineSettings, source driven.DocumentSource, metadata driven.MetadataStore) *Reporter {
	return &Reporter{
		settings:   settings,
		source:     source,
		metadata:   metadata,
		enumerator: NewSourceEnumerator(source, settings.Retry),
		gatekeeper: NewGatekeeper(settings.SupportedTypes, settings.MaxFileSize),
	}
}

// Unprocessed merges rows with processed_at NULL and supported files over
// the size limit, keyed by file id and sorted by name.
func (r *Reporter) Unprocessed(ctx context.Context) ([]domain.UnprocessedFile, error) {
	pending, err := r.metadata.ListUnprocessed(ctx)
	if err != nil {
		return nil, fmt.Errorf("list unprocessed: %w", err)
	}

	byID := make(map[string]domain.UnprocessedFile, len(pending))
	for i := range pending {
		byID[pending[i].FileID] = domain.UnprocessedFile{
			FileID:       pending[i].FileID,
			FileName:     pending[i].FileName,
			Reason:       domain.ReasonPending,
			LastModified: pending[i].LastModified,
		}
	}

	enum := r.enumerator.Enumerate(ctx, r.settings.Roots)
	for i := range enum.Entries {
		entry := &enum.Entries[i]
		decision := r.gatekeeper.Check(entry)
		if !decision.Supported || decision.WithinSizeLimit {
			continue
		}
		byID[entry.ID] = domain.UnprocessedFile{
			FileID:       entry.ID,
			FileName:     domain.SanitizeFileName(entry.Name),
			Reason:       domain.ReasonSizeLimit,
			Size:         entry.Size,
			LastModified: entry.ModifiedTime.UTC(),
		}
	}

	files := make([]domain.UnprocessedFile, 0, len(byID))
	for _, f := range byID {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].FileName != files[j].FileName {
			return files[i].FileName < files[j].FileName
		}
		return files[i].FileID < files[j].FileID
	})

	if !enum.Complete() {
		logger.Warn("Report may be incomplete: %d roots or branches failed to list", len(enum.Failures))
	}
	return files, nil
}

// Roots lists every root visible to the source credentials.
func (r *Reporter) Roots(ctx context.Context) ([]domain.SourceRoot, error) {
	roots, err := r.source.ListRoots(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roots: %w", err)
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].Name < roots[j].Name })
	return roots, nil
}
