package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/driveindex/internal/core/domain"
	"github.com/custodia-labs/driveindex/internal/core/ports/driven"
)

// ChangeKind classifies an eligible entry against history.
type ChangeKind string

const (
	ChangeNew       ChangeKind = "new"
	ChangeUpdated   ChangeKind = "updated"
	ChangeUnchanged ChangeKind = "unchanged"
)

// ReadHistory loads the file_id -> processed_at snapshot for one run.
// Timestamps are normalised to UTC.
func ReadHistory(ctx context.Context, store driven.MetadataStore) (map[string]time.Time, error) {
	history, err := store.ListProcessed(ctx)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	for id, at := range history {
		history[id] = at.UTC()
	}
	return history, nil
}

// ClassifyChange compares one entry with the history snapshot.
// Only a strictly newer modification time counts as an update.
func ClassifyChange(entry *domain.SourceEntry, history map[string]time.Time) ChangeKind {
	processedAt, ok := history[entry.ID]
	if !ok {
		return ChangeNew
	}
	if entry.ModifiedTime.UTC().After(processedAt.UTC()) {
		return ChangeUpdated
	}
	return ChangeUnchanged
}

// DetectChanges returns the entries needing processing and the number unchanged.
func DetectChanges(entries []domain.SourceEntry, history map[string]time.Time) ([]domain.SourceEntry, int) {
	var (
		changed   []domain.SourceEntry
		unchanged int
	)
	for i := range entries {
		if ClassifyChange(&entries[i], history) == ChangeUnchanged {
			unchanged++
			continue
		}
		changed = append(changed, entries[i])
	}
	return changed, unchanged
}
