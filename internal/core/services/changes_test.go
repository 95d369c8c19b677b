package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/driveindex/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/driveindex/internal/core/domain"
)

func TestClassifyChange(t *testing.T) {
	est := time.FixedZone("EST", -5*60*60)
	history := map[string]time.Time{"known": t0}

	tests := []struct {
		name     string
		entry    domain.SourceEntry
		expected ChangeKind
	}{
		{"not in history", domain.SourceEntry{ID: "new", ModifiedTime: t0}, ChangeNew},
		{"newer", domain.SourceEntry{ID: "known", ModifiedTime: t0.Add(time.Second)}, ChangeUpdated},
		{"equal is unchanged", domain.SourceEntry{ID: "known", ModifiedTime: t0}, ChangeUnchanged},
		{"older", domain.SourceEntry{ID: "known", ModifiedTime: t0.Add(-time.Hour)}, ChangeUnchanged},
		{"equal instant in another zone", domain.SourceEntry{ID: "known", ModifiedTime: t0.In(est)}, ChangeUnchanged},
		{"newer instant in another zone", domain.SourceEntry{ID: "known", ModifiedTime: t0.Add(time.Minute).In(est)}, ChangeUpdated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyChange(&tt.entry, history))
		})
	}
}

func TestDetectChanges(t *testing.T) {
	history := map[string]time.Time{"a": t0, "b": t0}
	entries := []domain.SourceEntry{
		{ID: "a", ModifiedTime: t0},
		{ID: "b", ModifiedTime: t0.Add(time.Hour)},
		{ID: "c", ModifiedTime: t0},
	}

	changed, unchanged := DetectChanges(entries, history)

	assert.Equal(t, []string{"b", "c"}, entryIDs(changed))
	assert.Equal(t, 1, unchanged)
}

func TestReadHistory_OnlyProcessedInUTC(t *testing.T) {
	store := memory.NewMetadataStore()
	local := t0.In(time.FixedZone("CET", 3600))
	store.Seed(domain.FileRecord{FileID: "done", ProcessedAt: &local})
	store.Seed(domain.FileRecord{FileID: "pending"})

	history, err := ReadHistory(context.Background(), store)
	require.NoError(t, err)

	require.Len(t, history, 1)
	assert.Equal(t, time.UTC, history["done"].Location())
	assert.True(t, history["done"].Equal(t0))
}
