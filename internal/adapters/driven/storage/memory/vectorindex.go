package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/driveindex/internal/core/domain"
	"github.com/custodia-labs/driveindex/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is an in-memory implementation of driven.VectorIndex.
// Records are kept in insertion order.
type VectorIndex struct {
	mu      sync.RWMutex
	records []domain.EmbeddingRecord
}

// NewVectorIndex creates a new in-memory vector index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{}
}

// Insert appends records.
func (v *VectorIndex) Insert(_ context.Context, records []domain.EmbeddingRecord) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.records = append(v.records, records...)
	return nil
}

// SelectByFileID returns the records for a file.
func (v *VectorIndex) SelectByFileID(_ context.Context, fileID string) ([]domain.EmbeddingRecord, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var out []domain.EmbeddingRecord
	for i := range v.records {
		if v.records[i].Metadata.FileID == fileID {
			out = append(out, v.records[i])
		}
	}
	return out, nil
}

// DeleteByFileID removes the records for a file.
func (v *VectorIndex) DeleteByFileID(_ context.Context, fileID string) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	kept := v.records[:0]
	removed := 0
	for i := range v.records {
		if v.records[i].Metadata.FileID == fileID {
			removed++
			continue
		}
		kept = append(kept, v.records[i])
	}
	v.records = kept
	return removed, nil
}

// Len returns the total number of records.
func (v *VectorIndex) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.records)
}

// Close is a no-op.
func (v *VectorIndex) Close() error {
	return nil
}
