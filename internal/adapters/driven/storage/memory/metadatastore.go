package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/driveindex/internal/core/domain"
	"github.com/custodia-labs/driveindex/internal/core/ports/driven"
)

// Ensure MetadataStore implements the interface.
var _ driven.MetadataStore = (*MetadataStore)(nil)

// MetadataStore is an in-memory implementation of driven.MetadataStore.
type MetadataStore struct {
	mu      sync.RWMutex
	records map[string]domain.FileRecord
}

// NewMetadataStore creates a new in-memory metadata store.
func NewMetadataStore() *MetadataStore {
	return &MetadataStore{
		records: make(map[string]domain.FileRecord),
	}
}

// Ping always succeeds.
func (s *MetadataStore) Ping(_ context.Context) error {
	return nil
}

// Upsert stores a record with processed_at cleared.
func (s *MetadataStore) Upsert(_ context.Context, record *domain.FileRecord) error {
	if record == nil || record.FileID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := *record
	r.LastModified = r.LastModified.UTC()
	r.ProcessedAt = nil
	s.records[r.FileID] = r
	return nil
}

// MarkProcessed sets processed_at.
func (s *MetadataStore) MarkProcessed(_ context.Context, fileID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[fileID]
	if !ok {
		return domain.ErrNotFound
	}
	utc := at.UTC()
	r.ProcessedAt = &utc
	s.records[fileID] = r
	return nil
}

// ListProcessed returns processed_at for every processed record.
func (s *MetadataStore) ListProcessed(_ context.Context) (map[string]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := make(map[string]time.Time)
	for id, r := range s.records {
		if r.ProcessedAt != nil {
			history[id] = *r.ProcessedAt
		}
	}
	return history, nil
}

// ListUnprocessed returns records with no processed_at, sorted by name.
func (s *MetadataStore) ListUnprocessed(_ context.Context) ([]domain.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.FileRecord
	for _, r := range s.records {
		if r.ProcessedAt == nil {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FileName < out[j].FileName })
	return out, nil
}

// ListIDs returns every file id, sorted.
func (s *MetadataStore) ListIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Get returns a copy of one record.
func (s *MetadataStore) Get(_ context.Context, fileID string) (*domain.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[fileID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if r.ProcessedAt != nil {
		at := *r.ProcessedAt
		r.ProcessedAt = &at
	}
	return &r, nil
}

// Delete removes a record.
func (s *MetadataStore) Delete(_ context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, fileID)
	return nil
}

// Close is a no-op.
func (s *MetadataStore) Close() error {
	return nil
}

// Seed stores a record as-is, including processed_at. Intended for tests.
func (s *MetadataStore) Seed(record domain.FileRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.FileID] = record
}
