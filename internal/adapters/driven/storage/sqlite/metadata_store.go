package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/driveindex/internal/core/domain"
	"github.com/custodia-labs/driveindex/internal/core/ports/driven"
)

// metadataStore implements driven.MetadataStore over file_metadata.
type metadataStore struct {
	store *Store
}

var _ driven.MetadataStore = (*metadataStore)(nil)

// Ping verifies the database answers queries.
func (s *metadataStore) Ping(ctx context.Context) error {
	if err := s.store.db.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}

// Upsert stores or updates a record. processed_at is always cleared.
func (s *metadataStore) Upsert(ctx context.Context, record *domain.FileRecord) error {
	if record == nil || record.FileID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO file_metadata (file_id, file_name, platform, last_modified, processed_at)
		VALUES (?, ?, ?, ?, NULL)
		ON CONFLICT(file_id) DO UPDATE SET
			file_name = excluded.file_name,
			platform = excluded.platform,
			last_modified = excluded.last_modified,
			processed_at = NULL
	`, record.FileID, record.FileName, record.Platform, formatTimestamp(record.LastModified))
	if err != nil {
		return fmt.Errorf("saving file metadata: %w", err)
	}
	return nil
}

// MarkProcessed sets processed_at for an existing record.
func (s *metadataStore) MarkProcessed(ctx context.Context, fileID string, at time.Time) error {
	res, err := s.store.db.ExecContext(ctx,
		"UPDATE file_metadata SET processed_at = ? WHERE file_id = ?",
		formatTimestamp(at), fileID)
	if err != nil {
		return fmt.Errorf("marking file processed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("marking file processed: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListProcessed returns processed_at keyed by file_id.
func (s *metadataStore) ListProcessed(ctx context.Context) (map[string]time.Time, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT file_id, processed_at FROM file_metadata WHERE processed_at IS NOT NULL")
	if err != nil {
		return nil, fmt.Errorf("querying processed files: %w", err)
	}
	defer rows.Close()

	history := make(map[string]time.Time)
	for rows.Next() {
		var id, processedAt string
		if err := rows.Scan(&id, &processedAt); err != nil {
			return nil, fmt.Errorf("scanning processed file: %w", err)
		}
		t, err := parseTimestamp(processedAt)
		if err != nil {
			return nil, err
		}
		history[id] = t
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating processed files: %w", err)
	}
	return history, nil
}

// ListUnprocessed returns rows with processed_at NULL, sorted by file name.
func (s *metadataStore) ListUnprocessed(ctx context.Context) ([]domain.FileRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT file_id, file_name, platform, last_modified, processed_at
		FROM file_metadata WHERE processed_at IS NULL
		ORDER BY file_name, file_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying unprocessed files: %w", err)
	}
	defer rows.Close()

	var records []domain.FileRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		record, err := scanFileRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating unprocessed files: %w", err)
	}
	return records, nil
}

// ListIDs returns every file_id.
func (s *metadataStore) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, "SELECT file_id FROM file_metadata ORDER BY file_id")
	if err != nil {
		return nil, fmt.Errorf("querying file ids: %w", err)
	}
	defer rows.Close()

	var ids []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning file id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating file ids: %w", err)
	}
	return ids, nil
}

// Get retrieves one record.
func (s *metadataStore) Get(ctx context.Context, fileID string) (*domain.FileRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT file_id, file_name, platform, last_modified, processed_at
		FROM file_metadata WHERE file_id = ?
	`, fileID)

	record, err := scanFileRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return record, err
}

// Delete removes a record.
func (s *metadataStore) Delete(ctx context.Context, fileID string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM file_metadata WHERE file_id = ?", fileID)
	if err != nil {
		return fmt.Errorf("deleting file metadata: %w", err)
	}
	return nil
}

// Close is a no-op. The owning Store closes the connection.
func (s *metadataStore) Close() error {
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFileRecord(row rowScanner) (*domain.FileRecord, error) {
	var record domain.FileRecord
	var lastModified string
	var processedAt sql.NullString

	if err := row.Scan(&record.FileID, &record.FileName, &record.Platform,
		&lastModified, &processedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning file metadata: %w", err)
	}

	t, err := parseTimestamp(lastModified)
	if err != nil {
		return nil, err
	}
	record.LastModified = t

	if processedAt.Valid {
		p, err := parseTimestamp(processedAt.String)
		if err != nil {
			return nil, err
		}
		record.ProcessedAt = &p
	}

	return &record, nil
}
