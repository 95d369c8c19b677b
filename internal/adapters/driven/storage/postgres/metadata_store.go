package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/driveindex/internal/core/domain"
	"github.com/custodia-labs/driveindex/internal/core/ports/driven"
)

// metadataStore implements driven.MetadataStore. The timestamp columns
// have no time zone and hold UTC wall time.
type metadataStore struct {
	db *sql.DB
}

var _ driven.MetadataStore = (*metadataStore)(nil)

func (s *metadataStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

func (s *metadataStore) Upsert(ctx context.Context, record *domain.FileRecord) error {
	if record == nil || record.FileID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO file_metadata (file_id, file_name, platform, last_modified, processed_at)
		VALUES ($1, $2, $3, $4, NULL)
		ON CONFLICT (file_id) DO UPDATE SET
			file_name = EXCLUDED.file_name,
			platform = EXCLUDED.platform,
			last_modified = EXCLUDED.last_modified,
			processed_at = NULL`,
		record.FileID, record.FileName, record.Platform, record.LastModified.UTC())
	if err != nil {
		return fmt.Errorf("upsert file metadata: %w", err)
	}
	return nil
}

func (s *metadataStore) MarkProcessed(ctx context.Context, fileID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE file_metadata SET processed_at = $1 WHERE file_id = $2`, at.UTC(), fileID)
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *metadataStore) ListProcessed(ctx context.Context) (map[string]time.Time, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT file_id, processed_at FROM file_metadata WHERE processed_at IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("list processed: %w", err)
	}
	defer rows.Close()

	history := make(map[string]time.Time)
	for rows.Next() {
		var id string
		var at time.Time
		if err := rows.Scan(&id, &at); err != nil {
			return nil, fmt.Errorf("scan processed: %w", err)
		}
		history[id] = asUTC(at)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list processed: %w", err)
	}
	return history, nil
}

func (s *metadataStore) ListUnprocessed(ctx context.Context) ([]domain.FileRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT file_id, file_name, platform, last_modified, processed_at
		FROM file_metadata WHERE processed_at IS NULL
		ORDER BY file_name, file_id`)
	if err != nil {
		return nil, fmt.Errorf("list unprocessed: %w", err)
	}
	defer rows.Close()

	var records []domain.FileRecord
	for rows.Next() {
		record, err := scanFileRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list unprocessed: %w", err)
	}
	return records, nil
}

func (s *metadataStore) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT file_id FROM file_metadata ORDER BY file_id`)
	if err != nil {
		return nil, fmt.Errorf("list file ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan file id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list file ids: %w", err)
	}
	return ids, nil
}

func (s *metadataStore) Get(ctx context.Context, fileID string) (*domain.FileRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT file_id, file_name, platform, last_modified, processed_at
		FROM file_metadata WHERE file_id = $1`, fileID)

	record, err := scanFileRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return record, err
}

func (s *metadataStore) Delete(ctx context.Context, fileID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM file_metadata WHERE file_id = $1`, fileID); err != nil {
		return fmt.Errorf("delete file metadata: %w", err)
	}
	return nil
}

// Close is a no-op. The owning Store closes the pool.
func (s *metadataStore) Close() error {
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFileRecord(row rowScanner) (*domain.FileRecord, error) {
	var record domain.FileRecord
	var processedAt sql.NullTime

	err := row.Scan(&record.FileID, &record.FileName, &record.Platform, &record.LastModified, &processedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan file metadata: %w", err)
	}

	record.LastModified = asUTC(record.LastModified)
	if processedAt.Valid {
		t := asUTC(processedAt.Time)
		record.ProcessedAt = &t
	}
	return &record, nil
}

// asUTC reinterprets a TIMESTAMP value's wall clock as UTC.
func asUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
