package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/driveindex/internal/core/domain"
	"github.com/custodia-labs/driveindex/internal/core/ports/driven"
)

// vectorIndex implements driven.VectorIndex over the embeddings table.
// Vectors are stored as little-endian float32 blobs.
type vectorIndex struct {
	store      *Store
	collection string
}

var _ driven.VectorIndex = (*vectorIndex)(nil)

// Insert adds records in one transaction.
func (v *vectorIndex) Insert(ctx context.Context, records []domain.EmbeddingRecord) error {
	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO embeddings (id, collection, file_id, position, content, metadata, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		r := &records[i]
		metadataJSON, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling record metadata: %w", err)
		}

		if _, err := stmt.ExecContext(ctx, r.ID, v.collection, r.Metadata.FileID, i,
			r.Content, string(metadataJSON), float32SliceToBytes(r.Embedding)); err != nil {
			return fmt.Errorf("saving record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// SelectByFileID returns a file's records in insertion order.
func (v *vectorIndex) SelectByFileID(ctx context.Context, fileID string) ([]domain.EmbeddingRecord, error) {
	rows, err := v.store.db.QueryContext(ctx, `
		SELECT id, content, metadata, embedding
		FROM embeddings WHERE collection = ? AND file_id = ?
		ORDER BY position
	`, v.collection, fileID)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []domain.EmbeddingRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		var r domain.EmbeddingRecord
		var metadataJSON string
		var embeddingBlob []byte

		if err := rows.Scan(&r.ID, &r.Content, &metadataJSON, &embeddingBlob); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		if err := json.Unmarshal([]byte(metadataJSON), &r.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling record metadata: %w", err)
		}
		r.Embedding = bytesToFloat32Slice(embeddingBlob)
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return records, nil
}

// DeleteByFileID removes a file's records.
func (v *vectorIndex) DeleteByFileID(ctx context.Context, fileID string) (int, error) {
	res, err := v.store.db.ExecContext(ctx,
		"DELETE FROM embeddings WHERE collection = ? AND file_id = ?", v.collection, fileID)
	if err != nil {
		return 0, fmt.Errorf("deleting records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deleting records: %w", err)
	}
	return int(n), nil
}

// Close is a no-op. The owning Store closes the connection.
func (v *vectorIndex) Close() error {
	return nil
}
