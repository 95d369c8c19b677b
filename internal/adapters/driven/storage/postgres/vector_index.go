package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/driveindex/internal/core/domain"
	"github.com/custodia-labs/driveindex/internal/core/ports/driven"
)

// vectorIndex implements driven.VectorIndex over langchain_pg_embedding
// rows belonging to one collection.
type vectorIndex struct {
	db           *sql.DB
	collectionID uuid.UUID
}

var _ driven.VectorIndex = (*vectorIndex)(nil)

// ensureCollection returns the id of the named collection, creating it first
// if needed. Tables created by langchain have no unique constraint on name,
// so the lookup comes first and the insert is guarded by NOT EXISTS.
func ensureCollection(ctx context.Context, db *sql.DB, name string) (uuid.UUID, error) {
	id, err := findCollection(ctx, db, name)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("find collection %s: %w", name, err)
	}

	if _, err := db.ExecContext(ctx, `
		INSERT INTO langchain_pg_collection (uuid, name, cmetadata)
		SELECT $1, $2::varchar, NULL
		WHERE NOT EXISTS (SELECT 1 FROM langchain_pg_collection WHERE name = $2::varchar)`,
		uuid.New(), name); err != nil {
		return uuid.Nil, fmt.Errorf("create collection %s: %w", name, err)
	}

	id, err = findCollection(ctx, db, name)
	if err != nil {
		return uuid.Nil, fmt.Errorf("find collection %s: %w", name, err)
	}
	return id, nil
}

// findCollection picks one row deterministically when duplicate names
// exist.
func findCollection(ctx context.Context, db *sql.DB, name string) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.QueryRowContext(ctx,
		`SELECT uuid FROM langchain_pg_collection WHERE name = $1 ORDER BY uuid LIMIT 1`, name).Scan(&id)
	return id, err
}

func (v *vectorIndex) Insert(ctx context.Context, records []domain.EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO langchain_pg_embedding (id, collection_id, embedding, document, cmetadata)
		VALUES ($1, $2, $3, $4, $5)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		r := &records[i]
		metadataJSON, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, v.collectionID, embeddingValue(r.Embedding),
			r.Content, string(metadataJSON)); err != nil {
			return fmt.Errorf("insert embedding: %w", err)
		}
	}

	return tx.Commit()
}

// SelectByFileID returns records ordered by chunk number; summary records
// have none and sort first.
func (v *vectorIndex) SelectByFileID(ctx context.Context, fileID string) ([]domain.EmbeddingRecord, error) {
	rows, err := v.db.QueryContext(ctx, `
		SELECT id, document, cmetadata, embedding
		FROM langchain_pg_embedding
		WHERE collection_id = $1 AND cmetadata->>'file_id' = $2
		ORDER BY COALESCE((cmetadata->>'chunk_number')::int, 0), id`,
		v.collectionID, fileID)
	if err != nil {
		return nil, fmt.Errorf("select embeddings: %w", err)
	}
	defer rows.Close()

	var records []domain.EmbeddingRecord
	for rows.Next() {
		var r domain.EmbeddingRecord
		var document sql.NullString
		var metadataJSON []byte
		var embedding *pgvector.Vector

		if err := rows.Scan(&r.ID, &document, &metadataJSON, &embedding); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		r.Content = document.String
		if err := json.Unmarshal(metadataJSON, &r.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
		if embedding != nil {
			r.Embedding = embedding.Slice()
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select embeddings: %w", err)
	}
	return records, nil
}

func (v *vectorIndex) DeleteByFileID(ctx context.Context, fileID string) (int, error) {
	res, err := v.db.ExecContext(ctx, `
		DELETE FROM langchain_pg_embedding
		WHERE collection_id = $1 AND cmetadata->>'file_id' = $2`, v.collectionID, fileID)
	if err != nil {
		return 0, fmt.Errorf("delete embeddings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete embeddings: %w", err)
	}
	return int(n), nil
}

// Close is a no-op. The owning Store closes the pool.
func (v *vectorIndex) Close() error {
	return nil
}

// embeddingValue maps a missing vector to SQL NULL.
func embeddingValue(v []float32) any {
	if len(v) == 0 {
		return nil
	}
	return pgvector.NewVector(v)
}
