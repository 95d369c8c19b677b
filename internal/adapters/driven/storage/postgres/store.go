package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/custodia-labs/driveindex/internal/core/ports/driven"
)

//go:embed schema.sql
var schema string

// Store is a PostgreSQL connection pool shared by the metadata store and
// every vector index collection.
type Store struct {
	db *sql.DB
}

// NewStore connects to databaseURL and ensures the schema exists.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// a run is sequential, a small pool is enough
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// MetadataStore returns the file_metadata store.
func (s *Store) MetadataStore() driven.MetadataStore {
	return &metadataStore{db: s.db}
}

// VectorIndex returns the index for collection, creating the collection
// row if it does not exist.
func (s *Store) VectorIndex(ctx context.Context, collection string) (driven.VectorIndex, error) {
	id, err := ensureCollection(ctx, s.db, collection)
	if err != nil {
		return nil, err
	}
	return &vectorIndex{db: s.db, collectionID: id}, nil
}
