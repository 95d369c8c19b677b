package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/driveindex/internal/core/domain"
)

// setupTestStore connects to DRIVEINDEX_TEST_DATABASE_URL or skips.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("DRIVEINDEX_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("DRIVEINDEX_TEST_DATABASE_URL not set")
	}

	store, err := NewStore(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store
}

func TestEmbeddingValue(t *testing.T) {
	assert.Nil(t, embeddingValue(nil))

	v, ok := embeddingValue([]float32{1, 2}).(pgvector.Vector)
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2}, v.Slice())
}

func TestAsUTC(t *testing.T) {
	zone := time.FixedZone("", 0)
	in := time.Date(2024, 5, 1, 9, 0, 0, 5000, zone)
	out := asUTC(in)
	assert.Equal(t, time.UTC, out.Location())
	assert.True(t, out.Equal(in))
}

func TestMetadataStore_Lifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	meta := store.MetadataStore()

	id := "test-" + uuid.NewString()
	t.Cleanup(func() { _ = meta.Delete(ctx, id) })

	modified := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, meta.Upsert(ctx, &domain.FileRecord{
		FileID: id, FileName: "policy.pdf", Platform: domain.PlatformGoogleDrive, LastModified: modified,
	}))

	processed := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, meta.MarkProcessed(ctx, id, processed))

	history, err := meta.ListProcessed(ctx)
	require.NoError(t, err)
	assert.True(t, history[id].Equal(processed))

	got, err := meta.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.LastModified.Equal(modified))

	require.NoError(t, meta.Delete(ctx, id))
	_, err = meta.Get(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVectorIndex_ReplaceCycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	index, err := store.VectorIndex(ctx, "driveindex_test")
	require.NoError(t, err)

	fileID := "test-" + uuid.NewString()
	total := 2
	one, two := 1, 2
	at := time.Now().UTC()
	records := []domain.EmbeddingRecord{
		{ID: uuid.NewString(), Content: "b", Embedding: []float32{0, 1},
			Metadata: domain.EmbeddingMetadata{FileID: fileID, ChunkNumber: &two, TotalChunks: &total, ProcessedAt: at}},
		{ID: uuid.NewString(), Content: "a", Embedding: []float32{1, 0},
			Metadata: domain.EmbeddingMetadata{FileID: fileID, ChunkNumber: &one, TotalChunks: &total, ProcessedAt: at}},
	}
	require.NoError(t, index.Insert(ctx, records))

	got, err := index.SelectByFileID(ctx, fileID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Content)
	assert.Equal(t, []float32{1, 0}, got[0].Embedding)

	removed, err := index.DeleteByFileID(ctx, fileID)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
}

func TestEnsureCollection_TableWithoutUniqueName(t *testing.T) {
	dsn := os.Getenv("DRIVEINDEX_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("DRIVEINDEX_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	// One connection so the temp table shadows the real one for every query.
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { assert.NoError(t, db.Close()) })

	_, err = db.ExecContext(ctx, `
		CREATE TEMP TABLE langchain_pg_collection (
			uuid UUID PRIMARY KEY,
			name VARCHAR,
			cmetadata JSON
		)`)
	require.NoError(t, err)

	first, err := ensureCollection(ctx, db, "docs")
	require.NoError(t, err)
	second, err := ensureCollection(ctx, db, "docs")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var rows int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT count(*) FROM langchain_pg_collection WHERE name = 'docs'`).Scan(&rows))
	assert.Equal(t, 1, rows)

	other, err := ensureCollection(ctx, db, "other")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}
