package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/driveindex/internal/core/domain"
)

func processOne(t *testing.T, env *testEnv, entry domain.SourceEntry) (domain.FileOutcome, string) {
	t.Helper()
	p := env.processor()
	p.now = func() time.Time { return t0.Add(time.Hour) }
	path := filepath.Join(t.TempDir(), entry.ID+"--"+entry.Name)
	return p.Process(context.Background(), &entry, path), path
}

func TestDocumentProcessor_TextOnly(t *testing.T) {
	env := newTestEnv(t.TempDir())
	entry := pdfEntry("pol", "policy.pdf", t0)
	env.source.addFile("root", entry, textOf(2500))

	outcome, path := processOne(t, env, entry)

	require.Equal(t, domain.StatusProcessed, outcome.Status, outcome.Reason)
	assert.Equal(t, domain.KindTextOnly, outcome.Kind)
	assert.Equal(t, 3, outcome.Records)

	records, err := env.index.SelectByFileID(context.Background(), "pol")
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, r := range records {
		assert.False(t, r.Metadata.SummarySource)
		assert.Equal(t, i+1, *r.Metadata.ChunkNumber)
		assert.Equal(t, 3, *r.Metadata.TotalChunks)
		assert.Equal(t, "policy.pdf", r.Metadata.FileName)
		assert.True(t, r.Metadata.ProcessedAt.Equal(t0.Add(time.Hour)))
	}

	rec, err := env.metadata.Get(context.Background(), "pol")
	require.NoError(t, err)
	require.NotNil(t, rec.ProcessedAt)
	assert.True(t, rec.ProcessedAt.Equal(t0.Add(time.Hour)))
	assert.Equal(t, domain.PlatformGoogleDrive, rec.Platform)
	assert.True(t, rec.LastModified.Equal(t0))

	assert.NoFileExists(t, path)
	assert.Zero(t, env.analyzer.calls)
}

func TestDocumentProcessor_ImageBearing(t *testing.T) {
	env := newTestEnv(t.TempDir())
	env.analyzer.images = 3
	entry := docxEntry("cat", "catalog.docx", t0)
	env.source.addFile("root", entry, imageMarker+"Spring catalog text")

	outcome, path := processOne(t, env, entry)

	require.Equal(t, domain.StatusProcessed, outcome.Status, outcome.Reason)
	assert.Equal(t, domain.KindImageBearing, outcome.Kind)

	records, err := env.index.SelectByFileID(context.Background(), "cat")
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.True(t, r.Metadata.SummarySource)
	assert.Nil(t, r.Metadata.ChunkNumber)
	assert.Nil(t, r.Metadata.TotalChunks)
	assert.Equal(t, "## Document Summary:\nSummary of catalog.docx\n\n## Complete Document:\nSpring catalog text", r.Content)
	require.Len(t, r.Metadata.ImageData, 3)
	assert.Equal(t, "memory://bucket/images/cat_catalog_image_1.png", r.Metadata.ImageData[0].ImagePath)
	require.NotNil(t, r.Metadata.ImageData[2].Description)
	assert.Equal(t, "image 3", *r.Metadata.ImageData[2].Description)

	assert.Len(t, env.blobs.Keys(), 3)
	assert.Equal(t, domain.DefaultPrompt, env.analyzer.lastPrompt)
	assert.NoFileExists(t, path)
}

func TestDocumentProcessor_ImageCap(t *testing.T) {
	env := newTestEnv(t.TempDir())
	env.settings.MaxImages = 2
	env.analyzer.images = 5
	entry := docxEntry("cat", "catalog.docx", t0)
	env.source.addFile("root", entry, imageMarker+"text")

	outcome, _ := processOne(t, env, entry)

	require.Equal(t, domain.StatusProcessed, outcome.Status, outcome.Reason)
	records, _ := env.index.SelectByFileID(context.Background(), "cat")
	require.Len(t, records, 1)
	assert.Len(t, records[0].Metadata.ImageData, 2)
}

func TestDocumentProcessor_Timeout(t *testing.T) {
	env := newTestEnv(t.TempDir())
	env.settings.AnalysisTimeout = 30 * time.Millisecond
	env.analyzer.delay = time.Second
	entry := docxEntry("slow", "slow.docx", t0)
	env.source.addFile("root", entry, imageMarker+"text")

	start := time.Now()
	outcome, path := processOne(t, env, entry)

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, domain.StatusTimedOut, outcome.Status)
	assert.ErrorIs(t, outcome.Err, domain.ErrAnalyzerTimeout)

	records, _ := env.index.SelectByFileID(context.Background(), "slow")
	assert.Empty(t, records)

	rec, err := env.metadata.Get(context.Background(), "slow")
	require.NoError(t, err)
	assert.Nil(t, rec.ProcessedAt)

	// images uploaded before the deadline are cleaned up
	assert.Empty(t, env.blobs.Keys())
	assert.Len(t, env.blobs.Deleted(), 2)
	assert.NoFileExists(t, path)
}

func TestDocumentProcessor_TimeoutAbandonsUncooperativeAnalyzer(t *testing.T) {
	env := newTestEnv(t.TempDir())
	env.settings.AnalysisTimeout = 20 * time.Millisecond
	env.analyzer.images = 1
	env.analyzer.delay = 100 * time.Millisecond
	env.analyzer.ignoreCancel = true
	env.analyzer.lateErr = make(chan error, 1)
	entry := docxEntry("stuck", "stuck.docx", t0)
	env.source.addFile("root", entry, imageMarker+"text")

	outcome, _ := processOne(t, env, entry)
	assert.Equal(t, domain.StatusTimedOut, outcome.Status)

	select {
	case err := <-env.analyzer.lateErr:
		assert.ErrorIs(t, err, domain.ErrAnalysisAbandoned)
	case <-time.After(2 * time.Second):
		t.Fatal("analyzer never attempted its late upload")
	}
	assert.Empty(t, env.blobs.Keys())
}

func TestDocumentProcessor_TimeoutDuringSlowUpload(t *testing.T) {
	env := newTestEnv(t.TempDir())
	env.settings.AnalysisTimeout = 20 * time.Millisecond
	env.analyzer.images = 1
	store := newBlockingBlobStore()
	env.blobStore = store
	entry := docxEntry("upload", "upload.docx", t0)
	env.source.addFile("root", entry, imageMarker+"text")

	start := time.Now()
	outcome, path := processOne(t, env, entry)
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 500*time.Millisecond)
	assert.Equal(t, domain.StatusTimedOut, outcome.Status)
	assert.NoFileExists(t, path)

	// the upload lands after the deadline and is removed again
	close(store.release)
	<-store.done
	assert.Eventually(t, func() bool {
		return len(store.Keys()) == 0 && len(store.Deleted()) == 1
	}, time.Second, 5*time.Millisecond)

	records, _ := env.index.SelectByFileID(context.Background(), "upload")
	assert.Empty(t, records)
}

func TestDocumentProcessor_AnalyzerError(t *testing.T) {
	env := newTestEnv(t.TempDir())
	env.analyzer.err = errors.New("model refused")
	entry := docxEntry("bad", "bad.docx", t0)
	env.source.addFile("root", entry, imageMarker+"text")

	outcome, path := processOne(t, env, entry)

	assert.Equal(t, domain.StatusFailed, outcome.Status)
	assert.ErrorIs(t, outcome.Err, domain.ErrAnalyzer)
	assert.Zero(t, env.index.Len())
	assert.Empty(t, env.blobs.Keys())
	assert.NoFileExists(t, path)
}

func TestDocumentProcessor_NoContent(t *testing.T) {
	env := newTestEnv(t.TempDir())
	entry := pdfEntry("blank", "blank.pdf", t0)
	env.source.addFile("root", entry, "  \n\t ")

	outcome, _ := processOne(t, env, entry)

	assert.Equal(t, domain.StatusFailed, outcome.Status)
	assert.Equal(t, "no content", outcome.Reason)

	rec, err := env.metadata.Get(context.Background(), "blank")
	require.NoError(t, err)
	assert.Nil(t, rec.ProcessedAt)
}

func TestDocumentProcessor_DownloadFailure(t *testing.T) {
	env := newTestEnv(t.TempDir())
	entry := pdfEntry("x", "x.pdf", t0)
	env.source.addFile("root", entry, "text")
	env.source.downloadErr["x"] = errors.New("404")

	outcome, _ := processOne(t, env, entry)

	assert.Equal(t, domain.StatusFailed, outcome.Status)
	assert.ErrorIs(t, outcome.Err, domain.ErrDownload)
	_, err := env.metadata.Get(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentProcessor_ExtractionFailure(t *testing.T) {
	env := newTestEnv(t.TempDir())
	env.extractor.textErr = errors.New("corrupt xref")
	entry := pdfEntry("x", "x.pdf", t0)
	env.source.addFile("root", entry, "text")

	outcome, path := processOne(t, env, entry)

	assert.Equal(t, domain.StatusFailed, outcome.Status)
	assert.ErrorIs(t, outcome.Err, domain.ErrExtraction)
	assert.NoFileExists(t, path)
}

func TestDocumentProcessor_UpdatePurgesBeforeAnalysis(t *testing.T) {
	env := newTestEnv(t.TempDir())
	ctx := context.Background()

	entry := docxEntry("doc", "doc.docx", t0)
	env.source.addFile("root", entry, imageMarker+"v1")
	outcome, _ := processOne(t, env, entry)
	require.Equal(t, domain.StatusProcessed, outcome.Status)
	require.Len(t, env.blobs.Keys(), 2)

	// the new version fails analysis: the old version must already be gone
	env.analyzer.err = errors.New("boom")
	entry.ModifiedTime = t0.Add(2 * time.Hour)
	env.source.updateFile("doc", entry.ModifiedTime, imageMarker+"v2")

	outcome, _ = processOne(t, env, entry)
	assert.Equal(t, domain.StatusFailed, outcome.Status)

	records, _ := env.index.SelectByFileID(ctx, "doc")
	assert.Empty(t, records)
	assert.Empty(t, env.blobs.Keys())
	rec, _ := env.metadata.Get(ctx, "doc")
	assert.Nil(t, rec.ProcessedAt)
}

func TestDocumentProcessor_IndexWriteFailureCleansImages(t *testing.T) {
	env := newTestEnv(t.TempDir())
	failing := &failingIndex{VectorIndex: env.index, insertErr: errors.New("disk full")}
	blobs := NewBlobManager(env.blobs)
	writer := NewIndexWriter(failing, nil, blobs)
	p := NewDocumentProcessor(env.source, env.metadata, env.extractor, env.analyzer, nil, writer, blobs, env.settings)

	entry := docxEntry("d", "d.docx", t0)
	env.source.addFile("root", entry, imageMarker+"text")
	path := filepath.Join(t.TempDir(), "d--d.docx")

	outcome := p.Process(context.Background(), &entry, path)

	assert.Equal(t, domain.StatusFailed, outcome.Status)
	assert.ErrorIs(t, outcome.Err, domain.ErrIndexWrite)
	assert.Empty(t, env.blobs.Keys())
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
