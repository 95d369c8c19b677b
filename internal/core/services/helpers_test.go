package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/driveindex/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/driveindex/internal/core/domain"
	"github.com/custodia-labs/driveindex/internal/core/ports/driven"
	"github.com/custodia-labs/driveindex/internal/postprocessors/chunker"
)

// --- Fakes shared by the service tests ---

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

// fakeSource implements driven.DocumentSource over an in-memory folder tree.
type fakeSource struct {
	mu sync.Mutex

	roots    map[string]string
	files    map[string][]domain.SourceEntry
	folders  map[string][]string
	content  map[string]string
	pageSize int

	resolveErr  map[string]error
	listErr     map[string]error
	transient   map[string]int
	downloadErr map[string]error

	downloads []string
	listed    map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		roots:       map[string]string{"Shared": "root"},
		files:       make(map[string][]domain.SourceEntry),
		folders:     make(map[string][]string),
		content:     make(map[string]string),
		resolveErr:  make(map[string]error),
		listErr:     make(map[string]error),
		transient:   make(map[string]int),
		downloadErr: make(map[string]error),
		listed:      make(map[string]int),
	}
}

// addFile places a file in folder with the given content.
func (s *fakeSource) addFile(folder string, entry domain.SourceEntry, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[folder] = append(s.files[folder], entry)
	s.content[entry.ID] = content
}

// removeFile deletes a file from every folder.
func (s *fakeSource) removeFile(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for folder, entries := range s.files {
		kept := entries[:0]
		for _, e := range entries {
			if e.ID != id {
				kept = append(kept, e)
			}
		}
		s.files[folder] = kept
	}
	delete(s.content, id)
}

// updateFile changes a file's modification time and content.
func (s *fakeSource) updateFile(id string, modified time.Time, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entries := range s.files {
		for i := range entries {
			if entries[i].ID == id {
				entries[i].ModifiedTime = modified
			}
		}
	}
	s.content[id] = content
}

func (s *fakeSource) ResolveRoot(_ context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.resolveErr[name]; err != nil {
		return "", err
	}
	id, ok := s.roots[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return id, nil
}

func (s *fakeSource) ListChildren(_ context.Context, folderID, cursor string) (*driven.ListPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listed[folderID]++

	if s.transient[folderID] > 0 {
		s.transient[folderID]--
		return nil, fmt.Errorf("%w: 503", domain.ErrTransient)
	}
	if err := s.listErr[folderID]; err != nil {
		return nil, err
	}

	files := s.files[folderID]
	folders := s.folders[folderID]
	if s.pageSize <= 0 {
		return &driven.ListPage{Files: append([]domain.SourceEntry(nil), files...), Folders: folders}, nil
	}

	// pages hold pageSize files; folders ride on the first page
	start := 0
	if cursor != "" {
		start, _ = strconv.Atoi(cursor)
	}
	end := start + s.pageSize
	if end > len(files) {
		end = len(files)
	}
	page := &driven.ListPage{Files: append([]domain.SourceEntry(nil), files[start:end]...)}
	if start == 0 {
		page.Folders = folders
	}
	if end < len(files) {
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}

func (s *fakeSource) Download(_ context.Context, id, mimeType, dest string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.downloads = append(s.downloads, id)
	if err := s.downloadErr[id]; err != nil {
		return "", err
	}
	content, ok := s.content[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	if err := os.WriteFile(dest, []byte(content), 0o600); err != nil {
		return "", err
	}
	if mimeType == domain.MimeTypeGoogleDoc {
		return domain.MimeTypePDF, nil
	}
	return mimeType, nil
}

func (s *fakeSource) ListRoots(_ context.Context) ([]domain.SourceRoot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var roots []domain.SourceRoot
	for name, id := range s.roots {
		roots = append(roots, domain.SourceRoot{ID: id, Name: name})
	}
	return roots, nil
}

func (s *fakeSource) downloaded(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.downloads {
		if d == id {
			return true
		}
	}
	return false
}

// fakeExtractor treats content starting with "IMG:" as image-bearing.
type fakeExtractor struct {
	textErr error
}

const imageMarker = "IMG:"

func (e *fakeExtractor) HasImages(_ context.Context, path, _ string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	return strings.HasPrefix(string(data), imageMarker), nil
}

func (e *fakeExtractor) ExtractText(_ context.Context, path, _ string) (string, error) {
	if e.textErr != nil {
		return "", e.textErr
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(string(data), imageMarker), nil
}

func (e *fakeExtractor) ExtractImages(context.Context, string, string, string, int) ([]driven.ExtractedImage, error) {
	return nil, nil
}

// fakeAnalyzer uploads images then optionally waits before answering.
type fakeAnalyzer struct {
	mu sync.Mutex

	images int
	delay  time.Duration
	// ignoreCancel keeps sleeping after the context ends.
	ignoreCancel bool
	err          error

	calls      int
	lateErr    chan error
	fileSeen   []string
	lastPrompt string
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, req *driven.AnalysisRequest) (*domain.AnalysisResult, error) {
	a.mu.Lock()
	a.calls++
	a.fileSeen = append(a.fileSeen, req.FileID)
	a.lastPrompt = req.Prompt
	a.mu.Unlock()

	data, err := os.ReadFile(req.FilePath)
	if err != nil {
		return nil, err
	}

	descriptions := make([]domain.ImageDescription, 0, a.images)
	for i := 1; i <= a.images && i <= req.MaxImages; i++ {
		name := fmt.Sprintf("%s_image_%d.png", strings.TrimSuffix(req.FileName, ".docx"), i)
		if _, err := req.Images.Put(ctx, name, []byte{0x89, 'P', 'N', 'G'}, "image/png"); err != nil {
			return nil, err
		}
		d := fmt.Sprintf("image %d", i)
		descriptions = append(descriptions, domain.ImageDescription{Description: &d})
	}

	if a.delay > 0 {
		if a.ignoreCancel {
			time.Sleep(a.delay)
			// a late upload must be refused
			_, lateErr := req.Images.Put(context.Background(), "late.png", []byte{1}, "image/png")
			if a.lateErr != nil {
				a.lateErr <- lateErr
			}
		} else {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(a.delay):
			}
		}
	}

	if a.err != nil {
		return nil, a.err
	}

	return &domain.AnalysisResult{
		DocumentSummary:   "Summary of " + req.FileName,
		ImageDescriptions: descriptions,
		CompleteText:      strings.TrimPrefix(string(data), imageMarker),
	}, nil
}

// fakeEmbedder returns a fixed-size vector per text.
type fakeEmbedder struct {
	err   error
	short bool
	calls int
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (e *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	n := len(texts)
	if e.short {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{float32(len(texts[i])), 1, 0}
	}
	return out, nil
}

func (e *fakeEmbedder) Dimensions() int              { return 3 }
func (e *fakeEmbedder) ModelName() string            { return "fake" }
func (e *fakeEmbedder) Ping(_ context.Context) error { return nil }
func (e *fakeEmbedder) Close() error                 { return nil }

// failingBlobStore fails deletes for chosen keys.
type failingBlobStore struct {
	*memory.BlobStore
	failKeys map[string]bool
}

func (b *failingBlobStore) Delete(ctx context.Context, bucket, key string) error {
	if b.failKeys[key] {
		return errors.New("access denied")
	}
	return b.BlobStore.Delete(ctx, bucket, key)
}

// blockingBlobStore holds every Put until release is closed, ignoring ctx.
type blockingBlobStore struct {
	*memory.BlobStore
	started chan struct{}
	release chan struct{}
	done    chan struct{}
}

func newBlockingBlobStore() *blockingBlobStore {
	return &blockingBlobStore{
		BlobStore: memory.NewBlobStore("bucket"),
		started:   make(chan struct{}, 16),
		release:   make(chan struct{}),
		done:      make(chan struct{}, 16),
	}
}

func (b *blockingBlobStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	b.started <- struct{}{}
	<-b.release
	url, err := b.BlobStore.Put(ctx, key, data, contentType)
	b.done <- struct{}{}
	return url, err
}

// unreachableMetadata fails Ping.
type unreachableMetadata struct {
	*memory.MetadataStore
}

func (unreachableMetadata) Ping(context.Context) error {
	return errors.New("connection refused")
}

// failingIndex fails inserts.
type failingIndex struct {
	*memory.VectorIndex
	insertErr error
}

func (f *failingIndex) Insert(ctx context.Context, records []domain.EmbeddingRecord) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	return f.VectorIndex.Insert(ctx, records)
}

// testEnv bundles an orchestrator with its fakes.
type testEnv struct {
	settings  domain.PipelineSettings
	source    *fakeSource
	metadata  *memory.MetadataStore
	index     *memory.VectorIndex
	blobs     *memory.BlobStore
	extractor *fakeExtractor
	analyzer  *fakeAnalyzer
	embedder  *fakeEmbedder

	// blobStore replaces blobs in processor when set.
	blobStore driven.BlobStore
}

func newTestEnv(workDir string) *testEnv {
	settings := domain.DefaultPipelineSettings()
	settings.Roots = []string{"Shared"}
	settings.WorkDir = workDir
	settings.Retry = domain.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	return &testEnv{
		settings:  settings,
		source:    newFakeSource(),
		metadata:  memory.NewMetadataStore(),
		index:     memory.NewVectorIndex(),
		blobs:     memory.NewBlobStore("bucket"),
		extractor: &fakeExtractor{},
		analyzer:  &fakeAnalyzer{images: 2},
		embedder:  &fakeEmbedder{},
	}
}

func (e *testEnv) orchestrator() *Orchestrator {
	return e.orchestratorWith(e.metadata, e.index, e.blobs)
}

func (e *testEnv) orchestratorWith(metadata driven.MetadataStore, index driven.VectorIndex, blobs driven.BlobStore) *Orchestrator {
	o := NewOrchestrator(e.settings, e.source, metadata, index, blobs,
		e.extractor, e.analyzer, chunker.New(), e.embedder)
	return o
}

func (e *testEnv) processor() *DocumentProcessor {
	var store driven.BlobStore = e.blobs
	if e.blobStore != nil {
		store = e.blobStore
	}
	blobs := NewBlobManager(store)
	writer := NewIndexWriter(e.index, e.embedder, blobs)
	return NewDocumentProcessor(e.source, e.metadata, e.extractor, e.analyzer,
		chunker.New(), writer, blobs, e.settings)
}

func pdfEntry(id, name string, modified time.Time) domain.SourceEntry {
	return domain.SourceEntry{ID: id, Name: name, MimeType: domain.MimeTypePDF, ModifiedTime: modified, Size: domain.Int64(1024)}
}

func docxEntry(id, name string, modified time.Time) domain.SourceEntry {
	return domain.SourceEntry{ID: id, Name: name, MimeType: domain.MimeTypeDOCX, ModifiedTime: modified, Size: domain.Int64(2048)}
}

// textOf returns n characters of cleaned text.
func textOf(n int) string {
	const words = "policy clause applies to every employee and contractor "
	var b strings.Builder
	for b.Len() < n {
		b.WriteString(words)
	}
	return b.String()[:n-1] + "."
}
