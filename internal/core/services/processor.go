package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/custodia-labs/driveindex/internal/core/domain"
	"github.com/custodia-labs/driveindex/internal/core/ports/driven"
	"github.com/custodia-labs/driveindex/internal/logger"
)

// DocumentProcessor takes one changed file from download to processed.
//
// The metadata row is upserted with processed_at NULL straight after download
// and any previous index state is purged before analysis, so a crash at any
// later point leaves the file missing from the index rather than duplicated.
type DocumentProcessor struct {
	source    driven.DocumentSource
	metadata  driven.MetadataStore
	extractor driven.Extractor
	analyzer  driven.Analyzer
	splitter  driven.TextSplitter
	writer    *IndexWriter
	blobs     *BlobManager
	settings  domain.PipelineSettings

	now func() time.Time
}

// NewDocumentProcessor creates a processor.
func NewDocumentProcessor(
	source driven.DocumentSource,
	metadata driven.MetadataStore,
	extractor driven.Extractor,
	analyzer driven.Analyzer,
	splitter driven.TextSplitter,
	writer *IndexWriter,
	blobs *BlobManager,
	settings domain.PipelineSettings,
) *DocumentProcessor {
	return &DocumentProcessor{
		source:    source,
		metadata:  metadata,
		extractor: extractor,
		analyzer:  analyzer,
		splitter:  splitter,
		writer:    writer,
		blobs:     blobs,
		settings:  settings,
		now:       processingTime,
	}
}

// Process runs the state machine for one entry. The file is downloaded to
// localPath, which is removed on every exit path. Errors never escape: they
// are reported in the returned outcome.
func (p *DocumentProcessor) Process(ctx context.Context, entry *domain.SourceEntry, localPath string) domain.FileOutcome {
	start := time.Now()
	name := domain.SanitizeFileName(entry.Name)
	outcome := domain.FileOutcome{FileID: entry.ID, FileName: name}

	defer func() {
		if err := os.Remove(localPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("Failed to remove local file %s: %v", localPath, err)
		}
		outcome.Duration = time.Since(start)
	}()

	kind, records, err := p.process(ctx, entry, name, localPath)
	outcome.Kind = kind
	if err != nil {
		outcome.Err = err
		outcome.Status, outcome.Reason = classifyFailure(err)
		if outcome.Status == domain.StatusTimedOut {
			logger.Warn("Analysis timed out for %s (%s) after %s", entry.ID, name, p.settings.AnalysisTimeout)
		} else {
			logger.Error("Failed to process %s (%s): %v", entry.ID, name, err)
		}
		return outcome
	}

	outcome.Status = domain.StatusProcessed
	outcome.Records = records
	logger.Info("Processed %s (%s): %s, %d records", entry.ID, name, kind, records)
	return outcome
}

//nolint:gocyclo // Sequential state machine steps
func (p *DocumentProcessor) process(
	ctx context.Context, entry *domain.SourceEntry, name, localPath string,
) (domain.DocumentKind, int, error) {
	// 1. DOWNLOAD (exporting native documents)
	mimeType, err := retryWithBackoff(ctx, p.settings.Retry, "download "+entry.ID, func() (string, error) {
		return p.source.Download(ctx, entry.ID, entry.MimeType, localPath)
	})
	if err != nil {
		return "", 0, fmt.Errorf("%w: %w", domain.ErrDownload, err)
	}
	logger.Debug("Downloaded %s to %s (%s)", entry.ID, localPath, mimeType)

	// 2. UPSERT with processed_at NULL: in flight, not indexed
	record := &domain.FileRecord{
		FileID:       entry.ID,
		FileName:     name,
		Platform:     p.settings.Platform,
		LastModified: entry.ModifiedTime.UTC(),
	}
	if err := p.metadata.Upsert(ctx, record); err != nil {
		return "", 0, fmt.Errorf("%w: upsert metadata: %w", domain.ErrIndexWrite, err)
	}

	// 3. PURGE any previous version before re-analysis
	purge, err := p.writer.Purge(ctx, entry.ID)
	if err != nil {
		return "", 0, err
	}
	if purge.Records > 0 {
		logger.Debug("Removed %d previous records and %d images for %s",
			purge.Records, purge.Blobs.Deleted, entry.ID)
	}

	// 4. CLASSIFY
	hasImages, err := p.extractor.HasImages(ctx, localPath, mimeType)
	if err != nil {
		return "", 0, fmt.Errorf("%w: detect images: %w", domain.ErrExtraction, err)
	}
	kind := domain.KindTextOnly
	if hasImages {
		kind = domain.KindImageBearing
	}

	// 5/6. CHUNK or ANALYZE, then write
	processedAt := p.now()
	var written int
	switch kind {
	case domain.KindTextOnly:
		written, err = p.writeChunks(ctx, entry.ID, name, localPath, mimeType, processedAt)
	default:
		written, err = p.writeSummary(ctx, entry.ID, name, localPath, mimeType, processedAt)
	}
	if err != nil {
		return kind, 0, err
	}

	// 7. MARK processed only after every write succeeded
	if err := p.metadata.MarkProcessed(ctx, entry.ID, processedAt); err != nil {
		return kind, 0, fmt.Errorf("%w: mark processed: %w", domain.ErrIndexWrite, err)
	}

	return kind, written, nil
}

// writeChunks handles text-only documents.
func (p *DocumentProcessor) writeChunks(
	ctx context.Context, fileID, name, path, mimeType string, processedAt time.Time,
) (int, error) {
	text, err := p.extractor.ExtractText(ctx, path, mimeType)
	if err != nil {
		return 0, fmt.Errorf("%w: extract text: %w", domain.ErrExtraction, err)
	}

	chunks := p.splitter.Split(text)
	if len(chunks) == 0 {
		return 0, domain.ErrNoContent
	}

	total := len(chunks)
	records := make([]domain.EmbeddingRecord, total)
	for i, chunk := range chunks {
		number := i + 1
		records[i] = domain.EmbeddingRecord{
			Content: chunk,
			Metadata: domain.EmbeddingMetadata{
				FileID:      fileID,
				FileName:    name,
				ChunkNumber: &number,
				TotalChunks: &total,
				ProcessedAt: processedAt,
			},
		}
	}

	if err := p.writer.Replace(ctx, fileID, records); err != nil {
		return 0, err
	}
	return total, nil
}

// writeSummary handles image-bearing documents.
func (p *DocumentProcessor) writeSummary(
	ctx context.Context, fileID, name, path, mimeType string, processedAt time.Time,
) (int, error) {
	result, urls, err := p.analyze(ctx, fileID, name, path, mimeType)
	if err != nil {
		return 0, err
	}

	record := domain.EmbeddingRecord{
		Content: result.SummaryContent(),
		Metadata: domain.EmbeddingMetadata{
			FileID:        fileID,
			FileName:      name,
			SummarySource: true,
			ImageData:     result.PairImages(urls),
			ProcessedAt:   processedAt,
		},
	}

	if err := p.writer.Replace(ctx, fileID, []domain.EmbeddingRecord{record}); err != nil {
		p.blobs.DeleteURLs(ctx, urls)
		return 0, err
	}
	return 1, nil
}

type analysisOutput struct {
	result *domain.AnalysisResult
	err    error
}

// analyze runs the analyzer on a supervised goroutine under the analysis
// deadline. On timeout or error the goroutine is abandoned, further uploads
// are refused and every image it already uploaded is deleted.
func (p *DocumentProcessor) analyze(
	ctx context.Context, fileID, name, path, mimeType string,
) (*domain.AnalysisResult, []string, error) {
	imageDir, err := os.MkdirTemp(filepath.Dir(path), "images-*")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: create image dir: %w", domain.ErrExtraction, err)
	}
	defer os.RemoveAll(imageDir)

	session := p.blobs.NewSession(fileID, p.settings.MaxImages)
	req := &driven.AnalysisRequest{
		FilePath:  path,
		FileID:    fileID,
		FileName:  name,
		MimeType:  mimeType,
		Prompt:    p.settings.Prompt,
		ImageDir:  imageDir,
		MaxImages: p.settings.MaxImages,
		Images:    session,
	}

	actx, cancel := context.WithTimeout(ctx, p.settings.AnalysisTimeout)
	defer cancel()

	done := make(chan analysisOutput, 1)
	go func() {
		result, err := p.analyzer.Analyze(actx, req)
		done <- analysisOutput{result: result, err: err}
	}()

	var out analysisOutput
	select {
	case out = <-done:
	case <-actx.Done():
		out.err = actx.Err()
	}

	urls := session.Close()

	if out.err == nil && out.result == nil {
		out.err = errors.New("analyzer returned no result")
	}
	if out.err != nil {
		if len(urls) > 0 {
			p.blobs.DeleteURLs(ctx, urls)
		}
		if errors.Is(actx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, nil, fmt.Errorf("%w after %s", domain.ErrAnalyzerTimeout, p.settings.AnalysisTimeout)
		}
		return nil, nil, fmt.Errorf("%w: %w", domain.ErrAnalyzer, out.err)
	}

	return out.result, urls, nil
}

// processingTime is truncated to the precision every metadata store keeps.
func processingTime() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// classifyFailure maps an error to a terminal status and short reason.
func classifyFailure(err error) (domain.FileStatus, string) {
	switch {
	case errors.Is(err, domain.ErrAnalyzerTimeout):
		return domain.StatusTimedOut, domain.ErrAnalyzerTimeout.Error()
	case errors.Is(err, domain.ErrNoContent):
		return domain.StatusFailed, domain.ErrNoContent.Error()
	case errors.Is(err, domain.ErrDownload):
		return domain.StatusFailed, domain.ErrDownload.Error()
	case errors.Is(err, domain.ErrExtraction):
		return domain.StatusFailed, domain.ErrExtraction.Error()
	case errors.Is(err, domain.ErrAnalyzer):
		return domain.StatusFailed, domain.ErrAnalyzer.Error()
	case errors.Is(err, domain.ErrIndexWrite):
		return domain.StatusFailed, domain.ErrIndexWrite.Error()
	default:
		return domain.StatusFailed, err.Error()
	}
}
