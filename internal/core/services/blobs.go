package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/driveindex/internal/core/domain"
	"github.com/custodia-labs/driveindex/internal/core/ports/driven"
	"github.com/custodia-labs/driveindex/internal/logger"
)

// BlobDeleteResult counts best-effort image deletions.
type BlobDeleteResult struct {
	Deleted int
	Failed  int
	Errors  []error
}

func (r *BlobDeleteResult) add(other BlobDeleteResult) {
	r.Deleted += other.Deleted
	r.Failed += other.Failed
	r.Errors = append(r.Errors, other.Errors...)
}

// BlobManager creates and deletes extracted image objects.
// Deletion failures are counted and logged but never returned as errors.
type BlobManager struct {
	store driven.BlobStore
}

// NewBlobManager creates a blob manager over store.
func NewBlobManager(store driven.BlobStore) *BlobManager {
	return &BlobManager{store: store}
}

// ImageKey returns the object key for an image derived from fileID.
func ImageKey(fileID, name string) string {
	return "images/" + fileID + "_" + domain.SanitizeFileName(name)
}

// Upload stores one image and returns its URL.
func (m *BlobManager) Upload(ctx context.Context, fileID, name string, data []byte, contentType string) (string, error) {
	url, err := m.store.Put(ctx, ImageKey(fileID, name), data, contentType)
	if err != nil {
		return "", fmt.Errorf("upload image %s: %w", name, err)
	}
	return url, nil
}

// DeleteURLs deletes every referenced object, continuing past failures.
func (m *BlobManager) DeleteURLs(ctx context.Context, urls []string) BlobDeleteResult {
	var result BlobDeleteResult
	for _, url := range urls {
		bucket, key, ok := m.store.URLToKey(url)
		if !ok {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Errorf("%w: unrecognised url %s", domain.ErrBlobDelete, url))
			logger.Warn("Cannot map image url to a key: %s", url)
			continue
		}
		if err := m.store.Delete(ctx, bucket, key); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Errorf("%w: %s: %w", domain.ErrBlobDelete, key, err))
			logger.Warn("Failed to delete image %s: %v", key, err)
			continue
		}
		result.Deleted++
	}
	if len(urls) > 0 {
		logger.Debug("Image deletion: %d deleted, %d failed", result.Deleted, result.Failed)
	}
	return result
}

// NewSession returns an upload session for one analysis of fileID.
func (m *BlobManager) NewSession(fileID string, maxImages int) *UploadSession {
	return &UploadSession{manager: m, fileID: fileID, max: maxImages}
}

// Ensure UploadSession implements the interface.
var _ driven.ImageSink = (*UploadSession)(nil)

// UploadSession records every image uploaded during one analysis so the
// caller can use or clean them up. After Close, uploads are refused and an
// upload that was in flight when Close ran is deleted once it lands.
type UploadSession struct {
	manager *BlobManager
	fileID  string
	max     int

	mu      sync.Mutex
	urls    []string
	pending int
	closed  bool
}

// Put uploads one image. The lock is not held during the upload, so Close
// never waits on a slow store.
func (s *UploadSession) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", domain.ErrAnalysisAbandoned
	}
	if len(s.urls)+s.pending >= s.max {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: image limit %d reached", domain.ErrInvalidInput, s.max)
	}
	s.pending++
	s.mu.Unlock()

	url, err := s.manager.Upload(ctx, s.fileID, name, data, contentType)

	s.mu.Lock()
	s.pending--
	closed := s.closed
	if err == nil && !closed {
		s.urls = append(s.urls, url)
	}
	s.mu.Unlock()

	switch {
	case err != nil:
		return "", err
	case closed:
		// Close already returned its URLs, so nobody else will remove this one.
		logger.Debug("Deleting image %s uploaded after analysis was abandoned", url)
		s.manager.DeleteURLs(context.WithoutCancel(ctx), []string{url})
		return "", domain.ErrAnalysisAbandoned
	}
	return url, nil
}

// Close stops further uploads and returns the URLs created so far.
func (s *UploadSession) Close() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return append([]string(nil), s.urls...)
}
