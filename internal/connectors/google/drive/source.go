package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/driveindex/internal/connectors/google"
	"github.com/custodia-labs/driveindex/internal/core/domain"
	"github.com/custodia-labs/driveindex/internal/core/ports/driven"
	"github.com/custodia-labs/driveindex/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.DocumentSource = (*Source)(nil)

const (
	// DefaultPageSize is the files.list page size.
	DefaultPageSize = 100

	fileFields  = "nextPageToken, files(id, name, mimeType, modifiedTime, size)"
	driveFields = "nextPageToken, drives(id, name)"
)

// Source lists and downloads files from Google Drive.
type Source struct {
	svc      *drive.Service
	limiter  *google.RateLimiter
	pageSize int64

	mu sync.Mutex
	// driveOf maps known folder ids to their shared drive id so that
	// listings can be scoped with corpora=drive.
	driveOf map[string]string
}

// NewSource creates a Drive source. limiter may be nil for the default rate.
func NewSource(svc *drive.Service, limiter *google.RateLimiter) *Source {
	if limiter == nil {
		limiter = google.NewRateLimiter(google.DefaultDriveRateLimit)
	}
	return &Source{
		svc:      svc,
		limiter:  limiter,
		pageSize: DefaultPageSize,
		driveOf:  make(map[string]string),
	}
}

// ResolveRoot finds a shared drive by exact name, falling back to a
// non-trashed folder with that name. Returns domain.ErrNotFound if neither
// exists.
func (s *Source) ResolveRoot(ctx context.Context, name string) (string, error) {
	q := "name = '" + escapeQuery(name) + "'"

	var found string
	err := s.call(ctx, func() error {
		return s.svc.Drives.List().Q(q).Fields(driveFields).Context(ctx).
			Pages(ctx, func(page *drive.DriveList) error {
				for _, d := range page.Drives {
					if d.Name == name {
						found = d.Id
						return errStopPaging
					}
				}
				return nil
			})
	})
	if err != nil && !errors.Is(err, errStopPaging) {
		return "", err
	}
	if found != "" {
		s.remember(found, found)
		return found, nil
	}

	var folder *drive.File
	err = s.call(ctx, func() error {
		list, err := s.svc.Files.List().
			Q(q + " and mimeType = '" + MimeTypeFolder + "' and trashed = false").
			Corpora("allDrives").
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			Fields("files(id, name, driveId)").
			PageSize(1).
			Context(ctx).Do()
		if err != nil {
			return err
		}
		if len(list.Files) > 0 {
			folder = list.Files[0]
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if folder == nil {
		return "", fmt.Errorf("%w: no shared drive or folder named %q", domain.ErrNotFound, name)
	}

	logger.Debug("Root %q resolved to folder %s", name, folder.Id)
	s.remember(folder.Id, folder.DriveId)
	return folder.Id, nil
}

// ListChildren returns one page of a folder's non-trashed direct children.
func (s *Source) ListChildren(ctx context.Context, folderID, cursor string) (*driven.ListPage, error) {
	call := s.svc.Files.List().
		Q("'" + escapeQuery(folderID) + "' in parents and trashed = false").
		Spaces("drive").
		Fields(fileFields).
		PageSize(s.pageSize).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true)

	driveID := s.driveFor(folderID)
	if driveID != "" {
		call = call.Corpora("drive").DriveId(driveID)
	} else {
		call = call.Corpora("allDrives")
	}
	if cursor != "" {
		call = call.PageToken(cursor)
	}

	var list *drive.FileList
	err := s.call(ctx, func() error {
		var err error
		list, err = call.Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	page := &driven.ListPage{NextCursor: list.NextPageToken}
	for _, f := range list.Files {
		if f.MimeType == MimeTypeFolder {
			page.Folders = append(page.Folders, f.Id)
			s.remember(f.Id, driveID)
			continue
		}
		entry, err := toEntry(f)
		if err != nil {
			logger.Warn("Skipping %s (%s): %v", f.Id, f.Name, err)
			continue
		}
		page.Files = append(page.Files, entry)
	}
	return page, nil
}

// Download writes the file to dest, exporting native documents.
// Returns the MIME type of the written content.
func (s *Source) Download(ctx context.Context, id, mimeType, dest string) (string, error) {
	contentType := mimeType
	var resp *http.Response

	err := s.call(ctx, func() error {
		var err error
		if format, ok := ExportFormat(mimeType); ok {
			contentType = format
			resp, err = s.svc.Files.Export(id, format).Context(ctx).Download()
		} else {
			resp, err = s.svc.Files.Get(id).SupportsAllDrives(true).Context(ctx).Download()
		}
		return err
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(dest)
		return "", fmt.Errorf("%w: write %s: %w", domain.ErrTransient, dest, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("close %s: %w", dest, err)
	}
	return contentType, nil
}

// ListRoots returns every shared drive visible to the credentials.
func (s *Source) ListRoots(ctx context.Context) ([]domain.SourceRoot, error) {
	var roots []domain.SourceRoot
	err := s.call(ctx, func() error {
		roots = roots[:0]
		return s.svc.Drives.List().Fields(driveFields).PageSize(100).Context(ctx).
			Pages(ctx, func(page *drive.DriveList) error {
				for _, d := range page.Drives {
					roots = append(roots, domain.SourceRoot{ID: d.Id, Name: d.Name})
				}
				return nil
			})
	})
	if err != nil {
		return nil, err
	}
	return roots, nil
}

// errStopPaging ends a Pages iteration early.
var errStopPaging = errors.New("stop paging")

// call throttles fn and maps its error. A rate limited response pauses
// every caller sharing the limiter.
func (s *Source) call(ctx context.Context, fn func() error) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	err := fn()
	if err == nil || err == errStopPaging {
		return err
	}
	if google.IsRateLimited(err) {
		s.limiter.RecordRateLimitError(google.RetryAfter(err))
	}
	return google.WrapError(err)
}

func (s *Source) remember(folderID, driveID string) {
	if driveID == "" {
		return
	}
	s.mu.Lock()
	s.driveOf[folderID] = driveID
	s.mu.Unlock()
}

func (s *Source) driveFor(folderID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.driveOf[folderID]
}

func toEntry(f *drive.File) (domain.SourceEntry, error) {
	modified, err := time.Parse(time.RFC3339, f.ModifiedTime)
	if err != nil {
		return domain.SourceEntry{}, fmt.Errorf("parse modifiedTime %q: %w", f.ModifiedTime, err)
	}
	entry := domain.SourceEntry{
		ID:           f.Id,
		Name:         f.Name,
		MimeType:     f.MimeType,
		ModifiedTime: modified.UTC(),
	}
	// Native documents have no size; the API omits it.
	if f.Size > 0 {
		entry.Size = domain.Int64(f.Size)
	}
	return entry, nil
}

// escapeQuery quotes a value for a Drive query string literal.
func escapeQuery(v string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v)
}
