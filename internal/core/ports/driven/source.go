package driven

import (
	"context"

	"github.com/custodia-labs/driveindex/internal/core/domain"
)

// DocumentSource lists and downloads files from the remote document store.
type DocumentSource interface {
	// ResolveRoot resolves a configured root name to its id.
	ResolveRoot(ctx context.Context, name string) (string, error)

	// ListChildren returns one page of a folder's direct children.
	// An empty cursor requests the first page.
	ListChildren(ctx context.Context, folderID, cursor string) (*ListPage, error)

	// Download writes the file content to dest. Native documents are
	// exported on the way. Returns the MIME type of the written content.
	Download(ctx context.Context, id, mimeType, dest string) (string, error)

	// ListRoots returns every root visible to the credentials.
	ListRoots(ctx context.Context) ([]domain.SourceRoot, error)
}

// ListPage is one page of folder children.
type ListPage struct {
	// Files are the non-folder children.
	Files []domain.SourceEntry

	// Folders are child folder ids to descend into.
	Folders []string

	// NextCursor is empty on the last page.
	NextCursor string
}
