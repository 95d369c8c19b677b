package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/driveindex/internal/core/domain"
	"github.com/custodia-labs/driveindex/internal/core/ports/driven"
	"github.com/custodia-labs/driveindex/internal/logger"
)

// Enumeration is the flat result of listing every configured root.
type Enumeration struct {
	// Entries holds each non-folder file once, in discovery order.
	Entries []domain.SourceEntry

	// Failures holds one error per root or folder that failed to list.
	// Every failure wraps domain.ErrEnumeration.
	Failures []error
}

// Complete reports whether every root and branch listed successfully.
func (e *Enumeration) Complete() bool {
	return len(e.Failures) == 0
}

// IDs returns the set of enumerated file ids.
func (e *Enumeration) IDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(e.Entries))
	for i := range e.Entries {
		ids[e.Entries[i].ID] = struct{}{}
	}
	return ids
}

// SourceEnumerator lists every file under the configured roots.
type SourceEnumerator struct {
	source driven.DocumentSource
	retry  domain.RetryPolicy
}

// NewSourceEnumerator creates an enumerator over source.
func NewSourceEnumerator(source driven.DocumentSource, retry domain.RetryPolicy) *SourceEnumerator {
	return &SourceEnumerator{source: source, retry: retry}
}

// Enumerate lists every root. A failing root or branch is logged, recorded
// in Failures and contributes no files. Files reachable from more than one
// folder are reported once.
func (e *SourceEnumerator) Enumerate(ctx context.Context, roots []string) *Enumeration {
	result := &Enumeration{}
	seen := make(map[string]bool)

	for _, root := range roots {
		if ctx.Err() != nil {
			result.Failures = append(result.Failures, fmt.Errorf("%w: root %q: %w", domain.ErrEnumeration, root, ctx.Err()))
			continue
		}

		entries, failures := e.enumerateRoot(ctx, root)
		result.Failures = append(result.Failures, failures...)

		added := 0
		for i := range entries {
			if seen[entries[i].ID] {
				continue
			}
			seen[entries[i].ID] = true
			result.Entries = append(result.Entries, entries[i])
			added++
		}
		logger.Info("Enumerated root %q: %d files, %d failed branches", root, added, len(failures))
	}

	return result
}

// enumerateRoot walks one root breadth-first with an explicit queue.
func (e *SourceEnumerator) enumerateRoot(ctx context.Context, root string) ([]domain.SourceEntry, []error) {
	rootID, err := retryWithBackoff(ctx, e.retry, "resolve root "+root, func() (string, error) {
		return e.source.ResolveRoot(ctx, root)
	})
	if err != nil {
		logger.Warn("Cannot resolve root %q: %v", root, err)
		return nil, []error{fmt.Errorf("%w: resolve root %q: %w", domain.ErrEnumeration, root, err)}
	}

	var (
		entries  []domain.SourceEntry
		failures []error
		queue    = []string{rootID}
		visited  = map[string]bool{rootID: true}
	)

	for len(queue) > 0 {
		if ctx.Err() != nil {
			failures = append(failures, fmt.Errorf("%w: root %q: %w", domain.ErrEnumeration, root, ctx.Err()))
			break
		}

		folderID := queue[0]
		queue = queue[1:]

		files, folders, err := e.listFolder(ctx, folderID)
		if err != nil {
			logger.Warn("Listing folder %s under %q failed, skipping branch: %v", folderID, root, err)
			failures = append(failures, fmt.Errorf("%w: folder %s: %w", domain.ErrEnumeration, folderID, err))
			continue
		}

		for i := range files {
			files[i].Root = root
		}
		entries = append(entries, files...)

		for _, id := range folders {
			if !visited[id] {
				visited[id] = true
				queue = append(queue, id)
			}
		}
	}

	return entries, failures
}

// listFolder follows the cursor through every page of one folder.
// A failure on any page discards the whole folder.
func (e *SourceEnumerator) listFolder(ctx context.Context, folderID string) ([]domain.SourceEntry, []string, error) {
	var (
		files   []domain.SourceEntry
		folders []string
		cursor  string
	)

	for {
		page, err := retryWithBackoff(ctx, e.retry, "list "+folderID, func() (*driven.ListPage, error) {
			return e.source.ListChildren(ctx, folderID, cursor)
		})
		if err != nil {
			return nil, nil, err
		}

		files = append(files, page.Files...)
		folders = append(folders, page.Folders...)

		if page.NextCursor == "" {
			return files, folders, nil
		}
		cursor = page.NextCursor
	}
}
