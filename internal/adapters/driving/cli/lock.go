package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/custodia-labs/driveindex/internal/core/domain"
	"github.com/custodia-labs/driveindex/internal/core/ports/driving"
)

// lockedPipeline holds an exclusive file lock for the duration of each run
// so that separate processes never run against the same index at once.
type lockedPipeline struct {
	inner driving.Pipeline
	path  string
}

var _ driving.Pipeline = (*lockedPipeline)(nil)

func withRunLock(p driving.Pipeline, path string) *lockedPipeline {
	return &lockedPipeline{inner: p, path: path}
}

func (l *lockedPipeline) Run(ctx context.Context) (*domain.RunSummary, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o700); err != nil {
		return nil, fmt.Errorf("%w: create lock directory: %w", domain.ErrStartup, err)
	}

	lock := flock.New(l.path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%w: acquire %s: %w", domain.ErrStartup, l.path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s is held by another process", domain.ErrRunInProgress, l.path)
	}
	defer func() { _ = lock.Unlock() }()

	return l.inner.Run(ctx)
}
