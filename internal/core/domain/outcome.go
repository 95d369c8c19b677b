package domain

import (
	"fmt"
	"time"
)

// FileStatus is the terminal state of one file in a run.
type FileStatus string

const (
	// StatusProcessed means the file's new version is fully indexed.
	StatusProcessed FileStatus = "processed"

	// StatusFailed means processing stopped with an error. processed_at is unchanged.
	StatusFailed FileStatus = "failed"

	// StatusTimedOut means image analysis exceeded its deadline.
	// Treated as failed for state purposes but reported separately.
	StatusTimedOut FileStatus = "timed_out"

	// StatusSkipped means the gatekeeper excluded the file.
	StatusSkipped FileStatus = "skipped"
)

// Gatekeeper skip reasons.
const (
	ReasonUnsupportedType = "unsupported type"
	ReasonSizeLimit       = "size limit exceeded"
)

// FileOutcome records what happened to one file.
type FileOutcome struct {
	FileID   string
	FileName string
	Status   FileStatus

	// Reason is a short human-readable cause for skips and failures.
	Reason string

	// Err is the underlying error for failures and timeouts.
	Err error

	// Kind is set once the file has been classified.
	Kind DocumentKind

	// Records is the number of embedding records written.
	Records int

	Duration time.Duration
}

// RunSummary is the per-run report returned to the caller.
type RunSummary struct {
	StartedAt time.Time
	EndedAt   time.Time

	// Enumerated is the number of files the source reported, before gatekeeping.
	Enumerated int

	// EnumerationFailures counts roots or branches that failed to list.
	EnumerationFailures int

	// EnumerationErrors holds one message per failed root or branch.
	EnumerationErrors []string

	// ReconcileSkipped is true when deletion reconciliation did not run
	// because enumeration was incomplete.
	ReconcileSkipped bool

	// Deleted counts stale files removed from all stores.
	Deleted int

	// BlobsDeleted and BlobDeleteFailures count image objects removed
	// during reconciliation.
	BlobsDeleted       int
	BlobDeleteFailures int

	// Unchanged counts eligible files that needed no processing.
	Unchanged int

	// Outcomes holds one entry per skipped or processed file.
	Outcomes []FileOutcome
}

// Record appends an outcome.
func (s *RunSummary) Record(o FileOutcome) {
	s.Outcomes = append(s.Outcomes, o)
}

// Count returns the number of outcomes with the given status.
func (s *RunSummary) Count(status FileStatus) int {
	n := 0
	for i := range s.Outcomes {
		if s.Outcomes[i].Status == status {
			n++
		}
	}
	return n
}

// Processed returns the number of successfully processed files.
func (s *RunSummary) Processed() int { return s.Count(StatusProcessed) }

// Failed returns the number of failed files.
func (s *RunSummary) Failed() int { return s.Count(StatusFailed) }

// TimedOut returns the number of files whose analysis timed out.
func (s *RunSummary) TimedOut() int { return s.Count(StatusTimedOut) }

// Skipped returns the number of gatekeeper skips.
func (s *RunSummary) Skipped() int { return s.Count(StatusSkipped) }

// Incomplete returns an error wrapping ErrReconcileSkipped when deletion
// reconciliation did not run, and nil otherwise.
func (s *RunSummary) Incomplete() error {
	if !s.ReconcileSkipped {
		return nil
	}
	return fmt.Errorf("%w: %d root(s) or folder(s) failed to list",
		ErrReconcileSkipped, s.EnumerationFailures)
}

// Duration returns the wall-clock length of the run.
func (s *RunSummary) Duration() time.Duration {
	if s.EndedAt.IsZero() {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}
