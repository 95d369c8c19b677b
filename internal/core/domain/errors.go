package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a file type outside the allow-list.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrSizeLimit indicates a file larger than the configured threshold.
	ErrSizeLimit = errors.New("size limit exceeded")

	// ErrTransient marks a collaborator failure worth retrying,
	// such as a rate limit or a server error.
	ErrTransient = errors.New("transient failure")

	// ErrRunInProgress indicates another pipeline run holds the run lock.
	ErrRunInProgress = errors.New("run in progress")

	// Run-scoped errors.

	// ErrStartup indicates the metadata store could not be reached.
	// A run that hits this processes nothing.
	ErrStartup = errors.New("startup failed")

	// ErrEnumeration indicates a root or folder branch failed to list.
	// The branch contributes zero files and the run continues.
	ErrEnumeration = errors.New("enumeration failed")

	// ErrReconcileSkipped indicates a run finished without deletion
	// reconciliation because enumeration was incomplete. Files deleted
	// upstream stay indexed until a run lists every root.
	ErrReconcileSkipped = errors.New("deletion reconciliation skipped")

	// File-scoped errors. None of these abort a run.

	// ErrDownload indicates the file content could not be retrieved.
	ErrDownload = errors.New("download failed")

	// ErrExtraction indicates text or structure could not be read from the file.
	ErrExtraction = errors.New("extraction failed")

	// ErrNoContent indicates extraction produced no indexable text.
	ErrNoContent = errors.New("no content")

	// ErrAnalyzer indicates the document analyzer reported an error.
	ErrAnalyzer = errors.New("analyzer error")

	// ErrAnalyzerTimeout indicates analysis exceeded its deadline.
	ErrAnalyzerTimeout = errors.New("analyzer timeout")

	// ErrAnalysisAbandoned is returned to an analyzer that keeps uploading
	// images after its deadline expired.
	ErrAnalysisAbandoned = errors.New("analysis abandoned")

	// ErrIndexWrite indicates the vector index or metadata store rejected a write.
	ErrIndexWrite = errors.New("index write failed")

	// ErrBlobDelete indicates an image object could not be removed.
	ErrBlobDelete = errors.New("blob deletion failed")

	// ErrPathCollision indicates two file ids mapped to the same local path.
	ErrPathCollision = errors.New("path collision")
)
