// Package drive implements the document source over the Google Drive v3 API.
//
// Roots are shared drives, or folders found by name when no shared drive
// matches. Every call is throttled by a shared rate limiter and errors are
// mapped through google.WrapError so that rate limits and server errors
// are retried by the pipeline.
package drive
