// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - DocumentSource: Lists and downloads files from the remote store
//   - MetadataStore: The file_metadata table
//   - VectorIndex: A named collection of embedding records
//   - BlobStore: Object storage for extracted images
//   - Extractor: Cheap image detection and text extraction
//   - Analyzer: Summarises image-bearing documents
//   - SchedulerStore: Scheduler state and run history
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Without it, records are written without vectors.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
