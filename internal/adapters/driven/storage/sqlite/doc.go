// Package sqlite provides a single-file SQLite implementation of the
// driven storage ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. One database connection backs three stores:
//
//   - MetadataStore: the file_metadata table
//   - VectorIndex: embedding records, one collection per index
//   - SchedulerStore: scheduled task state and run history
//
// # Schema
//
// The schema is managed through versioned migrations stored in the
// migrations/ directory.
//
// # Data Location
//
// By default, the database is stored at ~/.driveindex/data/index.db
//
// # Thread Safety
//
// All operations are safe for concurrent use. The store relies on SQLite
// WAL mode and a busy timeout for locking.
package sqlite
