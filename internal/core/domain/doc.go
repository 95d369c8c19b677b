// Package domain defines the core business entities for driveindex.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - FileRecord: A metadata row tracking one source file
//   - SourceEntry: An enumerated file as reported by the source
//   - EmbeddingRecord: A vector index row derived from a file
//   - FileOutcome / RunSummary: What happened to each file in a run
//   - PathMap: Bidirectional file id to local path mapping
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
