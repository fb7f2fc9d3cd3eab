// Package domain defines the core business entities for docsync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: One source item after download
//   - Chunk: The atomic indexable unit produced from a document
//   - Collection: A watched document library with its own delta cursor
//   - ItemChange / ChangePage: Change-feed records and pages
//   - Grant: One permission entry on an item
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
