// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - ContentSource: Fetches items, content, and the change feed
//   - TextExtractor: Produces page-marked text from raw bytes
//   - EmbeddingService: Generates vector embeddings
//   - PermissionService: Reads item grants and user group memberships
//   - IndexStore: Upserts, deletes, and queries index records
//   - CursorStore: Persists delta cursors per collection
//   - Tokenizer: Encodes and decodes text for the token-budget chunker
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
