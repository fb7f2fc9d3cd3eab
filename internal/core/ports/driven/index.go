package driven

import (
	"context"

	"github.com/northgate-labs/docsync/internal/core/domain"
)

// UpsertResult is the per-record outcome of an index upsert batch.
// A failed record is surfaced here rather than as an error so one bad
// record does not abort the rest of its batch.
type UpsertResult struct {
	// ID is the record key.
	ID string

	// Succeeded reports whether the record was accepted.
	Succeeded bool

	// StatusCode is the backend's per-record status.
	StatusCode int

	// Message describes the failure, when Succeeded is false.
	Message string
}

// IndexStore persists chunks in the searchable index.
type IndexStore interface {
	// Upsert merges-or-inserts the given chunks by identifier.
	// Returns one result per record; the error covers transport-level
	// failures only.
	Upsert(ctx context.Context, chunks []domain.Chunk) ([]UpsertResult, error)

	// Delete removes records by identifier. Missing identifiers are not
	// an error.
	Delete(ctx context.Context, ids []string) error

	// ChunkIDs returns up to limit identifiers of records belonging to
	// the document, in deterministic order.
	ChunkIDs(ctx context.Context, documentID string, limit int) ([]string, error)

	// Close releases resources.
	Close() error
}
