package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a file type the pipeline does not handle.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrNoContent indicates extraction produced no text. The document is
	// skipped, not failed.
	ErrNoContent = errors.New("no content extracted")

	// ErrSyncInProgress indicates a sync cycle is already running for the
	// collection. Cycles for the same collection never overlap.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured or unreachable.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)
