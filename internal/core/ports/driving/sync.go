package driving

import "context"

// SyncStatus reports progress of a running sync cycle.
type SyncStatus struct {
	// CollectionID identifies the collection being synced.
	CollectionID string

	// Running is true while a cycle is in flight.
	Running bool

	// ItemsProcessed counts change records applied so far.
	ItemsProcessed int

	// ErrorCount counts records that failed and were skipped.
	ErrorCount int
}

// SyncOrchestrator drives delta-sync cycles over the watched collections.
type SyncOrchestrator interface {
	// Sync runs one delta cycle for a collection.
	// Returns domain.ErrSyncInProgress if a cycle is already running for
	// that collection.
	Sync(ctx context.Context, collectionID string) error

	// SyncAll runs one cycle for every watched collection. A failure in
	// one collection does not stop the others.
	SyncAll(ctx context.Context) error

	// Status returns the current status for a collection.
	Status(ctx context.Context, collectionID string) (*SyncStatus, error)
}
