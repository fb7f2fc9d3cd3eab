package driven

import (
	"context"

	"github.com/northgate-labs/docsync/internal/core/domain"
)

// CursorStore persists delta-sync progress, one record per collection.
type CursorStore interface {
	// Save stores or updates sync state. Each saved cursor supersedes
	// the previous one for the collection.
	Save(ctx context.Context, state domain.SyncState) error

	// Get retrieves sync state for a collection.
	// Returns domain.ErrNotFound when no cursor is persisted.
	Get(ctx context.Context, collectionID string) (*domain.SyncState, error)

	// Delete removes sync state for a collection, forcing a full
	// enumeration on the next cycle.
	Delete(ctx context.Context, collectionID string) error
}
