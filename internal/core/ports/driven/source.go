package driven

import (
	"context"

	"github.com/northgate-labs/docsync/internal/core/domain"
)

// ContentSource fetches items and the change feed from the document
// management backend.
type ContentSource interface {
	// GetItem fetches metadata for one drive item.
	// Fields the backend omits are left at their zero value.
	GetItem(ctx context.Context, ref domain.ItemRef) (*domain.ItemMetadata, error)

	// GetContent downloads the raw bytes of one drive item.
	GetContent(ctx context.Context, ref domain.ItemRef) ([]byte, error)

	// Changes fetches one page of the collection's change feed.
	//
	// link is either empty (enumerate the full current state of the
	// collection), a persisted delta cursor (fetch changes since that
	// point), or a continuation reference from a previous page. The
	// backend treats cursor and continuation links uniformly.
	Changes(ctx context.Context, coll domain.Collection, link string) (*domain.ChangePage, error)

	// Close releases resources.
	Close() error
}
