package driving

import (
	"context"

	"github.com/northgate-labs/docsync/internal/core/domain"
)

// DocumentPipeline processes single documents end to end:
// download, extract, chunk, resolve ACLs, embed, reconcile.
type DocumentPipeline interface {
	// Process runs the full pipeline for one item. Items that cannot be
	// indexed (folders, unsupported types, empty extraction) are skipped
	// without error.
	Process(ctx context.Context, ref domain.ItemRef) error

	// Delete purges every index record belonging to the document.
	Delete(ctx context.Context, documentID string) error
}
