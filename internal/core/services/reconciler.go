package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/northgate-labs/docsync/internal/core/domain"
	"github.com/northgate-labs/docsync/internal/core/ports/driven"
	"github.com/northgate-labs/docsync/internal/logger"
)

// indexBatchSize bounds the size of one upsert or delete request.
const indexBatchSize = 100

// previousIDsLimit bounds the pre-reconcile chunk-ID query. Documents do
// not produce anywhere near this many chunks in practice.
const previousIDsLimit = 1000

// ChunkReconciler moves the index from a document's previous chunk set
// to its new one without a visibility gap: new chunks are upserted in
// full before any stale chunk is deleted, so the worst case is a brief
// window of duplicated overlapping content, never absence.
type ChunkReconciler struct {
	index driven.IndexStore
	log   *logger.Logger
}

// NewChunkReconciler creates a reconciler over the given index store.
func NewChunkReconciler(index driven.IndexStore, log *logger.Logger) *ChunkReconciler {
	return &ChunkReconciler{
		index: index,
		log:   log.With("service", "reconciler"),
	}
}

// PreviousIDs returns the chunk identifiers currently live in the index
// for the document. Callers capture this before upserting so only truly
// stale chunks are removed afterwards.
func (r *ChunkReconciler) PreviousIDs(ctx context.Context, documentID string) ([]string, error) {
	ids, err := r.index.ChunkIDs(ctx, documentID, previousIDsLimit)
	if err != nil {
		return nil, fmt.Errorf("query chunk ids: %w", err)
	}
	return ids, nil
}

// Reconcile upserts all new chunks, then deletes exactly the previously
// indexed chunks that are not part of the new set.
//
// Upsert completes before any deletion begins. A failed record within an
// upsert batch is logged as a warning and does not abort the rest of the
// batch; only transport-level failures are returned.
func (r *ChunkReconciler) Reconcile(ctx context.Context, documentID string, previousIDs []string, chunks []domain.Chunk) error {
	for start := 0; start < len(chunks); start += indexBatchSize {
		end := start + indexBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		results, err := r.index.Upsert(ctx, chunks[start:end])
		if err != nil {
			return fmt.Errorf("upsert chunks: %w", err)
		}
		for _, res := range results {
			if !res.Succeeded {
				r.log.Warn("index upsert failed for record",
					"document_id", documentID,
					"chunk_id", res.ID,
					"status", res.StatusCode,
					"error", res.Message,
				)
			}
		}
	}

	newIDs := make(map[string]struct{}, len(chunks))
	for _, chunk := range chunks {
		newIDs[chunk.ID] = struct{}{}
	}

	var stale []string
	for _, id := range previousIDs {
		if _, ok := newIDs[id]; !ok {
			stale = append(stale, id)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	sort.Strings(stale)

	r.log.Info("removing stale chunks", "document_id", documentID, "count", len(stale))
	for start := 0; start < len(stale); start += indexBatchSize {
		end := start + indexBatchSize
		if end > len(stale) {
			end = len(stale)
		}
		if err := r.index.Delete(ctx, stale[start:end]); err != nil {
			return fmt.Errorf("delete stale chunks: %w", err)
		}
	}
	return nil
}

// DeleteDocument purges every chunk belonging to the document.
//
// There is no replacement content, so this is not wrapped in the
// upsert-first ordering. Pages of identifiers are queried and deleted
// until a page comes back short or empty, which bounds total work.
func (r *ChunkReconciler) DeleteDocument(ctx context.Context, documentID string) error {
	deleted := 0
	for {
		ids, err := r.index.ChunkIDs(ctx, documentID, indexBatchSize)
		if err != nil {
			return fmt.Errorf("query chunk ids: %w", err)
		}
		if len(ids) == 0 {
			break
		}
		if err := r.index.Delete(ctx, ids); err != nil {
			return fmt.Errorf("delete chunks: %w", err)
		}
		deleted += len(ids)
		if len(ids) < indexBatchSize {
			break
		}
	}

	r.log.Info("purged document from index", "document_id", documentID, "chunks", deleted)
	return nil
}
