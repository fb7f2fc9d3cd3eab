package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/northgate-labs/docsync/internal/core/domain"
	"github.com/northgate-labs/docsync/internal/core/ports/driven"
	"github.com/northgate-labs/docsync/internal/core/ports/driving"
	"github.com/northgate-labs/docsync/internal/logger"
)

// DeltaSyncOrchestrator walks the change feed of each watched collection
// and feeds every change record through the document pipeline.
//
// Cursor semantics: no persisted cursor means full enumeration; an
// applied page's delta token is persisted as soon as the source hands it
// over, so an interrupted cycle resumes from the last completed walk
// rather than repeating everything.
type DeltaSyncOrchestrator struct {
	collections []domain.Collection
	byID        map[string]domain.Collection
	source      driven.ContentSource
	cursors     driven.CursorStore
	pipeline    driving.DocumentPipeline
	log         *logger.Logger

	mu     sync.Mutex
	active map[string]*driving.SyncStatus
}

var _ driving.SyncOrchestrator = (*DeltaSyncOrchestrator)(nil)

// NewDeltaSyncOrchestrator creates an orchestrator over the given
// watched collections.
func NewDeltaSyncOrchestrator(
	collections []domain.Collection,
	source driven.ContentSource,
	cursors driven.CursorStore,
	pipeline driving.DocumentPipeline,
	log *logger.Logger,
) *DeltaSyncOrchestrator {
	byID := make(map[string]domain.Collection, len(collections))
	for _, coll := range collections {
		byID[coll.ID()] = coll
	}
	return &DeltaSyncOrchestrator{
		collections: collections,
		byID:        byID,
		source:      source,
		cursors:     cursors,
		pipeline:    pipeline,
		log:         log.With("service", "sync"),
		active:      make(map[string]*driving.SyncStatus),
	}
}

// Sync runs one delta cycle for the collection. At most one cycle per
// collection runs at a time; a second caller gets ErrSyncInProgress.
func (o *DeltaSyncOrchestrator) Sync(ctx context.Context, collectionID string) error {
	coll, ok := o.byID[collectionID]
	if !ok {
		return fmt.Errorf("collection %q: %w", collectionID, domain.ErrNotFound)
	}

	status, err := o.begin(collectionID)
	if err != nil {
		return err
	}
	defer o.finish(collectionID)

	log := o.log.With("collection_id", collectionID)

	link := ""
	state, err := o.cursors.Get(ctx, collectionID)
	switch {
	case err == nil:
		link = state.Cursor
		log.Info("starting delta sync", "last_sync", state.LastSync)
	case errors.Is(err, domain.ErrNotFound):
		log.Info("no cursor persisted, performing full enumeration")
	default:
		return fmt.Errorf("load cursor: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := o.source.Changes(ctx, coll, link)
		if err != nil {
			// The cursor stays where it was; the next cycle retries the
			// same window.
			return fmt.Errorf("fetch changes: %w", err)
		}

		for _, change := range page.Items {
			if err := o.apply(ctx, change); err != nil {
				o.mu.Lock()
				status.ErrorCount++
				o.mu.Unlock()
				log.Warn("change record failed, skipping",
					"item_id", change.Ref.ItemID,
					"error", err,
				)
				continue
			}
			o.mu.Lock()
			status.ItemsProcessed++
			o.mu.Unlock()
		}

		if page.DeltaLink != "" {
			save := domain.SyncState{
				CollectionID: collectionID,
				Cursor:       page.DeltaLink,
				LastSync:     time.Now().UTC(),
			}
			if err := o.cursors.Save(ctx, save); err != nil {
				log.Error("failed to persist cursor", "error", err)
			}
		}

		if page.NextLink == "" {
			break
		}
		link = page.NextLink
	}

	o.mu.Lock()
	processed, failed := status.ItemsProcessed, status.ErrorCount
	o.mu.Unlock()
	log.Info("delta sync complete", "processed", processed, "failed", failed)
	return nil
}

// SyncAll runs one cycle for every watched collection in order. A failed
// collection is logged and does not stop the rest; the combined error is
// returned at the end.
func (o *DeltaSyncOrchestrator) SyncAll(ctx context.Context) error {
	var errs []error
	for _, coll := range o.collections {
		if err := o.Sync(ctx, coll.ID()); err != nil {
			o.log.Error("collection sync failed", "collection_id", coll.ID(), "error", err)
			errs = append(errs, fmt.Errorf("collection %s: %w", coll.ID(), err))
		}
	}
	return errors.Join(errs...)
}

// Status reports progress for the collection. A collection with no cycle
// in flight reports an idle status.
func (o *DeltaSyncOrchestrator) Status(_ context.Context, collectionID string) (*driving.SyncStatus, error) {
	if _, ok := o.byID[collectionID]; !ok {
		return nil, fmt.Errorf("collection %q: %w", collectionID, domain.ErrNotFound)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if status, ok := o.active[collectionID]; ok {
		copied := *status
		return &copied, nil
	}
	return &driving.SyncStatus{CollectionID: collectionID}, nil
}

// apply routes one change record through the pipeline.
func (o *DeltaSyncOrchestrator) apply(ctx context.Context, change domain.ItemChange) error {
	if change.Type == domain.ChangeDeleted {
		return o.pipeline.Delete(ctx, change.Ref.DocumentID())
	}
	if change.IsFolder {
		return nil
	}
	return o.pipeline.Process(ctx, change.Ref)
}

func (o *DeltaSyncOrchestrator) begin(collectionID string) (*driving.SyncStatus, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, running := o.active[collectionID]; running {
		return nil, fmt.Errorf("collection %s: %w", collectionID, domain.ErrSyncInProgress)
	}
	status := &driving.SyncStatus{CollectionID: collectionID, Running: true}
	o.active[collectionID] = status
	return status, nil
}

func (o *DeltaSyncOrchestrator) finish(collectionID string) {
	o.mu.Lock()
	delete(o.active, collectionID)
	o.mu.Unlock()
}
