package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northgate-labs/docsync/internal/core/domain"
	"github.com/northgate-labs/docsync/internal/core/ports/driven"
	"github.com/northgate-labs/docsync/internal/core/ports/driving"
	"github.com/northgate-labs/docsync/internal/logger"
)

// fakeChangeSource serves scripted change pages keyed by the link used
// to request them. The initial request uses the persisted cursor (or "").
type fakeChangeSource struct {
	mu        sync.Mutex
	pages     map[string]*domain.ChangePage
	requested []string
	err       error
}

var _ driven.ContentSource = (*fakeChangeSource)(nil)

func (f *fakeChangeSource) GetItem(context.Context, domain.ItemRef) (*domain.ItemMetadata, error) {
	return &domain.ItemMetadata{IsFile: true, Name: "doc.pdf"}, nil
}

func (f *fakeChangeSource) GetContent(context.Context, domain.ItemRef) ([]byte, error) {
	return []byte("content"), nil
}

func (f *fakeChangeSource) Changes(_ context.Context, _ domain.Collection, link string) (*domain.ChangePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, link)
	if f.err != nil {
		return nil, f.err
	}
	page, ok := f.pages[link]
	if !ok {
		return &domain.ChangePage{DeltaLink: "delta-empty"}, nil
	}
	return page, nil
}

func (f *fakeChangeSource) Close() error { return nil }

// fakePipeline records processed and deleted documents and can fail
// selected item IDs.
type fakePipeline struct {
	mu        sync.Mutex
	processed []string
	deleted   []string
	failItems map[string]bool
}

var _ driving.DocumentPipeline = (*fakePipeline)(nil)

func newFakePipeline() *fakePipeline {
	return &fakePipeline{failItems: make(map[string]bool)}
}

func (f *fakePipeline) Process(_ context.Context, ref domain.ItemRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failItems[ref.ItemID] {
		return errors.New("processing failed")
	}
	f.processed = append(f.processed, ref.ItemID)
	return nil
}

func (f *fakePipeline) Delete(_ context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, documentID)
	return nil
}

// memCursors is an in-memory CursorStore for orchestrator tests.
type memCursors struct {
	mu     sync.Mutex
	states map[string]domain.SyncState
	getErr error
}

var _ driven.CursorStore = (*memCursors)(nil)

func newMemCursors() *memCursors {
	return &memCursors{states: make(map[string]domain.SyncState)}
}

func (m *memCursors) Save(_ context.Context, state domain.SyncState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.CollectionID] = state
	return nil
}

func (m *memCursors) Get(_ context.Context, collectionID string) (*domain.SyncState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	state, ok := m.states[collectionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &state, nil
}

func (m *memCursors) Delete(_ context.Context, collectionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, collectionID)
	return nil
}

var testColl = domain.Collection{SiteID: "site1", DriveID: "drive1", Name: "HR Docs"}

func upsertChange(itemID string) domain.ItemChange {
	return domain.ItemChange{
		Ref:  domain.ItemRef{SiteID: "site1", DriveID: "drive1", ItemID: itemID},
		Type: domain.ChangeUpserted,
	}
}

func TestDeltaSyncOrchestrator_Sync_NoCursor_FullEnumeration(t *testing.T) {
	source := &fakeChangeSource{pages: map[string]*domain.ChangePage{
		"": {
			Items:     []domain.ItemChange{upsertChange("i1"), upsertChange("i2")},
			DeltaLink: "T1",
		},
	}}
	pipeline := newFakePipeline()
	cursors := newMemCursors()
	o := NewDeltaSyncOrchestrator([]domain.Collection{testColl}, source, cursors, pipeline, logger.NewNop())

	require.NoError(t, o.Sync(context.Background(), testColl.ID()))

	assert.Equal(t, []string{""}, source.requested, "absent cursor must request the full enumeration")
	assert.Equal(t, []string{"i1", "i2"}, pipeline.processed)

	state, err := cursors.Get(context.Background(), testColl.ID())
	require.NoError(t, err)
	assert.Equal(t, "T1", state.Cursor)
	assert.False(t, state.LastSync.IsZero())
}

func TestDeltaSyncOrchestrator_Sync_ExistingCursor_Resumes(t *testing.T) {
	source := &fakeChangeSource{pages: map[string]*domain.ChangePage{
		"T1": {Items: []domain.ItemChange{upsertChange("i3")}, DeltaLink: "T2"},
	}}
	pipeline := newFakePipeline()
	cursors := newMemCursors()
	require.NoError(t, cursors.Save(context.Background(), domain.SyncState{CollectionID: testColl.ID(), Cursor: "T1"}))

	o := NewDeltaSyncOrchestrator([]domain.Collection{testColl}, source, cursors, pipeline, logger.NewNop())
	require.NoError(t, o.Sync(context.Background(), testColl.ID()))

	assert.Equal(t, []string{"T1"}, source.requested)
	state, err := cursors.Get(context.Background(), testColl.ID())
	require.NoError(t, err)
	assert.Equal(t, "T2", state.Cursor)
}

func TestDeltaSyncOrchestrator_Sync_FollowsContinuationPages(t *testing.T) {
	source := &fakeChangeSource{pages: map[string]*domain.ChangePage{
		"":      {Items: []domain.ItemChange{upsertChange("i1")}, NextLink: "page2"},
		"page2": {Items: []domain.ItemChange{upsertChange("i2")}, DeltaLink: "T1"},
	}}
	pipeline := newFakePipeline()
	cursors := newMemCursors()
	o := NewDeltaSyncOrchestrator([]domain.Collection{testColl}, source, cursors, pipeline, logger.NewNop())

	require.NoError(t, o.Sync(context.Background(), testColl.ID()))

	assert.Equal(t, []string{"", "page2"}, source.requested)
	assert.Equal(t, []string{"i1", "i2"}, pipeline.processed)
}

func TestDeltaSyncOrchestrator_Sync_DeletionRoutedToPipeline(t *testing.T) {
	ref := domain.ItemRef{SiteID: "site1", DriveID: "drive1", ItemID: "gone"}
	source := &fakeChangeSource{pages: map[string]*domain.ChangePage{
		"": {
			Items:     []domain.ItemChange{{Ref: ref, Type: domain.ChangeDeleted}},
			DeltaLink: "T1",
		},
	}}
	pipeline := newFakePipeline()
	o := NewDeltaSyncOrchestrator([]domain.Collection{testColl}, source, newMemCursors(), pipeline, logger.NewNop())

	require.NoError(t, o.Sync(context.Background(), testColl.ID()))
	assert.Equal(t, []string{"site1_drive1_gone"}, pipeline.deleted)
	assert.Empty(t, pipeline.processed)
}

func TestDeltaSyncOrchestrator_Sync_FolderUpsertsSkipped(t *testing.T) {
	folder := domain.ItemChange{
		Ref:      domain.ItemRef{SiteID: "site1", DriveID: "drive1", ItemID: "dir"},
		Type:     domain.ChangeUpserted,
		IsFolder: true,
	}
	source := &fakeChangeSource{pages: map[string]*domain.ChangePage{
		"": {Items: []domain.ItemChange{folder, upsertChange("file")}, DeltaLink: "T1"},
	}}
	pipeline := newFakePipeline()
	o := NewDeltaSyncOrchestrator([]domain.Collection{testColl}, source, newMemCursors(), pipeline, logger.NewNop())

	require.NoError(t, o.Sync(context.Background(), testColl.ID()))
	assert.Equal(t, []string{"file"}, pipeline.processed)
}

func TestDeltaSyncOrchestrator_Sync_RecordFailureIsolated(t *testing.T) {
	source := &fakeChangeSource{pages: map[string]*domain.ChangePage{
		"": {
			Items:     []domain.ItemChange{upsertChange("ok1"), upsertChange("bad"), upsertChange("ok2")},
			DeltaLink: "T1",
		},
	}}
	pipeline := newFakePipeline()
	pipeline.failItems["bad"] = true
	cursors := newMemCursors()
	o := NewDeltaSyncOrchestrator([]domain.Collection{testColl}, source, cursors, pipeline, logger.NewNop())

	require.NoError(t, o.Sync(context.Background(), testColl.ID()), "record failures do not fail the cycle")
	assert.Equal(t, []string{"ok1", "ok2"}, pipeline.processed)

	// The cursor still advances: the failed record is caught by the next
	// full enumeration or reprocessing trigger, not by replaying the page.
	state, err := cursors.Get(context.Background(), testColl.ID())
	require.NoError(t, err)
	assert.Equal(t, "T1", state.Cursor)
}

func TestDeltaSyncOrchestrator_Sync_FetchError_CursorUnchanged(t *testing.T) {
	source := &fakeChangeSource{err: errors.New("service unavailable")}
	cursors := newMemCursors()
	require.NoError(t, cursors.Save(context.Background(), domain.SyncState{CollectionID: testColl.ID(), Cursor: "T1"}))

	o := NewDeltaSyncOrchestrator([]domain.Collection{testColl}, source, cursors, newFakePipeline(), logger.NewNop())
	require.Error(t, o.Sync(context.Background(), testColl.ID()))

	state, err := cursors.Get(context.Background(), testColl.ID())
	require.NoError(t, err)
	assert.Equal(t, "T1", state.Cursor, "a failed fetch must not advance the cursor")
}

func TestDeltaSyncOrchestrator_Sync_UnknownCollection(t *testing.T) {
	o := NewDeltaSyncOrchestrator(nil, &fakeChangeSource{}, newMemCursors(), newFakePipeline(), logger.NewNop())

	err := o.Sync(context.Background(), "nope_nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeltaSyncOrchestrator_Sync_ConcurrentCycleRejected(t *testing.T) {
	o := NewDeltaSyncOrchestrator([]domain.Collection{testColl}, &fakeChangeSource{}, newMemCursors(), newFakePipeline(), logger.NewNop())

	// Simulate an in-flight cycle by holding the active slot.
	_, err := o.begin(testColl.ID())
	require.NoError(t, err)
	defer o.finish(testColl.ID())

	err = o.Sync(context.Background(), testColl.ID())
	assert.ErrorIs(t, err, domain.ErrSyncInProgress)
}

func TestDeltaSyncOrchestrator_SyncAll_FailureDoesNotStopOthers(t *testing.T) {
	collA := domain.Collection{SiteID: "siteA", DriveID: "driveA"}
	collB := domain.Collection{SiteID: "siteB", DriveID: "driveB"}

	source := &fakeChangeSource{pages: map[string]*domain.ChangePage{
		"": {Items: []domain.ItemChange{
			{Ref: domain.ItemRef{SiteID: "siteB", DriveID: "driveB", ItemID: "b1"}, Type: domain.ChangeUpserted},
		}, DeltaLink: "TB"},
	}}
	cursors := newMemCursors()
	cursors.getErr = nil

	// collA's cursor load fails via a broken store wrapper
	broken := &failFirstCursors{inner: cursors, failFor: collA.ID()}
	pipeline := newFakePipeline()
	o := NewDeltaSyncOrchestrator([]domain.Collection{collA, collB}, source, broken, pipeline, logger.NewNop())

	err := o.SyncAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), collA.ID())
	assert.Equal(t, []string{"b1"}, pipeline.processed, "the healthy collection still syncs")
}

// failFirstCursors fails Get for one collection and delegates the rest.
type failFirstCursors struct {
	inner   driven.CursorStore
	failFor string
}

func (f *failFirstCursors) Save(ctx context.Context, state domain.SyncState) error {
	return f.inner.Save(ctx, state)
}

func (f *failFirstCursors) Get(ctx context.Context, collectionID string) (*domain.SyncState, error) {
	if collectionID == f.failFor {
		return nil, errors.New("store corrupt")
	}
	return f.inner.Get(ctx, collectionID)
}

func (f *failFirstCursors) Delete(ctx context.Context, collectionID string) error {
	return f.inner.Delete(ctx, collectionID)
}

func TestDeltaSyncOrchestrator_Status_IdleCollection(t *testing.T) {
	o := NewDeltaSyncOrchestrator([]domain.Collection{testColl}, &fakeChangeSource{}, newMemCursors(), newFakePipeline(), logger.NewNop())

	status, err := o.Status(context.Background(), testColl.ID())
	require.NoError(t, err)
	assert.False(t, status.Running)
	assert.Equal(t, testColl.ID(), status.CollectionID)

	_, err = o.Status(context.Background(), "unknown")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
