// Package memory provides in-memory implementations of storage ports,
// used in tests and for running without a data directory.
package memory

import (
	"context"
	"sync"

	"github.com/northgate-labs/docsync/internal/core/domain"
	"github.com/northgate-labs/docsync/internal/core/ports/driven"
)

// CursorStore is an in-memory implementation of driven.CursorStore.
type CursorStore struct {
	mu     sync.RWMutex
	states map[string]domain.SyncState
}

var _ driven.CursorStore = (*CursorStore)(nil)

// NewCursorStore creates an empty in-memory cursor store.
func NewCursorStore() *CursorStore {
	return &CursorStore{
		states: make(map[string]domain.SyncState),
	}
}

// Save stores or updates sync state for a collection.
func (s *CursorStore) Save(_ context.Context, state domain.SyncState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.CollectionID] = state
	return nil
}

// Get retrieves sync state for a collection.
func (s *CursorStore) Get(_ context.Context, collectionID string) (*domain.SyncState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[collectionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := state
	return &copied, nil
}

// Delete removes sync state for a collection.
func (s *CursorStore) Delete(_ context.Context, collectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, collectionID)
	return nil
}
