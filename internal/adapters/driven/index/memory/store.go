// Package memory provides an in-memory index store, used in tests and
// for local development without a search service.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/northgate-labs/docsync/internal/core/domain"
	"github.com/northgate-labs/docsync/internal/core/ports/driven"
)

// Store is an in-memory implementation of driven.IndexStore.
type Store struct {
	mu     sync.RWMutex
	chunks map[string]domain.Chunk
}

var _ driven.IndexStore = (*Store)(nil)

// NewStore creates an empty in-memory index store.
func NewStore() *Store {
	return &Store{
		chunks: make(map[string]domain.Chunk),
	}
}

// Upsert merges-or-inserts the given chunks by identifier.
func (s *Store) Upsert(_ context.Context, chunks []domain.Chunk) ([]driven.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]driven.UpsertResult, 0, len(chunks))
	for _, chunk := range chunks {
		s.chunks[chunk.ID] = chunk
		results = append(results, driven.UpsertResult{
			ID:         chunk.ID,
			Succeeded:  true,
			StatusCode: 200,
		})
	}
	return results, nil
}

// Delete removes records by identifier.
func (s *Store) Delete(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.chunks, id)
	}
	return nil
}

// ChunkIDs returns up to limit identifiers for the document, sorted.
func (s *Store) ChunkIDs(_ context.Context, documentID string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, chunk := range s.chunks {
		if chunk.DocumentID == documentID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// Close releases resources.
func (s *Store) Close() error {
	return nil
}

// Get returns a stored chunk by identifier. Test helper.
func (s *Store) Get(id string) (domain.Chunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunk, ok := s.chunks[id]
	return chunk, ok
}

// Len returns the number of stored chunks. Test helper.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}
