// Package memory provides an in-process vector store using brute-force
// cosine similarity. Nothing survives the process; it backs tests and
// throwaway sessions.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

// Store keeps entries in a map keyed by chunk ID.
type Store struct {
	mu      sync.RWMutex
	meta    domain.IndexMeta
	entries map[string]domain.Entry
	order   []string // insertion order, for stable iteration
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{entries: make(map[string]domain.Entry)}
}

func (s *Store) Init(_ context.Context, meta domain.IndexMeta) error {
	if meta.Dimension <= 0 {
		return fmt.Errorf("%w: dimension %d", domain.ErrInvalidInput, meta.Dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meta.EmbedderID != "" && s.meta.EmbedderID != meta.EmbedderID {
		return fmt.Errorf("%w: index has %q, embedder is %q", domain.ErrEmbedderMismatch, s.meta.EmbedderID, meta.EmbedderID)
	}
	s.meta = meta
	return nil
}

func (s *Store) Upsert(_ context.Context, entries []domain.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if len(e.Vector) != s.meta.Dimension {
			return fmt.Errorf("%w: vector dimension %d, index dimension %d", domain.ErrInvalidInput, len(e.Vector), s.meta.Dimension)
		}
		if _, ok := s.entries[e.Chunk.ID]; !ok {
			s.order = append(s.order, e.Chunk.ID)
		}
		s.entries[e.Chunk.ID] = e
	}
	return nil
}

func (s *Store) Search(_ context.Context, vector []float32, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]domain.SearchResult, 0, len(s.order))
	for _, id := range s.order {
		e := s.entries[id]
		results = append(results, domain.SearchResult{
			Chunk: e.Chunk,
			Score: vectorstore.Cosine(vector, e.Vector),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

func (s *Store) Count(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.entries)), nil
}

func (s *Store) Close() error { return nil }

var _ domain.VectorStore = (*Store)(nil)
