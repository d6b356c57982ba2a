package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func entry(id string, vec ...float32) domain.Entry {
	return domain.Entry{Chunk: domain.Chunk{ID: id, Source: "a.txt", Text: "t " + id}, Vector: vec}
}

func openStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	require.NoError(t, s.Init(context.Background(), domain.IndexMeta{EmbedderID: "ollama/test", Dimension: 2}))
	return s
}

func TestInit_RejectsMismatchedEmbedder(t *testing.T) {
	s := openStore(t)
	err := s.Init(context.Background(), domain.IndexMeta{EmbedderID: "ollama/other", Dimension: 2})
	assert.ErrorIs(t, err, domain.ErrEmbedderMismatch)
}

func TestInit_RejectsBadDimension(t *testing.T) {
	err := NewStore().Init(context.Background(), domain.IndexMeta{EmbedderID: "x", Dimension: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUpsert_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	require.NoError(t, s.Upsert(ctx, []domain.Entry{entry("a", 1, 0), entry("b", 0, 1)}))
	require.NoError(t, s.Upsert(ctx, []domain.Entry{entry("a", 1, 0)}))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
}

func TestUpsert_RejectsWrongDimension(t *testing.T) {
	s := openStore(t)
	err := s.Upsert(context.Background(), []domain.Entry{entry("a", 1, 0, 0)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSearch_RanksBySimilarity(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	require.NoError(t, s.Upsert(ctx, []domain.Entry{
		entry("exact", 1, 0),
		entry("orthogonal", 0, 1),
		entry("close", 0.9, 0.1),
	}))

	results, err := s.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "exact", results[0].Chunk.ID)
	assert.Equal(t, "close", results[1].Chunk.ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearch_EmptyIndex(t *testing.T) {
	s := openStore(t)
	results, err := s.Search(context.Background(), []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_KLargerThanIndex(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	require.NoError(t, s.Upsert(ctx, []domain.Entry{entry("a", 1, 0)}))

	results, err := s.Search(ctx, []float32{1, 0}, 100)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearch_InvalidK(t *testing.T) {
	s := openStore(t)
	_, err := s.Search(context.Background(), []float32{1, 0}, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSearch_TieBrokenByID(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	require.NoError(t, s.Upsert(ctx, []domain.Entry{
		entry("bbb", 1, 0),
		entry("aaa", 1, 0),
	}))

	results, err := s.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "aaa", results[0].Chunk.ID)
	assert.Equal(t, "bbb", results[1].Chunk.ID)
}
