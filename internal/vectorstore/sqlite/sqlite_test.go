package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func entry(id string, vec ...float32) domain.Entry {
	return domain.Entry{
		Chunk:  domain.Chunk{ID: id, Source: "data/a.txt", Position: 1, Offset: 10, Page: 2, Text: "body of " + id},
		Vector: vec,
	}
}

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db", "index.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	meta := domain.IndexMeta{EmbedderID: "ollama/test", Dimension: 2}

	s, path := openTemp(t)
	require.NoError(t, s.Init(ctx, meta))
	require.NoError(t, s.Upsert(ctx, []domain.Entry{entry("a", 1, 0), entry("b", 0, 1)}))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	require.NoError(t, s2.Init(ctx, meta))

	n, err := s2.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	results, err := s2.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Chunk.ID)
	assert.Equal(t, "data/a.txt", results[0].Chunk.Source)
	assert.Equal(t, 1, results[0].Chunk.Position)
	assert.Equal(t, 10, results[0].Chunk.Offset)
	assert.Equal(t, 2, results[0].Chunk.Page)
	assert.Equal(t, "body of a", results[0].Chunk.Text)
}

func TestInit_RejectsDifferentEmbedder(t *testing.T) {
	ctx := context.Background()
	s, path := openTemp(t)
	require.NoError(t, s.Init(ctx, domain.IndexMeta{EmbedderID: "ollama/one", Dimension: 2}))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	err = s2.Init(ctx, domain.IndexMeta{EmbedderID: "ollama/two", Dimension: 2})
	assert.ErrorIs(t, err, domain.ErrEmbedderMismatch)
}

func TestInit_RejectsDifferentDimension(t *testing.T) {
	ctx := context.Background()
	s, path := openTemp(t)
	require.NoError(t, s.Init(ctx, domain.IndexMeta{EmbedderID: "ollama/one", Dimension: 2}))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	err = s2.Init(ctx, domain.IndexMeta{EmbedderID: "ollama/one", Dimension: 3})
	assert.ErrorIs(t, err, domain.ErrEmbedderMismatch)
}

func TestUpsert_Idempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t)
	require.NoError(t, s.Init(ctx, domain.IndexMeta{EmbedderID: "e", Dimension: 2}))

	require.NoError(t, s.Upsert(ctx, []domain.Entry{entry("a", 1, 0)}))
	require.NoError(t, s.Upsert(ctx, []domain.Entry{entry("a", 1, 0)}))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestUpsert_ReplacesChangedContent(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t)
	require.NoError(t, s.Init(ctx, domain.IndexMeta{EmbedderID: "e", Dimension: 2}))

	old := entry("a", 1, 0)
	require.NoError(t, s.Upsert(ctx, []domain.Entry{old}))

	updated := old
	updated.Chunk.Text = "rewritten"
	updated.Vector = []float32{0, 1}
	require.NoError(t, s.Upsert(ctx, []domain.Entry{updated}))

	results, err := s.Search(ctx, []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "rewritten", results[0].Chunk.Text)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestUpsert_RejectsWrongDimension(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t)
	require.NoError(t, s.Init(ctx, domain.IndexMeta{EmbedderID: "e", Dimension: 2}))

	err := s.Upsert(ctx, []domain.Entry{entry("a", 1, 0, 0)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSearch_EmptyIndex(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t)
	require.NoError(t, s.Init(ctx, domain.IndexMeta{EmbedderID: "e", Dimension: 2}))

	results, err := s.Search(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_InvalidK(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t)
	require.NoError(t, s.Init(ctx, domain.IndexMeta{EmbedderID: "e", Dimension: 2}))

	_, err := s.Search(ctx, []float32{1, 0}, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestVectorRoundTrip(t *testing.T) {
	v := []float32{0.25, -1.5, 3.14159, 0}
	assert.Equal(t, v, decodeVector(encodeVector(v)))
}
