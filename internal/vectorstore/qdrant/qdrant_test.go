package qdrant

import (
	"testing"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func TestChunkFromPayload(t *testing.T) {
	payload := qdrant.NewValueMap(map[string]any{
		"text":     "chunk body",
		"source":   "data/a.txt",
		"position": int64(3),
		"offset":   int64(120),
		"page":     int64(2),
	})

	c := chunkFromPayload("abc", payload)
	assert.Equal(t, domain.Chunk{
		ID:       "abc",
		Source:   "data/a.txt",
		Position: 3,
		Offset:   120,
		Page:     2,
		Text:     "chunk body",
	}, c)
}

func TestMetaFromPayload(t *testing.T) {
	payload := qdrant.NewValueMap(map[string]any{
		"embedder_id": "ollama/nomic-embed-text",
		"dimension":   int64(768),
	})

	meta := metaFromPayload(payload)
	assert.Equal(t, domain.IndexMeta{EmbedderID: "ollama/nomic-embed-text", Dimension: 768}, meta)

	assert.Equal(t, domain.IndexMeta{}, metaFromPayload(nil))
}

func TestMetaPointID(t *testing.T) {
	// must be a valid UUID for use as a point id, and can never collide
	// with a chunk id, which is always UUIDv5
	id, err := uuid.Parse(metaPointID)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Version(5), id.Version())
	assert.NotEqual(t, metaPointID, domain.ChunkID("any/source.txt", 0))
}

func TestExcludeMetaFilter(t *testing.T) {
	f := excludeMetaFilter()
	require.Len(t, f.MustNot, 1)
	cond := f.MustNot[0].GetHasId()
	require.NotNil(t, cond)
	require.Len(t, cond.HasId, 1)
	u, ok := cond.HasId[0].PointIdOptions.(*qdrant.PointId_Uuid)
	require.True(t, ok)
	assert.Equal(t, metaPointID, u.Uuid)
}
