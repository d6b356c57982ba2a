// Package qdrant implements the vector store against a Qdrant server
// over gRPC. The collection is created on first use with cosine
// distance; chunk text and provenance travel in the point payload.
//
// Qdrant has no per-collection metadata slot, so the embedder identity
// is pinned through a reserved meta point holding the embedder id in
// its payload. Searches and counts exclude that point by id.
package qdrant

import (
	"context"
	"fmt"
	"sort"

	"github.com/qdrant/go-client/qdrant"

	"docqa/internal/domain"
)

// metaPointID is the reserved point carrying the index metadata. Chunk
// IDs are UUIDv5 and cannot collide with it.
const metaPointID = "00000000-0000-4000-8000-000000000000"

// Store is a Qdrant-backed vector store.
type Store struct {
	client     *qdrant.Client
	collection string
}

// Config contains connection details for a Qdrant server.
type Config struct {
	Host       string
	Port       int
	Collection string
}

// Open connects to the Qdrant server. Connection failures surface as
// ErrIndexUnavailable.
func Open(cfg Config) (*Store, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		cfg.Collection = "notes"
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: cfg.Host,
		Port: cfg.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	return &Store{client: client, collection: cfg.Collection}, nil
}

// Init creates the collection if it does not exist, or validates an
// existing one against meta. A collection built with a different
// dimension or embedder identity is rejected rather than silently
// mixed.
func (s *Store) Init(ctx context.Context, meta domain.IndexMeta) error {
	if meta.Dimension <= 0 {
		return fmt.Errorf("%w: dimension %d", domain.ErrInvalidInput, meta.Dimension)
	}
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	if !exists {
		if err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: &qdrant.VectorsConfig{
				Config: &qdrant.VectorsConfig_Params{
					Params: &qdrant.VectorParams{
						Size:     uint64(meta.Dimension),
						Distance: qdrant.Distance_Cosine,
					},
				},
			},
		}); err != nil {
			return fmt.Errorf("%w: create collection: %v", domain.ErrIndexUnavailable, err)
		}
		return s.writeMeta(ctx, meta)
	}

	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("%w: collection info: %v", domain.ErrIndexUnavailable, err)
	}
	if size := collectionDimension(info); size != 0 && size != uint64(meta.Dimension) {
		return fmt.Errorf("%w: collection dimension %d, embedder dimension %d", domain.ErrEmbedderMismatch, size, meta.Dimension)
	}

	stored, ok, err := s.readMeta(ctx)
	if err != nil {
		return err
	}
	if ok {
		if stored.EmbedderID != meta.EmbedderID {
			return fmt.Errorf("%w: index has %q, embedder is %q", domain.ErrEmbedderMismatch, stored.EmbedderID, meta.EmbedderID)
		}
		return nil
	}
	return s.writeMeta(ctx, meta)
}

func (s *Store) readMeta(ctx context.Context) (domain.IndexMeta, bool, error) {
	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(metaPointID)},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return domain.IndexMeta{}, false, fmt.Errorf("%w: read meta: %v", domain.ErrIndexUnavailable, err)
	}
	if len(points) == 0 {
		return domain.IndexMeta{}, false, nil
	}
	meta := metaFromPayload(points[0].Payload)
	return meta, meta.EmbedderID != "", nil
}

// writeMeta upserts the reserved meta point. Its vector is all zeros so
// it scores 0 against any query even before the id filter applies.
func (s *Store) writeMeta(ctx context.Context, meta domain.IndexMeta) error {
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(metaPointID),
			Vectors: qdrant.NewVectors(make([]float32, meta.Dimension)...),
			Payload: qdrant.NewValueMap(map[string]any{
				"embedder_id": meta.EmbedderID,
				"dimension":   int64(meta.Dimension),
			}),
		}},
	})
	if err != nil {
		return fmt.Errorf("%w: write meta: %v", domain.ErrIndexUnavailable, err)
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, entries []domain.Entry) error {
	points := make([]*qdrant.PointStruct, len(entries))
	for i, e := range entries {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(e.Chunk.ID),
			Vectors: qdrant.NewVectors(e.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"text":     e.Chunk.Text,
				"source":   e.Chunk.Source,
				"position": int64(e.Chunk.Position),
				"offset":   int64(e.Chunk.Offset),
				"page":     int64(e.Chunk.Page),
			}),
		}
	}
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("%w: upsert: %v", domain.ErrIndexUnavailable, err)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}
	limit := uint64(k)
	resp, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Limit:          &limit,
		Query:          qdrant.NewQuery(vector...),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         excludeMetaFilter(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", domain.ErrIndexUnavailable, err)
	}

	results := make([]domain.SearchResult, 0, len(resp))
	for _, pt := range resp {
		id := ""
		if pt.Id != nil {
			if u, ok := pt.Id.PointIdOptions.(*qdrant.PointId_Uuid); ok {
				id = u.Uuid
			}
		}
		results = append(results, domain.SearchResult{
			Chunk: chunkFromPayload(id, pt.Payload),
			Score: float64(pt.Score),
		})
	}
	// qdrant already orders by score; re-sort for the deterministic
	// tie-break on chunk ID
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
	return results, nil
}

func (s *Store) Count(ctx context.Context) (uint64, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Filter:         excludeMetaFilter(),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: count: %v", domain.ErrIndexUnavailable, err)
	}
	return n, nil
}

func (s *Store) Close() error { return s.client.Close() }

func excludeMetaFilter() *qdrant.Filter {
	return &qdrant.Filter{
		MustNot: []*qdrant.Condition{qdrant.NewHasID(qdrant.NewIDUUID(metaPointID))},
	}
}

func collectionDimension(info *qdrant.CollectionInfo) uint64 {
	return info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
}

func chunkFromPayload(id string, payload map[string]*qdrant.Value) domain.Chunk {
	c := domain.Chunk{ID: id}
	for key, v := range payload {
		switch key {
		case "text":
			c.Text = v.GetStringValue()
		case "source":
			c.Source = v.GetStringValue()
		case "position":
			c.Position = int(v.GetIntegerValue())
		case "offset":
			c.Offset = int(v.GetIntegerValue())
		case "page":
			c.Page = int(v.GetIntegerValue())
		}
	}
	return c
}

func metaFromPayload(payload map[string]*qdrant.Value) domain.IndexMeta {
	var meta domain.IndexMeta
	for key, v := range payload {
		switch key {
		case "embedder_id":
			meta.EmbedderID = v.GetStringValue()
		case "dimension":
			meta.Dimension = int(v.GetIntegerValue())
		}
	}
	return meta
}

var _ domain.VectorStore = (*Store)(nil)
