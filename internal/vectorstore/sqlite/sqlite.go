// Package sqlite implements the persistent local vector store. Entries
// live in a single database file; similarity search is brute-force
// cosine over all stored vectors, which is plenty for a personal corpus.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	_ "modernc.org/sqlite"

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

const (
	metaEmbedderID = "embedder_id"
	metaDimension  = "dimension"
)

// Store persists entries in a SQLite database file. Single writer
// assumed; concurrent Upsert calls from one process are serialized.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex // guards writes
	meta domain.IndexMeta
}

// Open opens or creates the database at path. A store that cannot be
// opened is reported as ErrIndexUnavailable; silent data loss is worse
// than a visible failure.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	if _, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS meta (
            key   TEXT PRIMARY KEY,
            value TEXT NOT NULL
        );
        CREATE TABLE IF NOT EXISTS chunks (
            id       TEXT PRIMARY KEY,
            source   TEXT NOT NULL,
            position INTEGER NOT NULL,
            page     INTEGER NOT NULL,
            start_offset INTEGER NOT NULL,
            text     TEXT NOT NULL,
            vector   BLOB NOT NULL
        );
        CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks (source);
    `); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	return &Store{db: db}, nil
}

// Init validates the persisted index metadata against meta, or records
// it on a fresh database. An index built with a different embedding
// model is rejected rather than silently mixed.
func (s *Store) Init(ctx context.Context, meta domain.IndexMeta) error {
	if meta.Dimension <= 0 {
		return fmt.Errorf("%w: dimension %d", domain.ErrInvalidInput, meta.Dimension)
	}
	stored, ok, err := s.readMeta(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	if ok {
		if stored.EmbedderID != meta.EmbedderID {
			return fmt.Errorf("%w: index has %q, embedder is %q", domain.ErrEmbedderMismatch, stored.EmbedderID, meta.EmbedderID)
		}
		if stored.Dimension != meta.Dimension {
			return fmt.Errorf("%w: index dimension %d, embedder dimension %d", domain.ErrEmbedderMismatch, stored.Dimension, meta.Dimension)
		}
		s.meta = stored
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?), (?, ?)`,
		metaEmbedderID, meta.EmbedderID,
		metaDimension, strconv.Itoa(meta.Dimension),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	s.meta = meta
	return nil
}

func (s *Store) readMeta(ctx context.Context) (domain.IndexMeta, bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return domain.IndexMeta{}, false, err
	}
	defer rows.Close()

	var meta domain.IndexMeta
	found := false
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return domain.IndexMeta{}, false, err
		}
		switch k {
		case metaEmbedderID:
			meta.EmbedderID = v
			found = true
		case metaDimension:
			meta.Dimension, _ = strconv.Atoi(v)
			found = true
		}
	}
	return meta, found, rows.Err()
}

// Upsert inserts or replaces entries by chunk ID. Re-upserting the same
// id with the same content leaves the index unchanged in effect.
func (s *Store) Upsert(ctx context.Context, entries []domain.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		if s.meta.Dimension > 0 && len(e.Vector) != s.meta.Dimension {
			return fmt.Errorf("%w: vector dimension %d, index dimension %d", domain.ErrInvalidInput, len(e.Vector), s.meta.Dimension)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO chunks (id, source, position, page, start_offset, text, vector)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.Chunk.ID, e.Chunk.Source, e.Chunk.Position, e.Chunk.Page, e.Chunk.Offset, e.Chunk.Text,
			encodeVector(e.Vector),
		)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	return nil
}

// Search scans all entries and returns the k most similar by cosine
// similarity, ties broken by chunk ID.
func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, position, page, start_offset, text, vector FROM chunks`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var c domain.Chunk
		var blob []byte
		if err := rows.Scan(&c.ID, &c.Source, &c.Position, &c.Page, &c.Offset, &c.Text, &blob); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
		}
		results = append(results, domain.SearchResult{
			Chunk: c,
			Score: vectorstore.Cosine(vector, decodeVector(blob)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
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

func (s *Store) Count(ctx context.Context) (uint64, error) {
	var n uint64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	return n, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Vectors are stored as little-endian float32 blobs.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v
}

var _ domain.VectorStore = (*Store)(nil)
