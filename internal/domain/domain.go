package domain

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Format identifies how a source file's text was extracted.
type Format int

const (
	FormatPlainText Format = iota
	FormatMarkdown
	FormatPDF
)

func (f Format) String() string {
	switch f {
	case FormatPlainText:
		return "text"
	case FormatMarkdown:
		return "markdown"
	case FormatPDF:
		return "pdf"
	}
	return "unknown"
}

// PageBreak marks where a new page starts within a document's extracted
// text. Offset is a rune offset into Document.Text.
type PageBreak struct {
	Offset int
	Page   int
}

// Document is a single source file with its extracted text. Documents are
// not persisted; only their chunks are.
type Document struct {
	Path   string
	Format Format
	Text   string
	Pages  []PageBreak // populated for PDFs, nil otherwise
}

// PageAt returns the page number containing the given rune offset, or 0
// when the document has no page information.
func (d Document) PageAt(offset int) int {
	page := 0
	for _, pb := range d.Pages {
		if pb.Offset > offset {
			break
		}
		page = pb.Page
	}
	return page
}

// Chunk is a contiguous span of text from one document, the atomic unit
// of retrieval.
type Chunk struct {
	ID       string
	Source   string
	Position int // sequence order within the document
	Offset   int // rune offset of the chunk start
	Page     int // 1-based page for PDFs, 0 otherwise
	Text     string
}

// Citation returns a human-readable provenance string for the chunk.
func (c Chunk) Citation() string {
	name := filepath.Base(c.Source)
	if c.Page > 0 {
		return fmt.Sprintf("%s p.%d", name, c.Page)
	}
	return fmt.Sprintf("%s #%d", name, c.Position)
}

// Excerpt returns the first n runes of the chunk text on a single line.
func (c Chunk) Excerpt(n int) string {
	s := strings.Join(strings.Fields(c.Text), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// ChunkID derives the deterministic identifier for a chunk from its
// source path and position. Re-ingesting an unchanged file yields the
// same IDs, so repeated upserts never create duplicates. The result is a
// UUID (v5 over the docqa URI) so it is directly usable as a Qdrant
// point ID.
func ChunkID(source string, position int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("docqa://%s#%d", source, position))).String()
}

// Entry is the persisted triple held by a vector store.
type Entry struct {
	Chunk  Chunk
	Vector []float32
}

// SearchResult is a matching chunk with its similarity score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Answer is the outcome of an ask operation. When the completion service
// is unavailable Synthesized is false and only Sources are populated.
type Answer struct {
	Text        string
	Synthesized bool
	Sources     []SearchResult
}

// SkippedFile records a file the ingestion run passed over and why.
type SkippedFile struct {
	Path   string
	Reason string
}

// IngestReport summarises one ingestion run.
type IngestReport struct {
	Documents int
	Chunks    int
	Skipped   []SkippedFile
}

// IndexMeta is the metadata a vector store persists alongside its
// entries. EmbedderID pins the embedding model identity; mixing vectors
// from different models silently corrupts similarity rankings, so stores
// reject a mismatch where they can detect one.
type IndexMeta struct {
	EmbedderID string
	Dimension  int
}

// Embedder converts text into a fixed-dimension vector. The same
// embedder (model and version) must be used for ingestion and query.
type Embedder interface {
	// Embed returns the vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch embeds several texts; results are positionally
	// equivalent to calling Embed on each.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension reports the vector size, probing the model if needed.
	Dimension(ctx context.Context) (int, error)
	// ModelID identifies the embedding model for index pinning.
	ModelID() string
}

// Chunker splits a document into ordered chunks covering its full text.
type Chunker interface {
	Chunk(doc Document) []Chunk
}

// Loader walks a source directory and yields extracted documents.
// Files that fail to decode or extract are skipped and reported, not
// fatal; an error returned by visit aborts the walk.
type Loader interface {
	Walk(ctx context.Context, dir string, visit func(Document) error) ([]SkippedFile, error)
}

// VectorStore persists entries and answers nearest-neighbour queries.
// Lifecycle: open (constructor) → Init → Upsert/Search → Close. A store
// assumes a single writer; two processes writing the same index is
// undefined behaviour.
type VectorStore interface {
	// Init creates the backing schema or validates persisted metadata
	// against meta. Returns ErrEmbedderMismatch when the index was
	// built with a different embedding model.
	Init(ctx context.Context, meta IndexMeta) error
	// Upsert inserts or replaces entries by chunk ID. Idempotent, and
	// safe under interleaved calls writing disjoint IDs.
	Upsert(ctx context.Context, entries []Entry) error
	// Search returns up to k entries nearest to vector by cosine
	// similarity, descending, ties broken by chunk ID. An empty index
	// yields an empty result, not an error. k <= 0 is ErrInvalidInput.
	Search(ctx context.Context, vector []float32, k int) ([]SearchResult, error)
	// Count reports the number of persisted entries.
	Count(ctx context.Context) (uint64, error)
	Close() error
}

// Completer is a text-in/text-out completion service, typically a local
// model runtime. Absence of this service must never block retrieval.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	ModelID() string
}
