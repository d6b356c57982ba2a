// Package service orchestrates the ingestion and question-answering
// pipelines over the loader, chunker, embedder, vector store and
// answer synthesizer.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"docqa/internal/answer"
	"docqa/internal/domain"
)

// Service wires the pipeline components together. The synthesizer may
// be nil, in which case ask degrades to retrieval-only answers.
type Service struct {
	loader      domain.Loader
	chunker     domain.Chunker
	embedder    domain.Embedder
	store       domain.VectorStore
	synthesizer *answer.Synthesizer
	log         *slog.Logger

	workers int
	topK    int

	initOnce sync.Once
	initErr  error
}

// Config holds the service's tunables.
type Config struct {
	Workers int
	TopK    int
}

// New assembles a service from its components.
func New(loader domain.Loader, chunker domain.Chunker, embedder domain.Embedder, store domain.VectorStore, synthesizer *answer.Synthesizer, log *slog.Logger, cfg Config) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		loader:      loader,
		chunker:     chunker,
		embedder:    embedder,
		store:       store,
		synthesizer: synthesizer,
		log:         log,
		workers:     cfg.Workers,
		topK:        cfg.TopK,
	}
}

// ensureInit probes the embedder's dimension and binds the store to the
// embedder identity. Done once per service; an index built with a
// different model surfaces ErrEmbedderMismatch here, before any data
// moves.
func (s *Service) ensureInit(ctx context.Context) error {
	s.initOnce.Do(func() {
		dim, err := s.embedder.Dimension(ctx)
		if err != nil {
			s.initErr = err
			return
		}
		s.initErr = s.store.Init(ctx, domain.IndexMeta{
			EmbedderID: s.embedder.ModelID(),
			Dimension:  dim,
		})
	})
	return s.initErr
}

// IngestDir walks dir, chunks and embeds every supported document and
// upserts the results into the store. Files that fail to decode,
// extract or embed are skipped and reported; a store failure aborts
// the run.
func (s *Service) IngestDir(ctx context.Context, dir string) (domain.IngestReport, error) {
	var report domain.IngestReport
	if err := s.ensureInit(ctx); err != nil {
		return report, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex // guards report
		wg       sync.WaitGroup
		fatal    error
		fatalSet sync.Once
	)
	abort := func(err error) {
		fatalSet.Do(func() {
			fatal = err
			cancel()
		})
	}

	docs := make(chan domain.Document)
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for doc := range docs {
				n, err := s.ingestDocument(ctx, doc)
				mu.Lock()
				if err == nil {
					report.Documents++
					report.Chunks += n
				} else if errors.Is(err, domain.ErrIndexUnavailable) {
					abort(err)
				} else {
					s.log.Warn("skipping document", "path", doc.Path, "error", err)
					report.Skipped = append(report.Skipped, domain.SkippedFile{Path: doc.Path, Reason: err.Error()})
				}
				mu.Unlock()
			}
		}()
	}

	skipped, walkErr := s.loader.Walk(ctx, dir, func(doc domain.Document) error {
		select {
		case docs <- doc:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	close(docs)
	wg.Wait()

	mu.Lock()
	report.Skipped = append(report.Skipped, skipped...)
	mu.Unlock()

	if fatal != nil {
		return report, fatal
	}
	if walkErr != nil && !errors.Is(walkErr, context.Canceled) {
		return report, walkErr
	}
	return report, ctx.Err()
}

// ingestDocument chunks one document, embeds the chunks in batches and
// upserts them. Whitespace-only chunks never reach the embedder; they
// carry no searchable content and the embedder rejects blank input.
// Returns the number of chunks written.
func (s *Service) ingestDocument(ctx context.Context, doc domain.Document) (int, error) {
	var chunks []domain.Chunk
	for _, c := range s.chunker.Chunk(doc) {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		chunks = append(chunks, c)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed %s: %w", doc.Path, err)
	}

	entries := make([]domain.Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = domain.Entry{Chunk: c, Vector: vectors[i]}
	}
	if err := s.store.Upsert(ctx, entries); err != nil {
		return 0, err
	}
	s.log.Debug("ingested document", "path", doc.Path, "format", doc.Format.String(), "chunks", len(chunks))
	return len(chunks), nil
}

// Query embeds the question and returns the k most similar chunks,
// best first. k <= 0 uses the configured default. An empty index
// yields an empty result.
func (s *Service) Query(ctx context.Context, question string, k int) ([]domain.SearchResult, error) {
	if err := s.ensureInit(ctx); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = s.topK
	}
	vector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, err
	}
	return s.store.Search(ctx, vector, k)
}

// Ask retrieves the most relevant chunks and asks the completion
// service for a synthesized answer. When synthesis is unavailable the
// answer carries the retrieved sources alone, never an error: absence
// of the model runtime must not block retrieval.
func (s *Service) Ask(ctx context.Context, question string, k int) (domain.Answer, error) {
	results, err := s.Query(ctx, question, k)
	if err != nil {
		return domain.Answer{}, err
	}
	ans := domain.Answer{Sources: results}
	if len(results) == 0 {
		return ans, nil
	}
	if s.synthesizer == nil {
		return ans, nil
	}
	text, err := s.synthesizer.Synthesize(ctx, question, results)
	if err != nil {
		if errors.Is(err, domain.ErrSynthesisUnavailable) {
			s.log.Warn("synthesis unavailable, returning snippets", "error", err)
			return ans, nil
		}
		return domain.Answer{}, err
	}
	ans.Text = text
	ans.Synthesized = true
	return ans, nil
}

// Count reports the number of chunks in the index.
func (s *Service) Count(ctx context.Context) (uint64, error) {
	if err := s.ensureInit(ctx); err != nil {
		return 0, err
	}
	return s.store.Count(ctx)
}
