package domain

import "errors"

// Error taxonomy for the ingestion and retrieval pipeline. Per-file and
// per-chunk errors are logged and skipped; index errors abort the run.
var (
	// ErrDecoding indicates a text file that is not valid UTF-8.
	ErrDecoding = errors.New("invalid text encoding")

	// ErrExtraction indicates a corrupt or unreadable source file,
	// typically a broken or encrypted PDF.
	ErrExtraction = errors.New("text extraction failed")

	// ErrEmbedding indicates malformed input to the embedder.
	ErrEmbedding = errors.New("embedding failed")

	// ErrIndexUnavailable indicates the backing vector store cannot be
	// opened or written. Fatal to the run; never silently recovered.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrEmbedderMismatch indicates the index was built with a
	// different embedding model than the one configured now.
	ErrEmbedderMismatch = errors.New("index embedder mismatch")

	// ErrSynthesisUnavailable indicates the completion service is
	// unreachable or failed. Non-fatal; callers fall back to snippets.
	ErrSynthesisUnavailable = errors.New("answer synthesis unavailable")

	// ErrInvalidInput indicates malformed caller input.
	ErrInvalidInput = errors.New("invalid input")
)
