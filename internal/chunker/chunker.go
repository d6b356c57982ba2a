package chunker

import (
	"strings"

	"docqa/internal/domain"
)

// Defaults match the original batch script's constants.
const (
	DefaultSize           = 800
	DefaultOverlap        = 200
	DefaultBoundaryWindow = 100
)

// WindowChunker splits text into fixed-size rune windows with overlap.
// When a boundary window is set, each cut is pulled back to the nearest
// paragraph, sentence or word boundary inside that window instead of
// severing mid-sentence; with a zero window the cuts are exact.
type WindowChunker struct {
	size    int
	overlap int
	window  int
}

// New creates a chunker with the given size, overlap and boundary search
// window, all in runes. Invalid values fall back to sane defaults; an
// overlap at or above the size is clamped to a quarter of the size.
func New(size, overlap, window int) *WindowChunker {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 4
	}
	if window < 0 {
		window = 0
	}
	return &WindowChunker{size: size, overlap: overlap, window: window}
}

// Chunk splits the document text into ordered chunks covering it fully.
// An empty document yields no chunks; one shorter than the chunk size
// yields exactly one. Consecutive chunks share at least the configured
// overlap (exactly, when no boundary window is set).
func (c *WindowChunker) Chunk(doc domain.Document) []domain.Chunk {
	if strings.TrimSpace(doc.Text) == "" {
		return nil
	}
	runes := []rune(doc.Text)

	var chunks []domain.Chunk
	start := 0
	position := 0
	for start < len(runes) {
		end := start + c.size
		if end >= len(runes) {
			end = len(runes)
		} else if c.window > 0 {
			end = c.snap(runes, start, end)
		}
		chunks = append(chunks, domain.Chunk{
			ID:       domain.ChunkID(doc.Path, position),
			Source:   doc.Path,
			Position: position,
			Offset:   start,
			Page:     doc.PageAt(start),
			Text:     string(runes[start:end]),
		})
		if end == len(runes) {
			break
		}
		start = end - c.overlap
		position++
	}
	return chunks
}

// snap searches backwards from the hard cutoff for a natural breakpoint:
// a paragraph break first, then a sentence end, then any whitespace. The
// snapped cut must still make progress past the overlap, otherwise the
// hard cutoff stands.
func (c *WindowChunker) snap(runes []rune, start, end int) int {
	low := end - c.window
	// never snap back into the overlap region
	if min := start + c.overlap + 1; low < min {
		low = min
	}
	if low >= end {
		return end
	}
	if i := lastParagraphBreak(runes, low, end); i > 0 {
		return i
	}
	if i := lastSentenceEnd(runes, low, end); i > 0 {
		return i
	}
	if i := lastSpace(runes, low, end); i > 0 {
		return i
	}
	return end
}

func lastParagraphBreak(runes []rune, low, end int) int {
	for i := end - 1; i > low; i-- {
		if runes[i] == '\n' && runes[i-1] == '\n' {
			return i + 1
		}
	}
	return 0
}

func lastSentenceEnd(runes []rune, low, end int) int {
	for i := end - 1; i >= low; i-- {
		if !isSentenceEnd(runes[i]) {
			continue
		}
		// terminator must close the sentence, not an abbreviation
		if i+1 == end || isSpace(runes[i+1]) {
			return i + 1
		}
	}
	return 0
}

func lastSpace(runes []rune, low, end int) int {
	for i := end - 1; i >= low; i-- {
		if isSpace(runes[i]) {
			return i + 1
		}
	}
	return 0
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
