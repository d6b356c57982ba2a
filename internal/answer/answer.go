// Package answer builds a grounding prompt from retrieved chunks and
// asks a local completion service for a synthesized answer. Synthesis is
// an enhancement: every failure here maps to ErrSynthesisUnavailable and
// callers fall back to presenting the retrieved snippets alone.
package answer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"docqa/internal/domain"
)

// Synthesizer turns a question and retrieved chunks into a free-text
// answer grounded strictly in those chunks.
type Synthesizer struct {
	completer domain.Completer
	timeout   time.Duration
	maxChunks int
}

// New creates a synthesizer over the given completion service. A
// per-request timeout bounds a hung model server.
func New(completer domain.Completer, timeout time.Duration, maxChunks int) *Synthesizer {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if maxChunks <= 0 {
		maxChunks = 5
	}
	return &Synthesizer{completer: completer, timeout: timeout, maxChunks: maxChunks}
}

// Synthesize asks the completion service to answer the question using
// only the retrieved chunk texts.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, results []domain.SearchResult) (string, error) {
	if s.completer == nil {
		return "", fmt.Errorf("%w: no completion service configured", domain.ErrSynthesisUnavailable)
	}
	if len(results) > s.maxChunks {
		results = results[:s.maxChunks]
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.completer.Complete(ctx, BuildPrompt(question, results))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSynthesisUnavailable, err)
	}
	return strings.TrimSpace(text), nil
}

// BuildPrompt assembles the grounding prompt. The model is told to use
// only the supplied context and to admit when the context has no answer.
func BuildPrompt(question string, results []domain.SearchResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, r.Chunk.Text)
	}
	context := strings.Join(parts, "\n\n---\n\n")

	var b strings.Builder
	b.WriteString("You are an assistant that answers questions using ONLY the context below.\n")
	b.WriteString("If the context does not contain the answer, say:\n")
	b.WriteString("\"I don't know based on these documents.\"\n\n")
	b.WriteString("Context:\n")
	b.WriteString(context)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer in a concise way.")
	return b.String()
}
