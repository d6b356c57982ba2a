package tui

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

type ctxRecordingService struct {
	got context.Context
}

func (s *ctxRecordingService) Ask(ctx context.Context, question string, k int) (domain.Answer, error) {
	s.got = ctx
	return domain.Answer{}, ctx.Err()
}

func TestAskCmd_UsesModelContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := &ctxRecordingService{}
	m := New(ctx, svc, "")

	cancel()
	msg := askCmd(m.ctx, m.service, "question")()
	ans, ok := msg.(answerMsg)
	require.True(t, ok)
	assert.ErrorIs(t, ans.err, context.Canceled)
	assert.Equal(t, ctx, svc.got)
}

func TestNew_NilContext(t *testing.T) {
	m := New(nil, &ctxRecordingService{}, "")
	assert.NotNil(t, m.ctx)
}

func TestToTokenSet(t *testing.T) {
	set := toTokenSet("Why do cats purr, and do they purr loudly?")
	assert.Contains(t, set, "cats")
	assert.Contains(t, set, "purr")
	assert.Contains(t, set, "why")
	assert.NotContains(t, set, "purr,")
}

func TestTokenOverlapScore(t *testing.T) {
	q := toTokenSet("cats purr")
	assert.Equal(t, 2, tokenOverlapScore(q, "Cats purr when content."))
	assert.Equal(t, 1, tokenOverlapScore(q, "Dogs do not purr."))
	assert.Equal(t, 0, tokenOverlapScore(q, "Nothing relevant here."))
	// repeated matches count once
	assert.Equal(t, 1, tokenOverlapScore(q, "purr purr purr"))
}

func TestHighlightBestSentence_KeepsAllText(t *testing.T) {
	text := "Cats purr when content. Dogs bark at strangers. Birds sing at dawn."
	out := highlightBestSentence(text, "why do dogs bark?")
	assert.Contains(t, out, "Cats purr when content.")
	assert.Contains(t, out, "Dogs bark at strangers.")
	assert.Contains(t, out, "Birds sing at dawn.")
}

func TestHighlightBestSentence_EmptyInputs(t *testing.T) {
	assert.Equal(t, "   ", highlightBestSentence("   ", "query"))
	out := highlightBestSentence("No punctuation here", "")
	assert.Contains(t, out, "No punctuation here")
}
