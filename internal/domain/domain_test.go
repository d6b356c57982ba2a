package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkID_Deterministic(t *testing.T) {
	a := ChunkID("notes/a.txt", 3)
	b := ChunkID("notes/a.txt", 3)
	assert.Equal(t, a, b)

	assert.NotEqual(t, a, ChunkID("notes/a.txt", 4))
	assert.NotEqual(t, a, ChunkID("notes/b.txt", 3))

	_, err := uuid.Parse(a)
	require.NoError(t, err)
}

func TestPageAt(t *testing.T) {
	d := Document{
		Pages: []PageBreak{{Offset: 0, Page: 1}, {Offset: 100, Page: 2}, {Offset: 250, Page: 3}},
	}
	assert.Equal(t, 1, d.PageAt(0))
	assert.Equal(t, 1, d.PageAt(99))
	assert.Equal(t, 2, d.PageAt(100))
	assert.Equal(t, 3, d.PageAt(9999))

	assert.Equal(t, 0, Document{}.PageAt(50))
}

func TestCitation(t *testing.T) {
	withPage := Chunk{Source: "data/papers/report.pdf", Position: 7, Page: 12}
	assert.Equal(t, "report.pdf p.12", withPage.Citation())

	noPage := Chunk{Source: "data/notes.md", Position: 2}
	assert.Equal(t, "notes.md #2", noPage.Citation())
}

func TestExcerpt(t *testing.T) {
	c := Chunk{Text: "line one\nline  two\tand more words here"}
	assert.Equal(t, "line one line two and more words here", c.Excerpt(100))
	assert.Equal(t, "line one l…", c.Excerpt(10))
}

func TestFormatString(t *testing.T) {
	assert.Equal(t, "text", FormatPlainText.String())
	assert.Equal(t, "markdown", FormatMarkdown.String())
	assert.Equal(t, "pdf", FormatPDF.String())
	assert.Equal(t, "unknown", Format(99).String())
}
