package loader

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func testLoader() *DirLoader {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestWalk_TextAndMarkdown(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", []byte("plain text content"))
	writeFile(t, dir, "sub/b.md", []byte("# heading\n\nbody"))
	writeFile(t, dir, "ignored.bin", []byte{0x00, 0x01})

	var docs []domain.Document
	skipped, err := testLoader().Walk(context.Background(), dir, func(d domain.Document) error {
		docs = append(docs, d)
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, docs, 2)

	assert.Equal(t, domain.FormatPlainText, docs[0].Format)
	assert.Equal(t, "plain text content", docs[0].Text)
	assert.Equal(t, domain.FormatMarkdown, docs[1].Format)
	assert.Equal(t, "# heading\n\nbody", docs[1].Text)
}

func TestWalk_InvalidUTF8Skipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.txt", []byte("fine"))
	bad := writeFile(t, dir, "bad.txt", []byte{0xff, 0xfe, 0x00, 0x41})

	var docs []domain.Document
	skipped, err := testLoader().Walk(context.Background(), dir, func(d domain.Document) error {
		docs = append(docs, d)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Len(t, skipped, 1)
	assert.Equal(t, bad, skipped[0].Path)
	assert.Contains(t, skipped[0].Reason, "not valid UTF-8")
}

func TestWalk_CorruptPDFSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.pdf", []byte("not a pdf at all"))

	var docs []domain.Document
	skipped, err := testLoader().Walk(context.Background(), dir, func(d domain.Document) error {
		docs = append(docs, d)
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, docs)
	require.Len(t, skipped, 1)
}

func TestWalk_VisitErrorAborts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", []byte("one"))
	writeFile(t, dir, "b.txt", []byte("two"))

	sentinel := errors.New("stop")
	calls := 0
	_, err := testLoader().Walk(context.Background(), dir, func(d domain.Document) error {
		calls++
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}

func TestWalk_MissingDir(t *testing.T) {
	_, err := testLoader().Walk(context.Background(), filepath.Join(t.TempDir(), "nope"), func(d domain.Document) error {
		return nil
	})
	assert.Error(t, err)
}

func TestWalk_CanceledContext(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", []byte("one"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testLoader().Walk(ctx, dir, func(d domain.Document) error {
		t.Fatal("visit should not run")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
