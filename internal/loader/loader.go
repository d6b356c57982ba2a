// Package loader reads source files from a directory and extracts their
// plain text. Plain text and markdown files are read directly; PDFs go
// through per-page extraction so chunks can cite a page number. Files
// that fail to decode or extract are skipped and reported, never fatal
// to the run.
package loader

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"docqa/internal/domain"
)

type extractor interface {
	extract(path string) (domain.Document, error)
}

// DirLoader walks a directory tree and extracts text from every
// supported file. The walk is recursive and visits files in lexical
// order; unsupported extensions are silently ignored.
type DirLoader struct {
	log        *slog.Logger
	extractors map[string]extractor
}

// New creates a loader for the supported formats (.txt, .md, .pdf).
func New(log *slog.Logger) *DirLoader {
	return &DirLoader{
		log: log,
		extractors: map[string]extractor{
			".txt": textExtractor{format: domain.FormatPlainText},
			".md":  textExtractor{format: domain.FormatMarkdown},
			".pdf": pdfExtractor{},
		},
	}
}

// Walk visits every supported file under dir and calls visit with its
// extracted document. Per-file failures are logged, recorded and
// skipped. A visit error aborts the walk and is returned as-is.
func (l *DirLoader) Walk(ctx context.Context, dir string, visit func(domain.Document) error) ([]domain.SkippedFile, error) {
	var skipped []domain.SkippedFile
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		ex, ok := l.extractors[ext]
		if !ok {
			return nil
		}
		doc, err := ex.extract(path)
		if err != nil {
			l.log.Warn("skipping file", "path", path, "err", err)
			skipped = append(skipped, domain.SkippedFile{Path: path, Reason: err.Error()})
			return nil
		}
		return visit(doc)
	})
	if err != nil {
		return skipped, err
	}
	return skipped, nil
}

// textExtractor reads .txt and .md files verbatim. The declared encoding
// is UTF-8; anything else is a decoding error.
type textExtractor struct {
	format domain.Format
}

func (e textExtractor) extract(path string) (domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: %s: %v", domain.ErrExtraction, path, err)
	}
	if !utf8.Valid(data) {
		return domain.Document{}, fmt.Errorf("%w: %s is not valid UTF-8", domain.ErrDecoding, path)
	}
	return domain.Document{
		Path:   path,
		Format: e.format,
		Text:   string(data),
	}, nil
}
