package loader

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"docqa/internal/domain"
)

// pdfExtractor concatenates per-page text in page order and records
// where each page starts so chunks can be traced back to a page.
type pdfExtractor struct{}

func (pdfExtractor) extract(path string) (doc domain.Document, err error) {
	// the pdf parser panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", domain.ErrExtraction, path, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: %s: %v", domain.ErrExtraction, path, err)
	}
	defer f.Close()

	var (
		b      strings.Builder
		pages  []domain.PageBreak
		offset int
	)
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return domain.Document{}, fmt.Errorf("%w: %s page %d: %v", domain.ErrExtraction, path, i, err)
		}
		if offset > 0 {
			b.WriteString("\n")
			offset++
		}
		pages = append(pages, domain.PageBreak{Offset: offset, Page: i})
		b.WriteString(text)
		offset += utf8.RuneCountInString(text)
	}

	return domain.Document{
		Path:   path,
		Format: domain.FormatPDF,
		Text:   b.String(),
		Pages:  pages,
	}, nil
}
