package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/knowledge-engine/docqa/internal/search"
)

// extractPDF reads the text of every page in order, numbered from 1. Pages
// without a text layer are kept with empty text.
func extractPDF(ctx context.Context, path string) (pages []search.Page, err error) {
	// the parser panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: malformed pdf: %v", ErrUnreadableDocument, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf: %v", ErrUnreadableDocument, err)
	}
	defer f.Close()

	total := reader.NumPage()
	pages = make([]search.Page, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, search.Page{Number: i})
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrUnreadableDocument, i, err)
		}
		pages = append(pages, search.Page{Number: i, Text: strings.TrimSpace(text)})
	}
	return pages, nil
}
