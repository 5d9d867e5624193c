// Package extract turns downloaded documents into ordered page text.
package extract

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/knowledge-engine/docqa/internal/search"
)

// ErrUnreadableDocument is returned for corrupt or unsupported input.
var ErrUnreadableDocument = errors.New("unreadable document")

// Format is the declared document type used to pick a parser.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatHTML Format = "html"
)

// FormatFromPath maps a file extension to a format. Unknown extensions fall
// back to PDF.
func FormatFromPath(path string) Format {
	if f, ok := formatFromExt(filepath.Ext(path)); ok {
		return f
	}
	return FormatPDF
}

// FormatFromContentType maps a MIME type to a format.
func FormatFromContentType(contentType string) (Format, bool) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", false
	}
	switch mediaType {
	case "application/pdf":
		return FormatPDF, true
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return FormatDOCX, true
	case "text/html", "application/xhtml+xml":
		return FormatHTML, true
	}
	return "", false
}

// KnownExtension reports whether the extension maps to a format without fallback.
func KnownExtension(ext string) bool {
	_, ok := formatFromExt(ext)
	return ok
}

func formatFromExt(ext string) (Format, bool) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "pdf":
		return FormatPDF, true
	case "docx":
		return FormatDOCX, true
	case "html", "htm":
		return FormatHTML, true
	}
	return "", false
}

// Extractor dispatches a local file to the parser for its format
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

// Extract produces the document's pages in order, numbered from 1.
func (e *Extractor) Extract(ctx context.Context, path string, format Format) ([]search.Page, error) {
	var (
		pages []search.Page
		err   error
	)
	switch format {
	case FormatDOCX:
		pages, err = extractDOCX(path)
	case FormatHTML:
		pages, err = extractHTML(path)
	default:
		pages, err = extractPDF(ctx, path)
	}
	if err != nil {
		if errors.Is(err, ErrUnreadableDocument) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}

	for i := range pages {
		pages[i].Text = normalizeText(pages[i].Text)
	}
	return pages, nil
}

// normalizeText performs Unicode normalization and drops control characters
// other than newlines and tabs.
func normalizeText(text string) string {
	normed := norm.NFKC.String(text)
	normed = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, normed)
	return strings.TrimSpace(normed)
}
