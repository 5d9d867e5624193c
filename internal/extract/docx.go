package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/knowledge-engine/docqa/internal/search"
)

// documentXML represents the structure of word/document.xml.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

// run keeps the text of a w:r element in document order. Tabs and line
// breaks become whitespace so neighbouring words stay apart.
type run struct {
	Text string
}

func (r *run) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var b strings.Builder
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				var text string
				if err := d.DecodeElement(&text, &t); err != nil {
					return err
				}
				b.WriteString(text)
				continue
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
			if err := d.Skip(); err != nil {
				return err
			}
		case xml.EndElement:
			r.Text = b.String()
			return nil
		}
	}
}

// extractDOCX reads the paragraphs of a Word document. DOCX has no page
// concept, so everything lands on page 1.
func extractDOCX(path string) ([]search.Page, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: not a docx archive: %v", ErrUnreadableDocument, err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
		}

		text, err := parseDocumentXML(content)
		if err != nil {
			return nil, err
		}
		return []search.Page{{Number: 1, Text: text}}, nil
	}
	return nil, fmt.Errorf("%w: missing word/document.xml", ErrUnreadableDocument)
}

func parseDocumentXML(content []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}

	var result strings.Builder
	for i, para := range doc.Body.Paragraphs {
		if i > 0 {
			result.WriteString("\n")
		}
		for _, run := range para.Runs {
			result.WriteString(run.Text)
		}
	}
	return result.String(), nil
}
