package extract

import (
	"io"
	"os"
	"strings"

	"golang.org/x/net/html"

	"github.com/knowledge-engine/docqa/internal/search"
)

func extractHTML(path string) ([]search.Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	text, err := parseHTML(f)
	if err != nil {
		return nil, err
	}
	return []search.Page{{Number: 1, Text: text}}, nil
}

// parseHTML collects visible text, skipping script and style elements
func parseHTML(body io.Reader) (string, error) {
	tokenizer := html.NewTokenizer(body)
	var textBuilder strings.Builder
	inScript := false
	inStyle := false

	for {
		tokenType := tokenizer.Next()

		switch tokenType {
		case html.ErrorToken:
			if tokenizer.Err() == io.EOF {
				return strings.Join(strings.Fields(textBuilder.String()), " "), nil
			}
			return "", tokenizer.Err()

		case html.StartTagToken:
			switch tokenizer.Token().Data {
			case "script":
				inScript = true
			case "style":
				inStyle = true
			}

		case html.EndTagToken:
			switch tokenizer.Token().Data {
			case "script":
				inScript = false
			case "style":
				inStyle = false
			}

		case html.TextToken:
			if !inScript && !inStyle {
				text := strings.TrimSpace(tokenizer.Token().Data)
				if text != "" {
					textBuilder.WriteString(text + " ")
				}
			}
		}
	}
}
