package search

import (
	"fmt"
	"strings"
)

// Chunk splits text into windows of size words, each starting size-overlap
// words after the previous one. The last window may be shorter.
func Chunk(text string, size, overlap int) ([]string, error) {
	if overlap < 0 || size <= overlap {
		return nil, fmt.Errorf("%w: chunk size %d must exceed overlap %d (overlap >= 0)",
			ErrInvalidConfiguration, size, overlap)
	}

	words := strings.Fields(text)
	step := size - overlap

	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks, nil
}

// ChunkPages chunks every page independently and tags passages with their page
func ChunkPages(pages []Page, size, overlap int) ([]Passage, error) {
	var passages []Passage
	for _, page := range pages {
		chunks, err := Chunk(page.Text, size, overlap)
		if err != nil {
			return nil, err
		}
		for _, text := range chunks {
			passages = append(passages, Passage{
				Index: len(passages),
				Page:  page.Number,
				Text:  text,
			})
		}
	}
	return passages, nil
}
