package search

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Page is one unit of extracted document text
type Page struct {
	Number int
	Text   string
}

// Passage represents a chunk of page text used for retrieval
type Passage struct {
	Index int    // position in the document's passage sequence
	Page  int    // 1-based source page
	Text  string // words joined by single spaces
}

// ScoredPassage is a passage with its similarity to a query
type ScoredPassage struct {
	Passage Passage
	Score   float64
}

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Tokenize splits text into normalized tokens (lowercase words of two or more characters)
func Tokenize(text string) []string {
	lower := strings.ToLower(norm.NFKC.String(text))
	return tokenPattern.FindAllString(lower, -1)
}

// NGrams returns the contiguous n-grams of tokens for every n in [min, max],
// shortest first. Multi-word terms are joined with a single space.
func NGrams(tokens []string, min, max int) []string {
	if min < 1 {
		min = 1
	}
	var terms []string
	for n := min; n <= max; n++ {
		if n == 1 {
			terms = append(terms, tokens...)
			continue
		}
		for i := 0; i+n <= len(tokens); i++ {
			terms = append(terms, strings.Join(tokens[i:i+n], " "))
		}
	}
	return terms
}
