package answer

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	keywordMaxSentences = 3
	keywordMinTokenLen  = 4
	fallbackPassages    = 3
	fallbackMaxRunes    = 1200
)

// Keyword answers with the sentences that mention a question keyword and
// needs no external service.
type Keyword struct{}

func NewKeyword() *Keyword {
	return &Keyword{}
}

func (k *Keyword) Name() string {
	return "keyword"
}

func (k *Keyword) Answer(ctx context.Context, question string, sources []Source) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	keywords := questionKeywords(question)

	var matched []string
	for _, src := range sources {
		for _, sentence := range strings.Split(src.Text, ".") {
			sentence = strings.TrimSpace(sentence)
			if sentence == "" {
				continue
			}
			if containsAny(strings.ToLower(sentence), keywords) {
				matched = append(matched, sentence)
			}
		}
	}

	if len(matched) > 0 {
		top := matched
		if len(top) > keywordMaxSentences {
			top = top[:keywordMaxSentences]
		}
		return Result{
			Answer:    strings.Join(top, " "),
			Reasoning: fmt.Sprintf("Matched %d sentence(s) using keyword heuristics.", len(matched)),
		}, nil
	}

	texts := make([]string, 0, fallbackPassages)
	for i := 0; i < len(sources) && i < fallbackPassages; i++ {
		texts = append(texts, sources[i].Text)
	}
	return Result{
		Answer:    truncateRunes(strings.Join(texts, " "), fallbackMaxRunes),
		Reasoning: "No direct sentence match; returning top passages concatenation.",
	}, nil
}

// questionKeywords keeps lowercase whitespace tokens longer than three
// characters once surrounding punctuation is removed
func questionKeywords(question string) []string {
	seen := make(map[string]bool)
	var keywords []string
	for _, field := range strings.Fields(question) {
		token := strings.ToLower(strings.TrimFunc(field, unicode.IsPunct))
		if utf8.RuneCountInString(token) < keywordMinTokenLen || seen[token] {
			continue
		}
		seen[token] = true
		keywords = append(keywords, token)
	}
	return keywords
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}
