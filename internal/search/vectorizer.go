package search

import (
	"fmt"
	"math"
	"sort"
)

const (
	DefaultMaxFeatures = 512
	DefaultNGramMin    = 1
	DefaultNGramMax    = 2
)

// Vectorizer fits TF-IDF vector spaces over unigrams and bigrams
type Vectorizer struct {
	maxFeatures int
	ngramMin    int
	ngramMax    int
}

// Option configures a Vectorizer.
type Option func(*Vectorizer)

// WithMaxFeatures bounds the vocabulary size. Non-positive values are ignored.
func WithMaxFeatures(n int) Option {
	return func(v *Vectorizer) {
		if n > 0 {
			v.maxFeatures = n
		}
	}
}

// WithNGramRange sets the term lengths, in words, that enter the vocabulary.
func WithNGramRange(min, max int) Option {
	return func(v *Vectorizer) {
		if min >= 1 && max >= min {
			v.ngramMin = min
			v.ngramMax = max
		}
	}
}

func NewVectorizer(opts ...Option) *Vectorizer {
	v := &Vectorizer{
		maxFeatures: DefaultMaxFeatures,
		ngramMin:    DefaultNGramMin,
		ngramMax:    DefaultNGramMax,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// VectorSpace is a fitted vocabulary with IDF weights. It is never modified
// after Fit returns and is safe for concurrent use.
type VectorSpace struct {
	vocabulary map[string]int
	terms      []string
	idf        []float64
	ngramMin   int
	ngramMax   int
}

// Fit builds a vector space from the corpus and returns the corpus vectors
// projected into it.
func (v *Vectorizer) Fit(corpus []string) (*VectorSpace, [][]float64, error) {
	if len(corpus) == 0 {
		return nil, nil, fmt.Errorf("%w: empty corpus", ErrInvalidArgument)
	}

	// 1. Count term and document frequencies
	termCounts := make(map[string]int)
	docCounts := make(map[string]int)
	for _, doc := range corpus {
		seenInDoc := make(map[string]bool)
		for _, term := range NGrams(Tokenize(doc), v.ngramMin, v.ngramMax) {
			termCounts[term]++
			if !seenInDoc[term] {
				docCounts[term]++
				seenInDoc[term] = true
			}
		}
	}

	// 2. Keep the most frequent terms
	candidates := make([]string, 0, len(termCounts))
	for term := range termCounts {
		candidates = append(candidates, term)
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if termCounts[a] != termCounts[b] {
			return termCounts[a] > termCounts[b]
		}
		if docCounts[a] != docCounts[b] {
			return docCounts[a] > docCounts[b]
		}
		return a < b
	})
	if len(candidates) > v.maxFeatures {
		candidates = candidates[:v.maxFeatures]
	}
	sort.Strings(candidates)

	// 3. Calculate smoothed IDF: ln((1+n)/(1+df)) + 1
	space := &VectorSpace{
		vocabulary: make(map[string]int, len(candidates)),
		terms:      candidates,
		idf:        make([]float64, len(candidates)),
		ngramMin:   v.ngramMin,
		ngramMax:   v.ngramMax,
	}
	n := float64(len(corpus))
	for i, term := range candidates {
		space.vocabulary[term] = i
		space.idf[i] = math.Log((1+n)/(1+float64(docCounts[term]))) + 1
	}

	vectors, err := space.Transform(corpus)
	if err != nil {
		return nil, nil, err
	}
	return space, vectors, nil
}

// Transform projects texts into the fitted space. Terms outside the
// vocabulary are ignored, so unrelated text maps to the zero vector.
func (s *VectorSpace) Transform(texts []string) ([][]float64, error) {
	if s == nil {
		return nil, ErrNotFitted
	}
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		vectors[i] = s.vector(text)
	}
	return vectors, nil
}

func (s *VectorSpace) vector(text string) []float64 {
	vector := make([]float64, len(s.terms))
	for _, term := range NGrams(Tokenize(text), s.ngramMin, s.ngramMax) {
		if idx, exists := s.vocabulary[term]; exists {
			vector[idx]++
		}
	}

	var norm float64
	for idx, count := range vector {
		if count == 0 {
			continue
		}
		vector[idx] = count * s.idf[idx]
		norm += vector[idx] * vector[idx]
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for idx := range vector {
			vector[idx] /= norm
		}
	}
	return vector
}

// Dimension is the width of every vector produced by the space.
func (s *VectorSpace) Dimension() int {
	if s == nil {
		return 0
	}
	return len(s.terms)
}
