package search

import "fmt"

// Index holds one document's passages and their vectors in a fitted space
type Index struct {
	Passages []Passage
	Space    *VectorSpace
	vectors  [][]float64
}

// BuildIndex fits the vectorizer once over the passage texts
func BuildIndex(vectorizer *Vectorizer, passages []Passage) (*Index, error) {
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}

	space, vectors, err := vectorizer.Fit(texts)
	if err != nil {
		return nil, fmt.Errorf("fit vector space: %w", err)
	}
	return &Index{Passages: passages, Space: space, vectors: vectors}, nil
}

// Search finds the passages most similar to the query
func (idx *Index) Search(query string, topK int) ([]ScoredPassage, error) {
	if idx == nil {
		return nil, ErrNotFitted
	}
	projected, err := idx.Space.Transform([]string{query})
	if err != nil {
		return nil, err
	}

	hits, err := Rank(projected[0], idx.vectors, topK)
	if err != nil {
		return nil, err
	}

	results := make([]ScoredPassage, len(hits))
	for i, hit := range hits {
		results[i] = ScoredPassage{Passage: idx.Passages[hit.Index], Score: hit.Score}
	}
	return results, nil
}
