package search

import (
	"fmt"
	"math"
	"sort"
)

// Hit is the rank position of one passage vector
type Hit struct {
	Index int
	Score float64
}

// Rank scores every passage vector against the query and returns the best
// topK, highest score first. Equal scores keep their original order.
func Rank(query []float64, passages [][]float64, topK int) ([]Hit, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidArgument, topK)
	}

	hits := make([]Hit, len(passages))
	for i, vector := range passages {
		hits[i] = Hit{Index: i, Score: CosineSimilarity(query, vector)}
	}

	// Sort by descending score
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if len(hits) > topK {
		return hits[:topK], nil
	}
	return hits, nil
}

// CosineSimilarity calculates the cosine similarity between two vectors
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
