package similarity

import (
	"context"
	"strings"
)

// JaccardProvider is a dependency-free SimilarityProvider based on word
// overlap. It is the default provider wired by the service binary; callers
// with an embedding model inject their own implementation instead.
type JaccardProvider struct{}

// NewJaccardProvider creates a word-overlap similarity provider
func NewJaccardProvider() *JaccardProvider {
	return &JaccardProvider{}
}

// Similarity returns |A∩B| / |A∪B| over lowercased word sets
func (p *JaccardProvider) Similarity(ctx context.Context, a, b string) (float64, error) {
	wordsA := wordSet(a)
	wordsB := wordSet(b)

	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0, nil
	}

	intersection := 0
	for w := range wordsA {
		if _, ok := wordsB[w]; ok {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection

	return float64(intersection) / float64(union), nil
}

// SimilarityMatrix returns the NxN pairwise score matrix
func (p *JaccardProvider) SimilarityMatrix(ctx context.Context, texts []string) ([][]float64, error) {
	n := len(texts)
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
		matrix[i][i] = 1.0
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			score, _ := p.Similarity(ctx, texts[i], texts[j])
			matrix[i][j] = score
			matrix[j][i] = score
		}
	}

	return matrix, nil
}

func wordSet(text string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
