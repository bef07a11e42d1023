package similarity

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

type countingProvider struct {
	calls int64
	score float64
	err   error
}

func (p *countingProvider) Similarity(ctx context.Context, a, b string) (float64, error) {
	atomic.AddInt64(&p.calls, 1)
	return p.score, p.err
}

func (p *countingProvider) SimilarityMatrix(ctx context.Context, texts []string) ([][]float64, error) {
	return nil, errors.New("not used")
}

func TestOracleIdenticalTextsSkipProvider(t *testing.T) {
	provider := &countingProvider{score: 0.5}
	oracle := NewOracle(provider)

	assert.Equal(t, 1.0, oracle.Similarity(context.Background(), "hello world", "hello world"))
	assert.Equal(t, 1.0, oracle.Similarity(context.Background(), "Hello  World", "hello world"))
	assert.EqualValues(t, 0, atomic.LoadInt64(&provider.calls))
}

func TestOracleCachesUnorderedPairs(t *testing.T) {
	provider := &countingProvider{score: 0.8}
	oracle := NewOracle(provider)

	assert.Equal(t, 0.8, oracle.Similarity(context.Background(), "foo bar", "baz qux"))
	assert.Equal(t, 0.8, oracle.Similarity(context.Background(), "baz qux", "foo bar"))
	assert.Equal(t, 0.8, oracle.Similarity(context.Background(), "foo bar", "baz qux"))
	assert.EqualValues(t, 1, atomic.LoadInt64(&provider.calls))
}

func TestOracleClampsProviderScores(t *testing.T) {
	oracle := NewOracle(&countingProvider{score: 1.7})
	assert.Equal(t, 1.0, oracle.Similarity(context.Background(), "a b", "c d"))

	oracle = NewOracle(&countingProvider{score: -0.4})
	assert.Equal(t, 0.0, oracle.Similarity(context.Background(), "a b", "c d"))
}

func TestOracleProviderErrorScoresZero(t *testing.T) {
	provider := &countingProvider{score: 0.9, err: errors.New("model offline")}
	oracle := NewOracle(provider)

	assert.Equal(t, 0.0, oracle.Similarity(context.Background(), "foo", "bar"))
}

func TestOracleMatrixOneCallPerPair(t *testing.T) {
	provider := &countingProvider{score: 0.3}
	oracle := NewOracle(provider)

	texts := []string{"one", "two", "three", "four", "five"}
	matrix := oracle.SimilarityMatrix(context.Background(), texts)

	// 5 texts, C(5,2) = 10 distinct pairs
	assert.EqualValues(t, 10, atomic.LoadInt64(&provider.calls))

	for i := range texts {
		assert.Equal(t, 1.0, matrix[i][i])
		for j := range texts {
			assert.Equal(t, matrix[i][j], matrix[j][i])
		}
	}
	assert.Equal(t, 0.3, matrix[0][1])
}

func TestJaccardProvider(t *testing.T) {
	p := NewJaccardProvider()

	score, err := p.Similarity(context.Background(), "the quick brown fox", "the quick red fox")
	assert.NoError(t, err)
	assert.InDelta(t, 3.0/5.0, score, 1e-9)

	score, err = p.Similarity(context.Background(), "", "anything")
	assert.NoError(t, err)
	assert.Equal(t, 0.0, score)

	score, err = p.Similarity(context.Background(), "same words", "words same")
	assert.NoError(t, err)
	assert.Equal(t, 1.0, score)
}
