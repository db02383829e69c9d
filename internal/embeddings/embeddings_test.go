package embeddings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateEmbeddingDeterministic(t *testing.T) {
	a := generateEmbedding("strong serve, work on footwork")
	b := generateEmbedding("strong serve, work on footwork")

	require.Len(t, a, Dimensions)
	assert.Equal(t, a, b)
}

func TestGenerateEmbeddingNormalized(t *testing.T) {
	vector := generateEmbedding("focus on improving your agility")

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestGenerateEmbeddingEmptyContent(t *testing.T) {
	vector := generateEmbedding("   ")
	require.Len(t, vector, Dimensions)
	for _, v := range vector {
		assert.Zero(t, v)
	}
}

func TestServiceGetEmbedding(t *testing.T) {
	service := NewService(2)
	defer service.Close()

	result := <-service.GetEmbedding("your speed is your strongest attribute")
	require.NoError(t, result.Error)
	assert.Len(t, result.Embedding, Dimensions)

	// Second request for the same content should hit the cache and agree.
	again := <-service.GetEmbedding("your speed is your strongest attribute")
	require.NoError(t, again.Error)
	assert.Equal(t, result.Embedding, again.Embedding)
}
