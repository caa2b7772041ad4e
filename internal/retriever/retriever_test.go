// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sift Contributors

package retriever_test

import (
	"context"
	"testing"

	"github.com/sift-dev/sift/internal/embedder"
	"github.com/sift-dev/sift/internal/index"
	"github.com/sift-dev/sift/internal/index/memory"
	"github.com/sift-dev/sift/internal/retriever"
	sifterr "github.com/sift-dev/sift/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder returns canned vectors by exact text, so similarity between
// a query and a chunk is whatever the test wires up.
type stubEmbedder struct {
	vectors map[string][]float32
	dims    int
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (embedder.Result, error) {
	v, ok := s.vectors[text]
	if !ok {
		return embedder.Result{}, sifterr.Errorf(sifterr.CodeEmbedderInputInvalid, "no canned vector for %q", text)
	}
	return embedder.Result{Vector: v}, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]embedder.Result, error) {
	out := make([]embedder.Result, len(texts))
	for i, t := range texts {
		r, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int { return s.dims }
func (s *stubEmbedder) Model() string   { return "stub" }

func seededIndex(t *testing.T) index.Index {
	t.Helper()
	idx := memory.New(index.Config{})
	require.NoError(t, idx.Add(context.Background(), []index.Record{
		{ChunkID: "c-discount", SourceID: "offers.md", Text: "SAVE20 gives 20% off over $100.", Vector: []float32{1, 0, 0}},
		{ChunkID: "c-shipping", SourceID: "shipping.md", Text: "Standard shipping takes 3-5 days.", Vector: []float32{0, 1, 0}},
		{ChunkID: "c-returns", SourceID: "returns.md", Text: "Returns accepted within 30 days.", Vector: []float32{0, 0, 1}},
	}))
	return idx
}

func TestRetrieve_RanksAndFilters(t *testing.T) {
	emb := &stubEmbedder{dims: 3, vectors: map[string][]float32{
		// Close to the discount chunk, orthogonal to the others.
		"minimum order discount": {0.95, 0.2, 0.1},
	}}
	r := retriever.New(emb, seededIndex(t), 0, nil)

	results, err := r.Retrieve(context.Background(), "minimum order discount", 1, 0.3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c-discount", results[0].ChunkID)
	assert.Equal(t, "offers.md", results[0].SourceID)
	assert.Contains(t, results[0].Text, "SAVE20")
	assert.Greater(t, results[0].Score, 0.3)
}

func TestRetrieve_ThresholdNeverPads(t *testing.T) {
	emb := &stubEmbedder{dims: 3, vectors: map[string][]float32{
		"shipping time": {0.1, 0.99, 0},
	}}
	r := retriever.New(emb, seededIndex(t), 0, nil)

	// Only the shipping chunk clears 0.8; k=3 still returns one result.
	results, err := r.Retrieve(context.Background(), "shipping time", 3, 0.8)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c-shipping", results[0].ChunkID)
}

func TestRetrieve_TruncatesToK(t *testing.T) {
	emb := &stubEmbedder{dims: 3, vectors: map[string][]float32{
		"anything": {1, 1, 1},
	}}
	r := retriever.New(emb, seededIndex(t), 0, nil)

	results, err := r.Retrieve(context.Background(), "anything", 2, -1)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestRetrieve_InvalidArguments(t *testing.T) {
	emb := &stubEmbedder{dims: 3, vectors: map[string][]float32{}}
	r := retriever.New(emb, seededIndex(t), 0, nil)
	ctx := context.Background()

	tests := []struct {
		name      string
		query     string
		k         int
		threshold float64
	}{
		{"empty query", "", 1, 0.3},
		{"whitespace query", "   \n", 1, 0.3},
		{"zero k", "q", 0, 0.3},
		{"negative k", "q", -2, 0.3},
		{"threshold above 1", "q", 1, 1.5},
		{"threshold below -1", "q", 1, -1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Retrieve(ctx, tt.query, tt.k, tt.threshold)
			require.Error(t, err)
			assert.True(t, sifterr.IsInvalidArgument(err))
		})
	}
}

func TestRetrieve_EmptyIndexNotReady(t *testing.T) {
	emb := &stubEmbedder{dims: 3, vectors: map[string][]float32{
		"query": {1, 0, 0},
	}}
	r := retriever.New(emb, memory.New(index.Config{}), 0, nil)

	_, err := r.Retrieve(context.Background(), "query", 1, 0.3)
	require.Error(t, err)
	assert.True(t, sifterr.IsNotReady(err))
}

func TestRetrieve_DimensionMismatchSurfaces(t *testing.T) {
	emb := &stubEmbedder{dims: 2, vectors: map[string][]float32{
		"query": {1, 0},
	}}
	r := retriever.New(emb, seededIndex(t), 0, nil)

	_, err := r.Retrieve(context.Background(), "query", 1, 0.3)
	require.Error(t, err)
	assert.True(t, sifterr.IsDimensionMismatch(err))
}
