// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sift Contributors

package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sift-dev/sift/internal/index"
	"github.com/sift-dev/sift/internal/index/sqlite"
	sifterr "github.com/sift-dev/sift/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, dims int) index.Config {
	t.Helper()
	return index.Config{
		Backend:    "sqlite",
		Path:       filepath.Join(t.TempDir(), "index.db"),
		Dimensions: dims,
		Model:      "test-model",
	}
}

func openIndex(t *testing.T, cfg index.Config) *sqlite.Index {
	t.Helper()
	idx, err := sqlite.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func rec(id, source string, seq int, vec ...float32) index.Record {
	return index.Record{ChunkID: id, SourceID: source, SequenceIndex: seq, Text: "text of " + id, Vector: vec}
}

func TestOpen_RequiresDimensionsAndPath(t *testing.T) {
	_, err := sqlite.Open(index.Config{Path: "x.db"})
	require.Error(t, err)
	assert.True(t, sifterr.IsInvalidArgument(err))

	_, err = sqlite.Open(index.Config{Dimensions: 3})
	require.Error(t, err)
	assert.True(t, sifterr.IsInvalidArgument(err))
}

func TestIndex_AddAndSearch(t *testing.T) {
	ctx := context.Background()
	idx := openIndex(t, testConfig(t, 3))

	require.NoError(t, idx.Add(ctx, []index.Record{
		rec("c1", "doc-a", 0, 1, 0, 0),
		rec("c2", "doc-a", 1, 0, 1, 0),
		rec("c3", "doc-b", 0, 0.9, 0.1, 0),
	}))

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c1", results[0].ChunkID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-5)
	assert.Equal(t, "doc-a", results[0].SourceID)
	assert.Equal(t, "text of c1", results[0].Text)
	assert.Equal(t, "c3", results[1].ChunkID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestIndex_SearchValidation(t *testing.T) {
	ctx := context.Background()
	idx := openIndex(t, testConfig(t, 3))

	_, err := idx.Search(ctx, []float32{1, 0, 0}, 0)
	assert.True(t, sifterr.IsInvalidArgument(err))

	_, err = idx.Search(ctx, []float32{1, 0}, 3)
	assert.True(t, sifterr.IsDimensionMismatch(err))
}

func TestIndex_SearchEmpty(t *testing.T) {
	ctx := context.Background()
	idx := openIndex(t, testConfig(t, 3))

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestIndex_AddRejectsWrongDimension(t *testing.T) {
	ctx := context.Background()
	idx := openIndex(t, testConfig(t, 3))

	err := idx.Add(ctx, []index.Record{
		rec("good", "doc", 0, 1, 0, 0),
		rec("bad", "doc", 1, 1, 0),
	})
	require.Error(t, err)
	assert.True(t, sifterr.IsDimensionMismatch(err))

	// Batch validation happens before any write.
	stats, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Records)
}

func TestIndex_AddRejectsDuplicateChunkID(t *testing.T) {
	ctx := context.Background()
	idx := openIndex(t, testConfig(t, 3))

	require.NoError(t, idx.Add(ctx, []index.Record{rec("c1", "doc", 0, 1, 0, 0)}))

	err := idx.Add(ctx, []index.Record{rec("c1", "doc", 1, 0, 1, 0)})
	require.Error(t, err)
	assert.True(t, sifterr.IsDuplicate(err))

	// The failed batch rolled back in full.
	stats, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Records)
}

func TestIndex_TieBreakByInsertionOrder(t *testing.T) {
	ctx := context.Background()
	idx := openIndex(t, testConfig(t, 2))

	require.NoError(t, idx.Add(ctx, []index.Record{
		rec("first", "doc", 0, 0, 1),
		rec("second", "doc", 1, 0, 1),
		rec("third", "doc", 2, 0, 1),
	}))

	results, err := idx.Search(ctx, []float32{0, 1}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "first", results[0].ChunkID)
	assert.Equal(t, "second", results[1].ChunkID)
	assert.Equal(t, "third", results[2].ChunkID)
}

func TestIndex_RebuildReplacesContent(t *testing.T) {
	ctx := context.Background()
	idx := openIndex(t, testConfig(t, 2))

	require.NoError(t, idx.Add(ctx, []index.Record{rec("old", "doc", 0, 1, 0)}))
	require.NoError(t, idx.Rebuild(ctx, []index.Record{
		rec("new-1", "doc", 0, 1, 0),
		rec("new-2", "doc", 1, 0, 1),
	}))

	results, err := idx.Search(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "new-1", results[0].ChunkID)

	stats, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Records)
}

func TestIndex_Clear(t *testing.T) {
	ctx := context.Background()
	idx := openIndex(t, testConfig(t, 2))

	require.NoError(t, idx.Add(ctx, []index.Record{rec("c1", "doc", 0, 1, 0)}))
	require.NoError(t, idx.Clear(ctx))

	results, err := idx.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Empty(t, results)

	stats, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Records)
	assert.Zero(t, stats.Documents)
}

func TestIndex_Stats(t *testing.T) {
	ctx := context.Background()
	idx := openIndex(t, testConfig(t, 2))

	stats, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Records)
	assert.True(t, stats.BuiltAt.IsZero())
	assert.Equal(t, 2, stats.Dimensions)
	assert.Equal(t, "test-model", stats.Model)

	require.NoError(t, idx.Add(ctx, []index.Record{
		rec("a1", "spec.md", 0, 1, 0),
		rec("a2", "spec.md", 1, 0, 1),
		rec("b1", "guide.html", 0, 1, 1),
	}))

	stats, err = idx.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Records)
	assert.Equal(t, 2, stats.Documents)
	assert.Equal(t, map[string]int{"spec.md": 2, "guide.html": 1}, stats.BySource)
	assert.False(t, stats.BuiltAt.IsZero())
}

func TestIndex_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, 3)

	idx, err := sqlite.Open(cfg)
	require.NoError(t, err)
	require.NoError(t, idx.Add(ctx, []index.Record{
		rec("c1", "doc", 0, 1, 0, 0),
		rec("c2", "doc", 1, 0, 1, 0),
	}))
	require.NoError(t, idx.Close())

	reopened := openIndex(t, cfg)
	results, err := reopened.Search(ctx, []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c2", results[0].ChunkID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-5)
}

func TestOpen_ViaRegistry(t *testing.T) {
	cfg := testConfig(t, 2)
	idx, err := index.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	require.NoError(t, idx.Add(context.Background(), []index.Record{rec("c1", "doc", 0, 1, 0)}))
	stats, err := idx.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Records)
}
