// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sift Contributors

package retriever

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sift-dev/sift/internal/embedder"
	"github.com/sift-dev/sift/internal/index"
	sifterr "github.com/sift-dev/sift/pkg/errors"
)

// DefaultOverfetchFactor controls how many candidates are pulled from the
// index per requested result, so threshold filtering still has enough to
// choose from.
const DefaultOverfetchFactor = 3

// Result is one retrieved chunk with provenance, ordered by descending
// relevance.
type Result struct {
	ChunkID  string
	Score    float64
	Text     string
	SourceID string
}

// Retriever answers queries against the index using the same embedder
// configuration that produced the indexed vectors.
type Retriever struct {
	embedder  embedder.Embedder
	index     index.Index
	overfetch int
	logger    *slog.Logger
}

// New creates a Retriever. overfetchFactor of zero or less falls back to
// DefaultOverfetchFactor.
func New(emb embedder.Embedder, idx index.Index, overfetchFactor int, logger *slog.Logger) *Retriever {
	if overfetchFactor <= 0 {
		overfetchFactor = DefaultOverfetchFactor
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{embedder: emb, index: idx, overfetch: overfetchFactor, logger: logger}
}

// Retrieve embeds the query, searches the index for the nearest chunks,
// drops everything below threshold, and returns at most k results. Fewer
// than k results may clear the threshold; the smaller set is returned
// as-is, never padded.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int, threshold float64) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, sifterr.New(sifterr.CodeRetrieverQueryInvalid, "query text is empty")
	}
	if k <= 0 {
		return nil, sifterr.Errorf(sifterr.CodeRetrieverQueryInvalid, "k must be positive, got %d", k)
	}
	if threshold < -1 || threshold > 1 {
		return nil, sifterr.Errorf(sifterr.CodeRetrieverQueryInvalid,
			"threshold must be within [-1, 1], got %g", threshold)
	}

	stats, err := r.index.Stats(ctx)
	if err != nil {
		return nil, err
	}
	if stats.Records == 0 {
		return nil, sifterr.New(sifterr.CodeKnowledgeBaseNotReady,
			"no documents have been ingested; ingest before querying")
	}

	embedded, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	candidates, err := r.index.Search(ctx, embedded.Vector, k*r.overfetch)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, k)
	for _, c := range candidates {
		if c.Score < threshold {
			continue
		}
		results = append(results, Result{
			ChunkID:  c.ChunkID,
			Score:    c.Score,
			Text:     c.Text,
			SourceID: c.SourceID,
		})
		if len(results) == k {
			break
		}
	}

	r.logger.Debug("retrieval complete",
		"query_len", len(query),
		"k", k,
		"threshold", threshold,
		"candidates", len(candidates),
		"results", len(results),
	)
	return results, nil
}
