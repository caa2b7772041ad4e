// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sift Contributors

package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sift-dev/sift/internal/index"
	sifterr "github.com/sift-dev/sift/pkg/errors"
)

func init() {
	index.Register("memory", func(cfg index.Config) (index.Index, error) {
		return New(cfg), nil
	})
}

// Compile-time interface checks.
var (
	_ index.Index     = (*Index)(nil)
	_ index.Persister = (*Index)(nil)
)

// snapshot is one immutable generation of the index. Readers hold a
// snapshot pointer for the duration of a search; writers build a fresh
// snapshot and swap it in, so Rebuild and Clear are atomic with respect
// to concurrent searches.
type snapshot struct {
	dims     int
	model    string
	builtAt  time.Time
	records  []index.Record
	norms    []float64
	manifest map[string][]string // source_id -> chunk_ids
}

func emptySnapshot(dims int, model string) *snapshot {
	return &snapshot{
		dims:     dims,
		model:    model,
		manifest: map[string][]string{},
	}
}

// Index is the in-memory cosine-similarity backend with single-file JSON
// persistence. Brute-force search; ties on equal score resolve to the
// earlier-added record.
type Index struct {
	mu   sync.Mutex // serializes writers
	snap atomic.Pointer[snapshot]
}

// New creates an empty in-memory index. cfg.Dimensions of zero lets the
// first Add establish the dimension.
func New(cfg index.Config) *Index {
	idx := &Index{}
	idx.snap.Store(emptySnapshot(cfg.Dimensions, cfg.Model))
	return idx
}

// Add appends records. The whole batch is validated against the index
// dimension before anything is written; a mismatch rejects the batch and
// leaves the index unchanged.
func (x *Index) Add(_ context.Context, records []index.Record) error {
	if len(records) == 0 {
		return nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	cur := x.snap.Load()
	next, err := extend(cur, records)
	if err != nil {
		return err
	}
	x.snap.Store(next)
	return nil
}

// Rebuild atomically replaces the entire index content.
func (x *Index) Rebuild(_ context.Context, records []index.Record) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	cur := x.snap.Load()
	next, err := extend(emptySnapshot(0, cur.model), records)
	if err != nil {
		return err
	}
	x.snap.Store(next)
	return nil
}

// Clear atomically resets the index to the empty state.
func (x *Index) Clear(_ context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	cur := x.snap.Load()
	x.snap.Store(emptySnapshot(0, cur.model))
	return nil
}

// extend builds a new snapshot from base plus records. Base slices are
// copied, never mutated, so in-flight readers stay consistent.
func extend(base *snapshot, records []index.Record) (*snapshot, error) {
	dims := base.dims
	ids := make(map[string]struct{}, len(base.records)+len(records))
	for _, r := range base.records {
		ids[r.ChunkID] = struct{}{}
	}
	for _, r := range records {
		// Chunk IDs are unique across the index, matching the primary
		// key the durable backend enforces.
		if _, dup := ids[r.ChunkID]; dup {
			return nil, sifterr.New(sifterr.CodeIndexRecordDuplicate,
				"record chunk_id already indexed",
				sifterr.FieldChunkID(r.ChunkID),
			)
		}
		ids[r.ChunkID] = struct{}{}
		if dims == 0 {
			dims = len(r.Vector)
		}
		if len(r.Vector) == 0 || len(r.Vector) != dims {
			return nil, sifterr.New(sifterr.CodeIndexDimensionMismatch,
				"record vector dimension disagrees with index",
				sifterr.FieldChunkID(r.ChunkID),
				sifterr.FieldDimensions(dims),
				sifterr.Field("record_dimensions", len(r.Vector)),
			)
		}
	}

	next := &snapshot{
		dims:     dims,
		model:    base.model,
		builtAt:  time.Now().UTC(),
		records:  make([]index.Record, 0, len(base.records)+len(records)),
		norms:    make([]float64, 0, len(base.records)+len(records)),
		manifest: make(map[string][]string, len(base.manifest)),
	}
	next.records = append(next.records, base.records...)
	next.norms = append(next.norms, base.norms...)
	for src, ids := range base.manifest {
		next.manifest[src] = append([]string(nil), ids...)
	}

	for _, r := range records {
		next.records = append(next.records, r)
		next.norms = append(next.norms, norm(r.Vector))
		next.manifest[r.SourceID] = append(next.manifest[r.SourceID], r.ChunkID)
	}
	return next, nil
}

// Search returns up to k nearest records by cosine similarity. An empty
// index yields an empty result, not an error.
func (x *Index) Search(_ context.Context, query []float32, k int) ([]index.Result, error) {
	if k <= 0 {
		return nil, sifterr.Errorf(sifterr.CodeIndexQueryInvalid, "search k must be positive, got %d", k)
	}

	snap := x.snap.Load()
	if len(snap.records) == 0 {
		return nil, nil
	}
	if len(query) != snap.dims {
		return nil, sifterr.New(sifterr.CodeIndexDimensionMismatch,
			"query vector dimension disagrees with index",
			sifterr.FieldDimensions(snap.dims),
			sifterr.Field("query_dimensions", len(query)),
		)
	}

	qnorm := norm(query)
	scores := make([]float64, len(snap.records))
	for i, r := range snap.records {
		scores[i] = cosine(query, qnorm, r.Vector, snap.norms[i])
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}
	results := make([]index.Result, 0, k)
	for _, i := range order[:k] {
		r := snap.records[i]
		results = append(results, index.Result{
			ChunkID:  r.ChunkID,
			Score:    scores[i],
			SourceID: r.SourceID,
			Text:     r.Text,
		})
	}
	return results, nil
}

// Stats reports the current snapshot's content.
func (x *Index) Stats(_ context.Context) (index.Stats, error) {
	snap := x.snap.Load()

	bySource := make(map[string]int, len(snap.manifest))
	for src, ids := range snap.manifest {
		bySource[src] = len(ids)
	}

	return index.Stats{
		Records:    len(snap.records),
		Documents:  len(snap.manifest),
		Dimensions: snap.dims,
		Model:      snap.model,
		BuiltAt:    snap.builtAt,
		BySource:   bySource,
	}, nil
}

// Close is a no-op for the in-memory backend.
func (x *Index) Close() error { return nil }

func cosine(q []float32, qnorm float64, v []float32, vnorm float64) float64 {
	if qnorm == 0 || vnorm == 0 {
		return 0
	}
	var dot float64
	for i := range q {
		dot += float64(q[i]) * float64(v[i])
	}
	return dot / (qnorm * vnorm)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
