// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sift Contributors

package index

import (
	"context"
	"sync"
	"time"

	sifterr "github.com/sift-dev/sift/pkg/errors"
)

// Record is one embedding record owned by the index: a chunk identifier,
// its vector, and the provenance metadata needed to serve query results
// without reaching back to the ingest batch.
type Record struct {
	ChunkID       string
	SourceID      string
	Text          string
	SequenceIndex int
	Vector        []float32
}

// Result is a single nearest-neighbor match. Score is cosine similarity
// in [-1, 1]; higher is more similar.
type Result struct {
	ChunkID  string
	Score    float64
	SourceID string
	Text     string
}

// Stats describes the current index content.
type Stats struct {
	Records    int
	Documents  int
	Dimensions int
	Model      string
	BuiltAt    time.Time
	BySource   map[string]int
}

// Index is a queryable store of embedding records.
//
// Dimension rules: the first successful Add establishes the dimension for
// an empty index (backends configured with a fixed dimension establish it
// at open). Any later record or query vector that disagrees fails with a
// dimension-mismatch error and leaves the index unchanged.
//
// Rebuild and Clear replace content atomically: a concurrent Search sees
// either the old complete content or the new complete content, never an
// intermediate state.
type Index interface {
	Add(ctx context.Context, records []Record) error
	Search(ctx context.Context, query []float32, k int) ([]Result, error)
	Rebuild(ctx context.Context, records []Record) error
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// Persister is the optional snapshot capability. Backends that are durable
// by construction (sqlite) do not implement it.
type Persister interface {
	Persist(path string) error
	Load(path string) error
}

// Config selects and parameterizes an index backend.
type Config struct {
	Backend    string // "memory" (default) or "sqlite"
	Path       string // snapshot file (memory) or database file (sqlite)
	Dimensions int    // 0 lets the first Add establish the dimension (memory only)
	Model      string // embedding model identifier recorded in the snapshot
}

// Factory creates an index from a Config. Backend packages register their
// factory from init().
type Factory func(cfg Config) (Index, error)

var (
	factories   = map[string]Factory{}
	factoriesMu sync.RWMutex
)

// Register registers a factory for a named index backend.
// This function is goroutine-safe.
func Register(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Open creates an index using the backend named in cfg, defaulting to
// "memory".
func Open(cfg Config) (Index, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = "memory"
	}

	factoriesMu.RLock()
	factory, ok := factories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, sifterr.Errorf(sifterr.CodeIndexBackendUnsupported, "unsupported index backend %q", backend)
	}

	return factory(cfg)
}
