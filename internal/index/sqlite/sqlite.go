// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sift Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/sift-dev/sift/internal/index"
	sifterr "github.com/sift-dev/sift/pkg/errors"
)

func init() {
	sqlite_vec.Auto()
	index.Register("sqlite", func(cfg index.Config) (index.Index, error) {
		return Open(cfg)
	})
}

// Compile-time interface check.
var _ index.Index = (*Index)(nil)

// Index is the durable backend built on SQLite with the sqlite-vec vec0
// virtual table. Vectors are L2-normalized on write and on query, so the
// vec0 L2 distance d maps to cosine similarity as 1 - d²/2.
//
// Unlike the memory backend, the dimension is established at open time
// from the configuration because the vec0 table schema fixes it.
type Index struct {
	db    *sql.DB
	dims  int
	model string
}

// Open opens (or creates) the index database at cfg.Path.
func Open(cfg index.Config) (*Index, error) {
	if cfg.Dimensions <= 0 {
		return nil, sifterr.Errorf(sifterr.CodeIndexConfigInvalid,
			"sqlite index backend requires a configured dimension, got %d", cfg.Dimensions)
	}
	if cfg.Path == "" {
		return nil, sifterr.New(sifterr.CodeIndexConfigInvalid, "sqlite index backend requires a database path")
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, sifterr.Wrapf(err, sifterr.CodeIndexSnapshotUnavailable, "opening index db %s", cfg.Path)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, sifterr.Wrapf(err, sifterr.CodeIndexSnapshotUnavailable, "pinging index db %s", cfg.Path)
	}
	if err := migrate(db, cfg.Dimensions); err != nil {
		_ = db.Close()
		return nil, sifterr.Wrapf(err, sifterr.CodeIndexSnapshotUnavailable, "migrating index tables")
	}

	return &Index{db: db, dims: cfg.Dimensions, model: cfg.Model}, nil
}

func migrate(db *sql.DB, dims int) error {
	vecDDL := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS chunk_vectors USING vec0(chunk_id TEXT PRIMARY KEY, embedding float[%d])`,
		dims,
	)
	if _, err := db.Exec(vecDDL); err != nil {
		return fmt.Errorf("creating chunk_vectors virtual table: %w", err)
	}

	const metaDDL = `
CREATE TABLE IF NOT EXISTS chunk_meta (
	pos       INTEGER PRIMARY KEY AUTOINCREMENT,
	chunk_id  TEXT NOT NULL UNIQUE,
	source_id TEXT NOT NULL,
	seq       INTEGER NOT NULL,
	text      TEXT NOT NULL
)`
	if _, err := db.Exec(metaDDL); err != nil {
		return fmt.Errorf("creating chunk_meta table: %w", err)
	}

	const infoDDL = `
CREATE TABLE IF NOT EXISTS index_info (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`
	if _, err := db.Exec(infoDDL); err != nil {
		return fmt.Errorf("creating index_info table: %w", err)
	}

	return nil
}

// Add appends records inside one transaction. The batch is validated
// against the index dimension before any write.
func (x *Index) Add(ctx context.Context, records []index.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := x.checkDims(records); err != nil {
		return err
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return sifterr.Wrapf(err, sifterr.CodeIndexDatabaseFailure, "beginning add transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertRecords(ctx, tx, records); err != nil {
		return err
	}
	if err := touchBuiltAt(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return sifterr.Wrapf(err, sifterr.CodeIndexDatabaseFailure, "committing add")
	}
	return nil
}

// Rebuild replaces the entire content in one transaction; readers see the
// old content until the commit lands.
func (x *Index) Rebuild(ctx context.Context, records []index.Record) error {
	if err := x.checkDims(records); err != nil {
		return err
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return sifterr.Wrapf(err, sifterr.CodeIndexDatabaseFailure, "beginning rebuild transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteAll(ctx, tx); err != nil {
		return err
	}
	if err := insertRecords(ctx, tx, records); err != nil {
		return err
	}
	if err := touchBuiltAt(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return sifterr.Wrapf(err, sifterr.CodeIndexDatabaseFailure, "committing rebuild")
	}
	return nil
}

// Clear atomically resets the index to the empty state.
func (x *Index) Clear(ctx context.Context) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return sifterr.Wrapf(err, sifterr.CodeIndexDatabaseFailure, "beginning clear transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteAll(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return sifterr.Wrapf(err, sifterr.CodeIndexDatabaseFailure, "committing clear")
	}
	return nil
}

func (x *Index) checkDims(records []index.Record) error {
	for _, r := range records {
		if len(r.Vector) != x.dims {
			return sifterr.New(sifterr.CodeIndexDimensionMismatch,
				"record vector dimension disagrees with index",
				sifterr.FieldChunkID(r.ChunkID),
				sifterr.FieldDimensions(x.dims),
				sifterr.Field("record_dimensions", len(r.Vector)),
			)
		}
	}
	return nil
}

func insertRecords(ctx context.Context, tx *sql.Tx, records []index.Record) error {
	for _, r := range records {
		blob, err := sqlite_vec.SerializeFloat32(normalized(r.Vector))
		if err != nil {
			return sifterr.Wrapf(err, sifterr.CodeIndexDatabaseFailure, "serializing vector for chunk %s", r.ChunkID)
		}
		// Metadata first: its UNIQUE chunk_id constraint detects a
		// duplicate before the virtual table is touched.
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chunk_meta(chunk_id, source_id, seq, text) VALUES (?, ?, ?, ?)`,
			r.ChunkID, r.SourceID, r.SequenceIndex, r.Text); err != nil {
			return insertErr(err, r.ChunkID, "inserting metadata")
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chunk_vectors(chunk_id, embedding) VALUES (?, ?)`, r.ChunkID, blob); err != nil {
			return insertErr(err, r.ChunkID, "inserting vector")
		}
	}
	return nil
}

// insertErr classifies a failed insert. A constraint violation on the
// chunk_id primary key surfaces as a duplicate-record error, matching
// the in-memory backend's contract.
func insertErr(err error, chunkID, what string) error {
	var serr sqlite3.Error
	if errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint {
		return sifterr.New(sifterr.CodeIndexRecordDuplicate,
			"record chunk_id already indexed",
			sifterr.FieldChunkID(chunkID),
		)
	}
	return sifterr.Wrapf(err, sifterr.CodeIndexDatabaseFailure, "%s for chunk %s", what, chunkID)
}

func deleteAll(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunk_vectors`); err != nil {
		return sifterr.Wrapf(err, sifterr.CodeIndexDatabaseFailure, "deleting vectors")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunk_meta`); err != nil {
		return sifterr.Wrapf(err, sifterr.CodeIndexDatabaseFailure, "deleting metadata")
	}
	return nil
}

func touchBuiltAt(ctx context.Context, tx *sql.Tx) error {
	const q = `INSERT INTO index_info(key, value) VALUES ('built_at', ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if _, err := tx.ExecContext(ctx, q, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return sifterr.Wrapf(err, sifterr.CodeIndexDatabaseFailure, "updating build timestamp")
	}
	return nil
}

// Search performs a k-nearest-neighbor query. The KNN candidate set is
// over-fetched so equal-score ties can be broken by insertion order
// before truncating to k.
func (x *Index) Search(ctx context.Context, query []float32, k int) ([]index.Result, error) {
	if k <= 0 {
		return nil, sifterr.Errorf(sifterr.CodeIndexQueryInvalid, "search k must be positive, got %d", k)
	}
	if len(query) != x.dims {
		return nil, sifterr.New(sifterr.CodeIndexDimensionMismatch,
			"query vector dimension disagrees with index",
			sifterr.FieldDimensions(x.dims),
			sifterr.Field("query_dimensions", len(query)),
		)
	}

	blob, err := sqlite_vec.SerializeFloat32(normalized(query))
	if err != nil {
		return nil, sifterr.Wrapf(err, sifterr.CodeIndexDatabaseFailure, "serializing query vector")
	}

	const q = `SELECT v.chunk_id, v.distance, m.pos, m.source_id, m.text
FROM chunk_vectors v
JOIN chunk_meta m ON m.chunk_id = v.chunk_id
WHERE v.embedding MATCH ? AND k = ?
ORDER BY v.distance`

	rows, err := x.db.QueryContext(ctx, q, blob, k*2)
	if err != nil {
		return nil, sifterr.Wrapf(err, sifterr.CodeIndexDatabaseFailure, "searching vectors")
	}
	defer func() { _ = rows.Close() }()

	type candidate struct {
		result index.Result
		pos    int64
	}
	var candidates []candidate
	for rows.Next() {
		var c candidate
		var distance float64
		if err := rows.Scan(&c.result.ChunkID, &distance, &c.pos, &c.result.SourceID, &c.result.Text); err != nil {
			return nil, sifterr.Wrapf(err, sifterr.CodeIndexDatabaseFailure, "scanning search result")
		}
		// Unit vectors: L2 distance d gives cosine = 1 - d²/2.
		c.result.Score = 1 - distance*distance/2
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, sifterr.Wrapf(err, sifterr.CodeIndexDatabaseFailure, "iterating search results")
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		if candidates[a].result.Score != candidates[b].result.Score {
			return candidates[a].result.Score > candidates[b].result.Score
		}
		return candidates[a].pos < candidates[b].pos
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	results := make([]index.Result, 0, k)
	for _, c := range candidates[:k] {
		results = append(results, c.result)
	}
	return results, nil
}

// Stats reports the current index content.
func (x *Index) Stats(ctx context.Context) (index.Stats, error) {
	stats := index.Stats{
		Dimensions: x.dims,
		Model:      x.model,
		BySource:   map[string]int{},
	}

	rows, err := x.db.QueryContext(ctx, `SELECT source_id, COUNT(*) FROM chunk_meta GROUP BY source_id`)
	if err != nil {
		return index.Stats{}, sifterr.Wrapf(err, sifterr.CodeIndexDatabaseFailure, "counting chunks by source")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var src string
		var n int
		if err := rows.Scan(&src, &n); err != nil {
			return index.Stats{}, sifterr.Wrapf(err, sifterr.CodeIndexDatabaseFailure, "scanning source count")
		}
		stats.BySource[src] = n
		stats.Records += n
		stats.Documents++
	}
	if err := rows.Err(); err != nil {
		return index.Stats{}, sifterr.Wrapf(err, sifterr.CodeIndexDatabaseFailure, "iterating source counts")
	}

	var builtAt string
	err = x.db.QueryRowContext(ctx, `SELECT value FROM index_info WHERE key = 'built_at'`).Scan(&builtAt)
	switch {
	case err == sql.ErrNoRows:
		// Never built; zero timestamp.
	case err != nil:
		return index.Stats{}, sifterr.Wrapf(err, sifterr.CodeIndexDatabaseFailure, "reading build timestamp")
	default:
		if ts, perr := time.Parse(time.RFC3339Nano, builtAt); perr == nil {
			stats.BuiltAt = ts
		}
	}

	return stats, nil
}

// Close closes the underlying database connection.
func (x *Index) Close() error {
	return x.db.Close()
}

func normalized(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1 / math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x * inv
	}
	return out
}
