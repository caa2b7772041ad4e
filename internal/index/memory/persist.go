// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sift Contributors

package memory

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/sift-dev/sift/internal/index"
	sifterr "github.com/sift-dev/sift/pkg/errors"
)

// snapshotFile is the on-disk form of one index generation. The manifest
// is stored explicitly even though it is derivable from the records, so
// operational tooling can inspect the file without replaying it.
type snapshotFile struct {
	Dimensions int                 `json:"dimensions"`
	Model      string              `json:"model,omitempty"`
	BuiltAt    time.Time           `json:"built_at"`
	Manifest   map[string][]string `json:"manifest"`
	Records    []recordFile        `json:"records"`
}

type recordFile struct {
	ChunkID       string    `json:"chunk_id"`
	SourceID      string    `json:"source_id"`
	SequenceIndex int       `json:"sequence_index"`
	Text          string    `json:"text"`
	Vector        []float32 `json:"vector"`
}

// Persist serializes the current snapshot to a single file. The write
// goes through a temp file and rename so a crash never leaves a corrupt
// snapshot in place.
func (x *Index) Persist(path string) error {
	snap := x.snap.Load()

	f := snapshotFile{
		Dimensions: snap.dims,
		Model:      snap.model,
		BuiltAt:    snap.builtAt,
		Manifest:   snap.manifest,
		Records:    make([]recordFile, 0, len(snap.records)),
	}
	for _, r := range snap.records {
		f.Records = append(f.Records, recordFile{
			ChunkID:       r.ChunkID,
			SourceID:      r.SourceID,
			SequenceIndex: r.SequenceIndex,
			Text:          r.Text,
			Vector:        r.Vector,
		})
	}

	data, err := json.Marshal(f)
	if err != nil {
		return sifterr.Wrapf(err, sifterr.CodeIndexPersistFailure, "encoding snapshot")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return sifterr.Wrapf(err, sifterr.CodeIndexPersistFailure, "creating snapshot directory")
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return sifterr.Wrapf(err, sifterr.CodeIndexPersistFailure, "writing snapshot %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return sifterr.Wrapf(err, sifterr.CodeIndexPersistFailure, "replacing snapshot %s", path)
	}
	return nil
}

// Load replaces the index content with a persisted snapshot. A missing or
// corrupt file fails with an unavailable error rather than silently
// producing an empty index.
func (x *Index) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return sifterr.Wrap(err, sifterr.CodeIndexSnapshotUnavailable, "reading snapshot",
			sifterr.Field("path", path))
	}

	var f snapshotFile
	if err := json.Unmarshal(data, &f); err != nil {
		return sifterr.Wrap(err, sifterr.CodeIndexSnapshotUnavailable, "decoding snapshot",
			sifterr.Field("path", path))
	}

	next := emptySnapshot(f.Dimensions, f.Model)
	next.builtAt = f.BuiltAt
	for _, r := range f.Records {
		if len(r.Vector) != f.Dimensions {
			return sifterr.New(sifterr.CodeIndexSnapshotUnavailable, "snapshot record dimension disagrees with header",
				sifterr.Field("path", path),
				sifterr.FieldChunkID(r.ChunkID),
				sifterr.FieldDimensions(f.Dimensions),
			)
		}
		next.records = append(next.records, index.Record{
			ChunkID:       r.ChunkID,
			SourceID:      r.SourceID,
			SequenceIndex: r.SequenceIndex,
			Text:          r.Text,
			Vector:        r.Vector,
		})
		next.norms = append(next.norms, norm(r.Vector))
		next.manifest[r.SourceID] = append(next.manifest[r.SourceID], r.ChunkID)
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.snap.Store(next)
	return nil
}
