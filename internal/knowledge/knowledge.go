// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sift Contributors

package knowledge

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sift-dev/sift/internal/chunker"
	"github.com/sift-dev/sift/internal/document"
	"github.com/sift-dev/sift/internal/embedder"
	"github.com/sift-dev/sift/internal/index"
	sifterr "github.com/sift-dev/sift/pkg/errors"
)

// State is the knowledge base lifecycle. Transitions happen only through
// Ingest, Rebuild, Clear, and Load.
type State int32

const (
	StateEmpty State = iota
	StateBuilding
	StateReady
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateBuilding:
		return "building"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// DocumentFailure records one document that could not be ingested.
// Siblings in the same batch are unaffected.
type DocumentFailure struct {
	SourceID string
	Err      error
}

// Report summarizes one ingest batch.
type Report struct {
	BatchID   string
	Processed int
	Chunks    int
	Failed    []DocumentFailure
}

// Status is the operational view of the knowledge base.
type Status struct {
	State      State
	Documents  int
	Chunks     int
	Dimensions int
	Model      string
	BuiltAt    time.Time
	BySource   map[string]int
}

// Base owns the ingest pipeline and the index lifecycle. Ingest, Rebuild,
// Clear, and Load serialize on an internal mutex; Status and the index
// read path run concurrently with them.
type Base struct {
	chunker  *chunker.Chunker
	embedder embedder.Embedder
	index    index.Index
	logger   *slog.Logger

	mu    sync.Mutex // serializes writers
	docs  map[string]document.Document
	state atomic.Int32
}

// New creates an empty knowledge base.
func New(ch *chunker.Chunker, emb embedder.Embedder, idx index.Index, logger *slog.Logger) *Base {
	if logger == nil {
		logger = slog.Default()
	}
	return &Base{
		chunker:  ch,
		embedder: emb,
		index:    idx,
		logger:   logger,
		docs:     map[string]document.Document{},
	}
}

// Ingest processes a batch of documents: extract, chunk, embed, and add to
// the index. A failing document is reported and skipped; it never aborts
// its siblings. A source_id that is already retained fails as a duplicate
// on every backend; Clear and re-ingest is the replacement path.
func (b *Base) Ingest(ctx context.Context, docs []document.Document) (Report, error) {
	if len(docs) == 0 {
		return Report{}, sifterr.New(sifterr.CodeKnowledgeIngestEmpty, "no documents to ingest")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	prev := b.loadState()
	b.setState(StateBuilding)

	report := Report{BatchID: uuid.NewString()}
	for _, doc := range docs {
		var records []index.Record
		err := b.checkNew(doc.SourceID)
		if err == nil {
			records, err = b.pipeline(ctx, doc)
		}
		if err == nil {
			err = b.index.Add(ctx, records)
		}
		if err != nil {
			b.logger.Warn("document ingest failed",
				"batch_id", report.BatchID,
				"source_id", doc.SourceID,
				"error", err,
			)
			report.Failed = append(report.Failed, DocumentFailure{SourceID: doc.SourceID, Err: err})
			continue
		}

		b.docs[doc.SourceID] = doc
		report.Processed++
		report.Chunks += len(records)
	}

	if report.Processed == 0 {
		b.setState(prev)
		return report, sifterr.New(sifterr.CodeKnowledgeIngestAllFailed,
			"every document in the batch failed",
			sifterr.FieldBatchID(report.BatchID),
			sifterr.Field("failed", len(report.Failed)),
		)
	}

	b.setState(StateReady)
	b.logger.Info("ingest batch complete",
		"batch_id", report.BatchID,
		"processed", report.Processed,
		"failed", len(report.Failed),
		"chunks", report.Chunks,
	)
	return report, nil
}

// Rebuild re-chunks and re-embeds every retained document and atomically
// replaces the index content. Searches running during the rebuild see the
// old content until the swap.
func (b *Base) Rebuild(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	prev := b.loadState()
	b.setState(StateBuilding)

	sourceIDs := make([]string, 0, len(b.docs))
	for id := range b.docs {
		sourceIDs = append(sourceIDs, id)
	}
	sort.Strings(sourceIDs)

	var records []index.Record
	for _, id := range sourceIDs {
		recs, err := b.pipeline(ctx, b.docs[id])
		if err != nil {
			b.setState(prev)
			code := sifterr.CodeOf(err)
			if code == "" {
				code = sifterr.CodeKnowledgeRebuildFailure
			}
			return sifterr.Wrapf(err, code, "rebuilding source %s", id)
		}
		records = append(records, recs...)
	}

	if err := b.index.Rebuild(ctx, records); err != nil {
		b.setState(prev)
		return err
	}

	if len(records) == 0 {
		b.setState(StateEmpty)
	} else {
		b.setState(StateReady)
	}
	b.logger.Info("rebuild complete", "documents", len(sourceIDs), "chunks", len(records))
	return nil
}

// Clear resets the knowledge base: index content and retained documents.
func (b *Base) Clear(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.index.Clear(ctx); err != nil {
		return err
	}
	b.docs = map[string]document.Document{}
	b.setState(StateEmpty)
	b.logger.Info("knowledge base cleared")
	return nil
}

// Status reports the lifecycle state and index content counts. It never
// blocks on a writer in progress.
func (b *Base) Status(ctx context.Context) (Status, error) {
	stats, err := b.index.Stats(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		State:      b.loadState(),
		Documents:  stats.Documents,
		Chunks:     stats.Records,
		Dimensions: stats.Dimensions,
		Model:      stats.Model,
		BuiltAt:    stats.BuiltAt,
		BySource:   stats.BySource,
	}, nil
}

// Save persists the index snapshot if the backend supports it. Durable
// backends return nil without writing a snapshot file.
func (b *Base) Save(path string) error {
	p, ok := b.index.(index.Persister)
	if !ok {
		return nil
	}
	return p.Persist(path)
}

// Load replaces the index content from a persisted snapshot. A snapshot
// built with a different embedding model is loaded with a warning; the
// dimension check on the next query still enforces compatibility.
func (b *Base) Load(ctx context.Context, path string) error {
	p, ok := b.index.(index.Persister)
	if !ok {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := p.Load(path); err != nil {
		return err
	}

	stats, err := b.index.Stats(ctx)
	if err != nil {
		return err
	}
	if stats.Model != "" && stats.Model != b.embedder.Model() {
		b.logger.Warn("snapshot embedding model differs from configured model",
			"snapshot_model", stats.Model,
			"configured_model", b.embedder.Model(),
		)
	}

	if stats.Records == 0 {
		b.setState(StateEmpty)
	} else {
		b.setState(StateReady)
	}
	return nil
}

// checkNew rejects a source_id the base already retains. Appending a
// second copy would duplicate records on one backend and violate a
// primary key on another, so the contract is reject everywhere.
func (b *Base) checkNew(sourceID string) error {
	if _, exists := b.docs[sourceID]; exists {
		return sifterr.New(sifterr.CodeKnowledgeDocumentDuplicate,
			"source is already indexed, clear and re-ingest to replace it",
			sifterr.FieldSourceID(sourceID))
	}
	return nil
}

// pipeline runs extract, chunk, embed for one document and returns the
// index records in chunk order.
func (b *Base) pipeline(ctx context.Context, doc document.Document) ([]index.Record, error) {
	text, err := document.Extract(doc)
	if err != nil {
		return nil, err
	}

	chunks, err := b.chunker.Chunk(doc.SourceID, text)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	embedded, err := b.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}

	records := make([]index.Record, len(chunks))
	for i, c := range chunks {
		records[i] = index.Record{
			ChunkID:       c.ID,
			SourceID:      c.SourceID,
			Text:          c.Text,
			SequenceIndex: c.SequenceIndex,
			Vector:        embedded[i].Vector,
		}
	}
	return records, nil
}

func (b *Base) loadState() State { return State(b.state.Load()) }
func (b *Base) setState(s State) { b.state.Store(int32(s)) }
