// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sift Contributors

package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	sifterr "github.com/sift-dev/sift/pkg/errors"
)

// Chunk is a contiguous segment of a source document's extracted text.
// Text is the exact byte slice [StartOffset, EndOffset) of the source;
// chunks are never trimmed, so concatenating them minus the overlap
// reproduces the source text byte for byte.
type Chunk struct {
	ID            string
	SourceID      string
	Text          string
	StartOffset   int
	EndOffset     int
	SequenceIndex int
}

// Config controls chunk sizing. Sizes are in bytes of UTF-8 text.
type Config struct {
	WindowSize int // maximum chunk size
	Overlap    int // bytes shared between adjacent chunks
}

// DefaultConfig mirrors the 500/50 character window the system was tuned with.
func DefaultConfig() Config {
	return Config{WindowSize: 500, Overlap: 50}
}

// Chunker splits extracted document text into overlapping chunks.
// Splitting prefers paragraph boundaries, then sentence boundaries, then
// word boundaries within the window, falling back to a hard cut at a rune
// boundary. The same text and configuration always produce the same
// boundaries, which keeps chunk IDs stable across rebuilds.
type Chunker struct {
	cfg Config
}

// New validates cfg and returns a Chunker. The window must hold at least
// one UTF-8 rune of any width, otherwise a hard cut could not land on a
// rune boundary.
func New(cfg Config) (*Chunker, error) {
	if cfg.WindowSize < utf8.UTFMax {
		return nil, sifterr.Errorf(sifterr.CodeChunkerConfigInvalid, "chunker window size must be at least %d bytes, got %d", utf8.UTFMax, cfg.WindowSize)
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.WindowSize {
		return nil, sifterr.Errorf(sifterr.CodeChunkerConfigInvalid, "chunker overlap must be in [0, window), got %d with window %d", cfg.Overlap, cfg.WindowSize)
	}
	return &Chunker{cfg: cfg}, nil
}

// Chunk splits text into chunks. A document no larger than one window
// (including an empty one) yields exactly one chunk covering the whole
// content.
func (c *Chunker) Chunk(sourceID, text string) ([]Chunk, error) {
	if sourceID == "" {
		return nil, sifterr.New(sifterr.CodeDocumentSourceInvalid, "chunk source_id must not be empty")
	}

	if len(text) <= c.cfg.WindowSize {
		return []Chunk{newChunk(sourceID, text, 0, len(text), 0)}, nil
	}

	var chunks []Chunk
	start := 0
	seq := 0
	for start < len(text) {
		end := start + c.cfg.WindowSize
		if end >= len(text) {
			end = len(text)
		} else {
			end = c.boundary(text, start, end)
		}

		chunks = append(chunks, newChunk(sourceID, text[start:end], start, end, seq))
		seq++

		if end >= len(text) {
			break
		}

		// Keep the overlap window aligned to a rune boundary. If the
		// aligned position would not advance past the chunk we just
		// emitted, skip the overlap entirely; end is already
		// rune-aligned, so the loop always makes progress.
		next := end - c.cfg.Overlap
		for next > start && !utf8.RuneStart(text[next]) {
			next--
		}
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks, nil
}

// boundary picks the cut position in (start, max] for a window that does
// not reach the end of the text. Preference order: paragraph break,
// sentence end, word break, hard cut at a rune boundary.
func (c *Chunker) boundary(text string, start, max int) int {
	window := text[start:max]

	if idx := strings.LastIndex(window, "\n\n"); idx > 0 {
		return start + idx + 2
	}

	cut := -1
	for _, marker := range []string{". ", "! ", "? ", "\n"} {
		if idx := strings.LastIndex(window, marker); idx >= 0 {
			if p := idx + len(marker); p > cut {
				cut = p
			}
		}
	}
	if cut > 0 {
		return start + cut
	}

	if idx := strings.LastIndexByte(window, ' '); idx > 0 {
		return start + idx + 1
	}

	for max > start+1 && !utf8.RuneStart(text[max]) {
		max--
	}
	return max
}

func newChunk(sourceID, text string, start, end, seq int) Chunk {
	return Chunk{
		ID:            chunkID(sourceID, start, end),
		SourceID:      sourceID,
		Text:          text,
		StartOffset:   start,
		EndOffset:     end,
		SequenceIndex: seq,
	}
}

// chunkID derives a stable identifier from the source and byte offsets.
// The same document and configuration always reproduce the same IDs.
func chunkID(sourceID string, start, end int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%d-%d", sourceID, start, end)))
	return hex.EncodeToString(sum[:8])
}
