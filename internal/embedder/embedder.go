// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sift Contributors

package embedder

import (
	"context"
	"strings"
	"unicode/utf8"
)

// Result is one embedded input. Truncated reports that the input exceeded
// the model's input budget and was cut before embedding.
type Result struct {
	Vector    []float32
	Truncated bool
}

// Embedder turns text into fixed-dimension vectors. Implementations must
// be safe for concurrent use and must preserve per-item order in
// EmbedBatch: result i always corresponds to input i.
type Embedder interface {
	Embed(ctx context.Context, text string) (Result, error)
	EmbedBatch(ctx context.Context, texts []string) ([]Result, error)
	Dimensions() int
	Model() string
}

// Truncate cuts s to at most maxRunes runes, never splitting a rune. The
// cut is deterministic: the same input always yields the same output.
func Truncate(s string, maxRunes int) (string, bool) {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s, false
	}

	var b strings.Builder
	b.Grow(len(s))
	n := 0
	for _, r := range s {
		if n == maxRunes {
			break
		}
		b.WriteRune(r)
		n++
	}
	return b.String(), true
}
