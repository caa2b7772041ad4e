// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sift Contributors

package errors_test

import (
	stderrors "errors"
	"testing"

	sifterr "github.com/sift-dev/sift/pkg/errors"
	"github.com/stretchr/testify/assert"
)

// TestClassification verifies the reason-suffix helpers classify codes correctly.
func TestClassification(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"InvalidArgument direct", sifterr.New(sifterr.CodeIndexQueryInvalid, "k must be positive"), sifterr.IsInvalidArgument},
		{"InvalidArgument config", sifterr.New(sifterr.CodeConfigValidateInvalidValue, "bad value"), sifterr.IsInvalidArgument},
		{"DimensionMismatch", sifterr.New(sifterr.CodeIndexDimensionMismatch, "got 3, want 4"), sifterr.IsDimensionMismatch},
		{"Unavailable snapshot", sifterr.New(sifterr.CodeIndexSnapshotUnavailable, "missing snapshot"), sifterr.IsUnavailable},
		{"Unavailable generation", sifterr.New(sifterr.CodeGenerationUnavailable, "upstream down"), sifterr.IsUnavailable},
		{"NotReady", sifterr.New(sifterr.CodeKnowledgeBaseNotReady, "no ingest yet"), sifterr.IsNotReady},
		{"Timeout", sifterr.New(sifterr.CodeEmbedderRequestTimeout, "deadline exceeded"), sifterr.IsTimeout},
		{"Duplicate", sifterr.New(sifterr.CodeKnowledgeDocumentDuplicate, "already indexed"), sifterr.IsDuplicate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
		})
	}
}

// TestClassification_NotMatching verifies helpers return false for other codes.
func TestClassification_NotMatching(t *testing.T) {
	err := sifterr.New(sifterr.CodeIndexDimensionMismatch, "got 3, want 4")

	assert.False(t, sifterr.IsInvalidArgument(err))
	assert.False(t, sifterr.IsUnavailable(err))
	assert.False(t, sifterr.IsNotReady(err))
	assert.False(t, sifterr.IsTimeout(err))
	assert.True(t, sifterr.IsDimensionMismatch(err))
}

func TestCodeOf(t *testing.T) {
	err := sifterr.Errorf(sifterr.CodeKnowledgeBaseNotReady, "query %q before build", "hello")
	assert.Equal(t, sifterr.CodeKnowledgeBaseNotReady, sifterr.CodeOf(err))
	assert.True(t, sifterr.HasCode(err, sifterr.CodeKnowledgeBaseNotReady))

	assert.Equal(t, sifterr.Code(""), sifterr.CodeOf(stderrors.New("plain")))
	assert.Equal(t, sifterr.Code(""), sifterr.CodeOf(nil))
}

func TestWrapPreservesCode(t *testing.T) {
	base := stderrors.New("disk gone")
	err := sifterr.Wrap(base, sifterr.CodeIndexSnapshotUnavailable, "loading snapshot",
		sifterr.Field("path", "/tmp/index.json"))

	assert.True(t, sifterr.IsUnavailable(err))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "/tmp/index.json", sifterr.FieldsOf(err)["path"])
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, sifterr.Wrap(nil, sifterr.CodeIndexDatabaseFailure, "ignored"))
	assert.NoError(t, sifterr.Wrapf(nil, sifterr.CodeIndexDatabaseFailure, "ignored"))
	assert.NoError(t, sifterr.With(nil))
}

func TestFieldHelpers(t *testing.T) {
	err := sifterr.New(sifterr.CodeIndexDimensionMismatch, "mismatch",
		sifterr.FieldSourceID("spec.md"),
		sifterr.FieldChunkID("abc123"),
		sifterr.FieldDimensions(384),
	)

	fields := sifterr.FieldsOf(err)
	assert.Equal(t, "spec.md", fields["source_id"])
	assert.Equal(t, "abc123", fields["chunk_id"])
	assert.Equal(t, 384, fields["dimensions"])
}
