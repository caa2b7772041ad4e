// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sift Contributors

package errors

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error. Codes follow the
// "area.object.verb.reason" convention; the trailing reason segment drives
// the Is* classification helpers.
type Code string

const (
	CodeDocumentFormatInvalid     Code = "document.format.resolve.invalid_argument"
	CodeDocumentSourceInvalid     Code = "document.source.validate.invalid_argument"
	CodeDocumentExtractFailure    Code = "document.content.extract.failure"
	CodeDocumentDocsetInvalid     Code = "document.docset.parse.invalid_argument"
	CodeDocumentDocsetReadFailure Code = "document.docset.read.failure"

	CodeChunkerConfigInvalid Code = "chunker.config.validate.invalid_argument"

	CodeEmbedderConfigInvalid   Code = "embedder.config.validate.invalid_argument"
	CodeEmbedderInputInvalid    Code = "embedder.input.validate.invalid_argument"
	CodeEmbedderRequestTimeout  Code = "embedder.request.embed.timeout"
	CodeEmbedderRequestFailure  Code = "embedder.request.embed.failure"
	CodeEmbedderResponseInvalid Code = "embedder.response.parse.failure"

	CodeIndexConfigInvalid       Code = "index.config.validate.invalid_argument"
	CodeIndexBackendUnsupported  Code = "index.backend.resolve.invalid_argument"
	CodeIndexQueryInvalid        Code = "index.query.validate.invalid_argument"
	CodeIndexDimensionMismatch   Code = "index.record.add.dimension_mismatch"
	CodeIndexRecordDuplicate     Code = "index.record.add.duplicate"
	CodeIndexSnapshotUnavailable Code = "index.snapshot.load.unavailable"
	CodeIndexPersistFailure      Code = "index.snapshot.persist.failure"
	CodeIndexDatabaseFailure     Code = "index.database.query.failure"

	CodeRetrieverQueryInvalid Code = "retriever.query.validate.invalid_argument"

	CodeKnowledgeBaseNotReady      Code = "knowledge.base.query.not_ready"
	CodeKnowledgeIngestEmpty       Code = "knowledge.ingest.validate.invalid_argument"
	CodeKnowledgeIngestAllFailed   Code = "knowledge.ingest.batch.failure"
	CodeKnowledgeDocumentDuplicate Code = "knowledge.document.ingest.duplicate"
	CodeKnowledgeRebuildFailure    Code = "knowledge.document.rebuild.failure"

	CodeGenerationUnavailable    Code = "generate.request.call.unavailable"
	CodeGenerationRequestInvalid Code = "generate.request.validate.invalid_argument"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeCLISetupFailure Code = "cli.setup.failure"
	CodeCLIInputInvalid Code = "cli.input.invalid_argument"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldSourceID(value string) Attr {
	return Field("source_id", value)
}

func FieldChunkID(value string) Attr {
	return Field("chunk_id", value)
}

func FieldBatchID(value string) Attr {
	return Field("batch_id", value)
}

func FieldDimensions(value int) Attr {
	return Field("dimensions", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeIndexDatabaseFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// IsInvalidArgument reports whether the error classifies as bad caller input.
func IsInvalidArgument(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid_argument" || r == "invalid_value"
}

// IsDimensionMismatch reports an embedding-space incompatibility between a
// record or query vector and the index's established dimension.
func IsDimensionMismatch(err error) bool {
	return reason(CodeOf(err)) == "dimension_mismatch"
}

// IsUnavailable reports that a persisted index or an external collaborator
// is missing, corrupt, or unreachable.
func IsUnavailable(err error) bool {
	return reason(CodeOf(err)) == "unavailable"
}

// IsNotReady reports a query against a knowledge base with no completed build.
func IsNotReady(err error) bool {
	return reason(CodeOf(err)) == "not_ready"
}

// IsDuplicate reports an ingest of a source the knowledge base already holds.
func IsDuplicate(err error) bool {
	return reason(CodeOf(err)) == "duplicate"
}

func IsTimeout(err error) bool {
	return reason(CodeOf(err)) == "timeout"
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
