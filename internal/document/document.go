// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sift Contributors

package document

import (
	"path/filepath"
	"strings"

	sifterr "github.com/sift-dev/sift/pkg/errors"
)

// Format is the closed set of supported document formats. It is resolved
// once at ingest time; nothing downstream re-sniffs content.
type Format string

const (
	FormatMarkdown  Format = "markdown"
	FormatPlainText Format = "plain-text"
	FormatJSON      Format = "json"
	FormatHTML      Format = "html"
)

// Document is a raw support document as handed to the ingest boundary.
// Immutable once constructed.
type Document struct {
	SourceID string
	Format   Format
	Raw      []byte
}

// New validates and constructs a Document.
func New(sourceID string, format Format, raw []byte) (Document, error) {
	if sourceID == "" {
		return Document{}, sifterr.New(sifterr.CodeDocumentSourceInvalid, "document source_id must not be empty")
	}
	if !format.Valid() {
		return Document{}, sifterr.Errorf(sifterr.CodeDocumentFormatInvalid, "unsupported document format %q", format)
	}
	return Document{SourceID: sourceID, Format: format, Raw: raw}, nil
}

// Valid reports whether f is a member of the closed format set.
func (f Format) Valid() bool {
	switch f {
	case FormatMarkdown, FormatPlainText, FormatJSON, FormatHTML:
		return true
	}
	return false
}

// ResolveFormat maps a caller-supplied format tag or file extension to a
// Format. Accepts both canonical names and common extensions.
func ResolveFormat(tag string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), ".")) {
	case "markdown", "md":
		return FormatMarkdown, nil
	case "plain-text", "plaintext", "text", "txt":
		return FormatPlainText, nil
	case "json":
		return FormatJSON, nil
	case "html", "htm":
		return FormatHTML, nil
	}
	return "", sifterr.Errorf(sifterr.CodeDocumentFormatInvalid, "unsupported document format %q", tag)
}

// FormatFromPath resolves a Format from a file path's extension.
func FormatFromPath(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", sifterr.Errorf(sifterr.CodeDocumentFormatInvalid, "cannot resolve format for %q: no extension", path)
	}
	f, err := ResolveFormat(ext)
	if err != nil {
		return "", sifterr.Errorf(sifterr.CodeDocumentFormatInvalid, "cannot resolve format for %q: unsupported extension %s", path, ext)
	}
	return f, nil
}
