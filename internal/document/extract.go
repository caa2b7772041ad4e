// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sift Contributors

package document

import (
	"bytes"
	"encoding/json"

	sifterr "github.com/sift-dev/sift/pkg/errors"
)

// Extract converts a document's raw bytes into the text the chunker
// operates on. Markdown and plain text pass through unchanged. JSON is
// re-rendered with stable indentation for readability. HTML is reduced to
// its visible text plus a structural appendix (see extractHTML).
//
// Malformed JSON or HTML degrades to a text-only fallback rather than
// failing the ingest.
func Extract(doc Document) (string, error) {
	if !doc.Format.Valid() {
		return "", sifterr.Errorf(sifterr.CodeDocumentFormatInvalid, "unsupported document format %q", doc.Format)
	}

	switch doc.Format {
	case FormatMarkdown, FormatPlainText:
		return string(doc.Raw), nil
	case FormatJSON:
		return extractJSON(doc.Raw), nil
	case FormatHTML:
		return extractHTML(doc.Raw), nil
	}
	return "", sifterr.Errorf(sifterr.CodeDocumentFormatInvalid, "unsupported document format %q", doc.Format)
}

// extractJSON re-renders JSON with two-space indentation so object
// boundaries land on line boundaries the chunker can split on. Invalid
// JSON falls back to the raw text.
func extractJSON(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
