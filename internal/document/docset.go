// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sift Contributors

package document

import (
	"os"
	"path/filepath"

	sifterr "github.com/sift-dev/sift/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Docset is a YAML manifest describing a batch of documents to ingest.
// Paths are resolved relative to the manifest file's directory. The format
// and source_id entries are optional; when omitted they are derived from
// the file path.
type Docset struct {
	Documents []DocsetEntry `yaml:"documents"`
}

// DocsetEntry describes one document in a docset manifest.
type DocsetEntry struct {
	Path     string `yaml:"path"`
	Format   string `yaml:"format"`
	SourceID string `yaml:"source_id"`
}

// LoadDocset parses a docset manifest and reads every listed document.
// A manifest that parses but lists no documents is a caller error.
func LoadDocset(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, sifterr.Wrapf(err, sifterr.CodeDocumentDocsetReadFailure, "reading docset %s", path)
	}

	var ds Docset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, sifterr.Wrapf(err, sifterr.CodeDocumentDocsetInvalid, "parsing docset %s", path)
	}
	if len(ds.Documents) == 0 {
		return nil, sifterr.Errorf(sifterr.CodeDocumentDocsetInvalid, "docset %s lists no documents", path)
	}

	baseDir := filepath.Dir(path)
	docs := make([]Document, 0, len(ds.Documents))
	for _, entry := range ds.Documents {
		doc, err := loadEntry(baseDir, entry)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func loadEntry(baseDir string, entry DocsetEntry) (Document, error) {
	if entry.Path == "" {
		return Document{}, sifterr.New(sifterr.CodeDocumentDocsetInvalid, "docset entry missing path")
	}

	p := entry.Path
	if !filepath.IsAbs(p) {
		p = filepath.Join(baseDir, p)
	}

	var format Format
	var err error
	if entry.Format != "" {
		format, err = ResolveFormat(entry.Format)
	} else {
		format, err = FormatFromPath(p)
	}
	if err != nil {
		return Document{}, err
	}

	raw, err := os.ReadFile(p)
	if err != nil {
		return Document{}, sifterr.Wrapf(err, sifterr.CodeDocumentDocsetReadFailure, "reading document %s", p)
	}

	sourceID := entry.SourceID
	if sourceID == "" {
		sourceID = filepath.Base(p)
	}

	return New(sourceID, format, raw)
}
