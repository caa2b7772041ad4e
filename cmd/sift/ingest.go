// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sift Contributors

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sift-dev/sift/internal/document"
	sifterr "github.com/sift-dev/sift/pkg/errors"
)

func newIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Ingest documents into the knowledge base",
		Long:  "Chunk, embed, and index the given documents. Formats are resolved from file extensions (md, txt, json, html) unless a docset manifest pins them.",
		RunE:  runIngest,
	}

	cmd.Flags().String("docset", "", "path to a YAML docset manifest instead of file arguments")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	docsetPath, _ := cmd.Flags().GetString("docset")
	if docsetPath == "" && len(args) == 0 {
		return sifterr.New(sifterr.CodeCLIInputInvalid, "nothing to ingest: pass files or --docset")
	}
	if docsetPath != "" && len(args) > 0 {
		return sifterr.New(sifterr.CodeCLIInputInvalid, "pass either files or --docset, not both")
	}

	var docs []document.Document
	var err error
	if docsetPath != "" {
		docs, err = document.LoadDocset(docsetPath)
	} else {
		docs, err = loadFiles(args)
	}
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	if err := a.loadSnapshot(ctx); err != nil {
		return err
	}

	report, err := a.base.Ingest(ctx, docs)
	out := cmd.OutOrStdout()
	for _, f := range report.Failed {
		fmt.Fprintf(out, "FAILED %s: %v\n", f.SourceID, f.Err)
	}
	if err != nil {
		return err
	}

	if err := a.saveSnapshot(); err != nil {
		return err
	}

	fmt.Fprintf(out, "Ingested %d document(s), %d chunk(s) (batch %s)\n",
		report.Processed, report.Chunks, report.BatchID)
	return nil
}

func loadFiles(paths []string) ([]document.Document, error) {
	docs := make([]document.Document, 0, len(paths))
	for _, path := range paths {
		format, err := document.FormatFromPath(path)
		if err != nil {
			return nil, err
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, sifterr.Wrapf(err, sifterr.CodeCLIInputInvalid, "reading %s", path)
		}
		doc, err := document.New(filepath.Base(path), format, raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
