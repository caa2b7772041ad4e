// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sift Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sift-dev/sift/internal/document"
	sifterr "github.com/sift-dev/sift/pkg/errors"
)

func newRebuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rebuild [files...]",
		Short: "Rebuild the index from scratch",
		Long:  "Re-chunk and re-embed the given documents and atomically replace the index content. Use after changing chunker or embedder configuration.",
		RunE:  runRebuild,
	}

	cmd.Flags().String("docset", "", "path to a YAML docset manifest instead of file arguments")

	return cmd
}

func runRebuild(cmd *cobra.Command, args []string) error {
	docsetPath, _ := cmd.Flags().GetString("docset")
	if docsetPath == "" && len(args) == 0 {
		return sifterr.New(sifterr.CodeCLIInputInvalid, "nothing to rebuild from: pass files or --docset")
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

	// A rebuild starts from a clean slate: ingest into the empty index,
	// then swap. The ingest itself populates the retained document set
	// the atomic rebuild re-embeds.
	if err := a.base.Clear(ctx); err != nil {
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

	fmt.Fprintf(out, "Rebuilt index: %d document(s), %d chunk(s)\n", report.Processed, report.Chunks)
	return nil
}
