// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sift Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	sifterr "github.com/sift-dev/sift/pkg/errors"
)

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Retrieve the most relevant chunks for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runQuery,
	}

	cmd.Flags().IntP("top", "k", 0, "number of results (default from config)")
	cmd.Flags().Float64("threshold", 0, "minimum similarity score (default from config)")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	if err := a.loadSnapshot(ctx); err != nil {
		return err
	}

	// An unset flag falls back to config; a set flag is passed through
	// untouched so out-of-range values hit the retriever's validation.
	k := a.cfg.Retrieval.K
	if cmd.Flags().Changed("top") {
		k, _ = cmd.Flags().GetInt("top")
	}
	threshold := a.cfg.Retrieval.Threshold
	if cmd.Flags().Changed("threshold") {
		threshold, _ = cmd.Flags().GetFloat64("threshold")
	}

	query := strings.Join(args, " ")
	results, err := a.retriever.Retrieve(ctx, query, k, threshold)
	if err != nil {
		if sifterr.IsNotReady(err) {
			return sifterr.Wrap(err, sifterr.CodeCLIInputInvalid, "knowledge base is empty, run `sift ingest` first")
		}
		return err
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "No chunks cleared the threshold.")
		return nil
	}
	for i, r := range results {
		fmt.Fprintf(out, "%d. [%.3f] %s (%s)\n%s\n\n", i+1, r.Score, r.ChunkID, r.SourceID, r.Text)
	}
	return nil
}
