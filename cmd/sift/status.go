// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sift Contributors

package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show knowledge base status",
		Long:  "Report whether the index is empty or populated, and the indexed chunk and document counts.",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	a, err := newIndexApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.loadSnapshot(); err != nil {
		return err
	}

	stats, err := a.index.Stats(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	state := "ready"
	if stats.Records == 0 {
		state = "empty"
	}
	fmt.Fprintf(out, "State:      %s\n", state)
	fmt.Fprintf(out, "Backend:    %s\n", a.cfg.Index.Backend)
	fmt.Fprintf(out, "Documents:  %d\n", stats.Documents)
	fmt.Fprintf(out, "Chunks:     %d\n", stats.Records)
	if stats.Dimensions > 0 {
		fmt.Fprintf(out, "Dimensions: %d\n", stats.Dimensions)
	}
	if stats.Model != "" {
		fmt.Fprintf(out, "Model:      %s\n", stats.Model)
	}
	if !stats.BuiltAt.IsZero() {
		fmt.Fprintf(out, "Built:      %s\n", stats.BuiltAt.Format("2006-01-02 15:04:05 MST"))
	}

	if len(stats.BySource) > 0 {
		sources := make([]string, 0, len(stats.BySource))
		for src := range stats.BySource {
			sources = append(sources, src)
		}
		sort.Strings(sources)

		fmt.Fprintln(out, "Sources:")
		for _, src := range sources {
			fmt.Fprintf(out, "  %s: %d chunk(s)\n", src, stats.BySource[src])
		}
	}
	return nil
}
