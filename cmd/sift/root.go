// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sift Contributors

package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root sift command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sift",
		Short:         "Sift — retrieval core for grounded QA test generation",
		Long:          "Sift ingests support documents, indexes them for semantic search, and retrieves grounded context for QA test-case generation.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	root.AddCommand(
		newIngestCmd(),
		newQueryCmd(),
		newStatusCmd(),
		newRebuildCmd(),
		newClearCmd(),
		newGenerateCmd(),
		newVersionCmd(),
	)

	return root
}
