// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sift Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Reset the knowledge base",
		Long:  "Remove every indexed chunk and document. The next query fails until documents are ingested again.",
		RunE:  runClear,
	}
}

func runClear(cmd *cobra.Command, _ []string) error {
	a, err := newIndexApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.loadSnapshot(); err != nil {
		return err
	}
	if err := a.index.Clear(cmd.Context()); err != nil {
		return err
	}
	if err := a.saveSnapshot(); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Knowledge base cleared.")
	return nil
}
