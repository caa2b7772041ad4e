// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sift Contributors

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sift-dev/sift/internal/document"
	sifterr "github.com/sift-dev/sift/pkg/errors"
)

// extractHTMLContext renders the page's visible text and structural
// appendix for selector-aware script generation. Malformed HTML falls
// back to the raw bytes.
func extractHTMLContext(raw []byte) string {
	doc, err := document.New("page.html", document.FormatHTML, raw)
	if err != nil {
		return string(raw)
	}
	text, err := document.Extract(doc)
	if err != nil {
		return string(raw)
	}
	return text
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate grounded QA artifacts",
	}

	cmd.AddCommand(newGenerateCasesCmd(), newGenerateScriptCmd())
	return cmd
}

func newGenerateCasesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cases <query>",
		Short: "Generate test cases grounded in retrieved chunks",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runGenerateCases,
	}

	cmd.Flags().IntP("count", "n", 3, "number of test cases")
	cmd.Flags().IntP("top", "k", 0, "number of chunks to ground on (default from config)")
	cmd.Flags().Float64("threshold", 0, "minimum similarity score (default from config)")

	return cmd
}

func runGenerateCases(cmd *cobra.Command, args []string) error {
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
	n, _ := cmd.Flags().GetInt("count")

	query := strings.Join(args, " ")
	results, err := a.retriever.Retrieve(ctx, query, k, threshold)
	if err != nil {
		return err
	}

	svc, err := a.newGenerator()
	if err != nil {
		return err
	}
	cases, err := svc.GenerateTestCases(ctx, query, results, n)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), cases)
	return nil
}

func newGenerateScriptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Generate a test script for a test case",
		RunE:  runGenerateScript,
	}

	cmd.Flags().String("case-file", "", "file holding the test case text (required)")
	cmd.Flags().String("html-file", "", "HTML page whose structure the script may reference")
	_ = cmd.MarkFlagRequired("case-file")

	return cmd
}

func runGenerateScript(cmd *cobra.Command, _ []string) error {
	caseFile, _ := cmd.Flags().GetString("case-file")
	testCase, err := os.ReadFile(caseFile)
	if err != nil {
		return sifterr.Wrapf(err, sifterr.CodeCLIInputInvalid, "reading %s", caseFile)
	}

	var htmlContext string
	if htmlFile, _ := cmd.Flags().GetString("html-file"); htmlFile != "" {
		raw, err := os.ReadFile(htmlFile)
		if err != nil {
			return sifterr.Wrapf(err, sifterr.CodeCLIInputInvalid, "reading %s", htmlFile)
		}
		htmlContext = extractHTMLContext(raw)
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	svc, err := a.newGenerator()
	if err != nil {
		return err
	}
	script, err := svc.GenerateScript(cmd.Context(), string(testCase), htmlContext)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), script)
	return nil
}
