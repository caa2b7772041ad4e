// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sift Contributors

package generate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sift-dev/sift/internal/retriever"
	sifterr "github.com/sift-dev/sift/pkg/errors"
	"github.com/sift-dev/sift/pkg/health"
)

// Generator is the external text-generation collaborator. Implementations
// take a fully assembled prompt and return generated text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Service shapes generation requests: it assembles a grounded context
// block from retrieved chunks and tracks collaborator health so repeated
// failures fail fast instead of hammering a downed endpoint.
type Service struct {
	generator Generator
	health    *health.Tracker
	logger    *slog.Logger
}

// NewService creates a generation service around gen.
func NewService(gen Generator, tracker *health.Tracker, logger *slog.Logger) *Service {
	if tracker == nil {
		tracker, _ = health.NewTracker(health.DefaultCooldown)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{generator: gen, health: tracker, logger: logger}
}

// GenerateTestCases produces n QA test cases grounded in the retrieved
// chunks. Every statement in the output is expected to trace back to a
// numbered source block.
func (s *Service) GenerateTestCases(ctx context.Context, query string, results []retriever.Result, n int) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", sifterr.New(sifterr.CodeGenerationRequestInvalid, "query text is empty")
	}
	if n <= 0 {
		return "", sifterr.Errorf(sifterr.CodeGenerationRequestInvalid, "test case count must be positive, got %d", n)
	}
	if len(results) == 0 {
		return "", sifterr.New(sifterr.CodeGenerationRequestInvalid, "no retrieved chunks to ground on")
	}

	var b strings.Builder
	b.WriteString("You are a QA engineer. Using ONLY the sourced context below, ")
	fmt.Fprintf(&b, "write %d test cases answering: %s\n\n", n, query)
	b.WriteString(contextBlock(results))
	b.WriteString("\nEach test case must cite the source number it is grounded in.\n")

	return s.call(ctx, "test_cases", b.String())
}

// GenerateScript produces an executable test script for one test case.
// htmlContext carries the extracted page structure (element IDs, inputs,
// buttons) so the script can reference real selectors.
func (s *Service) GenerateScript(ctx context.Context, testCase, htmlContext string) (string, error) {
	if strings.TrimSpace(testCase) == "" {
		return "", sifterr.New(sifterr.CodeGenerationRequestInvalid, "test case text is empty")
	}

	var b strings.Builder
	b.WriteString("Write an automated browser test script implementing this test case:\n\n")
	b.WriteString(testCase)
	b.WriteString("\n")
	if strings.TrimSpace(htmlContext) != "" {
		b.WriteString("\nPage structure for selectors:\n")
		b.WriteString(htmlContext)
		b.WriteString("\n")
	}
	b.WriteString("\nUse only selectors present in the page structure.\n")

	return s.call(ctx, "script", b.String())
}

func (s *Service) call(ctx context.Context, kind, prompt string) (string, error) {
	if !s.health.IsHealthy() {
		m := s.health.Snapshot()
		attrs := []sifterr.Attr{sifterr.Field("failures", m.FailureCount)}
		if m.CooldownUntil != nil {
			attrs = append(attrs, sifterr.Field("retry_at", m.CooldownUntil.Format(time.RFC3339)))
		}
		return "", sifterr.New(sifterr.CodeGenerationUnavailable,
			"generation collaborator is cooling down after a failure", attrs...)
	}

	out, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		s.health.RecordFailure()
		s.logger.Warn("generation failed", "kind", kind, "error", err)
		return "", sifterr.Wrapf(err, sifterr.CodeGenerationUnavailable, "generating %s", kind)
	}

	s.health.RecordSuccess()
	return out, nil
}

// contextBlock renders retrieved chunks as numbered source blocks with
// provenance, the grounding format consumed by the prompts above.
func contextBlock(results []retriever.Result) string {
	var b strings.Builder
	b.WriteString("CONTEXT:\n")
	for i, r := range results {
		fmt.Fprintf(&b, "[Source %d: %s (relevance %.2f)]\n%s\n\n", i+1, r.SourceID, r.Score, r.Text)
	}
	return b.String()
}
