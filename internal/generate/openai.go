// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sift Contributors

package generate

import (
	"context"
	"errors"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	sifterr "github.com/sift-dev/sift/pkg/errors"
)

// Config holds chat-completion configuration for any OpenAI-compatible
// endpoint.
type Config struct {
	APIKey      string
	BaseURL     string // optional, e.g. a Groq or local endpoint
	Model       string
	MaxTokens   int
	Temperature float64
}

// OpenAI implements Generator over the chat completions API.
type OpenAI struct {
	client openaisdk.Client
	config Config
}

var _ Generator = (*OpenAI)(nil)

// NewOpenAI creates a chat-backed generator. Returns an error if the API
// key or model is missing.
func NewOpenAI(cfg Config) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, sifterr.New(sifterr.CodeGenerationRequestInvalid, "missing api_key in generation config")
	}
	if cfg.Model == "" {
		return nil, sifterr.New(sifterr.CodeGenerationRequestInvalid, "missing model in generation config")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAI{client: openaisdk.NewClient(opts...), config: cfg}, nil
}

// Generate sends prompt as a single user message and returns the first
// choice's content.
func (g *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	params := openaisdk.ChatCompletionNewParams{
		Model: shared.ChatModel(g.config.Model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.UserMessage(prompt),
		},
	}
	if g.config.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(g.config.MaxTokens))
	}
	if g.config.Temperature > 0 {
		params.Temperature = param.NewOpt(g.config.Temperature)
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", sifterr.Wrap(err, sifterr.CodeGenerationUnavailable, "generation request timed out",
				sifterr.Field("model", g.config.Model))
		}
		return "", sifterr.Wrap(err, sifterr.CodeGenerationUnavailable, "generation request failed",
			sifterr.Field("model", g.config.Model))
	}
	if len(resp.Choices) == 0 {
		return "", sifterr.New(sifterr.CodeGenerationUnavailable, "generation response has no choices",
			sifterr.Field("model", g.config.Model))
	}

	return resp.Choices[0].Message.Content, nil
}
