// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sift Contributors

package embedder

import (
	"context"
	"errors"
	"log/slog"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	sifterr "github.com/sift-dev/sift/pkg/errors"
)

// DefaultMaxInputRunes bounds a single embedding input. Inputs past the
// bound are truncated deterministically rather than rejected.
const DefaultMaxInputRunes = 8000

// Config holds OpenAI-compatible embedding configuration.
type Config struct {
	APIKey        string
	BaseURL       string // optional, any OpenAI-compatible endpoint
	Model         string
	Dimensions    int
	MaxInputRunes int // 0 means DefaultMaxInputRunes
}

// OpenAI implements Embedder against the OpenAI embeddings API, or any
// endpoint speaking the same protocol when BaseURL is set.
type OpenAI struct {
	client   openaisdk.Client
	config   Config
	maxRunes int
	logger   *slog.Logger
}

var _ Embedder = (*OpenAI)(nil)

// NewOpenAI creates an OpenAI-backed embedder. Returns an error if the API
// key, model, or dimension is missing.
func NewOpenAI(cfg Config, logger *slog.Logger) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, sifterr.New(sifterr.CodeEmbedderConfigInvalid, "missing api_key in embedder config")
	}
	if cfg.Model == "" {
		return nil, sifterr.New(sifterr.CodeEmbedderConfigInvalid, "missing model in embedder config")
	}
	if cfg.Dimensions <= 0 {
		return nil, sifterr.Errorf(sifterr.CodeEmbedderConfigInvalid,
			"embedder dimensions must be positive, got %d", cfg.Dimensions)
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	maxRunes := cfg.MaxInputRunes
	if maxRunes <= 0 {
		maxRunes = DefaultMaxInputRunes
	}

	return &OpenAI{
		client:   openaisdk.NewClient(opts...),
		config:   cfg,
		maxRunes: maxRunes,
		logger:   logger,
	}, nil
}

func (e *OpenAI) Dimensions() int { return e.config.Dimensions }
func (e *OpenAI) Model() string   { return e.config.Model }

// Embed embeds a single text.
func (e *OpenAI) Embed(ctx context.Context, text string) (Result, error) {
	results, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return Result{}, err
	}
	return results[0], nil
}

// EmbedBatch embeds texts in one request. Result i corresponds to input i.
func (e *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([]Result, error) {
	if len(texts) == 0 {
		return nil, sifterr.New(sifterr.CodeEmbedderInputInvalid, "no texts to embed")
	}

	inputs := make([]string, len(texts))
	truncated := make([]bool, len(texts))
	for i, t := range texts {
		if t == "" {
			return nil, sifterr.New(sifterr.CodeEmbedderInputInvalid, "empty text at batch position",
				sifterr.Field("position", i))
		}
		inputs[i], truncated[i] = Truncate(t, e.maxRunes)
		if truncated[i] {
			e.logger.Warn("embedding input truncated",
				"position", i,
				"max_runes", e.maxRunes,
				"original_bytes", len(t),
			)
		}
	}

	params := openaisdk.EmbeddingNewParams{
		Input:          openaisdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: inputs},
		Model:          openaisdk.EmbeddingModel(e.config.Model),
		EncodingFormat: openaisdk.EmbeddingNewParamsEncodingFormatFloat,
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, sifterr.Wrap(err, sifterr.CodeEmbedderRequestTimeout, "embedding request timed out",
				sifterr.Field("model", e.config.Model),
				sifterr.Field("batch_size", len(inputs)),
			)
		}
		return nil, sifterr.Wrap(err, sifterr.CodeEmbedderRequestFailure, "embedding request failed",
			sifterr.Field("model", e.config.Model),
			sifterr.Field("batch_size", len(inputs)),
		)
	}

	if len(resp.Data) != len(inputs) {
		return nil, sifterr.Errorf(sifterr.CodeEmbedderResponseInvalid,
			"embedding response has %d vectors for %d inputs", len(resp.Data), len(inputs))
	}

	// The API may return data out of order; re-slot by the reported index.
	results := make([]Result, len(inputs))
	seen := make([]bool, len(inputs))
	for _, d := range resp.Data {
		i := int(d.Index)
		if i < 0 || i >= len(inputs) || seen[i] {
			return nil, sifterr.Errorf(sifterr.CodeEmbedderResponseInvalid,
				"embedding response has invalid or duplicate index %d", i)
		}
		if len(d.Embedding) != e.config.Dimensions {
			return nil, sifterr.New(sifterr.CodeEmbedderResponseInvalid,
				"embedding dimension disagrees with configuration",
				sifterr.FieldDimensions(e.config.Dimensions),
				sifterr.Field("response_dimensions", len(d.Embedding)),
			)
		}
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		results[i] = Result{Vector: vec, Truncated: truncated[i]}
		seen[i] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, sifterr.Errorf(sifterr.CodeEmbedderResponseInvalid,
				"embedding response missing vector for input %d", i)
		}
	}

	return results, nil
}
