// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sift Contributors

package config

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/spf13/viper"

	sifterr "github.com/sift-dev/sift/pkg/errors"
)

// Config is the top-level Sift configuration.
type Config struct {
	Chunker    ChunkerConfig    `mapstructure:"chunker"`
	Embedder   EmbedderConfig   `mapstructure:"embedder"`
	Index      IndexConfig      `mapstructure:"index"`
	Retrieval  RetrievalConfig  `mapstructure:"retrieval"`
	Generation GenerationConfig `mapstructure:"generation"`
}

// ChunkerConfig controls document splitting.
type ChunkerConfig struct {
	WindowSize int `mapstructure:"window_size"`
	Overlap    int `mapstructure:"overlap"`
}

// EmbedderConfig holds credentials and shape of the embedding endpoint.
type EmbedderConfig struct {
	APIKey        string `mapstructure:"api_key"`
	BaseURL       string `mapstructure:"base_url"`
	Model         string `mapstructure:"model"`
	Dimensions    int    `mapstructure:"dimensions"`
	MaxInputRunes int    `mapstructure:"max_input_runes"`
}

// IndexConfig selects and parameterizes the vector index backend.
type IndexConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// RetrievalConfig sets query-time defaults.
type RetrievalConfig struct {
	K               int     `mapstructure:"k"`
	Threshold       float64 `mapstructure:"threshold"`
	OverfetchFactor int     `mapstructure:"overfetch_factor"`
}

// GenerationConfig holds credentials and endpoint for the generation
// collaborator.
type GenerationConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix SIFT_).
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("chunker.window_size", 500)
	v.SetDefault("chunker.overlap", 50)
	v.SetDefault("embedder.model", "text-embedding-3-small")
	v.SetDefault("embedder.dimensions", 1536)
	v.SetDefault("index.backend", "memory")
	v.SetDefault("index.path", "sift-index.json")
	v.SetDefault("retrieval.k", 5)
	v.SetDefault("retrieval.threshold", 0.3)
	v.SetDefault("retrieval.overfetch_factor", 3)
	v.SetDefault("generation.model", "llama-3.3-70b-versatile")
	v.SetDefault("generation.max_tokens", 2048)

	// Environment
	v.SetEnvPrefix("SIFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// File
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, sifterr.Errorf(sifterr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, sifterr.Errorf(sifterr.CodeConfigValidateInvalidValue, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, sifterr.Errorf(sifterr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors. It returns a slice
// of all validation errors found, collecting all issues rather than
// stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateChunker()...)
	errs = append(errs, c.validateEmbedder()...)
	errs = append(errs, c.validateIndex()...)
	errs = append(errs, c.validateRetrieval()...)

	return errs
}

func (c *Config) validateChunker() []error {
	var errs []error

	if c.Chunker.WindowSize < utf8.UTFMax {
		errs = append(errs, sifterr.Errorf(sifterr.CodeConfigValidateInvalidValue,
			"config: chunker.window_size must be at least %d, got %d", utf8.UTFMax, c.Chunker.WindowSize))
	}
	if c.Chunker.Overlap < 0 {
		errs = append(errs, sifterr.Errorf(sifterr.CodeConfigValidateInvalidValue,
			"config: chunker.overlap must not be negative, got %d", c.Chunker.Overlap))
	} else if c.Chunker.WindowSize > 0 && c.Chunker.Overlap >= c.Chunker.WindowSize {
		errs = append(errs, sifterr.Errorf(sifterr.CodeConfigValidateInvalidValue,
			"config: chunker.overlap must be smaller than chunker.window_size, got %d >= %d",
			c.Chunker.Overlap, c.Chunker.WindowSize))
	}

	return errs
}

func (c *Config) validateEmbedder() []error {
	var errs []error

	if c.Embedder.Model == "" {
		errs = append(errs, sifterr.Errorf(sifterr.CodeConfigValidateInvalidValue, "config: embedder.model must not be empty"))
	}
	if c.Embedder.Dimensions <= 0 {
		errs = append(errs, sifterr.Errorf(sifterr.CodeConfigValidateInvalidValue,
			"config: embedder.dimensions must be positive, got %d", c.Embedder.Dimensions))
	}
	if c.Embedder.MaxInputRunes < 0 {
		errs = append(errs, sifterr.Errorf(sifterr.CodeConfigValidateInvalidValue,
			"config: embedder.max_input_runes must not be negative, got %d", c.Embedder.MaxInputRunes))
	}

	return errs
}

func (c *Config) validateIndex() []error {
	var errs []error

	validBackends := map[string]bool{"memory": true, "sqlite": true}
	if !validBackends[c.Index.Backend] {
		errs = append(errs, sifterr.Errorf(sifterr.CodeConfigValidateInvalidValue,
			"config: index.backend must be one of [memory, sqlite], got %q", c.Index.Backend))
	}
	if c.Index.Backend == "sqlite" && c.Index.Path == "" {
		errs = append(errs, sifterr.Errorf(sifterr.CodeConfigValidateInvalidValue,
			"config: index.path must not be empty for the sqlite backend"))
	}

	return errs
}

func (c *Config) validateRetrieval() []error {
	var errs []error

	if c.Retrieval.K <= 0 {
		errs = append(errs, sifterr.Errorf(sifterr.CodeConfigValidateInvalidValue,
			"config: retrieval.k must be positive, got %d", c.Retrieval.K))
	}
	if c.Retrieval.Threshold < -1 || c.Retrieval.Threshold > 1 {
		errs = append(errs, sifterr.Errorf(sifterr.CodeConfigValidateInvalidValue,
			"config: retrieval.threshold must be within [-1, 1], got %g", c.Retrieval.Threshold))
	}
	if c.Retrieval.OverfetchFactor <= 0 {
		errs = append(errs, sifterr.Errorf(sifterr.CodeConfigValidateInvalidValue,
			"config: retrieval.overfetch_factor must be positive, got %d", c.Retrieval.OverfetchFactor))
	}

	return errs
}
