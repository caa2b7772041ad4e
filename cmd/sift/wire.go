// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sift Contributors

package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sift-dev/sift/internal/chunker"
	"github.com/sift-dev/sift/internal/config"
	"github.com/sift-dev/sift/internal/embedder"
	"github.com/sift-dev/sift/internal/generate"
	"github.com/sift-dev/sift/internal/index"
	"github.com/sift-dev/sift/internal/knowledge"
	"github.com/sift-dev/sift/internal/retriever"

	// Index backends register themselves at init.
	_ "github.com/sift-dev/sift/internal/index/memory"
	_ "github.com/sift-dev/sift/internal/index/sqlite"
)

// app wires the retrieval core for one CLI invocation. The memory backend
// round-trips through its snapshot file so state survives across runs; the
// sqlite backend is durable on its own.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	index     index.Index
	base      *knowledge.Base
	retriever *retriever.Retriever
}

// indexApp is the index-only wiring for commands that never embed
// (status, clear). It skips embedder construction so no API key is needed.
type indexApp struct {
	cfg    *config.Config
	logger *slog.Logger
	index  index.Index
}

func newIndexApp(cmd *cobra.Command) (*indexApp, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	idx, err := index.Open(index.Config{
		Backend:    cfg.Index.Backend,
		Path:       cfg.Index.Path,
		Dimensions: cfg.Embedder.Dimensions,
		Model:      cfg.Embedder.Model,
	})
	if err != nil {
		return nil, err
	}

	return &indexApp{cfg: cfg, logger: newLogger(cmd), index: idx}, nil
}

// loadSnapshot restores the persisted snapshot when one exists.
func (a *indexApp) loadSnapshot() error {
	p, ok := a.index.(index.Persister)
	if !ok {
		return nil
	}
	if _, err := os.Stat(a.cfg.Index.Path); err != nil {
		return nil
	}
	return p.Load(a.cfg.Index.Path)
}

func (a *indexApp) saveSnapshot() error {
	p, ok := a.index.(index.Persister)
	if !ok {
		return nil
	}
	return p.Persist(a.cfg.Index.Path)
}

func (a *indexApp) close() {
	_ = a.index.Close()
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	logger := newLogger(cmd)

	idx, err := index.Open(index.Config{
		Backend:    cfg.Index.Backend,
		Path:       cfg.Index.Path,
		Dimensions: cfg.Embedder.Dimensions,
		Model:      cfg.Embedder.Model,
	})
	if err != nil {
		return nil, err
	}

	emb, err := embedder.NewOpenAI(embedder.Config{
		APIKey:        cfg.Embedder.APIKey,
		BaseURL:       cfg.Embedder.BaseURL,
		Model:         cfg.Embedder.Model,
		Dimensions:    cfg.Embedder.Dimensions,
		MaxInputRunes: cfg.Embedder.MaxInputRunes,
	}, logger)
	if err != nil {
		_ = idx.Close()
		return nil, err
	}

	ch, err := chunker.New(chunker.Config{
		WindowSize: cfg.Chunker.WindowSize,
		Overlap:    cfg.Chunker.Overlap,
	})
	if err != nil {
		_ = idx.Close()
		return nil, err
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		index:     idx,
		base:      knowledge.New(ch, emb, idx, logger),
		retriever: retriever.New(emb, idx, cfg.Retrieval.OverfetchFactor, logger),
	}, nil
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// loadSnapshot restores the persisted snapshot when one exists. Backends
// without snapshot files (sqlite) and first runs are both fine.
func (a *app) loadSnapshot(ctx context.Context) error {
	if _, ok := a.index.(index.Persister); !ok {
		return nil
	}
	if _, err := os.Stat(a.cfg.Index.Path); err != nil {
		return nil
	}
	return a.base.Load(ctx, a.cfg.Index.Path)
}

func (a *app) saveSnapshot() error {
	return a.base.Save(a.cfg.Index.Path)
}

func (a *app) close() {
	_ = a.index.Close()
}

func (a *app) newGenerator() (*generate.Service, error) {
	gen, err := generate.NewOpenAI(generate.Config{
		APIKey:      a.cfg.Generation.APIKey,
		BaseURL:     a.cfg.Generation.BaseURL,
		Model:       a.cfg.Generation.Model,
		MaxTokens:   a.cfg.Generation.MaxTokens,
		Temperature: a.cfg.Generation.Temperature,
	})
	if err != nil {
		return nil, err
	}
	return generate.NewService(gen, nil, a.logger), nil
}
