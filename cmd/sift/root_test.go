// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sift Contributors

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	sifterr "github.com/sift-dev/sift/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestRootCommand_Help(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "sift")
	assert.Contains(t, out, "ingest")
	assert.Contains(t, out, "query")
	assert.Contains(t, out, "status")
	assert.Contains(t, out, "rebuild")
	assert.Contains(t, out, "clear")
	assert.Contains(t, out, "generate")
	assert.Contains(t, out, "version")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "sift")
}

func TestIngestCommand_NoInput(t *testing.T) {
	_, err := execute(t, "ingest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to ingest")
}

func TestIngestCommand_FilesAndDocsetConflict(t *testing.T) {
	_, err := execute(t, "ingest", "a.md", "--docset", "docs.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not both")
}

func TestIngestCommand_UnsupportedExtension(t *testing.T) {
	_, err := execute(t, "ingest", "diagram.png")
	require.Error(t, err)
}

func TestCommands_RequireConfigToParse(t *testing.T) {
	_, err := execute(t, "status", "--config", "/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestStatusCommand_EmptyIndex(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sift.yaml")
	content := "index:\n  backend: memory\n  path: " + filepath.Join(dir, "index.json") + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))

	out, err := execute(t, "status", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "State:      empty")
	assert.Contains(t, out, "Chunks:     0")
}

func TestClearCommand_EmptyIndex(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sift.yaml")
	content := "index:\n  backend: memory\n  path: " + filepath.Join(dir, "index.json") + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))

	out, err := execute(t, "clear", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "cleared")

	// Clearing persists an empty snapshot the next invocation can load.
	out, err = execute(t, "status", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "State:      empty")
}

func TestQueryCommand_ExplicitFlagsReachValidation(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sift.yaml")
	content := "index:\n  backend: memory\n  path: " + filepath.Join(dir, "index.json") + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))
	t.Setenv("SIFT_EMBEDDER_API_KEY", "test-key")

	// A user-supplied out-of-range value must surface as a validation
	// error, not be silently replaced by the config default.
	_, err := execute(t, "query", "anything", "--config", cfgPath, "--threshold=-1.5")
	require.Error(t, err)
	assert.True(t, sifterr.IsInvalidArgument(err))
	assert.Contains(t, err.Error(), "threshold")

	_, err = execute(t, "query", "anything", "--config", cfgPath, "--top=-1")
	require.Error(t, err)
	assert.True(t, sifterr.IsInvalidArgument(err))
}

func TestQueryCommand_MissingAPIKey(t *testing.T) {
	_, err := execute(t, "query", "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
}

func TestGenerateScriptCommand_RequiresCaseFile(t *testing.T) {
	_, err := execute(t, "generate", "script")
	require.Error(t, err)
}
