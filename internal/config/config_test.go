package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "noop", cfg.Embeddings.Provider)
	assert.Equal(t, "ast", cfg.Chunker.Mode)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ProjectFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigName), []byte(`
embeddings:
  provider: ollama
  model: nomic-embed-text
chunker:
  mode: text
`), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.Embeddings.Provider)
	assert.Equal(t, "nomic-embed-text", cfg.Embeddings.Model)
	assert.Equal(t, "text", cfg.Chunker.Mode)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigName), []byte(`
embeddings:
  provider: ollama
`), 0o644))

	t.Setenv("HOLOCRON_EMBED_PROVIDER", "transformers")
	t.Setenv("HOLOCRON_PERSIST_PATH", "/tmp/custom.db")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "transformers", cfg.Embeddings.Provider)
	assert.Equal(t, "/tmp/custom.db", cfg.Storage.PersistPath)
}

func TestLoad_MissingProjectFileIsFine(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "noop", cfg.Embeddings.Provider)
}

func TestValidate_RejectsUnknownValues(t *testing.T) {
	cfg := Default()
	cfg.Embeddings.Provider = "gpt"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Chunker.Mode = "semantic"
	assert.Error(t, cfg.Validate())
}

func TestLoad_InvalidYAMLFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigName), []byte("{{nope"), 0o644))

	_, err := Load(dir)
	assert.Error(t, err)
}
