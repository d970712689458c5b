package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holocron-dev/holocron/internal/engine"
)

func newServer(t *testing.T, root string) *Server {
	t.Helper()
	eng := engine.New(engine.Config{
		PersistPath: filepath.Join(t.TempDir(), "index.db"),
		RootPath:    root,
	})
	t.Cleanup(func() { _ = eng.Dispose() })

	s, err := NewServer(eng, root)
	require.NoError(t, err)
	return s
}

func TestNewServer_RequiresEngine(t *testing.T) {
	_, err := NewServer(nil, "")
	assert.Error(t, err)
}

func TestHandleIndexAndSearch(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "auth.go"),
		[]byte("package auth\n\nfunc AuthenticateUser(token string) error { return nil }\n"), 0o644))

	s := newServer(t, root)

	_, idx, err := s.handleIndex(context.Background(), nil, IndexInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, idx.IndexedFiles)
	assert.Equal(t, 1, idx.Chunks)

	_, out, err := s.handleSearch(context.Background(), nil, SearchInput{Query: "AuthenticateUser"})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Contains(t, out.Results[0].FilePath, "auth.go")
	assert.Equal(t, "AuthenticateUser", out.Results[0].Symbol)
}

func TestHandleSearch_RequiresQuery(t *testing.T) {
	s := newServer(t, t.TempDir())
	_, _, err := s.handleSearch(context.Background(), nil, SearchInput{})
	assert.Error(t, err)
}

func TestHandleEnhance(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "pay.go"),
		[]byte("package pay\n\nfunc ProcessPayment(amount int) error { return nil }\n"), 0o644))

	s := newServer(t, root)
	_, _, err := s.handleIndex(context.Background(), nil, IndexInput{})
	require.NoError(t, err)

	_, out, err := s.handleEnhance(context.Background(), nil, EnhanceInput{Prompt: "ProcessPayment"})
	require.NoError(t, err)
	assert.Contains(t, out.Prompt, "<codebase_context")
	assert.Contains(t, out.Prompt, "\n\nProcessPayment")
}

func TestHandleEnhance_NoMatchesReturnsPromptUnchanged(t *testing.T) {
	s := newServer(t, t.TempDir())
	_, _, err := s.handleIndex(context.Background(), nil, IndexInput{})
	require.NoError(t, err)

	_, out, err := s.handleEnhance(context.Background(), nil, EnhanceInput{Prompt: "unmatched"})
	require.NoError(t, err)
	assert.Equal(t, "unmatched", out.Prompt)
}

func TestHandleStatus(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"),
		[]byte("package a\n\nfunc A() {}\n"), 0o644))

	s := newServer(t, root)
	_, _, err := s.handleIndex(context.Background(), nil, IndexInput{})
	require.NoError(t, err)

	_, status, err := s.handleStatus(context.Background(), nil, StatusInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), status.Chunks)
	assert.False(t, status.HasVectors)
	assert.Zero(t, status.Dimensions)
}
