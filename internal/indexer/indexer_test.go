package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holocron-dev/holocron/internal/chunker"
	"github.com/holocron-dev/holocron/internal/embed"
	"github.com/holocron-dev/holocron/internal/store"
)

// fakeEmbedder returns a fixed-width vector derived from text length.
type fakeEmbedder struct {
	dims int
	err  error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	vec := make([]float32, f.dims)
	vec[0] = float32(len(text) % 7)
	return vec, nil
}

func (f *fakeEmbedder) Dimensions() int                    { return f.dims }
func (f *fakeEmbedder) Available(ctx context.Context) bool { return true }
func (f *fakeEmbedder) Close() error                       { return nil }

func newTestIndexer(t *testing.T, emb embed.Embedder) (*Indexer, *store.Store) {
	t.Helper()
	st, err := store.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return New(st, emb, chunker.New(), ""), st
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIndexDirectory_LexicalOnly(t *testing.T) {
	ix, st := newTestIndexer(t, embed.NewNoopEmbedder())
	dir := t.TempDir()
	writeFile(t, dir, "auth.ts", "function authenticateUser(token) { return validate(token); }")
	writeFile(t, dir, "store.go", "package store\n\nfunc Open() {}\n")

	res, err := ix.IndexDirectory(context.Background(), dir, "")

	require.NoError(t, err)
	assert.Equal(t, 2, res.FilesWalked)
	assert.Equal(t, 2, res.ChunksAdded)
	assert.Equal(t, int64(2), st.Size())
	assert.False(t, st.HasVectors())

	hits, err := st.SearchBM25("authenticateUser", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
}

func TestIndexDirectory_WithVectors(t *testing.T) {
	ix, st := newTestIndexer(t, &fakeEmbedder{dims: 4})
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package a\n\nfunc A() {}\n")

	_, err := ix.IndexDirectory(context.Background(), dir, "")

	require.NoError(t, err)
	assert.True(t, st.HasVectors())
	assert.Equal(t, 4, st.Dimensions())
}

func TestIndexFiles_ReplacesStaleChunks(t *testing.T) {
	ix, st := newTestIndexer(t, embed.NewNoopEmbedder())
	dir := t.TempDir()
	path := writeFile(t, dir, "a.go", "package a\n\nfunc Old() {}\n")

	_, err := ix.IndexFiles(context.Background(), []string{path}, store.EventFiles, "")
	require.NoError(t, err)

	// Rewrite the file and re-index: old rows must be gone.
	writeFile(t, dir, "a.go", "package a\n\nfunc Renamed() {}\n")
	_, err = ix.IndexFiles(context.Background(), []string{path}, store.EventFiles, "")
	require.NoError(t, err)

	hits, err := st.SearchBM25("Old", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = st.SearchBM25("Renamed", 5)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestIndexFiles_DeletedFileDropsRows(t *testing.T) {
	ix, st := newTestIndexer(t, embed.NewNoopEmbedder())
	dir := t.TempDir()
	path := writeFile(t, dir, "gone.go", "package gone\n\nfunc Gone() {}\n")

	_, err := ix.IndexFiles(context.Background(), []string{path}, store.EventFiles, "")
	require.NoError(t, err)
	require.Equal(t, int64(1), st.Size())

	require.NoError(t, os.Remove(path))
	res, err := ix.IndexFiles(context.Background(), []string{path}, store.EventFiles, "")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ChunksAdded)
	assert.Equal(t, int64(0), st.Size())
}

func TestPipeline_LogsAuditEvent(t *testing.T) {
	ix, st := newTestIndexer(t, embed.NewNoopEmbedder())
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package a\n\nfunc A() {}\n")

	_, err := ix.IndexDirectory(context.Background(), dir, "abc123")
	require.NoError(t, err)

	events, err := st.ListIndexEvents(10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, store.EventFull, events[0].Type)
	assert.Equal(t, 1, events[0].FilesChanged)
	assert.Equal(t, 1, events[0].ChunksAdded)
	assert.Equal(t, "abc123", events[0].CommitSHA)
}

func TestPipeline_EmbedderErrorFailsClosed(t *testing.T) {
	ix, st := newTestIndexer(t, &fakeEmbedder{dims: 4, err: errors.New("connection refused")})
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package a\n\nfunc A() {}\n")

	_, err := ix.IndexDirectory(context.Background(), dir, "")

	require.Error(t, err)
	assert.Equal(t, int64(0), st.Size())
}

func TestRemoveFilesAndClearIndex(t *testing.T) {
	ix, st := newTestIndexer(t, embed.NewNoopEmbedder())
	dir := t.TempDir()
	pa := writeFile(t, dir, "a.go", "package a\n\nfunc A() {}\n")
	writeFile(t, dir, "b.go", "package b\n\nfunc B() {}\n")

	_, err := ix.IndexDirectory(context.Background(), dir, "")
	require.NoError(t, err)
	require.Equal(t, int64(2), st.Size())

	require.NoError(t, ix.RemoveFiles([]string{pa}))
	assert.Equal(t, int64(1), st.Size())

	require.NoError(t, ix.ClearIndex())
	assert.Equal(t, int64(0), st.Size())
}

func TestIndexDirectory_ManyFilesUnderConcurrency(t *testing.T) {
	ix, st := newTestIndexer(t, embed.NewNoopEmbedder())
	dir := t.TempDir()
	for i := 0; i < 64; i++ {
		writeFile(t, dir, filepath.Join("pkg", string(rune('a'+i%26))+"x", "f.go"),
			"package f\n\nfunc F() {}\n")
	}

	res, err := ix.IndexDirectory(context.Background(), dir, "")

	require.NoError(t, err)
	assert.Equal(t, res.ChunksAdded, int(st.Size()))
	assert.Greater(t, res.FilesWalked, 0)
}
