package walker

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestWalk_YieldsTextFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", []byte("package main"))
	writeFile(t, dir, "src/auth.ts", []byte("export function login() {}"))
	writeFile(t, dir, "README.md", []byte("# readme"))

	var files []File
	err := New().Walk(dir, func(f File) error {
		files = append(files, f)
		return nil
	})

	require.NoError(t, err)
	require.Len(t, files, 3)

	byLang := make(map[string]string)
	for _, f := range files {
		byLang[f.Language] = f.Path
	}
	assert.Contains(t, byLang, "go")
	assert.Contains(t, byLang, "typescript")
	assert.Contains(t, byLang, "markdown")
}

func TestWalk_SkipsBlockedAndDotDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "keep.go", []byte("package keep"))
	writeFile(t, dir, "node_modules/dep/index.js", []byte("module.exports = 1"))
	writeFile(t, dir, ".git/config", []byte("[core]"))
	writeFile(t, dir, "dist/bundle.js", []byte("var x=1"))
	writeFile(t, dir, "__pycache__/m.py", []byte("x = 1"))

	paths, err := New().Collect(dir)

	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Contains(t, paths[0], "keep.go")
}

func TestWalk_AcceptsWellKnownBasenames(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Makefile", []byte("build:\n\tgo build ./...\n"))
	writeFile(t, dir, "Dockerfile", []byte("FROM golang:1.25\n"))

	var langs []string
	require.NoError(t, New().Walk(dir, func(f File) error {
		langs = append(langs, f.Language)
		return nil
	}))

	assert.ElementsMatch(t, []string{"make", "docker"}, langs)
}

func TestWalk_SkipsUnknownExtensions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "image.png", []byte("not really an image"))
	writeFile(t, dir, "binary.exe", []byte{0x4d, 0x5a})
	writeFile(t, dir, "code.go", []byte("package code"))

	paths, err := New().Collect(dir)

	require.NoError(t, err)
	require.Len(t, paths, 1)
}

func TestWalk_SkipsOversizeFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "big.txt", bytes.Repeat([]byte("a"), MaxFileSize+1))
	writeFile(t, dir, "small.txt", []byte("ok"))

	paths, err := New().Collect(dir)

	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Contains(t, paths[0], "small.txt")
}

func TestReadFile_RejectsBinaryContent(t *testing.T) {
	dir := t.TempDir()
	// NUL byte inside an allowed extension
	path := writeFile(t, dir, "sneaky.txt", []byte("hello\x00world"))

	_, ok, err := New().ReadFile(path)

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadFile_AcceptsText(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "auth.ts", []byte("function authenticateUser() {}"))

	f, ok, err := New().ReadFile(path)

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "typescript", f.Language)
	assert.Equal(t, "function authenticateUser() {}", f.Contents)
}

func TestReadFile_UnknownExtension(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "blob.bin", []byte{1, 2, 3})

	_, ok, err := New().ReadFile(path)

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsBinary(t *testing.T) {
	assert.False(t, isBinary([]byte("plain text\nwith lines\n")))
	assert.True(t, isBinary([]byte{'a', 0, 'b'}))
	assert.False(t, isBinary(nil))

	// >5% non-printable without NUL
	junk := bytes.Repeat([]byte{0x01}, 10)
	junk = append(junk, bytes.Repeat([]byte("a"), 90)...)
	assert.True(t, isBinary(junk))
}
