package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/holocron-dev/holocron/internal/search"
	"github.com/holocron-dev/holocron/internal/store"
)

func TestPrinter_Results(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, PlainStyles())

	p.Results([]search.Result{
		{
			Chunk: store.ChunkMeta{
				FilePath:   "/r/auth.go",
				StartLine:  2,
				EndLine:    9,
				SymbolName: "Login",
				Content:    "func Login() {\n\treturn\n}",
			},
			Score: 0.42,
		},
	})

	out := buf.String()
	assert.Contains(t, out, "1. /r/auth.go:2-9")
	assert.Contains(t, out, "(0.42)")
	assert.Contains(t, out, "Login")
	assert.Contains(t, out, "   func Login() {")
}

func TestPrinter_NoResults(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, PlainStyles()).Results(nil)
	assert.Equal(t, "no results\n", buf.String())
}

func TestPrinter_SnippetTruncatesLongContent(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, PlainStyles())

	content := strings.Repeat("line\n", 20)
	p.Results([]search.Result{{Chunk: store.ChunkMeta{FilePath: "/r/a.go", Content: content}}})

	assert.Contains(t, buf.String(), "...")
	assert.Less(t, strings.Count(buf.String(), "line"), 10)
}

func TestPrinter_Summary(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, PlainStyles()).Summary("files", "3", "chunks", "12")
	assert.Equal(t, "files=3  chunks=12\n", buf.String())
}
