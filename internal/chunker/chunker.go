// Package chunker splits source files into retrievable chunks at
// function/class/method boundaries. Languages without boundary patterns fall
// back to a sliding-window chunker. Chunking never fails on content: a
// pathological file yields a single chunk spanning the whole file.
package chunker

import (
	"fmt"
	"strings"
)

const (
	// MaxChunkLines is the largest chunk emitted before oversize splitting.
	MaxChunkLines = 150
	// SplitOverlapLines is the overlap between oversize sub-chunks.
	SplitOverlapLines = 10
	// WindowLines is the sliding-window chunk size for unknown languages.
	WindowLines = 200
	// WindowOverlapLines is the sliding-window overlap.
	WindowOverlapLines = 20
)

// Chunk is a contiguous span of one source file, the unit of indexing and
// retrieval. Line ranges are 0-based half-open.
type Chunk struct {
	ID         string
	FilePath   string
	Content    string
	StartLine  int
	EndLine    int
	Language   string
	SymbolName string
}

// FileInput is one file handed to the chunker.
type FileInput struct {
	Path     string
	Contents string
	Language string
}

// Mode selects the chunking strategy.
type Mode string

const (
	// ModeAST uses language-aware boundary detection.
	ModeAST Mode = "ast"
	// ModeText always uses the sliding-window chunker.
	ModeText Mode = "text"
)

// Chunker selects boundary patterns by language and produces ordered chunks.
type Chunker struct {
	registry map[string][]boundaryPattern
	mode     Mode
}

// New creates a boundary-aware chunker with the default language registry.
func New() *Chunker {
	return NewWithMode(ModeAST)
}

// NewWithMode creates a chunker with an explicit strategy.
func NewWithMode(mode Mode) *Chunker {
	if mode != ModeText {
		mode = ModeAST
	}
	return &Chunker{registry: defaultRegistry, mode: mode}
}

// Chunk splits a file into chunks. Known languages are split at declaration
// boundaries; everything else goes through the sliding window.
func (c *Chunker) Chunk(file FileInput) []Chunk {
	if file.Contents == "" {
		return nil
	}

	patterns, ok := c.registry[strings.ToLower(file.Language)]
	if c.mode == ModeText || !ok {
		return c.chunkByWindow(file)
	}

	lines := strings.Split(file.Contents, "\n")
	boundaries := findBoundaries(lines, patterns)
	if len(boundaries) == 0 {
		whole := makeChunk(file, lines, 0, len(lines), "")
		return splitOversize(file, lines, []Chunk{whole})
	}

	chunks := make([]Chunk, 0, len(boundaries))
	for i, b := range boundaries {
		end := len(lines)
		if i+1 < len(boundaries) {
			end = boundaries[i+1].line
		}
		chunks = append(chunks, makeChunk(file, lines, b.line, end, b.symbol))
	}

	// Lines before the first boundary (imports, package decl) join the
	// first chunk.
	if first := boundaries[0].line; first > 0 {
		chunks[0] = makeChunk(file, lines, 0, chunks[0].EndLine, chunks[0].SymbolName)
	}

	return splitOversize(file, lines, chunks)
}

// chunkByWindow produces fixed-size overlapping chunks for languages without
// boundary patterns.
func (c *Chunker) chunkByWindow(file FileInput) []Chunk {
	lines := strings.Split(file.Contents, "\n")
	step := WindowLines - WindowOverlapLines

	var chunks []Chunk
	for start := 0; start < len(lines); start += step {
		end := start + WindowLines
		if end > len(lines) {
			end = len(lines)
		}
		chunks = append(chunks, makeChunk(file, lines, start, end, ""))
		if end == len(lines) {
			break
		}
	}
	return chunks
}

// splitOversize replaces any chunk longer than MaxChunkLines with
// overlapping sub-chunks. Sub-chunks inherit the parent symbol name with
// their index appended.
func splitOversize(file FileInput, lines []string, chunks []Chunk) []Chunk {
	out := make([]Chunk, 0, len(chunks))
	for _, ch := range chunks {
		if ch.EndLine-ch.StartLine <= MaxChunkLines {
			out = append(out, ch)
			continue
		}

		step := MaxChunkLines - SplitOverlapLines
		sub := 0
		for start := ch.StartLine; start < ch.EndLine; start += step {
			end := start + MaxChunkLines
			if end > ch.EndLine {
				end = ch.EndLine
			}
			sym := ch.SymbolName
			if sym != "" {
				sym = fmt.Sprintf("%s:%d", ch.SymbolName, sub)
			}
			sc := makeChunk(file, lines, start, end, sym)
			sc.ID = fmt.Sprintf("%s:%d:%d:%d", file.Path, start, end, sub)
			out = append(out, sc)
			sub++
			if end == ch.EndLine {
				break
			}
		}
	}
	return out
}

// makeChunk builds a chunk over lines[start:end).
func makeChunk(file FileInput, lines []string, start, end int, symbol string) Chunk {
	return Chunk{
		ID:         fmt.Sprintf("%s:%d:%d", file.Path, start, end),
		FilePath:   file.Path,
		Content:    strings.Join(lines[start:end], "\n"),
		StartLine:  start,
		EndLine:    end,
		Language:   strings.ToLower(file.Language),
		SymbolName: symbol,
	}
}
