// Package format shapes ranked search results into the XML context block
// injected into prompts. Shaping is deterministic: threshold, per-file
// diversity, content dedup, line-boundary truncation, then serialization.
package format

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/holocron-dev/holocron/internal/search"
)

const (
	// DefaultMaxCharsPerChunk bounds one result's rendered content.
	DefaultMaxCharsPerChunk = 2000
	// DefaultRelevanceThreshold drops low-scoring results.
	DefaultRelevanceThreshold = 0.05
	// DefaultMaxResultsPerFile enforces per-file diversity.
	DefaultMaxResultsPerFile = 2

	// dedupPrefixLen is how many content characters participate in
	// duplicate detection.
	dedupPrefixLen = 200

	truncationMarker = "\n... [truncated]"
)

// Options tunes the shaping pipeline. Zero values select the defaults.
type Options struct {
	MaxCharsPerChunk   int
	RelevanceThreshold float64
	MaxResultsPerFile  int
}

func (o Options) withDefaults() Options {
	if o.MaxCharsPerChunk <= 0 {
		o.MaxCharsPerChunk = DefaultMaxCharsPerChunk
	}
	if o.RelevanceThreshold == 0 {
		o.RelevanceThreshold = DefaultRelevanceThreshold
	}
	if o.MaxResultsPerFile <= 0 {
		o.MaxResultsPerFile = DefaultMaxResultsPerFile
	}
	return o
}

// Context renders results as a <codebase_context> block. An empty survivor
// set renders as the empty string.
func Context(results []search.Result, query string, opts Options) string {
	opts = opts.withDefaults()

	survivors := shape(results, opts)
	if len(survivors) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<codebase_context query=%s results=\"%d\">\n",
		quoteAttr(query), len(survivors))

	for i, res := range survivors {
		c := res.Chunk
		fmt.Fprintf(&b, "<result rank=\"%d\" file=%s lines=\"%d-%d\" language=%s",
			i+1, quoteAttr(c.FilePath), c.StartLine, c.EndLine, quoteAttr(c.Language))
		if c.SymbolName != "" {
			fmt.Fprintf(&b, " symbol=%s", quoteAttr(c.SymbolName))
		}
		fmt.Fprintf(&b, " score=\"%.2f\">\n", res.Score)
		b.WriteString(truncate(c.Content, opts.MaxCharsPerChunk))
		b.WriteString("\n</result>\n")
	}

	b.WriteString("</codebase_context>")
	return b.String()
}

// shape applies threshold, per-file diversity, and prefix dedup in order.
func shape(results []search.Result, opts Options) []search.Result {
	perFile := make(map[string]int)
	seenPrefix := make(map[string]struct{})

	var out []search.Result
	for _, res := range results {
		if res.Score < opts.RelevanceThreshold {
			continue
		}
		if perFile[res.Chunk.FilePath] >= opts.MaxResultsPerFile {
			continue
		}
		perFile[res.Chunk.FilePath]++

		prefix := res.Chunk.Content
		if len(prefix) > dedupPrefixLen {
			prefix = prefix[:dedupPrefixLen]
		}
		if _, dup := seenPrefix[prefix]; dup {
			continue
		}

		seenPrefix[prefix] = struct{}{}
		out = append(out, res)
	}
	return out
}

// truncate cuts content at the last newline at or before the limit,
// falling back to a hard cut, and appends the truncation marker.
func truncate(content string, maxChars int) string {
	if len(content) <= maxChars {
		return content
	}

	cut := content[:maxChars]
	if idx := strings.LastIndexByte(cut, '\n'); idx > 0 {
		cut = cut[:idx]
	}
	return cut + truncationMarker
}

// quoteAttr XML-escapes a value and wraps it in double quotes.
func quoteAttr(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	_ = xml.EscapeText(&b, []byte(s))
	b.WriteByte('"')
	return b.String()
}
