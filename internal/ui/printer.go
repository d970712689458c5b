package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/holocron-dev/holocron/internal/search"
)

// Printer renders search results and summaries to a writer.
type Printer struct {
	out    io.Writer
	styles Styles
}

// NewPrinter creates a printer with the given styles.
func NewPrinter(out io.Writer, styles Styles) *Printer {
	return &Printer{out: out, styles: styles}
}

// Results renders ranked hits, one block per result.
func (p *Printer) Results(results []search.Result) {
	if len(results) == 0 {
		fmt.Fprintln(p.out, "no results")
		return
	}

	for i, r := range results {
		c := r.Chunk
		header := fmt.Sprintf("%d. %s:%d-%d", i+1, c.FilePath, c.StartLine, c.EndLine)
		fmt.Fprintf(p.out, "%s %s\n",
			p.styles.Path.Render(header),
			p.styles.Score.Render(fmt.Sprintf("(%.2f)", r.Score)))
		if c.SymbolName != "" {
			fmt.Fprintf(p.out, "   %s\n", p.styles.Dim.Render(c.SymbolName))
		}
		fmt.Fprintln(p.out, indent(snippet(c.Content, 6), "   "))
	}
}

// Summary renders a one-line key/value report.
func (p *Printer) Summary(pairs ...string) {
	var parts []string
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, fmt.Sprintf("%s=%s", pairs[i], pairs[i+1]))
	}
	fmt.Fprintln(p.out, p.styles.Header.Render(strings.Join(parts, "  ")))
}

// Errorf renders an error line.
func (p *Printer) Errorf(format string, args ...any) {
	fmt.Fprintln(p.out, p.styles.Error.Render(fmt.Sprintf(format, args...)))
}

// snippet returns at most n lines of content.
func snippet(content string, n int) string {
	lines := strings.Split(content, "\n")
	if len(lines) <= n {
		return content
	}
	return strings.Join(lines[:n], "\n") + "\n..."
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
