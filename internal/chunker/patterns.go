package chunker

import "regexp"

// boundaryPattern is a line-anchored declaration matcher. The first capture
// group is the declared symbol name.
type boundaryPattern struct {
	re *regexp.Regexp
}

// boundary marks a declaration line and the symbol it declares.
type boundary struct {
	line   int
	symbol string
}

// reservedNames are control-flow keywords that leak through the looser
// method patterns (Java/C#/TS method syntax is indistinguishable from
// `if (...)` at the line level).
var reservedNames = map[string]struct{}{
	"if": {}, "else": {}, "for": {}, "while": {}, "switch": {}, "case": {},
	"return": {}, "do": {}, "try": {}, "catch": {}, "finally": {},
	"new": {}, "delete": {}, "typeof": {}, "in": {}, "of": {}, "with": {},
}

func patterns(exprs ...string) []boundaryPattern {
	out := make([]boundaryPattern, len(exprs))
	for i, e := range exprs {
		out[i] = boundaryPattern{re: regexp.MustCompile(e)}
	}
	return out
}

var tsPatterns = patterns(
	`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*([A-Za-z_$][\w$]*)`,
	`^\s*(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+([A-Za-z_$][\w$]*)`,
	`^\s*(?:export\s+)?interface\s+([A-Za-z_$][\w$]*)`,
	`^\s*(?:export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*=\s*(?:async\s+)?(?:function\b|\()`,
	`^\s*(?:export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*=\s*[\w$]+\s*=>`,
	`^\s{2,}(?:public\s+|private\s+|protected\s+|static\s+|async\s+)+([A-Za-z_$][\w$]*)\s*\(`,
)

var pyPatterns = patterns(
	`^\s*(?:async\s+)?def\s+([A-Za-z_]\w*)`,
	`^\s*class\s+([A-Za-z_]\w*)`,
)

var goPatterns = patterns(
	`^func\s+(?:\([^)]+\)\s+)?([A-Za-z_]\w*)`,
	`^type\s+([A-Za-z_]\w*)\s+(?:struct|interface)\b`,
)

var rustPatterns = patterns(
	`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:async\s+)?(?:unsafe\s+)?fn\s+([A-Za-z_]\w*)`,
	`^\s*(?:pub(?:\([^)]*\))?\s+)?struct\s+([A-Za-z_]\w*)`,
	`^\s*(?:pub(?:\([^)]*\))?\s+)?enum\s+([A-Za-z_]\w*)`,
	`^\s*(?:pub(?:\([^)]*\))?\s+)?trait\s+([A-Za-z_]\w*)`,
	`^\s*impl(?:<[^>]*>)?\s+(?:\w+\s+for\s+)?([A-Za-z_]\w*)`,
)

var javaPatterns = patterns(
	`^\s*(?:public\s+|protected\s+|private\s+|static\s+|final\s+|abstract\s+)*class\s+([A-Za-z_]\w*)`,
	`^\s*(?:public\s+|protected\s+|private\s+)?interface\s+([A-Za-z_]\w*)`,
	`^\s*(?:public\s+|protected\s+|private\s+)?enum\s+([A-Za-z_]\w*)`,
	`^\s+(?:public\s+|protected\s+|private\s+|static\s+|final\s+|synchronized\s+)+[\w<>\[\],.\s]+?\s+([A-Za-z_]\w*)\s*\(`,
)

var rubyPatterns = patterns(
	`^\s*def\s+(?:self\.)?([A-Za-z_]\w*[?!]?)`,
	`^\s*class\s+([A-Z]\w*)`,
	`^\s*module\s+([A-Z]\w*)`,
)

var csharpPatterns = patterns(
	`^\s*(?:public\s+|protected\s+|private\s+|internal\s+|static\s+|sealed\s+|abstract\s+|partial\s+)*(?:class|interface|struct|record)\s+([A-Za-z_]\w*)`,
	`^\s+(?:public\s+|protected\s+|private\s+|internal\s+|static\s+|virtual\s+|override\s+|async\s+)+[\w<>\[\],.\s]+?\s+([A-Za-z_]\w*)\s*\(`,
)

// defaultRegistry maps lowercase language names to their boundary patterns.
var defaultRegistry = map[string][]boundaryPattern{
	"typescript": tsPatterns,
	"javascript": tsPatterns,
	"tsx":        tsPatterns,
	"jsx":        tsPatterns,
	"python":     pyPatterns,
	"go":         goPatterns,
	"rust":       rustPatterns,
	"java":       javaPatterns,
	"ruby":       rubyPatterns,
	"csharp":     csharpPatterns,
}

// findBoundaries scans every line against every pattern and returns the
// declaration boundaries in line order. Reserved control-flow names and
// underscore-prefixed names are discarded.
func findBoundaries(lines []string, pats []boundaryPattern) []boundary {
	var out []boundary
	for i, line := range lines {
		for _, p := range pats {
			m := p.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			name := m[1]
			if _, reserved := reservedNames[name]; reserved {
				continue
			}
			if name == "" || name[0] == '_' {
				continue
			}
			out = append(out, boundary{line: i, symbol: name})
			break
		}
	}
	return out
}
