// Package token provides code-aware tokenization helpers shared by the
// full-text index and the query path. It splits camelCase, PascalCase,
// snake_case and kebab-case identifiers into lowercase terms.
package token

import (
	"regexp"
	"strings"
	"unicode"
)

// identRegex matches identifier-shaped words. ExtractCodeTokens keeps only
// those that mix upper and lower case letters; pure lowercase or pure
// uppercase words are already searchable as-is.
var identRegex = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// ftsReserved are characters with meaning in the FTS5 query grammar.
// They are stripped from user queries before matching.
const ftsReserved = `*"():][^`

// SplitIdentifier splits a single identifier on camelCase boundaries,
// acronym boundaries ("XMLParser" -> "xml parser"), dashes and underscores.
// Leading underscores are dropped. The result is lowercase with single
// spaces between terms.
func SplitIdentifier(s string) string {
	s = strings.TrimLeft(s, "_")
	if s == "" {
		return ""
	}

	var parts []string
	for _, raw := range strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-'
	}) {
		parts = append(parts, splitCamel(raw)...)
	}

	for i, p := range parts {
		parts[i] = strings.ToLower(p)
	}
	return strings.Join(parts, " ")
}

// splitCamel splits camelCase and PascalCase runs, keeping acronyms intact.
// "parseHTTPRequest" -> ["parse", "HTTP", "Request"].
func splitCamel(s string) []string {
	if s == "" {
		return nil
	}

	var result []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevIsLower || nextIsLower {
				if current.Len() > 0 {
					result = append(result, current.String())
					current.Reset()
				}
			}
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

// ExtractCodeTokens pulls mixed-case identifiers out of source text, splits
// them, and returns the unique terms joined by spaces in first-seen order.
// Terms shorter than two characters are dropped.
func ExtractCodeTokens(content string) string {
	seen := make(map[string]struct{})
	var out []string

	for _, ident := range identRegex.FindAllString(content, -1) {
		if !hasMixedCase(ident) {
			continue
		}
		for _, term := range strings.Fields(SplitIdentifier(ident)) {
			if len(term) < 2 {
				continue
			}
			if _, dup := seen[term]; dup {
				continue
			}
			seen[term] = struct{}{}
			out = append(out, term)
		}
	}
	return strings.Join(out, " ")
}

// hasMixedCase reports whether s contains at least one uppercase and one
// lowercase letter.
func hasMixedCase(s string) bool {
	var hasUpper, hasLower bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		}
		if hasUpper && hasLower {
			return true
		}
	}
	return false
}

// NormalizeQuery prepares a user query for FTS5 matching. Tokens containing
// uppercase letters are identifier-split; others are lowercased. Reserved
// FTS5 grammar characters are stripped. An empty return value means no
// lexical search is possible.
func NormalizeQuery(q string) string {
	var parts []string
	for _, tok := range strings.Fields(q) {
		if strings.ContainsFunc(tok, unicode.IsUpper) {
			tok = SplitIdentifier(tok)
		} else {
			tok = strings.ToLower(tok)
		}
		tok = stripReserved(tok)
		if tok != "" {
			parts = append(parts, tok)
		}
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// stripReserved removes FTS5 grammar characters from a token.
func stripReserved(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(ftsReserved, r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// EmbeddingInput builds the contextualized text fed to the embedder. The
// string is never persisted; only the chunk content is stored.
func EmbeddingInput(path, language, symbol, content string) string {
	var b strings.Builder
	b.WriteString("File: ")
	b.WriteString(path)
	b.WriteString("\nLanguage: ")
	b.WriteString(language)
	if symbol != "" {
		b.WriteString("\nSymbol: ")
		b.WriteString(symbol)
	}
	b.WriteString("\n\n")
	b.WriteString(content)
	return b.String()
}
