// Package ui renders CLI output: styled for terminals, plain when piped.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Color palette: single accent for a distinctive, quiet look.
const (
	colorAccent   = "81"  // cyan accent for headers and scores
	colorGray     = "245" // secondary text
	colorDarkGray = "238" // separators
	colorRed      = "196" // errors
	colorYellow   = "220" // warnings
)

// Styles holds the CLI output styles.
type Styles struct {
	Header  lipgloss.Style
	Score   lipgloss.Style
	Path    lipgloss.Style
	Dim     lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
}

// DefaultStyles returns styled components for terminal output.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAccent)),
		Score:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorAccent)),
		Path:    lipgloss.NewStyle().Bold(true),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(colorDarkGray)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)),
	}
}

// PlainStyles returns pass-through styles for pipes and CI.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Header:  plain,
		Score:   plain,
		Path:    plain,
		Dim:     plain,
		Error:   plain,
		Warning: plain,
	}
}

// ForStdout selects styled or plain output based on TTY detection.
func ForStdout() Styles {
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return DefaultStyles()
	}
	return PlainStyles()
}
