package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	fileStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	shrinkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	growStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
)

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// printSummary writes one line per result. Styling is applied only when
// the output is a terminal.
func printSummary(w io.Writer, results []result, styled bool) {
	paint := func(s lipgloss.Style, text string) string {
		if !styled {
			return text
		}
		return s.Render(text)
	}

	width := 0
	for _, r := range results {
		width = max(width, len(r.input))
	}
	fmt.Fprintln(w, paint(headerStyle, fmt.Sprintf("%-*s %10s %10s %8s", width, "module", "in", "out", "delta")))
	for _, r := range results {
		delta := r.outSize - r.inSize
		style := shrinkStyle
		if delta > 0 {
			style = growStyle
		}
		line := []string{
			paint(fileStyle, fmt.Sprintf("%-*s", width, r.input)),
			fmt.Sprintf("%10d %10d", r.inSize, r.outSize),
			paint(style, fmt.Sprintf("%+8d", delta)),
		}
		if n := r.removed.Total(); n > 0 {
			line = append(line, fmt.Sprintf("gc:%d", n))
		}
		if r.offsets > 0 {
			line = append(line, fmt.Sprintf("offsets:%d", r.offsets))
		}
		fmt.Fprintln(w, strings.Join(line, " "))
	}
}
