package util

import (
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/gosuri/uitable"
	"github.com/mitchellh/go-wordwrap"
	"github.com/moby/term"
	"github.com/muesli/termenv"
)

const defaultWidth = 80

// Styles of the interactive output.
var (
	UserStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	AssistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	ToolStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("208"))
	DimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	ErrorStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

// IsTerminal reports whether v is a terminal file descriptor.
func IsTerminal(v any) bool {
	_, ok := term.GetFdInfo(v)
	return ok
}

// TerminalWidth returns the width of w, or 80 when w is not a terminal.
func TerminalWidth(w io.Writer) int {
	fd, ok := term.GetFdInfo(w)
	if !ok {
		return defaultWidth
	}
	ws, err := term.GetWinsize(fd)
	if err != nil || ws.Width == 0 {
		return defaultWidth
	}
	return int(ws.Width)
}

// Wrap breaks s into lines of at most width columns, indenting every line.
func Wrap(s string, width int, indent string) string {
	if width <= len(indent)+10 {
		width = len(indent) + 10
	}
	wrapped := wordwrap.WrapString(s, uint(width-len(indent)))
	return indent + strings.ReplaceAll(wrapped, "\n", "\n"+indent)
}

// NewTable returns a table sized for the output.
func NewTable(w io.Writer) *uitable.Table {
	table := uitable.New()
	table.MaxColWidth = uint(max(TerminalWidth(w)/2, 20))
	table.Wrap = true
	return table
}

// RenderMarkdown renders markdown for a terminal. It returns the input
// unchanged when rendering fails.
func RenderMarkdown(content string, width int) string {
	if width <= 0 {
		width = defaultWidth - 4
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithColorProfile(termenv.ANSI256),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}
	rendered, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n")
}
