package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// TableColumn defines a table column with name and width.
type TableColumn struct {
	Title string
	Width int
}

// NewTable creates a non-focused Bubbles table with the diagterm styling.
func NewTable(columns []TableColumn, rows []table.Row) table.Model {
	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		cols[i] = table.Column{Title: c.Title, Width: c.Width}
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(len(rows)+1), // +1 for header
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorGlassBorder).
		BorderBottom(true).
		Bold(true).
		Foreground(ColorNeonCyan)
	s.Cell = s.Cell.Foreground(ColorPrimary)
	// unfocused tables should not highlight a row
	s.Selected = s.Selected.Foreground(ColorPrimary).Bold(false)

	t.SetStyles(s)
	return t
}

// RenderSimpleTable renders a non-interactive table string for CLI output.
func RenderSimpleTable(columns []TableColumn, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	tableRows := make([]table.Row, len(rows))
	for i, row := range rows {
		tableRows[i] = table.Row(row)
	}
	return NewTable(columns, tableRows).View()
}

// KeyValue is one labeled line in a RenderKeyValues block.
type KeyValue struct {
	Key   string
	Value string
}

// RenderKeyValues aligns labels in a column:
//
//	Backend   http://127.0.0.1:8765
//	Status    connected
func RenderKeyValues(pairs []KeyValue) string {
	width := 0
	for _, kv := range pairs {
		if w := lipgloss.Width(kv.Key); w > width {
			width = w
		}
	}

	keyStyle := MutedStyle()
	var sb strings.Builder
	for _, kv := range pairs {
		sb.WriteString(keyStyle.Render(padRight(kv.Key, width+2)))
		sb.WriteString(kv.Value)
		sb.WriteString("\n")
	}
	return sb.String()
}

// padRight pads a string to the specified visible width.
func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

// Truncate shortens s to width visible runes, ending with an ellipsis.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}
