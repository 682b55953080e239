package tui

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

// TableColumn defines a column in a table.
type TableColumn struct {
	Name  string
	Width int
	Align Alignment
}

// Alignment defines text alignment in a column.
type Alignment int

// Alignment constants.
const (
	AlignLeft Alignment = iota
	AlignRight
)

// Table provides styled table rendering.
type Table struct {
	w       io.Writer
	header  lipgloss.Style
	columns []TableColumn
}

// NewTable creates a new table with the given columns.
func NewTable(w io.Writer, columns []TableColumn) *Table {
	return &Table{
		w:       w,
		header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#DDDDDD"}),
		columns: columns,
	}
}

// WriteHeader writes the table header row.
func (t *Table) WriteHeader() {
	cells := make([]string, len(t.columns))
	for i, col := range t.columns {
		cells[i] = pad(col.Name, col.Width, col.Align)
	}
	_, _ = fmt.Fprintln(t.w, t.header.Render(strings.TrimRight(strings.Join(cells, " "), " ")))
}

// WriteRow writes a data row. styled maps a column index to a rendered
// (colored) value whose plain text is values[index].
func (t *Table) WriteRow(values []string, styled map[int]string) {
	cells := make([]string, len(t.columns))
	for i, col := range t.columns {
		value := ""
		if i < len(values) {
			value = truncate(values[i], col.Width)
		}
		cell := pad(value, col.Width, col.Align)
		if s, ok := styled[i]; ok {
			cell = strings.Replace(cell, value, s, 1)
		}
		cells[i] = cell
	}
	_, _ = fmt.Fprintln(t.w, strings.TrimRight(strings.Join(cells, " "), " "))
}

// truncate shortens value to width runes, ending with an ellipsis.
func truncate(value string, width int) string {
	if width <= 1 || utf8.RuneCountInString(value) <= width {
		return value
	}
	runes := []rune(value)
	return string(runes[:width-1]) + "…"
}

func pad(value string, width int, align Alignment) string {
	n := utf8.RuneCountInString(value)
	if n >= width {
		return value
	}
	space := strings.Repeat(" ", width-n)
	if align == AlignRight {
		return space + value
	}
	return value + space
}
