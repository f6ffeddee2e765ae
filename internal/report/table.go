// Package report renders pruning diagnostics as aligned text tables.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Align selects the padding side of a column.
type Align int

const (
	AlignLeft  Align = iota // pad on the right
	AlignRight              // pad on the left
)

// Table is a plain-text table whose columns are sized by display width,
// so wide (CJK) runes in layer names keep the columns straight.
type Table struct {
	headers []string
	align   []Align
	rows    [][]string
	maxCell int
}

// NewTable creates a table with the given headers, all left aligned.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers, align: make([]Align, len(headers))}
}

// SetAlign sets the alignment of column col.
func (t *Table) SetAlign(col int, a Align) *Table {
	if col >= 0 && col < len(t.align) {
		t.align[col] = a
	}
	return t
}

// SetMaxCellWidth truncates cells wider than w columns (0 disables).
func (t *Table) SetMaxCellWidth(w int) *Table {
	t.maxCell = w
	return t
}

// AddRow appends a row. Missing cells are blank; extra cells are dropped.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the header, a rule and the rows.
func (t *Table) Render(w io.Writer) error {
	cell := func(s string) string {
		if t.maxCell > 0 && runewidth.StringWidth(s) > t.maxCell {
			return runewidth.Truncate(s, t.maxCell, "…")
		}
		return s
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = runewidth.StringWidth(cell(h))
	}
	for _, row := range t.rows {
		for i, c := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell(c)))
		}
	}

	line := func(cells []string) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			c = cell(c)
			if t.align[i] == AlignRight {
				parts[i] = runewidth.FillLeft(c, widths[i])
			} else {
				parts[i] = runewidth.FillRight(c, widths[i])
			}
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	var b strings.Builder
	b.WriteString(line(t.headers))
	b.WriteByte('\n')
	rule := make([]string, len(widths))
	for i, n := range widths {
		rule[i] = strings.Repeat("-", n)
	}
	b.WriteString(strings.Join(rule, "  "))
	b.WriteByte('\n')
	for _, row := range t.rows {
		b.WriteString(line(row))
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func percent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}
