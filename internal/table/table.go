// Package table lays out query results as psql-style aligned text lines
package table

import (
	"fmt"
	"iter"
	"strings"
)

// DefaultMaxWidth is the column width cap used when the screen is narrow or unknown
const DefaultMaxWidth = 30

const unnamedColumn = "?column?"

// Column is a result column header
type Column struct {
	Title string
}

func (c Column) width() int {
	return width(c.Title) + 2
}

// Cell is one value of a row together with its printed text
type Cell struct {
	Value Value
	text  string
}

// NewCell stringifies v once
func NewCell(v any) Cell {
	val := ValueOf(v)
	return Cell{Value: val, text: val.String()}
}

// Text returns the printed form of the cell
func (c Cell) Text() string {
	return c.text
}

func (c Cell) width() int {
	return width(c.text)
}

// span is the number of output lines the cell needs at column width w
func (c Cell) span(w int) int {
	if w <= 0 {
		return 1
	}
	return (c.width() + 2 + w - 1) / w
}

func (c Cell) print(w int) string {
	if c.Value.Kind == KindNumber {
		return alignRight(c.text, w)
	}
	return alignLeft(c.text, w)
}

func (c Cell) line(i, w int) string {
	if c.span(w) == 1 {
		if i == 0 {
			return c.print(w)
		}
		return strings.Repeat(" ", w)
	}
	return alignLeft(cut(c.text, i*w, (i+1)*w), w)
}

// Option configures a Table
type Option func(*Table)

// WithMaxWidth sets the lower bound of the column width cap
func WithMaxWidth(n int) Option {
	return func(t *Table) {
		if n > 0 {
			t.maxWidth = n
		}
	}
}

// WithScreenWidth lets wide screens raise the column width cap
func WithScreenWidth(cols int) Option {
	return func(t *Table) {
		t.screenWidth = cols
	}
}

// Table accumulates columns and rows and prints them lazily
type Table struct {
	columns     []Column
	rows        [][]Cell
	maxWidth    int
	screenWidth int
}

// New creates an empty table
func New(opts ...Option) *Table {
	t := &Table{maxWidth: DefaultMaxWidth}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// AddColumn appends a column header
func (t *Table) AddColumn(title string) {
	t.columns = append(t.columns, Column{Title: title})
}

// Columns returns the column headers
func (t *Table) Columns() []Column {
	return t.columns
}

// NumRows returns the number of rows added so far
func (t *Table) NumRows() int {
	return len(t.rows)
}

// RowBuilder appends cells to one row
type RowBuilder struct {
	t   *Table
	idx int
}

// AddRow starts a new row
func (t *Table) AddRow() *RowBuilder {
	t.rows = append(t.rows, nil)
	return &RowBuilder{t: t, idx: len(t.rows) - 1}
}

// AddCell appends a value to the row. A cell past the last declared
// column creates an unnamed column.
func (r *RowBuilder) AddCell(v any) *RowBuilder {
	row := append(r.t.rows[r.idx], NewCell(v))
	r.t.rows[r.idx] = row
	if len(row) > len(r.t.columns) {
		r.t.AddColumn(unnamedColumn)
	}
	return r
}

// MaxWidth returns the effective column width cap
func (t *Table) MaxWidth() int {
	limit := t.maxWidth
	if t.screenWidth > 0 && len(t.columns) > 0 {
		limit = max(limit, t.screenWidth/len(t.columns)-1)
	}
	return max(limit, 1)
}

// Widths computes every column width from the headers and all cells
func (t *Table) Widths() []int {
	limit := t.MaxWidth()
	widths := make([]int, len(t.columns))
	for i, c := range t.columns {
		widths[i] = min(c.width(), limit)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = min(max(widths[i], cell.width()), limit)
		}
	}
	return widths
}

// Print yields the header, a separator, every row followed by a
// separator and finally the row count. Stopping the iteration early is
// allowed.
func (t *Table) Print() iter.Seq[string] {
	return func(yield func(string) bool) {
		widths := t.Widths()

		header := make([]string, len(t.columns))
		dashes := make([]string, len(t.columns))
		for i, c := range t.columns {
			header[i] = alignCenter(c.Title, widths[i])
			dashes[i] = strings.Repeat("-", widths[i])
		}
		separator := strings.Join(dashes, "|")

		if !yield(strings.Join(header, "|")) || !yield(separator) {
			return
		}

		for _, row := range t.rows {
			span := 1
			parts := make([]string, len(row))
			for i, cell := range row {
				span = max(span, cell.span(widths[i]))
				parts[i] = cell.line(0, widths[i])
			}
			if !yield(strings.Join(parts, "|")) {
				return
			}
			for n := 1; n < span; n++ {
				for i, cell := range row {
					parts[i] = cell.line(n, widths[i])
				}
				if !yield(strings.Join(parts, "|")) {
					return
				}
			}
			if !yield(separator) {
				return
			}
		}

		yield(Footer(len(t.rows)))
	}
}

// Footer is the row count line printed after a result
func Footer(n int) string {
	if n == 1 {
		return "(1 row)"
	}
	return fmt.Sprintf("(%d rows)", n)
}
