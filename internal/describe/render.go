package describe

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	bbtable "github.com/evertras/bubble-table/table"
	"github.com/mattn/go-runewidth"
)

// maxCellWidth caps a describe column; longer values are truncated
const maxCellWidth = 60

// renderTable lays out a titled listing the way \d-style commands print it.
// Lines are plain text; styling belongs to the terminal.
func renderTable(title string, headers []string, rows [][]string) []string {
	widths := calculateColumnWidths(headers, rows)

	cols := make([]bbtable.Column, len(headers))
	for i, h := range headers {
		cols[i] = bbtable.NewColumn(columnKey(i), h, widths[i])
	}

	tableRows := make([]bbtable.Row, len(rows))
	for r, row := range rows {
		data := bbtable.RowData{}
		for i := range headers {
			if i < len(row) {
				data[columnKey(i)] = row[i]
			} else {
				data[columnKey(i)] = ""
			}
		}
		tableRows[r] = bbtable.NewRow(data)
	}

	view := bbtable.New(cols).
		WithRows(tableRows).
		WithBaseStyle(lipgloss.NewStyle().Align(lipgloss.Left)).
		WithFooterVisibility(false).
		BorderRounded().
		View()

	lines := strings.Split(ansi.Strip(view), "\n")
	out := make([]string, 0, len(lines)+2)
	if title != "" {
		tableWidth := runewidth.StringWidth(lines[0])
		out = append(out, centerTitle(title, tableWidth))
	}
	out = append(out, lines...)
	out = append(out, rowCount(len(rows)))
	return out
}

func columnKey(i int) string {
	return fmt.Sprintf("c%d", i)
}

func centerTitle(title string, width int) string {
	pad := (width - runewidth.StringWidth(title)) / 2
	if pad <= 0 {
		return title
	}
	return strings.Repeat(" ", pad) + title
}

func rowCount(n int) string {
	if n == 1 {
		return "(1 row)"
	}
	return fmt.Sprintf("(%d rows)", n)
}

func calculateColumnWidths(headers []string, rows [][]string) []int {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}

	for _, row := range rows {
		for i, val := range row {
			if i < len(headers) {
				widths[i] = max(widths[i], runewidth.StringWidth(val))
			}
		}
	}

	// Add padding
	for i := range widths {
		widths[i] = min(widths[i]+2, maxCellWidth)
	}
	return widths
}
