package table

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// width is the number of terminal cells s occupies
func width(s string) int {
	return runewidth.StringWidth(s)
}

// cut returns the part of s that lies within the cell range [from, to).
// A wide rune straddling a boundary is dropped.
func cut(s string, from, to int) string {
	if to <= from {
		return ""
	}
	var b strings.Builder
	pos := 0
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if pos >= from && pos+rw <= to {
			b.WriteRune(r)
		}
		pos += rw
		if pos >= to {
			break
		}
	}
	return b.String()
}

// fit truncates s to w cells and pads it with spaces when a wide rune left a gap
func fit(s string, w int) string {
	s = cut(s, 0, w)
	if n := width(s); n < w {
		s += strings.Repeat(" ", w-n)
	}
	return s
}

func alignCenter(text string, w int) string {
	gap := w - width(text)
	padding := max(floorDiv(gap, 2), 1)
	s := strings.Repeat(" ", padding) + text + strings.Repeat(" ", padding)
	if padding*2 != gap {
		s += " "
	}
	return fit(s, w)
}

func alignLeft(text string, w int) string {
	return fit(text+strings.Repeat(" ", max(w-width(text), 1)), w)
}

func alignRight(text string, w int) string {
	return fit(strings.Repeat(" ", max(w-width(text), 1))+text, w)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
