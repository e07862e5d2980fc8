package terminal

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Color is a semantic text color; the presentation layer maps it to a style
type Color int

const (
	None Color = iota
	Red
	Green
	LightGreen
	Yellow
)

// Hex values used by the presentation layer
var Palette = map[Color]string{
	Red:        "#FF2B6A",
	Green:      "#2BE5AD",
	LightGreen: "#8DF0D2",
	Yellow:     "#FFD73A",
}

// Chunk is a run of text with one color
type Chunk struct {
	Text  string
	Color Color
}

// Plain returns an uncolored chunk
func Plain(s string) Chunk {
	return Chunk{Text: s}
}

// Colored returns a chunk with color c
func Colored(s string, c Color) Chunk {
	return Chunk{Text: s, Color: c}
}

// Line is one scrollback row
type Line struct {
	Chunks []Chunk
}

// String returns the line without colors
func (l Line) String() string {
	var b strings.Builder
	for _, c := range l.Chunks {
		b.WriteString(c.Text)
	}
	return b.String()
}

// Width is the display width of the line in cells
func (l Line) Width() int {
	return chunksWidth(l.Chunks)
}

func chunksWidth(chunks []Chunk) int {
	n := 0
	for _, c := range chunks {
		n += runewidth.StringWidth(c.Text)
	}
	return n
}

// appendChunks merges adjacent chunks with the same color
func appendChunks(dst []Chunk, src ...Chunk) []Chunk {
	for _, c := range src {
		if c.Text == "" {
			continue
		}
		if n := len(dst); n > 0 && dst[n-1].Color == c.Color {
			dst[n-1].Text += c.Text
			continue
		}
		dst = append(dst, c)
	}
	return dst
}
