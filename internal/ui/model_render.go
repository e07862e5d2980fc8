// internal/ui/model_render.go
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	overlay "github.com/rmhubbert/bubbletea-overlay"

	"github.com/nhath/psqlsh/internal/terminal"
)

// View renders the scrollback with the status bar below it
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}

	main := lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), m.renderStatusBar())
	if m.showBanner {
		return m.renderBanner(main)
	}
	return main
}

// renderLines styles every scrollback line; the active line carries the
// caret and an active selection is listed after it
func (m Model) renderLines(f terminal.Frame) []string {
	out := make([]string, 0, len(f.Lines)+4)
	last := len(f.Lines) - 1
	for i, line := range f.Lines {
		if i == last {
			out = append(out, renderActiveLine(line, f.Caret, f.CursorVisible && f.Select == nil))
			continue
		}
		out = append(out, renderLine(line))
	}
	if f.Select != nil {
		out = append(out, renderSelect(f.Select)...)
	}
	return out
}

func renderLine(line terminal.Line) string {
	var b strings.Builder
	for _, c := range line.Chunks {
		b.WriteString(ChunkStyle(c.Color).Render(c.Text))
	}
	return b.String()
}

// renderActiveLine draws the caret as a reversed cell at column caret
func renderActiveLine(line terminal.Line, caret int, visible bool) string {
	if !visible {
		return renderLine(line)
	}

	var b strings.Builder
	col := 0
	placed := false
	for _, c := range line.Chunks {
		style := ChunkStyle(c.Color)
		var run strings.Builder
		for _, r := range c.Text {
			if !placed && col >= caret {
				b.WriteString(style.Render(run.String()))
				run.Reset()
				b.WriteString(CursorStyle.Render(string(r)))
				placed = true
				col += runewidth.RuneWidth(r)
				continue
			}
			run.WriteRune(r)
			col += runewidth.RuneWidth(r)
		}
		if run.Len() > 0 {
			b.WriteString(style.Render(run.String()))
		}
	}
	if !placed {
		b.WriteString(CursorStyle.Render(" "))
	}
	return b.String()
}

func renderSelect(sel *terminal.SelectFrame) []string {
	out := make([]string, len(sel.Options))
	for i, opt := range sel.Options {
		marker, style := "  ", OptionStyle
		if i == sel.Index {
			marker, style = "> ", OptionFocusStyle
		}
		line := style.Render(marker + opt.Value)
		if opt.Description != "" {
			line += "  " + OptionDescStyle.Render(opt.Description)
		}
		out[i] = line
	}
	return out
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}

func (m Model) renderBanner(main string) string {
	var content strings.Builder
	title := lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("psqlsh")
	content.WriteString(title)
	content.WriteString("\n\n")
	content.WriteString(lipgloss.NewStyle().Foreground(textColor).Render(m.banner))
	content.WriteString("\n\n")

	keys := []struct{ key, desc string }{
		{"enter", "Submit the line"},
		{"up/down", "History, or move in a list"},
		{"pgup/pgdown", "Scroll"},
		{"ctrl+v", "Paste"},
		{`\?`, "Backslash command help"},
		{"esc", "Toggle this banner"},
		{"ctrl+c", "Quit"},
	}
	keyStyle := lipgloss.NewStyle().Foreground(greenColor).Width(14)
	descStyle := lipgloss.NewStyle().Foreground(textColor)
	for _, k := range keys {
		content.WriteString("  " + keyStyle.Render(k.key) + " " + descStyle.Render(k.desc) + "\n")
	}

	popupBox := PopupStyle.
		Width(min(56, max(m.width-4, 20))).
		MaxHeight(max(m.height-2, 3)).
		Render(strings.TrimRight(content.String(), "\n"))

	return overlay.Composite(popupBox, main, overlay.Center, overlay.Center, 0, 0)
}
