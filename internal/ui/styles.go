// internal/ui/styles.go
package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhath/psqlsh/internal/config"
	"github.com/nhath/psqlsh/internal/terminal"
)

var (
	textColor       lipgloss.Color
	faintColor      lipgloss.Color
	accentColor     lipgloss.Color
	redColor        lipgloss.Color
	greenColor      lipgloss.Color
	lightGreenColor lipgloss.Color
	yellowColor     lipgloss.Color
	borderColor     lipgloss.Color

	// Styles
	StatusBarStyle   lipgloss.Style
	PhaseStyle       lipgloss.Style
	ConnectionStyle  lipgloss.Style
	TxActiveStyle    lipgloss.Style
	TxFailedStyle    lipgloss.Style
	HintStyle        lipgloss.Style
	CursorStyle      lipgloss.Style
	OptionStyle      lipgloss.Style
	OptionFocusStyle lipgloss.Style
	OptionDescStyle  lipgloss.Style
	PopupStyle       lipgloss.Style

	chunkStyles map[terminal.Color]lipgloss.Style
)

func init() {
	InitStyles(config.DefaultConfig().Theme)
}

// InitStyles initializes the global styles from the configured theme
func InitStyles(theme config.Theme) {
	textColor = lipgloss.Color(theme.Text)
	faintColor = lipgloss.Color(theme.Faint)
	accentColor = lipgloss.Color(theme.Accent)
	redColor = lipgloss.Color(theme.Red)
	greenColor = lipgloss.Color(theme.Green)
	lightGreenColor = lipgloss.Color(theme.LightGreen)
	yellowColor = lipgloss.Color(theme.Yellow)
	borderColor = lipgloss.Color(theme.Border)

	StatusBarStyle = lipgloss.NewStyle().
		Foreground(textColor).
		Background(borderColor)

	PhaseStyle = lipgloss.NewStyle().
		Bold(true).
		Padding(0, 1).
		Background(accentColor).
		Foreground(borderColor)

	ConnectionStyle = lipgloss.NewStyle().
		Padding(0, 1).
		Background(borderColor).
		Foreground(textColor)

	TxActiveStyle = lipgloss.NewStyle().
		Bold(true).
		Padding(0, 1).
		Background(yellowColor).
		Foreground(borderColor)

	TxFailedStyle = lipgloss.NewStyle().
		Bold(true).
		Padding(0, 1).
		Background(redColor).
		Foreground(textColor)

	HintStyle = lipgloss.NewStyle().
		Foreground(faintColor).
		Background(borderColor).
		Padding(0, 1)

	CursorStyle = lipgloss.NewStyle().Reverse(true)

	OptionStyle = lipgloss.NewStyle().Foreground(textColor)
	OptionFocusStyle = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	OptionDescStyle = lipgloss.NewStyle().Foreground(faintColor).Italic(true)

	PopupStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentColor).
		Padding(1, 2)

	chunkStyles = map[terminal.Color]lipgloss.Style{
		terminal.None:       lipgloss.NewStyle().Foreground(textColor),
		terminal.Red:        lipgloss.NewStyle().Foreground(redColor),
		terminal.Green:      lipgloss.NewStyle().Foreground(greenColor),
		terminal.LightGreen: lipgloss.NewStyle().Foreground(lightGreenColor),
		terminal.Yellow:     lipgloss.NewStyle().Foreground(yellowColor),
	}
}

// ChunkStyle returns the style for a scrollback colour
func ChunkStyle(c terminal.Color) lipgloss.Style {
	if s, ok := chunkStyles[c]; ok {
		return s
	}
	return chunkStyles[terminal.None]
}
