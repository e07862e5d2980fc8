package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/nhath/psqlsh/internal/db"
)

func (m Model) renderStatusBar() string {
	var parts []string
	st := m.status.Status()

	// 1. Phase
	parts = append(parts, PhaseStyle.Render(string(st.Phase)))

	// 2. Connection
	if st.Database != "" {
		parts = append(parts, ConnectionStyle.Render(" "+st.Database+" "))
	} else {
		parts = append(parts, ConnectionStyle.Render(" NOT CONNECTED "))
	}

	// 3. Transaction
	switch st.Tx {
	case db.TxActive:
		parts = append(parts, TxActiveStyle.Render("IN TRANSACTION"))
	case db.TxFailed:
		parts = append(parts, TxFailedStyle.Render("FAILED TRANSACTION"))
	}

	// 4. Running indicator
	if st.Busy {
		parts = append(parts, ConnectionStyle.Render(m.spinner.View()+" Running..."))
	}

	left := lipgloss.JoinHorizontal(lipgloss.Left, parts...)
	hint := HintStyle.Render("esc: help  ctrl+c: quit")
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(hint)
	if gap < 0 {
		return StatusBarStyle.Width(m.width).Render(ansi.Truncate(left, m.width, ""))
	}
	return StatusBarStyle.Width(m.width).Render(left + StatusBarStyle.Render(strings.Repeat(" ", gap)) + hint)
}
