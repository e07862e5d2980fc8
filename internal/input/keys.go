package input

import (
	tea "github.com/charmbracelet/bubbletea"
)

// HandleKey maps a bubbletea key message onto the manager. It reports
// whether the key was consumed.
func (m *Manager) HandleKey(msg tea.KeyMsg) bool {
	if msg.Paste {
		m.Paste(string(msg.Runes))
		return true
	}

	switch msg.Type {
	case tea.KeyLeft:
		m.MoveCursor(m.Cursor() - 1)
	case tea.KeyRight:
		m.MoveCursor(m.Cursor() + 1)
	case tea.KeyHome, tea.KeyCtrlA:
		m.MoveCursor(0)
	case tea.KeyEnd, tea.KeyCtrlE:
		m.MoveCursor(RuneLen(m.Text()))
	case tea.KeyUp, tea.KeyCtrlP:
		m.Arrow(Up)
	case tea.KeyDown, tea.KeyCtrlN:
		m.Arrow(Down)
	case tea.KeyEnter:
		m.Submit()
	case tea.KeyBackspace, tea.KeyCtrlH:
		m.Backspace()
	case tea.KeyDelete, tea.KeyCtrlD:
		m.DeleteForward()
	case tea.KeyCtrlU:
		m.KillLine()
	case tea.KeyCtrlV:
		// clipboard access fails on headless hosts; bracketed paste still works
		_ = m.PasteClipboard()
	case tea.KeySpace:
		m.Insert(" ")
	case tea.KeyRunes:
		if msg.Alt {
			return false
		}
		m.Insert(string(msg.Runes))
	default:
		return false
	}
	return true
}
