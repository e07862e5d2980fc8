// internal/ui/model.go
// Root Model: projects the terminal state onto the screen and feeds keys
// and mouse events back into the input manager
package ui

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhath/psqlsh/internal/input"
	"github.com/nhath/psqlsh/internal/logger"
	"github.com/nhath/psqlsh/internal/session"
	"github.com/nhath/psqlsh/internal/terminal"
)

// StatusSource reports the session state shown in the status bar
type StatusSource interface {
	Status() session.Status
}

// changedMsg signals that the terminal state moved
type changedMsg struct{}

// SessionDoneMsg is sent when the session goroutine returns
type SessionDoneMsg struct {
	Err error
}

// Model is the root Bubble Tea model
type Model struct {
	term   *terminal.Terminal
	in     *input.Manager
	status StatusSource

	width, height int
	viewport      viewport.Model
	spinner       spinner.Model

	frame      terminal.Frame
	selectTop  int // content row of the first select option
	banner     string
	showBanner bool
	quitting   bool
}

// NewModel creates the UI for term. banner is the text shown by the overlay.
func NewModel(term *terminal.Terminal, in *input.Manager, status StatusSource, banner string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = OptionFocusStyle

	return Model{
		term:     term,
		in:       in,
		status:   status,
		viewport: viewport.New(0, 0),
		spinner:  s,
		banner:   banner,
		frame:    term.Snapshot(),
	}
}

// Init starts listening for terminal changes
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForChange(m.term.Changed()), m.spinner.Tick)
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return changedMsg{}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-1, 1)
		m.term.SetWidth(msg.Width)
		m.refresh()
		return m, nil

	case changedMsg:
		m.refresh()
		return m, waitForChange(m.term.Changed())

	case SessionDoneMsg:
		if msg.Err != nil {
			logger.Named("ui").WithError(msg.Err).Error("Session ended with error")
		}
		m.quitting = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "esc", "ctrl+b":
		m.showBanner = !m.showBanner
		return m, nil
	case "pgup":
		m.viewport.LineUp(m.viewport.Height)
		return m, nil
	case "pgdown":
		m.viewport.LineDown(m.viewport.Height)
		return m, nil
	}

	if m.showBanner {
		// the overlay swallows input until dismissed
		return m, nil
	}
	m.in.HandleKey(msg)
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
		if m.showBanner {
			m.showBanner = false
			return m, nil
		}
		if m.frame.Select != nil {
			row := m.viewport.YOffset + msg.Y - m.selectTop
			m.term.Choose(row)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// refresh takes a new snapshot and keeps the view pinned to the bottom
// unless the user scrolled away
func (m *Model) refresh() {
	follow := m.viewport.AtBottom()
	m.frame = m.term.Snapshot()

	lines := m.renderLines(m.frame)
	m.selectTop = len(m.frame.Lines)
	m.viewport.SetContent(joinLines(lines))
	if follow {
		m.viewport.GotoBottom()
	}
}
