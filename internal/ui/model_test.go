package ui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhath/psqlsh/internal/db"
	"github.com/nhath/psqlsh/internal/input"
	"github.com/nhath/psqlsh/internal/session"
	"github.com/nhath/psqlsh/internal/terminal"
)

type staticStatus struct {
	st session.Status
}

func (s staticStatus) Status() session.Status { return s.st }

func newModel(t *testing.T, st session.Status) (Model, *terminal.Terminal, *input.Manager) {
	t.Helper()
	in := input.NewManager()
	term := terminal.New(in)
	t.Cleanup(term.Close)
	m := NewModel(term, in, staticStatus{st: st}, "Welcome to psqlsh! To start, press Enter")
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 10})
	return next.(Model), term, in
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestWindowSizeSetsTerminalWidth(t *testing.T) {
	_, term, _ := newModel(t, session.Status{Phase: session.PhaseIdle})
	assert.Equal(t, 80, term.Width())
}

func TestViewShowsScrollbackAndStatus(t *testing.T) {
	m, term, _ := newModel(t, session.Status{Phase: session.PhasePrompting, Database: "neondb", Tx: db.TxActive})
	term.Writeln(terminal.Colored("Connected to the database!", terminal.Green))
	term.StartPromptMode("neondb=*> ")
	m = update(t, m, changedMsg{})

	view := ansi.Strip(m.View())
	assert.Contains(t, view, "Connected to the database!")
	assert.Contains(t, view, "neondb=*> ")
	assert.Contains(t, view, "PROMPTING")
	assert.Contains(t, view, "IN TRANSACTION")
}

func TestKeysReachInputManager(t *testing.T) {
	m, term, in := newModel(t, session.Status{Phase: session.PhasePrompting})
	term.StartPromptMode("=> ")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("select")})
	m = update(t, m, tea.KeyMsg{Type: tea.KeySpace})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("1")})
	assert.Equal(t, "select 1", in.Text())

	m = update(t, m, changedMsg{})
	assert.Contains(t, ansi.Strip(m.View()), "=> select 1")
}

func TestBannerToggle(t *testing.T) {
	m, _, in := newModel(t, session.Status{Phase: session.PhaseIdle})

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.True(t, m.showBanner)
	assert.Contains(t, ansi.Strip(m.View()), "Welcome to psqlsh!")

	// typing is ignored while the banner covers the prompt
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	assert.Equal(t, "", in.Text())

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlB})
	assert.False(t, m.showBanner)
}

func TestMouseClickChoosesOption(t *testing.T) {
	m, term, _ := newModel(t, session.Status{Phase: session.PhaseIdle})
	term.WritelnString("Pick a dataset to start with:")

	picked := make(chan terminal.SelectOption, 1)
	go func() {
		opt, _ := term.Select(context.Background(), []terminal.SelectOption{
			{Value: "Blank database"},
			{Value: "Chinook", Description: "music store"},
		})
		picked <- opt
	}()
	require.Eventually(t, func() bool { return term.Snapshot().Select != nil }, time.Second, time.Millisecond)
	m = update(t, m, changedMsg{})

	view := ansi.Strip(m.View())
	assert.Contains(t, view, "> Blank database")
	assert.Contains(t, view, "Chinook  music store")

	// content: one committed line, the active line, then the options
	require.Equal(t, 2, m.selectTop)
	m = update(t, m, tea.MouseMsg{X: 3, Y: m.selectTop + 1 - m.viewport.YOffset, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})

	select {
	case opt := <-picked:
		assert.Equal(t, "Chinook", opt.Value)
	case <-time.After(time.Second):
		t.Fatal("click did not choose an option")
	}
}

func TestRenderActiveLineCaret(t *testing.T) {
	line := terminal.Line{Chunks: []terminal.Chunk{terminal.Plain("=> "), terminal.Colored("SELECT", terminal.Green)}}

	assert.Equal(t, "=> SELECT", ansi.Strip(renderActiveLine(line, 3, false)))
	assert.Equal(t, "=> SELECT", ansi.Strip(renderActiveLine(line, 3, true)))
	assert.Equal(t, "=> SELECT ", ansi.Strip(renderActiveLine(line, 9, true)))
}

func TestSessionDoneQuits(t *testing.T) {
	m, _, _ := newModel(t, session.Status{})
	next, cmd := m.Update(SessionDoneMsg{})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, "", next.(Model).View())
}
