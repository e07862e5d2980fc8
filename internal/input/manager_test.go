package input

import (
	"errors"
	"math/rand/v2"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(m *Manager, kinds ...Kind) *[]Event {
	var got []Event
	for _, k := range kinds {
		m.On(k, func(ev Event) { got = append(got, ev) })
	}
	return &got
}

func typeString(m *Manager, s string) {
	m.HandleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func TestTypingEmitsChange(t *testing.T) {
	m := NewManager()
	got := record(m, Change)

	typeString(m, "se")
	typeString(m, "l")

	require.Len(t, *got, 2)
	assert.Equal(t, Event{Kind: Change, Text: "sel", Cursor: 3}, (*got)[1])
}

func TestInsertAtCursor(t *testing.T) {
	m := NewManager()
	m.ResetText("slect")
	m.MoveCursor(1)
	typeString(m, "e")

	assert.Equal(t, "select", m.Text())
	assert.Equal(t, 2, m.Cursor())
}

func TestCursorClamped(t *testing.T) {
	m := NewManager()
	got := record(m, Left, Right)
	m.ResetText("ab")

	m.HandleKey(tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, 2, m.Cursor())
	m.HandleKey(tea.KeyMsg{Type: tea.KeyHome})
	m.HandleKey(tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, 0, m.Cursor())

	require.Len(t, *got, 3)
	assert.Equal(t, Right, (*got)[0].Kind)
	assert.Equal(t, Left, (*got)[2].Kind)
	assert.Equal(t, 0, (*got)[2].Cursor)
}

// randomKeys is a fixed pool of keys covering every editing path
var randomKeys = []tea.KeyMsg{
	{Type: tea.KeyLeft},
	{Type: tea.KeyRight},
	{Type: tea.KeyHome},
	{Type: tea.KeyEnd},
	{Type: tea.KeyUp},
	{Type: tea.KeyDown},
	{Type: tea.KeyBackspace},
	{Type: tea.KeyDelete},
	{Type: tea.KeyCtrlU},
	{Type: tea.KeySpace},
	{Type: tea.KeyEnter},
	{Type: tea.KeyRunes, Runes: []rune("s")},
	{Type: tea.KeyRunes, Runes: []rune("élan")},
	{Type: tea.KeyRunes, Runes: []rune("表")},
	{Type: tea.KeyRunes, Runes: []rune("a\nb"), Paste: true},
}

func TestCursorStaysInBoundsForRandomKeys(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 42))
	m := NewManager()
	m.On(Enter, func(Event) { m.ResetText("") })

	for i := range 5000 {
		key := randomKeys[rng.IntN(len(randomKeys))]
		m.HandleKey(key)
		cur, n := m.Cursor(), RuneLen(m.Text())
		require.Truef(t, cur >= 0 && cur <= n, "step %d (%s): cursor %d outside [0,%d]", i, key, cur, n)
	}
}

func TestBackspaceAndDelete(t *testing.T) {
	m := NewManager()
	m.ResetText("abc")

	m.HandleKey(tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Equal(t, "ab", m.Text())
	assert.Equal(t, 2, m.Cursor())

	m.MoveCursor(0)
	m.HandleKey(tea.KeyMsg{Type: tea.KeyDelete})
	assert.Equal(t, "b", m.Text())
	assert.Equal(t, 0, m.Cursor())

	// backspace at the start is a no-op
	got := record(m, Change)
	m.HandleKey(tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Empty(t, *got)
}

func TestPasteInsertsAtCursor(t *testing.T) {
	m := NewManager()
	got := record(m, Change)
	m.ResetText("select  from t")
	m.MoveCursor(7)

	m.HandleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("*\n"), Paste: true})

	assert.Equal(t, "select *  from t", m.Text())
	assert.Equal(t, 9, m.Cursor())
	require.Len(t, *got, 1)
}

func TestPasteClipboard(t *testing.T) {
	m := NewManager()
	m.readClipboard = func() (string, error) { return "héllo", nil }
	require.NoError(t, m.PasteClipboard())
	assert.Equal(t, 5, m.Cursor())

	m.readClipboard = func() (string, error) { return "", errors.New("no clipboard") }
	assert.Error(t, m.PasteClipboard())
	assert.Equal(t, "héllo", m.Text())
}

func TestEnterCarriesText(t *testing.T) {
	m := NewManager()
	got := record(m, Enter)
	m.ResetText("select 1")

	m.HandleKey(tea.KeyMsg{Type: tea.KeyEnter})

	require.Len(t, *got, 1)
	assert.Equal(t, "select 1", (*got)[0].Text)
	// the caller clears the buffer
	assert.Equal(t, "select 1", m.Text())
}

func TestHandlersRunInOrderAndOff(t *testing.T) {
	m := NewManager()
	var order []int
	s1 := m.On(Up, func(Event) { order = append(order, 1) })
	m.On(Up, func(Event) { order = append(order, 2) })

	m.HandleKey(tea.KeyMsg{Type: tea.KeyUp})
	m.Off(s1)
	m.HandleKey(tea.KeyMsg{Type: tea.KeyUp})
	m.Off(s1)

	assert.Equal(t, []int{1, 2, 2}, order)
}

func TestOffDuringDispatch(t *testing.T) {
	m := NewManager()
	calls := 0
	var sub Subscription
	sub = m.On(Enter, func(Event) {
		calls++
		m.Off(sub)
	})

	m.Submit()
	m.Submit()
	assert.Equal(t, 1, calls)
}

func TestUnhandledKeys(t *testing.T) {
	m := NewManager()
	assert.False(t, m.HandleKey(tea.KeyMsg{Type: tea.KeyTab}))
	assert.False(t, m.HandleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x"), Alt: true}))
	assert.Equal(t, "", m.Text())
}
