// Package input turns raw terminal key events into a normalized stream of
// editing events over a single authoritative text buffer and cursor.
package input

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/atotto/clipboard"
)

// Kind is the type of a normalized input event
type Kind int

const (
	Left Kind = iota
	Right
	Up
	Down
	Enter
	Change
)

func (k Kind) String() string {
	switch k {
	case Left:
		return "left"
	case Right:
		return "right"
	case Up:
		return "up"
	case Down:
		return "down"
	case Enter:
		return "enter"
	case Change:
		return "inputChange"
	default:
		return "unknown"
	}
}

// Event carries the buffer state after the edit that produced it.
// Up and Down events carry no payload.
type Event struct {
	Kind   Kind
	Text   string
	Cursor int
}

// Handler receives dispatched events
type Handler func(Event)

// Subscription identifies a registered handler for Off
type Subscription struct {
	kind Kind
	id   uint64
}

type entry struct {
	id uint64
	fn Handler
}

// Manager owns the raw text and cursor. Cursor positions are counted in runes.
type Manager struct {
	mu       sync.Mutex
	text     []rune
	cursor   int
	nextID   uint64
	handlers map[Kind][]entry

	readClipboard func() (string, error)
}

// NewManager creates an empty input manager
func NewManager() *Manager {
	return &Manager{
		handlers:      make(map[Kind][]entry),
		readClipboard: clipboard.ReadAll,
	}
}

// On registers fn for events of the given kind. Handlers run in
// registration order.
func (m *Manager) On(kind Kind, fn Handler) Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.handlers[kind] = append(m.handlers[kind], entry{id: m.nextID, fn: fn})
	return Subscription{kind: kind, id: m.nextID}
}

// Off removes a handler. Removing an unknown subscription is a no-op.
func (m *Manager) Off(sub Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.handlers[sub.kind]
	for i, e := range list {
		if e.id == sub.id {
			m.handlers[sub.kind] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// ResetText replaces the buffer and moves the cursor to its end without
// emitting an event
func (m *Manager) ResetText(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = []rune(text)
	m.cursor = len(m.text)
}

// Text returns the current buffer
func (m *Manager) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.text)
}

// Cursor returns the current cursor offset in runes
func (m *Manager) Cursor() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor
}

// MoveCursor sets the cursor to pos clamped to the buffer and emits Left or
// Right depending on direction
func (m *Manager) MoveCursor(pos int) {
	m.mu.Lock()
	kind := Right
	if pos < m.cursor {
		kind = Left
	}
	m.cursor = min(max(pos, 0), len(m.text))
	ev := Event{Kind: kind, Text: string(m.text), Cursor: m.cursor}
	m.mu.Unlock()
	m.dispatch(ev)
}

// Insert puts s at the cursor. Line breaks are folded to spaces since the
// buffer is a single line.
func (m *Manager) Insert(s string) {
	if s == "" {
		return
	}
	s = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ").Replace(s)
	m.mu.Lock()
	ins := []rune(s)
	text := make([]rune, 0, len(m.text)+len(ins))
	text = append(text, m.text[:m.cursor]...)
	text = append(text, ins...)
	text = append(text, m.text[m.cursor:]...)
	m.text = text
	m.cursor += len(ins)
	ev := m.changeLocked()
	m.mu.Unlock()
	m.dispatch(ev)
}

// Paste inserts text at the cursor, advancing it by the pasted length
func (m *Manager) Paste(text string) {
	m.Insert(text)
}

// PasteClipboard reads the system clipboard and pastes it
func (m *Manager) PasteClipboard() error {
	text, err := m.readClipboard()
	if err != nil {
		return err
	}
	m.Paste(text)
	return nil
}

// Backspace deletes the rune before the cursor
func (m *Manager) Backspace() {
	m.mu.Lock()
	if m.cursor == 0 {
		m.mu.Unlock()
		return
	}
	m.text = append(m.text[:m.cursor-1], m.text[m.cursor:]...)
	m.cursor--
	ev := m.changeLocked()
	m.mu.Unlock()
	m.dispatch(ev)
}

// DeleteForward deletes the rune under the cursor
func (m *Manager) DeleteForward() {
	m.mu.Lock()
	if m.cursor >= len(m.text) {
		m.mu.Unlock()
		return
	}
	m.text = append(m.text[:m.cursor], m.text[m.cursor+1:]...)
	ev := m.changeLocked()
	m.mu.Unlock()
	m.dispatch(ev)
}

// KillLine clears everything before the cursor
func (m *Manager) KillLine() {
	m.mu.Lock()
	if m.cursor == 0 {
		m.mu.Unlock()
		return
	}
	m.text = append([]rune(nil), m.text[m.cursor:]...)
	m.cursor = 0
	ev := m.changeLocked()
	m.mu.Unlock()
	m.dispatch(ev)
}

// Submit emits Enter with the full text. The caller clears the buffer.
func (m *Manager) Submit() {
	m.mu.Lock()
	ev := Event{Kind: Enter, Text: string(m.text), Cursor: m.cursor}
	m.mu.Unlock()
	m.dispatch(ev)
}

// Arrow emits a bare Up or Down event
func (m *Manager) Arrow(kind Kind) {
	if kind != Up && kind != Down {
		return
	}
	m.dispatch(Event{Kind: kind})
}

func (m *Manager) changeLocked() Event {
	return Event{Kind: Change, Text: string(m.text), Cursor: m.cursor}
}

// dispatch runs handlers on a snapshot of the subscription list, outside
// the lock, so handlers may call back into the manager or unsubscribe.
func (m *Manager) dispatch(ev Event) {
	m.mu.Lock()
	list := append([]entry(nil), m.handlers[ev.Kind]...)
	m.mu.Unlock()
	for _, e := range list {
		e.fn(ev)
	}
}

// RuneLen is the cursor-space length of s
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}
