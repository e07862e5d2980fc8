// Package terminal implements the line editor and scrollback of the shell:
// prompt editing with history and keyword highlighting, written output and
// the request/response WaitLine abstraction the session loop blocks on.
package terminal

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/mattn/go-runewidth"

	"github.com/nhath/psqlsh/internal/input"
)

var (
	ErrClosed    = errors.New("terminal closed")
	ErrNoOptions = errors.New("no options provided")
	ErrBusy      = errors.New("a selection is already in progress")
)

// SelectOption is one choice of a selection widget
type SelectOption struct {
	Value       string
	Description string
}

// SelectFrame is the render state of an active selection
type SelectFrame struct {
	Options []SelectOption
	Index   int
}

// Frame is a consistent snapshot for rendering
type Frame struct {
	// Lines holds the committed lines followed by the active line
	Lines []Line
	// Caret is the cell column of the caret on the active line
	Caret         int
	CursorVisible bool
	Prompt        bool
	Select        *SelectFrame
}

type selection struct {
	options  []SelectOption
	index    int
	done     chan int
	finished bool
}

// Option configures a Terminal
type Option func(*Terminal)

// WithScrollback limits the number of committed lines kept
func WithScrollback(limit int) Option {
	return func(t *Terminal) {
		t.lines.limit = limit
	}
}

// Terminal owns the editor state. All methods are safe for concurrent use;
// each one is applied atomically relative to input events.
type Terminal struct {
	mu      sync.Mutex
	in      *input.Manager
	subs    []input.Subscription
	state   State
	written []Chunk
	lines   Scrollback
	cursor  bool
	waiters []chan string
	sel     *selection
	closed  bool
	width   int

	keywords atomic.Pointer[Keywords]
	changed  chan struct{}
}

// New attaches a terminal to the input manager
func New(in *input.Manager, opts ...Option) *Terminal {
	t := &Terminal{
		in:      in,
		changed: make(chan struct{}, 1),
		lines:   Scrollback{limit: DefaultScrollback},
	}
	for _, opt := range opts {
		opt(t)
	}
	for _, kind := range []input.Kind{input.Left, input.Right, input.Up, input.Down, input.Enter, input.Change} {
		t.subs = append(t.subs, in.On(kind, t.handle))
	}
	return t
}

func (t *Terminal) handle(ev input.Event) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	wasPrompt := t.state.Prompt
	next, out := Step(t.state, ev)
	t.state = next

	var waiter chan string
	if out.Submitted {
		if wasPrompt {
			// freeze the submitted prompt line; the caller restarts prompt mode
			t.written = appendChunks(t.written, Plain(t.state.Label))
			t.written = appendChunks(t.written, Highlight(out.Line, t.keywords.Load())...)
			t.state.Prompt = false
		}
		if len(t.waiters) > 0 {
			waiter = t.waiters[0]
			t.waiters = t.waiters[1:]
		}
	}
	text := t.state.Buffer.Text
	t.mu.Unlock()

	if out.Submitted || out.Recall {
		t.in.ResetText(text)
	}
	if waiter != nil {
		waiter <- out.Line
	}
	t.notify()
}

// Changed delivers a signal after every mutation. Signals coalesce.
func (t *Terminal) Changed() <-chan struct{} {
	return t.changed
}

func (t *Terminal) notify() {
	select {
	case t.changed <- struct{}{}:
	default:
	}
}

// Write appends chunks to the active line
func (t *Terminal) Write(chunks ...Chunk) {
	t.mu.Lock()
	t.written = appendChunks(t.written, chunks...)
	t.mu.Unlock()
	t.notify()
}

// WriteString appends uncolored text to the active line
func (t *Terminal) WriteString(s string) {
	t.Write(Plain(s))
}

// Writeln appends chunks and commits the active line
func (t *Terminal) Writeln(chunks ...Chunk) {
	t.mu.Lock()
	t.written = appendChunks(t.written, chunks...)
	reset := t.addLineLocked()
	t.mu.Unlock()
	if reset {
		t.in.ResetText("")
	}
	t.notify()
}

// WritelnString writes s as one uncolored line
func (t *Terminal) WritelnString(s string) {
	t.Writeln(Plain(s))
}

// AddLine commits the active line and opens a new one
func (t *Terminal) AddLine() {
	t.Writeln()
}

func (t *Terminal) addLineLocked() (resetInput bool) {
	t.lines.Append(Line{Chunks: t.activeLocked()})
	t.written = nil
	if t.state.Prompt && t.state.Buffer.Text != "" {
		t.state.Buffer = PromptBuffer{}
		return true
	}
	return false
}

func (t *Terminal) activeLocked() []Chunk {
	chunks := slices.Clone(t.written)
	if t.state.Prompt {
		chunks = appendChunks(chunks, Plain(t.state.Label))
		chunks = appendChunks(chunks, Highlight(t.state.Buffer.Text, t.keywords.Load())...)
	}
	return chunks
}

// StartPromptMode makes the active line editable behind label
func (t *Terminal) StartPromptMode(label string) {
	t.mu.Lock()
	t.state.Prompt = true
	t.state.Label = label
	t.state.Buffer = PromptBuffer{}
	t.mu.Unlock()
	t.in.ResetText("")
	t.notify()
}

// StopPromptMode makes the active line read-only
func (t *Terminal) StopPromptMode() {
	t.mu.Lock()
	t.state.Prompt = false
	t.mu.Unlock()
	t.notify()
}

// ShowCursor shows the caret on the active line
func (t *Terminal) ShowCursor() {
	t.setCursor(true)
}

// HideCursor hides the caret
func (t *Terminal) HideCursor() {
	t.setCursor(false)
}

func (t *Terminal) setCursor(v bool) {
	t.mu.Lock()
	t.cursor = v
	t.mu.Unlock()
	t.notify()
}

// SetKeywords installs the highlighting keyword set. It may be called at any
// time; lines typed before it arrives are simply not highlighted.
func (t *Terminal) SetKeywords(k *Keywords) {
	t.keywords.Store(k)
	t.notify()
}

// LoadHistory replaces the prompt history and moves to the present
func (t *Terminal) LoadHistory(entries []string) {
	t.mu.Lock()
	t.state.History = HistoryLog{Entries: slices.Clone(entries), Index: len(entries)}
	t.mu.Unlock()
}

// History returns the submitted prompt lines, oldest first
func (t *Terminal) History() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.state.History.Entries)
}

// Clear drops all committed lines and the written part of the active line
func (t *Terminal) Clear() {
	t.mu.Lock()
	t.lines.Clear()
	t.written = nil
	t.mu.Unlock()
	t.notify()
}

// SetWidth records the screen width in cells
func (t *Terminal) SetWidth(w int) {
	t.mu.Lock()
	t.width = w
	t.mu.Unlock()
}

// Width returns the last recorded screen width, 0 when unknown
func (t *Terminal) Width() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.width
}

// WaitLine blocks until the next Enter and returns the submitted text.
// Concurrent waiters are served in FIFO order. A cancelled wait does not
// consume a line.
func (t *Terminal) WaitLine(ctx context.Context) (string, error) {
	ch := make(chan string, 1)
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return "", ErrClosed
	}
	t.waiters = append(t.waiters, ch)
	t.mu.Unlock()

	select {
	case line, ok := <-ch:
		if !ok {
			return "", ErrClosed
		}
		return line, nil
	case <-ctx.Done():
		t.mu.Lock()
		i := slices.Index(t.waiters, ch)
		if i >= 0 {
			t.waiters = slices.Delete(t.waiters, i, i+1)
		}
		t.mu.Unlock()
		if i < 0 {
			// resolved concurrently with the cancellation
			if line, ok := <-ch; ok {
				return line, nil
			}
			return "", ErrClosed
		}
		return "", ctx.Err()
	}
}

// Pending returns the number of WaitLine calls waiting for Enter
func (t *Terminal) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.waiters)
}

// Select shows options below the scrollback and blocks until one is chosen
// with up/down/enter or Choose
func (t *Terminal) Select(ctx context.Context, options []SelectOption) (SelectOption, error) {
	if len(options) == 0 {
		return SelectOption{}, ErrNoOptions
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return SelectOption{}, ErrClosed
	}
	if t.sel != nil {
		t.mu.Unlock()
		return SelectOption{}, ErrBusy
	}
	sel := &selection{options: slices.Clone(options), done: make(chan int, 1)}
	t.sel = sel
	t.mu.Unlock()

	subs := []input.Subscription{
		t.in.On(input.Up, func(input.Event) { t.moveSelection(sel, -1) }),
		t.in.On(input.Down, func(input.Event) { t.moveSelection(sel, 1) }),
		t.in.On(input.Enter, func(input.Event) {
			t.mu.Lock()
			t.finishLocked(sel, sel.index)
			t.mu.Unlock()
		}),
	}
	t.notify()

	defer func() {
		for _, s := range subs {
			t.in.Off(s)
		}
		t.mu.Lock()
		if t.sel == sel {
			t.sel = nil
		}
		t.mu.Unlock()
		t.notify()
	}()

	select {
	case i, ok := <-sel.done:
		if !ok {
			return SelectOption{}, ErrClosed
		}
		return sel.options[i], nil
	case <-ctx.Done():
		return SelectOption{}, ctx.Err()
	}
}

// Choose picks option i of the active selection, as a mouse click does.
// It reports whether a selection was active and i was valid.
func (t *Terminal) Choose(i int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	sel := t.sel
	if sel == nil || i < 0 || i >= len(sel.options) {
		return false
	}
	sel.index = i
	t.finishLocked(sel, i)
	return true
}

func (t *Terminal) moveSelection(sel *selection, delta int) {
	t.mu.Lock()
	if !sel.finished {
		sel.index = min(max(sel.index+delta, 0), len(sel.options)-1)
	}
	t.mu.Unlock()
	t.notify()
}

func (t *Terminal) finishLocked(sel *selection, i int) {
	if sel.finished {
		return
	}
	sel.finished = true
	sel.done <- i
}

// Snapshot returns the current frame
func (t *Terminal) Snapshot() Frame {
	t.mu.Lock()
	defer t.mu.Unlock()

	committed := t.lines.Lines()
	lines := make([]Line, 0, len(committed)+1)
	lines = append(lines, committed...)
	lines = append(lines, Line{Chunks: t.activeLocked()})

	f := Frame{
		Lines:         lines,
		Caret:         t.caretLocked(),
		CursorVisible: t.cursor,
		Prompt:        t.state.Prompt,
	}
	if t.sel != nil && !t.sel.finished {
		f.Select = &SelectFrame{Options: slices.Clone(t.sel.options), Index: t.sel.index}
	}
	return f
}

func (t *Terminal) caretLocked() int {
	col := chunksWidth(t.written)
	if t.state.Prompt {
		runes := []rune(t.state.Buffer.Text)
		col += runewidth.StringWidth(t.state.Label)
		col += runewidth.StringWidth(string(runes[:clampCursor(t.state.Buffer.Cursor, t.state.Buffer.Text)]))
	}
	return col
}

// Close detaches from the input manager and fails pending waits
func (t *Terminal) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	for _, ch := range t.waiters {
		close(ch)
	}
	t.waiters = nil
	if t.sel != nil && !t.sel.finished {
		t.sel.finished = true
		close(t.sel.done)
	}
	subs := t.subs
	t.subs = nil
	t.mu.Unlock()

	for _, s := range subs {
		t.in.Off(s)
	}
	t.notify()
}
