package terminal

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhath/psqlsh/internal/input"
)

func newTerm(t *testing.T, opts ...Option) (*Terminal, *input.Manager) {
	t.Helper()
	in := input.NewManager()
	term := New(in, opts...)
	t.Cleanup(term.Close)
	return term, in
}

func lineTexts(f Frame) []string {
	out := make([]string, len(f.Lines))
	for i, l := range f.Lines {
		out[i] = l.String()
	}
	return out
}

func waitAsync(ctx context.Context, term *Terminal) <-chan string {
	ch := make(chan string, 1)
	go func() {
		line, err := term.WaitLine(ctx)
		if err != nil {
			line = "err:" + err.Error()
		}
		ch <- line
	}()
	return ch
}

// waitPending blocks until n waiters are queued
func waitPending(t *testing.T, term *Terminal, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		term.mu.Lock()
		defer term.mu.Unlock()
		return len(term.waiters) == n
	}, time.Second, time.Millisecond)
}

func TestWriteAndWriteln(t *testing.T) {
	term, _ := newTerm(t)
	term.WriteString("Welcome")
	term.Write(Colored("!", Red))
	term.WritelnString("")
	term.WritelnString("next")

	f := term.Snapshot()
	assert.Equal(t, []string{"Welcome!", "next", ""}, lineTexts(f))
	assert.Equal(t, Red, f.Lines[0].Chunks[1].Color)
}

func TestPromptRenderingAndCaret(t *testing.T) {
	term, in := newTerm(t)
	term.SetKeywords(NewKeywords([]string{"select"}))
	term.StartPromptMode("db=> ")
	in.Insert("select 1")
	in.MoveCursor(3)

	f := term.Snapshot()
	require.True(t, f.Prompt)
	active := f.Lines[len(f.Lines)-1]
	assert.Equal(t, "db=> select 1", active.String())
	assert.Equal(t, Chunk{Text: "select", Color: Green}, active.Chunks[1])
	assert.Equal(t, len("db=> ")+3, f.Caret)
}

func TestWaitLineReturnsSubmittedLine(t *testing.T) {
	term, in := newTerm(t)
	term.StartPromptMode("db=> ")
	got := waitAsync(context.Background(), term)
	waitPending(t, term, 1)

	in.Insert("select 1")
	in.Submit()

	assert.Equal(t, "select 1", <-got)
	assert.Equal(t, []string{"select 1"}, term.History())
	// the input source is cleared after submission
	assert.Equal(t, "", in.Text())

	// the submitted line stays visible once committed
	term.StopPromptMode()
	term.AddLine()
	f := term.Snapshot()
	assert.Equal(t, "db=> select 1", f.Lines[0].String())
}

func TestWaitLineFIFO(t *testing.T) {
	term, in := newTerm(t)
	first := waitAsync(context.Background(), term)
	waitPending(t, term, 1)
	second := waitAsync(context.Background(), term)
	waitPending(t, term, 2)

	term.StartPromptMode("> ")
	in.Insert("one")
	in.Submit()
	term.StartPromptMode("> ")
	in.Insert("two")
	in.Submit()

	assert.Equal(t, "one", <-first)
	assert.Equal(t, "two", <-second)
}

func TestWaitLineCancelDoesNotConsume(t *testing.T) {
	term, in := newTerm(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancelled := waitAsync(ctx, term)
	waitPending(t, term, 1)
	cancel()
	assert.Equal(t, "err:"+context.Canceled.Error(), <-cancelled)

	next := waitAsync(context.Background(), term)
	waitPending(t, term, 1)
	term.StartPromptMode("> ")
	in.Insert("kept")
	in.Submit()
	assert.Equal(t, "kept", <-next)
}

func TestEnterOutsidePromptResolvesWaiter(t *testing.T) {
	term, in := newTerm(t)
	got := waitAsync(context.Background(), term)
	waitPending(t, term, 1)

	in.Insert("ignored")
	in.Submit()

	assert.Equal(t, "", <-got)
	assert.Empty(t, term.History())
}

func TestHistoryRecallResetsInput(t *testing.T) {
	term, in := newTerm(t)
	term.LoadHistory([]string{"select 1"})
	term.StartPromptMode("> ")
	in.Insert("dr")

	in.Arrow(input.Up)
	assert.Equal(t, "select 1", in.Text())
	assert.Equal(t, 8, in.Cursor())

	in.Arrow(input.Down)
	assert.Equal(t, "dr", in.Text())
}

func TestBufferFollowsInputForRandomKeys(t *testing.T) {
	keys := []tea.KeyMsg{
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
		{Type: tea.KeyRunes, Runes: []rune("sel")},
		{Type: tea.KeyRunes, Runes: []rune("ü")},
		{Type: tea.KeyRunes, Runes: []rune("x\ny"), Paste: true},
	}
	rng := rand.New(rand.NewPCG(3, 9))
	term, in := newTerm(t)
	term.LoadHistory([]string{"select 1", "select 2"})
	term.StartPromptMode("> ")

	for i := range 5000 {
		key := keys[rng.IntN(len(keys))]
		in.HandleKey(key)

		term.mu.Lock()
		st := term.state
		term.mu.Unlock()
		if !st.Prompt {
			// Enter froze the line; the session would prompt again
			term.AddLine()
			term.StartPromptMode("> ")
			continue
		}

		buf := st.Buffer
		require.Equalf(t, in.Text(), buf.Text, "step %d (%s)", i, key)
		require.Equalf(t, in.Cursor(), buf.Cursor, "step %d (%s)", i, key)
		require.Truef(t, buf.Cursor >= 0 && buf.Cursor <= utf8.RuneCountInString(buf.Text),
			"step %d (%s): cursor %d outside %q", i, key, buf.Cursor, buf.Text)
		require.LessOrEqual(t, st.History.Index, len(st.History.Entries))
	}
}

func TestCloseFailsPendingWait(t *testing.T) {
	in := input.NewManager()
	term := New(in)
	got := waitAsync(context.Background(), term)
	waitPending(t, term, 1)

	term.Close()
	assert.Equal(t, "err:"+ErrClosed.Error(), <-got)

	_, err := term.WaitLine(context.Background())
	assert.ErrorIs(t, err, ErrClosed)

	// input events no longer reach the terminal
	in.Insert("x")
	assert.Equal(t, "", term.Snapshot().Lines[0].String())
}

func TestSelectWithKeys(t *testing.T) {
	term, in := newTerm(t)
	opts := []SelectOption{{Value: "Chinook"}, {Value: "Pokemon"}, {Value: "Blank"}}

	type result struct {
		opt SelectOption
		err error
	}
	done := make(chan result, 1)
	go func() {
		o, err := term.Select(context.Background(), opts)
		done <- result{o, err}
	}()
	require.Eventually(t, func() bool { return term.Snapshot().Select != nil }, time.Second, time.Millisecond)

	in.Arrow(input.Down)
	in.Arrow(input.Down)
	in.Arrow(input.Down)
	assert.Equal(t, 2, term.Snapshot().Select.Index)
	in.Arrow(input.Up)
	in.Submit()

	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, "Pokemon", r.opt.Value)
	assert.Nil(t, term.Snapshot().Select)
}

func TestSelectWithChoose(t *testing.T) {
	term, _ := newTerm(t)
	done := make(chan string, 1)
	go func() {
		o, _ := term.Select(context.Background(), []SelectOption{{Value: "a"}, {Value: "b"}})
		done <- o.Value
	}()
	require.Eventually(t, func() bool { return term.Snapshot().Select != nil }, time.Second, time.Millisecond)

	assert.False(t, term.Choose(5))
	assert.True(t, term.Choose(1))
	assert.Equal(t, "b", <-done)
	assert.False(t, term.Choose(0))
}

func TestSelectNoOptions(t *testing.T) {
	term, _ := newTerm(t)
	_, err := term.Select(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoOptions)
}

func TestScrollbackLimit(t *testing.T) {
	term, _ := newTerm(t, WithScrollback(3))
	for _, s := range []string{"1", "2", "3", "4", "5"} {
		term.WritelnString(s)
	}
	term.WriteString("active")

	assert.Equal(t, []string{"3", "4", "5", "active"}, lineTexts(term.Snapshot()))
}

func TestChangedCoalesces(t *testing.T) {
	term, _ := newTerm(t)
	term.WriteString("a")
	term.WriteString("b")

	select {
	case <-term.Changed():
	default:
		t.Fatal("expected a change signal")
	}
	select {
	case <-term.Changed():
		t.Fatal("signals should coalesce")
	default:
	}
}

func TestClear(t *testing.T) {
	term, _ := newTerm(t)
	term.WritelnString("old")
	term.WriteString("partial")
	term.Clear()
	assert.Equal(t, []string{""}, lineTexts(term.Snapshot()))
}
