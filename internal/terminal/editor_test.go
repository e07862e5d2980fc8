package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhath/psqlsh/internal/input"
)

func promptState(entries ...string) State {
	return State{
		Prompt:  true,
		Label:   "db=> ",
		History: HistoryLog{Entries: entries, Index: len(entries)},
	}
}

func TestStepChangeAndCursor(t *testing.T) {
	s := promptState()
	s, _ = Step(s, input.Event{Kind: input.Change, Text: "select", Cursor: 6})
	assert.Equal(t, PromptBuffer{Text: "select", Cursor: 6}, s.Buffer)

	s, _ = Step(s, input.Event{Kind: input.Left, Cursor: 5})
	assert.Equal(t, 5, s.Buffer.Cursor)

	// out of range cursors are clamped
	s, _ = Step(s, input.Event{Kind: input.Right, Cursor: 99})
	assert.Equal(t, 6, s.Buffer.Cursor)
}

func TestStepIgnoresEditsOutsidePrompt(t *testing.T) {
	s := State{}
	s, out := Step(s, input.Event{Kind: input.Change, Text: "x", Cursor: 1})
	assert.Equal(t, PromptBuffer{}, s.Buffer)
	assert.False(t, out.Recall)

	s, out = Step(s, input.Event{Kind: input.Up})
	assert.False(t, out.Recall)
}

func TestStepEnterPushesHistory(t *testing.T) {
	s := promptState("select 1")
	s.Buffer = PromptBuffer{Text: "select 1", Cursor: 8}

	s, out := Step(s, input.Event{Kind: input.Enter, Text: "select 1"})

	assert.True(t, out.Submitted)
	assert.Equal(t, "select 1", out.Line)
	// duplicates are kept
	assert.Equal(t, []string{"select 1", "select 1"}, s.History.Entries)
	assert.True(t, s.History.AtPresent())
	assert.Equal(t, PromptBuffer{}, s.Buffer)
}

func TestStepEnterEmptyLine(t *testing.T) {
	s, out := Step(promptState(), input.Event{Kind: input.Enter})
	assert.True(t, out.Submitted)
	assert.Equal(t, []string{""}, s.History.Entries)
}

func TestStepEnterOutsidePromptSkipsHistory(t *testing.T) {
	s, out := Step(State{}, input.Event{Kind: input.Enter})
	assert.True(t, out.Submitted)
	assert.Empty(t, s.History.Entries)
}

func TestHistoryNavigation(t *testing.T) {
	s := promptState("a", "b")
	s.Buffer = PromptBuffer{Text: "draft", Cursor: 5}

	s, out := Step(s, input.Event{Kind: input.Up})
	require.True(t, out.Recall)
	assert.Equal(t, "b", s.Buffer.Text)
	assert.Equal(t, 1, s.Buffer.Cursor)
	assert.Equal(t, "draft", s.History.Undo)

	s, _ = Step(s, input.Event{Kind: input.Up})
	assert.Equal(t, "a", s.Buffer.Text)

	// up at the oldest entry is a no-op
	s, out = Step(s, input.Event{Kind: input.Up})
	assert.False(t, out.Recall)
	assert.Equal(t, 0, s.History.Index)

	s, _ = Step(s, input.Event{Kind: input.Down})
	assert.Equal(t, "b", s.Buffer.Text)

	s, _ = Step(s, input.Event{Kind: input.Down})
	assert.Equal(t, "draft", s.Buffer.Text)
	assert.Equal(t, 5, s.Buffer.Cursor)
	assert.Empty(t, s.History.Undo)
	assert.True(t, s.History.AtPresent())

	// down at the present is a no-op
	_, out = Step(s, input.Event{Kind: input.Down})
	assert.False(t, out.Recall)
}

func TestStepDoesNotAliasHistory(t *testing.T) {
	entries := make([]string, 1, 4)
	entries[0] = "a"
	s := promptState(entries...)

	s1, _ := Step(s, input.Event{Kind: input.Enter})
	s2, _ := Step(s, input.Event{Kind: input.Enter})
	s2.History.Entries[1] = "changed"

	assert.Equal(t, "", s1.History.Entries[1])
}

func TestHighlight(t *testing.T) {
	kw := NewKeywords([]string{"select", "FROM"})

	got := Highlight("SELECT id from users;", kw)
	want := []Chunk{
		Colored("SELECT", Green),
		Plain(" "),
		Plain("id"),
		Plain(" "),
		Colored("from", Green),
		Plain(" "),
		Plain("users"),
		Plain(";"),
	}
	assert.Equal(t, want, got)
}

func TestHighlightWithoutKeywords(t *testing.T) {
	assert.Equal(t, []Chunk{Plain("select 1")}, Highlight("select 1", nil))
	assert.Nil(t, Highlight("", nil))
}

func TestParseKeywords(t *testing.T) {
	kw, err := ParseKeywords([]byte(`{"keywords":["Select","where"]}`))
	require.NoError(t, err)
	assert.True(t, kw.Has("SELECT"))
	assert.True(t, kw.Has("Where"))
	assert.False(t, kw.Has("users"))

	_, err = ParseKeywords([]byte(`not json`))
	assert.Error(t, err)
}
