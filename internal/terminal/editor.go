package terminal

import (
	"github.com/nhath/psqlsh/internal/input"
)

// PromptBuffer is the editable text of the active prompt line. Cursor is a
// rune offset into Text.
type PromptBuffer struct {
	Text   string
	Cursor int
}

// HistoryLog holds submitted prompt lines. Index == len(Entries) means the
// user is editing a fresh line; Undo keeps that fresh line while browsing.
type HistoryLog struct {
	Entries []string
	Index   int
	Undo    string
}

// AtPresent reports whether no history entry is being browsed
func (h HistoryLog) AtPresent() bool {
	return h.Index == len(h.Entries)
}

// State is the line editor state
type State struct {
	Prompt  bool
	Label   string
	Buffer  PromptBuffer
	History HistoryLog
}

// Outcome reports what a transition did beyond changing state
type Outcome struct {
	// Submitted is set by Enter in any mode
	Submitted bool
	// Line is the submitted text, without the prompt label
	Line string
	// Recall is set when history navigation replaced the buffer and the
	// input source must be reset to it
	Recall bool
}

// Step applies one input event to s
func Step(s State, ev input.Event) (State, Outcome) {
	switch ev.Kind {
	case input.Left, input.Right:
		if s.Prompt {
			s.Buffer.Cursor = clampCursor(ev.Cursor, s.Buffer.Text)
		}
	case input.Change:
		if s.Prompt {
			s.Buffer = PromptBuffer{Text: ev.Text, Cursor: clampCursor(ev.Cursor, ev.Text)}
		}
	case input.Up:
		return stepUp(s)
	case input.Down:
		return stepDown(s)
	case input.Enter:
		line := s.Buffer.Text
		if s.Prompt {
			s.History.Entries = append(s.History.Entries[:len(s.History.Entries):len(s.History.Entries)], line)
			s.History.Index = len(s.History.Entries)
			s.History.Undo = ""
		}
		s.Buffer = PromptBuffer{}
		return s, Outcome{Submitted: true, Line: line}
	}
	return s, Outcome{}
}

func stepUp(s State) (State, Outcome) {
	h := s.History
	if !s.Prompt || h.Index == 0 {
		return s, Outcome{}
	}
	if h.AtPresent() {
		h.Undo = s.Buffer.Text
	}
	h.Index--
	s.History = h
	s.Buffer = fullBuffer(h.Entries[h.Index])
	return s, Outcome{Recall: true}
}

func stepDown(s State) (State, Outcome) {
	h := s.History
	if !s.Prompt || h.AtPresent() {
		return s, Outcome{}
	}
	h.Index++
	if h.AtPresent() {
		s.Buffer = fullBuffer(h.Undo)
		h.Undo = ""
	} else {
		s.Buffer = fullBuffer(h.Entries[h.Index])
	}
	s.History = h
	return s, Outcome{Recall: true}
}

func fullBuffer(text string) PromptBuffer {
	return PromptBuffer{Text: text, Cursor: input.RuneLen(text)}
}

func clampCursor(c int, text string) int {
	return min(max(c, 0), input.RuneLen(text))
}
