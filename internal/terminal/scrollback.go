package terminal

// DefaultScrollback is the number of committed lines kept by default
const DefaultScrollback = 5000

// Scrollback is the append-only list of committed lines. When a limit is
// set the oldest lines are dropped first.
type Scrollback struct {
	lines []Line
	limit int
}

// Append commits a line
func (s *Scrollback) Append(l Line) {
	s.lines = append(s.lines, l)
	if s.limit > 0 && len(s.lines) > s.limit {
		// reslicing is enough; append reallocates once capacity runs out
		s.lines = s.lines[len(s.lines)-s.limit:]
	}
}

// Lines returns the committed lines, oldest first
func (s *Scrollback) Lines() []Line {
	return s.lines
}

// Len returns the number of committed lines
func (s *Scrollback) Len() int {
	return len(s.lines)
}

// Clear drops every committed line
func (s *Scrollback) Clear() {
	s.lines = nil
}
