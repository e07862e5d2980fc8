package ui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhath/psqlsh/internal/input"
	"github.com/nhath/psqlsh/internal/session"
	"github.com/nhath/psqlsh/internal/terminal"
)

// Run starts the session in the background and the full-screen program in
// the foreground. It returns when either side stops.
func Run(ctx context.Context, term *terminal.Terminal, in *input.Manager, sess *session.Session, banner string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewModel(term, in, sess, banner)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))

	done := make(chan error, 1)
	go func() {
		err := sess.Run(ctx)
		done <- err
		p.Send(SessionDoneMsg{Err: err})
	}()

	_, runErr := p.Run()

	// unblock the session if the program stopped first
	cancel()
	term.Close()
	sessErr := <-done

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return runErr
	}
	return sessErr
}
