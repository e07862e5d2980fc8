// internal/session/dispatch.go
package session

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/nhath/psqlsh/internal/assist"
	"github.com/nhath/psqlsh/internal/db"
	"github.com/nhath/psqlsh/internal/history"
	"github.com/nhath/psqlsh/internal/table"
	"github.com/nhath/psqlsh/internal/terminal"
)

// FatalError carries a recovered panic
type FatalError struct {
	Value any
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("internal error: %v", e.Value)
}

// outcome accumulates what one prompt line did, for the history store
type outcome struct {
	rows int
	err  error
	// handled errors were already written and need no classification
	handled bool
}

// Dispatch routes one submitted line. It returns ErrQuit for \q and a
// connection-lost error when the session cannot continue; every other
// failure is written to the terminal.
func (s *Session) Dispatch(ctx context.Context, line string) error {
	start := time.Now()
	var out outcome

	// only an unindented backslash starts a command; "  \dt" goes to the server
	switch {
	case strings.HasPrefix(line, `\`):
		command := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line), ";"))
		switch strings.Fields(command)[0] {
		case `\q`:
			s.record(line, start, out)
			return ErrQuit
		case `\clear`:
			s.term.Clear()
		default:
			out.err = s.describe(ctx, command)
		}
	case s.opts.AssistPrefix != "" && strings.HasPrefix(strings.TrimLeft(line, " "), s.opts.AssistPrefix):
		text := strings.TrimPrefix(strings.TrimLeft(line, " "), s.opts.AssistPrefix)
		out = s.assist(ctx, text)
	default:
		out = s.execute(ctx, line)
	}

	s.record(line, start, out)
	if out.err != nil && !out.handled && s.handleError(line, out.err) {
		return errConnectionLost
	}
	return nil
}

func (s *Session) describe(ctx context.Context, command string) (err error) {
	defer s.recoverLine(&err)
	return s.deps.Describer.Describe(ctx, command, s.driver(), s.term.WritelnString)
}

func (s *Session) assist(ctx context.Context, text string) outcome {
	if s.deps.Assistant == nil {
		s.term.Writeln(terminal.Colored("ERROR: text-to-SQL is not configured", terminal.Red))
		return outcome{}
	}
	reply, err := s.deps.Assistant.Convert(ctx, text)
	if err != nil {
		// the assistant is not the database; its failures never end the session
		s.writeError(err)
		s.deps.Reporter.Report(err, map[string]any{"text": text, "component": "assist"})
		return outcome{err: err, handled: true}
	}

	r := assist.Classify(reply)
	switch r.Kind {
	case assist.KindSQL:
		s.term.Writeln(terminal.Colored(r.Text, terminal.LightGreen))
		return s.execute(ctx, r.Text)
	case assist.KindError:
		s.term.Writeln(terminal.Colored("ERROR: "+r.Text, terminal.Red))
	default:
		s.term.Writeln(terminal.Colored("unable to convert your request to SQL", terminal.Red))
	}
	return outcome{}
}

// execute runs every statement of text in order and stops at the first error
func (s *Session) execute(ctx context.Context, text string) outcome {
	drv := s.driver()
	if drv == nil {
		return outcome{err: db.WrapConnectionError(errors.New("not connected"))}
	}

	if s.opts.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.QueryTimeout)
		defer cancel()
	}

	statements := db.SplitStatements(text)
	if len(statements) == 0 {
		// the server answers an empty query itself
		statements = []string{text}
	}

	var out outcome
	for _, stmt := range statements {
		res, err := drv.Execute(ctx, stmt)
		if err != nil {
			out.err = err
			return out
		}
		n, err := s.render(res)
		out.rows += n
		if err != nil {
			out.err = err
			return out
		}
	}
	return out
}

// render prints one result stream and returns the number of rows read
func (s *Session) render(res *db.Result) (rows int, err error) {
	defer func() {
		if cerr := res.Close(); err == nil {
			err = cerr
		}
		rows = res.RowsRead()
		s.log.WithField("rows", rows).WithField("elapsed", res.Elapsed()).Debug("Statement finished")
	}()

	if !res.HasRows() {
		if err := res.Close(); err != nil {
			return 0, err
		}
		tag := res.CommandTag()
		if tag == "" {
			tag = "Query returned no results"
		}
		s.term.WritelnString(tag)
		return 0, nil
	}

	tbl := table.New(
		table.WithMaxWidth(s.opts.MaxColumnWidth),
		table.WithScreenWidth(s.term.Width()),
	)
	for _, col := range res.Columns() {
		tbl.AddColumn(col)
	}

	// every row renders to at least one line, so RowLimit rows are always
	// enough to fill the output cap
	for tbl.NumRows() < s.opts.RowLimit && res.Next() {
		values, err := res.Values()
		if err != nil {
			return 0, err
		}
		row := tbl.AddRow()
		for _, v := range values {
			row.AddCell(v)
		}
	}
	if err := res.Err(); err != nil {
		return 0, err
	}
	// stop the producer before formatting
	if err := res.Close(); err != nil {
		return 0, err
	}

	return 0, s.printLines(tbl.Print())
}

// printLines writes formatted lines up to the row limit. A panic in the
// formatter is fatal to this line only.
func (s *Session) printLines(seq iter.Seq[string]) (err error) {
	defer s.recoverLine(&err)

	next, stop := iter.Pull(seq)
	defer stop()

	for n := 0; ; n++ {
		line, ok := next()
		if !ok {
			return nil
		}
		if n == s.opts.RowLimit {
			s.term.Writeln(terminal.Colored(fmt.Sprintf("... output truncated to %d lines", s.opts.RowLimit), terminal.Yellow))
			return nil
		}
		s.term.WritelnString(line)
	}
}

func (s *Session) recoverLine(err *error) {
	if r := recover(); r != nil {
		s.log.WithField("panic", r).Error("Recovered while rendering a line")
		*err = &FatalError{Value: r}
	}
}

// handleError writes err to the terminal and reports whether the
// connection is gone
func (s *Session) handleError(line string, err error) (lost bool) {
	if db.IsConnectionLost(err) {
		s.writeError(err)
		s.term.Writeln(terminal.Colored("Connection to the database was lost.", terminal.Yellow))
		s.log.WithError(err).Warn("Connection lost")
		return true
	}

	s.writeError(err)

	if db.SQLState(err) != "" {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	s.deps.Reporter.Report(err, map[string]any{
		"line":  line,
		"phase": string(s.Status().Phase),
	})
	return false
}

func (s *Session) writeError(err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		s.term.Writeln(terminal.Colored("ERROR: canceling statement due to statement timeout", terminal.Red))
		return
	}
	var qe *db.QueryError
	if errors.As(err, &qe) {
		s.term.Writeln(terminal.Colored("ERROR: "+qe.Message, terminal.Red))
		if qe.Detail != "" {
			s.term.WritelnString("DETAIL: " + qe.Detail)
		}
		if qe.Hint != "" {
			s.term.Writeln(terminal.Colored("HINT: "+qe.Hint, terminal.Yellow))
		}
		return
	}
	s.term.Writeln(terminal.Colored("ERROR: "+err.Error(), terminal.Red))
}

func (s *Session) record(line string, start time.Time, out outcome) {
	if s.deps.History == nil || strings.TrimSpace(line) == "" {
		return
	}
	database := ""
	if drv := s.driver(); drv != nil {
		database = drv.Database()
	}
	entry := &history.HistoryEntry{
		Database:   database,
		Query:      line,
		DurationMs: time.Since(start).Milliseconds(),
		RowCount:   out.rows,
		Status:     history.StatusSuccess,
	}
	if out.err != nil {
		entry.Status = history.StatusError
		entry.ErrorMessage = out.err.Error()
	}
	if err := s.deps.History.Add(entry); err != nil {
		s.log.WithError(err).Warn("Failed to save history")
	}
}

// schemaSummary lists tables and columns for the text-to-SQL prompt
func schemaSummary(ctx context.Context, drv db.Driver) string {
	tables, err := drv.GetTables(ctx)
	if err != nil {
		return ""
	}
	var b strings.Builder
	for _, name := range tables {
		cols, err := drv.GetColumns(ctx, name)
		if err != nil {
			continue
		}
		parts := make([]string, len(cols))
		for i, c := range cols {
			parts[i] = c.Name + " " + c.Type
		}
		fmt.Fprintf(&b, "%s(%s)\n", name, strings.Join(parts, ", "))
	}
	return b.String()
}
