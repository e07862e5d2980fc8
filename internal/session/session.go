// internal/session/session.go
// Orchestrates one interactive psqlsh session: start gate, provisioning,
// connection and the prompt loop
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nhath/psqlsh/internal/db"
	"github.com/nhath/psqlsh/internal/history"
	"github.com/nhath/psqlsh/internal/logger"
	"github.com/nhath/psqlsh/internal/provision"
	"github.com/nhath/psqlsh/internal/terminal"
)

// Phase is the lifecycle state of the session
type Phase string

const (
	PhaseIdle         Phase = "IDLE"
	PhaseConnecting   Phase = "CONNECTING"
	PhasePrompting    Phase = "PROMPTING"
	PhaseDisconnected Phase = "DISCONNECTED"
	PhaseFatal        Phase = "FATAL"
)

// Provisioner issues a connection string for a fresh database
type Provisioner interface {
	Issue(ctx context.Context, sourceBranch string) (string, error)
}

// Connector opens a driver for a connection string
type Connector interface {
	Open(ctx context.Context, connString string) (db.Driver, error)
}

// Describer answers backslash commands
type Describer interface {
	Describe(ctx context.Context, command string, drv db.Driver, emit func(string)) error
}

// Assistant converts natural language into a protocol line
type Assistant interface {
	Convert(ctx context.Context, text string) (string, error)
}

// Reporter receives errors nothing else knows how to classify
type Reporter interface {
	Report(err error, fields map[string]any)
}

// HistoryRecorder persists submitted prompt lines
type HistoryRecorder interface {
	Add(entry *history.HistoryEntry) error
}

// historyLoader is implemented by recorders that can seed the prompt history
type historyLoader interface {
	Lines(database string, limit int) ([]string, error)
}

// schemaAware assistants get a callback describing the connected database
type schemaAware interface {
	SetSchema(fn func(ctx context.Context) string)
}

// databaseAware assistants are told which database the session uses
type databaseAware interface {
	SetDatabase(name string)
}

// Deps are the collaborators of a session. Provisioner, Connector and
// Describer are required; the rest fall back to no-op behaviour.
type Deps struct {
	Provisioner Provisioner
	Connector   Connector
	Describer   Describer
	Assistant   Assistant
	Reporter    Reporter
	History     HistoryRecorder
}

// Options tune the session
type Options struct {
	Banner         string
	PromptLabel    string // replaces the database name in the prompt
	AssistPrefix   string
	RowLimit       int
	MaxColumnWidth int
	QueryTimeout   time.Duration
	HistoryLines   int
	KeywordsSource string
	Templates      []provision.Template
}

// DefaultOptions mirrors the config defaults
func DefaultOptions() Options {
	return Options{
		Banner:         "Welcome to psqlsh! To start, press Enter",
		AssistPrefix:   "/ai ",
		RowLimit:       1000,
		MaxColumnWidth: 30,
		HistoryLines:   500,
	}
}

// Status is a snapshot for the presentation layer
type Status struct {
	Phase    Phase
	Database string
	Tx       db.TxStatus
	Busy     bool
}

var (
	// ErrQuit ends the session at the user's request
	ErrQuit = errors.New("session: quit")
	// errConnectionLost ends the prompt loop and returns to the start gate
	errConnectionLost = errors.New("session: connection lost")
)

// Session drives the terminal
type Session struct {
	term *terminal.Terminal
	deps Deps
	opts Options
	log  *logrus.Entry

	mu    sync.Mutex
	phase Phase
	drv   db.Driver
	busy  bool
	// database and tx are copied from drv by the session goroutine; the
	// driver itself is not safe to read from the UI
	database string
	tx       db.TxStatus
}

// New creates a session writing to term
func New(term *terminal.Terminal, deps Deps, opts Options) *Session {
	if deps.Reporter == nil {
		deps.Reporter = NewLogReporter(nil)
	}
	def := DefaultOptions()
	if opts.RowLimit <= 0 {
		opts.RowLimit = def.RowLimit
	}
	if opts.MaxColumnWidth <= 0 {
		opts.MaxColumnWidth = def.MaxColumnWidth
	}
	if opts.HistoryLines <= 0 {
		opts.HistoryLines = def.HistoryLines
	}
	if opts.Banner == "" {
		opts.Banner = def.Banner
	}
	return &Session{
		term:  term,
		deps:  deps,
		opts:  opts,
		log:   logger.Named("session"),
		phase: PhaseIdle,
	}
}

// Status returns the current phase and connection state
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{Phase: s.phase, Busy: s.busy, Database: s.database, Tx: s.tx}
}

// syncConn copies the connection state shown by Status. It must run on the
// session goroutine, which owns the driver.
func (s *Session) syncConn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drv == nil {
		s.database, s.tx = "", db.TxIdle
		return
	}
	s.database = s.drv.Database()
	s.tx = s.drv.TxStatus()
}

func (s *Session) setPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
	s.log.WithField("phase", p).Debug("Session phase changed")
}

func (s *Session) setBusy(b bool) {
	s.mu.Lock()
	s.busy = b
	s.mu.Unlock()
}

func (s *Session) driver() db.Driver {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drv
}

// Run shows the start gate and runs sessions until ctx is cancelled or the
// user quits
func (s *Session) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.setPhase(PhaseFatal)
			s.log.WithField("panic", r).Error("Session crashed")
			err = &FatalError{Value: r}
		}
	}()

	go s.loadKeywords(ctx)

	gate := s.opts.Banner
	for {
		s.setPhase(PhaseIdle)
		s.term.WritelnString(gate)
		s.term.ShowCursor()
		if _, err := s.term.WaitLine(ctx); err != nil {
			return ignoreClosed(err)
		}
		s.term.HideCursor()
		s.term.AddLine()

		branch, err := s.pickTemplate(ctx)
		if err != nil {
			return ignoreClosed(err)
		}

		if err := s.Connect(ctx, branch); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			gate = "To try again, press Enter"
			continue
		}

		err = s.Loop(ctx)
		s.disconnect()
		switch {
		case errors.Is(err, ErrQuit):
			s.term.WritelnString("Bye!")
			return nil
		case errors.Is(err, errConnectionLost):
			gate = "To start over, press Enter"
		default:
			return ignoreClosed(err)
		}
	}
}

func ignoreClosed(err error) error {
	if errors.Is(err, terminal.ErrClosed) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// pickTemplate offers the template datasets; an empty branch means a blank
// database
func (s *Session) pickTemplate(ctx context.Context) (string, error) {
	if len(s.opts.Templates) == 0 {
		return "", nil
	}
	const blank = "Blank database"
	options := make([]terminal.SelectOption, 0, len(s.opts.Templates)+1)
	options = append(options, terminal.SelectOption{Value: blank, Description: "start from an empty database"})
	branches := map[string]string{blank: ""}
	for _, t := range s.opts.Templates {
		options = append(options, terminal.SelectOption{Value: t.Name, Description: t.Description})
		branches[t.Name] = t.Branch
	}

	s.term.WritelnString("Pick a dataset to start with:")
	picked, err := s.term.Select(ctx, options)
	if err != nil {
		return "", err
	}
	s.term.Writeln(terminal.Colored(picked.Value, terminal.LightGreen))
	return branches[picked.Value], nil
}

// Connect provisions a database and opens a driver for it. Failures are
// written to the terminal and returned.
func (s *Session) Connect(ctx context.Context, sourceBranch string) error {
	s.setPhase(PhaseConnecting)
	s.term.WritelnString("Starting the database connection...")

	connString, err := s.deps.Provisioner.Issue(ctx, sourceBranch)
	if err != nil {
		s.connectFailed(ctx, err, sourceBranch, "provision")
		return err
	}

	drv, err := s.deps.Connector.Open(ctx, connString)
	if err != nil {
		s.connectFailed(ctx, err, sourceBranch, "connect")
		return err
	}

	s.mu.Lock()
	s.drv = drv
	s.mu.Unlock()
	s.syncConn()
	s.term.Writeln(terminal.Colored("Connected to the database!", terminal.Green))

	s.attachAssistant(drv)
	s.loadHistory(drv.Database())
	s.setPhase(PhasePrompting)
	return nil
}

// connectFailed writes err and returns to Idle. Failures without a server
// error code are also reported.
func (s *Session) connectFailed(ctx context.Context, err error, branch, step string) {
	s.writeError(err)
	s.log.WithError(err).WithField("branch", branch).WithField("step", step).Warn("Connect failed")
	if ctx.Err() == nil && db.SQLState(err) == "" {
		s.deps.Reporter.Report(err, map[string]any{
			"branch":    branch,
			"step":      step,
			"component": "connect",
		})
	}
	s.setPhase(PhaseIdle)
}

func (s *Session) attachAssistant(drv db.Driver) {
	if a, ok := s.deps.Assistant.(databaseAware); ok {
		a.SetDatabase(drv.Database())
	}
	if a, ok := s.deps.Assistant.(schemaAware); ok {
		a.SetSchema(func(ctx context.Context) string { return schemaSummary(ctx, drv) })
	}
}

func (s *Session) loadHistory(database string) {
	loader, ok := s.deps.History.(historyLoader)
	if !ok {
		return
	}
	lines, err := loader.Lines(database, s.opts.HistoryLines)
	if err != nil {
		s.log.WithError(err).Warn("Failed to load history")
		return
	}
	s.term.LoadHistory(lines)
}

func (s *Session) loadKeywords(ctx context.Context) {
	kw, err := terminal.LoadKeywords(ctx, s.opts.KeywordsSource)
	if err != nil {
		s.log.WithError(err).WithField("source", s.opts.KeywordsSource).Warn("Failed to load keywords")
		return
	}
	s.term.SetKeywords(kw)
}

func (s *Session) disconnect() {
	s.mu.Lock()
	drv := s.drv
	s.drv = nil
	s.mu.Unlock()
	s.syncConn()
	if drv != nil {
		if err := drv.Close(); err != nil {
			s.log.WithError(err).Debug("Close after disconnect")
		}
	}
	s.setPhase(PhaseDisconnected)
}

// Loop reads and dispatches prompt lines until the user quits, the
// connection is lost or ctx is cancelled
func (s *Session) Loop(ctx context.Context) error {
	s.term.ShowCursor()
	for {
		s.term.StartPromptMode(s.promptLabel())
		line, err := s.term.WaitLine(ctx)
		if err != nil {
			return err
		}
		s.term.StopPromptMode()
		s.term.AddLine()
		s.term.HideCursor()

		s.setBusy(true)
		err = s.Dispatch(ctx, line)
		s.syncConn()
		s.setBusy(false)

		s.term.ShowCursor()
		if err != nil {
			return err
		}
	}
}

func (s *Session) promptLabel() string {
	drv := s.driver()
	name := s.opts.PromptLabel
	if name == "" && drv != nil {
		name = drv.Database()
	}
	marker := "=> "
	if drv != nil {
		switch drv.TxStatus() {
		case db.TxActive:
			marker = "=*> "
		case db.TxFailed:
			marker = "=!> "
		}
	}
	return name + marker
}
