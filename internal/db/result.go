package db

import (
	"database/sql"
	"strings"
	"sync"
	"time"
)

// rowSource is the driver-specific cursor behind a Result
type rowSource interface {
	Next() bool
	Values() ([]any, error)
	Err() error
	Close() error
	// CommandTag is valid after Close
	CommandTag() string
}

// Result is a pull-based stream of rows from one statement. Close stops the
// producer; it may be called before the rows are exhausted.
type Result struct {
	columns []string
	src     rowSource
	tag     string
	start   time.Time

	closeOnce sync.Once
	closeErr  error
	rows      int
	elapsed   time.Duration
}

func newResult(columns []string, src rowSource, start time.Time) *Result {
	return &Result{columns: columns, src: src, start: start}
}

// newCommandResult is a finished result that carries only a command tag
func newCommandResult(tag string, start time.Time) *Result {
	r := &Result{tag: tag, start: start, elapsed: time.Since(start)}
	r.closeOnce.Do(func() {})
	return r
}

// Columns returns the result column names; empty for commands
func (r *Result) Columns() []string {
	return r.columns
}

// HasRows reports whether the statement produced a row set
func (r *Result) HasRows() bool {
	return len(r.columns) > 0
}

// Next advances to the next row
func (r *Result) Next() bool {
	if r.src == nil {
		return false
	}
	if r.src.Next() {
		r.rows++
		return true
	}
	return false
}

// Values returns the current row
func (r *Result) Values() ([]any, error) {
	vals, err := r.src.Values()
	if err != nil {
		return nil, WrapQueryError(err)
	}
	return vals, nil
}

// Err returns the error that stopped iteration, if any
func (r *Result) Err() error {
	if r.src == nil {
		return nil
	}
	if err := r.src.Err(); err != nil {
		return WrapQueryError(err)
	}
	return nil
}

// Close releases the cursor. Safe to call more than once.
func (r *Result) Close() error {
	r.closeOnce.Do(func() {
		if r.src == nil {
			return
		}
		r.closeErr = r.src.Close()
		r.tag = r.src.CommandTag()
		r.elapsed = time.Since(r.start)
	})
	if r.closeErr != nil {
		return WrapQueryError(r.closeErr)
	}
	return nil
}

// CommandTag is the completion tag, e.g. "UPDATE 3". Valid after Close.
func (r *Result) CommandTag() string {
	return r.tag
}

// RowsRead is the number of rows pulled so far
func (r *Result) RowsRead() int {
	return r.rows
}

// Elapsed is the execution time up to Close
func (r *Result) Elapsed() time.Duration {
	return r.elapsed
}

// sqlRows adapts database/sql rows
type sqlRows struct {
	rows    *sql.Rows
	numeric []bool
	vals    []any
	ptrs    []any
	verb    string
	read    int64
}

func newSQLRows(rows *sql.Rows, query string) (*sqlRows, []string, error) {
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, nil, err
	}
	s := &sqlRows{
		rows:    rows,
		numeric: make([]bool, len(cols)),
		vals:    make([]any, len(cols)),
		ptrs:    make([]any, len(cols)),
		verb:    firstWord(query),
	}
	for i := range s.vals {
		s.ptrs[i] = &s.vals[i]
	}
	if types, err := rows.ColumnTypes(); err == nil {
		for i, ct := range types {
			s.numeric[i] = isNumericType(ct.DatabaseTypeName())
		}
	}
	return s, cols, nil
}

func (s *sqlRows) Next() bool {
	if s.rows.Next() {
		s.read++
		return true
	}
	return false
}

func (s *sqlRows) Values() ([]any, error) {
	if err := s.rows.Scan(s.ptrs...); err != nil {
		return nil, err
	}
	out := make([]any, len(s.vals))
	for i, v := range s.vals {
		out[i] = normalizeSQLValue(v, s.numeric[i])
	}
	return out, nil
}

func (s *sqlRows) Err() error {
	return s.rows.Err()
}

func (s *sqlRows) Close() error {
	if err := s.rows.Close(); err != nil {
		return err
	}
	return s.rows.Err()
}

func (s *sqlRows) CommandTag() string {
	if s.verb == "" {
		return ""
	}
	return commandTag(s.verb, s.read)
}

func isNumericType(name string) bool {
	name = strings.ToUpper(name)
	for _, n := range []string{"INT", "DECIMAL", "NUMERIC", "FLOAT", "DOUBLE", "REAL"} {
		if strings.Contains(name, n) {
			return true
		}
	}
	return false
}

// normalizeSQLValue turns driver bytes into text, or into exact decimals for
// numeric columns reported as bytes
func normalizeSQLValue(v any, numeric bool) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	if numeric && len(b) > 0 {
		return Decimal(b)
	}
	return string(b)
}
