// internal/db/sqlconn.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// sqlSession pins one database/sql connection so that transactions and
// session settings survive between statements. database/sql does not expose
// the server transaction state, so it is tracked from the statements run.
type sqlSession struct {
	db       *sql.DB
	conn     *sql.Conn
	database string
	tx       TxStatus
}

func (s *sqlSession) open(ctx context.Context, driverName, dsn string) error {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return WrapConnectionError(err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	connectCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	conn, err := db.Conn(connectCtx)
	if err != nil {
		db.Close()
		return WrapConnectionError(err)
	}
	if err := conn.PingContext(connectCtx); err != nil {
		conn.Close()
		db.Close()
		return WrapConnectionError(err)
	}
	s.db = db
	s.conn = conn
	s.tx = TxIdle
	return nil
}

func (s *sqlSession) close() error {
	var errs []error
	if s.conn != nil {
		errs = append(errs, s.conn.Close())
		s.conn = nil
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
		s.db = nil
	}
	return errors.Join(errs...)
}

func (s *sqlSession) ping(ctx context.Context) error {
	if s.conn == nil {
		return WrapConnectionError(fmt.Errorf("not connected"))
	}
	return s.conn.PingContext(ctx)
}

func (s *sqlSession) wrapErr(err error) error {
	if IsConnectionLost(err) {
		return WrapConnectionError(err)
	}
	return WrapQueryError(err)
}

// execute runs one statement on the pinned connection, choosing between a
// row query and an exec from the statement's leading keyword
func (s *sqlSession) execute(ctx context.Context, query string) (*Result, error) {
	if s.conn == nil {
		return nil, WrapConnectionError(fmt.Errorf("not connected"))
	}
	start := time.Now()

	if isQuery(query) {
		rows, err := s.conn.QueryContext(ctx, query)
		if err != nil {
			s.trackFailure()
			return nil, s.wrapErr(err)
		}
		src, cols, err := newSQLRows(rows, query)
		if err != nil {
			return nil, s.wrapErr(err)
		}
		if len(cols) == 0 {
			src.Close()
			return newCommandResult(src.CommandTag(), start), nil
		}
		return newResult(cols, src, start), nil
	}

	res, err := s.conn.ExecContext(ctx, query)
	if err != nil {
		s.trackFailure()
		return nil, s.wrapErr(err)
	}
	s.trackSuccess(query)
	affected, _ := res.RowsAffected()
	return newCommandResult(commandTag(query, affected), start), nil
}

func (s *sqlSession) trackSuccess(query string) {
	switch firstWord(query) {
	case "BEGIN", "START":
		s.tx = TxActive
	case "COMMIT", "END", "ROLLBACK":
		s.tx = TxIdle
	}
}

// trackFailure marks an open transaction as failed, mirroring postgres; the
// next ROLLBACK clears it
func (s *sqlSession) trackFailure() {
	if s.tx == TxActive {
		s.tx = TxFailed
	}
}

func (s *sqlSession) queryStrings(ctx context.Context, query string, args ...any) ([][]string, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.wrapErr(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, s.wrapErr(err)
	}
	var out [][]string
	for rows.Next() {
		raw := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, s.wrapErr(err)
		}
		row := make([]string, len(cols))
		for i, v := range raw {
			row[i] = v.String
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrapErr(err)
	}
	return out, nil
}
