// internal/db/errors.go
package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// ConnectionError wraps database connection failures
type ConnectionError struct {
	Underlying error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection failed: %v", e.Underlying)
}

func (e *ConnectionError) Unwrap() error {
	return e.Underlying
}

// QueryError is a statement failure with the server's diagnostic fields.
// Code is the SQLSTATE (or driver error number) and is empty for errors
// that did not come from the server.
type QueryError struct {
	Message    string
	Code       string
	Detail     string
	Hint       string
	Position   int
	Underlying error
}

func (e *QueryError) Error() string {
	return e.Message
}

func (e *QueryError) Unwrap() error {
	return e.Underlying
}

// WrapConnectionError creates a ConnectionError from underlying error
func WrapConnectionError(err error) error {
	if err == nil {
		return nil
	}
	var ce *ConnectionError
	if errors.As(err, &ce) {
		return err
	}
	return &ConnectionError{Underlying: err}
}

// WrapQueryError extracts the server diagnostics of err into a QueryError
func WrapQueryError(err error) error {
	if err == nil {
		return nil
	}
	var qe *QueryError
	if errors.As(err, &qe) {
		return err
	}
	qe = &QueryError{Message: err.Error(), Underlying: err}

	var pgErr *pgconn.PgError
	var myErr *mysql.MySQLError
	var liteErr sqlite3.Error
	switch {
	case errors.As(err, &pgErr):
		qe.Message = pgErr.Message
		qe.Code = pgErr.Code
		qe.Detail = pgErr.Detail
		qe.Hint = pgErr.Hint
		qe.Position = int(pgErr.Position)
	case errors.As(err, &myErr):
		qe.Message = myErr.Message
		qe.Code = strconv.Itoa(int(myErr.Number))
	case errors.As(err, &liteErr):
		qe.Message = liteErr.Error()
		qe.Code = strconv.Itoa(int(liteErr.ExtendedCode))
	}
	return qe
}

// SQLState returns the server error code carried by err, if any
func SQLState(err error) string {
	var qe *QueryError
	if errors.As(err, &qe) && qe.Code != "" {
		return qe.Code
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsConnectionLost reports whether err means the session is gone and the
// user must reconnect
func IsConnectionLost(err error) bool {
	if err == nil {
		return false
	}
	var ce *ConnectionError
	if errors.As(err, &ce) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 08xxx connection exception, 57P01..57P03 admin/crash shutdown
		return strings.HasPrefix(pgErr.Code, "08") ||
			pgErr.Code == "57P01" || pgErr.Code == "57P02" || pgErr.Code == "57P03"
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return strings.Contains(err.Error(), "conn closed")
}
