// internal/db/driver.go
package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DriverType represents supported database types
type DriverType string

const (
	Postgres DriverType = "postgres"
	MySQL    DriverType = "mysql"
	SQLite   DriverType = "sqlite"
)

// Column represents table column metadata
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Default  string
	Key      string // PRI, UNI, MUL
}

// Constraint represents table constraint metadata
type Constraint struct {
	Name       string
	Type       string // PRIMARY KEY, FOREIGN KEY, UNIQUE, etc.
	Definition string
}

// RelationKind selects catalog objects for listing
type RelationKind string

const (
	KindTable    RelationKind = "table"
	KindView     RelationKind = "view"
	KindIndex    RelationKind = "index"
	KindSequence RelationKind = "sequence"
)

// Relation is a catalog object as listed by \d-style commands
type Relation struct {
	Schema string
	Name   string
	Kind   RelationKind
	Owner  string
	Table  string // owning table, for indexes
}

// ConnectParams holds database connection details
type ConnectParams struct {
	Host      string
	Port      int
	User      string
	Password  string
	Database  string
	Options   map[string]string // extra connection string query parameters
	SSHConfig *SSHConfig        // Optional SSH tunnel config
}

// TxStatus is the transaction state of the session
type TxStatus byte

const (
	TxIdle   TxStatus = 'I'
	TxActive TxStatus = 'T'
	TxFailed TxStatus = 'E'
)

// ServerInfo describes the connected server
type ServerInfo struct {
	Database                  string
	Version                   string
	VersionNum                int
	StandardConformingStrings bool
}

// Driver is one dedicated database session. Statements run one at a time
// on the same connection so session state (transactions, SET, temp tables)
// carries over between prompt lines.
type Driver interface {
	Connect(ctx context.Context, params ConnectParams) error
	Close() error
	// Execute runs a single statement and returns its result stream. The
	// caller must Close the result before the next Execute.
	Execute(ctx context.Context, query string) (*Result, error)
	Ping(ctx context.Context) error
	Type() DriverType
	Database() string
	TxStatus() TxStatus
	ServerInfo(ctx context.Context) (ServerInfo, error)
	GetTables(ctx context.Context) ([]string, error)
	GetColumns(ctx context.Context, tableName string) ([]Column, error)
	GetConstraints(ctx context.Context, tableName string) ([]Constraint, error)
	Relations(ctx context.Context, kinds ...RelationKind) ([]Relation, error)
}

// NewDriver creates a new driver instance by type
func NewDriver(driverType DriverType) (Driver, error) {
	switch driverType {
	case Postgres:
		return &PostgresDriver{}, nil
	case MySQL:
		return &MySQLDriver{}, nil
	case SQLite:
		return &SQLiteDriver{}, nil
	default:
		return nil, fmt.Errorf("unknown driver type: %s", driverType)
	}
}

// Decimal is an exact numeric value kept in its textual form
type Decimal string

// NumericText marks Decimal as a number for result formatting
func (d Decimal) NumericText() string {
	return string(d)
}

// MarshalJSON emits the decimal as a bare JSON number
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(d), nil
}

// isQuery reports whether a statement produces rows, for drivers that must
// choose between query and exec up front
func isQuery(query string) bool {
	verb := firstWord(query)
	switch verb {
	case "SELECT", "WITH", "EXPLAIN", "DESCRIBE", "DESC", "SHOW", "PRAGMA", "VALUES", "TABLE":
		return true
	}
	return strings.Contains(strings.ToUpper(query), " RETURNING ")
}

// firstWord returns the uppercased leading keyword of a statement
func firstWord(query string) string {
	q := strings.TrimLeft(stripLeadingComments(query), " \t\r\n(")
	end := strings.IndexFunc(q, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '_')
	})
	if end >= 0 {
		q = q[:end]
	}
	return strings.ToUpper(q)
}

func stripLeadingComments(q string) string {
	for {
		q = strings.TrimLeft(q, " \t\r\n")
		switch {
		case strings.HasPrefix(q, "--"):
			i := strings.IndexByte(q, '\n')
			if i < 0 {
				return ""
			}
			q = q[i+1:]
		case strings.HasPrefix(q, "/*"):
			i := strings.Index(q, "*/")
			if i < 0 {
				return ""
			}
			q = q[i+2:]
		default:
			return q
		}
	}
}

// commandTag renders a psql-style completion tag for drivers that do not
// report one
func commandTag(query string, affected int64) string {
	verb := firstWord(query)
	switch verb {
	case "INSERT":
		return fmt.Sprintf("INSERT 0 %d", affected)
	case "SELECT", "UPDATE", "DELETE", "REPLACE", "MERGE":
		return fmt.Sprintf("%s %d", verb, affected)
	case "CREATE", "DROP", "ALTER":
		rest := strings.Fields(strings.ToUpper(stripLeadingComments(query)))
		if len(rest) > 1 {
			return verb + " " + rest[1]
		}
	case "":
		return ""
	}
	return verb
}

const pingTimeout = 15 * time.Second

// Open creates a driver of the given type and connects it
func Open(ctx context.Context, driverType DriverType, params ConnectParams) (Driver, error) {
	drv, err := NewDriver(driverType)
	if err != nil {
		return nil, err
	}
	if err := drv.Connect(ctx, params); err != nil {
		return nil, err
	}
	return drv, nil
}
