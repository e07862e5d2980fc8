// internal/db/postgres.go
package db

import (
	"context"
	"database/sql/driver"
	"fmt"
	"math/big"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgconn/ctxwatch"
	"github.com/jackc/pgx/v5/pgtype"
)

// PostgresDriver implements Driver for PostgreSQL on a single pgx connection
type PostgresDriver struct {
	conn     *pgx.Conn
	tunnel   *SSHTunnel
	database string
}

// ConnString builds a postgres URL from params
func (p ConnectParams) ConnString() string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.User, p.Password),
		Host:   net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:   "/" + p.Database,
	}
	if len(p.Options) > 0 {
		q := url.Values{}
		for k, v := range p.Options {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// Connect establishes connection to PostgreSQL
func (d *PostgresDriver) Connect(ctx context.Context, params ConnectParams) error {
	connConfig, err := pgx.ParseConfig(params.ConnString())
	if err != nil {
		return WrapConnectionError(err)
	}
	// simple protocol: statements such as BEGIN, SET or multi-word utility
	// commands run exactly as typed, without a prepare round trip
	connConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	if connConfig.RuntimeParams == nil {
		connConfig.RuntimeParams = map[string]string{}
	}
	connConfig.RuntimeParams["application_name"] = "psqlsh"
	// a cancelled statement sends a cancel request instead of dropping the
	// connection, so a query timeout keeps the session alive
	connConfig.BuildContextWatcherHandler = func(pgConn *pgconn.PgConn) ctxwatch.Handler {
		return &pgconn.CancelRequestContextWatcherHandler{
			Conn:               pgConn,
			CancelRequestDelay: 100 * time.Millisecond,
			DeadlineDelay:      5 * time.Second,
		}
	}

	if params.SSHConfig != nil && params.SSHConfig.Host != "" {
		tunnel, err := NewSSHTunnel(ctx, params.SSHConfig)
		if err != nil {
			return WrapConnectionError(fmt.Errorf("failed to create SSH tunnel: %w", err))
		}
		d.tunnel = tunnel

		// the SSH server resolves the database host, not the local machine
		connConfig.LookupFunc = func(ctx context.Context, host string) ([]string, error) {
			return []string{host}, nil
		}
		remoteAddr := net.JoinHostPort(params.Host, strconv.Itoa(params.Port))
		connConfig.DialFunc = func(ctx context.Context, network, _ string) (net.Conn, error) {
			return tunnel.DialContext(ctx, network, remoteAddr)
		}
	}

	connectCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	conn, err := pgx.ConnectConfig(connectCtx, connConfig)
	if err != nil {
		d.closeTunnel()
		return WrapConnectionError(err)
	}

	d.conn = conn
	d.database = connConfig.Database
	return nil
}

func (d *PostgresDriver) closeTunnel() {
	if d.tunnel != nil {
		d.tunnel.Close()
		d.tunnel = nil
	}
}

// Close closes the database connection and SSH tunnel
func (d *PostgresDriver) Close() error {
	var err error
	if d.conn != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = d.conn.Close(ctx)
	}
	d.closeTunnel()
	return err
}

// Execute runs one statement. Statements without a row description finish
// immediately and carry only their command tag.
func (d *PostgresDriver) Execute(ctx context.Context, query string) (*Result, error) {
	if d.conn == nil || d.conn.IsClosed() {
		return nil, WrapConnectionError(fmt.Errorf("not connected"))
	}
	start := time.Now()
	rows, err := d.conn.Query(ctx, query)
	if err != nil {
		return nil, d.wrapErr(err)
	}

	fields := rows.FieldDescriptions()
	if len(fields) == 0 {
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, d.wrapErr(err)
		}
		return newCommandResult(rows.CommandTag().String(), start), nil
	}

	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}
	return newResult(columns, &pgRows{rows: rows}, start), nil
}

func (d *PostgresDriver) wrapErr(err error) error {
	if d.conn.IsClosed() {
		return WrapConnectionError(err)
	}
	return WrapQueryError(err)
}

// Ping checks if database is reachable
func (d *PostgresDriver) Ping(ctx context.Context) error {
	if d.conn == nil {
		return WrapConnectionError(fmt.Errorf("not connected"))
	}
	return d.conn.Ping(ctx)
}

// Type returns the driver type
func (d *PostgresDriver) Type() DriverType {
	return Postgres
}

// Database returns the connected database name
func (d *PostgresDriver) Database() string {
	return d.database
}

// TxStatus reports the server-side transaction state
func (d *PostgresDriver) TxStatus() TxStatus {
	if d.conn == nil {
		return TxIdle
	}
	switch d.conn.PgConn().TxStatus() {
	case 'T':
		return TxActive
	case 'E':
		return TxFailed
	default:
		return TxIdle
	}
}

// ServerInfo queries the settings describe commands depend on
func (d *PostgresDriver) ServerInfo(ctx context.Context) (ServerInfo, error) {
	var info ServerInfo
	var scs string
	err := d.conn.QueryRow(ctx,
		`SELECT current_database(), current_setting('server_version_num')::int, current_setting('standard_conforming_strings')`,
	).Scan(&info.Database, &info.VersionNum, &scs)
	if err != nil {
		return info, d.wrapErr(err)
	}
	info.Version = d.conn.PgConn().ParameterStatus("server_version")
	info.StandardConformingStrings = scs == "on"
	return info, nil
}

func (d *PostgresDriver) queryStrings(ctx context.Context, query string, args ...any) ([][]string, error) {
	rows, err := d.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, d.wrapErr(err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, d.wrapErr(err)
		}
		row := make([]string, len(vals))
		for i, v := range vals {
			if v != nil {
				row[i] = fmt.Sprint(v)
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, d.wrapErr(err)
	}
	return out, nil
}

// GetTables returns a list of tables in all non-system schemas
func (d *PostgresDriver) GetTables(ctx context.Context) ([]string, error) {
	rows, err := d.queryStrings(ctx, `
		SELECT n.nspname || '.' || c.relname
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname NOT IN ('information_schema', 'pg_catalog', 'pg_toast')
		AND c.relkind IN ('r', 'v', 'm', 'f', 'p')
		ORDER BY 1`)
	if err != nil {
		return nil, err
	}
	tables := make([]string, len(rows))
	for i, r := range rows {
		tables[i] = r[0]
	}
	return tables, nil
}

// relationFilter matches "name" against the search path and "schema.name" exactly
const relationFilter = `(
	n.nspname || '.' || cl.relname = $1
	OR (cl.relname = $1 AND pg_table_is_visible(cl.oid))
)`

// GetColumns returns detailed column metadata for a table
func (d *PostgresDriver) GetColumns(ctx context.Context, tableName string) ([]Column, error) {
	rows, err := d.queryStrings(ctx, `
		SELECT
			a.attname,
			format_type(a.atttypid, a.atttypmod),
			CASE WHEN a.attnotnull THEN 'NO' ELSE 'YES' END,
			COALESCE(pg_get_expr(d.adbin, d.adrelid), ''),
			COALESCE(
				(SELECT 'PRI' FROM pg_index i WHERE i.indrelid = a.attrelid AND a.attnum = ANY(i.indkey::int2[]) AND i.indisprimary LIMIT 1),
				(SELECT 'UNI' FROM pg_index i WHERE i.indrelid = a.attrelid AND a.attnum = ANY(i.indkey::int2[]) AND i.indisunique AND NOT i.indisprimary LIMIT 1),
				(SELECT 'FK' FROM pg_constraint c WHERE c.conrelid = a.attrelid AND a.attnum = ANY(c.conkey::int2[]) AND c.contype = 'f' LIMIT 1),
				''
			)
		FROM pg_attribute a
		LEFT JOIN pg_attrdef d ON a.attrelid = d.adrelid AND a.attnum = d.adnum
		JOIN pg_class cl ON a.attrelid = cl.oid
		JOIN pg_namespace n ON cl.relnamespace = n.oid
		WHERE `+relationFilter+` AND a.attnum > 0 AND NOT a.attisdropped
		ORDER BY a.attnum`, tableName)
	if err != nil {
		return nil, err
	}
	columns := make([]Column, len(rows))
	for i, r := range rows {
		columns[i] = Column{Name: r[0], Type: r[1], Nullable: r[2] == "YES", Default: r[3], Key: r[4]}
	}
	return columns, nil
}

// GetConstraints returns detailed constraint metadata for a table
func (d *PostgresDriver) GetConstraints(ctx context.Context, tableName string) ([]Constraint, error) {
	rows, err := d.queryStrings(ctx, `
		SELECT
			conname,
			CASE contype
				WHEN 'p' THEN 'PRIMARY KEY'
				WHEN 'f' THEN 'FOREIGN KEY'
				WHEN 'u' THEN 'UNIQUE'
				WHEN 'c' THEN 'CHECK'
				WHEN 'x' THEN 'EXCLUDE'
				ELSE contype::text
			END,
			pg_get_constraintdef(c.oid)
		FROM pg_constraint c
		JOIN pg_class cl ON cl.oid = c.conrelid
		JOIN pg_namespace n ON n.oid = cl.relnamespace
		WHERE `+relationFilter+`
		ORDER BY conname`, tableName)
	if err != nil {
		return nil, err
	}
	constraints := make([]Constraint, len(rows))
	for i, r := range rows {
		constraints[i] = Constraint{Name: r[0], Type: r[1], Definition: r[2]}
	}
	return constraints, nil
}

// Relations lists user catalog objects of the given kinds
func (d *PostgresDriver) Relations(ctx context.Context, kinds ...RelationKind) ([]Relation, error) {
	relkinds := map[RelationKind][]string{
		KindTable:    {"r", "p", "f"},
		KindView:     {"v", "m"},
		KindIndex:    {"i", "I"},
		KindSequence: {"S"},
	}
	var wanted []string
	for _, k := range kinds {
		wanted = append(wanted, relkinds[k]...)
	}
	rows, err := d.queryStrings(ctx, `
		SELECT n.nspname, c.relname,
			CASE
				WHEN c.relkind IN ('r','p','f') THEN 'table'
				WHEN c.relkind IN ('v','m') THEN 'view'
				WHEN c.relkind IN ('i','I') THEN 'index'
				WHEN c.relkind = 'S' THEN 'sequence'
			END,
			pg_get_userbyid(c.relowner),
			COALESCE(t.relname, '')
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		LEFT JOIN pg_index i ON i.indexrelid = c.oid
		LEFT JOIN pg_class t ON t.oid = i.indrelid
		WHERE n.nspname NOT IN ('pg_catalog', 'information_schema')
			AND n.nspname !~ '^pg_toast'
			AND c.relkind::text = ANY($1::text[])
			AND pg_table_is_visible(c.oid)
		ORDER BY 1, 2`, wanted)
	if err != nil {
		return nil, err
	}
	rels := make([]Relation, len(rows))
	for i, r := range rows {
		rels[i] = Relation{Schema: r[0], Name: r[1], Kind: RelationKind(r[2]), Owner: r[3], Table: r[4]}
	}
	return rels, nil
}

// pgRows adapts pgx rows
type pgRows struct {
	rows pgx.Rows
}

func (r *pgRows) Next() bool {
	return r.rows.Next()
}

func (r *pgRows) Values() ([]any, error) {
	vals, err := r.rows.Values()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		vals[i] = normalizePgValue(v)
	}
	return vals, nil
}

func (r *pgRows) Err() error {
	return r.rows.Err()
}

func (r *pgRows) Close() error {
	r.rows.Close()
	return r.rows.Err()
}

func (r *pgRows) CommandTag() string {
	return r.rows.CommandTag().String()
}

// normalizePgValue maps pgtype values onto plain Go values the formatter
// classifies: numerics become exact decimals, intervals and other text-like
// types become their text form
func normalizePgValue(v any) any {
	switch x := v.(type) {
	case pgtype.Numeric:
		if !x.Valid {
			return nil
		}
		if x.NaN {
			return "NaN"
		}
		if x.InfinityModifier != pgtype.Finite {
			return x.InfinityModifier.String()
		}
		return Decimal(numericText(x.Int, x.Exp))
	case pgtype.Interval, pgtype.Time:
		if val, err := x.(driver.Valuer).Value(); err == nil {
			return val
		}
	case [16]byte:
		// uuid
		return fmt.Sprintf("%x-%x-%x-%x-%x", x[0:4], x[4:6], x[6:8], x[8:10], x[10:16])
	case net.IPNet:
		return x.String()
	}
	return v
}

func numericText(i *big.Int, exp int32) string {
	if i == nil {
		return "0"
	}
	s := i.String()
	if exp >= 0 {
		for range exp {
			s += "0"
		}
		return s
	}
	neg := s[0] == '-'
	if neg {
		s = s[1:]
	}
	scale := int(-exp)
	for len(s) <= scale {
		s = "0" + s
	}
	s = s[:len(s)-scale] + "." + s[len(s)-scale:]
	if neg {
		s = "-" + s
	}
	return s
}
