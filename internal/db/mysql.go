// internal/db/mysql.go
package db

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
)

// MySQLDriver implements Driver for MySQL
type MySQLDriver struct {
	sqlSession
	tunnel  *SSHTunnel
	netName string // Registered network name for SSH
}

// Connect establishes connection to MySQL
func (d *MySQLDriver) Connect(ctx context.Context, params ConnectParams) error {
	cfg := mysql.NewConfig()
	cfg.User = params.User
	cfg.Passwd = params.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(params.Host, strconv.Itoa(params.Port))
	cfg.DBName = params.Database
	cfg.ParseTime = true
	cfg.Params = params.Options

	// Setup SSH tunnel if configured
	if params.SSHConfig != nil && params.SSHConfig.Host != "" {
		tunnel, err := NewSSHTunnel(ctx, params.SSHConfig)
		if err != nil {
			return WrapConnectionError(fmt.Errorf("failed to create SSH tunnel: %w", err))
		}
		d.tunnel = tunnel

		// Register a unique network for this connection
		d.netName = fmt.Sprintf("mysql+ssh+%d", time.Now().UnixNano())
		mysql.RegisterDialContext(d.netName, func(ctx context.Context, addr string) (net.Conn, error) {
			return tunnel.DialContext(ctx, "tcp", addr)
		})
		cfg.Net = d.netName
	}

	if err := d.open(ctx, "mysql", cfg.FormatDSN()); err != nil {
		d.Close()
		return err
	}
	d.database = params.Database
	return nil
}

// Close closes the database connection and SSH tunnel
func (d *MySQLDriver) Close() error {
	dbErr := d.close()
	if d.tunnel != nil {
		err := d.tunnel.Close()
		d.tunnel = nil
		if err != nil {
			if dbErr != nil {
				return fmt.Errorf("db close err: %v, tunnel close err: %w", dbErr, err)
			}
			return err
		}
	}
	// the registered dial function cannot be removed from the driver
	return dbErr
}

// Execute runs a single statement on the session connection
func (d *MySQLDriver) Execute(ctx context.Context, query string) (*Result, error) {
	return d.execute(ctx, query)
}

// Ping checks if database is reachable
func (d *MySQLDriver) Ping(ctx context.Context) error {
	return d.ping(ctx)
}

// Type returns the driver type
func (d *MySQLDriver) Type() DriverType {
	return MySQL
}

// Database returns the connected database name
func (d *MySQLDriver) Database() string {
	return d.database
}

// TxStatus reports the tracked transaction state
func (d *MySQLDriver) TxStatus() TxStatus {
	return d.tx
}

// ServerInfo returns the current schema and server version
func (d *MySQLDriver) ServerInfo(ctx context.Context) (ServerInfo, error) {
	rows, err := d.queryStrings(ctx, "SELECT IFNULL(DATABASE(), ''), VERSION()")
	if err != nil {
		return ServerInfo{}, err
	}
	info := ServerInfo{StandardConformingStrings: false}
	if len(rows) > 0 {
		info.Database = rows[0][0]
		info.Version = rows[0][1]
		info.VersionNum = mysqlVersionNum(info.Version)
	}
	return info, nil
}

// mysqlVersionNum turns "8.0.36-log" into 80036
func mysqlVersionNum(v string) int {
	var major, minor, patch int
	fmt.Sscanf(v, "%d.%d.%d", &major, &minor, &patch)
	return major*10000 + minor*100 + patch
}

// GetTables returns a list of tables in the current database
func (d *MySQLDriver) GetTables(ctx context.Context) ([]string, error) {
	rows, err := d.queryStrings(ctx, "SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() ORDER BY 1")
	if err != nil {
		return nil, err
	}
	tables := make([]string, len(rows))
	for i, r := range rows {
		tables[i] = r[0]
	}
	return tables, nil
}

// GetColumns returns detailed column metadata for a table
func (d *MySQLDriver) GetColumns(ctx context.Context, tableName string) ([]Column, error) {
	query := `
		SELECT
			COLUMN_NAME,
			COLUMN_TYPE,
			IS_NULLABLE,
			IFNULL(COLUMN_DEFAULT, ''),
			COLUMN_KEY
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_NAME = ? AND TABLE_SCHEMA = DATABASE()
		ORDER BY ORDINAL_POSITION`

	rows, err := d.queryStrings(ctx, query, tableName)
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
func (d *MySQLDriver) GetConstraints(ctx context.Context, tableName string) ([]Constraint, error) {
	query := `
		SELECT
			tc.CONSTRAINT_NAME,
			tc.CONSTRAINT_TYPE,
			IFNULL(GROUP_CONCAT(k.COLUMN_NAME ORDER BY k.ORDINAL_POSITION), '')
		FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
		LEFT JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE k
			ON k.CONSTRAINT_NAME = tc.CONSTRAINT_NAME
			AND k.TABLE_SCHEMA = tc.TABLE_SCHEMA
			AND k.TABLE_NAME = tc.TABLE_NAME
		WHERE tc.TABLE_NAME = ? AND tc.TABLE_SCHEMA = DATABASE()
		GROUP BY tc.CONSTRAINT_NAME, tc.CONSTRAINT_TYPE
		ORDER BY 1`

	rows, err := d.queryStrings(ctx, query, tableName)
	if err != nil {
		return nil, err
	}
	constraints := make([]Constraint, len(rows))
	for i, r := range rows {
		def := ""
		if r[2] != "" {
			def = "(" + r[2] + ")"
		}
		constraints[i] = Constraint{Name: r[0], Type: r[1], Definition: def}
	}
	return constraints, nil
}

// Relations lists tables, views and indexes of the current database
func (d *MySQLDriver) Relations(ctx context.Context, kinds ...RelationKind) ([]Relation, error) {
	var rels []Relation
	for _, kind := range kinds {
		var query string
		switch kind {
		case KindTable:
			query = `SELECT TABLE_SCHEMA, TABLE_NAME, '' FROM INFORMATION_SCHEMA.TABLES
				WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE' ORDER BY 2`
		case KindView:
			query = `SELECT TABLE_SCHEMA, TABLE_NAME, '' FROM INFORMATION_SCHEMA.TABLES
				WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'VIEW' ORDER BY 2`
		case KindIndex:
			query = `SELECT DISTINCT TABLE_SCHEMA, INDEX_NAME, TABLE_NAME FROM INFORMATION_SCHEMA.STATISTICS
				WHERE TABLE_SCHEMA = DATABASE() ORDER BY 2`
		default:
			continue
		}
		rows, err := d.queryStrings(ctx, query)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			rels = append(rels, Relation{Schema: r[0], Name: r[1], Kind: kind, Table: r[2]})
		}
	}
	return rels, nil
}
