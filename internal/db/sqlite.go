// internal/db/sqlite.go
package db

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDriver implements Driver for SQLite
type SQLiteDriver struct {
	sqlSession
}

// Connect opens the database file named by params.Database
func (d *SQLiteDriver) Connect(ctx context.Context, params ConnectParams) error {
	// Strip sqlite:// prefix if present
	dsn := strings.TrimPrefix(params.Database, "sqlite://")
	if dsn == "" {
		dsn = ":memory:"
	}

	if err := d.open(ctx, "sqlite3", dsn); err != nil {
		return err
	}

	// Apply SQLite pragmas for better performance and safety
	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 10000"} {
		if _, err := d.conn.ExecContext(ctx, pragma); err != nil {
			d.close()
			return WrapConnectionError(fmt.Errorf("%s: %w", pragma, err))
		}
	}

	d.database = "main"
	if dsn != ":memory:" {
		d.database = strings.TrimSuffix(filepath.Base(dsn), filepath.Ext(dsn))
	}
	return nil
}

// Close closes the database connection
func (d *SQLiteDriver) Close() error {
	return d.close()
}

// Execute runs a single statement on the session connection
func (d *SQLiteDriver) Execute(ctx context.Context, query string) (*Result, error) {
	return d.execute(ctx, query)
}

// Ping checks if database is reachable
func (d *SQLiteDriver) Ping(ctx context.Context) error {
	return d.ping(ctx)
}

// Type returns the driver type
func (d *SQLiteDriver) Type() DriverType {
	return SQLite
}

// Database returns the database file name without extension
func (d *SQLiteDriver) Database() string {
	return d.database
}

// TxStatus reports the tracked transaction state
func (d *SQLiteDriver) TxStatus() TxStatus {
	return d.tx
}

// ServerInfo returns the library version
func (d *SQLiteDriver) ServerInfo(ctx context.Context) (ServerInfo, error) {
	rows, err := d.queryStrings(ctx, "SELECT sqlite_version()")
	if err != nil {
		return ServerInfo{}, err
	}
	info := ServerInfo{Database: d.database, StandardConformingStrings: true}
	if len(rows) > 0 {
		info.Version = rows[0][0]
		info.VersionNum = mysqlVersionNum(info.Version)
	}
	return info, nil
}

// GetTables returns a list of tables
func (d *SQLiteDriver) GetTables(ctx context.Context) ([]string, error) {
	rows, err := d.queryStrings(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
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
func (d *SQLiteDriver) GetColumns(ctx context.Context, tableName string) ([]Column, error) {
	// cid, name, type, notnull, dflt_value, pk
	rows, err := d.queryStrings(ctx, fmt.Sprintf("PRAGMA table_info(%s)", pq.QuoteIdentifier(tableName)))
	if err != nil {
		return nil, err
	}
	columns := make([]Column, len(rows))
	for i, r := range rows {
		key := ""
		if r[5] != "0" {
			key = "PRI"
		}
		columns[i] = Column{
			Name:     r[1],
			Type:     r[2],
			Nullable: r[3] == "0",
			Default:  r[4],
			Key:      key,
		}
	}
	return columns, nil
}

// GetConstraints returns the foreign keys of a table
func (d *SQLiteDriver) GetConstraints(ctx context.Context, tableName string) ([]Constraint, error) {
	// id, seq, table, from, to, on_update, on_delete, match
	rows, err := d.queryStrings(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", pq.QuoteIdentifier(tableName)))
	if err != nil {
		return nil, err
	}
	constraints := make([]Constraint, 0, len(rows))
	for _, r := range rows {
		constraints = append(constraints, Constraint{
			Name:       fmt.Sprintf("fk_%s_%s", tableName, r[0]),
			Type:       "FOREIGN KEY",
			Definition: fmt.Sprintf("(%s) REFERENCES %s(%s) ON UPDATE %s ON DELETE %s", r[3], r[2], r[4], r[5], r[6]),
		})
	}
	return constraints, nil
}

// Relations lists objects from sqlite_master
func (d *SQLiteDriver) Relations(ctx context.Context, kinds ...RelationKind) ([]Relation, error) {
	var types []string
	for _, k := range kinds {
		switch k {
		case KindTable, KindView, KindIndex:
			types = append(types, "'"+string(k)+"'")
		}
	}
	if len(types) == 0 {
		return nil, nil
	}
	rows, err := d.queryStrings(ctx, fmt.Sprintf(
		"SELECT type, name, tbl_name FROM sqlite_master WHERE type IN (%s) AND name NOT LIKE 'sqlite_%%' ORDER BY name",
		strings.Join(types, ", ")))
	if err != nil {
		return nil, err
	}
	rels := make([]Relation, len(rows))
	for i, r := range rows {
		rel := Relation{Schema: "main", Name: r[1], Kind: RelationKind(r[0])}
		if rel.Kind == KindIndex {
			rel.Table = r[2]
		}
		rels[i] = rel
	}
	return rels, nil
}
