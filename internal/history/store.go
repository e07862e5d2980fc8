// internal/history/store.go
package history

import (
	"database/sql"
	"time"

	"github.com/adrg/xdg"
	_ "github.com/mattn/go-sqlite3"

	"github.com/nhath/psqlsh/internal/logger"
)

const (
	// Retention is how long entries are kept
	Retention = 90 * 24 * time.Hour
	// PerDatabaseLimit caps the entries kept per database
	PerDatabaseLimit = 1000
)

// Store manages prompt history persistence
type Store struct {
	db    *sql.DB
	now   func() time.Time
	limit int
}

// DefaultPath returns the XDG data path of the history database
func DefaultPath() (string, error) {
	return xdg.DataFile("psqlsh/history.db")
}

// NewStore opens the history store at the default location
func NewStore() (*Store, error) {
	dbPath, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return Open(dbPath)
}

// Open opens or creates a history store at path
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// a single connection keeps :memory: stores coherent
	db.SetMaxOpenConns(1)

	// Apply SQLite pragmas
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, err
	}

	// Create table and indexes
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			database TEXT NOT NULL,
			query TEXT NOT NULL,
			executed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			duration_ms INTEGER NOT NULL,
			row_count INTEGER NOT NULL,
			status TEXT NOT NULL,
			error_message TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_history_database ON history(database);
		CREATE INDEX IF NOT EXISTS idx_history_executed_at ON history(executed_at);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	store := &Store{db: db, now: time.Now, limit: PerDatabaseLimit}
	if err := store.cleanup(); err != nil {
		logger.Named("history").WithError(err).Warn("history cleanup failed")
	}
	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Add inserts a new entry and prunes the database's oldest entries
func (s *Store) Add(entry *HistoryEntry) error {
	if entry.ExecutedAt.IsZero() {
		entry.ExecutedAt = s.now()
	}
	res, err := s.db.Exec(`
		INSERT INTO history (database, query, executed_at, duration_ms, row_count, status, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		entry.Database,
		entry.Query,
		entry.ExecutedAt.UTC(),
		entry.DurationMs,
		entry.RowCount,
		entry.Status,
		entry.ErrorMessage,
	)
	if err != nil {
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	entry.ID = id

	return s.enforceLimit(entry.Database)
}

// enforceLimit keeps only the most recent entries per database
func (s *Store) enforceLimit(database string) error {
	_, err := s.db.Exec(`
		DELETE FROM history
		WHERE database = ?
		AND id NOT IN (
			SELECT id FROM history
			WHERE database = ?
			ORDER BY id DESC
			LIMIT ?
		)
	`, database, database, s.limit)
	return err
}

// Lines returns up to limit submitted lines for a database, oldest first,
// ready to seed the prompt history
func (s *Store) Lines(database string, limit int) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT query FROM (
			SELECT id, query FROM history
			WHERE database = ?
			ORDER BY id DESC
			LIMIT ?
		) ORDER BY id ASC
	`, database, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, err
		}
		lines = append(lines, q)
	}
	return lines, rows.Err()
}

// List returns paginated history entries for a database, newest first
func (s *Store) List(database string, limit, offset int) ([]HistoryEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, database, query, executed_at, duration_ms, row_count, status, error_message
		FROM history
		WHERE database = ?
		ORDER BY id DESC
		LIMIT ? OFFSET ?
	`, database, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Search finds history entries by query substring
func (s *Store) Search(database, querySubstr string, limit int) ([]HistoryEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, database, query, executed_at, duration_ms, row_count, status, error_message
		FROM history
		WHERE database = ? AND query LIKE ?
		ORDER BY id DESC
		LIMIT ?
	`, database, "%"+querySubstr+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// scanEntries scans rows into HistoryEntry slice
func scanEntries(rows *sql.Rows) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var errMsg sql.NullString
		err := rows.Scan(&e.ID, &e.Database, &e.Query, &e.ExecutedAt,
			&e.DurationMs, &e.RowCount, &e.Status, &errMsg)
		if err != nil {
			return nil, err
		}
		e.ErrorMessage = errMsg.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes a history entry by ID
func (s *Store) Delete(id int64) error {
	_, err := s.db.Exec("DELETE FROM history WHERE id = ?", id)
	return err
}

// cleanup removes entries older than Retention
func (s *Store) cleanup() error {
	_, err := s.db.Exec(`DELETE FROM history WHERE executed_at < ?`, s.now().Add(-Retention).UTC())
	return err
}

// Count returns the total number of history entries for a database
func (s *Store) Count(database string) (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM history WHERE database = ?
	`, database).Scan(&count)
	return count, err
}
