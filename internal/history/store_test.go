package history

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddAndLines(t *testing.T) {
	s := openTestStore(t)

	for _, q := range []string{"select 1", "select 2", "select 3"} {
		require.NoError(t, s.Add(&HistoryEntry{Database: "neondb", Query: q, Status: StatusSuccess}))
	}
	require.NoError(t, s.Add(&HistoryEntry{Database: "other", Query: "\\dt", Status: StatusSuccess}))

	lines, err := s.Lines("neondb", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"select 1", "select 2", "select 3"}, lines)

	lines, err = s.Lines("neondb", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"select 2", "select 3"}, lines)

	n, err := s.Count("other")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestListAndSearch(t *testing.T) {
	s := openTestStore(t)

	e := &HistoryEntry{Database: "db", Query: "select * from artist", DurationMs: 12, RowCount: 3, Status: StatusSuccess}
	require.NoError(t, s.Add(e))
	assert.NotZero(t, e.ID)
	require.NoError(t, s.Add(&HistoryEntry{Database: "db", Query: "selec 1", Status: StatusError, ErrorMessage: "syntax error"}))

	entries, err := s.List("db", 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "selec 1", entries[0].Query)
	assert.Equal(t, "syntax error", entries[0].ErrorMessage)
	assert.Equal(t, 3, entries[1].RowCount)

	found, err := s.Search("db", "artist", 5)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, e.ID, found[0].ID)

	require.NoError(t, s.Delete(e.ID))
	n, err := s.Count("db")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEnforceLimit(t *testing.T) {
	s := openTestStore(t)
	s.limit = 3

	for i := range 5 {
		require.NoError(t, s.Add(&HistoryEntry{Database: "db", Query: fmt.Sprintf("select %d", i), Status: StatusSuccess}))
	}
	lines, err := s.Lines("db", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"select 2", "select 3", "select 4"}, lines)
}

func TestCleanupRemovesOldEntries(t *testing.T) {
	s := openTestStore(t)
	old := time.Now().Add(-Retention - time.Hour)
	require.NoError(t, s.Add(&HistoryEntry{Database: "db", Query: "old", ExecutedAt: old, Status: StatusSuccess}))
	require.NoError(t, s.Add(&HistoryEntry{Database: "db", Query: "new", Status: StatusSuccess}))

	require.NoError(t, s.cleanup())
	lines, err := s.Lines("db", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, lines)
}

func TestQueryPreview(t *testing.T) {
	e := HistoryEntry{Query: "select * from a_very_long_table"}
	assert.Equal(t, "select ...", e.QueryPreview(10))
	assert.Equal(t, e.Query, e.QueryPreview(100))
}
