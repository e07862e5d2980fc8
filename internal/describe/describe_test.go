package describe

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhath/psqlsh/internal/db"
)

func chinook(t *testing.T) db.Driver {
	t.Helper()
	ctx := context.Background()
	drv, err := db.Open(ctx, db.SQLite, db.ConnectParams{Database: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { drv.Close() })

	for _, q := range []string{
		"CREATE TABLE artist (id INTEGER PRIMARY KEY, name TEXT NOT NULL)",
		"CREATE TABLE album (id INTEGER PRIMARY KEY, artist_id INTEGER REFERENCES artist(id), title TEXT)",
		"CREATE INDEX album_artist ON album(artist_id)",
		"CREATE VIEW titles AS SELECT title FROM album",
	} {
		res, err := drv.Execute(ctx, q)
		require.NoError(t, err)
		require.NoError(t, res.Close())
	}
	return drv
}

func run(t *testing.T, drv db.Driver, input string) string {
	t.Helper()
	var lines []string
	err := New("").Describe(context.Background(), input, drv, func(s string) { lines = append(lines, s) })
	require.NoError(t, err)
	return strings.Join(lines, "\n")
}

func TestParseCommand(t *testing.T) {
	assert.Equal(t, command{name: "dt", args: []string{"a*"}}, parseCommand(`\dt+ a*`))
	assert.Equal(t, command{name: "d", args: []string{}}, parseCommand(`\dS`))
	assert.Equal(t, command{name: "?", args: []string{}}, parseCommand(`\?`))
	assert.Equal(t, command{}, parseCommand(`\`))
}

func TestListTables(t *testing.T) {
	out := run(t, chinook(t), `\dt`)
	assert.Contains(t, out, "List of relations")
	assert.Contains(t, out, "album")
	assert.Contains(t, out, "artist")
	assert.NotContains(t, out, "titles")
	assert.Contains(t, out, "(2 rows)")
	assert.NotContains(t, out, "\x1b[")
}

func TestListTablesPattern(t *testing.T) {
	drv := chinook(t)
	out := run(t, drv, `\dt art*`)
	assert.Contains(t, out, "artist")
	assert.NotContains(t, out, "album")
	assert.Contains(t, out, "(1 row)")

	out = run(t, drv, `\dt nothing*`)
	assert.Equal(t, `Did not find any relation named "nothing*".`, out)
}

func TestListViewsAndIndexes(t *testing.T) {
	drv := chinook(t)
	assert.Contains(t, run(t, drv, `\dv`), "titles")

	out := run(t, drv, `\di`)
	assert.Contains(t, out, "album_artist")
	assert.Contains(t, out, "Table")
}

func TestDescribeAllRelations(t *testing.T) {
	out := run(t, chinook(t), `\d`)
	assert.Contains(t, out, "titles")
	assert.Contains(t, out, "(3 rows)")
}

func TestDescribeRelation(t *testing.T) {
	drv := chinook(t)
	out := run(t, drv, `\d album`)
	assert.Contains(t, out, `Table "album"`)
	assert.Contains(t, out, "artist_id")
	assert.Contains(t, out, "Constraints:")
	assert.Contains(t, out, "FOREIGN KEY (artist_id) REFERENCES artist(id)")
	assert.NotContains(t, out, "rows)")

	out = run(t, drv, `\d artist`)
	assert.Contains(t, out, "not null")

	assert.Equal(t, `Did not find any relation named "nope".`, run(t, drv, `\d nope`))
}

func TestCatalogQueries(t *testing.T) {
	drv := chinook(t)
	assert.Contains(t, run(t, drv, `\dn`), "main")
	out := run(t, drv, `\l`)
	assert.Contains(t, out, "List of databases")
	assert.Contains(t, out, "UTF-8")
	assert.Equal(t, `\du is not supported for sqlite`, run(t, drv, `\du`))
}

func TestConnInfo(t *testing.T) {
	out := run(t, chinook(t), `\conninfo`)
	assert.True(t, strings.HasPrefix(out, `You are connected to database "main" (sqlite `), out)
}

func TestHelp(t *testing.T) {
	out := run(t, nil, `\?`)
	assert.Contains(t, out, `\dt [PATTERN]`)
	assert.Contains(t, out, `\q`)
}

func TestSQLHelpLink(t *testing.T) {
	out := run(t, nil, `\h create table`)
	assert.Contains(t, out, "URL: https://neon.tech/docs/postgres/sql-createtable")

	var lines []string
	err := New("https://docs.example/%s.html").Describe(context.Background(), `\h select`, nil, func(s string) { lines = append(lines, s) })
	require.NoError(t, err)
	assert.Contains(t, lines, "URL: https://docs.example/sql-select.html")

	assert.Contains(t, run(t, nil, `\h frobnicate`), `No help available for "frobnicate".`)
	assert.Contains(t, run(t, nil, `\h`), "Available help:")
}

func TestUnknownCommand(t *testing.T) {
	out := run(t, nil, `\conninf`)
	assert.Equal(t, "invalid command \\conninf\nDid you mean \\conninfo?\nTry \\? for help.", out)

	out = run(t, nil, `\zzz`)
	assert.Equal(t, "invalid command \\zzz\nTry \\? for help.", out)
}
