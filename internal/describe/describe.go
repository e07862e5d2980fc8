// Package describe implements the backslash meta-commands (\d, \dt, \l, ...).
// Output is emitted as plain text lines; the caller decides how to show them.
package describe

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/nhath/psqlsh/internal/db"
	"github.com/nhath/psqlsh/internal/logger"
	"github.com/nhath/psqlsh/internal/table"
)

// DefaultDocsURL is the documentation link pattern; %s is the page id
const DefaultDocsURL = "https://neon.tech/docs/postgres/%s"

type handler func(ctx context.Context, d *Describer, c command, drv db.Driver, emit func(string)) error

type commandSpec struct {
	name    string
	args    string
	help    string
	handler handler
}

// commands is the help listing order
var commands []commandSpec

func init() {
	commands = []commandSpec{
		{"conninfo", "", "display information about current connection", describeConnInfo},
		{"d", "[NAME]", "list tables, views, and sequences, or describe a relation", describeRelation},
		{"di", "[PATTERN]", "list indexes", listKind(db.KindIndex)},
		{"dn", "[PATTERN]", "list schemas", listSchemas},
		{"dt", "[PATTERN]", "list tables", listKind(db.KindTable)},
		{"du", "[PATTERN]", "list roles", listRoles},
		{"dv", "[PATTERN]", "list views", listKind(db.KindView)},
		{"h", "[NAME]", "help on syntax of SQL commands", describeSQLHelp},
		{"l", "[PATTERN]", "list databases", listDatabases},
		{"?", "", "show help on backslash commands", describeHelp},
		{"clear", "", "clear the screen", nil},
		{"q", "", "quit psqlsh", nil},
	}
}

// Describer runs backslash commands against a driver
type Describer struct {
	docsURL string
}

// New creates a Describer; docsURL is a Printf pattern with one %s
func New(docsURL string) *Describer {
	if docsURL == "" {
		docsURL = DefaultDocsURL
	}
	return &Describer{docsURL: docsURL}
}

// DocLink builds the documentation URL for a page id
func (d *Describer) DocLink(id string) string {
	return fmt.Sprintf(d.docsURL, id)
}

type command struct {
	name string
	args []string
}

func parseCommand(input string) command {
	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(input), `\`))
	if len(fields) == 0 {
		return command{}
	}
	c := command{name: fields[0], args: fields[1:]}
	// the + and S modifiers are accepted and ignored
	for len(c.name) > 1 {
		if rest, ok := strings.CutSuffix(c.name, "+"); ok {
			c.name = rest
			continue
		}
		if rest, ok := strings.CutSuffix(c.name, "S"); ok && strings.HasPrefix(c.name, "d") {
			c.name = rest
			continue
		}
		break
	}
	return c
}

func (c command) pattern() string {
	if len(c.args) == 0 {
		return ""
	}
	return c.args[0]
}

// Describe runs one backslash command and emits its output lines
func (d *Describer) Describe(ctx context.Context, input string, drv db.Driver, emit func(string)) error {
	c := parseCommand(input)
	logger.Named("describe").WithField("command", c.name).Debug("describe")

	i := slices.IndexFunc(commands, func(s commandSpec) bool { return s.name == c.name })
	if i < 0 || commands[i].handler == nil {
		emit(fmt.Sprintf(`invalid command \%s`, c.name))
		if suggestion := d.suggest(c.name); suggestion != "" {
			emit(fmt.Sprintf(`Did you mean \%s?`, suggestion))
		}
		emit(`Try \? for help.`)
		return nil
	}
	return commands[i].handler(ctx, d, c, drv, emit)
}

func (d *Describer) suggest(name string) string {
	if name == "" {
		return ""
	}
	names := make([]string, 0, len(commands))
	for _, c := range commands {
		names = append(names, c.name)
	}
	matches := fuzzy.Find(name, names)
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}

func describeHelp(_ context.Context, _ *Describer, _ command, _ db.Driver, emit func(string)) error {
	emit("General")
	for _, c := range commands {
		usage := `\` + c.name
		if c.args != "" {
			usage += " " + c.args
		}
		emit(fmt.Sprintf("  %-22s %s", usage, c.help))
	}
	return nil
}

func describeSQLHelp(_ context.Context, d *Describer, c command, _ db.Driver, emit func(string)) error {
	if len(c.args) == 0 {
		emit("Available help:")
		emit("  " + strings.Join(sqlTopics, ", "))
		emit(`Use \h <command> for the documentation link of one command.`)
		return nil
	}
	topic := strings.ToUpper(strings.Join(c.args, " "))
	topic = strings.TrimSuffix(topic, ";")
	if !slices.Contains(sqlTopics, topic) {
		emit(fmt.Sprintf(`No help available for "%s".`, strings.ToLower(topic)))
		emit(`Try \h with no arguments to see available help.`)
		return nil
	}
	id := "sql-" + strings.ToLower(strings.ReplaceAll(topic, " ", ""))
	emit("Command:     " + topic)
	emit("URL: " + d.DocLink(id))
	return nil
}

var sqlTopics = []string{
	"ALTER TABLE", "BEGIN", "COMMIT", "COPY", "CREATE DATABASE", "CREATE FUNCTION",
	"CREATE INDEX", "CREATE SCHEMA", "CREATE TABLE", "CREATE VIEW", "DELETE",
	"DROP TABLE", "EXPLAIN", "GRANT", "INSERT", "ROLLBACK", "SELECT", "SET",
	"SHOW", "TRUNCATE", "UPDATE", "VACUUM", "WITH",
}

func describeConnInfo(ctx context.Context, _ *Describer, _ command, drv db.Driver, emit func(string)) error {
	info, err := drv.ServerInfo(ctx)
	if err != nil {
		return err
	}
	emit(fmt.Sprintf(`You are connected to database "%s" (%s %s).`, info.Database, drv.Type(), info.Version))
	return nil
}

// matchName applies a psql-style pattern (* and ?) to name or schema.name
func matchName(pattern string, rel db.Relation) bool {
	if pattern == "" {
		return true
	}
	target := rel.Name
	if strings.Contains(pattern, ".") {
		target = rel.Schema + "." + rel.Name
	}
	ok, err := filepath.Match(pattern, target)
	return err == nil && ok
}

func listRelations(ctx context.Context, drv db.Driver, c command, title string, kinds ...db.RelationKind) ([]string, error) {
	rels, err := drv.Relations(ctx, kinds...)
	if err != nil {
		return nil, err
	}
	withTable := slices.Contains(kinds, db.KindIndex)
	headers := []string{"Schema", "Name", "Type", "Owner"}
	if withTable {
		headers = append(headers, "Table")
	}

	var rows [][]string
	for _, r := range rels {
		if !matchName(c.pattern(), r) {
			continue
		}
		row := []string{r.Schema, r.Name, string(r.Kind), r.Owner}
		if withTable {
			row = append(row, r.Table)
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		if c.pattern() != "" {
			return []string{fmt.Sprintf(`Did not find any relation named "%s".`, c.pattern())}, nil
		}
		return []string{"Did not find any relations."}, nil
	}
	return renderTable(title, headers, rows), nil
}

func emitAll(lines []string, emit func(string)) {
	for _, l := range lines {
		emit(l)
	}
}

func listKind(kind db.RelationKind) handler {
	return func(ctx context.Context, _ *Describer, c command, drv db.Driver, emit func(string)) error {
		lines, err := listRelations(ctx, drv, c, "List of relations", kind)
		if err != nil {
			return err
		}
		emitAll(lines, emit)
		return nil
	}
}

func describeRelation(ctx context.Context, _ *Describer, c command, drv db.Driver, emit func(string)) error {
	if len(c.args) == 0 {
		lines, err := listRelations(ctx, drv, c, "List of relations", db.KindTable, db.KindView, db.KindSequence)
		if err != nil {
			return err
		}
		emitAll(lines, emit)
		return nil
	}

	name := c.args[0]
	cols, err := drv.GetColumns(ctx, name)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		emit(fmt.Sprintf(`Did not find any relation named "%s".`, name))
		return nil
	}

	rows := make([][]string, len(cols))
	for i, col := range cols {
		nullable := ""
		if !col.Nullable {
			nullable = "not null"
		}
		rows[i] = []string{col.Name, col.Type, nullable, col.Default}
	}
	lines := renderTable(fmt.Sprintf(`Table "%s"`, name), []string{"Column", "Type", "Nullable", "Default"}, rows)
	// a relation description has no row count footer
	emitAll(lines[:len(lines)-1], emit)

	constraints, err := drv.GetConstraints(ctx, name)
	if err != nil {
		return err
	}
	if len(constraints) > 0 {
		emit("Constraints:")
		for _, con := range constraints {
			def := con.Definition
			if !strings.HasPrefix(def, con.Type) {
				def = strings.TrimSpace(con.Type + " " + def)
			}
			emit(fmt.Sprintf(`    "%s" %s`, con.Name, def))
		}
	}
	return nil
}

// catalogQueries are per-driver statements whose rows are listed as-is
type catalogQuery struct {
	title   string
	queries map[db.DriverType]string
}

var (
	schemasQuery = catalogQuery{
		title: "List of schemas",
		queries: map[db.DriverType]string{
			db.Postgres: `SELECT n.nspname AS "Name", pg_catalog.pg_get_userbyid(n.nspowner) AS "Owner"
				FROM pg_catalog.pg_namespace n
				WHERE n.nspname !~ '^pg_' AND n.nspname <> 'information_schema'
				ORDER BY 1`,
			db.MySQL:  `SELECT SCHEMA_NAME AS Name, '' AS Owner FROM INFORMATION_SCHEMA.SCHEMATA ORDER BY 1`,
			db.SQLite: `SELECT name AS Name, file AS Owner FROM pragma_database_list ORDER BY seq`,
		},
	}
	databasesQuery = catalogQuery{
		title: "List of databases",
		queries: map[db.DriverType]string{
			db.Postgres: `SELECT d.datname AS "Name", pg_catalog.pg_get_userbyid(d.datdba) AS "Owner",
				pg_catalog.pg_encoding_to_char(d.encoding) AS "Encoding"
				FROM pg_catalog.pg_database d ORDER BY 1`,
			db.MySQL:  `SELECT SCHEMA_NAME AS Name, '' AS Owner, DEFAULT_CHARACTER_SET_NAME AS Encoding FROM INFORMATION_SCHEMA.SCHEMATA ORDER BY 1`,
			db.SQLite: `SELECT name AS Name, '' AS Owner, (SELECT encoding FROM pragma_encoding) AS Encoding FROM pragma_database_list ORDER BY seq`,
		},
	}
	rolesQuery = catalogQuery{
		title: "List of roles",
		queries: map[db.DriverType]string{
			db.Postgres: `SELECT r.rolname AS "Role name",
				concat_ws(', ',
					CASE WHEN r.rolsuper THEN 'Superuser' END,
					CASE WHEN r.rolcreaterole THEN 'Create role' END,
					CASE WHEN r.rolcreatedb THEN 'Create DB' END,
					CASE WHEN NOT r.rolcanlogin THEN 'Cannot login' END) AS "Attributes"
				FROM pg_catalog.pg_roles r
				WHERE r.rolname !~ '^pg_'
				ORDER BY 1`,
			db.MySQL: `SELECT CONCAT(User, '@', Host) AS "Role name", '' AS Attributes FROM mysql.user ORDER BY 1`,
		},
	}
)

func (q catalogQuery) run(ctx context.Context, c command, drv db.Driver, emit func(string)) error {
	query, ok := q.queries[drv.Type()]
	if !ok {
		emit(fmt.Sprintf(`\%s is not supported for %s`, c.name, drv.Type()))
		return nil
	}
	res, err := drv.Execute(ctx, query)
	if err != nil {
		return err
	}
	defer res.Close()

	headers := res.Columns()
	var rows [][]string
	for res.Next() {
		vals, err := res.Values()
		if err != nil {
			return err
		}
		row := make([]string, len(vals))
		for i, v := range vals {
			if v != nil {
				row[i] = table.ValueOf(v).String()
			}
		}
		if p := c.pattern(); p != "" {
			if ok, _ := filepath.Match(p, row[0]); !ok {
				continue
			}
		}
		rows = append(rows, row)
	}
	if err := res.Err(); err != nil {
		return err
	}
	if err := res.Close(); err != nil {
		return err
	}
	emitAll(renderTable(q.title, headers, rows), emit)
	return nil
}

func listSchemas(ctx context.Context, _ *Describer, c command, drv db.Driver, emit func(string)) error {
	return schemasQuery.run(ctx, c, drv, emit)
}

func listDatabases(ctx context.Context, _ *Describer, c command, drv db.Driver, emit func(string)) error {
	return databasesQuery.run(ctx, c, drv, emit)
}

func listRoles(ctx context.Context, _ *Describer, c command, drv db.Driver, emit func(string)) error {
	return rolesQuery.run(ctx, c, drv, emit)
}
