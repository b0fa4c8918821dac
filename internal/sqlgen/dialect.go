package sqlgen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nosyt-lien/preql/internal/types"
)

// Dialect captures the SQL differences between backend families.
type Dialect interface {
	Name() string
	Quote(ident string) string
	Placeholder(n int) string
	BoolLiteral(b bool) string
	Concat(a, b string) string
	// ListAgg renders a JSON array aggregate of arg. cond, when not empty,
	// restricts the aggregated rows.
	ListAgg(arg, cond string) string
	ListAggFilter() bool
	// JSON marks arg, a column holding JSON text, as a JSON value so that
	// aggregating it nests rather than quotes it.
	JSON(arg string) string
	LimitOffset(limit *int64, offset int64) string
	ColumnType(t types.Type) string
	// IDColumn renders the definition of the implicit primary key.
	IDColumn(table string) string
	// Preamble lists statements that must run before CREATE TABLE.
	Preamble(table string) []string
	InsertReturning() bool
	EmptyInsert(table string) string
}

// NewDialect returns the dialect for a backend family name.
func NewDialect(name string) (Dialect, error) {
	switch name {
	case "sqlite", "sqlite3":
		return &SQLite{ListFilter: true}, nil
	case "postgres", "postgresql":
		return &Postgres{}, nil
	case "mysql":
		return &MySQL{}, nil
	case "duck", "duckdb":
		return &Duck{}, nil
	}
	return nil, fmt.Errorf("unknown dialect %q", name)
}

func quoteWith(ident string, q string) string {
	return q + strings.ReplaceAll(ident, q, q+q) + q
}

func limitOffset(limit *int64, offset int64, unbounded string) string {
	var parts []string
	if limit != nil {
		parts = append(parts, "LIMIT "+strconv.FormatInt(*limit, 10))
	} else if offset > 0 && unbounded != "" {
		parts = append(parts, "LIMIT "+unbounded)
	}
	if offset > 0 {
		parts = append(parts, "OFFSET "+strconv.FormatInt(offset, 10))
	}
	return strings.Join(parts, " ")
}

func primitiveType(t types.Type, intType, floatType, stringType, boolType string) string {
	switch {
	case types.Is(t, types.Int):
		return intType
	case types.Is(t, types.Float):
		return floatType
	case types.Is(t, types.Bool):
		return boolType
	case t.Kind() == types.KindRelation:
		return intType
	}
	return stringType
}

// SQLite is the dialect of mattn/go-sqlite3 databases. ListFilter is
// disabled for servers older than 3.30, which lack aggregate FILTER clauses.
type SQLite struct {
	ListFilter bool
}

func (d *SQLite) Name() string                   { return "sqlite" }
func (d *SQLite) Quote(ident string) string      { return quoteWith(ident, `"`) }
func (d *SQLite) Placeholder(n int) string       { return "?" }
func (d *SQLite) Concat(a, b string) string      { return "(" + a + " || " + b + ")" }
func (d *SQLite) ListAggFilter() bool            { return d.ListFilter }
func (d *SQLite) InsertReturning() bool          { return false }
func (d *SQLite) JSON(arg string) string         { return "json(" + arg + ")" }
func (d *SQLite) Preamble(table string) []string { return nil }
func (d *SQLite) BoolLiteral(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
func (d *SQLite) ListAgg(arg, cond string) string {
	if cond == "" {
		return "json_group_array(" + arg + ")"
	}
	return "json_group_array(" + arg + ") FILTER (WHERE " + cond + ")"
}
func (d *SQLite) LimitOffset(limit *int64, offset int64) string {
	return limitOffset(limit, offset, "-1")
}
func (d *SQLite) ColumnType(t types.Type) string {
	return primitiveType(t, "INTEGER", "REAL", "TEXT", "BOOLEAN")
}
func (d *SQLite) IDColumn(table string) string {
	return d.Quote(types.IDColumn) + " INTEGER PRIMARY KEY AUTOINCREMENT"
}
func (d *SQLite) EmptyInsert(table string) string {
	return "INSERT INTO " + d.Quote(table) + " DEFAULT VALUES"
}

// Postgres is the dialect of lib/pq databases.
type Postgres struct{}

func (d *Postgres) Name() string                   { return "postgres" }
func (d *Postgres) Quote(ident string) string      { return quoteWith(ident, `"`) }
func (d *Postgres) Placeholder(n int) string       { return "$" + strconv.Itoa(n) }
func (d *Postgres) Concat(a, b string) string      { return "(" + a + " || " + b + ")" }
func (d *Postgres) ListAggFilter() bool            { return true }
func (d *Postgres) InsertReturning() bool          { return true }
func (d *Postgres) JSON(arg string) string         { return arg }
func (d *Postgres) Preamble(table string) []string { return nil }
func (d *Postgres) BoolLiteral(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}
func (d *Postgres) ListAgg(arg, cond string) string {
	return "COALESCE(json_agg(" + arg + ") FILTER (WHERE " + cond + "), '[]')"
}
func (d *Postgres) LimitOffset(limit *int64, offset int64) string {
	return limitOffset(limit, offset, "")
}
func (d *Postgres) ColumnType(t types.Type) string {
	return primitiveType(t, "INTEGER", "DOUBLE PRECISION", "TEXT", "BOOLEAN")
}
func (d *Postgres) IDColumn(table string) string {
	return d.Quote(types.IDColumn) + " SERIAL PRIMARY KEY"
}
func (d *Postgres) EmptyInsert(table string) string {
	return "INSERT INTO " + d.Quote(table) + " DEFAULT VALUES"
}

// MySQL is the dialect of go-sql-driver/mysql databases.
type MySQL struct{}

func (d *MySQL) Name() string                   { return "mysql" }
func (d *MySQL) Quote(ident string) string      { return quoteWith(ident, "`") }
func (d *MySQL) Placeholder(n int) string       { return "?" }
func (d *MySQL) Concat(a, b string) string      { return "CONCAT(" + a + ", " + b + ")" }
func (d *MySQL) ListAggFilter() bool            { return false }
func (d *MySQL) InsertReturning() bool          { return false }
func (d *MySQL) JSON(arg string) string         { return arg }
func (d *MySQL) Preamble(table string) []string { return nil }
func (d *MySQL) BoolLiteral(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}
func (d *MySQL) ListAgg(arg, cond string) string {
	return "JSON_ARRAYAGG(" + arg + ")"
}
func (d *MySQL) LimitOffset(limit *int64, offset int64) string {
	return limitOffset(limit, offset, "18446744073709551615")
}
func (d *MySQL) ColumnType(t types.Type) string {
	return primitiveType(t, "BIGINT", "DOUBLE", "TEXT", "BOOLEAN")
}
func (d *MySQL) IDColumn(table string) string {
	return d.Quote(types.IDColumn) + " BIGINT AUTO_INCREMENT PRIMARY KEY"
}
func (d *MySQL) EmptyInsert(table string) string {
	return "INSERT INTO " + d.Quote(table) + " () VALUES ()"
}

// Duck is the dialect of DuckDB databases.
type Duck struct{}

func (d *Duck) Name() string              { return "duck" }
func (d *Duck) Quote(ident string) string { return quoteWith(ident, `"`) }
func (d *Duck) Placeholder(n int) string  { return "?" }
func (d *Duck) Concat(a, b string) string { return "(" + a + " || " + b + ")" }
func (d *Duck) ListAggFilter() bool       { return true }
func (d *Duck) InsertReturning() bool     { return true }
func (d *Duck) JSON(arg string) string    { return arg }
func (d *Duck) BoolLiteral(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}
func (d *Duck) ListAgg(arg, cond string) string {
	return "to_json(COALESCE(list(" + arg + ") FILTER (WHERE " + cond + "), []))"
}
func (d *Duck) LimitOffset(limit *int64, offset int64) string {
	return limitOffset(limit, offset, "")
}
func (d *Duck) ColumnType(t types.Type) string {
	return primitiveType(t, "BIGINT", "DOUBLE", "VARCHAR", "BOOLEAN")
}
func (d *Duck) sequence(table string) string { return "seq_" + table + "_id" }
func (d *Duck) IDColumn(table string) string {
	return d.Quote(types.IDColumn) + " BIGINT PRIMARY KEY DEFAULT nextval('" + d.sequence(table) + "')"
}
func (d *Duck) Preamble(table string) []string {
	return []string{"CREATE SEQUENCE IF NOT EXISTS " + d.Quote(d.sequence(table))}
}
func (d *Duck) EmptyInsert(table string) string {
	return "INSERT INTO " + d.Quote(table) + " DEFAULT VALUES"
}
