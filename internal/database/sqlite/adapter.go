// Package sqlite implements the SQLite database adapter.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	"github.com/hashicorp/go-version"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/pkg/errors"

	"github.com/nosyt-lien/preql/internal/database"
	"github.com/nosyt-lien/preql/internal/sqlgen"
	"github.com/nosyt-lien/preql/internal/types"
)

func init() {
	database.Register(Open, "sqlite", "sqlite3")
}

// aggregateFilter is the first SQLite release accepting FILTER clauses on
// aggregate functions.
var aggregateFilter = version.Must(version.NewVersion("3.30.0"))

// Adapter implements database.Engine for SQLite.
type Adapter struct {
	*database.Conn
	dialect *sqlgen.SQLite
	version *version.Version
}

// Open connects to the SQLite database at u. An empty path or `:memory:`
// opens a private in memory database.
func Open(ctx context.Context, u *url.URL, cfg database.Config) (database.Engine, error) {
	path := u.Opaque
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	a := &Adapter{Conn: database.NewConn(db, cfg, "sqlite")}

	if err := a.Ping(ctx, cfg.ConnectTimeout); err != nil {
		db.Close()
		return nil, err
	}

	// Enable foreign keys (disabled by default in SQLite). PRAGMA has no
	// effect inside a transaction, so it runs on the bare handle.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to enable foreign keys")
	}

	var raw string
	if err := db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&raw); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to read server version")
	}
	a.version, err = version.NewVersion(raw)
	if err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "unexpected sqlite version %q", raw)
	}
	a.dialect = &sqlgen.SQLite{ListFilter: a.version.GreaterThanOrEqual(aggregateFilter)}
	return a, nil
}

// Dialect returns the SQLite dialect, tuned to the server version.
func (a *Adapter) Dialect() sqlgen.Dialect { return a.dialect }

// Version returns the SQLite library version.
func (a *Adapter) Version() *version.Version { return a.version }

// ListTables returns the user tables.
func (a *Adapter) ListTables(ctx context.Context) ([]string, error) {
	return database.StringColumn(ctx, a, `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY name`, 0)
}

// ImportTableType reflects a table using PRAGMA table_info and
// PRAGMA foreign_key_list.
func (a *Adapter) ImportTableType(ctx context.Context, name string) (*types.Collection, error) {
	quoted := a.dialect.Quote(name)

	rows, err := a.Query(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoted))
	if err != nil {
		return nil, err
	}
	// cid, name, type, notnull, dflt_value, pk
	cols := make([]database.ColumnInfo, 0, rows.Len())
	for _, r := range rows.Values {
		cols = append(cols, database.ColumnInfo{Name: fmt.Sprint(r[1]), Type: fmt.Sprint(r[2])})
	}

	rows, err = a.Query(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoted))
	if err != nil {
		return nil, err
	}
	// id, seq, table, from, to, on_update, on_delete, match
	var fks []database.ForeignKey
	for _, r := range rows.Values {
		fks = append(fks, database.ForeignKey{Column: fmt.Sprint(r[3]), RefTable: fmt.Sprint(r[2])})
	}
	return database.BuildTableType(name, cols, fks)
}

// Ensure Adapter implements Engine.
var _ database.Engine = (*Adapter)(nil)
