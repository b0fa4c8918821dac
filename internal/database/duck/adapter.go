// Package duck implements the DuckDB database adapter.
package duck

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	"github.com/hashicorp/go-version"
	_ "github.com/marcboeker/go-duckdb" // DuckDB driver
	"github.com/pkg/errors"

	"github.com/nosyt-lien/preql/internal/database"
	"github.com/nosyt-lien/preql/internal/sqlgen"
	"github.com/nosyt-lien/preql/internal/types"
)

func init() {
	database.Register(Open, "duck", "duckdb")
}

// Adapter implements database.Engine for DuckDB.
type Adapter struct {
	*database.Conn
	dialect *sqlgen.Duck
	version *version.Version
}

// Open opens the DuckDB database file at u. An empty path or `:memory:`
// opens an in memory database.
func Open(ctx context.Context, u *url.URL, cfg database.Config) (database.Engine, error) {
	path := u.Opaque
	if path == ":memory:" {
		path = ""
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	a := &Adapter{Conn: database.NewConn(db, cfg, "duck"), dialect: &sqlgen.Duck{}}
	// A failed statement aborts the transaction, and there are no savepoints.
	a.SetRecovery(database.RecoverRollback)

	if err := a.Ping(ctx, cfg.ConnectTimeout); err != nil {
		db.Close()
		return nil, err
	}

	var raw string
	if err := db.QueryRowContext(ctx, "SELECT version()").Scan(&raw); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to read server version")
	}
	a.version, _ = version.NewVersion(raw)
	return a, nil
}

// Dialect returns the DuckDB dialect.
func (a *Adapter) Dialect() sqlgen.Dialect { return a.dialect }

// Version returns the DuckDB library version.
func (a *Adapter) Version() *version.Version { return a.version }

// ListTables returns the tables of the main schema.
func (a *Adapter) ListTables(ctx context.Context) ([]string, error) {
	return database.StringColumn(ctx, a, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'main'
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`, 0)
}

// ImportTableType reflects a table from information_schema and
// duckdb_constraints().
func (a *Adapter) ImportTableType(ctx context.Context, name string) (*types.Collection, error) {
	rows, err := a.Query(ctx, `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = 'main'
		  AND table_name = ?
		ORDER BY ordinal_position`, name)
	if err != nil {
		return nil, err
	}
	cols := make([]database.ColumnInfo, 0, rows.Len())
	for _, r := range rows.Values {
		cols = append(cols, database.ColumnInfo{Name: fmt.Sprint(r[0]), Type: fmt.Sprint(r[1])})
	}

	rows, err = a.Query(ctx, `
		SELECT constraint_column_names[1], referenced_table
		FROM duckdb_constraints()
		WHERE table_name = ?
		  AND constraint_type = 'FOREIGN KEY'`, name)
	if err != nil {
		return nil, err
	}
	var fks []database.ForeignKey
	for _, r := range rows.Values {
		fks = append(fks, database.ForeignKey{Column: fmt.Sprint(r[0]), RefTable: fmt.Sprint(r[1])})
	}
	return database.BuildTableType(name, cols, fks)
}

// Ensure Adapter implements Engine.
var _ database.Engine = (*Adapter)(nil)
