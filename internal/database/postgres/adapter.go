// Package postgres implements the PostgreSQL database adapter.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/hashicorp/go-version"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/pkg/errors"

	"github.com/nosyt-lien/preql/internal/database"
	"github.com/nosyt-lien/preql/internal/sqlgen"
	"github.com/nosyt-lien/preql/internal/types"
)

func init() {
	database.Register(Open, "postgres", "postgresql")
}

// Adapter implements database.Engine for PostgreSQL.
type Adapter struct {
	*database.Conn
	dialect *sqlgen.Postgres
	version *version.Version
}

// Open connects to the PostgreSQL server at u.
func Open(ctx context.Context, u *url.URL, cfg database.Config) (database.Engine, error) {
	dsn := *u
	dsn.Scheme = "postgres"

	db, err := sql.Open("postgres", dsn.String())
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	a := &Adapter{Conn: database.NewConn(db, cfg, "postgres"), dialect: &sqlgen.Postgres{}}
	// A failed statement aborts the transaction.
	a.SetRecovery(database.RecoverSavepoint)

	if err := a.Ping(ctx, cfg.ConnectTimeout); err != nil {
		db.Close()
		return nil, err
	}

	var raw string
	if err := db.QueryRowContext(ctx, "SHOW server_version").Scan(&raw); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to read server version")
	}
	// e.g. "16.2 (Debian 16.2-1.pgdg120+2)"
	if fields := strings.Fields(raw); len(fields) > 0 {
		a.version, _ = version.NewVersion(fields[0])
	}
	return a, nil
}

// Dialect returns the PostgreSQL dialect.
func (a *Adapter) Dialect() sqlgen.Dialect { return a.dialect }

// Version returns the server version, or nil if it could not be parsed.
func (a *Adapter) Version() *version.Version { return a.version }

// ListTables returns the tables of the current schema.
func (a *Adapter) ListTables(ctx context.Context) ([]string, error) {
	return database.StringColumn(ctx, a, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema()
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`, 0)
}

// ImportTableType reflects a table from information_schema.
func (a *Adapter) ImportTableType(ctx context.Context, name string) (*types.Collection, error) {
	rows, err := a.Query(ctx, `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = current_schema()
		  AND table_name = $1
		ORDER BY ordinal_position`, name)
	if err != nil {
		return nil, err
	}
	cols := make([]database.ColumnInfo, 0, rows.Len())
	for _, r := range rows.Values {
		cols = append(cols, database.ColumnInfo{Name: fmt.Sprint(r[0]), Type: fmt.Sprint(r[1])})
	}

	rows, err = a.Query(ctx, `
		SELECT kcu.column_name, ccu.table_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON ccu.constraint_name = tc.constraint_name
		 AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = current_schema()
		  AND tc.table_name = $1`, name)
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
