package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosyt-lien/preql/internal/database"
	"github.com/nosyt-lien/preql/internal/database/sqlite"
	"github.com/nosyt-lien/preql/internal/diagnostics"
	"github.com/nosyt-lien/preql/internal/telemetry"
	"github.com/nosyt-lien/preql/internal/types"
)

func open(t *testing.T, opts ...database.Option) database.Engine {
	t.Helper()
	e, err := database.Open(context.Background(), "sqlite://:memory:", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestOpen(t *testing.T) {
	e := open(t)
	assert.Equal(t, "sqlite", e.Dialect().Name())
	require.NotNil(t, e.Version())
	assert.Equal(t, 3, e.Version().Segments()[0])
}

func TestQueryAndExec(t *testing.T) {
	ctx := context.Background()
	col := telemetry.NewCollector(0)
	e := open(t, database.WithTelemetry(col))

	_, err := e.Exec(ctx, `CREATE TABLE movies (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT, year INTEGER)`)
	require.NoError(t, err)

	res, err := e.Exec(ctx, `INSERT INTO movies (name, year) VALUES (?, ?)`, "Up", 2009)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.LastInsertID)

	rows, err := e.Query(ctx, `SELECT name, year FROM movies`)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "year"}, rows.Columns)
	require.Equal(t, 1, rows.Len())
	assert.Equal(t, "Up", rows.Values[0][0])
	assert.Equal(t, int64(2009), rows.Values[0][1])

	assert.Equal(t, 1, col.Count(telemetry.Query))
	assert.Equal(t, 2, col.Count(telemetry.Exec))
}

func TestRollbackDiscardsPendingWork(t *testing.T) {
	ctx := context.Background()
	e := open(t)

	_, err := e.Exec(ctx, `CREATE TABLE t (id INTEGER PRIMARY KEY, x INTEGER)`)
	require.NoError(t, err)
	require.NoError(t, e.Commit(ctx))

	_, err = e.Exec(ctx, `INSERT INTO t (x) VALUES (1)`)
	require.NoError(t, err)
	require.NoError(t, e.Rollback(ctx))

	rows, err := e.Query(ctx, `SELECT COUNT(*) FROM t`)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows.Values[0][0])

	// Nothing pending: both are no-ops.
	require.NoError(t, e.Commit(ctx))
	require.NoError(t, e.Rollback(ctx))
}

func TestFailedStatementRecovery(t *testing.T) {
	ctx := context.Background()
	count := func(t *testing.T, e database.Engine) int64 {
		t.Helper()
		rows, err := e.Query(ctx, `SELECT COUNT(*) FROM t`)
		require.NoError(t, err)
		return rows.Values[0][0].(int64)
	}
	setup := func(t *testing.T, r database.Recovery) (database.Engine, *telemetry.Collector) {
		t.Helper()
		col := telemetry.NewCollector(0)
		e := open(t, database.WithTelemetry(col))
		e.(*sqlite.Adapter).SetRecovery(r)
		_, err := e.Exec(ctx, `CREATE TABLE t (id INTEGER PRIMARY KEY, x INTEGER UNIQUE)`)
		require.NoError(t, err)
		require.NoError(t, e.Commit(ctx))
		_, err = e.Exec(ctx, `INSERT INTO t (x) VALUES (1)`)
		require.NoError(t, err)
		return e, col
	}

	t.Run("savepoint undoes only the failed statement", func(t *testing.T) {
		e, _ := setup(t, database.RecoverSavepoint)

		_, err := e.Exec(ctx, `INSERT INTO t (x) VALUES (1)`)
		assert.ErrorIs(t, err, diagnostics.ErrDatabase)
		_, err = e.Query(ctx, `SELECT * FROM nope`)
		assert.ErrorIs(t, err, diagnostics.ErrDatabase)

		_, err = e.Exec(ctx, `INSERT INTO t (x) VALUES (2)`)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count(t, e))
		require.NoError(t, e.Commit(ctx))
		assert.Equal(t, int64(2), count(t, e))
	})

	t.Run("rollback discards the transaction", func(t *testing.T) {
		e, col := setup(t, database.RecoverRollback)

		_, err := e.Exec(ctx, `INSERT INTO t (x) VALUES (1)`)
		assert.ErrorIs(t, err, diagnostics.ErrDatabase)
		assert.Equal(t, 1, col.Count(telemetry.Rollback))

		assert.Equal(t, int64(0), count(t, e))
		_, err = e.Exec(ctx, `INSERT INTO t (x) VALUES (3)`)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count(t, e))
	})
}

func TestDatabaseError(t *testing.T) {
	e := open(t)
	_, err := e.Query(context.Background(), `SELECT * FROM nope`)
	require.Error(t, err)
	assert.ErrorIs(t, err, diagnostics.ErrDatabase)
	assert.Contains(t, err.Error(), `SELECT * FROM nope`)

	var driverErr sqlite3.Error
	assert.True(t, errors.As(err, &driverErr))
}

func TestIntrospection(t *testing.T) {
	ctx := context.Background()
	e := open(t)

	for _, ddl := range []string{
		`CREATE TABLE actors (id INTEGER PRIMARY KEY AUTOINCREMENT, first_name TEXT, rating REAL, active BOOLEAN)`,
		`CREATE TABLE roles (id INTEGER PRIMARY KEY AUTOINCREMENT, actor_id INTEGER, role TEXT, FOREIGN KEY (actor_id) REFERENCES actors (id))`,
	} {
		_, err := e.Exec(ctx, ddl)
		require.NoError(t, err)
	}

	tables, err := e.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"actors", "roles"}, tables)

	actors, err := e.ImportTableType(ctx, "actors")
	require.NoError(t, err)
	row, ok := types.RowType(actors)
	require.True(t, ok)
	assert.Equal(t, []string{"id", "first_name", "rating", "active"}, row.Names())
	rating, _ := row.Field("rating")
	assert.True(t, types.Is(rating, types.Float))
	active, _ := row.Field("active")
	assert.True(t, types.Is(active, types.Bool))

	schema := types.NewSchema()
	_, err = database.ImportSchema(ctx, e, schema)
	require.NoError(t, err)

	ref, ok := schema.Backref("actors", "roles")
	require.True(t, ok)
	assert.Equal(t, "actor_id", ref.Column)

	roles, _ := schema.Table("roles")
	row, _ = types.RowType(roles)
	ft, _ := row.Field("actor_id")
	rel, ok := ft.(*types.Relation)
	require.True(t, ok)
	assert.NotNil(t, rel.Target)
	assert.True(t, types.IsSubtype(rel, rel.Target))

	_, err = e.ImportTableType(ctx, "missing")
	assert.Error(t, err)
}

func TestParseURI(t *testing.T) {
	u, err := database.ParseURI("sqlite://data/app.db")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", u.Scheme)
	assert.Equal(t, "data/app.db", u.Opaque)

	u, err = database.ParseURI("postgres://user:pw@localhost:5432/db")
	require.NoError(t, err)
	assert.Equal(t, "localhost:5432", u.Host)

	_, err = database.ParseURI("no-scheme")
	assert.Error(t, err)

	_, err = database.Open(context.Background(), "oracle://x")
	assert.Error(t, err)
}
