package preql_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Velocidex/ordereddict"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosyt-lien/preql"
	"github.com/nosyt-lien/preql/internal/diagnostics"
	"github.com/nosyt-lien/preql/internal/telemetry"
)

const setup = `
table movies {
    name: string
    year: int
}
new movies(name: "Casablanca", year: 1942)
new movies(name: "Alien", year: 1979)
new movies(name: "Heat", year: 1995)

func released_before(y: int) = movies[year < y]
func title(m) {
    return m.name
}
`

func open(t *testing.T, opts ...preql.Option) *preql.Session {
	t.Helper()
	sess, err := preql.Open(context.Background(), "sqlite://:memory:", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })
	_, err = sess.RunCode(context.Background(), setup, "setup.pql")
	require.NoError(t, err)
	return sess
}

func promise(t *testing.T, v interface{}) *preql.Promise {
	t.Helper()
	p, ok := v.(*preql.Promise)
	require.True(t, ok, "expected a promise, got %T", v)
	return p
}

func TestPromiseIsLazy(t *testing.T) {
	ctx := context.Background()
	col := telemetry.NewCollector(0)
	sess := open(t, preql.WithTelemetry(col))

	v, err := sess.RunCode(ctx, `movies[year > 1950]{name}`, "q.pql")
	require.NoError(t, err)
	p := promise(t, v)

	queries := col.Count(telemetry.Query)
	assert.False(t, p.Forced())
	sql, err := p.SQL()
	require.NoError(t, err)
	assert.Contains(t, sql, "SELECT")
	assert.Equal(t, queries, col.Count(telemetry.Query))

	n, err := p.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, p.Forced())

	rows, err := p.Rows(ctx)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"Alien", "Heat"}, rows)
	assert.True(t, p.Forced())

	forcedAt := col.Count(telemetry.Query)
	_, err = p.Rows(ctx)
	require.NoError(t, err)
	first, err := p.At(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "Alien", first)
	assert.Equal(t, forcedAt, col.Count(telemetry.Query))
}

func TestPromiseAtAndEach(t *testing.T) {
	ctx := context.Background()
	sess := open(t)

	v, err := sess.Eval(ctx, `order(movies, year)`)
	require.NoError(t, err)
	p := promise(t, v)

	row, err := p.At(ctx, 1)
	require.NoError(t, err)
	name, _ := row.(*ordereddict.Dict).Get("name")
	assert.Equal(t, "Alien", name)

	_, err = p.At(ctx, 10)
	assert.True(t, errors.Is(err, diagnostics.ErrValue))

	var years []interface{}
	require.NoError(t, p.Each(ctx, func(i int, row interface{}) error {
		y, _ := row.(*ordereddict.Dict).Get("year")
		years = append(years, y)
		return nil
	}))
	assert.Equal(t, []interface{}{int64(1942), int64(1979), int64(1995)}, years)
}

func TestCursor(t *testing.T) {
	ctx := context.Background()
	sess := open(t)

	v, err := sess.Eval(ctx, `order(movies, year){name}`)
	require.NoError(t, err)
	cur := promise(t, v).Cursor(2)

	page, err := cur.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"Casablanca", "Alien"}, page)
	assert.False(t, cur.Done())

	page, err = cur.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"Heat"}, page)
	assert.True(t, cur.Done())
	assert.Equal(t, int64(3), cur.Offset())
}

func TestValues(t *testing.T) {
	ctx := context.Background()
	sess := open(t)

	require.NoError(t, sess.SetValue("threshold", 1970))
	v, err := sess.Eval(ctx, `count(movies[year > threshold])`)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	require.NoError(t, sess.SetValue("names", []string{"Heat", "Alien"}))
	v, err = sess.Eval(ctx, `count(movies[name in names])`)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	got, err := sess.GetValue(ctx, "threshold")
	require.NoError(t, err)
	assert.Equal(t, int64(1970), got)

	_, err = sess.GetValue(ctx, "nope")
	assert.True(t, errors.Is(err, diagnostics.ErrName))

	assert.Error(t, sess.SetValue("bad", struct{}{}))
}

func TestCallFunction(t *testing.T) {
	ctx := context.Background()
	sess := open(t)

	v, err := sess.CallFunction(ctx, "released_before", 1980)
	require.NoError(t, err)
	p := promise(t, v)
	n, err := p.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, err := sess.CallFunction(ctx, "count", p)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	row, err := sess.Eval(ctx, `movies[0]`)
	require.NoError(t, err)
	name, err := sess.CallFunction(ctx, "title", row)
	require.NoError(t, err)
	assert.Equal(t, "Casablanca", name)

	_, err = sess.CallFunction(ctx, "released_before", "x")
	assert.True(t, errors.Is(err, diagnostics.ErrType))
	_, err = sess.CallFunction(ctx, "movies")
	assert.True(t, errors.Is(err, diagnostics.ErrType))
}

func TestTransaction(t *testing.T) {
	ctx := context.Background()
	sess := open(t)
	require.NoError(t, sess.Commit(ctx))

	err := sess.Transaction(ctx, func(s *preql.Session) error {
		if _, err := s.RunCode(ctx, `new movies(name: "Ronin", year: 1998)`, "tx.pql"); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)
	v, err := sess.Eval(ctx, `count(movies)`)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)

	_, err = sess.RunCode(ctx, `new movies(name: "Ronin", year: 1998)`, "tx.pql")
	require.NoError(t, err)
	require.NoError(t, sess.Rollback(ctx))
	v, err = sess.Eval(ctx, `count(movies)`)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
}

func TestImportTables(t *testing.T) {
	ctx := context.Background()
	uri := "sqlite://" + filepath.Join(t.TempDir(), "films.db")

	first, err := preql.Open(ctx, uri)
	require.NoError(t, err)
	_, err = first.RunCode(ctx, setup, "setup.pql")
	require.NoError(t, err)
	require.NoError(t, first.Commit(ctx))
	require.NoError(t, first.Close())

	second, err := preql.Open(ctx, uri)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	_, err = second.Eval(ctx, `count(movies)`)
	assert.True(t, errors.Is(err, diagnostics.ErrName))

	names, err := second.ImportTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"movies"}, names)

	v, err := second.Eval(ctx, `count(movies[year < 1990])`)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestLoadAndExit(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "lib.pql", []byte(`answer = 6 * 7`), 0o644))

	sess := open(t, preql.WithFs(fs))
	require.NoError(t, sess.Load(ctx, "lib.pql"))
	v, err := sess.GetValue(ctx, "answer")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	assert.Error(t, sess.Load(ctx, "missing.pql"))

	_, err = sess.RunCode(ctx, `exit()`, "exit.pql")
	assert.True(t, diagnostics.IsExit(err))
	_, err = sess.RunCode(ctx, `1`, "after.pql")
	assert.ErrorIs(t, err, preql.ErrTerminated)

	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())
}
