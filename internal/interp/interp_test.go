package interp_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Velocidex/ordereddict"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosyt-lien/preql/internal/database"
	_ "github.com/nosyt-lien/preql/internal/database/sqlite"
	"github.com/nosyt-lien/preql/internal/diagnostics"
	"github.com/nosyt-lien/preql/internal/interp"
	"github.com/nosyt-lien/preql/internal/objects"
	"github.com/nosyt-lien/preql/internal/telemetry"
)

const moviesSource = `
table movies {
    name: string
    year: int
}
table movies_genres {
    movie_id: movies -> genres
    genre: string
}

casablanca = new movies(name: "Casablanca", year: 1942)
new movies(name: "Alien", year: 1979)
new movies_genres(movie_id: casablanca, genre: "drama")
new movies_genres(movie_id: casablanca, genre: "war")
`

func newState(t *testing.T, opts ...interp.Option) (*interp.State, *telemetry.Collector) {
	t.Helper()
	col := telemetry.NewCollector(0)
	engine, err := database.Open(context.Background(), "sqlite://:memory:", database.WithTelemetry(col))
	require.NoError(t, err)
	s := interp.New(engine, append([]interp.Option{interp.WithTelemetry(col)}, opts...)...)
	t.Cleanup(func() { _ = s.Close() })
	return s, col
}

func moviesState(t *testing.T) (*interp.State, *telemetry.Collector) {
	t.Helper()
	s, col := newState(t)
	_, err := s.Run(context.Background(), "movies.pql", moviesSource)
	require.NoError(t, err)
	return s, col
}

func run(t *testing.T, s *interp.State, code string) objects.Instance {
	t.Helper()
	inst, err := s.Run(context.Background(), "test.pql", code)
	require.NoError(t, err)
	require.NotNil(t, inst)
	return inst
}

func host(t *testing.T, s *interp.State, code string) interface{} {
	t.Helper()
	v, err := s.CastToHost(context.Background(), run(t, s, code))
	require.NoError(t, err)
	return v
}

func TestCountAndFilter(t *testing.T) {
	s, _ := moviesState(t)

	assert.Equal(t, int64(2), host(t, s, `count(movies)`))
	assert.Equal(t, int64(1), host(t, s, `count(movies[year > 1950])`))
	assert.Equal(t, []interface{}{"Alien"}, host(t, s, `movies[year > 1950]{name}`))
	assert.Equal(t, []interface{}{"Alien", "Casablanca"}, host(t, s, `order(movies, name){name}`))
	assert.Equal(t, []interface{}{"Casablanca", "Alien"}, host(t, s, `order(movies, -name){name}`))
	assert.Equal(t, int64(1), host(t, s, `count(limit(movies, 1))`))
	assert.Equal(t, int64(1979), host(t, s, `max(movies{year})`))
}

func TestEvaluationIsPure(t *testing.T) {
	s, _ := moviesState(t)

	old := run(t, s, `movies[year < 1950]`)
	q1, err := s.CompileInstance(old)
	require.NoError(t, err)
	q2, err := s.CompileInstance(old)
	require.NoError(t, err)
	assert.Equal(t, q1.SQL, q2.SQL)

	base, err := s.Lookup("movies")
	require.NoError(t, err)
	before, err := s.CompileInstance(base)
	require.NoError(t, err)
	run(t, s, `movies[year < 1950]{name => count(genres)}`)
	after, err := s.CompileInstance(base)
	require.NoError(t, err)
	assert.Equal(t, before.SQL, after.SQL)
}

func TestEvaluationIsLazy(t *testing.T) {
	s, col := moviesState(t)

	queries := col.Count(telemetry.Query)
	inst := run(t, s, `count(movies[year > 1900]) + 1`)
	assert.Equal(t, queries, col.Count(telemetry.Query))

	v, err := s.Localize(context.Background(), inst)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
	assert.Equal(t, queries+1, col.Count(telemetry.Query))
}

func TestRelationNavigation(t *testing.T) {
	s, _ := moviesState(t)

	t.Run("list on the value side", func(t *testing.T) {
		v := host(t, s, `movies{name => genres.genre}`)
		rows, ok := v.([]interface{})
		require.True(t, ok)
		require.Len(t, rows, 2)
		byName := map[string]interface{}{}
		for _, r := range rows {
			d := r.(*ordereddict.Dict)
			name, _ := d.Get("name")
			genres, _ := d.Get("genre")
			byName[name.(string)] = genres
		}
		assert.ElementsMatch(t, []interface{}{"drama", "war"}, byName["Casablanca"])
		assert.Equal(t, []interface{}{}, byName["Alien"])
	})

	t.Run("count on the value side", func(t *testing.T) {
		v := host(t, s, `movies[name == "Casablanca"]{name => n: count(genres.genre)}`)
		rows := v.([]interface{})
		require.Len(t, rows, 1)
		n, _ := rows[0].(*ordereddict.Dict).Get("n")
		assert.Equal(t, int64(2), n)
	})

	t.Run("pairs in a plain projection", func(t *testing.T) {
		v := host(t, s, `movies{name, genres.genre}`)
		assert.Len(t, v, 3)
	})

	t.Run("correlated count in a filter", func(t *testing.T) {
		assert.Equal(t, []interface{}{"Casablanca"}, host(t, s, `movies[count(genres) > 1]{name}`))
	})

	t.Run("forward relation", func(t *testing.T) {
		v := host(t, s, `movies_genres[genre == "war"]{movie_id.name}`)
		assert.Equal(t, []interface{}{"Casablanca"}, v)
	})

	t.Run("collection backref", func(t *testing.T) {
		assert.Equal(t, int64(2), host(t, s, `count(movies[year < 1950].genres)`))
	})

	t.Run("row backref", func(t *testing.T) {
		assert.Equal(t, int64(2), host(t, s, `count(casablanca.genres)`))
		assert.Equal(t, "Casablanca", host(t, s, `casablanca.name`))
	})
}

func TestSeveralBackrefsAggregateIndependently(t *testing.T) {
	s, _ := moviesState(t)
	_, err := s.Run(context.Background(), "roles.pql", `
table movies_roles {
    movie: movies -> roles
    role: string
}
new movies_roles(movie: casablanca, role: "Rick")
new movies_roles(movie: casablanca, role: "Ilsa")
new movies_roles(movie: casablanca, role: "Renault")
`)
	require.NoError(t, err)

	v := host(t, s, `movies[name == "Casablanca"]{name => y: sum(year), g: count(genres.genre), r: count(roles.role), gl: genres.genre}`)
	rows := v.([]interface{})
	require.Len(t, rows, 1)
	d := rows[0].(*ordereddict.Dict)
	y, _ := d.Get("y")
	g, _ := d.Get("g")
	r, _ := d.Get("r")
	gl, _ := d.Get("gl")
	assert.Equal(t, int64(1942), y)
	assert.Equal(t, int64(2), g)
	assert.Equal(t, int64(3), r)
	assert.ElementsMatch(t, []interface{}{"drama", "war"}, gl)

	// One group spanning both movies, one of which has no references.
	v = host(t, s, `movies{=> n: count(), g: count(genres.genre), r: count(roles.role), rl: roles.role}`)
	rows = v.([]interface{})
	require.Len(t, rows, 1)
	d = rows[0].(*ordereddict.Dict)
	n, _ := d.Get("n")
	g, _ = d.Get("g")
	r, _ = d.Get("r")
	rl, _ := d.Get("rl")
	assert.Equal(t, int64(2), n)
	assert.Equal(t, int64(2), g)
	assert.Equal(t, int64(3), r)
	assert.ElementsMatch(t, []interface{}{"Rick", "Ilsa", "Renault"}, rl)
}

func TestLimitWindow(t *testing.T) {
	s, _ := newState(t)
	_, err := s.Run(context.Background(), "nums.pql", `
table nums { n: int }
new nums(n: 10)
new nums(n: 20)
new nums(n: 30)
new nums(n: 40)
new nums(n: 50)
`)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		assert.Equal(t, []interface{}{int64(20), int64(30)}, host(t, s, `nums :limit(2, 1){n}`))
		assert.Equal(t, []interface{}{int64(40), int64(30)}, host(t, s, `order(nums, -n) :limit(2, 1){n}`))
	}
	assert.Equal(t, []interface{}{int64(10), int64(20)}, host(t, s, `nums :limit(2){n}`))
	assert.Equal(t, []interface{}{int64(50)}, host(t, s, `nums :limit(10, 4){n}`))
	assert.Equal(t, []interface{}{}, host(t, s, `nums :limit(2, 5){n}`))

	_, err = s.Run(context.Background(), "test.pql", `nums :limit(2, -1)`)
	assert.True(t, errors.Is(err, diagnostics.ErrValue))
}

func TestIndexedBackref(t *testing.T) {
	s, _ := newState(t)
	_, err := s.Run(context.Background(), "actors.pql", `
table actors { name: string }
table roles {
    actor: actors -> roles
    movie: string
}
a = new actors(name: "Ann")
new roles(actor: a, movie: "Heat")
new roles(actor: a, movie: "Ronin")
`)
	require.NoError(t, err)

	assert.Equal(t, true, host(t, s, `count(actors[0].roles) == 2`))

	row := host(t, s, `actors[0]`)
	d, ok := row.(*ordereddict.Dict)
	require.True(t, ok)
	name, _ := d.Get("name")
	assert.Equal(t, "Ann", name)

	_, err = s.Run(context.Background(), "test.pql", `actors[-1]`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, diagnostics.ErrValue))
}

func TestErrorsKeepSessionUsable(t *testing.T) {
	s, _ := moviesState(t)

	tests := []struct {
		code string
		want error
	}{
		{`count(movies) + "x"`, diagnostics.ErrType},
		{`count(no_such_table)`, diagnostics.ErrName},
		{`movies[genres == 1]`, diagnostics.ErrType},
		{`movies[name]`, diagnostics.ErrType},
		{`movies{name, name}`, diagnostics.ErrType},
		{`1 / 0`, diagnostics.ErrValue},
		{`count(1, 2)`, diagnostics.ErrType},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			_, err := s.Run(context.Background(), "test.pql", tt.code)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Equal(t, interp.Idle, s.Status())
			assert.Equal(t, int64(2), host(t, s, `count(movies)`))
		})
	}
}

func TestFunctions(t *testing.T) {
	s, _ := moviesState(t)
	_, err := s.Run(context.Background(), "funcs.pql", `
func fact(n: int) = if n <= 1 then 1 else n * fact(n - 1)
func old(t: table) = t[year < 1950]
func decade(y: int) = y - y % 10
func describe(m) {
    return m.name + "!"
}
`)
	require.NoError(t, err)

	assert.Equal(t, int64(120), host(t, s, `fact(5)`))
	assert.Equal(t, []interface{}{"Casablanca"}, host(t, s, `old(movies){name}`))
	assert.Equal(t, []interface{}{int64(1940), int64(1970)}, host(t, s, `order(movies, year){d: decade(year)}`))
	assert.Equal(t, "Casablanca!", host(t, s, `describe(casablanca)`))

	_, err = s.Run(context.Background(), "test.pql", `fact("x")`)
	assert.True(t, errors.Is(err, diagnostics.ErrType))
	_, err = s.Run(context.Background(), "test.pql", `fact(1, 2)`)
	assert.True(t, errors.Is(err, diagnostics.ErrType))
}

func TestRecursionDepth(t *testing.T) {
	s, _ := newState(t)
	_, err := s.Run(context.Background(), "loop.pql", `
func forever(n: int) = forever(n + 1)
forever(0)
`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, diagnostics.ErrValue))

	var e *diagnostics.Error
	require.True(t, errors.As(err, &e))
	assert.Len(t, e.Stack, interp.MaxDepth)
	assert.Empty(t, s.Stack())
}

func TestTableRedeclaration(t *testing.T) {
	s, _ := moviesState(t)

	_, err := s.Run(context.Background(), "again.pql", `
table movies {
    name: string
    year: int
}
`)
	require.NoError(t, err)
	assert.Equal(t, int64(2), host(t, s, `count(movies)`))

	_, err = s.Run(context.Background(), "conflict.pql", `
table movies {
    title: string
}
`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, diagnostics.ErrType))
}

func TestInclude(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "lib.pql", []byte(`
func double(x: int) = x * 2
answer = double(21)
`), 0o644))

	s, _ := newState(t, interp.WithFs(fs))
	assert.Equal(t, int64(42), host(t, s, `include("lib.pql")
answer`))
	assert.Equal(t, int64(8), host(t, s, `double(4)`))

	_, err := s.Run(context.Background(), "test.pql", `include("missing.pql")`)
	assert.True(t, errors.Is(err, diagnostics.ErrValue))

	require.NoError(t, afero.WriteFile(fs, "broken.pql", []byte(`
partial = 1
bad = nope + 1
`), 0o644))
	_, err = s.Run(context.Background(), "test.pql", `include("broken.pql")`)
	assert.True(t, errors.Is(err, diagnostics.ErrName))
	_, err = s.Run(context.Background(), "test.pql", `partial`)
	assert.True(t, errors.Is(err, diagnostics.ErrName))
	assert.Equal(t, int64(8), host(t, s, `double(4)`))
}

func TestExitTerminates(t *testing.T) {
	s, _ := newState(t)

	_, err := s.Run(context.Background(), "test.pql", `exit(3)`)
	require.Error(t, err)
	assert.True(t, diagnostics.IsExit(err))
	var sig *diagnostics.ExitSignal
	require.True(t, errors.As(err, &sig))
	assert.Equal(t, 3, sig.Code)
	assert.Equal(t, interp.Terminated, s.Status())

	_, err = s.Run(context.Background(), "test.pql", `1`)
	assert.ErrorIs(t, err, interp.ErrTerminated)
}

func TestTransaction(t *testing.T) {
	s, _ := moviesState(t)
	ctx := context.Background()

	require.NoError(t, s.Engine().Commit(ctx))
	err := s.Transaction(ctx, func() error {
		_, err := s.Run(ctx, "test.pql", `new movies(name: "Heat", year: 1995)`)
		require.NoError(t, err)
		return errors.New("abort")
	})
	require.Error(t, err)
	assert.Equal(t, int64(2), host(t, s, `count(movies)`))

	require.NoError(t, s.Transaction(ctx, func() error {
		_, err := s.Run(ctx, "test.pql", `new movies(name: "Heat", year: 1995)`)
		return err
	}))
	assert.Equal(t, int64(3), host(t, s, `count(movies)`))
}

func TestScalars(t *testing.T) {
	s, _ := newState(t)

	tests := []struct {
		code string
		want interface{}
	}{
		{`1 + 2 * 3`, int64(7)},
		{`7 / 2`, 3.5},
		{`"a" + "b"`, "ab"},
		{`not (1 == 2)`, true},
		{`2 in [1, 2, 3]`, true},
		{`[10, 20, 30][1]`, int64(20)},
		{`if 1 > 2 then "x" else "y"`, "y"},
		{`sum([1, 2, 3])`, int64(6)},
		{`null`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, host(t, s, tt.code))
		})
	}
}
