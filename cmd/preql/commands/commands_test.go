package commands

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const moviesFile = `
table movies {
    name: string
    year: int
}
new movies(name: "Casablanca", year: 1942)
new movies(name: "Alien", year: 1979)
movies[year > 1950]{name}
`

type harness struct {
	fs     afero.Fs
	out    bytes.Buffer
	errOut bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("PREQL_DATABASE_URI", "sqlite://:memory:")
	h := &harness{fs: afero.NewMemMapFs()}
	require.NoError(t, afero.WriteFile(h.fs, "movies.pql", []byte(moviesFile), 0o644))
	return h
}

func (h *harness) run(input string, args ...string) error {
	root := newRootCommand(h.fs, strings.NewReader(input), &h.out, &h.errOut)
	root.SetArgs(args)
	return root.Execute()
}

func TestRun(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run("", "run", "movies.pql", "--format", "json"))
	assert.Equal(t, "[\"Alien\"]\n", h.out.String())
}

func TestRun_ReportsErrors(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, "bad.pql", []byte(`count(nope)`), 0o644))

	err := h.run("", "run", "bad.pql")
	require.Error(t, err)
	assert.True(t, Reported(err))
	assert.Contains(t, h.errOut.String(), "NameError")
}

func TestRun_Stats(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run("", "run", "movies.pql", "--format", "json", "--stats"))
	assert.Contains(t, h.errOut.String(), `"queries":`)
}

func TestCompile(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run("", "compile", "movies.pql", "--dialect", "postgres"))
	assert.Contains(t, h.out.String(), `CREATE TABLE IF NOT EXISTS "movies"`)
}

func TestRepl(t *testing.T) {
	h := newHarness(t)
	input := strings.Join([]string{
		"table t {",
		"    x: int",
		"}",
		"new t(x: 1)",
		"new t(x: 2)",
		"t{x}",
		"commit()",
		"nope",
		"exit()",
	}, "\n") + "\n"

	require.NoError(t, h.run(input, "repl", "--format", "json"))
	assert.Contains(t, h.out.String(), `{"id":1,"x":1}`)
	assert.Contains(t, h.out.String(), "[1,2]")
	assert.Contains(t, h.errOut.String(), "NameError")
}

func TestRepl_LastResult(t *testing.T) {
	h := newHarness(t)
	input := "1 + 2\n_ * 10\n"

	require.NoError(t, h.run(input, "repl", "--format", "json"))
	lines := strings.Split(h.out.String(), "\n")
	assert.Contains(t, lines, "preql> 30")
	assert.NotContains(t, h.errOut.String(), "Query took")
}

func TestRepl_ReportsSlowStatements(t *testing.T) {
	old := slowStatement
	slowStatement = -1
	t.Cleanup(func() { slowStatement = old })

	h := newHarness(t)
	require.NoError(t, h.run("1 + 2\n", "repl", "--format", "json"))
	assert.Contains(t, h.errOut.String(), "Query took")
}

func TestTables(t *testing.T) {
	h := newHarness(t)
	t.Setenv("PREQL_DATABASE_URI", "sqlite://"+filepath.Join(t.TempDir(), "films.db"))
	require.NoError(t, h.run("", "run", "movies.pql", "--commit"))

	h.out.Reset()
	require.NoError(t, h.run("", "tables", "--format", "json"))
	assert.Contains(t, h.out.String(), `{"table":"movies","columns":"`)
	assert.Contains(t, h.out.String(), "year: int")
}

func TestVersion(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run("", "version"))
	assert.Contains(t, h.out.String(), "preql version 0.1.0")
	assert.Contains(t, h.out.String(), "sqlite")
}

func TestComplete(t *testing.T) {
	assert.True(t, complete("count(movies)"))
	assert.False(t, complete("table t {"))
	assert.True(t, complete(`x = "{"`))
	assert.True(t, complete("x = 1 # {"))
	assert.False(t, complete(`movies[name == "a`))
	assert.True(t, complete(`x = 'a`))
	assert.True(t, complete("f(\"it's\")"))
}
