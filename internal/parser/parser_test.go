package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosyt-lien/preql/internal/ast"
	"github.com/nosyt-lien/preql/internal/diagnostics"
	"github.com/nosyt-lien/preql/internal/parser"
)

func TestParseTableDef(t *testing.T) {
	prog, err := parser.ParseString("test.pql", `
# movies and their genres
table movies {
    name: string
    year: int
}

table movies_genres {
    movie_id: movies -> genres
    genre: string
}
`)
	require.NoError(t, err)

	tables := prog.Tables()
	require.Len(t, tables, 2)
	assert.Equal(t, "movies", tables[0].Name)
	require.Len(t, tables[0].Columns, 2)
	assert.Equal(t, "year", tables[0].Columns[1].Name)
	assert.Equal(t, "int", tables[0].Columns[1].Type)
	assert.False(t, tables[0].Columns[1].IsRelation())

	rel := tables[1].Columns[0]
	assert.Equal(t, "movie_id", rel.Name)
	assert.Equal(t, "movies", rel.Type)
	assert.Equal(t, "genres", rel.Backref)
	assert.True(t, rel.IsRelation())
}

func TestParseFuncDef(t *testing.T) {
	prog, err := parser.ParseString("test.pql", `
func double(x: int) = x * 2
func classics(min_year:int) {
    old = movies[year < min_year]
    return old{name}
}
`)
	require.NoError(t, err)
	require.Len(t, prog.Stmts, 2)

	double, ok := prog.Stmts[0].(*ast.FuncDef)
	require.True(t, ok)
	assert.Equal(t, "double", double.Name)
	require.Len(t, double.Params, 1)
	assert.Equal(t, "int", double.Params[0].Type)
	assert.Equal(t, "(x * 2)", double.Expr.String())
	assert.Nil(t, double.Body)

	classics, ok := prog.Stmts[1].(*ast.FuncDef)
	require.True(t, ok)
	assert.Equal(t, "int", classics.Params[0].Type)
	require.Len(t, classics.Body, 2)
	assign, ok := classics.Body[0].(*ast.Assign)
	require.True(t, ok)
	assert.Equal(t, "old", assign.Name)
	assert.Equal(t, "movies[(year < min_year)]", assign.Value.String())
	ret, ok := classics.Body[1].(*ast.Return)
	require.True(t, ok)
	assert.Equal(t, "old{name}", ret.Value.String())
}

func TestParseExpressions(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`1 + 2 * 3`, `(1 + (2 * 3))`},
		{`(1 + 2) * 3`, `((1 + 2) * 3)`},
		{`a and b or c`, `((a and b) or c)`},
		{`a && !b || c`, `((a and not b) or c)`},
		{`x == 1 and y != "s"`, `((x == 1) and (y != "s"))`},
		{`-3`, `-3`},
		{`-x`, `-x`},
		{`not true`, `not true`},
		{`null`, `null`},
		{`2.5`, `2.5`},
		{`movies[year > 2000, name == "x"]`, `movies[(year > 2000), (name == "x")]`},
		{`actors[0]`, `actors[0]`},
		{`movies{name, y: year}`, `movies{name, y: year}`},
		{`movies{name => genres.genre}`, `movies{name => genres.genre}`},
		{`movies{=> count(id)}`, `movies{=> count(id)}`},
		{`movies :count()`, `count(movies)`},
		{`movies :limit(5) :count()`, `count(limit(movies, 5))`},
		{`movies_genres{movie_id.name}`, `movies_genres{movie_id.name}`},
		{`if x > 1 then "a" else "b"`, `if (x > 1) then "a" else "b"`},
		{`new movies(name: "Up", year: 2009)`, `new movies(name: "Up", year: 2009)`},
		{`[1, 2, 3]`, `[1, 2, 3]`},
		{`[]`, `[]`},
		{`x in [1, 2]`, `(x in [1, 2])`},
		{`a.b.c`, `a.b.c`},
		{`count(roles[role == "Mr. Smith"])`, `count(roles[(role == "Mr. Smith")])`},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			e, err := parser.ParseExpr("test.pql", tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.String())
		})
	}
}

func TestParseProjectionShape(t *testing.T) {
	e, err := parser.ParseExpr("test.pql", `movies{name, => n: count(genres)}`)
	require.NoError(t, err)

	p, ok := e.(*ast.Projection)
	require.True(t, ok)
	assert.True(t, p.HasAgg)
	require.Len(t, p.Fields, 1)
	assert.Equal(t, "name", p.Fields[0].Label())
	require.Len(t, p.Aggs, 1)
	assert.Equal(t, "n", p.Aggs[0].Label())

	e, err = parser.ParseExpr("test.pql", `movies{count(genres)}`)
	require.NoError(t, err)
	assert.Equal(t, "count_genres", e.(*ast.Projection).Fields[0].Label())
}

func TestParseStatementsWithSemicolons(t *testing.T) {
	prog, err := parser.ParseString("test.pql", `a = 1; b = a + 1; b`)
	require.NoError(t, err)
	require.Len(t, prog.Stmts, 3)
	_, ok := prog.Stmts[2].(*ast.ExprStmt)
	assert.True(t, ok)
}

func TestParseStringEscapes(t *testing.T) {
	e, err := parser.ParseExpr("test.pql", `"say \"hi\""`)
	require.NoError(t, err)
	c, ok := e.(*ast.Const)
	require.True(t, ok)
	assert.Equal(t, `say "hi"`, c.Value)
}

func TestParseSyntaxError(t *testing.T) {
	_, err := parser.ParseString("bad.pql", "x = \n  movies[")
	require.Error(t, err)
	assert.ErrorIs(t, err, diagnostics.ErrSyntax)

	var derr *diagnostics.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "bad.pql", derr.Pos.Filename)
	assert.Greater(t, derr.Pos.Line, 0)
}
