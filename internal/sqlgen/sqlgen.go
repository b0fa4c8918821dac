// Package sqlgen compiles query fragments and table definitions into SQL for
// the supported backend families.
package sqlgen

import (
	"strings"

	"github.com/nosyt-lien/preql/internal/diagnostics"
	"github.com/nosyt-lien/preql/internal/types"
)

// Query is a SQL statement with its bound arguments.
type Query struct {
	SQL  string
	Args []interface{}
}

func (q *Query) String() string { return q.SQL }

// Compiler turns fragments into SQL for one dialect, validating them against
// a schema.
type Compiler struct {
	dialect Dialect
	schema  *types.Schema
}

// NewCompiler creates a compiler. A nil schema disables validation.
func NewCompiler(d Dialect, schema *types.Schema) *Compiler {
	return &Compiler{dialect: d, schema: schema}
}

// Dialect returns the compiler's dialect.
func (c *Compiler) Dialect() Dialect { return c.dialect }

// Schema returns the schema fragments are validated against.
func (c *Compiler) Schema() *types.Schema { return c.schema }

// Render renders a standalone expression. It is mainly useful in tests.
func (c *Compiler) Render(e Expr) *Query {
	w := &writer{d: c.dialect}
	return &Query{SQL: e.render(w), Args: w.args}
}

// CompileQuery compiles a fragment into a SELECT statement.
func (c *Compiler) CompileQuery(f *Fragment) (*Query, error) {
	if err := c.validate(f); err != nil {
		return nil, err
	}
	w := &writer{d: c.dialect}
	sql := w.query(f)
	return &Query{SQL: sql, Args: w.args}, nil
}

// CompileCount compiles a statement returning the number of rows of f.
func (c *Compiler) CompileCount(f *Fragment) (*Query, error) {
	return c.CompileQuery(CountOf(f))
}

// CompileAggregate compiles fn applied to the single column of f.
func (c *Compiler) CompileAggregate(fn string, f *Fragment) (*Query, error) {
	agg, err := AggregateOf(fn, f)
	if err != nil {
		return nil, err
	}
	return c.CompileQuery(agg)
}

// CountOf returns a one row, one column fragment counting the rows of f.
func CountOf(f *Fragment) *Fragment {
	var src *Fragment
	if f.Shaped() {
		src = f.Wrap()
	} else {
		src = f.Clone()
		src.Order = nil
	}
	src.Fields = []Field{{Name: "count", Expr: &Agg{Func: "count"}}}
	return src
}

// AggregateOf returns a one row fragment applying fn to the single output
// column of f.
func AggregateOf(fn string, f *Fragment) (*Fragment, error) {
	if len(f.Fields) != 1 {
		return nil, diagnostics.New(diagnostics.TypeError, "%s() expects a collection with exactly one column", fn)
	}
	if !f.Aggregate && f.Limit == nil && f.Offset == 0 {
		src := f.Clone()
		src.Order = nil
		src.Fields = []Field{{Name: fn, Expr: &Agg{Func: fn, Arg: f.Fields[0].Expr}}}
		return src, nil
	}
	src := f.Wrap()
	src.Fields = []Field{{Name: fn, Expr: &Agg{Func: fn, Arg: &Column{Table: src.Alias, Name: f.Fields[0].Name}}}}
	return src, nil
}

// CompileInsert compiles an INSERT of one row.
func (c *Compiler) CompileInsert(table string, columns []string, values []interface{}) (*Query, error) {
	if c.schema != nil && !c.schema.Has(table) {
		return nil, diagnostics.New(diagnostics.CompileError, "unknown table %q", table)
	}
	d := c.dialect
	var sql string
	if len(columns) == 0 {
		sql = d.EmptyInsert(table)
	} else {
		w := &writer{d: d}
		cols := make([]string, len(columns))
		vals := make([]string, len(values))
		for i, col := range columns {
			cols[i] = d.Quote(col)
		}
		for i, v := range values {
			vals[i] = (&Literal{Value: v}).render(w)
		}
		sql = "INSERT INTO " + d.Quote(table) + " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(vals, ", ") + ")"
		if d.InsertReturning() {
			sql += " RETURNING " + d.Quote(types.IDColumn)
		}
		return &Query{SQL: sql, Args: w.args}, nil
	}
	if d.InsertReturning() {
		sql += " RETURNING " + d.Quote(types.IDColumn)
	}
	return &Query{SQL: sql}, nil
}

// CompileFuncCall compiles a call of a SQL level builtin. Arguments are
// fragments or integers.
func (c *Compiler) CompileFuncCall(name string, args []interface{}) (*Query, error) {
	frag := func(i int) (*Fragment, error) {
		if i >= len(args) {
			return nil, diagnostics.New(diagnostics.TypeError, "%s() missing argument %d", name, i+1)
		}
		f, ok := args[i].(*Fragment)
		if !ok {
			return nil, diagnostics.New(diagnostics.TypeError, "%s() argument %d must be a collection", name, i+1)
		}
		return f, nil
	}
	integer := func(i int) (int64, error) {
		if i >= len(args) {
			return 0, diagnostics.New(diagnostics.TypeError, "%s() missing argument %d", name, i+1)
		}
		switch v := args[i].(type) {
		case int64:
			return v, nil
		case int:
			return int64(v), nil
		}
		return 0, diagnostics.New(diagnostics.TypeError, "%s() argument %d must be an int", name, i+1)
	}

	switch name {
	case "count":
		f, err := frag(0)
		if err != nil {
			return nil, err
		}
		return c.CompileCount(f)

	case "sum", "min", "max", "avg":
		f, err := frag(0)
		if err != nil {
			return nil, err
		}
		return c.CompileAggregate(name, f)

	case "limit":
		f, err := frag(0)
		if err != nil {
			return nil, err
		}
		n, err := integer(1)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, diagnostics.New(diagnostics.ValueError, "limit() expects a non negative count, got %d", n)
		}
		var offset int64
		if len(args) > 2 {
			if offset, err = integer(2); err != nil {
				return nil, err
			}
			if offset < 0 {
				return nil, diagnostics.New(diagnostics.ValueError, "limit() expects a non negative offset, got %d", offset)
			}
		}
		if len(args) > 3 {
			return nil, diagnostics.New(diagnostics.TypeError, "limit() takes 2 or 3 arguments, got %d", len(args))
		}
		return c.CompileQuery(f.WithLimit(n, offset))
	}
	return nil, diagnostics.New(diagnostics.NameError, "%s() has no SQL form", name)
}

// validate checks that every base table and every column qualified by a base
// table alias exists in the schema.
func (c *Compiler) validate(f *Fragment) error {
	if c.schema == nil {
		return nil
	}
	if f.From != nil {
		if err := c.validate(f.From); err != nil {
			return err
		}
	} else if f.Table != "" && !c.schema.Has(f.Table) {
		return diagnostics.New(diagnostics.CompileError, "unknown table %q", f.Table)
	}

	aliases := map[string]string{}
	if f.From == nil {
		aliases[f.Alias] = f.Table
	}
	for _, j := range f.Joins {
		if j.Sub != nil {
			if err := c.validate(j.Sub); err != nil {
				return err
			}
			continue
		}
		if !c.schema.Has(j.Table) {
			return diagnostics.New(diagnostics.CompileError, "unknown table %q", j.Table)
		}
		aliases[j.Alias] = j.Table
	}

	var exprs []Expr
	for _, fd := range f.Fields {
		exprs = append(exprs, fd.Expr)
	}
	exprs = append(exprs, f.Where...)
	exprs = append(exprs, f.Group...)
	for _, o := range f.Order {
		exprs = append(exprs, o.Expr)
	}
	for _, j := range f.Joins {
		exprs = append(exprs, j.On)
	}
	for _, e := range exprs {
		if err := c.validateExpr(e, aliases); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) validateExpr(e Expr, aliases map[string]string) error {
	switch v := e.(type) {
	case *Column:
		table, ok := aliases[v.Table]
		if !ok {
			return nil
		}
		t, _ := c.schema.Table(table)
		row, ok := types.RowType(t)
		if !ok {
			return nil
		}
		if _, ok := row.Field(v.Name); !ok {
			return diagnostics.New(diagnostics.CompileError, "table %q has no column %q", table, v.Name)
		}
	case *Binary:
		if err := c.validateExpr(v.Left, aliases); err != nil {
			return err
		}
		return c.validateExpr(v.Right, aliases)
	case *Unary:
		return c.validateExpr(v.X, aliases)
	case *IsNull:
		return c.validateExpr(v.X, aliases)
	case *Agg:
		if v.Arg != nil {
			return c.validateExpr(v.Arg, aliases)
		}
	case *ListAgg:
		return c.validateExpr(v.Arg, aliases)
	case *Func:
		for _, x := range v.Args {
			if err := c.validateExpr(x, aliases); err != nil {
				return err
			}
		}
	case *Case:
		for _, x := range []Expr{v.When, v.Then, v.Else} {
			if err := c.validateExpr(x, aliases); err != nil {
				return err
			}
		}
	case *In:
		if err := c.validateExpr(v.X, aliases); err != nil {
			return err
		}
		for _, x := range v.List {
			if err := c.validateExpr(x, aliases); err != nil {
				return err
			}
		}
		if v.Sub != nil {
			return c.validate(v.Sub)
		}
	case *Subquery:
		return c.validate(v.F)
	case *Exists:
		return c.validate(v.F)
	}
	return nil
}
