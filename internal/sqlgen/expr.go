package sqlgen

import (
	"strconv"
	"strings"
)

// Expr is a SQL expression node.
type Expr interface {
	render(w *writer) string
}

// SQL operators understood by Binary.
const (
	OpAdd    = "+"
	OpSub    = "-"
	OpMul    = "*"
	OpDiv    = "/"
	OpMod    = "%"
	OpEq     = "="
	OpNe     = "<>"
	OpLt     = "<"
	OpLe     = "<="
	OpGt     = ">"
	OpGe     = ">="
	OpAnd    = "AND"
	OpOr     = "OR"
	OpConcat = "||"
)

// Column references Name, qualified by a table alias when Table is set.
type Column struct {
	Table string
	Name  string
}

func (c *Column) render(w *writer) string {
	if c.Table == "" {
		return w.d.Quote(c.Name)
	}
	return w.d.Quote(c.Table) + "." + w.d.Quote(c.Name)
}

// Literal is a constant value. Booleans and null are rendered inline,
// everything else is bound as a parameter.
type Literal struct {
	Value interface{}
}

func (l *Literal) render(w *writer) string {
	switch v := l.Value.(type) {
	case nil:
		return "NULL"
	case bool:
		return w.d.BoolLiteral(v)
	}
	return w.bind(l.Value)
}

// Int is an integer rendered inline. It is only used for values the runtime
// produced itself.
type Int int64

func (i Int) render(w *writer) string { return strconv.FormatInt(int64(i), 10) }

// Binary is Left Op Right.
type Binary struct {
	Op    string
	Left  Expr
	Right Expr
}

func (b *Binary) render(w *writer) string {
	if lit, ok := b.Right.(*Literal); ok && lit.Value == nil {
		switch b.Op {
		case OpEq:
			return "(" + b.Left.render(w) + " IS NULL)"
		case OpNe:
			return "(" + b.Left.render(w) + " IS NOT NULL)"
		}
	}
	l := b.Left.render(w)
	r := b.Right.render(w)
	switch b.Op {
	case OpConcat:
		return w.d.Concat(l, r)
	case OpDiv:
		return "((" + l + " * 1.0) / " + r + ")"
	}
	return "(" + l + " " + b.Op + " " + r + ")"
}

// And joins conds with AND. It returns nil for no conditions.
func And(conds ...Expr) Expr {
	var out Expr
	for _, c := range conds {
		if c == nil {
			continue
		}
		if out == nil {
			out = c
			continue
		}
		out = &Binary{Op: OpAnd, Left: out, Right: c}
	}
	return out
}

// Eq returns Left = Right.
func Eq(l, r Expr) Expr { return &Binary{Op: OpEq, Left: l, Right: r} }

// Unary is NOT X or -X.
type Unary struct {
	Op string
	X  Expr
}

func (u *Unary) render(w *writer) string {
	if u.Op == "NOT" {
		return "(NOT " + u.X.render(w) + ")"
	}
	return "(" + u.Op + u.X.render(w) + ")"
}

// IsNull is X IS [NOT] NULL.
type IsNull struct {
	X   Expr
	Not bool
}

func (n *IsNull) render(w *writer) string {
	if n.Not {
		return n.X.render(w) + " IS NOT NULL"
	}
	return n.X.render(w) + " IS NULL"
}

// Agg is an aggregate call. A nil Arg renders as `*`.
type Agg struct {
	Func string
	Arg  Expr
}

func (a *Agg) render(w *writer) string {
	if a.Arg == nil {
		return strings.ToUpper(a.Func) + "(*)"
	}
	return strings.ToUpper(a.Func) + "(" + a.Arg.render(w) + ")"
}

// ListAgg aggregates the non null values of Arg into a JSON array. When
// Nested is set Arg holds JSON arrays, and the result is an array of arrays.
type ListAgg struct {
	Arg    Expr
	Nested bool
}

func (a *ListAgg) render(w *writer) string {
	arg := a.Arg.render(w)
	if a.Nested {
		arg = w.d.JSON(arg)
	}
	cond := ""
	if w.d.ListAggFilter() {
		cond = (&IsNull{X: a.Arg, Not: true}).render(w)
	}
	return w.d.ListAgg(arg, cond)
}

// Func is a plain function call such as COALESCE or NULLIF.
type Func struct {
	Name string
	Args []Expr
}

func (f *Func) render(w *writer) string {
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		args[i] = a.render(w)
	}
	return f.Name + "(" + strings.Join(args, ", ") + ")"
}

// Coalesce returns the first non null of args.
func Coalesce(args ...Expr) Expr { return &Func{Name: "COALESCE", Args: args} }

// NullIf returns NULL when a equals b, and a otherwise.
func NullIf(a, b Expr) Expr { return &Func{Name: "NULLIF", Args: []Expr{a, b}} }

// Case is CASE WHEN When THEN Then ELSE Else END.
type Case struct {
	When Expr
	Then Expr
	Else Expr
}

func (c *Case) render(w *writer) string {
	return "CASE WHEN " + c.When.render(w) + " THEN " + c.Then.render(w) + " ELSE " + c.Else.render(w) + " END"
}

// In is X [NOT] IN (List) or X [NOT] IN (Sub).
type In struct {
	X    Expr
	List []Expr
	Sub  *Fragment
	Not  bool
}

func (in *In) render(w *writer) string {
	op := " IN "
	if in.Not {
		op = " NOT IN "
	}
	if in.Sub != nil {
		x := in.X.render(w)
		return "(" + x + op + "(" + w.query(in.Sub) + "))"
	}
	if len(in.List) == 0 {
		return w.d.BoolLiteral(in.Not)
	}
	x := in.X.render(w)
	items := make([]string, len(in.List))
	for i, e := range in.List {
		items[i] = e.render(w)
	}
	return "(" + x + op + "(" + strings.Join(items, ", ") + "))"
}

// Subquery is a scalar subquery.
type Subquery struct {
	F *Fragment
}

func (s *Subquery) render(w *writer) string {
	return "(" + w.query(s.F) + ")"
}

// Exists is EXISTS (F).
type Exists struct {
	F *Fragment
}

func (e *Exists) render(w *writer) string {
	return "EXISTS (" + w.query(e.F) + ")"
}
