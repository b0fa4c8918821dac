package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Const is a literal: int64, float64, string, bool or nil.
type Const struct {
	Pos   lexer.Position
	Value interface{}
}

func (c *Const) isExpr()              {}
func (c *Const) Span() lexer.Position { return c.Pos }
func (c *Const) String() string {
	switch v := c.Value.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	default:
		return fmt.Sprint(v)
	}
}

// Name is a bare identifier.
type Name struct {
	Pos  lexer.Position
	Name string
}

func (n *Name) isExpr()              {}
func (n *Name) Span() lexer.Position { return n.Pos }
func (n *Name) String() string       { return n.Name }

// Attr is an attribute access or relation navigation, X.Name.
type Attr struct {
	Pos  lexer.Position
	X    Expr
	Name string
}

func (a *Attr) isExpr()              {}
func (a *Attr) Span() lexer.Position { return a.Pos }
func (a *Attr) String() string       { return a.X.String() + "." + a.Name }

// Call invokes a function by name. The method form `x :f(a)` is parsed into
// Call{Func: "f", Args: [x, a]}.
type Call struct {
	Pos  lexer.Position
	Func string
	Args []Expr
}

func (c *Call) isExpr()              {}
func (c *Call) Span() lexer.Position { return c.Pos }
func (c *Call) String() string {
	return c.Func + "(" + joinExprs(c.Args) + ")"
}

// Filter is X[Preds...]. A single integer predicate is an index.
type Filter struct {
	Pos   lexer.Position
	X     Expr
	Preds []Expr
}

func (f *Filter) isExpr()              {}
func (f *Filter) Span() lexer.Position { return f.Pos }
func (f *Filter) String() string {
	return f.X.String() + "[" + joinExprs(f.Preds) + "]"
}

// Field is a possibly named projection member.
type Field struct {
	Pos   lexer.Position
	Name  string
	Value Expr
}

// Label returns the explicit name or one derived from the value.
func (f *Field) Label() string {
	if f.Name != "" {
		return f.Name
	}
	return AutoName(f.Value)
}

func (f *Field) String() string {
	if f.Name == "" {
		return f.Value.String()
	}
	return f.Name + ": " + f.Value.String()
}

// AutoName derives a column name for an unnamed field.
func AutoName(e Expr) string {
	switch v := e.(type) {
	case *Name:
		return v.Name
	case *Attr:
		return v.Name
	case *Call:
		if len(v.Args) == 1 {
			if inner := AutoName(v.Args[0]); inner != "" {
				return v.Func + "_" + inner
			}
		}
		return v.Func
	}
	return ""
}

// Projection is X{Fields} or X{Fields => Aggs}.
type Projection struct {
	Pos    lexer.Position
	X      Expr
	Fields []*Field
	Aggs   []*Field
	HasAgg bool
}

func (p *Projection) isExpr()              {}
func (p *Projection) Span() lexer.Position { return p.Pos }
func (p *Projection) String() string {
	var sb strings.Builder
	sb.WriteString(p.X.String())
	sb.WriteString("{")
	sb.WriteString(joinFields(p.Fields))
	if p.HasAgg {
		if len(p.Fields) > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString("=> ")
		sb.WriteString(joinFields(p.Aggs))
	}
	sb.WriteString("}")
	return sb.String()
}

// List is a list literal.
type List struct {
	Pos   lexer.Position
	Elems []Expr
}

func (l *List) isExpr()              {}
func (l *List) Span() lexer.Position { return l.Pos }
func (l *List) String() string       { return "[" + joinExprs(l.Elems) + "]" }

// Binary operators, normalised.
const (
	OpAdd = "+"
	OpSub = "-"
	OpMul = "*"
	OpDiv = "/"
	OpMod = "%"
	OpEq  = "=="
	OpNe  = "!="
	OpLt  = "<"
	OpLe  = "<="
	OpGt  = ">"
	OpGe  = ">="
	OpAnd = "and"
	OpOr  = "or"
	OpIn  = "in"
	OpNot = "not"
	OpNeg = "-"
)

// BinOp is Left Op Right.
type BinOp struct {
	Pos   lexer.Position
	Op    string
	Left  Expr
	Right Expr
}

func (b *BinOp) isExpr()              {}
func (b *BinOp) Span() lexer.Position { return b.Pos }
func (b *BinOp) String() string {
	return "(" + b.Left.String() + " " + b.Op + " " + b.Right.String() + ")"
}

// UnaryOp is Op X, where Op is OpNeg or OpNot.
type UnaryOp struct {
	Pos lexer.Position
	Op  string
	X   Expr
}

func (u *UnaryOp) isExpr()              {}
func (u *UnaryOp) Span() lexer.Position { return u.Pos }
func (u *UnaryOp) String() string {
	if u.Op == OpNot {
		return "not " + u.X.String()
	}
	return u.Op + u.X.String()
}

// Cond is `if If then Then else Else`.
type Cond struct {
	Pos  lexer.Position
	If   Expr
	Then Expr
	Else Expr
}

func (c *Cond) isExpr()              {}
func (c *Cond) Span() lexer.Position { return c.Pos }
func (c *Cond) String() string {
	return "if " + c.If.String() + " then " + c.Then.String() + " else " + c.Else.String()
}

// New inserts a row: `new table(col: value, ...)`. Unnamed arguments are
// matched to columns by position.
type New struct {
	Pos   lexer.Position
	Table string
	Args  []*Field
}

func (n *New) isExpr()              {}
func (n *New) Span() lexer.Position { return n.Pos }
func (n *New) String() string       { return "new " + n.Table + "(" + joinFields(n.Args) + ")" }

func joinExprs(es []Expr) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

func joinFields(fs []*Field) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = f.String()
	}
	return strings.Join(parts, ", ")
}
