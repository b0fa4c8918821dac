package ast

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// ColumnDef declares a table column. Type is a primitive type name or, for a
// relation column, the target table; Backref then names the reverse
// navigation on the target.
type ColumnDef struct {
	Pos     lexer.Position
	Name    string
	Type    string
	Backref string
}

// IsRelation reports whether the column declares a reverse navigation.
func (c *ColumnDef) IsRelation() bool { return c.Backref != "" }

// TableDef is `table name { columns }`.
type TableDef struct {
	Pos     lexer.Position
	Name    string
	Columns []*ColumnDef
}

func (t *TableDef) isStmt()              {}
func (t *TableDef) Span() lexer.Position { return t.Pos }

// Param is a function parameter. An empty Type accepts any value.
type Param struct {
	Pos  lexer.Position
	Name string
	Type string
}

// FuncDef is a function definition. Exactly one of Expr and Body is set.
type FuncDef struct {
	Pos    lexer.Position
	Name   string
	Params []*Param
	Expr   Expr
	Body   []Stmt
}

func (f *FuncDef) isStmt()              {}
func (f *FuncDef) Span() lexer.Position { return f.Pos }

// Assign is `name = value`.
type Assign struct {
	Pos   lexer.Position
	Name  string
	Value Expr
}

func (a *Assign) isStmt()              {}
func (a *Assign) Span() lexer.Position { return a.Pos }

// ExprStmt is an expression evaluated for its value.
type ExprStmt struct {
	Pos lexer.Position
	X   Expr
}

func (e *ExprStmt) isStmt()              {}
func (e *ExprStmt) Span() lexer.Position { return e.Pos }

// Return ends the enclosing function body with Value.
type Return struct {
	Pos   lexer.Position
	Value Expr
}

func (r *Return) isStmt()              {}
func (r *Return) Span() lexer.Position { return r.Pos }
