// Package ast provides the syntax tree of Preql programs.
//
// Nodes are immutable after parsing; the interpreter and the compiler only
// ever read them.
package ast

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// Node is any syntax tree node.
type Node interface {
	// Span returns the source position of the node.
	Span() lexer.Position
}

// Expr is an expression node.
type Expr interface {
	Node
	String() string
	isExpr()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	isStmt()
}

// Program is a parsed compilation unit.
type Program struct {
	Filename string
	Stmts    []Stmt
}

// Tables returns the table definitions of the program in source order.
func (p *Program) Tables() []*TableDef {
	var out []*TableDef
	for _, s := range p.Stmts {
		if t, ok := s.(*TableDef); ok {
			out = append(out, t)
		}
	}
	return out
}
