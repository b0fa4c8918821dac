// Package parser parses Preql source code into internal/ast nodes using
// Participle.
package parser

import (
	"errors"
	"io"
	"strings"

	"github.com/alecthomas/participle/v2"

	"github.com/nosyt-lien/preql/internal/ast"
	"github.com/nosyt-lien/preql/internal/diagnostics"
)

var options = []participle.Option{
	participle.Lexer(PreqlLexer),
	participle.Elide("Whitespace", "Newline", "Comment"),
	participle.Unquote("String"),
	participle.UseLookahead(4),
}

var (
	programParser = participle.MustBuild[rawProgram](options...)
	exprParser    = participle.MustBuild[rawOr](options...)
)

// Parse parses a Preql program from r.
func Parse(filename string, r io.Reader) (*ast.Program, error) {
	raw, err := programParser.Parse(filename, r)
	if err != nil {
		return nil, syntaxError(err)
	}
	prog := &ast.Program{Filename: filename}
	for _, s := range raw.Stmts {
		stmt, err := convertStatement(s)
		if err != nil {
			return nil, err
		}
		prog.Stmts = append(prog.Stmts, stmt)
	}
	return prog, nil
}

// ParseString parses a Preql program from a string.
func ParseString(filename, src string) (*ast.Program, error) {
	return Parse(filename, strings.NewReader(src))
}

// MustParseString parses a Preql program, panicking on error.
func MustParseString(filename, src string) *ast.Program {
	prog, err := ParseString(filename, src)
	if err != nil {
		panic(err)
	}
	return prog
}

// ParseExpr parses a single expression.
func ParseExpr(filename, src string) (ast.Expr, error) {
	raw, err := exprParser.ParseString(filename, src)
	if err != nil {
		return nil, syntaxError(err)
	}
	return convertOr(raw)
}

func syntaxError(err error) error {
	var perr participle.Error
	if errors.As(err, &perr) {
		return diagnostics.New(diagnostics.SyntaxError, "%s", perr.Message()).At(perr.Position())
	}
	return diagnostics.Wrap(diagnostics.SyntaxError, err, "parse failed")
}
