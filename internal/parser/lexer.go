package parser

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// PreqlLexer defines the token types of the Preql language.
var PreqlLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},

	// Literals (floats before ints)
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
	{Name: "Float", Pattern: `\d+\.\d+`},
	{Name: "Int", Pattern: `\d+`},

	// Arrows must come before single character operators
	{Name: "Arrow", Pattern: `->`},
	{Name: "FatArrow", Pattern: `=>`},
	{Name: "Operator", Pattern: `==|!=|<=|>=|&&|\|\||[-+*/%<>=!]`},

	// A method call is a colon glued to a name: `movies :count()`
	{Name: "Method", Pattern: `:[\p{L}_][\p{L}\p{N}_]*`},
	{Name: "Colon", Pattern: `:`},
	{Name: "Punct", Pattern: `[{}()\[\],.;]`},

	{Name: "Ident", Pattern: `[\p{L}_][\p{L}\p{N}_]*`},

	{Name: "Newline", Pattern: `[\r\n]+`},
	{Name: "Whitespace", Pattern: `[ \t]+`},
})
