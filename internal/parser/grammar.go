package parser

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// The raw grammar structs mirror the participle parse tree. They are
// converted into internal/ast nodes by convert.go.

type rawProgram struct {
	Stmts []*rawStatement `(@@ ";"?)*`
}

type rawStatement struct {
	Pos    lexer.Position
	Table  *rawTableDef `  @@`
	Func   *rawFuncDef  `| @@`
	Return *rawReturn   `| @@`
	Assign *rawAssign   `| @@`
	Expr   *rawOr       `| @@`
}

type rawTableDef struct {
	Pos     lexer.Position
	Name    string          `"table" @Ident "{"`
	Columns []*rawColumnDef `(@@ ","?)* "}"`
}

type rawColumnDef struct {
	Pos     lexer.Position
	Name    string  `@Ident`
	Type    string  `( ":" @Ident | @Method )`
	Backref *string `( "->" @Ident )?`
}

type rawFuncDef struct {
	Pos    lexer.Position
	Name   string      `"func" @Ident "("`
	Params []*rawParam `( @@ ( "," @@ )* )? ")"`
	Body   *rawBody    `@@`
}

type rawParam struct {
	Pos  lexer.Position
	Name string  `@Ident`
	Type *string `( ":" @Ident | @Method )?`
}

type rawBody struct {
	Expr  *rawOr    `  "=" @@`
	Block *rawBlock `| @@`
}

type rawBlock struct {
	Open  bool            `@"{"`
	Stmts []*rawStatement `( @@ ";"? )* "}"`
}

type rawReturn struct {
	Pos   lexer.Position
	Value *rawOr `"return" @@`
}

type rawAssign struct {
	Pos   lexer.Position
	Name  string `@Ident "="`
	Value *rawOr `@@`
}

// Expressions, lowest precedence first.

type rawOr struct {
	Pos   lexer.Position
	Left  *rawAnd      `@@`
	Right []*rawOrTail `@@*`
}

type rawOrTail struct {
	Pos   lexer.Position
	Op    string  `@( "or" | "||" )`
	Right *rawAnd `@@`
}

type rawAnd struct {
	Pos   lexer.Position
	Left  *rawCompare   `@@`
	Right []*rawAndTail `@@*`
}

type rawAndTail struct {
	Pos   lexer.Position
	Op    string      `@( "and" | "&&" )`
	Right *rawCompare `@@`
}

type rawCompare struct {
	Pos   lexer.Position
	Left  *rawAdditive      `@@`
	Right []*rawCompareTail `@@*`
}

type rawCompareTail struct {
	Pos   lexer.Position
	Op    string       `@( "==" | "!=" | "<=" | ">=" | "<" | ">" | "in" )`
	Right *rawAdditive `@@`
}

type rawAdditive struct {
	Pos   lexer.Position
	Left  *rawMul            `@@`
	Right []*rawAdditiveTail `@@*`
}

type rawAdditiveTail struct {
	Pos   lexer.Position
	Op    string  `@( "+" | "-" )`
	Right *rawMul `@@`
}

type rawMul struct {
	Pos   lexer.Position
	Left  *rawUnary     `@@`
	Right []*rawMulTail `@@*`
}

type rawMulTail struct {
	Pos   lexer.Position
	Op    string    `@( "*" | "/" | "%" )`
	Right *rawUnary `@@`
}

type rawUnary struct {
	Negation *rawNegation `  @@`
	Postfix  *rawPostfix  `| @@`
}

type rawNegation struct {
	Pos lexer.Position
	Op  string    `@( "-" | "not" | "!" )`
	X   *rawUnary `@@`
}

type rawPostfix struct {
	Pos      lexer.Position
	Primary  *rawPrimary  `@@`
	Suffixes []*rawSuffix `@@*`
}

type rawSuffix struct {
	Pos    lexer.Position
	Filter *rawFilter     `  @@`
	Proj   *rawProjection `| @@`
	Attr   *string        `| "." @Ident`
	Method *rawMethod     `| @@`
}

type rawFilter struct {
	Open  bool     `@"["`
	Preds []*rawOr `( @@ ( "," @@ )* )? "]"`
}

type rawProjection struct {
	Open   bool        `@"{"`
	Fields []*rawField `( @@ ( "," @@ )* )? ","?`
	Agg    *rawAggPart `@@? "}"`
}

type rawAggPart struct {
	Arrow  bool        `@"=>"`
	Fields []*rawField `( @@ ( "," @@ )* )? ","?`
}

type rawField struct {
	Pos   lexer.Position
	Name  *string `( @Ident ":" )?`
	Value *rawOr  `@@`
}

type rawMethod struct {
	Pos  lexer.Position
	Name string   `@Method "("`
	Args []*rawOr `( @@ ( "," @@ )* )? ")"`
}

type rawPrimary struct {
	Pos    lexer.Position
	Float  *float64 `  @Float`
	Int    *int64   `| @Int`
	String *string  `| @String`
	Bool   *string  `| @( "true" | "false" )`
	Null   bool     `| @"null"`
	If     *rawIf   `| @@`
	New    *rawNew  `| @@`
	Call   *rawCall `| @@`
	Name   *string  `| @Ident`
	List   *rawList `| @@`
	Paren  *rawOr   `| "(" @@ ")"`
}

type rawIf struct {
	Pos  lexer.Position
	Cond *rawOr `"if" @@`
	Then *rawOr `"then" @@`
	Else *rawOr `"else" @@`
}

type rawNew struct {
	Pos   lexer.Position
	Table string      `"new" @Ident "("`
	Args  []*rawField `( @@ ( "," @@ )* )? ")"`
}

type rawCall struct {
	Pos  lexer.Position
	Func string   `@Ident "("`
	Args []*rawOr `( @@ ( "," @@ )* )? ")"`
}

type rawList struct {
	Open  bool     `@"["`
	Elems []*rawOr `( @@ ( "," @@ )* )? "]"`
}
