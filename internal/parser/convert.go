package parser

import (
	"strings"

	"github.com/nosyt-lien/preql/internal/ast"
	"github.com/nosyt-lien/preql/internal/diagnostics"
)

func convertStatement(s *rawStatement) (ast.Stmt, error) {
	switch {
	case s.Table != nil:
		return convertTable(s.Table), nil

	case s.Func != nil:
		return convertFunc(s.Func)

	case s.Return != nil:
		v, err := convertOr(s.Return.Value)
		if err != nil {
			return nil, err
		}
		return &ast.Return{Pos: s.Return.Pos, Value: v}, nil

	case s.Assign != nil:
		v, err := convertOr(s.Assign.Value)
		if err != nil {
			return nil, err
		}
		return &ast.Assign{Pos: s.Assign.Pos, Name: s.Assign.Name, Value: v}, nil

	case s.Expr != nil:
		x, err := convertOr(s.Expr)
		if err != nil {
			return nil, err
		}
		return &ast.ExprStmt{Pos: s.Pos, X: x}, nil
	}
	return nil, diagnostics.New(diagnostics.SyntaxError, "empty statement").At(s.Pos)
}

func convertTable(t *rawTableDef) *ast.TableDef {
	def := &ast.TableDef{Pos: t.Pos, Name: t.Name}
	for _, c := range t.Columns {
		col := &ast.ColumnDef{Pos: c.Pos, Name: c.Name, Type: strings.TrimPrefix(c.Type, ":")}
		if c.Backref != nil {
			col.Backref = *c.Backref
		}
		def.Columns = append(def.Columns, col)
	}
	return def
}

func convertFunc(f *rawFuncDef) (*ast.FuncDef, error) {
	def := &ast.FuncDef{Pos: f.Pos, Name: f.Name}
	for _, p := range f.Params {
		param := &ast.Param{Pos: p.Pos, Name: p.Name}
		if p.Type != nil {
			param.Type = strings.TrimPrefix(*p.Type, ":")
		}
		def.Params = append(def.Params, param)
	}

	switch {
	case f.Body.Expr != nil:
		x, err := convertOr(f.Body.Expr)
		if err != nil {
			return nil, err
		}
		def.Expr = x
	case f.Body.Block != nil:
		def.Body = []ast.Stmt{}
		for _, s := range f.Body.Block.Stmts {
			stmt, err := convertStatement(s)
			if err != nil {
				return nil, err
			}
			def.Body = append(def.Body, stmt)
		}
	}
	return def, nil
}

func convertOr(r *rawOr) (ast.Expr, error) {
	left, err := convertAnd(r.Left)
	if err != nil {
		return nil, err
	}
	for _, t := range r.Right {
		right, err := convertAnd(t.Right)
		if err != nil {
			return nil, err
		}
		left = &ast.BinOp{Pos: t.Pos, Op: ast.OpOr, Left: left, Right: right}
	}
	return left, nil
}

func convertAnd(r *rawAnd) (ast.Expr, error) {
	left, err := convertCompare(r.Left)
	if err != nil {
		return nil, err
	}
	for _, t := range r.Right {
		right, err := convertCompare(t.Right)
		if err != nil {
			return nil, err
		}
		left = &ast.BinOp{Pos: t.Pos, Op: ast.OpAnd, Left: left, Right: right}
	}
	return left, nil
}

func convertCompare(r *rawCompare) (ast.Expr, error) {
	left, err := convertAdditive(r.Left)
	if err != nil {
		return nil, err
	}
	for _, t := range r.Right {
		right, err := convertAdditive(t.Right)
		if err != nil {
			return nil, err
		}
		left = &ast.BinOp{Pos: t.Pos, Op: t.Op, Left: left, Right: right}
	}
	return left, nil
}

func convertAdditive(r *rawAdditive) (ast.Expr, error) {
	left, err := convertMul(r.Left)
	if err != nil {
		return nil, err
	}
	for _, t := range r.Right {
		right, err := convertMul(t.Right)
		if err != nil {
			return nil, err
		}
		left = &ast.BinOp{Pos: t.Pos, Op: t.Op, Left: left, Right: right}
	}
	return left, nil
}

func convertMul(r *rawMul) (ast.Expr, error) {
	left, err := convertUnary(r.Left)
	if err != nil {
		return nil, err
	}
	for _, t := range r.Right {
		right, err := convertUnary(t.Right)
		if err != nil {
			return nil, err
		}
		left = &ast.BinOp{Pos: t.Pos, Op: t.Op, Left: left, Right: right}
	}
	return left, nil
}

func convertUnary(r *rawUnary) (ast.Expr, error) {
	if r.Negation != nil {
		x, err := convertUnary(r.Negation.X)
		if err != nil {
			return nil, err
		}
		op := ast.OpNeg
		if r.Negation.Op != "-" {
			op = ast.OpNot
		}
		// Fold negative literals so `-1` indexes like `1`.
		if c, ok := x.(*ast.Const); ok && op == ast.OpNeg {
			switch v := c.Value.(type) {
			case int64:
				return &ast.Const{Pos: r.Negation.Pos, Value: -v}, nil
			case float64:
				return &ast.Const{Pos: r.Negation.Pos, Value: -v}, nil
			}
		}
		return &ast.UnaryOp{Pos: r.Negation.Pos, Op: op, X: x}, nil
	}
	return convertPostfix(r.Postfix)
}

func convertPostfix(r *rawPostfix) (ast.Expr, error) {
	x, err := convertPrimary(r.Primary)
	if err != nil {
		return nil, err
	}
	for _, s := range r.Suffixes {
		switch {
		case s.Filter != nil:
			preds, err := convertExprs(s.Filter.Preds)
			if err != nil {
				return nil, err
			}
			x = &ast.Filter{Pos: s.Pos, X: x, Preds: preds}

		case s.Proj != nil:
			fields, err := convertFields(s.Proj.Fields)
			if err != nil {
				return nil, err
			}
			p := &ast.Projection{Pos: s.Pos, X: x, Fields: fields}
			if s.Proj.Agg != nil {
				aggs, err := convertFields(s.Proj.Agg.Fields)
				if err != nil {
					return nil, err
				}
				p.Aggs = aggs
				p.HasAgg = true
			}
			x = p

		case s.Attr != nil:
			x = &ast.Attr{Pos: s.Pos, X: x, Name: *s.Attr}

		case s.Method != nil:
			args, err := convertExprs(s.Method.Args)
			if err != nil {
				return nil, err
			}
			x = &ast.Call{
				Pos:  s.Method.Pos,
				Func: strings.TrimPrefix(s.Method.Name, ":"),
				Args: append([]ast.Expr{x}, args...),
			}
		}
	}
	return x, nil
}

func convertPrimary(p *rawPrimary) (ast.Expr, error) {
	switch {
	case p.Float != nil:
		return &ast.Const{Pos: p.Pos, Value: *p.Float}, nil
	case p.Int != nil:
		return &ast.Const{Pos: p.Pos, Value: *p.Int}, nil
	case p.String != nil:
		return &ast.Const{Pos: p.Pos, Value: *p.String}, nil
	case p.Bool != nil:
		return &ast.Const{Pos: p.Pos, Value: *p.Bool == "true"}, nil
	case p.Null:
		return &ast.Const{Pos: p.Pos, Value: nil}, nil

	case p.If != nil:
		c, err := convertOr(p.If.Cond)
		if err != nil {
			return nil, err
		}
		t, err := convertOr(p.If.Then)
		if err != nil {
			return nil, err
		}
		e, err := convertOr(p.If.Else)
		if err != nil {
			return nil, err
		}
		return &ast.Cond{Pos: p.Pos, If: c, Then: t, Else: e}, nil

	case p.New != nil:
		args, err := convertFields(p.New.Args)
		if err != nil {
			return nil, err
		}
		return &ast.New{Pos: p.Pos, Table: p.New.Table, Args: args}, nil

	case p.Call != nil:
		args, err := convertExprs(p.Call.Args)
		if err != nil {
			return nil, err
		}
		return &ast.Call{Pos: p.Pos, Func: p.Call.Func, Args: args}, nil

	case p.Name != nil:
		return &ast.Name{Pos: p.Pos, Name: *p.Name}, nil

	case p.List != nil:
		elems, err := convertExprs(p.List.Elems)
		if err != nil {
			return nil, err
		}
		return &ast.List{Pos: p.Pos, Elems: elems}, nil

	case p.Paren != nil:
		return convertOr(p.Paren)
	}
	return nil, diagnostics.New(diagnostics.SyntaxError, "expected expression").At(p.Pos)
}

func convertExprs(rs []*rawOr) ([]ast.Expr, error) {
	out := make([]ast.Expr, 0, len(rs))
	for _, r := range rs {
		e, err := convertOr(r)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func convertFields(rs []*rawField) ([]*ast.Field, error) {
	out := make([]*ast.Field, 0, len(rs))
	for _, r := range rs {
		v, err := convertOr(r.Value)
		if err != nil {
			return nil, err
		}
		f := &ast.Field{Pos: r.Pos, Value: v}
		if r.Name != nil {
			f.Name = *r.Name
		}
		out = append(out, f)
	}
	return out, nil
}
