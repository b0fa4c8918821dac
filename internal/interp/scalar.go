package interp

import (
	"math"
	"reflect"

	"github.com/nosyt-lien/preql/internal/ast"
	"github.com/nosyt-lien/preql/internal/diagnostics"
	"github.com/nosyt-lien/preql/internal/objects"
	"github.com/nosyt-lien/preql/internal/sqlgen"
	"github.com/nosyt-lien/preql/internal/types"
)

var sqlOps = map[string]string{
	ast.OpAdd: sqlgen.OpAdd,
	ast.OpSub: sqlgen.OpSub,
	ast.OpMul: sqlgen.OpMul,
	ast.OpDiv: sqlgen.OpDiv,
	ast.OpMod: sqlgen.OpMod,
	ast.OpEq:  sqlgen.OpEq,
	ast.OpNe:  sqlgen.OpNe,
	ast.OpLt:  sqlgen.OpLt,
	ast.OpLe:  sqlgen.OpLe,
	ast.OpGt:  sqlgen.OpGt,
	ast.OpGe:  sqlgen.OpGe,
	ast.OpAnd: sqlgen.OpAnd,
	ast.OpOr:  sqlgen.OpOr,
}

func isAny(t types.Type) bool { return types.Is(t, types.Any) }

func isNum(t types.Type) bool {
	return isAny(t) || types.IsSubtype(t, types.Float)
}

func isIntLike(t types.Type) bool {
	return types.IsSubtype(t, types.Int) || isRelation(t)
}

func isRelation(t types.Type) bool {
	_, ok := t.(*types.Relation)
	return ok
}

func isStr(t types.Type) bool {
	return isAny(t) || types.IsSubtype(t, types.String)
}

func isBool(t types.Type) bool {
	return isAny(t) || types.IsSubtype(t, types.Bool)
}

// binaryType checks op over operands of type l and r. It returns the result
// type and the SQL operator implementing it.
func binaryType(op string, l, r types.Type) (types.Type, string, error) {
	mismatch := func() error {
		return diagnostics.New(diagnostics.TypeError, "unsupported operand types for %s: %s and %s", op, l, r)
	}
	// Relation columns hold integer keys.
	if isRelation(l) {
		l = types.Int
	}
	if isRelation(r) {
		r = types.Int
	}

	switch op {
	case ast.OpAdd:
		if isStr(l) && isStr(r) && !(isAny(l) && isAny(r)) && (types.Is(l, types.String) || types.Is(r, types.String)) {
			return types.String, sqlgen.OpConcat, nil
		}
		fallthrough
	case ast.OpSub, ast.OpMul, ast.OpMod:
		if !isNum(l) || !isNum(r) {
			return nil, "", mismatch()
		}
		if isIntLike(l) && isIntLike(r) {
			return types.Int, sqlOps[op], nil
		}
		return types.Float, sqlOps[op], nil

	case ast.OpDiv:
		if !isNum(l) || !isNum(r) {
			return nil, "", mismatch()
		}
		return types.Float, sqlgen.OpDiv, nil

	case ast.OpEq, ast.OpNe:
		if isAny(l) || isAny(r) {
			return types.Bool, sqlOps[op], nil
		}
		if _, err := types.Join(l, r); err != nil {
			return nil, "", mismatch()
		}
		return types.Bool, sqlOps[op], nil

	case ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		if (isNum(l) && isNum(r)) || (isStr(l) && isStr(r)) {
			return types.Bool, sqlOps[op], nil
		}
		return nil, "", mismatch()

	case ast.OpAnd, ast.OpOr:
		if isBool(l) && isBool(r) {
			return types.Bool, sqlOps[op], nil
		}
		return nil, "", mismatch()
	}
	return nil, "", diagnostics.New(diagnostics.TypeError, "unknown operator %s", op)
}

func unaryType(op string, t types.Type) (types.Type, error) {
	switch op {
	case ast.OpNot:
		if isBool(t) {
			return types.Bool, nil
		}
	case ast.OpNeg:
		if isNum(t) {
			if isAny(t) {
				return types.Float, nil
			}
			return t, nil
		}
	}
	return nil, diagnostics.New(diagnostics.TypeError, "unsupported operand type for %s: %s", op, t)
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// hostBinary applies a type checked operator to host values. Null operands
// propagate like in SQL.
func hostBinary(op string, l, r interface{}) (interface{}, error) {
	switch op {
	case ast.OpAnd, ast.OpOr:
		lb, lok := l.(bool)
		rb, rok := r.(bool)
		if op == ast.OpAnd {
			if (lok && !lb) || (rok && !rb) {
				return false, nil
			}
			if lok && rok {
				return true, nil
			}
			return nil, nil
		}
		if (lok && lb) || (rok && rb) {
			return true, nil
		}
		if lok && rok {
			return false, nil
		}
		return nil, nil
	case ast.OpEq:
		return valuesEqual(l, r), nil
	case ast.OpNe:
		return !valuesEqual(l, r), nil
	}

	if l == nil || r == nil {
		return nil, nil
	}

	if ls, ok := l.(string); ok {
		rs, _ := r.(string)
		switch op {
		case ast.OpAdd:
			return ls + rs, nil
		case ast.OpLt:
			return ls < rs, nil
		case ast.OpLe:
			return ls <= rs, nil
		case ast.OpGt:
			return ls > rs, nil
		case ast.OpGe:
			return ls >= rs, nil
		}
	}

	li, lInt := l.(int64)
	ri, rInt := r.(int64)
	lf, _ := toFloat(l)
	rf, _ := toFloat(r)
	bothInt := lInt && rInt

	switch op {
	case ast.OpAdd:
		if bothInt {
			return li + ri, nil
		}
		return lf + rf, nil
	case ast.OpSub:
		if bothInt {
			return li - ri, nil
		}
		return lf - rf, nil
	case ast.OpMul:
		if bothInt {
			return li * ri, nil
		}
		return lf * rf, nil
	case ast.OpDiv:
		if rf == 0 {
			return nil, diagnostics.New(diagnostics.ValueError, "division by zero")
		}
		return lf / rf, nil
	case ast.OpMod:
		if rf == 0 {
			return nil, diagnostics.New(diagnostics.ValueError, "division by zero")
		}
		if bothInt {
			return li % ri, nil
		}
		return math.Mod(lf, rf), nil
	case ast.OpLt:
		return lf < rf, nil
	case ast.OpLe:
		return lf <= rf, nil
	case ast.OpGt:
		return lf > rf, nil
	case ast.OpGe:
		return lf >= rf, nil
	}
	return nil, diagnostics.New(diagnostics.TypeError, "unknown operator %s", op)
}

func hostUnary(op string, v interface{}) interface{} {
	if v == nil {
		return nil
	}
	switch op {
	case ast.OpNot:
		b, _ := v.(bool)
		return !b
	case ast.OpNeg:
		switch x := v.(type) {
		case int64:
			return -x
		case float64:
			return -x
		}
	}
	return v
}

func valuesEqual(a, b interface{}) bool {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
	}
	return reflect.DeepEqual(a, b)
}

func hostIn(x interface{}, list []interface{}) bool {
	for _, e := range list {
		if valuesEqual(x, e) {
			return true
		}
	}
	return false
}

// scalarExpr returns the SQL form of a scalar.
func scalarExpr(s *objects.Scalar) (sqlgen.Expr, error) {
	if s.Lazy() {
		return s.SQL, nil
	}
	switch s.Value.(type) {
	case nil, bool, int64, float64, string:
		return &sqlgen.Literal{Value: s.Value}, nil
	}
	return nil, diagnostics.New(diagnostics.TypeError, "%s cannot be used in a query", s.T)
}

// scalarBinary applies op to two scalars, in process when both are known.
func scalarBinary(op string, l, r *objects.Scalar) (*objects.Scalar, error) {
	t, sqlOp, err := binaryType(op, l.T, r.T)
	if err != nil {
		return nil, err
	}
	if !l.Lazy() && !r.Lazy() {
		v, err := hostBinary(op, l.Value, r.Value)
		if err != nil {
			return nil, err
		}
		return &objects.Scalar{T: t, Value: v}, nil
	}
	le, err := scalarExpr(l)
	if err != nil {
		return nil, err
	}
	re, err := scalarExpr(r)
	if err != nil {
		return nil, err
	}
	return &objects.Scalar{T: t, SQL: &sqlgen.Binary{Op: sqlOp, Left: le, Right: re}}, nil
}

func scalarUnary(op string, x *objects.Scalar) (*objects.Scalar, error) {
	t, err := unaryType(op, x.T)
	if err != nil {
		return nil, err
	}
	if !x.Lazy() {
		return &objects.Scalar{T: t, Value: hostUnary(op, x.Value)}, nil
	}
	return &objects.Scalar{T: t, SQL: unarySQL(op, x.SQL)}, nil
}

func unarySQL(op string, x sqlgen.Expr) sqlgen.Expr {
	if op == ast.OpNot {
		return &sqlgen.Unary{Op: "NOT", X: x}
	}
	return &sqlgen.Unary{Op: "-", X: x}
}
