package interp

import (
	"context"

	"github.com/nosyt-lien/preql/internal/ast"
	"github.com/nosyt-lien/preql/internal/diagnostics"
	"github.com/nosyt-lien/preql/internal/objects"
	"github.com/nosyt-lien/preql/internal/sqlgen"
	"github.com/nosyt-lien/preql/internal/types"
)

// Evaluate computes the Instance of e in the current namespace. Building
// collections never queries the database.
func (s *State) Evaluate(ctx context.Context, e ast.Expr) (objects.Instance, error) {
	v, err := s.eval(ctx, e)
	if err != nil {
		return nil, diagnostics.WithPos(err, e.Span())
	}
	return v, nil
}

func (s *State) eval(ctx context.Context, e ast.Expr) (objects.Instance, error) {
	switch n := e.(type) {
	case *ast.Const:
		return objects.NewScalar(n.Value), nil

	case *ast.Name:
		return s.Lookup(n.Name)

	case *ast.Attr:
		x, err := s.Evaluate(ctx, n.X)
		if err != nil {
			return nil, err
		}
		switch v := x.(type) {
		case *objects.Collection:
			return s.collectionAttr(v, n.Name)
		case *objects.Scalar:
			return s.scalarAttr(ctx, v, n.Name)
		}
		return nil, diagnostics.New(diagnostics.TypeError, "%s has no attribute %q", x, n.Name)

	case *ast.Call:
		return s.call(ctx, n)

	case *ast.Filter:
		x, err := s.Evaluate(ctx, n.X)
		if err != nil {
			return nil, err
		}
		switch v := x.(type) {
		case *objects.Collection:
			return s.filter(ctx, v, n.Preds, nil)
		case *objects.Scalar:
			return s.indexList(ctx, v, n.Preds)
		}
		return nil, diagnostics.New(diagnostics.TypeError, "cannot filter %s", x)

	case *ast.Projection:
		x, err := s.Evaluate(ctx, n.X)
		if err != nil {
			return nil, err
		}
		c, ok := x.(*objects.Collection)
		if !ok {
			return nil, diagnostics.New(diagnostics.TypeError, "cannot project %s", x.Type())
		}
		return s.project(ctx, c, n, nil)

	case *ast.List:
		items := make([]interface{}, len(n.Elems))
		for i, el := range n.Elems {
			v, err := s.Evaluate(ctx, el)
			if err != nil {
				return nil, err
			}
			sc, ok := v.(*objects.Scalar)
			if !ok || sc.Lazy() {
				return nil, diagnostics.New(diagnostics.TypeError, "list elements must be constants").At(el.Span())
			}
			items[i] = sc.Value
		}
		return objects.NewScalar(items), nil

	case *ast.BinOp:
		return s.binary(ctx, n)

	case *ast.UnaryOp:
		x, err := s.Evaluate(ctx, n.X)
		if err != nil {
			return nil, err
		}
		sc, ok := x.(*objects.Scalar)
		if !ok {
			return nil, diagnostics.New(diagnostics.TypeError, "unsupported operand type for %s: %s", n.Op, x.Type())
		}
		return scalarUnary(n.Op, sc)

	case *ast.Cond:
		return s.cond(ctx, n)

	case *ast.New:
		return s.insert(ctx, n)
	}
	return nil, diagnostics.New(diagnostics.TypeError, "unsupported expression %s", e)
}

func (s *State) binary(ctx context.Context, n *ast.BinOp) (objects.Instance, error) {
	l, err := s.Evaluate(ctx, n.Left)
	if err != nil {
		return nil, err
	}
	r, err := s.Evaluate(ctx, n.Right)
	if err != nil {
		return nil, err
	}
	ls, lok := l.(*objects.Scalar)
	if n.Op == ast.OpIn && lok {
		switch rv := r.(type) {
		case *objects.Collection:
			sub, _, err := oneColumn(rv)
			if err != nil {
				return nil, err
			}
			x, err := scalarExpr(ls)
			if err != nil {
				return nil, err
			}
			return &objects.Scalar{T: types.Bool, SQL: &sqlgen.In{X: x, Sub: sub}}, nil
		case *objects.Scalar:
			list, ok := rv.Value.([]interface{})
			if !ok || rv.Lazy() {
				return nil, diagnostics.New(diagnostics.TypeError, "in expects a list or a collection, got %s", rv.T)
			}
			if !ls.Lazy() {
				return objects.NewScalar(hostIn(ls.Value, list)), nil
			}
			items := make([]sqlgen.Expr, len(list))
			for i, v := range list {
				items[i] = &sqlgen.Literal{Value: v}
			}
			return &objects.Scalar{T: types.Bool, SQL: &sqlgen.In{X: ls.SQL, List: items}}, nil
		}
	}
	rs, rok := r.(*objects.Scalar)
	if !lok || !rok || n.Op == ast.OpIn {
		return nil, diagnostics.New(diagnostics.TypeError, "unsupported operand types for %s: %s and %s", n.Op, l.Type(), r.Type())
	}
	return scalarBinary(n.Op, ls, rs)
}

func (s *State) cond(ctx context.Context, n *ast.Cond) (objects.Instance, error) {
	c, err := s.Evaluate(ctx, n.If)
	if err != nil {
		return nil, err
	}
	sc, ok := c.(*objects.Scalar)
	if !ok || !isBool(sc.T) {
		return nil, diagnostics.New(diagnostics.TypeError, "condition must be a bool, got %s", c.Type()).At(n.If.Span())
	}
	if !sc.Lazy() {
		if b, _ := sc.Value.(bool); b {
			return s.Evaluate(ctx, n.Then)
		}
		return s.Evaluate(ctx, n.Else)
	}

	a, err := s.Evaluate(ctx, n.Then)
	if err != nil {
		return nil, err
	}
	b, err := s.Evaluate(ctx, n.Else)
	if err != nil {
		return nil, err
	}
	as, aok := a.(*objects.Scalar)
	bs, bok := b.(*objects.Scalar)
	if !aok || !bok {
		return nil, diagnostics.New(diagnostics.TypeError, "branches of a query condition must be scalars")
	}
	t, err := types.Join(as.T, bs.T)
	if err != nil {
		return nil, err
	}
	ae, err := scalarExpr(as)
	if err != nil {
		return nil, err
	}
	be, err := scalarExpr(bs)
	if err != nil {
		return nil, err
	}
	return &objects.Scalar{T: t, SQL: &sqlgen.Case{When: sc.SQL, Then: ae, Else: be}}, nil
}

// indexList indexes a host list with one constant int.
func (s *State) indexList(ctx context.Context, x *objects.Scalar, preds []ast.Expr) (objects.Instance, error) {
	list, ok := x.Value.([]interface{})
	if !ok || x.Lazy() || len(preds) != 1 {
		return nil, diagnostics.New(diagnostics.TypeError, "cannot filter %s", x.T)
	}
	iv, err := s.Evaluate(ctx, preds[0])
	if err != nil {
		return nil, err
	}
	is, ok := iv.(*objects.Scalar)
	if !ok || is.Lazy() {
		return nil, diagnostics.New(diagnostics.TypeError, "list index must be an int, got %s", iv.Type())
	}
	i, ok := is.Value.(int64)
	if !ok {
		return nil, diagnostics.New(diagnostics.TypeError, "list index must be an int, got %s", is.T)
	}
	if i < 0 {
		return nil, diagnostics.New(diagnostics.ValueError, "index must not be negative, got %d", i)
	}
	if i >= int64(len(list)) {
		return nil, diagnostics.New(diagnostics.ValueError, "index %d out of range", i)
	}
	return objects.NewScalar(list[i]), nil
}

// call evaluates a function call outside of a row context.
func (s *State) call(ctx context.Context, n *ast.Call) (objects.Instance, error) {
	inst, ok := s.ns.Get(n.Func)
	if !ok {
		return nil, diagnostics.New(diagnostics.NameError, "function %q is not defined", n.Func)
	}
	fn, ok := inst.(*objects.Function)
	if !ok {
		return nil, diagnostics.New(diagnostics.TypeError, "%q is not callable", n.Func)
	}

	if fn.Special {
		return s.special(ctx, fn, n)
	}

	args := make([]objects.Instance, len(n.Args))
	for i, a := range n.Args {
		v, err := s.Evaluate(ctx, a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return s.CallFunc(ctx, fn, args, n.Pos)
}

// special evaluates builtins whose arguments are row expressions.
func (s *State) special(ctx context.Context, fn *objects.Function, n *ast.Call) (objects.Instance, error) {
	switch fn.Name {
	case "order":
		if len(n.Args) == 0 {
			return nil, diagnostics.New(diagnostics.TypeError, "order() expects a collection")
		}
		x, err := s.Evaluate(ctx, n.Args[0])
		if err != nil {
			return nil, err
		}
		c, ok := x.(*objects.Collection)
		if !ok {
			return nil, diagnostics.New(diagnostics.TypeError, "order() expects a collection, got %s", x.Type())
		}
		return s.order(ctx, c, n.Args[1:], nil)
	}
	return nil, diagnostics.New(diagnostics.NameError, "function %q is not defined", fn.Name)
}
