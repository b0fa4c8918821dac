package interp

import (
	"context"

	"github.com/Velocidex/ordereddict"

	"github.com/nosyt-lien/preql/internal/ast"
	"github.com/nosyt-lien/preql/internal/diagnostics"
	"github.com/nosyt-lien/preql/internal/objects"
	"github.com/nosyt-lien/preql/internal/sqlgen"
	"github.com/nosyt-lien/preql/internal/types"
)

// filter applies c[preds]. A single constant int predicate indexes.
func (s *State) filter(ctx context.Context, c *objects.Collection, preds []ast.Expr, outer *rowCtx) (*objects.Collection, error) {
	rc := s.newRowCtx(c, outer)
	var conds []sqlgen.Expr
	for _, p := range preds {
		v, err := rc.eval(ctx, p)
		if err != nil {
			return nil, err
		}
		if n, ok := v.value.(int64); ok && v.host && len(preds) == 1 {
			return index(c, n)
		}
		if err := v.scalar("a filter"); err != nil {
			return nil, diagnostics.WithPos(err, p.Span())
		}
		if !isBool(v.typ) {
			return nil, diagnostics.New(diagnostics.TypeError, "filter expects a bool, got %s", v.typ).At(p.Span())
		}
		if b, ok := v.value.(bool); ok && v.host && b {
			continue
		}
		conds = append(conds, v.expr)
	}
	rc.frag.Where = append(rc.frag.Where, conds...)
	return c.With(rc.frag), nil
}

func index(c *objects.Collection, i int64) (*objects.Collection, error) {
	if i < 0 {
		return nil, diagnostics.New(diagnostics.ValueError, "index must not be negative, got %d", i)
	}
	return &objects.Collection{T: c.T, Frag: c.Frag.WithLimit(1, i), Single: true}, nil
}

// project applies c{fields} and c{fields => aggs}.
func (s *State) project(ctx context.Context, c *objects.Collection, p *ast.Projection, outer *rowCtx) (*objects.Collection, error) {
	rc := s.newRowCtx(c, outer)
	var (
		fields  []sqlgen.Field
		tfields []types.Field
		group   []sqlgen.Expr
	)
	seen := map[string]bool{}
	add := func(fd *ast.Field, expr sqlgen.Expr, t types.Type) error {
		label := fd.Label()
		if label == "" {
			return diagnostics.New(diagnostics.TypeError, "projected expression %s needs a name", fd.Value).At(fd.Pos)
		}
		if seen[label] {
			return diagnostics.New(diagnostics.TypeError, "field %q is projected twice", label).At(fd.Pos)
		}
		seen[label] = true
		fields = append(fields, sqlgen.Field{Name: label, Expr: expr})
		tfields = append(tfields, types.Field{Name: label, Type: t})
		return nil
	}

	for _, fd := range p.Fields {
		v, err := rc.eval(ctx, fd.Value)
		if err != nil {
			return nil, err
		}
		expr, t := v.expr, v.typ
		if v.nav != nil && v.nav.column != "" {
			// One output row per (row, referencing row) pair.
			expr, t = rc.joined(v.nav)
		} else if err := v.scalar("a projected field"); err != nil {
			return nil, diagnostics.WithPos(err, fd.Pos)
		}
		if err := add(fd, expr, t); err != nil {
			return nil, err
		}
		if p.HasAgg {
			group = append(group, expr)
		}
	}

	if !p.HasAgg {
		if len(fields) == 0 {
			return nil, diagnostics.New(diagnostics.TypeError, "projection selects no fields").At(p.Pos)
		}
		f := rc.frag.WithFields(fields...)
		return &objects.Collection{T: projected(c, tfields), Frag: f, Single: c.Single}, nil
	}

	rc.agg = true
	for _, fd := range p.Aggs {
		v, err := rc.eval(ctx, fd.Value)
		if err != nil {
			return nil, err
		}
		var (
			expr sqlgen.Expr
			t    types.Type
		)
		switch {
		case v.agg || (v.host && v.expr != nil):
			expr, t = v.expr, v.typ
		case v.nav != nil:
			expr, t, err = rc.navAggregate("list", v.nav)
			if err != nil {
				return nil, diagnostics.WithPos(err, fd.Pos)
			}
		default:
			if err := v.scalar("an aggregated field"); err != nil {
				return nil, diagnostics.WithPos(err, fd.Pos)
			}
			elem := v.typ
			if isRelation(elem) {
				elem = types.Int
			}
			expr, t = &sqlgen.ListAgg{Arg: v.expr}, &types.Collection{Elem: elem, Ordered: true}
		}
		if err := add(fd, expr, t); err != nil {
			return nil, err
		}
	}
	f := rc.frag.WithAggregate(fields, group)
	return &objects.Collection{T: projected(c, tfields), Frag: f}, nil
}

func projected(c *objects.Collection, fields []types.Field) *types.Collection {
	return &types.Collection{Elem: types.NewStruct(fields...), Ordered: c.T.Ordered}
}

// order sorts c by keys; a negated key sorts descending.
func (s *State) order(ctx context.Context, c *objects.Collection, keys []ast.Expr, outer *rowCtx) (*objects.Collection, error) {
	if len(keys) == 0 {
		return nil, diagnostics.New(diagnostics.TypeError, "order() expects at least one key")
	}
	rc := s.newRowCtx(c, outer)
	orders := make([]sqlgen.Order, 0, len(keys))
	for _, k := range keys {
		desc := false
		if u, ok := k.(*ast.UnaryOp); ok && u.Op == ast.OpNeg {
			desc = true
			k = u.X
		}
		v, err := rc.eval(ctx, k)
		if err != nil {
			return nil, err
		}
		if err := v.scalar("an order key"); err != nil {
			return nil, diagnostics.WithPos(err, k.Span())
		}
		orders = append(orders, sqlgen.Order{Expr: v.expr, Desc: desc})
	}
	rc.frag.Order = orders
	t := &types.Collection{Elem: c.T.Elem, Ordered: true}
	if name, ok := types.TableName(c.T); ok {
		t = types.WithOption(t, types.OptName, name).(*types.Collection)
	}
	return &objects.Collection{T: t, Frag: rc.frag, Single: c.Single}, nil
}

// limitCollection applies limit(c, n) or limit(c, n, offset).
func limitCollection(c *objects.Collection, nums []int64) (*objects.Collection, error) {
	var offset int64
	if len(nums) > 1 {
		offset = nums[1]
	}
	if nums[0] < 0 {
		return nil, diagnostics.New(diagnostics.ValueError, "limit must not be negative, got %d", nums[0])
	}
	if offset < 0 {
		return nil, diagnostics.New(diagnostics.ValueError, "offset must not be negative, got %d", offset)
	}
	return c.With(c.Frag.WithLimit(nums[0], offset)), nil
}

// collectionAttr is c.name: a column, a backref, or a step along the single
// relation column of c.
func (s *State) collectionAttr(c *objects.Collection, name string) (*objects.Collection, error) {
	row := c.Row()
	if t, ok := row.Field(name); ok {
		p := c.Frag.Plain()
		f := p.WithFields(sqlgen.Field{Name: name, Expr: &sqlgen.Column{Table: p.Alias, Name: name}})
		ct := &types.Collection{Elem: types.NewStruct(types.Field{Name: name, Type: t}), Ordered: c.T.Ordered}
		return &objects.Collection{T: ct, Frag: f, Single: c.Single}, nil
	}

	if table, ok := types.TableName(row); ok {
		if ref, ok := s.schema.Backref(table, name); ok {
			return s.backrefCollection(c, ref)
		}
	}

	if len(row.Fields) == 1 {
		if rel, ok := row.Fields[0].Type.(*types.Relation); ok {
			rc := s.newRowCtx(c, nil)
			col, err := rc.name(row.Fields[0].Name)
			if err != nil {
				return nil, err
			}
			v, err := rc.forward(col, rel, name)
			if err != nil {
				return nil, err
			}
			f := rc.frag.WithFields(sqlgen.Field{Name: name, Expr: v.expr})
			ct := &types.Collection{Elem: types.NewStruct(types.Field{Name: name, Type: v.typ}), Ordered: c.T.Ordered}
			return &objects.Collection{T: ct, Frag: f, Single: c.Single}, nil
		}
	}
	return nil, diagnostics.New(diagnostics.NameError, "%s has no attribute %q", c.T, name)
}

// backrefCollection selects the rows of ref.Table referencing any row of c.
func (s *State) backrefCollection(c *objects.Collection, ref types.Backref) (*objects.Collection, error) {
	t, ok := s.schema.Table(ref.Table)
	if !ok {
		return nil, diagnostics.New(diagnostics.NameError, "table %q is not defined", ref.Table)
	}
	p := c.Frag.Plain()
	ids := p.WithFields(sqlgen.Field{Name: types.IDColumn, Expr: &sqlgen.Column{Table: p.Alias, Name: types.IDColumn}})
	f := sqlgen.FromTable(ref.Table).WithWhere(&sqlgen.In{X: &sqlgen.Column{Table: ref.Table, Name: ref.Column}, Sub: ids})
	return &objects.Collection{T: t, Frag: f}, nil
}

// rowAttr is row.name for a localized row.
func (s *State) rowAttr(row *ordereddict.Dict, t types.Type, name string) (objects.Instance, error) {
	st, _ := t.(*types.Struct)
	if v, ok := row.Get(name); ok {
		ft := objects.TypeOf(v)
		if st != nil {
			if declared, ok := st.Field(name); ok {
				ft = declared
			}
		}
		return &objects.Scalar{T: ft, Value: v}, nil
	}
	if table, ok := types.TableName(t); ok {
		if ref, ok := s.schema.Backref(table, name); ok {
			tt, ok := s.schema.Table(ref.Table)
			if !ok {
				return nil, diagnostics.New(diagnostics.NameError, "table %q is not defined", ref.Table)
			}
			id, _ := row.Get(types.IDColumn)
			f := sqlgen.FromTable(ref.Table).WithWhere(sqlgen.Eq(&sqlgen.Column{Table: ref.Table, Name: ref.Column}, &sqlgen.Literal{Value: id}))
			return &objects.Collection{T: tt, Frag: f}, nil
		}
	}
	return nil, diagnostics.New(diagnostics.NameError, "row has no attribute %q", name)
}

// scalarAttr is x.name for a scalar: a row field, a backref of a row, or a
// step along a relation key.
func (s *State) scalarAttr(ctx context.Context, x *objects.Scalar, name string) (objects.Instance, error) {
	if row, ok := x.Row(); ok {
		return s.rowAttr(row, x.T, name)
	}
	if rel, ok := x.T.(*types.Relation); ok && !x.Lazy() {
		target, ok := s.table(rel.TargetName)
		if !ok {
			return nil, diagnostics.New(diagnostics.NameError, "table %q is not defined", rel.TargetName)
		}
		f := target.Frag.WithWhere(sqlgen.Eq(&sqlgen.Column{Table: target.Frag.Alias, Name: types.IDColumn}, &sqlgen.Literal{Value: x.Value}))
		single := &objects.Collection{T: target.T, Frag: f.WithLimit(1, 0), Single: true}
		return s.collectionAttr(single, name)
	}
	return nil, diagnostics.New(diagnostics.TypeError, "%s has no attribute %q", x.T, name)
}

// oneColumn returns the fragment of c projected to its single column, and
// that column's type.
func oneColumn(c *objects.Collection) (*sqlgen.Fragment, types.Type, error) {
	row := c.Row()
	if len(row.Fields) != 1 {
		return nil, nil, diagnostics.New(diagnostics.TypeError, "expected a collection with exactly one column, got %s", c.T)
	}
	col := row.Fields[0]
	if len(c.Frag.Fields) == 1 {
		return c.Frag, col.Type, nil
	}
	p := c.Frag.Plain()
	return p.WithFields(sqlgen.Field{Name: col.Name, Expr: &sqlgen.Column{Table: p.Alias, Name: col.Name}}), col.Type, nil
}

// aggregateCollection applies an aggregate builtin to a whole collection,
// producing a lazy scalar.
func aggregateCollection(fn string, c *objects.Collection) (*objects.Scalar, error) {
	if fn == "count" {
		return &objects.Scalar{T: types.Int, SQL: &sqlgen.Subquery{F: sqlgen.CountOf(c.Frag)}}, nil
	}
	f, elem, err := oneColumn(c)
	if err != nil {
		return nil, diagnostics.New(diagnostics.TypeError, "%s() expects a collection with exactly one column, got %s", fn, c.T)
	}
	t, err := aggType(fn, elem)
	if err != nil {
		return nil, err
	}
	if fn == "list" {
		src := f.Wrap()
		src.Fields = []sqlgen.Field{{Name: "list", Expr: &sqlgen.ListAgg{Arg: &sqlgen.Column{Table: src.Alias, Name: f.Fields[0].Name}}}}
		src.Aggregate = true
		return &objects.Scalar{T: t, SQL: &sqlgen.Subquery{F: src}}, nil
	}
	agg, err := sqlgen.AggregateOf(fn, f)
	if err != nil {
		return nil, err
	}
	return &objects.Scalar{T: t, SQL: &sqlgen.Subquery{F: agg}}, nil
}

// aggregateList applies an aggregate builtin to a host list.
func aggregateList(fn string, list []interface{}) (*objects.Scalar, error) {
	var items []interface{}
	for _, v := range list {
		if v != nil {
			items = append(items, v)
		}
	}
	switch fn {
	case "count":
		return objects.NewScalar(int64(len(items))), nil
	case "list":
		return objects.NewScalar(list), nil
	}
	if len(items) == 0 {
		return objects.Null(), nil
	}
	acc := items[0]
	for _, v := range items[1:] {
		var err error
		switch fn {
		case "sum", "avg":
			acc, err = hostBinary(ast.OpAdd, acc, v)
		case "min":
			var less interface{}
			less, err = hostBinary(ast.OpLt, v, acc)
			if b, _ := less.(bool); b {
				acc = v
			}
		case "max":
			var more interface{}
			more, err = hostBinary(ast.OpGt, v, acc)
			if b, _ := more.(bool); b {
				acc = v
			}
		}
		if err != nil {
			return nil, err
		}
	}
	if fn == "avg" {
		f, ok := toFloat(acc)
		if !ok {
			return nil, diagnostics.New(diagnostics.TypeError, "avg() expects numbers")
		}
		return objects.NewScalar(f / float64(len(items))), nil
	}
	if fn == "sum" {
		if _, ok := toFloat(acc); !ok {
			return nil, diagnostics.New(diagnostics.TypeError, "sum() expects numbers")
		}
	}
	return objects.NewScalar(acc), nil
}
