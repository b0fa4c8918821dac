package interp

import (
	"context"
	"strconv"

	"github.com/nosyt-lien/preql/internal/ast"
	"github.com/nosyt-lien/preql/internal/diagnostics"
	"github.com/nosyt-lien/preql/internal/objects"
	"github.com/nosyt-lien/preql/internal/sqlgen"
	"github.com/nosyt-lien/preql/internal/types"
)

// rowCtx evaluates expressions over the rows of one fragment, inside
// brackets or braces. Navigations add joins to frag in place; frag is always
// a private copy.
type rowCtx struct {
	s      *State
	frag   *sqlgen.Fragment
	row    *types.Struct
	table  string
	ns     *objects.Namespace
	locals map[string]rval
	outer  *rowCtx
	// agg is set on the value side of `=>`.
	agg bool
}

// rval is the value of an expression in a row context.
type rval struct {
	expr  sqlgen.Expr
	typ   types.Type
	host  bool
	value interface{}
	// path identifies a column reached through forward relations, so that
	// repeated navigations share one join.
	path string
	agg  bool
	coll *objects.Collection
	nav  *navigation
	fn   *objects.Function
}

// navigation is a backref taken from the current row, optionally narrowed
// to one column of the referencing table.
type navigation struct {
	ref    types.Backref
	parent sqlgen.Expr
	column string
	key    string
}

func (s *State) newRowCtx(c *objects.Collection, outer *rowCtx) *rowCtx {
	f := c.Frag
	if outer != nil {
		f = f.Beneath(outer.frag)
	}
	f = f.Plain().Clone()
	row := c.Row()
	table, _ := types.TableName(row)
	if _, ok := row.Field(types.IDColumn); !ok {
		table = ""
	}
	rc := &rowCtx{s: s, frag: f, row: row, table: table, ns: s.ns, outer: outer}
	if outer != nil {
		rc.ns = outer.ns
	}
	return rc
}

func (rc *rowCtx) taken(alias string) bool {
	for c := rc; c != nil; c = c.outer {
		for _, a := range c.frag.Aliases() {
			if a == alias {
				return true
			}
		}
	}
	return false
}

func hostRval(v interface{}, t types.Type) rval {
	r := rval{typ: t, host: true, value: v}
	switch v.(type) {
	case nil, bool, int64, float64, string:
		r.expr = &sqlgen.Literal{Value: v}
	}
	return r
}

func instanceRval(inst objects.Instance) rval {
	switch v := inst.(type) {
	case *objects.Scalar:
		if v.Lazy() {
			return rval{expr: v.SQL, typ: v.T}
		}
		return hostRval(v.Value, v.T)
	case *objects.Collection:
		return rval{coll: v, typ: v.T}
	case *objects.Function:
		return rval{fn: v, typ: v.Type()}
	}
	return rval{typ: types.Any}
}

// scalar reports an error unless v is a single value usable in SQL.
func (v rval) scalar(what string) error {
	switch {
	case v.coll != nil || v.nav != nil:
		return diagnostics.New(diagnostics.TypeError, "cannot use a collection as %s", what)
	case v.fn != nil:
		return diagnostics.New(diagnostics.TypeError, "cannot use a function as %s", what)
	case v.expr == nil:
		return diagnostics.New(diagnostics.TypeError, "%s cannot be used in a query", v.typ)
	}
	return nil
}

func (rc *rowCtx) eval(ctx context.Context, e ast.Expr) (rval, error) {
	v, err := rc.evalNode(ctx, e)
	if err != nil {
		return rval{}, diagnostics.WithPos(err, e.Span())
	}
	return v, nil
}

func (rc *rowCtx) evalNode(ctx context.Context, e ast.Expr) (rval, error) {
	switch n := e.(type) {
	case *ast.Const:
		return hostRval(n.Value, objects.TypeOf(n.Value)), nil

	case *ast.Name:
		return rc.name(n.Name)

	case *ast.Attr:
		x, err := rc.eval(ctx, n.X)
		if err != nil {
			return rval{}, err
		}
		return rc.attr(ctx, x, n.Name)

	case *ast.Call:
		return rc.call(ctx, n)

	case *ast.BinOp:
		return rc.binary(ctx, n)

	case *ast.UnaryOp:
		x, err := rc.eval(ctx, n.X)
		if err != nil {
			return rval{}, err
		}
		if err := x.scalar("an operand"); err != nil {
			return rval{}, err
		}
		t, err := unaryType(n.Op, x.typ)
		if err != nil {
			return rval{}, err
		}
		if x.host {
			return hostRval(hostUnary(n.Op, x.value), t), nil
		}
		return rval{expr: unarySQL(n.Op, x.expr), typ: t, agg: x.agg}, nil

	case *ast.Cond:
		return rc.cond(ctx, n)

	case *ast.List:
		items := make([]interface{}, len(n.Elems))
		for i, el := range n.Elems {
			v, err := rc.eval(ctx, el)
			if err != nil {
				return rval{}, err
			}
			if !v.host {
				return rval{}, diagnostics.New(diagnostics.TypeError, "list elements must be constants")
			}
			items[i] = v.value
		}
		return hostRval(items, objects.TypeOf(items)), nil

	case *ast.Filter:
		x, err := rc.eval(ctx, n.X)
		if err != nil {
			return rval{}, err
		}
		if x.coll == nil {
			return rval{}, diagnostics.New(diagnostics.TypeError, "cannot filter %s", x.typ)
		}
		c, err := rc.s.filter(ctx, x.coll, n.Preds, rc)
		if err != nil {
			return rval{}, err
		}
		return rval{coll: c, typ: c.T}, nil

	case *ast.Projection:
		x, err := rc.eval(ctx, n.X)
		if err != nil {
			return rval{}, err
		}
		if x.coll == nil {
			return rval{}, diagnostics.New(diagnostics.TypeError, "cannot project %s", x.typ)
		}
		c, err := rc.s.project(ctx, x.coll, n, rc)
		if err != nil {
			return rval{}, err
		}
		return rval{coll: c, typ: c.T}, nil

	case *ast.New:
		return rval{}, diagnostics.New(diagnostics.TypeError, "new cannot be used inside a query")
	}
	return rval{}, diagnostics.New(diagnostics.TypeError, "unsupported expression %s", e)
}

// name resolves a name against locals, columns, backrefs and finally the
// namespace.
func (rc *rowCtx) name(name string) (rval, error) {
	if v, ok := rc.locals[name]; ok {
		return v, nil
	}
	if t, ok := rc.row.Field(name); ok {
		return rval{expr: &sqlgen.Column{Table: rc.frag.Alias, Name: name}, typ: t, path: rc.frag.Alias + "." + name}, nil
	}
	if rc.table != "" {
		if ref, ok := rc.s.schema.Backref(rc.table, name); ok {
			return rc.backref(ref)
		}
	}
	if inst, ok := rc.ns.Get(name); ok {
		return instanceRval(inst), nil
	}
	return rval{}, diagnostics.New(diagnostics.NameError, "name %q is not defined", name)
}

// backref builds the rows of ref.Table pointing at the current row, as a
// correlated fragment.
func (rc *rowCtx) backref(ref types.Backref) (rval, error) {
	t, ok := rc.s.schema.Table(ref.Table)
	if !ok {
		return rval{}, diagnostics.New(diagnostics.NameError, "table %q is not defined", ref.Table)
	}
	parent := &sqlgen.Column{Table: rc.frag.Alias, Name: types.IDColumn}
	alias := sqlgen.FreshAlias(ref.Table, rc.taken)
	f := sqlgen.FromTableAs(ref.Table, alias).Beneath(rc.frag)
	f = f.WithWhere(sqlgen.Eq(&sqlgen.Column{Table: alias, Name: ref.Column}, parent))
	return rval{
		coll: &objects.Collection{T: t, Frag: f},
		typ:  t,
		nav:  &navigation{ref: ref, parent: parent, key: "<-" + rc.frag.Alias + "." + ref.Name},
	}, nil
}

func (rc *rowCtx) attr(ctx context.Context, x rval, name string) (rval, error) {
	switch {
	case x.nav != nil && x.nav.column == "":
		t, _ := rc.s.schema.Table(x.nav.ref.Table)
		row, _ := types.RowType(t)
		ct, ok := row.Field(name)
		if !ok {
			return rval{}, diagnostics.New(diagnostics.NameError, "table %q has no column %q", x.nav.ref.Table, name)
		}
		nav := *x.nav
		nav.column = name
		f := x.coll.Frag
		f = f.WithFields(sqlgen.Field{Name: name, Expr: &sqlgen.Column{Table: f.Alias, Name: name}})
		ctype := types.NewCollection(types.NewStruct(types.Field{Name: name, Type: ct}))
		return rval{coll: &objects.Collection{T: ctype, Frag: f}, typ: ctype, nav: &nav}, nil

	case x.coll != nil:
		c, err := rc.s.collectionAttr(x.coll, name)
		if err != nil {
			return rval{}, err
		}
		return rval{coll: c, typ: c.T}, nil

	case x.host:
		inst, err := rc.s.scalarAttr(ctx, &objects.Scalar{T: x.typ, Value: x.value}, name)
		if err != nil {
			return rval{}, err
		}
		return instanceRval(inst), nil
	}

	if rel, ok := x.typ.(*types.Relation); ok && x.expr != nil {
		return rc.forward(x, rel, name)
	}
	return rval{}, diagnostics.New(diagnostics.TypeError, "%s has no attribute %q", x.typ, name)
}

// forward follows a relation column to its target row with a LEFT JOIN.
func (rc *rowCtx) forward(x rval, rel *types.Relation, name string) (rval, error) {
	target := rel.Target
	if target == nil {
		t, ok := rc.s.schema.Table(rel.TargetName)
		if !ok {
			return rval{}, diagnostics.New(diagnostics.NameError, "table %q is not defined", rel.TargetName)
		}
		target = t
	}
	row, ok := types.RowType(target)
	if !ok {
		return rval{}, diagnostics.New(diagnostics.TypeError, "relation target %s is not a table", rel.TargetName)
	}
	ft, ok := row.Field(name)
	if !ok {
		return rval{}, diagnostics.New(diagnostics.NameError, "table %q has no column %q", rel.TargetName, name)
	}

	key := x.path
	if key == "" {
		key = "->" + rel.TargetName
	}
	j, ok := rc.frag.FindJoin(key)
	if !ok {
		alias := sqlgen.FreshAlias(rel.TargetName, rc.taken)
		j = sqlgen.Join{
			Kind:  "LEFT",
			Table: rel.TargetName,
			Alias: alias,
			On:    sqlgen.Eq(&sqlgen.Column{Table: alias, Name: types.IDColumn}, x.expr),
			Key:   key,
		}
		rc.frag.Joins = append(rc.frag.Joins, j)
	}
	return rval{expr: &sqlgen.Column{Table: j.Alias, Name: name}, typ: ft, path: key + "." + name}, nil
}

// join returns the LEFT JOIN realising nav on the current fragment.
func (rc *rowCtx) join(nav *navigation) sqlgen.Join {
	if j, ok := rc.frag.FindJoin(nav.key); ok {
		return j
	}
	alias := sqlgen.FreshAlias(nav.ref.Table, rc.taken)
	j := sqlgen.Join{
		Kind:  "LEFT",
		Table: nav.ref.Table,
		Alias: alias,
		On:    sqlgen.Eq(&sqlgen.Column{Table: alias, Name: nav.ref.Column}, nav.parent),
		Key:   nav.key,
	}
	rc.frag.Joins = append(rc.frag.Joins, j)
	return j
}

// navAggregate computes fn over nav once per current row, in a grouped
// subquery joined on the row's id, and returns the expression folding those
// per row results over the enclosing group. Each backref reads its own
// subquery, so navigations never multiply each other's rows.
func (rc *rowCtx) navAggregate(fn string, nav *navigation) (sqlgen.Expr, types.Type, error) {
	col := nav.column
	if col == "" {
		col = types.IDColumn
	}
	elem := types.Type(types.Any)
	if t, ok := rc.s.schema.Table(nav.ref.Table); ok {
		row, _ := types.RowType(t)
		if ct, ok := row.Field(col); ok {
			elem = ct
		}
	}
	typ, err := aggType(fn, elem)
	if err != nil {
		return nil, nil, err
	}

	i, j := rc.perRow(nav)
	sub := j.Sub.Clone()
	src := &sqlgen.Column{Table: sub.Alias, Name: col}
	inner := func(e sqlgen.Expr) sqlgen.Expr {
		name := "a" + strconv.Itoa(len(sub.Fields))
		sub.Fields = append(sub.Fields, sqlgen.Field{Name: name, Expr: e})
		return &sqlgen.Column{Table: j.Alias, Name: name}
	}

	var out sqlgen.Expr
	switch fn {
	case "count":
		out = sqlgen.Coalesce(&sqlgen.Agg{Func: "sum", Arg: inner(&sqlgen.Agg{Func: "count", Arg: src})}, sqlgen.Int(0))
	case "sum", "min", "max":
		out = &sqlgen.Agg{Func: fn, Arg: inner(&sqlgen.Agg{Func: fn, Arg: src})}
	case "avg":
		total := &sqlgen.Agg{Func: "sum", Arg: inner(&sqlgen.Agg{Func: "sum", Arg: src})}
		n := &sqlgen.Agg{Func: "sum", Arg: inner(&sqlgen.Agg{Func: "count", Arg: src})}
		out = &sqlgen.Binary{Op: sqlgen.OpDiv, Left: total, Right: sqlgen.NullIf(n, sqlgen.Int(0))}
	case "list":
		out = &sqlgen.ListAgg{Arg: inner(&sqlgen.ListAgg{Arg: src}), Nested: true}
	default:
		return nil, nil, diagnostics.New(diagnostics.NameError, "unknown aggregate %s", fn)
	}
	j.Sub = sub
	rc.frag.Joins[i] = j
	return out, typ, nil
}

// perRow returns the position and the join of the subquery grouping nav's
// table by its foreign key, adding it on first use.
func (rc *rowCtx) perRow(nav *navigation) (int, sqlgen.Join) {
	key := "agg" + nav.key
	for i, j := range rc.frag.Joins {
		if j.Key == key {
			return i, j
		}
	}
	sub := sqlgen.FromTable(nav.ref.Table)
	fk := &sqlgen.Column{Table: sub.Alias, Name: nav.ref.Column}
	sub.Fields = []sqlgen.Field{{Name: "k", Expr: fk}}
	sub.Group = []sqlgen.Expr{fk}
	sub.Aggregate = true

	alias := sqlgen.FreshAlias(nav.ref.Table+"_agg", rc.taken)
	j := sqlgen.Join{
		Kind:  "LEFT",
		Sub:   sub,
		Alias: alias,
		On:    sqlgen.Eq(&sqlgen.Column{Table: alias, Name: "k"}, nav.parent),
		Key:   key,
	}
	rc.frag.Joins = append(rc.frag.Joins, j)
	return len(rc.frag.Joins) - 1, j
}

// joined returns the column nav selects from its join, and its type.
func (rc *rowCtx) joined(nav *navigation) (sqlgen.Expr, types.Type) {
	j := rc.join(nav)
	col := nav.column
	if col == "" {
		col = types.IDColumn
	}
	t, _ := rc.s.schema.Table(nav.ref.Table)
	row, _ := types.RowType(t)
	ct, ok := row.Field(col)
	if !ok {
		ct = types.Any
	}
	return &sqlgen.Column{Table: j.Alias, Name: col}, ct
}

func (rc *rowCtx) binary(ctx context.Context, n *ast.BinOp) (rval, error) {
	l, err := rc.eval(ctx, n.Left)
	if err != nil {
		return rval{}, err
	}
	r, err := rc.eval(ctx, n.Right)
	if err != nil {
		return rval{}, err
	}
	if n.Op == ast.OpIn {
		return rc.in(l, r)
	}
	if err := l.scalar("an operand"); err != nil {
		return rval{}, err
	}
	if err := r.scalar("an operand"); err != nil {
		return rval{}, err
	}
	t, op, err := binaryType(n.Op, l.typ, r.typ)
	if err != nil {
		return rval{}, err
	}
	if l.host && r.host {
		v, err := hostBinary(n.Op, l.value, r.value)
		if err != nil {
			return rval{}, err
		}
		return hostRval(v, t), nil
	}
	return rval{
		expr: &sqlgen.Binary{Op: op, Left: l.expr, Right: r.expr},
		typ:  t,
		agg:  l.agg || r.agg,
	}, nil
}

func (rc *rowCtx) in(l, r rval) (rval, error) {
	if err := l.scalar("the left operand of in"); err != nil {
		return rval{}, err
	}
	if r.coll != nil {
		sub, _, err := oneColumn(r.coll)
		if err != nil {
			return rval{}, err
		}
		return rval{expr: &sqlgen.In{X: l.expr, Sub: sub}, typ: types.Bool, agg: l.agg}, nil
	}
	list, ok := r.value.([]interface{})
	if !r.host || !ok {
		return rval{}, diagnostics.New(diagnostics.TypeError, "in expects a list or a collection, got %s", r.typ)
	}
	if l.host {
		return hostRval(hostIn(l.value, list), types.Bool), nil
	}
	items := make([]sqlgen.Expr, len(list))
	for i, v := range list {
		items[i] = &sqlgen.Literal{Value: v}
	}
	return rval{expr: &sqlgen.In{X: l.expr, List: items}, typ: types.Bool, agg: l.agg}, nil
}

func (rc *rowCtx) cond(ctx context.Context, n *ast.Cond) (rval, error) {
	c, err := rc.eval(ctx, n.If)
	if err != nil {
		return rval{}, err
	}
	if err := c.scalar("a condition"); err != nil {
		return rval{}, err
	}
	if !isBool(c.typ) {
		return rval{}, diagnostics.New(diagnostics.TypeError, "condition must be a bool, got %s", c.typ)
	}
	if c.host {
		if b, _ := c.value.(bool); b {
			return rc.eval(ctx, n.Then)
		}
		return rc.eval(ctx, n.Else)
	}
	a, err := rc.eval(ctx, n.Then)
	if err != nil {
		return rval{}, err
	}
	b, err := rc.eval(ctx, n.Else)
	if err != nil {
		return rval{}, err
	}
	if err := a.scalar("a branch"); err != nil {
		return rval{}, err
	}
	if err := b.scalar("a branch"); err != nil {
		return rval{}, err
	}
	t, err := types.Join(a.typ, b.typ)
	if err != nil {
		return rval{}, err
	}
	return rval{expr: &sqlgen.Case{When: c.expr, Then: a.expr, Else: b.expr}, typ: t, agg: c.agg || a.agg || b.agg}, nil
}

func (rc *rowCtx) call(ctx context.Context, n *ast.Call) (rval, error) {
	inst, ok := rc.ns.Get(n.Func)
	if !ok {
		return rval{}, diagnostics.New(diagnostics.NameError, "function %q is not defined", n.Func)
	}
	fn, ok := inst.(*objects.Function)
	if !ok {
		return rval{}, diagnostics.New(diagnostics.TypeError, "%q is not callable", n.Func)
	}

	if fn.IsBuiltin() {
		switch fn.Name {
		case "count", "sum", "min", "max", "avg", "list":
			return rc.aggregate(ctx, fn.Name, n.Args)
		case "limit":
			return rc.limit(ctx, n.Args)
		case "order":
			if len(n.Args) == 0 {
				return rval{}, diagnostics.New(diagnostics.TypeError, "order() expects a collection")
			}
			x, err := rc.eval(ctx, n.Args[0])
			if err != nil {
				return rval{}, err
			}
			if x.coll == nil {
				return rval{}, diagnostics.New(diagnostics.TypeError, "order() expects a collection, got %s", x.typ)
			}
			c, err := rc.s.order(ctx, x.coll, n.Args[1:], rc)
			if err != nil {
				return rval{}, err
			}
			return rval{coll: c, typ: c.T}, nil
		}
		return rval{}, diagnostics.New(diagnostics.TypeError, "%s() cannot be used inside a query", fn.Name)
	}

	args := make([]rval, len(n.Args))
	for i, a := range n.Args {
		v, err := rc.eval(ctx, a)
		if err != nil {
			return rval{}, err
		}
		args[i] = v
	}
	if len(args) != len(fn.Params) {
		return rval{}, diagnostics.New(diagnostics.TypeError, "%s() takes %d arguments, got %d", fn.Name, len(fn.Params), len(args))
	}

	if fn.Expr == nil {
		// Block bodies run in process over constant arguments.
		host := make([]objects.Instance, len(args))
		for i, a := range args {
			switch {
			case a.host:
				host[i] = &objects.Scalar{T: a.typ, Value: a.value}
			case a.coll != nil && a.nav == nil:
				host[i] = a.coll
			case a.fn != nil:
				host[i] = a.fn
			default:
				return rval{}, diagnostics.New(diagnostics.TypeError, "%s() cannot be called on row values", fn.Name)
			}
		}
		out, err := rc.s.CallFunc(ctx, fn, host, n.Pos)
		if err != nil {
			return rval{}, err
		}
		return instanceRval(out), nil
	}

	// Expression bodies are inlined over the row.
	locals := make(map[string]rval, len(args))
	for i, p := range fn.Params {
		pt, err := rc.s.paramType(p)
		if err != nil {
			return rval{}, err
		}
		if !types.IsSubtype(args[i].typ, pt) && !isAny(args[i].typ) {
			return rval{}, diagnostics.New(diagnostics.TypeError, "argument %q of %s() expects %s, got %s", p.Name, fn.Name, pt, args[i].typ)
		}
		locals[p.Name] = args[i]
	}
	if err := rc.s.push(fn.Name, n.Pos); err != nil {
		return rval{}, err
	}
	defer rc.s.pop()

	sub := *rc
	sub.locals = locals
	sub.ns = fn.Scope
	v, err := sub.eval(ctx, fn.Expr)
	if err != nil {
		return rval{}, rc.s.traced(err)
	}
	return v, nil
}

func (rc *rowCtx) limit(ctx context.Context, args []ast.Expr) (rval, error) {
	if len(args) < 2 || len(args) > 3 {
		return rval{}, diagnostics.New(diagnostics.TypeError, "limit() takes 2 or 3 arguments, got %d", len(args))
	}
	x, err := rc.eval(ctx, args[0])
	if err != nil {
		return rval{}, err
	}
	if x.coll == nil {
		return rval{}, diagnostics.New(diagnostics.TypeError, "limit() expects a collection, got %s", x.typ)
	}
	nums := make([]int64, len(args)-1)
	for i, a := range args[1:] {
		v, err := rc.eval(ctx, a)
		if err != nil {
			return rval{}, err
		}
		n, ok := v.value.(int64)
		if !v.host || !ok {
			return rval{}, diagnostics.New(diagnostics.TypeError, "limit() expects int arguments, got %s", v.typ)
		}
		nums[i] = n
	}
	c, err := limitCollection(x.coll, nums)
	if err != nil {
		return rval{}, err
	}
	return rval{coll: c, typ: c.T}, nil
}

// aggregate applies an aggregate builtin. Backrefs on the value side of
// `=>` aggregate through navAggregate; other collections become scalar
// subqueries.
func (rc *rowCtx) aggregate(ctx context.Context, fn string, args []ast.Expr) (rval, error) {
	if len(args) == 0 {
		if fn == "count" && rc.agg {
			return rval{expr: &sqlgen.Agg{Func: "count"}, typ: types.Int, agg: true}, nil
		}
		return rval{}, diagnostics.New(diagnostics.TypeError, "%s() expects an argument", fn)
	}
	if len(args) != 1 {
		return rval{}, diagnostics.New(diagnostics.TypeError, "%s() takes 1 argument, got %d", fn, len(args))
	}
	a, err := rc.eval(ctx, args[0])
	if err != nil {
		return rval{}, err
	}

	switch {
	case a.nav != nil && rc.agg:
		expr, t, err := rc.navAggregate(fn, a.nav)
		if err != nil {
			return rval{}, err
		}
		return rval{expr: expr, typ: t, agg: true}, nil

	case a.coll != nil:
		sc, err := aggregateCollection(fn, a.coll)
		if err != nil {
			return rval{}, err
		}
		return rval{expr: sc.SQL, typ: sc.T}, nil

	case a.host:
		if list, ok := a.value.([]interface{}); ok {
			sc, err := aggregateList(fn, list)
			if err != nil {
				return rval{}, err
			}
			return hostRval(sc.Value, sc.T), nil
		}
	}

	if err := a.scalar("an aggregate argument"); err != nil {
		return rval{}, err
	}
	if !rc.agg {
		return rval{}, diagnostics.New(diagnostics.TypeError, "%s() expects a collection, got %s", fn, a.typ)
	}
	t, err := aggType(fn, a.typ)
	if err != nil {
		return rval{}, err
	}
	return rval{expr: aggExpr(fn, a.expr), typ: t, agg: true}, nil
}

func aggExpr(fn string, arg sqlgen.Expr) sqlgen.Expr {
	if fn == "list" {
		return &sqlgen.ListAgg{Arg: arg}
	}
	return &sqlgen.Agg{Func: fn, Arg: arg}
}

// aggType returns the result type of fn over values of type elem.
func aggType(fn string, elem types.Type) (types.Type, error) {
	if isRelation(elem) {
		elem = types.Int
	}
	switch fn {
	case "count":
		return types.Int, nil
	case "list":
		return &types.Collection{Elem: elem, Ordered: true}, nil
	case "min", "max":
		if _, ok := elem.(*types.Primitive); !ok {
			return nil, diagnostics.New(diagnostics.TypeError, "%s() expects primitive values, got %s", fn, elem)
		}
		return elem, nil
	case "sum":
		if !isNum(elem) {
			return nil, diagnostics.New(diagnostics.TypeError, "sum() expects numbers, got %s", elem)
		}
		if isIntLike(elem) {
			return types.Int, nil
		}
		return types.Float, nil
	case "avg":
		if !isNum(elem) {
			return nil, diagnostics.New(diagnostics.TypeError, "avg() expects numbers, got %s", elem)
		}
		return types.Float, nil
	}
	return nil, diagnostics.New(diagnostics.NameError, "unknown aggregate %s", fn)
}
