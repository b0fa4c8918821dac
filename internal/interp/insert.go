package interp

import (
	"context"

	"github.com/Velocidex/ordereddict"

	"github.com/nosyt-lien/preql/internal/ast"
	"github.com/nosyt-lien/preql/internal/diagnostics"
	"github.com/nosyt-lien/preql/internal/objects"
	"github.com/nosyt-lien/preql/internal/types"
)

// insert runs `new table(...)` and returns the inserted row.
func (s *State) insert(ctx context.Context, n *ast.New) (objects.Instance, error) {
	t, ok := s.schema.Table(n.Table)
	if !ok {
		return nil, diagnostics.New(diagnostics.NameError, "table %q is not defined", n.Table)
	}
	row, _ := types.RowType(t)
	var columns []types.Field
	for _, f := range row.Fields {
		if f.Name != types.IDColumn {
			columns = append(columns, f)
		}
	}

	values := map[string]interface{}{}
	for i, a := range n.Args {
		name := a.Name
		if name == "" {
			if i >= len(columns) {
				return nil, diagnostics.New(diagnostics.TypeError, "table %q has %d columns, got %d values", n.Table, len(columns), len(n.Args)).At(a.Pos)
			}
			name = columns[i].Name
		}
		if name == types.IDColumn {
			return nil, diagnostics.New(diagnostics.TypeError, "column %q is assigned by the database", name).At(a.Pos)
		}
		ft, ok := row.Field(name)
		if !ok {
			return nil, diagnostics.New(diagnostics.NameError, "table %q has no column %q", n.Table, name).At(a.Pos)
		}
		if _, dup := values[name]; dup {
			return nil, diagnostics.New(diagnostics.TypeError, "column %q is given twice", name).At(a.Pos)
		}
		inst, err := s.Evaluate(ctx, a.Value)
		if err != nil {
			return nil, err
		}
		v, err := s.columnValue(ctx, inst, ft)
		if err != nil {
			return nil, diagnostics.WithPos(err, a.Pos)
		}
		values[name] = v
	}

	var (
		cols []string
		vals []interface{}
	)
	for _, c := range columns {
		if v, ok := values[c.Name]; ok {
			cols = append(cols, c.Name)
			vals = append(vals, v)
		}
	}
	q, err := s.compiler.CompileInsert(n.Table, cols, vals)
	if err != nil {
		return nil, err
	}

	var id interface{}
	if s.compiler.Dialect().InsertReturning() {
		rows, err := s.engine.Query(ctx, q.SQL, q.Args...)
		if err != nil {
			return nil, err
		}
		if rows.Len() > 0 {
			id, _ = toInt(rows.Values[0][0])
		}
	} else {
		res, err := s.engine.Exec(ctx, q.SQL, q.Args...)
		if err != nil {
			return nil, err
		}
		id = res.LastInsertID
	}

	d := ordereddict.NewDict()
	for _, f := range row.Fields {
		if f.Name == types.IDColumn {
			d.Set(f.Name, id)
			continue
		}
		d.Set(f.Name, values[f.Name])
	}
	return &objects.Scalar{T: row, Value: d}, nil
}

// columnValue converts an evaluated argument into a value for a column of
// type t. Rows stand for their id in relation columns.
func (s *State) columnValue(ctx context.Context, inst objects.Instance, t types.Type) (interface{}, error) {
	var v interface{}
	switch x := inst.(type) {
	case *objects.Scalar:
		if x.Lazy() {
			lv, err := s.Localize(ctx, x)
			if err != nil {
				return nil, err
			}
			v = lv
		} else {
			v = x.Value
		}
	case *objects.Collection:
		if !x.Single {
			return nil, diagnostics.New(diagnostics.TypeError, "expected a value, got %s", x.T)
		}
		lv, err := s.Localize(ctx, x)
		if err != nil {
			return nil, err
		}
		v = lv
	default:
		return nil, diagnostics.New(diagnostics.TypeError, "expected a value, got %s", inst.Type())
	}

	if d, ok := v.(*ordereddict.Dict); ok {
		if !isRelation(t) {
			return nil, diagnostics.New(diagnostics.TypeError, "column of type %s cannot hold a row", t)
		}
		v, _ = d.Get(types.IDColumn)
	}

	vt := objects.TypeOf(v)
	if isRelation(t) {
		if !types.IsSubtype(vt, types.Int) {
			return nil, diagnostics.New(diagnostics.TypeError, "relation column expects a row or an id, got %s", vt)
		}
		return v, nil
	}
	if !types.IsSubtype(vt, t) {
		return nil, diagnostics.New(diagnostics.TypeError, "column of type %s cannot hold %s", t, vt)
	}
	if types.Is(t, types.Float) {
		if i, ok := v.(int64); ok {
			return float64(i), nil
		}
	}
	return v, nil
}
