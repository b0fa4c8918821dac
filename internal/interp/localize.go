package interp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Velocidex/ordereddict"

	"github.com/nosyt-lien/preql/internal/diagnostics"
	"github.com/nosyt-lien/preql/internal/objects"
	"github.com/nosyt-lien/preql/internal/sqlgen"
	"github.com/nosyt-lien/preql/internal/types"
)

// CompileInstance returns the SELECT statement that localizing inst runs.
func (s *State) CompileInstance(inst objects.Instance) (*sqlgen.Query, error) {
	switch v := inst.(type) {
	case *objects.Collection:
		return s.compiler.CompileQuery(v.Frag)
	case *objects.Scalar:
		if v.Lazy() {
			return s.compiler.CompileQuery(sqlgen.Select(sqlgen.Field{Name: "value", Expr: v.SQL}))
		}
	}
	return nil, diagnostics.New(diagnostics.TypeError, "%s is not a query", inst.Type())
}

// Localize executes inst once and returns its host value. Collections become
// []*ordereddict.Dict, or a single *ordereddict.Dict (nil when empty) for an
// indexed collection.
func (s *State) Localize(ctx context.Context, inst objects.Instance) (interface{}, error) {
	switch v := inst.(type) {
	case *objects.Scalar:
		if !v.Lazy() {
			return v.Value, nil
		}
		q, err := s.CompileInstance(v)
		if err != nil {
			return nil, err
		}
		rows, err := s.engine.Query(ctx, q.SQL, q.Args...)
		if err != nil {
			return nil, err
		}
		if rows.Len() == 0 || len(rows.Values[0]) == 0 {
			return coerce(nil, v.T)
		}
		return coerce(rows.Values[0][0], v.T)

	case *objects.Collection:
		q, err := s.CompileInstance(v)
		if err != nil {
			return nil, err
		}
		rows, err := s.engine.Query(ctx, q.SQL, q.Args...)
		if err != nil {
			return nil, err
		}
		out, err := s.rowsToHost(v.Row(), rows.Columns, rows.Values)
		if err != nil {
			return nil, err
		}
		if v.Single {
			if len(out) == 0 {
				return nil, nil
			}
			return out[0], nil
		}
		return out, nil
	}
	return nil, diagnostics.New(diagnostics.TypeError, "cannot localize %s", inst)
}

// rowsToHost maps result rows onto ordered dicts, coercing each column by
// the declared field type.
func (s *State) rowsToHost(row *types.Struct, columns []string, values [][]interface{}) ([]*ordereddict.Dict, error) {
	out := make([]*ordereddict.Dict, 0, len(values))
	for _, r := range values {
		d := ordereddict.NewDict()
		for i, col := range columns {
			ft, ok := row.Field(col)
			if !ok {
				ft = types.Any
			}
			v, err := coerce(r[i], ft)
			if err != nil {
				return nil, diagnostics.Wrap(diagnostics.TypeError, err, "column %q", col)
			}
			d.Set(col, v)
		}
		out = append(out, d)
	}
	return out, nil
}

// CastToHost localizes inst and unwraps rows of one column into bare values.
func (s *State) CastToHost(ctx context.Context, inst objects.Instance) (interface{}, error) {
	v, err := s.Localize(ctx, inst)
	if err != nil {
		return nil, err
	}
	c, ok := inst.(*objects.Collection)
	if !ok {
		return v, nil
	}
	oneCol := len(c.Row().Fields) == 1
	switch x := v.(type) {
	case *ordereddict.Dict:
		if oneCol && x.Len() == 1 {
			val, _ := x.Get(x.Keys()[0])
			return val, nil
		}
		return x, nil
	case []*ordereddict.Dict:
		out := make([]interface{}, len(x))
		for i, d := range x {
			if oneCol && d.Len() == 1 {
				out[i], _ = d.Get(d.Keys()[0])
			} else {
				out[i] = d
			}
		}
		return out, nil
	}
	return v, nil
}

// coerce maps a driver value onto the host representation of t.
func coerce(v interface{}, t types.Type) (interface{}, error) {
	if c, ok := t.(*types.Collection); ok {
		return decodeList(v, c.Elem)
	}
	if v == nil {
		return nil, nil
	}
	switch tt := t.(type) {
	case *types.Relation:
		return toInt(v)
	case *types.Primitive:
		switch tt.Name {
		case types.Int.Name:
			return toInt(v)
		case types.Float.Name:
			switch x := v.(type) {
			case int64:
				return float64(x), nil
			case string:
				return strconv.ParseFloat(x, 64)
			}
		case types.Bool.Name:
			switch x := v.(type) {
			case int64:
				return x != 0, nil
			case float64:
				return x != 0, nil
			case string:
				return strconv.ParseBool(x)
			}
		case types.String.Name:
			if _, ok := v.(string); !ok {
				return fmt.Sprint(v), nil
			}
		}
	}
	return v, nil
}

func toInt(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case float64:
		if x == math.Trunc(x) {
			return int64(x), nil
		}
		return x, nil
	case json.Number:
		return x.Int64()
	case string:
		return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	}
	return v, nil
}

// decodeList decodes an aggregated list column. Nulls are dropped, and the
// per row lists of a backref aggregated over a group are concatenated.
func decodeList(v interface{}, elem types.Type) (interface{}, error) {
	var items []interface{}
	switch x := v.(type) {
	case nil:
		return []interface{}{}, nil
	case []interface{}:
		items = x
	case string:
		dec := json.NewDecoder(strings.NewReader(x))
		dec.UseNumber()
		if err := dec.Decode(&items); err != nil {
			return nil, err
		}
	case []byte:
		dec := json.NewDecoder(bytes.NewReader(x))
		dec.UseNumber()
		if err := dec.Decode(&items); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("cannot decode %T as a list", v)
	}

	if _, nested := elem.(*types.Collection); !nested {
		items = flatten(items)
	}

	out := make([]interface{}, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		if n, ok := it.(json.Number); ok {
			if types.Is(elem, types.Float) {
				f, err := n.Float64()
				if err != nil {
					return nil, err
				}
				it = f
			} else if i, err := n.Int64(); err == nil {
				it = i
			} else {
				f, err := n.Float64()
				if err != nil {
					return nil, err
				}
				it = f
			}
		}
		c, err := coerce(it, elem)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func flatten(items []interface{}) []interface{} {
	out := items[:0:0]
	for _, it := range items {
		if inner, ok := it.([]interface{}); ok {
			out = append(out, flatten(inner)...)
			continue
		}
		out = append(out, it)
	}
	return out
}
