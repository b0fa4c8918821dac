package sqlgen

import (
	"strings"
)

// writer renders fragments and expressions for one dialect, collecting bound
// arguments in placeholder order.
type writer struct {
	d    Dialect
	args []interface{}
}

func (w *writer) bind(v interface{}) string {
	w.args = append(w.args, v)
	return w.d.Placeholder(len(w.args))
}

func (w *writer) query(f *Fragment) string {
	var parts []string

	if len(f.Fields) == 0 {
		parts = append(parts, "SELECT "+w.d.Quote(f.Alias)+".*")
	} else {
		cols := make([]string, len(f.Fields))
		for i, fd := range f.Fields {
			cols[i] = fd.Expr.render(w) + " AS " + w.d.Quote(fd.Name)
		}
		parts = append(parts, "SELECT "+strings.Join(cols, ", "))
	}

	if f.From != nil || f.Table != "" {
		parts = append(parts, "FROM "+w.source(f))
	}

	for _, j := range f.Joins {
		kind := j.Kind
		if kind == "" {
			kind = "LEFT"
		}
		src := w.d.Quote(j.Table)
		if j.Sub != nil {
			src = "(" + w.query(j.Sub) + ")"
		}
		parts = append(parts, kind+" JOIN "+src+" "+w.d.Quote(j.Alias)+" ON "+j.On.render(w))
	}

	if where := And(f.Where...); where != nil {
		parts = append(parts, "WHERE "+where.render(w))
	}

	if len(f.Group) > 0 {
		group := make([]string, len(f.Group))
		for i, g := range f.Group {
			group[i] = g.render(w)
		}
		parts = append(parts, "GROUP BY "+strings.Join(group, ", "))
	}

	if len(f.Order) > 0 {
		order := make([]string, len(f.Order))
		for i, o := range f.Order {
			order[i] = o.Expr.render(w)
			if o.Desc {
				order[i] += " DESC"
			}
		}
		parts = append(parts, "ORDER BY "+strings.Join(order, ", "))
	}

	if lo := w.d.LimitOffset(f.Limit, f.Offset); lo != "" {
		parts = append(parts, lo)
	}

	return strings.Join(parts, " ")
}

func (w *writer) source(f *Fragment) string {
	if f.From != nil {
		return "(" + w.query(f.From) + ") " + w.d.Quote(f.Alias)
	}
	if f.Alias == "" || f.Alias == f.Table {
		return w.d.Quote(f.Table)
	}
	return w.d.Quote(f.Table) + " " + w.d.Quote(f.Alias)
}
