package sqlgen

import (
	"strconv"
)

// Join is a JOIN clause of a Fragment. Key identifies the navigation that
// produced it so repeated navigations reuse the same join. A join reads
// either Table or the derived table Sub.
type Join struct {
	Kind  string // "LEFT" or "INNER"
	Table string
	Sub   *Fragment
	Alias string
	On    Expr
	Key   string
}

// Field is a named output column.
type Field struct {
	Name string
	Expr Expr
}

// Order is an ORDER BY term.
type Order struct {
	Expr Expr
	Desc bool
}

// Fragment is an uncompiled query: a table or subquery source with joins,
// filters, grouping, projection, ordering and pagination. Fragments are
// treated as immutable; every With method returns a modified copy.
type Fragment struct {
	Table  string
	From   *Fragment
	Alias  string
	Joins  []Join
	Where  []Expr
	Group  []Expr
	Fields []Field
	Order  []Order
	Limit  *int64
	Offset int64
	// Aggregate marks Fields as aggregates over Group.
	Aggregate bool

	depth int
}

// FromTable returns a fragment selecting every row of table.
func FromTable(table string) *Fragment {
	return &Fragment{Table: table, Alias: table}
}

// FromTableAs is FromTable with an explicit alias.
func FromTableAs(table, alias string) *Fragment {
	return &Fragment{Table: table, Alias: alias}
}

// Select returns a fragment without a source, evaluating fields once.
func Select(fields ...Field) *Fragment {
	return &Fragment{Fields: append([]Field{}, fields...)}
}

// Beneath marks f as nested inside outer, so aliases created by wrapping f
// never shadow those of outer.
func (f *Fragment) Beneath(outer *Fragment) *Fragment {
	c := f.Clone()
	if outer.depth >= c.depth {
		c.depth = outer.depth + 1
	}
	return c
}

// Clone returns a shallow copy whose slices may be appended to freely.
func (f *Fragment) Clone() *Fragment {
	c := *f
	c.Joins = append([]Join(nil), f.Joins...)
	c.Where = append([]Expr(nil), f.Where...)
	c.Group = append([]Expr(nil), f.Group...)
	if f.Fields != nil {
		c.Fields = append([]Field{}, f.Fields...)
	}
	c.Order = append([]Order(nil), f.Order...)
	return &c
}

// Shaped reports whether the fragment already projects, groups or paginates,
// so that further row level operations must wrap it.
func (f *Fragment) Shaped() bool {
	return f.Fields != nil || f.Aggregate || f.Limit != nil || f.Offset > 0
}

// Wrap nests f as the source of a new fragment.
func (f *Fragment) Wrap() *Fragment {
	d := f.depth + 1
	return &Fragment{From: f, Alias: "t" + strconv.Itoa(d), depth: d}
}

// Plain returns f, wrapped if it is shaped. The result exposes its rows
// under Alias with their output column names.
func (f *Fragment) Plain() *Fragment {
	if f.Shaped() {
		return f.Wrap()
	}
	return f
}

// WithWhere adds conditions, ANDed with the existing ones.
func (f *Fragment) WithWhere(conds ...Expr) *Fragment {
	c := f.Plain().Clone()
	c.Where = append(c.Where, conds...)
	return c
}

// WithFields projects the fragment.
func (f *Fragment) WithFields(fields ...Field) *Fragment {
	c := f.Plain().Clone()
	c.Fields = append([]Field{}, fields...)
	return c
}

// WithAggregate groups the fragment by group and projects fields, which
// hold the group keys followed by aggregates.
func (f *Fragment) WithAggregate(fields []Field, group []Expr) *Fragment {
	c := f.WithFields(fields...)
	c.Group = append([]Expr(nil), group...)
	c.Aggregate = true
	c.Order = nil
	return c
}

// WithOrder replaces the ordering.
func (f *Fragment) WithOrder(order ...Order) *Fragment {
	var c *Fragment
	if f.Limit != nil || f.Offset > 0 {
		c = f.Wrap()
	} else {
		c = f.Clone()
	}
	c.Order = append([]Order(nil), order...)
	return c
}

// WithLimit paginates the fragment.
func (f *Fragment) WithLimit(limit int64, offset int64) *Fragment {
	var c *Fragment
	if f.Limit != nil || f.Offset > 0 {
		c = f.Wrap()
	} else {
		c = f.Clone()
	}
	c.Limit = &limit
	c.Offset = offset
	return c
}

// WithOffset skips rows without limiting.
func (f *Fragment) WithOffset(offset int64) *Fragment {
	var c *Fragment
	if f.Limit != nil || f.Offset > 0 {
		c = f.Wrap()
	} else {
		c = f.Clone()
	}
	c.Offset = offset
	return c
}

// FindJoin returns the join registered under key.
func (f *Fragment) FindJoin(key string) (Join, bool) {
	for _, j := range f.Joins {
		if j.Key == key {
			return j, true
		}
	}
	return Join{}, false
}

// Aliases returns every alias visible in the fragment's FROM clause.
func (f *Fragment) Aliases() []string {
	out := []string{f.Alias}
	for _, j := range f.Joins {
		out = append(out, j.Alias)
	}
	return out
}

// Tables returns every base table read by the fragment, including nested
// sources and joins.
func (f *Fragment) Tables() []string {
	var out []string
	if f.From != nil {
		out = append(out, f.From.Tables()...)
	} else if f.Table != "" {
		out = append(out, f.Table)
	}
	for _, j := range f.Joins {
		if j.Sub != nil {
			out = append(out, j.Sub.Tables()...)
			continue
		}
		out = append(out, j.Table)
	}
	return out
}

// FreshAlias returns base, or base with a numeric suffix, such that taken
// reports false.
func FreshAlias(base string, taken func(string) bool) string {
	if !taken(base) {
		return base
	}
	for i := 1; ; i++ {
		a := base + "_" + strconv.Itoa(i)
		if !taken(a) {
			return a
		}
	}
}
