package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/nosyt-lien/preql/internal/types"
)

// ColumnInfo describes a reflected column.
type ColumnInfo struct {
	Name string
	Type string
}

// ForeignKey describes a reflected single column foreign key.
type ForeignKey struct {
	Column   string
	RefTable string
}

// TypeFromSQL maps a declared SQL column type onto a primitive.
func TypeFromSQL(decl string) types.Type {
	d := strings.ToUpper(decl)
	switch {
	case strings.Contains(d, "BOOL"):
		return types.Bool
	case strings.Contains(d, "INT"), strings.Contains(d, "SERIAL"):
		return types.Int
	case strings.Contains(d, "REAL"), strings.Contains(d, "FLOA"), strings.Contains(d, "DOUB"),
		strings.Contains(d, "NUMERIC"), strings.Contains(d, "DECIMAL"):
		return types.Float
	}
	return types.String
}

// BuildTableType assembles the type of a reflected table. Foreign key
// columns become relations whose backref is the reflected table's name,
// suffixed by the column when a table holds several keys to one target.
func BuildTableType(name string, cols []ColumnInfo, fks []ForeignKey) (*types.Collection, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %q not found", name)
	}
	refs := make(map[string]string, len(fks))
	perTarget := make(map[string]int, len(fks))
	for _, fk := range fks {
		refs[fk.Column] = fk.RefTable
		perTarget[fk.RefTable]++
	}

	fields := make([]types.Field, 0, len(cols))
	for _, c := range cols {
		if target, ok := refs[c.Name]; ok {
			backref := name
			if perTarget[target] > 1 {
				backref = name + "_" + c.Name
			}
			fields = append(fields, types.Field{Name: c.Name, Type: &types.Relation{TargetName: target, Backref: backref}})
			continue
		}
		fields = append(fields, types.Field{Name: c.Name, Type: TypeFromSQL(c.Type)})
	}
	return types.NewImportedTable(name, fields...), nil
}

// Querier is the subset of Engine used by introspection.
type Querier interface {
	Query(ctx context.Context, query string, args ...interface{}) (*Rows, error)
}

// StringColumn reads column i of every row as a string.
func StringColumn(ctx context.Context, q Querier, query string, i int, args ...interface{}) ([]string, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, rows.Len())
	for _, r := range rows.Values {
		out = append(out, fmt.Sprint(r[i]))
	}
	return out, nil
}

// ImportSchema reflects every table of e that schema does not know yet, and
// links relations. It returns the names of all tables.
func ImportSchema(ctx context.Context, e Engine, schema *types.Schema) ([]string, error) {
	names, err := e.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if schema.Has(name) {
			continue
		}
		t, err := e.ImportTableType(ctx, name)
		if err != nil {
			return nil, err
		}
		schema.Add(name, t)
	}
	schema.Link()
	return names, nil
}
