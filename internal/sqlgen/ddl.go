package sqlgen

import (
	"strings"

	"github.com/nosyt-lien/preql/internal/ast"
	"github.com/nosyt-lien/preql/internal/diagnostics"
	"github.com/nosyt-lien/preql/internal/types"
)

// TableDDL is the compiled form of one table definition.
type TableDDL struct {
	Name       string
	Type       *types.Collection
	Def        *ast.TableDef
	Statements []*Query
}

// TableTypes resolves the types of defs. Relation columns may target any
// table in defs, including their own, or a table already in schema.
func TableTypes(defs []*ast.TableDef, schema *types.Schema) ([]*types.Collection, error) {
	built := make(map[string]*types.Collection, len(defs))
	var pending []*types.Relation
	out := make([]*types.Collection, 0, len(defs))

	for _, d := range defs {
		var cols []types.Field
		seen := map[string]bool{}
		for _, c := range d.Columns {
			if c.Name == types.IDColumn {
				if p, ok := types.PrimitiveByName(c.Type); !ok || p != types.Int {
					return nil, diagnostics.New(diagnostics.TypeError, "column %q of table %q must be an int", c.Name, d.Name).At(c.Pos)
				}
				continue
			}
			if seen[c.Name] {
				return nil, diagnostics.New(diagnostics.TypeError, "table %q declares column %q twice", d.Name, c.Name).At(c.Pos)
			}
			seen[c.Name] = true
			if p, ok := types.PrimitiveByName(c.Type); ok {
				if p == types.Any || p == types.Null {
					return nil, diagnostics.New(diagnostics.TypeError, "column %q cannot have type %s", c.Name, p).At(c.Pos)
				}
				cols = append(cols, types.Field{Name: c.Name, Type: p})
				continue
			}
			rel := &types.Relation{TargetName: c.Type, Backref: c.Backref}
			pending = append(pending, rel)
			cols = append(cols, types.Field{Name: c.Name, Type: rel})
		}
		t := types.NewTable(d.Name, cols...)
		built[d.Name] = t
		out = append(out, t)
	}

	for _, rel := range pending {
		if t, ok := built[rel.TargetName]; ok {
			rel.Target = t
			continue
		}
		if schema != nil {
			if t, ok := schema.Table(rel.TargetName); ok {
				rel.Target = t
				continue
			}
		}
		return nil, diagnostics.New(diagnostics.CompileError, "unknown table %q", rel.TargetName)
	}
	return out, nil
}

// CompileTable renders the statements creating table name of type t.
func (c *Compiler) CompileTable(name string, t *types.Collection) ([]*Query, error) {
	row, ok := types.RowType(t)
	if !ok {
		return nil, diagnostics.New(diagnostics.TypeError, "table %q must be a collection of structs", name)
	}
	d := c.dialect

	var queries []*Query
	for _, sql := range d.Preamble(name) {
		queries = append(queries, &Query{SQL: sql})
	}

	var defs []string
	var fks []string
	for _, f := range row.Fields {
		if f.Name == types.IDColumn {
			defs = append(defs, d.IDColumn(name))
			continue
		}
		defs = append(defs, d.Quote(f.Name)+" "+d.ColumnType(f.Type))
		if rel, ok := f.Type.(*types.Relation); ok {
			fks = append(fks, "FOREIGN KEY ("+d.Quote(f.Name)+") REFERENCES "+d.Quote(rel.TargetName)+" ("+d.Quote(types.IDColumn)+")")
		}
	}
	defs = append(defs, fks...)

	sql := "CREATE TABLE IF NOT EXISTS " + d.Quote(name) + " (\n    " + strings.Join(defs, ",\n    ") + "\n)"
	queries = append(queries, &Query{SQL: sql})
	return queries, nil
}

// CompileStatements compiles every table definition in stmts into DDL, in
// dependency order.
func (c *Compiler) CompileStatements(stmts []ast.Stmt) ([]*TableDDL, error) {
	var defs []*ast.TableDef
	for _, s := range stmts {
		if t, ok := s.(*ast.TableDef); ok {
			defs = append(defs, t)
		}
	}

	var known func(string) bool
	if c.schema != nil {
		known = c.schema.Has
	}
	ordered, err := OrderTables(defs, known)
	if err != nil {
		return nil, err
	}
	tableTypes, err := TableTypes(ordered, c.schema)
	if err != nil {
		return nil, err
	}

	out := make([]*TableDDL, len(ordered))
	for i, def := range ordered {
		queries, err := c.CompileTable(def.Name, tableTypes[i])
		if err != nil {
			return nil, err
		}
		out[i] = &TableDDL{Name: def.Name, Type: tableTypes[i], Def: def, Statements: queries}
	}
	return out, nil
}
