package types

import (
	"sort"
	"sync"
)

// IDColumn is the implicit primary key of every table.
const IDColumn = "id"

// NewTable builds the collection type of a table. An id column is prepended
// unless columns already declare one. Both the collection and its row struct
// carry the table name.
func NewTable(name string, columns ...Field) *Collection {
	fields := make([]Field, 0, len(columns)+1)
	hasID := false
	for _, c := range columns {
		if c.Name == IDColumn {
			hasID = true
		}
	}
	if !hasID {
		fields = append(fields, Field{Name: IDColumn, Type: Int})
	}
	fields = append(fields, columns...)

	row := WithOption(NewStruct(fields...), OptName, name)
	return WithOption(NewCollection(row), OptName, name).(*Collection)
}

// NewImportedTable builds a table type from reflected columns, kept exactly
// as the database reports them.
func NewImportedTable(name string, columns ...Field) *Collection {
	row := WithOption(NewStruct(columns...), OptName, name)
	return WithOption(NewCollection(row), OptName, name).(*Collection)
}

// TableName returns the table a type was declared as, if any.
func TableName(t Type) (string, bool) {
	if t == nil {
		return "", false
	}
	name, ok := t.Options()[OptName].(string)
	return name, ok
}

// RowType returns the struct element of a table or collection type.
func RowType(t Type) (*Struct, bool) {
	c, ok := t.(*Collection)
	if !ok {
		return nil, false
	}
	s, ok := c.Elem.(*Struct)
	return s, ok
}

// Backref describes a reverse navigation: rows of Table whose Column points at
// the owner of the backref.
type Backref struct {
	Name   string
	Table  string
	Column string
}

// Schema is a registry of the table types known to a session.
type Schema struct {
	mu     sync.RWMutex
	tables map[string]*Collection
	order  []string
}

// NewSchema returns an empty schema.
func NewSchema() *Schema {
	return &Schema{tables: make(map[string]*Collection)}
}

// Add registers or replaces a table type.
func (s *Schema) Add(name string, t *Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[name]; !ok {
		s.order = append(s.order, name)
	}
	s.tables[name] = t
}

// Table returns the type of the named table.
func (s *Schema) Table(name string) (*Collection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[name]
	return t, ok
}

// Has reports whether the named table is known.
func (s *Schema) Has(name string) bool {
	_, ok := s.Table(name)
	return ok
}

// Names returns the table names in registration order.
func (s *Schema) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Backrefs returns every reverse navigation into table, sorted by name.
func (s *Schema) Backrefs(table string) []Backref {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var refs []Backref
	for _, name := range s.order {
		row, ok := RowType(s.tables[name])
		if !ok {
			continue
		}
		for _, f := range row.Fields {
			rel, ok := f.Type.(*Relation)
			if !ok || rel.TargetName != table || rel.Backref == "" {
				continue
			}
			refs = append(refs, Backref{Name: rel.Backref, Table: name, Column: f.Name})
		}
	}
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs
}

// Backref resolves the named reverse navigation of table.
func (s *Schema) Backref(table, name string) (Backref, bool) {
	for _, ref := range s.Backrefs(table) {
		if ref.Name == name {
			return ref, true
		}
	}
	return Backref{}, false
}

// Link points every relation whose target is unresolved at the registered
// table of that name. It returns the names of targets that are still missing.
func (s *Schema) Link() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var missing []string
	for _, name := range s.order {
		row, ok := RowType(s.tables[name])
		if !ok {
			continue
		}
		for _, f := range row.Fields {
			rel, ok := f.Type.(*Relation)
			if !ok || rel.Target != nil {
				continue
			}
			if t, ok := s.tables[rel.TargetName]; ok {
				rel.Target = t
			} else {
				missing = append(missing, rel.TargetName)
			}
		}
	}
	return missing
}
