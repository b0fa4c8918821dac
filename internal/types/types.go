// Package types implements the Preql type lattice: primitives, collections,
// structs, relations and functions, and the subtype relation between them.
//
// Types are immutable. Every operation that annotates a type returns a copy.
package types

import (
	"fmt"
	"strings"
)

// Kind identifies the shape of a Type.
type Kind int

const (
	KindPrimitive Kind = iota + 1
	KindCollection
	KindStruct
	KindRelation
	KindFunction
)

// Option keys understood by the runtime.
const (
	// OptName holds the table name of a table type or its row struct.
	OptName = "name"
)

// Type is a node of the lattice.
type Type interface {
	Kind() Kind
	String() string
	Options() Options
	withOptions(Options) Type
}

// Options is the open option bag attached to a type. It never affects
// identity or subtyping.
type Options map[string]interface{}

func (o Options) with(key string, value interface{}) Options {
	out := make(Options, len(o)+1)
	for k, v := range o {
		out[k] = v
	}
	out[key] = value
	return out
}

// WithOption returns a copy of t with key set to value.
func WithOption(t Type, key string, value interface{}) Type {
	return t.withOptions(t.Options().with(key, value))
}

// Option returns the value of key on t.
func Option(t Type, key string) (interface{}, bool) {
	v, ok := t.Options()[key]
	return v, ok
}

// Primitive is a scalar type.
type Primitive struct {
	Name string
	opts Options
}

func (p *Primitive) Kind() Kind       { return KindPrimitive }
func (p *Primitive) String() string   { return p.Name }
func (p *Primitive) Options() Options { return p.opts }
func (p *Primitive) withOptions(o Options) Type {
	return &Primitive{Name: p.Name, opts: o}
}

// Built in primitives.
var (
	Any    = &Primitive{Name: "any"}
	Int    = &Primitive{Name: "int"}
	Float  = &Primitive{Name: "float"}
	String = &Primitive{Name: "string"}
	Bool   = &Primitive{Name: "bool"}
	Null   = &Primitive{Name: "null"}
)

var primitiveNames = map[string]*Primitive{
	"any":     Any,
	"int":     Int,
	"integer": Int,
	"float":   Float,
	"real":    Float,
	"string":  String,
	"text":    String,
	"bool":    Bool,
	"boolean": Bool,
	"null":    Null,
}

// PrimitiveByName resolves a declared primitive type name.
func PrimitiveByName(name string) (*Primitive, bool) {
	p, ok := primitiveNames[strings.ToLower(name)]
	return p, ok
}

// Collection is a sequence of Elem values.
type Collection struct {
	Elem    Type
	Ordered bool
	opts    Options
}

// NewCollection returns an unordered collection of elem.
func NewCollection(elem Type) *Collection {
	return &Collection{Elem: elem}
}

func (c *Collection) Kind() Kind       { return KindCollection }
func (c *Collection) Options() Options { return c.opts }
func (c *Collection) String() string {
	if name, ok := c.opts[OptName].(string); ok {
		return name
	}
	if c.Ordered {
		return "list[" + c.Elem.String() + "]"
	}
	return "collection[" + c.Elem.String() + "]"
}
func (c *Collection) withOptions(o Options) Type {
	return &Collection{Elem: c.Elem, Ordered: c.Ordered, opts: o}
}

// Field is a named member of a Struct.
type Field struct {
	Name string
	Type Type
}

// Struct is a record with ordered, named fields.
type Struct struct {
	Fields []Field
	opts   Options
}

// NewStruct builds a struct type. The fields slice is copied.
func NewStruct(fields ...Field) *Struct {
	fs := make([]Field, len(fields))
	copy(fs, fields)
	return &Struct{Fields: fs}
}

func (s *Struct) Kind() Kind       { return KindStruct }
func (s *Struct) Options() Options { return s.opts }
func (s *Struct) String() string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = f.Name + ": " + f.Type.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
func (s *Struct) withOptions(o Options) Type {
	return &Struct{Fields: s.Fields, opts: o}
}

// Field returns the type of the named field.
func (s *Struct) Field(name string) (Type, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return nil, false
}

// Names returns the field names in declaration order.
func (s *Struct) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Relation is a foreign key column pointing at Target, together with the name
// under which the target navigates back to the referencing rows.
type Relation struct {
	Target     Type
	TargetName string
	Backref    string
	opts       Options
}

func (r *Relation) Kind() Kind       { return KindRelation }
func (r *Relation) Options() Options { return r.opts }
func (r *Relation) String() string {
	return fmt.Sprintf("%s -> %s", r.TargetName, r.Backref)
}
func (r *Relation) withOptions(o Options) Type {
	return &Relation{Target: r.Target, TargetName: r.TargetName, Backref: r.Backref, opts: o}
}

// Param is a function parameter.
type Param struct {
	Name string
	Type Type
}

// Function is the type of a callable.
type Function struct {
	Params []Param
	Return Type
	opts   Options
}

func (f *Function) Kind() Kind       { return KindFunction }
func (f *Function) Options() Options { return f.opts }
func (f *Function) String() string {
	parts := make([]string, len(f.Params))
	for i, p := range f.Params {
		parts[i] = p.Name + ": " + p.Type.String()
	}
	return "func(" + strings.Join(parts, ", ") + ") " + f.Return.String()
}
func (f *Function) withOptions(o Options) Type {
	return &Function{Params: f.Params, Return: f.Return, opts: o}
}

// Equal reports structural equality, ignoring options.
func Equal(a, b Type) bool {
	return IsSubtype(a, b) && IsSubtype(b, a)
}

// IsNumeric reports whether t is int or float.
func IsNumeric(t Type) bool {
	p, ok := t.(*Primitive)
	return ok && (p.Name == "int" || p.Name == "float")
}

// Is reports whether t is the primitive p.
func Is(t Type, p *Primitive) bool {
	tp, ok := t.(*Primitive)
	return ok && tp.Name == p.Name
}
