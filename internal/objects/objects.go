// Package objects defines the runtime values of a Preql session.
//
// Every value is one of three Instance variants: a Scalar (a host value or a
// lazy SQL expression), a Collection (an uncompiled query) or a Function.
package objects

import (
	"context"
	"fmt"

	"github.com/Velocidex/ordereddict"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/nosyt-lien/preql/internal/ast"
	"github.com/nosyt-lien/preql/internal/sqlgen"
	"github.com/nosyt-lien/preql/internal/types"
)

// Instance is a runtime value.
type Instance interface {
	Type() types.Type
	fmt.Stringer
	instance()
}

// Scalar is a single value. Either Value holds a host value (int64, float64,
// string, bool, nil, []interface{} or *ordereddict.Dict) or SQL holds an
// expression evaluated by the database on demand.
type Scalar struct {
	T     types.Type
	Value interface{}
	SQL   sqlgen.Expr
}

func (s *Scalar) instance()        {}
func (s *Scalar) Type() types.Type { return s.T }

// Lazy reports whether the value must be computed by the database.
func (s *Scalar) Lazy() bool { return s.SQL != nil }

func (s *Scalar) String() string {
	if s.Lazy() {
		return "<" + s.T.String() + " query>"
	}
	return Repr(s.Value)
}

// Row returns the value as a row, if it is one.
func (s *Scalar) Row() (*ordereddict.Dict, bool) {
	d, ok := s.Value.(*ordereddict.Dict)
	return d, ok && !s.Lazy()
}

// Collection is a table or query result that has not been executed.
type Collection struct {
	T    *types.Collection
	Frag *sqlgen.Fragment
	// Single marks an indexed collection that localizes to one row.
	Single bool
}

func (c *Collection) instance()        {}
func (c *Collection) Type() types.Type { return c.T }

func (c *Collection) String() string {
	if c.Single {
		return "<row of " + c.T.String() + ">"
	}
	return "<" + c.T.String() + ">"
}

// Row returns the struct type of the collection's elements.
func (c *Collection) Row() *types.Struct {
	if s, ok := types.RowType(c.T); ok {
		return s
	}
	return types.NewStruct()
}

// With returns a copy of c over a different fragment.
func (c *Collection) With(f *sqlgen.Fragment) *Collection {
	return &Collection{T: c.T, Frag: f, Single: c.Single}
}

// NativeFunc implements a builtin over evaluated arguments.
type NativeFunc func(ctx context.Context, args []Instance, pos lexer.Position) (Instance, error)

// Function is a callable: a user definition closed over its namespace, or a
// builtin.
type Function struct {
	Name   string
	Params []*ast.Param
	Expr   ast.Expr
	Body   []ast.Stmt
	Scope  *Namespace

	Native NativeFunc
	// Arity bounds the argument count of a native function; Max < 0 means
	// unbounded.
	MinArgs, MaxArgs int
	// Special functions receive their arguments unevaluated.
	Special bool
}

func (f *Function) instance() {}

// Type returns the function's signature.
func (f *Function) Type() types.Type {
	params := make([]types.Param, len(f.Params))
	for i, p := range f.Params {
		params[i] = types.Param{Name: p.Name, Type: types.Any}
	}
	return &types.Function{Params: params, Return: types.Any}
}

func (f *Function) String() string {
	if f.Native != nil {
		return "<builtin " + f.Name + ">"
	}
	return "<func " + f.Name + ">"
}

// IsBuiltin reports whether the function is implemented natively.
func (f *Function) IsBuiltin() bool { return f.Native != nil }

// Null is the null scalar.
func Null() *Scalar { return &Scalar{T: types.Null} }

// NewScalar wraps a host value with its inferred type.
func NewScalar(v interface{}) *Scalar {
	return &Scalar{T: TypeOf(v), Value: v}
}

// TypeOf infers the type of a host value.
func TypeOf(v interface{}) types.Type {
	switch x := v.(type) {
	case nil:
		return types.Null
	case bool:
		return types.Bool
	case int64, int, int32:
		return types.Int
	case float64, float32:
		return types.Float
	case string:
		return types.String
	case []interface{}:
		elems := make([]types.Type, len(x))
		for i, e := range x {
			elems[i] = TypeOf(e)
		}
		elem, err := types.JoinAll(elems...)
		if err != nil {
			elem = types.Any
		}
		return &types.Collection{Elem: elem, Ordered: true}
	case *ordereddict.Dict:
		fields := make([]types.Field, 0, x.Len())
		for _, k := range x.Keys() {
			v, _ := x.Get(k)
			fields = append(fields, types.Field{Name: k, Type: TypeOf(v)})
		}
		return types.NewStruct(fields...)
	}
	return types.Any
}
