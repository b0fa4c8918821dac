package objects_test

import (
	"testing"

	"github.com/Velocidex/ordereddict"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosyt-lien/preql/internal/objects"
	"github.com/nosyt-lien/preql/internal/types"
)

func TestNamespaceShadowing(t *testing.T) {
	global := objects.NewNamespace(nil)
	global.Set("x", objects.NewScalar(int64(1)))
	global.Set("y", objects.NewScalar("outer"))

	inner := global.Child()
	inner.Set("x", objects.NewScalar(int64(2)))

	v, ok := inner.Get("x")
	require.True(t, ok)
	assert.Equal(t, int64(2), v.(*objects.Scalar).Value)

	v, ok = inner.Get("y")
	require.True(t, ok)
	assert.Equal(t, "outer", v.(*objects.Scalar).Value)

	_, ok = inner.GetLocal("y")
	assert.False(t, ok)

	v, _ = global.Get("x")
	assert.Equal(t, int64(1), v.(*objects.Scalar).Value)
	assert.Same(t, global, inner.Parent())
	assert.Equal(t, []string{"x", "y"}, inner.Names())
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, types.Int, objects.TypeOf(int64(3)))
	assert.Equal(t, types.Float, objects.TypeOf(2.5))
	assert.Equal(t, types.String, objects.TypeOf("s"))
	assert.Equal(t, types.Null, objects.TypeOf(nil))

	list, ok := objects.TypeOf([]interface{}{int64(1), 2.5}).(*types.Collection)
	require.True(t, ok)
	assert.True(t, types.Equal(types.Float, list.Elem))
	assert.True(t, list.Ordered)
}

func TestRepr(t *testing.T) {
	row := ordereddict.NewDict().Set("name", "Alien").Set("year", int64(1979))

	tests := []struct {
		value interface{}
		repr  string
		json  string
	}{
		{nil, "null", "null"},
		{"a\"b", `"a\"b"`, `"a\"b"`},
		{true, "true", "true"},
		{int64(42), "42", "42"},
		{1.5, "1.5", "1.5"},
		{[]interface{}{int64(1), "x", nil}, `[1, "x", null]`, `[1,"x",null]`},
		{row, `{name: "Alien", year: 1979}`, `{"name":"Alien","year":1979}`},
		{[]*ordereddict.Dict{row}, "", `[{"name":"Alien","year":1979}]`},
	}
	for _, tt := range tests {
		if tt.repr != "" {
			assert.Equal(t, tt.repr, objects.Repr(tt.value))
		}
		assert.Equal(t, tt.json, objects.ToJSON(tt.value))
	}
}

func TestScalar(t *testing.T) {
	s := objects.NewScalar(int64(7))
	assert.False(t, s.Lazy())
	assert.Equal(t, "7", s.String())
	_, ok := s.Row()
	assert.False(t, ok)

	row := ordereddict.NewDict().Set("id", int64(1))
	r := &objects.Scalar{T: types.NewStruct(types.Field{Name: "id", Type: types.Int}), Value: row}
	d, ok := r.Row()
	require.True(t, ok)
	assert.Same(t, row, d)
}
