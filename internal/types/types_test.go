package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosyt-lien/preql/internal/diagnostics"
	"github.com/nosyt-lien/preql/internal/types"
)

func sampleTypes() []types.Type {
	movies := types.NewTable("movies",
		types.Field{Name: "name", Type: types.String},
		types.Field{Name: "year", Type: types.Int},
	)
	genres := types.NewTable("movies_genres",
		types.Field{Name: "movie_id", Type: &types.Relation{Target: movies, TargetName: "movies", Backref: "genres"}},
		types.Field{Name: "genre", Type: types.String},
	)
	return []types.Type{
		types.Any, types.Int, types.Float, types.String, types.Bool, types.Null,
		types.NewCollection(types.Int),
		types.NewCollection(types.Float),
		&types.Collection{Elem: types.Int, Ordered: true},
		types.NewStruct(types.Field{Name: "a", Type: types.Int}),
		types.NewStruct(types.Field{Name: "a", Type: types.Float}),
		types.NewStruct(types.Field{Name: "a", Type: types.Int}, types.Field{Name: "b", Type: types.String}),
		types.NewStruct(),
		movies,
		genres,
		movies.Elem,
		&types.Relation{Target: movies, TargetName: "movies", Backref: "genres"},
		&types.Function{Params: []types.Param{{Name: "x", Type: types.Float}}, Return: types.Int},
		&types.Function{Params: []types.Param{{Name: "x", Type: types.Int}}, Return: types.Float},
	}
}

func TestIsSubtype_Reflexive(t *testing.T) {
	for _, a := range sampleTypes() {
		assert.True(t, types.IsSubtype(a, a), "%s <= %s", a, a)
	}
}

func TestIsSubtype_Transitive(t *testing.T) {
	all := sampleTypes()
	for _, a := range all {
		for _, b := range all {
			if !types.IsSubtype(a, b) {
				continue
			}
			for _, c := range all {
				if types.IsSubtype(b, c) {
					assert.True(t, types.IsSubtype(a, c), "%s <= %s <= %s", a, b, c)
				}
			}
		}
	}
}

func TestIsSubtype_Rules(t *testing.T) {
	movies := types.NewTable("movies", types.Field{Name: "name", Type: types.String})
	rel := &types.Relation{Target: movies, TargetName: "movies", Backref: "genres"}

	tests := []struct {
		name string
		a, b types.Type
		want bool
	}{
		{"int widens to float", types.Int, types.Float, true},
		{"float does not narrow", types.Float, types.Int, false},
		{"null is a string", types.Null, types.String, true},
		{"everything is any", movies, types.Any, true},
		{"collections are covariant", types.NewCollection(types.Int), types.NewCollection(types.Float), true},
		{"ordered is an unordered collection", &types.Collection{Elem: types.Int, Ordered: true}, types.NewCollection(types.Int), true},
		{"unordered is not ordered", types.NewCollection(types.Int), &types.Collection{Elem: types.Int, Ordered: true}, false},
		{"struct width", types.NewStruct(types.Field{Name: "a", Type: types.Int}, types.Field{Name: "b", Type: types.Int}), types.NewStruct(types.Field{Name: "a", Type: types.Int}), true},
		{"struct missing field", types.NewStruct(types.Field{Name: "a", Type: types.Int}), types.NewStruct(types.Field{Name: "b", Type: types.Int}), false},
		{"table is a generic table", movies, types.NewCollection(types.NewStruct()), true},
		{"relation navigates to its target", rel, movies, true},
		{"relation is not an int", rel, types.Int, false},
		{"one element collection is not its element", types.NewCollection(types.Int), types.Int, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, types.IsSubtype(tt.a, tt.b))
		})
	}
}

func TestJoin(t *testing.T) {
	j, err := types.Join(types.Int, types.Float)
	require.NoError(t, err)
	assert.True(t, types.Equal(j, types.Float))

	j, err = types.Join(types.Null, types.String)
	require.NoError(t, err)
	assert.True(t, types.Equal(j, types.String))

	j, err = types.Join(
		types.NewStruct(types.Field{Name: "a", Type: types.Int}, types.Field{Name: "b", Type: types.String}),
		types.NewStruct(types.Field{Name: "a", Type: types.Float}),
	)
	require.NoError(t, err)
	assert.Equal(t, "{a: float}", j.String())

	_, err = types.Join(types.Int, types.String)
	require.Error(t, err)
	assert.ErrorIs(t, err, diagnostics.ErrType)
}

func TestJoinAll(t *testing.T) {
	j, err := types.JoinAll(types.Int, types.Null, types.Float)
	require.NoError(t, err)
	assert.True(t, types.Equal(j, types.Float))

	j, err = types.JoinAll()
	require.NoError(t, err)
	assert.Same(t, types.Any, j)
}

func TestWithOption_DoesNotMutate(t *testing.T) {
	base := types.NewStruct(types.Field{Name: "a", Type: types.Int})
	named := types.WithOption(base, types.OptName, "things")

	_, ok := types.Option(base, types.OptName)
	assert.False(t, ok)
	v, ok := types.Option(named, types.OptName)
	require.True(t, ok)
	assert.Equal(t, "things", v)
	assert.True(t, types.Equal(base, named))
}

func TestSchema_Backrefs(t *testing.T) {
	s := types.NewSchema()
	actors := types.NewTable("actors", types.Field{Name: "first_name", Type: types.String})
	s.Add("actors", actors)
	s.Add("roles", types.NewTable("roles",
		types.Field{Name: "actor_id", Type: &types.Relation{Target: actors, TargetName: "actors", Backref: "roles"}},
		types.Field{Name: "role", Type: types.String},
	))

	ref, ok := s.Backref("actors", "roles")
	require.True(t, ok)
	assert.Equal(t, types.Backref{Name: "roles", Table: "roles", Column: "actor_id"}, ref)

	_, ok = s.Backref("roles", "actors")
	assert.False(t, ok)
	assert.Equal(t, []string{"actors", "roles"}, s.Names())

	row, ok := types.RowType(actors)
	require.True(t, ok)
	assert.Equal(t, []string{"id", "first_name"}, row.Names())
	name, _ := types.TableName(row)
	assert.Equal(t, "actors", name)
}
