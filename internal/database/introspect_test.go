package database_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosyt-lien/preql/internal/database"
	"github.com/nosyt-lien/preql/internal/types"
)

func TestTypeFromSQL(t *testing.T) {
	tests := map[string]types.Type{
		"INTEGER":          types.Int,
		"bigint":           types.Int,
		"serial":           types.Int,
		"REAL":             types.Float,
		"double precision": types.Float,
		"numeric(10,2)":    types.Float,
		"boolean":          types.Bool,
		"TEXT":             types.String,
		"varchar(255)":     types.String,
		"":                 types.String,
	}
	for decl, want := range tests {
		assert.True(t, types.Equal(want, database.TypeFromSQL(decl)), decl)
	}
}

func TestBuildTableType(t *testing.T) {
	tbl, err := database.BuildTableType("edges",
		[]database.ColumnInfo{{Name: "id", Type: "INTEGER"}, {Name: "src", Type: "INTEGER"}, {Name: "dst", Type: "INTEGER"}, {Name: "w", Type: "REAL"}},
		[]database.ForeignKey{{Column: "src", RefTable: "nodes"}, {Column: "dst", RefTable: "nodes"}},
	)
	require.NoError(t, err)

	row, ok := types.RowType(tbl)
	require.True(t, ok)
	src, _ := row.Field("src")
	rel, ok := src.(*types.Relation)
	require.True(t, ok)
	assert.Equal(t, "nodes", rel.TargetName)
	assert.Equal(t, "edges_src", rel.Backref)

	name, _ := types.TableName(tbl)
	assert.Equal(t, "edges", name)

	_, err = database.BuildTableType("empty", nil, nil)
	assert.Error(t, err)
}
