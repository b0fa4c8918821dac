package ui_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Velocidex/ordereddict"
	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosyt-lien/preql/internal/diagnostics"
	"github.com/nosyt-lien/preql/internal/ui"
)

func printer(format string) (*ui.Printer, *bytes.Buffer, *bytes.Buffer) {
	color.NoColor = true
	pterm.DisableColor()
	var out, errOut bytes.Buffer
	return ui.New(&out, &errOut, format), &out, &errOut
}

func rows() []*ordereddict.Dict {
	return []*ordereddict.Dict{
		ordereddict.NewDict().Set("name", "Casablanca").Set("year", int64(1942)),
		ordereddict.NewDict().Set("name", "Alien").Set("year", int64(1979)),
	}
}

func TestValue_Text(t *testing.T) {
	p, out, _ := printer("text")

	require.NoError(t, p.Value(rows()))
	assert.Contains(t, out.String(), "name")
	assert.Contains(t, out.String(), "Casablanca")
	assert.Contains(t, out.String(), "1979")

	out.Reset()
	require.NoError(t, p.Value([]interface{}{"a", int64(1)}))
	assert.Equal(t, "[\"a\", 1]\n", out.String())
}

func TestValue_JSON(t *testing.T) {
	p, out, _ := printer("json")

	require.NoError(t, p.Value(rows()))
	assert.Equal(t, `[{"name":"Casablanca","year":1942},{"name":"Alien","year":1979}]`+"\n", out.String())
}

func TestError(t *testing.T) {
	p, _, errOut := printer("text")

	err := diagnostics.New(diagnostics.TypeError, "unsupported operand types for +: int and string")
	err.Stack = []diagnostics.Frame{{Name: "f"}}
	p.Error(err)
	assert.Contains(t, errOut.String(), "TypeError")
	assert.Contains(t, errOut.String(), "unsupported operand types")
	assert.Contains(t, errOut.String(), "in f")

	errOut.Reset()
	p.Error(errors.New("boom"))
	assert.Equal(t, "Error: boom\n", errOut.String())

	pj, _, jsonOut := printer("json")
	pj.Error(diagnostics.New(diagnostics.NameError, "name %q is not defined", "x"))
	assert.Equal(t, `{"kind":"NameError","message":"name \"x\" is not defined"}`+"\n", jsonOut.String())
}
