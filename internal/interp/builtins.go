package interp

import (
	"context"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/nosyt-lien/preql/internal/database"
	"github.com/nosyt-lien/preql/internal/diagnostics"
	"github.com/nosyt-lien/preql/internal/objects"
)

func (s *State) registerBuiltins() {
	native := func(name string, lo, hi int, fn objects.NativeFunc) {
		s.builtins.Set(name, &objects.Function{Name: name, Native: fn, MinArgs: lo, MaxArgs: hi})
	}

	for _, name := range []string{"count", "sum", "min", "max", "avg", "list"} {
		native(name, 1, 1, func(ctx context.Context, args []objects.Instance, pos lexer.Position) (objects.Instance, error) {
			return aggregateBuiltin(name, args[0])
		})
	}

	native("limit", 2, 3, func(ctx context.Context, args []objects.Instance, pos lexer.Position) (objects.Instance, error) {
		c, ok := args[0].(*objects.Collection)
		if !ok {
			return nil, diagnostics.New(diagnostics.TypeError, "limit() expects a collection, got %s", args[0].Type())
		}
		nums := make([]int64, 0, 2)
		for _, a := range args[1:] {
			n, err := intArg("limit", a)
			if err != nil {
				return nil, err
			}
			nums = append(nums, n)
		}
		return limitCollection(c, nums)
	})

	s.builtins.Set("order", &objects.Function{
		Name:    "order",
		Special: true,
		MinArgs: 2,
		MaxArgs: -1,
		Native: func(ctx context.Context, args []objects.Instance, pos lexer.Position) (objects.Instance, error) {
			return nil, diagnostics.New(diagnostics.TypeError, "order() needs its keys unevaluated")
		},
	})

	native("include", 1, 1, func(ctx context.Context, args []objects.Instance, pos lexer.Position) (objects.Instance, error) {
		path, err := stringArg("include", args[0])
		if err != nil {
			return nil, err
		}
		if _, err := s.Include(ctx, path); err != nil {
			return nil, err
		}
		return objects.Null(), nil
	})

	native("commit", 0, 0, func(ctx context.Context, args []objects.Instance, pos lexer.Position) (objects.Instance, error) {
		return objects.Null(), s.engine.Commit(ctx)
	})

	native("rollback", 0, 0, func(ctx context.Context, args []objects.Instance, pos lexer.Position) (objects.Instance, error) {
		return objects.Null(), s.engine.Rollback(ctx)
	})

	native("import_tables", 0, 0, func(ctx context.Context, args []objects.Instance, pos lexer.Position) (objects.Instance, error) {
		names, err := s.ImportTables(ctx)
		if err != nil {
			return nil, err
		}
		return objects.NewScalar(stringList(names)), nil
	})

	native("tables", 0, 0, func(ctx context.Context, args []objects.Instance, pos lexer.Position) (objects.Instance, error) {
		names, err := s.engine.ListTables(ctx)
		if err != nil {
			return nil, err
		}
		return objects.NewScalar(stringList(names)), nil
	})

	native("exit", 0, 1, func(ctx context.Context, args []objects.Instance, pos lexer.Position) (objects.Instance, error) {
		code := int64(0)
		if len(args) == 1 {
			n, err := intArg("exit", args[0])
			if err != nil {
				return nil, err
			}
			code = n
		}
		return nil, &diagnostics.ExitSignal{Code: int(code)}
	})
}

// aggregateBuiltin applies count, sum, min, max, avg or list outside of a
// row context.
func aggregateBuiltin(fn string, arg objects.Instance) (objects.Instance, error) {
	switch x := arg.(type) {
	case *objects.Collection:
		return aggregateCollection(fn, x)
	case *objects.Scalar:
		if list, ok := x.Value.([]interface{}); ok && !x.Lazy() {
			return aggregateList(fn, list)
		}
	}
	return nil, diagnostics.New(diagnostics.TypeError, "%s() expects a collection, got %s", fn, arg.Type())
}

func intArg(fn string, a objects.Instance) (int64, error) {
	if sc, ok := a.(*objects.Scalar); ok && !sc.Lazy() {
		if n, ok := sc.Value.(int64); ok {
			return n, nil
		}
	}
	return 0, diagnostics.New(diagnostics.TypeError, "%s() expects an int, got %s", fn, a.Type())
}

func stringArg(fn string, a objects.Instance) (string, error) {
	if sc, ok := a.(*objects.Scalar); ok && !sc.Lazy() {
		if v, ok := sc.Value.(string); ok {
			return v, nil
		}
	}
	return "", diagnostics.New(diagnostics.TypeError, "%s() expects a string, got %s", fn, a.Type())
}

func stringList(names []string) []interface{} {
	out := make([]interface{}, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out
}

// ImportTables reflects every table of the database into the schema and
// binds each in the top level namespace.
func (s *State) ImportTables(ctx context.Context) ([]string, error) {
	names, err := database.ImportSchema(ctx, s.engine, s.schema)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if c, ok := s.table(name); ok {
			s.global.Set(name, c)
		}
	}
	return names, nil
}
