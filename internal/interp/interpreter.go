package interp

import (
	"context"
	"errors"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/nosyt-lien/preql/internal/ast"
	"github.com/nosyt-lien/preql/internal/diagnostics"
	"github.com/nosyt-lien/preql/internal/objects"
	"github.com/nosyt-lien/preql/internal/parser"
	"github.com/nosyt-lien/preql/internal/sqlgen"
	"github.com/nosyt-lien/preql/internal/types"
)

// ExecuteStatements runs a unit: table definitions first, in dependency
// order, then every other statement in source order. It returns the value of
// the last expression statement, or nil.
//
// An error aborts the rest of the unit but keeps earlier bindings, and the
// session goes back to Idle. exit() terminates it.
func (s *State) ExecuteStatements(ctx context.Context, stmts []ast.Stmt) (objects.Instance, error) {
	if s.status == Terminated {
		return nil, ErrTerminated
	}
	s.status = Evaluating
	s.stack = s.stack[:0]
	res, _, err := s.run(ctx, stmts)
	if err != nil {
		if diagnostics.IsExit(err) {
			s.status = Terminated
			return nil, err
		}
		s.status = Idle
		s.log.Debug("unit failed", "error", err)
		return nil, err
	}
	s.status = Idle
	return res, nil
}

// Run parses and executes code.
func (s *State) Run(ctx context.Context, filename, code string) (objects.Instance, error) {
	prog, err := parser.ParseString(filename, code)
	if err != nil {
		return nil, err
	}
	return s.ExecuteStatements(ctx, prog.Stmts)
}

// run executes stmts in the current namespace. The flag reports whether a
// return statement ended them.
func (s *State) run(ctx context.Context, stmts []ast.Stmt) (objects.Instance, bool, error) {
	var defs []*ast.TableDef
	for _, st := range stmts {
		if t, ok := st.(*ast.TableDef); ok {
			defs = append(defs, t)
		}
	}
	if len(defs) > 0 {
		if err := s.declareTables(ctx, defs); err != nil {
			return nil, false, err
		}
	}

	var last objects.Instance
	for _, st := range stmts {
		switch n := st.(type) {
		case *ast.TableDef:
			continue

		case *ast.FuncDef:
			s.ns.Set(n.Name, &objects.Function{
				Name:   n.Name,
				Params: n.Params,
				Expr:   n.Expr,
				Body:   n.Body,
				Scope:  s.ns,
			})
			last = nil

		case *ast.Assign:
			v, err := s.Evaluate(ctx, n.Value)
			if err != nil {
				return nil, false, err
			}
			s.ns.Set(n.Name, v)
			last = nil

		case *ast.ExprStmt:
			v, err := s.Evaluate(ctx, n.X)
			if err != nil {
				return nil, false, err
			}
			last = v

		case *ast.Return:
			v, err := s.Evaluate(ctx, n.Value)
			if err != nil {
				return nil, false, err
			}
			return v, true, nil
		}
	}
	return last, false, nil
}

// declareTables creates the tables of defs and binds them. Redeclaring a
// known table is allowed when the declaration matches.
func (s *State) declareTables(ctx context.Context, defs []*ast.TableDef) error {
	stmts := make([]ast.Stmt, len(defs))
	for i, d := range defs {
		stmts[i] = d
	}
	ddl, err := s.compiler.CompileStatements(stmts)
	if err != nil {
		return err
	}
	for _, d := range ddl {
		if existing, ok := s.schema.Table(d.Name); ok {
			if !sameTable(existing, d.Type) {
				return diagnostics.New(diagnostics.TypeError, "table %q is already declared as %s", d.Name, rowString(existing)).At(d.Def.Pos)
			}
			s.ns.Set(d.Name, &objects.Collection{T: existing, Frag: sqlgen.FromTable(d.Name)})
			continue
		}
		for _, q := range d.Statements {
			if _, err := s.engine.Exec(ctx, q.SQL, q.Args...); err != nil {
				return diagnostics.WithPos(err, d.Def.Pos)
			}
		}
		s.schema.Add(d.Name, d.Type)
		s.ns.Set(d.Name, &objects.Collection{T: d.Type, Frag: sqlgen.FromTable(d.Name)})
		s.log.Debug("declared table", "table", d.Name)
	}
	return nil
}

func rowString(t *types.Collection) string {
	row, _ := types.RowType(t)
	return row.String()
}

// sameTable compares two table declarations column by column. Relations
// match on their target table.
func sameTable(a, b *types.Collection) bool {
	ra, ok := types.RowType(a)
	if !ok {
		return false
	}
	rb, ok := types.RowType(b)
	if !ok || len(ra.Fields) != len(rb.Fields) {
		return false
	}
	for i, fa := range ra.Fields {
		fb := rb.Fields[i]
		if fa.Name != fb.Name {
			return false
		}
		relA, aRel := fa.Type.(*types.Relation)
		relB, bRel := fb.Type.(*types.Relation)
		if aRel || bRel {
			if !aRel || !bRel || relA.TargetName != relB.TargetName {
				return false
			}
			continue
		}
		if !types.Equal(fa.Type, fb.Type) {
			return false
		}
	}
	return true
}

// CallFunc calls fn with evaluated arguments. User functions run in a new
// scope over their closure, with arity and parameter types checked.
func (s *State) CallFunc(ctx context.Context, fn *objects.Function, args []objects.Instance, pos lexer.Position) (objects.Instance, error) {
	if fn.Native != nil {
		if len(args) < fn.MinArgs || (fn.MaxArgs >= 0 && len(args) > fn.MaxArgs) {
			return nil, arityError(fn, len(args))
		}
		out, err := fn.Native(ctx, args, pos)
		if err != nil {
			return nil, diagnostics.WithPos(err, pos)
		}
		return out, nil
	}

	if len(args) != len(fn.Params) {
		return nil, diagnostics.New(diagnostics.TypeError, "%s() takes %d arguments, got %d", fn.Name, len(fn.Params), len(args)).At(pos)
	}
	scope := fn.Scope.Child()
	for i, p := range fn.Params {
		pt, err := s.paramType(p)
		if err != nil {
			return nil, err
		}
		if !types.IsSubtype(args[i].Type(), pt) {
			return nil, diagnostics.New(diagnostics.TypeError, "argument %q of %s() expects %s, got %s", p.Name, fn.Name, pt, args[i].Type()).At(pos)
		}
		scope.Set(p.Name, args[i])
	}

	if err := s.push(fn.Name, pos); err != nil {
		return nil, err
	}
	defer s.pop()
	saved := s.ns
	s.ns = scope
	defer func() { s.ns = saved }()

	if fn.Expr != nil {
		v, err := s.Evaluate(ctx, fn.Expr)
		if err != nil {
			return nil, s.traced(err)
		}
		return v, nil
	}
	v, returned, err := s.run(ctx, fn.Body)
	if err != nil {
		return nil, s.traced(err)
	}
	if !returned || v == nil {
		return objects.Null(), nil
	}
	return v, nil
}

func arityError(fn *objects.Function, got int) error {
	switch {
	case fn.MinArgs == fn.MaxArgs:
		return diagnostics.New(diagnostics.TypeError, "%s() takes %d arguments, got %d", fn.Name, fn.MinArgs, got)
	case fn.MaxArgs < 0:
		return diagnostics.New(diagnostics.TypeError, "%s() takes at least %d arguments, got %d", fn.Name, fn.MinArgs, got)
	}
	return diagnostics.New(diagnostics.TypeError, "%s() takes %d to %d arguments, got %d", fn.Name, fn.MinArgs, fn.MaxArgs, got)
}

func (s *State) push(name string, pos lexer.Position) error {
	if len(s.stack) >= MaxDepth {
		return s.traced(diagnostics.New(diagnostics.ValueError, "maximum call depth of %d exceeded", MaxDepth).At(pos))
	}
	s.stack = append(s.stack, diagnostics.Frame{Name: name, Pos: pos})
	return nil
}

func (s *State) pop() {
	s.stack = s.stack[:len(s.stack)-1]
}

// traced records the current call stack on err, once.
func (s *State) traced(err error) error {
	var e *diagnostics.Error
	if errors.As(err, &e) && e.Stack == nil {
		e.Stack = s.Stack()
	}
	return err
}

// paramType resolves a declared parameter type.
func (s *State) paramType(p *ast.Param) (types.Type, error) {
	switch p.Type {
	case "":
		return types.Any, nil
	case "table":
		return types.NewCollection(types.NewStruct()), nil
	}
	if prim, ok := types.PrimitiveByName(p.Type); ok {
		return prim, nil
	}
	if t, ok := s.schema.Table(p.Type); ok {
		return t, nil
	}
	return nil, diagnostics.New(diagnostics.NameError, "unknown type %q", p.Type).At(p.Pos)
}

// Include executes the file at path in a new namespace layer over the
// current one. Later statements see its definitions; closures created
// before it keep their own scope.
func (s *State) Include(ctx context.Context, path string) (objects.Instance, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return nil, diagnostics.Wrap(diagnostics.ValueError, err, "cannot include %q", path)
	}
	defer f.Close()
	prog, err := parser.Parse(path, f)
	if err != nil {
		return nil, err
	}
	parent := s.ns
	s.ns = parent.Child()
	res, _, err := s.run(ctx, prog.Stmts)
	if err != nil {
		s.ns = parent
		return nil, err
	}
	return res, nil
}
