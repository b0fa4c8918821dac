// Package interp evaluates Preql programs against a database engine.
//
// A State owns the namespace, call stack and engine of one session.
// Evaluation composes query fragments without touching the database; only
// Localize, CastToHost, `new` and the transaction builtins do I/O.
package interp

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/nosyt-lien/preql/internal/database"
	"github.com/nosyt-lien/preql/internal/debug"
	"github.com/nosyt-lien/preql/internal/diagnostics"
	"github.com/nosyt-lien/preql/internal/objects"
	"github.com/nosyt-lien/preql/internal/sqlgen"
	"github.com/nosyt-lien/preql/internal/telemetry"
	"github.com/nosyt-lien/preql/internal/types"
)

// MaxDepth caps the call stack.
const MaxDepth = 512

// ErrTerminated is returned for work submitted after exit().
var ErrTerminated = pkgerrors.New("session terminated")

// Status is the lifecycle state of a session.
type Status int

const (
	Idle Status = iota
	Evaluating
	Terminated
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Evaluating:
		return "evaluating"
	case Terminated:
		return "terminated"
	}
	return "unknown"
}

// State is the execution context of one session. It is not safe for
// concurrent use.
type State struct {
	ID uuid.UUID

	engine    database.Engine
	schema    *types.Schema
	compiler  *sqlgen.Compiler
	builtins  *objects.Namespace
	global    *objects.Namespace
	ns        *objects.Namespace
	stack     []diagnostics.Frame
	status    Status
	fs        afero.Fs
	telemetry *telemetry.Collector
	format    string
	log       *slog.Logger
}

// Option configures a State.
type Option func(*State)

// WithFs sets the filesystem include() reads from.
func WithFs(fs afero.Fs) Option {
	return func(s *State) { s.fs = fs }
}

// WithTelemetry exposes the engine's statement collector through the State.
func WithTelemetry(c *telemetry.Collector) Option {
	return func(s *State) { s.telemetry = c }
}

// WithFormat sets the output format tag ("text" or "json").
func WithFormat(format string) Option {
	return func(s *State) { s.format = format }
}

// WithSchema starts the session from an existing schema.
func WithSchema(schema *types.Schema) Option {
	return func(s *State) { s.schema = schema }
}

// New creates a session state over engine.
func New(engine database.Engine, opts ...Option) *State {
	s := &State{
		ID:     uuid.New(),
		engine: engine,
		schema: types.NewSchema(),
		fs:     afero.NewOsFs(),
		format: "text",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.compiler = sqlgen.NewCompiler(engine.Dialect(), s.schema)
	s.builtins = objects.NewNamespace(nil)
	s.registerBuiltins()
	s.global = s.builtins.Child()
	s.ns = s.global
	s.log = debug.With("session", s.ID.String())
	return s
}

// Engine returns the session's database engine.
func (s *State) Engine() database.Engine { return s.engine }

// Schema returns the table types known to the session.
func (s *State) Schema() *types.Schema { return s.schema }

// Compiler returns the session's SQL compiler.
func (s *State) Compiler() *sqlgen.Compiler { return s.compiler }

// Global returns the top level namespace.
func (s *State) Global() *objects.Namespace { return s.global }

// Namespace returns the innermost namespace currently in effect.
func (s *State) Namespace() *objects.Namespace { return s.ns }

// Status returns the lifecycle state.
func (s *State) Status() Status { return s.status }

// Telemetry returns the statement collector, which may be nil.
func (s *State) Telemetry() *telemetry.Collector { return s.telemetry }

// Format returns the output format tag.
func (s *State) Format() string { return s.format }

// Stack returns a copy of the current call stack.
func (s *State) Stack() []diagnostics.Frame {
	return append([]diagnostics.Frame(nil), s.stack...)
}

// Bind sets name in the top level namespace.
func (s *State) Bind(name string, v objects.Instance) {
	s.global.Set(name, v)
}

// Lookup resolves name from the innermost namespace.
func (s *State) Lookup(name string) (objects.Instance, error) {
	v, ok := s.ns.Get(name)
	if !ok {
		return nil, diagnostics.New(diagnostics.NameError, "name %q is not defined", name)
	}
	return v, nil
}

// Transaction runs fn and commits its work, or rolls it back if fn fails.
func (s *State) Transaction(ctx context.Context, fn func() error) error {
	if err := fn(); err != nil {
		if rbErr := s.engine.Rollback(ctx); rbErr != nil {
			s.log.Warn("rollback failed", "error", rbErr)
		}
		return err
	}
	return s.engine.Commit(ctx)
}

// Close terminates the session and releases the engine, discarding
// uncommitted work.
func (s *State) Close() error {
	s.status = Terminated
	return s.engine.Close()
}

// table returns the collection instance of a registered table.
func (s *State) table(name string) (*objects.Collection, bool) {
	t, ok := s.schema.Table(name)
	if !ok {
		return nil, false
	}
	return &objects.Collection{T: t, Frag: sqlgen.FromTable(name)}, true
}
