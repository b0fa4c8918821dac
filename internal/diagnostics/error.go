// Package diagnostics defines the error kinds raised while compiling and
// evaluating Preql code.
package diagnostics

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Kind classifies an Error.
type Kind int

const (
	// SyntaxError is malformed input, raised before evaluation begins.
	SyntaxError Kind = iota + 1
	// NameError is an unresolved variable, function, table or backref.
	NameError
	// TypeError is an operation applied to an incompatible type.
	TypeError
	// ValueError is a well typed but semantically invalid argument.
	ValueError
	// DependencyError is an unresolvable DDL ordering.
	DependencyError
	// CompileError is a fragment referencing an unknown schema object.
	CompileError
	// DatabaseError wraps an error returned by the database driver.
	DatabaseError
)

var kindNames = map[Kind]string{
	SyntaxError:     "SyntaxError",
	NameError:       "NameError",
	TypeError:       "TypeError",
	ValueError:      "ValueError",
	DependencyError: "DependencyError",
	CompileError:    "CompileError",
	DatabaseError:   "DatabaseError",
}

// String returns the name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Sentinels for errors.Is checks against a kind.
var (
	ErrSyntax     = &Error{Kind: SyntaxError}
	ErrName       = &Error{Kind: NameError}
	ErrType       = &Error{Kind: TypeError}
	ErrValue      = &Error{Kind: ValueError}
	ErrDependency = &Error{Kind: DependencyError}
	ErrCompile    = &Error{Kind: CompileError}
	ErrDatabase   = &Error{Kind: DatabaseError}
)

// Frame is one entry of the interpreter call stack.
type Frame struct {
	Name string
	Pos  lexer.Position
}

func (f Frame) String() string {
	if f.Pos.Line == 0 {
		return f.Name
	}
	return fmt.Sprintf("%s at %s", f.Name, f.Pos)
}

// Error is a Preql error with its kind, source position and call stack.
type Error struct {
	Kind    Kind
	Message string
	Pos     lexer.Position
	Stack   []Frame
	Cause   error
}

// New creates an Error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind around cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	if e.Pos.Line > 0 {
		sb.WriteString(" at ")
		sb.WriteString(e.Pos.String())
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// At returns the error with its position set, unless one is already set.
func (e *Error) At(pos lexer.Position) *Error {
	if e.Pos.Line == 0 {
		e.Pos = pos
	}
	return e
}

// Trace renders the error followed by its call stack, innermost frame first.
func (e *Error) Trace() string {
	if len(e.Stack) == 0 {
		return e.Error()
	}
	var sb strings.Builder
	sb.WriteString(e.Error())
	for i := len(e.Stack) - 1; i >= 0; i-- {
		sb.WriteString("\n    in ")
		sb.WriteString(e.Stack[i].String())
	}
	return sb.String()
}

// KindOf returns the kind of err, or zero when err is not an Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// WithPos attaches pos to err if it is an Error without a position.
func WithPos(err error, pos lexer.Position) error {
	var e *Error
	if errors.As(err, &e) {
		e.At(pos)
	}
	return err
}

// ExitSignal is returned when code requests the end of the session. It is
// not a failure.
type ExitSignal struct {
	Code int
}

func (e *ExitSignal) Error() string {
	return fmt.Sprintf("exit(%d)", e.Code)
}

// IsExit reports whether err is an ExitSignal.
func IsExit(err error) bool {
	var sig *ExitSignal
	return errors.As(err, &sig)
}
