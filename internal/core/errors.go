package core

import (
	"errors"
	"fmt"

	"github.com/coregx/verso/internal/security"
)

// Predefined errors returned by model registration and query execution.
var (
	// ErrStatementCompile matches every *CompileError.
	ErrStatementCompile = errors.New("statement compile error")
	// ErrUnknownField is returned when a field name is not declared on the model.
	ErrUnknownField = errors.New("unknown field")
	// ErrUnknownColumn is returned when a result column cannot be mapped to a selected field.
	ErrUnknownColumn = errors.New("unknown result column")
	// ErrForeignField is returned when a field of another model is used in a query.
	ErrForeignField = errors.New("field does not belong to model")
	// ErrDuplicateField is returned when two fields of a model share a name.
	ErrDuplicateField = errors.New("duplicate field name")
	// ErrMultiplePrimaryKeys is returned when a model declares more than one primary key.
	ErrMultiplePrimaryKeys = errors.New("multiple primary keys declared")
	// ErrFieldBound is returned when a field is registered on a second model.
	ErrFieldBound = errors.New("field already bound to a model")
	// ErrInvalidForeignKey is returned when a foreign key does not point to a field.
	ErrInvalidForeignKey = errors.New("foreign key without target field")
	// ErrDuplicateModel is returned when a table name is registered twice.
	ErrDuplicateModel = errors.New("model already registered")
	// ErrInvalidJoin is returned when a composed model cannot be built from its members.
	ErrInvalidJoin = errors.New("invalid composed model")
	// ErrComposedModel is returned by operations that need a single-table model.
	ErrComposedModel = errors.New("operation not supported on composed model")
	// ErrNilModel is returned when a nil model is used.
	ErrNilModel = errors.New("nil model")
	// ErrNoExecutor is returned when a statement is run without an executor.
	ErrNoExecutor = errors.New("no executor configured")
	// ErrInvalidIdentifier is returned for unusable table or column names.
	ErrInvalidIdentifier = security.ErrInvalidIdentifier
)

// CompileError reports a malformed expression tree or query state.
// It matches ErrStatementCompile with errors.Is.
type CompileError struct {
	Reason string
}

func (e *CompileError) Error() string {
	return "compile: " + e.Reason
}

// Is reports whether target is ErrStatementCompile.
func (e *CompileError) Is(target error) bool {
	return target == ErrStatementCompile
}

func compileErrorf(format string, args ...any) error {
	return &CompileError{Reason: fmt.Sprintf(format, args...)}
}

// ExecutionError carries a failure reported by the Executor together with
// the statement that failed. The cause is available through errors.Unwrap.
type ExecutionError struct {
	SQL string
	Err error
}

func (e *ExecutionError) Error() string {
	return "execute " + e.SQL + ": " + e.Err.Error()
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// WrapError prefixes err with message, keeping it reachable through
// errors.Is and errors.As. A nil err stays nil.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{
		msg: message,
		err: err,
	}
}

type wrappedError struct {
	msg string
	err error
}

func (e *wrappedError) Error() string {
	return e.msg + ": " + e.err.Error()
}

func (e *wrappedError) Unwrap() error {
	return e.err
}
