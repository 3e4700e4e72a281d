// Package migerr defines the single tagged error type the migrator
// raises. It has no dependency on any other internal package so every
// layer — validator, planner, recreator, orchestrator — can construct
// one without risking an import cycle; the root package re-exports the
// type as migrate.RuntimeError.
package migerr

import "fmt"

// Kind distinguishes the handful of fatal conditions the migrator can
// raise. All of them are fatal: every one causes a rollback.
type Kind int

const (
	InvalidSchema Kind = iota
	DeletionRefused
	ForeignKeyViolation
	UnsafePragma
	ExecutionFailure
)

func (k Kind) String() string {
	switch k {
	case InvalidSchema:
		return "InvalidSchema"
	case DeletionRefused:
		return "DeletionRefused"
	case ForeignKeyViolation:
		return "ForeignKeyViolation"
	case UnsafePragma:
		return "UnsafePragma"
	case ExecutionFailure:
		return "ExecutionFailure"
	default:
		return "Unknown"
	}
}

// Error is the migrator's single error type. Callers distinguish kinds
// via Kind rather than matching message substrings.
type Error struct {
	Kind Kind
	Msg  string
	Err  error // underlying cause, if any
}

// New builds an *Error with no wrapped cause.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error around an underlying SQL (or other) error.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }
