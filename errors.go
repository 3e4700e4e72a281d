package migrate

import "github.com/arjunpatel/sqlitemigrate/internal/migerr"

// RuntimeError is the single tagged error type the engine raises, per
// spec.md §7. Every fatal condition — schema rejection, the deletion
// guard, a foreign-key violation, an unsafe pragma, or an underlying
// SQL failure — surfaces as one of these; callers branch on Kind
// instead of matching message substrings.
type RuntimeError = migerr.Error

// Kind identifies which of the fatal conditions below a RuntimeError
// represents.
type Kind = migerr.Kind

// Error kinds. All are fatal and all cause a rollback.
const (
	InvalidSchema       = migerr.InvalidSchema
	DeletionRefused     = migerr.DeletionRefused
	ForeignKeyViolation = migerr.ForeignKeyViolation
	UnsafePragma        = migerr.UnsafePragma
	ExecutionFailure    = migerr.ExecutionFailure
)
