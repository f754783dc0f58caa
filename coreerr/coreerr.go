// Package coreerr defines the structured error kinds callers branch on
// (§7 error handling design), trimmed from the teacher's
// observability.EnhancedError/ErrorContext pattern down to the fields
// this core's callers actually need: a Kind, an operation label, and the
// wrapped cause.
package coreerr

import "fmt"

// Kind identifies which of the §7 error-kind table rows an error belongs to.
type Kind string

const (
	StoreUnavailable         Kind = "store_unavailable"
	StoreConstraintViolation Kind = "store_constraint_violation"
	EphemerisUnavailable     Kind = "ephemeris_unavailable"
	RootFindDiverged         Kind = "root_find_diverged"
	InvalidRange             Kind = "invalid_range"
	CatalogMissing           Kind = "catalog_missing"
)

// Error carries a Kind alongside the operation it occurred in and the
// underlying cause, so callers can branch with errors.As while still
// getting a useful message and an unwrappable chain.
type Error struct {
	Kind      Kind
	Operation string
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Operation, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Operation, e.Kind, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New constructs a Kind-tagged error for operation, wrapping cause.
func New(kind Kind, operation string, cause error) *Error {
	return &Error{Kind: kind, Operation: operation, Cause: cause}
}

// Is reports whether err is a *Error of the given kind, so callers that
// only care about the kind can write `coreerr.Is(err, coreerr.InvalidRange)`
// instead of a manual errors.As + field check.
func Is(err error, kind Kind) bool {
	var e *Error
	if !asError(err, &e) {
		return false
	}
	return e.Kind == kind
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}
