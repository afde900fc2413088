package engine

import (
	"errors"
	"fmt"

	"github.com/hollis-dev/loam/internal/schema"
)

// ErrNotFound is wrapped by any operation that references a missing
// note, script, or tree action.
var ErrNotFound = errors.New("not found")

// ErrReadOnly is returned by the write methods of a query context that
// was handed to a read-only hook (on_view, on_hover).
var ErrReadOnly = errors.New("query context is read-only")

// UnknownTypeError reports a note type with no schema in the active
// registry.
type UnknownTypeError struct {
	TypeName string
}

// Error implements the error interface.
func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown note type %q", e.TypeName)
}

// ConstraintError reports a schema placement or field constraint
// violation.
type ConstraintError struct {
	ChildType  string
	ParentType string
	Reason     string
}

// Error implements the error interface.
func (e *ConstraintError) Error() string {
	if e.ParentType != "" {
		return fmt.Sprintf("type %q under %q: %s", e.ChildType, e.ParentType, e.Reason)
	}
	return fmt.Sprintf("type %q: %s", e.ChildType, e.Reason)
}

// CycleError reports a move that would make a note its own ancestor.
type CycleError struct {
	NoteID   string
	TargetID string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("moving %s under %s would create a cycle", e.NoteID, e.TargetID)
}

// TransactionAbortedError wraps an internal failure that occurred
// mid-unit. The whole mutation has been rolled back: no tree change and
// no log record from the unit survives.
type TransactionAbortedError struct {
	Err error
}

// Error implements the error interface.
func (e *TransactionAbortedError) Error() string {
	return fmt.Sprintf("transaction aborted: %v", e.Err)
}

// Unwrap exposes the underlying failure.
func (e *TransactionAbortedError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnknownType reports whether err is an unknown-type failure.
func IsUnknownType(err error) bool {
	var e *UnknownTypeError
	return errors.As(err, &e)
}

// IsConstraint reports whether err is a schema constraint violation.
func IsConstraint(err error) bool {
	var e *ConstraintError
	return errors.As(err, &e)
}

// IsCycle reports whether err is a cycle detection failure.
func IsCycle(err error) bool {
	var e *CycleError
	return errors.As(err, &e)
}

// IsHookError reports whether err originated in a script hook.
func IsHookError(err error) bool {
	var e *schema.HookError
	return errors.As(err, &e)
}

// classify decides what a failed mutation surfaces to the caller.
// Domain errors pass through unchanged; anything else means the unit
// failed mid-write and is reported as an aborted transaction.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var (
		unknown    *UnknownTypeError
		constraint *ConstraintError
		cycle      *CycleError
		hook       *schema.HookError
		aborted    *TransactionAbortedError
	)
	switch {
	case errors.As(err, &unknown),
		errors.As(err, &constraint),
		errors.As(err, &cycle),
		errors.As(err, &hook),
		errors.As(err, &aborted),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrReadOnly):
		return err
	default:
		return &TransactionAbortedError{Err: err}
	}
}
