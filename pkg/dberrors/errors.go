// Package dberrors enumerates the engine's error taxonomy and the
// propagation rules that go with it (see DESIGN.md and spec.md §7).
package dberrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to branch on it (retry,
// surface verbatim, map to an RPC status, etc) without string matching.
type Kind int

const (
	// Structural
	KindSchemaAlreadyExists Kind = iota
	KindSchemaDoesNotExist
	KindEntityAlreadyExists
	KindEntityDoesNotExist
	KindColumnDoesNotExist
	KindIndexAlreadyExists
	KindIndexDoesNotExist

	// Storage
	KindDataCorruption
	KindVersionMismatch
	KindInvalidFile
	KindReservedValue

	// Transactional
	KindDboClosed
	KindWrongTxState
	KindDeadlock
	KindCancellation
	KindValidation

	// Query
	KindUnsupportedPredicate
	KindPlanningFailure
	KindBind

	// Execution
	KindExecutionError
)

func (k Kind) String() string {
	switch k {
	case KindSchemaAlreadyExists:
		return "SchemaAlreadyExists"
	case KindSchemaDoesNotExist:
		return "SchemaDoesNotExist"
	case KindEntityAlreadyExists:
		return "EntityAlreadyExists"
	case KindEntityDoesNotExist:
		return "EntityDoesNotExist"
	case KindColumnDoesNotExist:
		return "ColumnDoesNotExist"
	case KindIndexAlreadyExists:
		return "IndexAlreadyExists"
	case KindIndexDoesNotExist:
		return "IndexDoesNotExist"
	case KindDataCorruption:
		return "DataCorruption"
	case KindVersionMismatch:
		return "VersionMismatch"
	case KindInvalidFile:
		return "InvalidFile"
	case KindReservedValue:
		return "ReservedValue"
	case KindDboClosed:
		return "DboClosed"
	case KindWrongTxState:
		return "WrongTxState"
	case KindDeadlock:
		return "Deadlock"
	case KindCancellation:
		return "Cancellation"
	case KindValidation:
		return "Validation"
	case KindUnsupportedPredicate:
		return "UnsupportedPredicate"
	case KindPlanningFailure:
		return "PlanningFailure"
	case KindBind:
		return "Bind"
	case KindExecutionError:
		return "ExecutionError"
	default:
		return "Unknown"
	}
}

// Fatal reports whether the kind marks its containing DBO unusable until
// restart (spec.md §7: DataCorruption and VersionMismatch).
func (k Kind) Fatal() bool {
	return k == KindDataCorruption || k == KindVersionMismatch
}

// Error wraps an underlying error with a Kind and the operation that
// produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an *Error for the given kind and operation.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err (or any error it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, returning ok=false if err does not
// wrap a *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
