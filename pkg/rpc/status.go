// Package rpc defines the DQL/DML/DDL boundary (spec §6): a bound
// operation plus a transaction id in, a record stream or error out. The
// wire transport itself (§6, explicitly out of scope) is not built here —
// grpc/protobuf were dropped in favor of specifying this boundary as a
// plain Go interface with one in-process adapter, the way a real gRPC
// service would sit in front of pkg/manager in the teacher.
package rpc

import (
	"errors"

	"github.com/latticedb/lattice/pkg/dberrors"
)

// Status is the small enumeration spec §7 maps error Kinds onto. It
// deliberately has no ALREADY_EXISTS or OK member: a boundary that never
// shipped a wire codec has no use for one, and the spec only asks for
// these six.
type Status int

const (
	StatusInvalidArgument Status = iota
	StatusNotFound
	StatusFailedPrecondition
	StatusAborted
	StatusInternal
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusInvalidArgument:
		return "INVALID_ARGUMENT"
	case StatusNotFound:
		return "NOT_FOUND"
	case StatusFailedPrecondition:
		return "FAILED_PRECONDITION"
	case StatusAborted:
		return "ABORTED"
	case StatusInternal:
		return "INTERNAL"
	case StatusUnavailable:
		return "UNAVAILABLE"
	default:
		return "UNKNOWN"
	}
}

// StatusOf maps a dberrors.Kind to the status code a wire boundary would
// report it as. Errors that don't carry a Kind (a bug, not a modeled
// failure) map to INTERNAL.
func StatusOf(err error) Status {
	kind, ok := dberrors.KindOf(err)
	if !ok {
		return StatusInternal
	}
	switch kind {
	case dberrors.KindSchemaDoesNotExist, dberrors.KindEntityDoesNotExist,
		dberrors.KindColumnDoesNotExist, dberrors.KindIndexDoesNotExist:
		return StatusNotFound
	case dberrors.KindSchemaAlreadyExists, dberrors.KindEntityAlreadyExists,
		dberrors.KindIndexAlreadyExists, dberrors.KindWrongTxState,
		dberrors.KindValidation, dberrors.KindDboClosed:
		return StatusFailedPrecondition
	case dberrors.KindDeadlock, dberrors.KindCancellation:
		return StatusAborted
	case dberrors.KindReservedValue, dberrors.KindUnsupportedPredicate,
		dberrors.KindBind:
		return StatusInvalidArgument
	case dberrors.KindDataCorruption, dberrors.KindVersionMismatch,
		dberrors.KindInvalidFile, dberrors.KindPlanningFailure,
		dberrors.KindExecutionError:
		return StatusInternal
	default:
		return StatusInternal
	}
}

// errUnknownTransaction is returned when a caller references a txn.TxID
// the TransactionManager no longer (or never did) hold live.
var errUnknownTransaction = errors.New("rpc: unknown or finalized transaction")
