package exec

import (
	"github.com/latticedb/lattice/pkg/dberrors"
	"github.com/latticedb/lattice/pkg/txn"
	"github.com/latticedb/lattice/pkg/types"
)

// Operator is the pull-based node every compiled plan is built from
// (spec §4.6). Open prepares the operator (and recursively its
// children); Next yields one Record at a time; Close releases any
// cursor state. Callers drive Next in a loop until it reports false.
type Operator interface {
	Open() error
	Next() (types.Record, bool, error)
	Close() error
}

// cancelCheck is embedded by the source operators (EntityScan,
// IndexFilterScan, PartitionedIndexScan) so that
// cancellation (spec §5's "checked between yielded records, no mid-call
// preemption") is observed uniformly without threading a *txn.Transaction
// through every call site by hand.
type cancelCheck struct {
	tx *txn.Transaction
}

func (c cancelCheck) check() error {
	if c.tx == nil {
		return nil
	}
	return c.tx.CheckCancellation()
}

// wrapCancellation lets an operator's Next loop early-exit with a
// CancellationError the instant a kill() lands, rather than finishing
// whatever batch of work it was mid-way through (spec §5).
func wrapCancellation(err error) (types.Record, bool, error) {
	return types.Record{}, false, dberrors.New(dberrors.KindCancellation, "exec", err)
}
