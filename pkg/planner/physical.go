package planner

import (
	"github.com/latticedb/lattice/pkg/catalog"
	"github.com/latticedb/lattice/pkg/exec"
	"github.com/latticedb/lattice/pkg/index"
	"github.com/latticedb/lattice/pkg/storage"
	"github.com/latticedb/lattice/pkg/txn"
)

// Context carries what a Physical node needs to materialize itself into
// an exec.Operator: the transaction state and every Entity DBO the plan
// touches, pre-opened by the caller.
type Context struct {
	Tx       storage.Tx
	Txn      *txn.Transaction
	Entities map[catalog.EntityName]*exec.Entity
	// Store backs PhysPartitionedIndexScan, which needs to open its own
	// Store.View per partition rather than share Tx across all of them
	// (see that type's doc comment). Nil for plans with no partitioned
	// index scan node.
	Store storage.Store
}

// Physical is a node in the physical plan tree. Cost and Executable are
// evaluated bottom-up during implement/select; ToOperator is only called
// on the single tree ultimately chosen to run.
type Physical interface {
	Children() []Physical
	Executable() bool
	Cost() index.Cost
	ToOperator(ctx *Context) (exec.Operator, error)
}

// costOf sums a node's own cost with its children's, the "totalCost"
// spec §4.5 ranks candidates by.
func costOf(p Physical) index.Cost {
	total := p.Cost()
	for _, c := range p.Children() {
		total = total.Add(costOf(c))
	}
	return total
}

// executableOf reports whether p and every descendant is executable.
func executableOf(p Physical) bool {
	if !p.Executable() {
		return false
	}
	for _, c := range p.Children() {
		if !executableOf(c) {
			return false
		}
	}
	return true
}

// --- Physical node kinds ---

// PhysEntityScan is the Nullary physical counterpart of LogicalScan.
type PhysEntityScan struct {
	Entity catalog.EntityName
}

func (s PhysEntityScan) Children() []Physical { return nil }
func (s PhysEntityScan) Executable() bool     { return true }
func (s PhysEntityScan) Cost() index.Cost     { return index.Cost{IO: 1, CPU: 1} }
func (s PhysEntityScan) ToOperator(ctx *Context) (exec.Operator, error) {
	e, ok := ctx.Entities[s.Entity]
	if !ok {
		return nil, errEntityNotBound(s.Entity)
	}
	return exec.NewEntityScan(ctx.Tx, ctx.Txn, e), nil
}

// PhysIndexScan is the Nullary physical counterpart of a LogicalFilter
// absorbed into an index access path instead of a residual predicate.
type PhysIndexScan struct {
	Entity catalog.EntityName
	Index  index.Index
	Pred   index.Predicate
	cost   index.Cost
}

func (s PhysIndexScan) Children() []Physical { return nil }
func (s PhysIndexScan) Executable() bool     { return s.Index != nil && s.Index.CanProcess(s.Pred) }
func (s PhysIndexScan) Cost() index.Cost     { return s.cost }
func (s PhysIndexScan) ToOperator(ctx *Context) (exec.Operator, error) {
	return exec.NewIndexFilterScan(ctx.Tx, ctx.Txn, s.Index, s.Pred, 0, 1), nil
}

// PhysPartitionedIndexScan is the Nullary physical counterpart of a
// LogicalFilter absorbed into a partitioning-capable index (currently
// VAFile and PQIndex): instead of one Filter call against the query's
// ambient Tx, it fans Parts FilterRange calls across the index, each
// inside its own independently-opened Store.View (spec §4.4.3's
// independent-snapshot-per-partition requirement). costOf favors this
// over a plain PhysIndexScan when eligible, trading the ambient
// snapshot's single-scan simplicity for reading Parts disjoint
// sub-ranges, each a cheaper, narrower scan.
type PhysPartitionedIndexScan struct {
	Entity catalog.EntityName
	Index  index.Index
	Pred   index.Predicate
	Parts  int
	cost   index.Cost
}

func (s PhysPartitionedIndexScan) Children() []Physical { return nil }
func (s PhysPartitionedIndexScan) Executable() bool {
	return s.Index != nil && s.Index.CanProcess(s.Pred) && s.Index.SupportsPartitioning() && s.Parts > 1
}
func (s PhysPartitionedIndexScan) Cost() index.Cost { return s.cost }
func (s PhysPartitionedIndexScan) ToOperator(ctx *Context) (exec.Operator, error) {
	if ctx.Store == nil {
		return nil, errNoStoreBound(s.Entity)
	}
	return exec.NewPartitionedIndexScan(ctx.Store, ctx.Txn, s.Index, s.Pred, s.Parts), nil
}

// PhysFilter is a Unary node wrapping a residual predicate the chosen
// access path did not absorb.
type PhysFilter struct {
	Child Physical
	Pred  index.Predicate
}

func (f PhysFilter) Children() []Physical { return []Physical{f.Child} }
func (f PhysFilter) Executable() bool     { return true }
func (f PhysFilter) Cost() index.Cost     { return index.Cost{CPU: 0.5} }
func (f PhysFilter) ToOperator(ctx *Context) (exec.Operator, error) {
	child, err := f.Child.ToOperator(ctx)
	if err != nil {
		return nil, err
	}
	return exec.NewFilter(child, adaptPredicate(f.Pred)), nil
}

// PhysProjection is a Unary node.
type PhysProjection struct {
	Child   Physical
	Columns []string
}

func (p PhysProjection) Children() []Physical { return []Physical{p.Child} }
func (p PhysProjection) Executable() bool     { return true }
func (p PhysProjection) Cost() index.Cost     { return index.Cost{CPU: 0.1} }
func (p PhysProjection) ToOperator(ctx *Context) (exec.Operator, error) {
	child, err := p.Child.ToOperator(ctx)
	if err != nil {
		return nil, err
	}
	return exec.NewProjection(child, p.Columns), nil
}

// PhysSort is a Unary node. Materializing cost is higher than a
// streaming operator's (spec §4.6: sort has no incremental strategy over
// a pull-based tree).
type PhysSort struct {
	Child  Physical
	Column string
	Desc   bool
}

func (s PhysSort) Children() []Physical { return []Physical{s.Child} }
func (s PhysSort) Executable() bool     { return true }
func (s PhysSort) Cost() index.Cost     { return index.Cost{CPU: 2, Memory: 1} }
func (s PhysSort) ToOperator(ctx *Context) (exec.Operator, error) {
	child, err := s.Child.ToOperator(ctx)
	if err != nil {
		return nil, err
	}
	return exec.NewSort(child, s.Column, s.Desc), nil
}

// PhysLimit is a Unary node.
type PhysLimit struct {
	Child Physical
	N     int
}

func (l PhysLimit) Children() []Physical { return []Physical{l.Child} }
func (l PhysLimit) Executable() bool     { return true }
func (l PhysLimit) Cost() index.Cost     { return index.ZeroCost }
func (l PhysLimit) ToOperator(ctx *Context) (exec.Operator, error) {
	child, err := l.Child.ToOperator(ctx)
	if err != nil {
		return nil, err
	}
	return exec.NewLimit(child, l.N), nil
}

// PhysUnion is an NAry node.
type PhysUnion struct {
	Inputs []Physical
}

func (u PhysUnion) Children() []Physical { return u.Inputs }
func (u PhysUnion) Executable() bool     { return true }
func (u PhysUnion) Cost() index.Cost     { return index.Cost{CPU: 0.2} }
func (u PhysUnion) ToOperator(ctx *Context) (exec.Operator, error) {
	ops := make([]exec.Operator, len(u.Inputs))
	for i, in := range u.Inputs {
		op, err := in.ToOperator(ctx)
		if err != nil {
			return nil, err
		}
		ops[i] = op
	}
	return exec.NewUnion(ops...), nil
}

// PhysHashJoin is a Binary node.
type PhysHashJoin struct {
	Left, Right       Physical
	LeftCol, RightCol string
}

func (j PhysHashJoin) Children() []Physical { return []Physical{j.Left, j.Right} }
func (j PhysHashJoin) Executable() bool     { return true }
func (j PhysHashJoin) Cost() index.Cost     { return index.Cost{CPU: 1, Memory: 1} }
func (j PhysHashJoin) ToOperator(ctx *Context) (exec.Operator, error) {
	left, err := j.Left.ToOperator(ctx)
	if err != nil {
		return nil, err
	}
	right, err := j.Right.ToOperator(ctx)
	if err != nil {
		return nil, err
	}
	return exec.NewHashJoin(left, j.LeftCol, right, j.RightCol), nil
}
