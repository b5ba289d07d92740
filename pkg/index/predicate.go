package index

import (
	"math"

	"github.com/latticedb/lattice/pkg/types"
)

// DistanceKernel names a Minkowski distance used by vector predicates and
// the VA-file/PQ/GG/LSH cost and filter algorithms (spec §4.4.3).
type DistanceKernel int

const (
	L1 DistanceKernel = iota
	L2
	L2Squared
)

// Predicate is the minimal shape the planner hands an index: equality,
// membership, prefix, or k-nearest-neighbour over one column. The
// expression language that produces these is out of scope (spec §1); this
// is the already-bound leaf the planner consumes.
type Predicate interface {
	// Column is the unqualified column name the predicate applies to.
	Column() string
}

// EqPredicate matches `column = value`.
type EqPredicate struct {
	Col   string
	Value types.Value
}

func (p EqPredicate) Column() string { return p.Col }

// InPredicate matches `column IN (values...)`.
type InPredicate struct {
	Col    string
	Values []types.Value
}

func (p InPredicate) Column() string { return p.Col }

// LikePrefixPredicate matches `column LIKE 'prefix%'`.
type LikePrefixPredicate struct {
	Col    string
	Prefix string
}

func (p LikePrefixPredicate) Column() string { return p.Col }

// KNNPredicate requests the K nearest rows to Query under Kernel.
type KNNPredicate struct {
	Col    string
	Query  []float64
	K      int
	Kernel DistanceKernel
}

func (p KNNPredicate) Column() string { return p.Col }

// Cost is the planner's 3-vector cost estimate (spec §4.5). TotalCost
// applies the implementation-fixed scalarization weights used to rank
// candidate physical plans.
type Cost struct {
	IO     float64
	CPU    float64
	Memory float64
}

// Cost weights used by TotalCost. Fixed, not configurable, matching the
// spec's "implementation-fixed weights" (a tunable cost model would need
// workload calibration this engine has no way to do).
const (
	weightIO     = 1.0
	weightCPU    = 0.5
	weightMemory = 0.1
)

// Distance computes the Minkowski distance between two real-valued
// vectors under kernel, for callers outside this package (e.g. pkg/exec's
// DistanceCompute operator) that need the same metric an index's Filter
// would have used.
func Distance(a, b []float64, kernel DistanceKernel) float64 {
	return distance(a, b, kernel)
}

// ZeroCost is the identity element for Cost addition.
var ZeroCost = Cost{}

// InvalidCost sorts higher than any real cost, signaling "this index
// cannot serve this predicate at any price".
var InvalidCost = Cost{IO: math.Inf(1), CPU: math.Inf(1), Memory: math.Inf(1)}

// TotalCost scalarizes the 3-vector into the planner's ranking key.
func (c Cost) TotalCost() float64 {
	return c.IO*weightIO + c.CPU*weightCPU + c.Memory*weightMemory
}

// Add combines two costs componentwise.
func (c Cost) Add(o Cost) Cost {
	return Cost{IO: c.IO + o.IO, CPU: c.CPU + o.CPU, Memory: c.Memory + o.Memory}
}
