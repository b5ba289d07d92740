package planner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/latticedb/lattice/pkg/catalog"
	"github.com/latticedb/lattice/pkg/index"
)

// GroupID numbers a sub-tree of a logical plan. The planner explores the
// whole tree as one unit, so nothing in this package assigns group ids.
type GroupID int

// Logical is a node in the logical plan tree (spec §4.5's "Nullary
// (sources), Unary (filter, projection, sort, limit), Binary (join-ish),
// NAry (union)" taxonomy).
type Logical interface {
	// Children returns this node's logical inputs, left/first first.
	Children() []Logical
	// Digest is a structural fingerprint used for rewrite-exploration
	// memoization and plan-cache keys. Equal trees must produce equal
	// digests; the converse need not hold exactly, but collisions should
	// be rare for this to be a useful cache key.
	Digest() string
}

// LogicalScan is a Nullary node: every live tuple of an entity.
type LogicalScan struct {
	Entity catalog.EntityName
}

func (s LogicalScan) Children() []Logical { return nil }
func (s LogicalScan) Digest() string      { return fmt.Sprintf("scan(%s)", s.Entity) }

// LogicalFilter is a Unary node: child rows matching Pred.
type LogicalFilter struct {
	Child Logical
	Pred  index.Predicate
}

func (f LogicalFilter) Children() []Logical { return []Logical{f.Child} }
func (f LogicalFilter) Digest() string {
	return fmt.Sprintf("filter(%s,%s)", f.Child.Digest(), digestPredicate(f.Pred))
}

// LogicalProjection is a Unary node: child rows narrowed to Columns.
type LogicalProjection struct {
	Child   Logical
	Columns []string
}

func (p LogicalProjection) Children() []Logical { return []Logical{p.Child} }
func (p LogicalProjection) Digest() string {
	return fmt.Sprintf("proj(%s,[%s])", p.Child.Digest(), strings.Join(p.Columns, ","))
}

// LogicalSort is a Unary node: child rows ordered by Column.
type LogicalSort struct {
	Child  Logical
	Column string
	Desc   bool
}

func (s LogicalSort) Children() []Logical { return []Logical{s.Child} }
func (s LogicalSort) Digest() string {
	return fmt.Sprintf("sort(%s,%s,%v)", s.Child.Digest(), s.Column, s.Desc)
}

// LogicalLimit is a Unary node: at most N child rows.
type LogicalLimit struct {
	Child Logical
	N     int
}

func (l LogicalLimit) Children() []Logical { return []Logical{l.Child} }
func (l LogicalLimit) Digest() string      { return fmt.Sprintf("limit(%s,%d)", l.Child.Digest(), l.N) }

// LogicalUnion is an NAry node: the deduplicated concatenation of every
// input.
type LogicalUnion struct {
	Inputs []Logical
}

func (u LogicalUnion) Children() []Logical { return u.Inputs }
func (u LogicalUnion) Digest() string {
	parts := make([]string, len(u.Inputs))
	for i, in := range u.Inputs {
		parts[i] = in.Digest()
	}
	return fmt.Sprintf("union(%s)", strings.Join(parts, ","))
}

// LogicalJoin is a Binary node: an equi-join of Left and Right on
// LeftCol/RightCol.
type LogicalJoin struct {
	Left, Right         Logical
	LeftCol, RightCol   string
}

func (j LogicalJoin) Children() []Logical { return []Logical{j.Left, j.Right} }
func (j LogicalJoin) Digest() string {
	return fmt.Sprintf("join(%s,%s,%s,%s)", j.Left.Digest(), j.Right.Digest(), j.LeftCol, j.RightCol)
}

func digestPredicate(p index.Predicate) string {
	switch pr := p.(type) {
	case index.EqPredicate:
		return fmt.Sprintf("eq(%s,%v)", pr.Col, pr.Value)
	case index.InPredicate:
		return fmt.Sprintf("in(%s,%d)", pr.Col, len(pr.Values))
	case index.LikePrefixPredicate:
		return fmt.Sprintf("like(%s,%s)", pr.Col, pr.Prefix)
	case index.KNNPredicate:
		return fmt.Sprintf("knn(%s,%d,%d,%d)", pr.Col, len(pr.Query), pr.K, pr.Kernel)
	default:
		return fmt.Sprintf("pred(%s)", p.Column())
	}
}

// binaryOrNAry reports whether node has more than one child, i.e. is a
// Binary or NAry node.
func binaryOrNAry(node Logical) bool {
	return len(node.Children()) > 1
}

// sortedDigests returns the digests of nodes in sorted order, an
// order-independent fingerprint for commutative node lists (e.g. union
// inputs). No rewrite rule in this package calls it.
func sortedDigests(nodes []Logical) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Digest()
	}
	sort.Strings(out)
	return out
}
