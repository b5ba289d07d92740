package planner

// Rule is a logical (or physical) rewrite rule: given one node, it either
// proposes an equivalent replacement or declines.
type Rule interface {
	Apply(node Logical) (Logical, bool)
}

// withChildren reconstructs node with newChildren substituted in for its
// current Children(), preserving every other field.
func withChildren(node Logical, newChildren []Logical) Logical {
	switch n := node.(type) {
	case LogicalScan:
		return n
	case LogicalFilter:
		return LogicalFilter{Child: newChildren[0], Pred: n.Pred}
	case LogicalProjection:
		return LogicalProjection{Child: newChildren[0], Columns: n.Columns}
	case LogicalSort:
		return LogicalSort{Child: newChildren[0], Column: n.Column, Desc: n.Desc}
	case LogicalLimit:
		return LogicalLimit{Child: newChildren[0], N: n.N}
	case LogicalUnion:
		return LogicalUnion{Inputs: newChildren}
	case LogicalJoin:
		return LogicalJoin{Left: newChildren[0], Right: newChildren[1], LeftCol: n.LeftCol, RightCol: n.RightCol}
	default:
		return node
	}
}

// swapSortFilter pushes a Filter below a Sort: filtering doesn't depend
// on row order, so Sort(Filter(x)) == Filter(Sort(x)); the latter lets
// the sort see fewer rows sooner in a pipelined executor.
type swapSortFilter struct{}

func (swapSortFilter) Apply(node Logical) (Logical, bool) {
	sort, ok := node.(LogicalSort)
	if !ok {
		return nil, false
	}
	filter, ok := sort.Child.(LogicalFilter)
	if !ok {
		return nil, false
	}
	return LogicalFilter{
		Pred:  filter.Pred,
		Child: LogicalSort{Child: filter.Child, Column: sort.Column, Desc: sort.Desc},
	}, true
}

// swapLimitProjection pushes a Limit below a Projection: projecting
// columns out doesn't change which rows survive a row-count cap.
type swapLimitProjection struct{}

func (swapLimitProjection) Apply(node Logical) (Logical, bool) {
	limit, ok := node.(LogicalLimit)
	if !ok {
		return nil, false
	}
	proj, ok := limit.Child.(LogicalProjection)
	if !ok {
		return nil, false
	}
	return LogicalProjection{
		Columns: proj.Columns,
		Child:   LogicalLimit{Child: proj.Child, N: limit.N},
	}, true
}

// pushFilterBelowProjection reorders Filter(Projection(x)) into
// Projection(Filter(x)) when the filtered column survives the
// projection, letting an index scan underneath see the original
// predicate instead of a residual one evaluated after projection.
type pushFilterBelowProjection struct{}

func (pushFilterBelowProjection) Apply(node Logical) (Logical, bool) {
	filter, ok := node.(LogicalFilter)
	if !ok {
		return nil, false
	}
	proj, ok := filter.Child.(LogicalProjection)
	if !ok {
		return nil, false
	}
	keep := false
	for _, c := range proj.Columns {
		if c == filter.Pred.Column() {
			keep = true
			break
		}
	}
	if !keep {
		return nil, false
	}
	return LogicalProjection{
		Columns: proj.Columns,
		Child:   LogicalFilter{Pred: filter.Pred, Child: proj.Child},
	}, true
}

var logicalRules = []Rule{swapSortFilter{}, swapLimitProjection{}, pushFilterBelowProjection{}}

// applyOnce returns every tree reachable from node by applying rule
// exactly once, anywhere in the tree (at node itself, or recursively
// within exactly one child, with the rest of the tree unchanged).
func applyOnce(node Logical, rule Rule) []Logical {
	var out []Logical
	if rewritten, ok := rule.Apply(node); ok {
		out = append(out, rewritten)
	}
	children := node.Children()
	for i, child := range children {
		for _, newChild := range applyOnce(child, rule) {
			newChildren := append([]Logical{}, children...)
			newChildren[i] = newChild
			out = append(out, withChildren(node, newChildren))
		}
	}
	return out
}

// maxExplorationRounds bounds the BFS so a misbehaving rule (one that
// isn't actually shrinking-under-digest) cannot loop forever; legitimate
// rule sets converge in a handful of rounds long before this is reached.
const maxExplorationRounds = 25

// explore performs the BFS rewrite exploration of spec §4.5 stage 2:
// starting from root, repeatedly apply every rule to every tree in the
// current frontier, keeping only trees whose digest hasn't been seen
// before (the memoization that both prevents re-exploration and
// guarantees termination).
func explore(root Logical) []Logical {
	memo := map[string]bool{root.Digest(): true}
	all := []Logical{root}
	frontier := []Logical{root}

	for round := 0; len(frontier) > 0 && round < maxExplorationRounds; round++ {
		var next []Logical
		for _, tree := range frontier {
			for _, rule := range logicalRules {
				for _, candidate := range applyOnce(tree, rule) {
					d := candidate.Digest()
					if memo[d] {
						continue
					}
					memo[d] = true
					all = append(all, candidate)
					next = append(next, candidate)
				}
			}
		}
		frontier = next
	}
	return all
}
