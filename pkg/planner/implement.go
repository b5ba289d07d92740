package planner

import (
	"github.com/latticedb/lattice/pkg/catalog"
	"github.com/latticedb/lattice/pkg/exec"
	"github.com/latticedb/lattice/pkg/storage"
)

// implement is the spec §4.5 "implement" stage: it turns one logical tree
// into every physical tree that can execute it, given the already-opened
// Entity DBOs the tree references. A node with an index-eligible filter
// directly over a scan yields both an index-scan candidate and a plain
// scan-then-residual-filter candidate; costing and executability decide
// between them later.
func implement(tx storage.Tx, node Logical, entities map[catalog.EntityName]*exec.Entity, parts int) ([]Physical, error) {
	switch n := node.(type) {
	case LogicalScan:
		return []Physical{PhysEntityScan{Entity: n.Entity}}, nil

	case LogicalFilter:
		childCandidates, err := implement(tx, n.Child, entities, parts)
		if err != nil {
			return nil, err
		}
		out := make([]Physical, 0, len(childCandidates)+1)
		for _, cc := range childCandidates {
			out = append(out, PhysFilter{Child: cc, Pred: n.Pred})
		}
		if scan, ok := n.Child.(LogicalScan); ok {
			if e, ok := entities[scan.Entity]; ok {
				for _, ix := range e.Indexes() {
					if !ix.CanProcess(n.Pred) {
						continue
					}
					cost, err := ix.Cost(tx, n.Pred)
					if err != nil {
						return nil, err
					}
					out = append(out, PhysIndexScan{
						Entity: scan.Entity,
						Index:  ix,
						Pred:   n.Pred,
						cost:   cost,
					})
					if parts > 1 && ix.SupportsPartitioning() {
						// Reading Parts disjoint sub-ranges costs the same
						// total I/O as one full scan, but each sub-range is
						// a narrower, independent read; model that as a
						// lower per-candidate I/O cost so selectBest
						// prefers it over the unpartitioned scan whenever
						// it is reachable.
						partCost := cost
						partCost.IO = cost.IO / float64(parts)
						out = append(out, PhysPartitionedIndexScan{
							Entity: scan.Entity,
							Index:  ix,
							Pred:   n.Pred,
							Parts:  parts,
							cost:   partCost,
						})
					}
				}
			}
		}
		return out, nil

	case LogicalProjection:
		childCandidates, err := implement(tx, n.Child, entities, parts)
		if err != nil {
			return nil, err
		}
		out := make([]Physical, len(childCandidates))
		for i, cc := range childCandidates {
			out[i] = PhysProjection{Child: cc, Columns: n.Columns}
		}
		return out, nil

	case LogicalSort:
		childCandidates, err := implement(tx, n.Child, entities, parts)
		if err != nil {
			return nil, err
		}
		out := make([]Physical, len(childCandidates))
		for i, cc := range childCandidates {
			out[i] = PhysSort{Child: cc, Column: n.Column, Desc: n.Desc}
		}
		return out, nil

	case LogicalLimit:
		childCandidates, err := implement(tx, n.Child, entities, parts)
		if err != nil {
			return nil, err
		}
		out := make([]Physical, len(childCandidates))
		for i, cc := range childCandidates {
			out[i] = PhysLimit{Child: cc, N: n.N}
		}
		return out, nil

	case LogicalUnion:
		perInput := make([][]Physical, len(n.Inputs))
		for i, in := range n.Inputs {
			cands, err := implement(tx, in, entities, parts)
			if err != nil {
				return nil, err
			}
			perInput[i] = cands
		}
		out := make([]Physical, 0, len(perInput))
		for _, combo := range cartesian(perInput) {
			out = append(out, PhysUnion{Inputs: combo})
		}
		return out, nil

	case LogicalJoin:
		leftCandidates, err := implement(tx, n.Left, entities, parts)
		if err != nil {
			return nil, err
		}
		rightCandidates, err := implement(tx, n.Right, entities, parts)
		if err != nil {
			return nil, err
		}
		out := make([]Physical, 0, len(leftCandidates)*len(rightCandidates))
		for _, l := range leftCandidates {
			for _, r := range rightCandidates {
				out = append(out, PhysHashJoin{Left: l, Right: r, LeftCol: n.LeftCol, RightCol: n.RightCol})
			}
		}
		return out, nil

	default:
		return nil, errUnknownLogicalNode(node)
	}
}

// cartesian expands independent per-input candidate lists into every
// combination, one slice per combination in the same input order.
func cartesian(perInput [][]Physical) [][]Physical {
	if len(perInput) == 0 {
		return nil
	}
	combos := [][]Physical{{}}
	for _, candidates := range perInput {
		var next [][]Physical
		for _, combo := range combos {
			for _, c := range candidates {
				grown := append(append([]Physical{}, combo...), c)
				next = append(next, grown)
			}
		}
		combos = next
	}
	return combos
}
