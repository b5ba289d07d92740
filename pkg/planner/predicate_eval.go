package planner

import (
	"fmt"
	"strings"

	"github.com/latticedb/lattice/pkg/catalog"
	"github.com/latticedb/lattice/pkg/index"
	"github.com/latticedb/lattice/pkg/types"
)

func errEntityNotBound(name catalog.EntityName) error {
	return fmt.Errorf("planner: entity %q not bound in execution context", name)
}

// adaptPredicate evaluates a residual Predicate (one the chosen access
// path could not fully absorb into an Index.Filter) against a materialized
// Record, for use by exec.Filter.
func adaptPredicate(p index.Predicate) func(types.Record) (bool, error) {
	switch pr := p.(type) {
	case index.EqPredicate:
		return func(rec types.Record) (bool, error) {
			v, ok := rec.Get(pr.Col)
			if !ok {
				return false, nil
			}
			return scalarEqual(v, pr.Value)
		}
	case index.InPredicate:
		return func(rec types.Record) (bool, error) {
			v, ok := rec.Get(pr.Col)
			if !ok {
				return false, nil
			}
			for _, candidate := range pr.Values {
				eq, err := scalarEqual(v, candidate)
				if err != nil {
					return false, err
				}
				if eq {
					return true, nil
				}
			}
			return false, nil
		}
	case index.LikePrefixPredicate:
		return func(rec types.Record) (bool, error) {
			v, ok := rec.Get(pr.Col)
			if !ok {
				return false, nil
			}
			s, ok := v.(types.StringValue)
			if !ok {
				return false, nil
			}
			return strings.HasPrefix(string(s), pr.Prefix), nil
		}
	default:
		// KNNPredicate and any other kind have no meaningful residual
		// form once an index has already produced the candidate set;
		// a plan should never attach a PhysFilter over one of these.
		return func(types.Record) (bool, error) { return true, nil }
	}
}

func scalarEqual(a, b types.Value) (bool, error) {
	sa, ok := a.(types.ScalarValue)
	if !ok {
		return false, nil
	}
	cmp, err := sa.CompareTo(b)
	if err != nil {
		return false, err
	}
	return cmp == 0, nil
}
