package exec

import (
	"github.com/latticedb/lattice/pkg/types"
)

// Union merges several child operators into one Record stream, in child
// order, deduplicating by TupleId (spec §4.6: a predicate expanded across
// several indexes, e.g. an OR over two indexed columns, recombines this
// way).
type Union struct {
	children []Operator
	idx      int
	seen     map[types.TupleId]bool
}

func NewUnion(children ...Operator) *Union {
	return &Union{children: children, seen: make(map[types.TupleId]bool)}
}

func (u *Union) Open() error {
	for _, c := range u.children {
		if err := c.Open(); err != nil {
			return err
		}
	}
	return nil
}

func (u *Union) Next() (types.Record, bool, error) {
	for u.idx < len(u.children) {
		rec, ok, err := u.children[u.idx].Next()
		if err != nil {
			return types.Record{}, false, err
		}
		if !ok {
			u.idx++
			continue
		}
		if u.seen[rec.Tuple] {
			continue
		}
		u.seen[rec.Tuple] = true
		return rec, true, nil
	}
	return types.Record{}, false, nil
}

func (u *Union) Close() error {
	var first error
	for _, c := range u.children {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Intersect yields only TupleIds present in every child's output. It
// materializes all but the first child (spec §4.6's AND-of-indexes
// recombination has no cheaper pull-based strategy once each side is an
// independent index scan).
type Intersect struct {
	children []Operator
	probe    []map[types.TupleId]bool
	first    Operator
}

func NewIntersect(children ...Operator) *Intersect {
	return &Intersect{children: children}
}

func (x *Intersect) Open() error {
	for _, c := range x.children {
		if err := c.Open(); err != nil {
			return err
		}
	}
	x.first = x.children[0]
	for _, c := range x.children[1:] {
		set := make(map[types.TupleId]bool)
		for {
			rec, ok, err := c.Next()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			set[rec.Tuple] = true
		}
		x.probe = append(x.probe, set)
	}
	return nil
}

func (x *Intersect) Next() (types.Record, bool, error) {
	for {
		rec, ok, err := x.first.Next()
		if err != nil || !ok {
			return rec, ok, err
		}
		all := true
		for _, set := range x.probe {
			if !set[rec.Tuple] {
				all = false
				break
			}
		}
		if all {
			return rec, true, nil
		}
	}
}

func (x *Intersect) Close() error {
	var first error
	for _, c := range x.children {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// HashJoin joins left and right on equal values of their respective join
// columns, building an in-memory hash table over right (the presumed
// smaller side) before probing with left (spec §4.6's cross-entity join
// support). Output records concatenate left's columns then right's.
type HashJoin struct {
	left, right      Operator
	leftCol, rightCol string
	table            map[string][]types.Record
	matches          []types.Record
	leftRec          types.Record
	matchIdx         int
}

func NewHashJoin(left Operator, leftCol string, right Operator, rightCol string) *HashJoin {
	return &HashJoin{left: left, leftCol: leftCol, right: right, rightCol: rightCol}
}

func (j *HashJoin) Open() error {
	if err := j.left.Open(); err != nil {
		return err
	}
	if err := j.right.Open(); err != nil {
		return err
	}
	j.table = make(map[string][]types.Record)
	for {
		rec, ok, err := j.right.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		v, present := rec.Get(j.rightCol)
		if !present {
			continue
		}
		key := v.String()
		j.table[key] = append(j.table[key], rec)
	}
	return nil
}

func (j *HashJoin) Next() (types.Record, bool, error) {
	for {
		if j.matchIdx < len(j.matches) {
			right := j.matches[j.matchIdx]
			j.matchIdx++
			return combineRecords(j.leftRec, right), true, nil
		}
		rec, ok, err := j.left.Next()
		if err != nil {
			return types.Record{}, false, err
		}
		if !ok {
			return types.Record{}, false, nil
		}
		v, present := rec.Get(j.leftCol)
		if !present {
			continue
		}
		j.leftRec = rec
		j.matches = j.table[v.String()]
		j.matchIdx = 0
	}
}

func combineRecords(left, right types.Record) types.Record {
	defs := append(append([]types.ColumnDef{}, left.Columns...), right.Columns...)
	vals := append(append([]types.Value{}, left.Values...), right.Values...)
	return types.NewRecord(left.Tuple, defs, vals)
}

func (j *HashJoin) Close() error {
	errL := j.left.Close()
	errR := j.right.Close()
	if errL != nil {
		return errL
	}
	return errR
}
