package exec

import (
	"fmt"
	"sort"

	"github.com/latticedb/lattice/pkg/index"
	"github.com/latticedb/lattice/pkg/types"
)

// Filter drops every Record its predicate rejects. It exists for
// predicates the chosen access path could not fully absorb into an
// Index.Filter (a residual predicate left over after index selection,
// spec §4.5).
type Filter struct {
	child Operator
	keep  func(types.Record) (bool, error)
}

func NewFilter(child Operator, keep func(types.Record) (bool, error)) *Filter {
	return &Filter{child: child, keep: keep}
}

func (f *Filter) Open() error { return f.child.Open() }

func (f *Filter) Next() (types.Record, bool, error) {
	for {
		rec, ok, err := f.child.Next()
		if err != nil || !ok {
			return rec, ok, err
		}
		pass, err := f.keep(rec)
		if err != nil {
			return types.Record{}, false, err
		}
		if pass {
			return rec, true, nil
		}
	}
}

func (f *Filter) Close() error { return f.child.Close() }

// Projection narrows each Record down to a chosen column subset, in the
// requested order.
type Projection struct {
	child   Operator
	columns []string
}

func NewProjection(child Operator, columns []string) *Projection {
	return &Projection{child: child, columns: columns}
}

func (p *Projection) Open() error { return p.child.Open() }

func (p *Projection) Next() (types.Record, bool, error) {
	rec, ok, err := p.child.Next()
	if err != nil || !ok {
		return rec, ok, err
	}
	defs := make([]types.ColumnDef, 0, len(p.columns))
	vals := make([]types.Value, 0, len(p.columns))
	for _, name := range p.columns {
		for i, c := range rec.Columns {
			if c.Name() == name {
				defs = append(defs, c)
				vals = append(vals, rec.Values[i])
				break
			}
		}
	}
	return types.NewRecord(rec.Tuple, defs, vals), true, nil
}

func (p *Projection) Close() error { return p.child.Close() }

// Limit caps the number of Records yielded, then signals exhaustion.
type Limit struct {
	child Operator
	n     int
	seen  int
}

func NewLimit(child Operator, n int) *Limit {
	return &Limit{child: child, n: n}
}

func (l *Limit) Open() error { return l.child.Open() }

func (l *Limit) Next() (types.Record, bool, error) {
	if l.seen >= l.n {
		return types.Record{}, false, nil
	}
	rec, ok, err := l.child.Next()
	if err != nil || !ok {
		return rec, ok, err
	}
	l.seen++
	return rec, true, nil
}

func (l *Limit) Close() error { return l.child.Close() }

// Sort fully materializes its child (a pull-based operator tree has no
// cheaper way to produce an arbitrary total order) and yields Records
// back out in ascending or descending order of one column.
type Sort struct {
	child  Operator
	column string
	desc   bool
	rows   []types.Record
	pos    int
}

func NewSort(child Operator, column string, desc bool) *Sort {
	return &Sort{child: child, column: column, desc: desc}
}

func (s *Sort) Open() error {
	if err := s.child.Open(); err != nil {
		return err
	}
	for {
		rec, ok, err := s.child.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		s.rows = append(s.rows, rec)
	}
	sort.SliceStable(s.rows, func(i, j int) bool {
		vi, _ := s.rows[i].Get(s.column)
		vj, _ := s.rows[j].Get(s.column)
		si, iok := vi.(types.ScalarValue)
		sj, jok := vj.(types.ScalarValue)
		if !iok || !jok {
			return false
		}
		cmp, err := si.CompareTo(sj)
		if err != nil {
			return false
		}
		if s.desc {
			return cmp > 0
		}
		return cmp < 0
	})
	return nil
}

func (s *Sort) Next() (types.Record, bool, error) {
	if s.pos >= len(s.rows) {
		return types.Record{}, false, nil
	}
	rec := s.rows[s.pos]
	s.pos++
	return rec, true, nil
}

func (s *Sort) Close() error { return s.child.Close() }

// DistanceCompute appends a synthetic `distance` float64 column holding
// each Record's distance from query under kernel, read off vectorColumn
// (spec §4.6's "operators may compute and project a derived distance
// column for ORDER BY DISTANCE without requiring an index").
type DistanceCompute struct {
	child        Operator
	vectorColumn string
	query        []float64
	kernel       index.DistanceKernel
	distDef      types.ColumnDef
}

// NewDistanceCompute builds a DistanceCompute operator. Panics if the
// synthetic distance column definition is somehow rejected (it never is,
// for a fixed DOUBLE scalar type — a programmer error if it were).
func NewDistanceCompute(child Operator, vectorColumn string, query []float64, kernel index.DistanceKernel) *DistanceCompute {
	distDef, err := types.NewColumnDef("distance", types.Scalar(types.KindDouble), false, false)
	if err != nil {
		panic(err)
	}
	return &DistanceCompute{
		child:        child,
		vectorColumn: vectorColumn,
		query:        query,
		kernel:       kernel,
		distDef:      distDef,
	}
}

func (d *DistanceCompute) Open() error { return d.child.Open() }

func (d *DistanceCompute) Next() (types.Record, bool, error) {
	rec, ok, err := d.child.Next()
	if err != nil || !ok {
		return rec, ok, err
	}
	v, present := rec.Get(d.vectorColumn)
	if !present {
		return types.Record{}, false, fmt.Errorf("exec: DistanceCompute: column %q not present in record", d.vectorColumn)
	}
	vec, ok := v.(types.VectorValue)
	if !ok {
		return types.Record{}, false, fmt.Errorf("exec: DistanceCompute: column %q is not a vector", d.vectorColumn)
	}
	dist := index.Distance(d.query, vec.Components(), d.kernel)
	defs := append(append([]types.ColumnDef{}, rec.Columns...), d.distDef)
	vals := append(append([]types.Value{}, rec.Values...), types.DoubleValue(dist))
	return types.NewRecord(rec.Tuple, defs, vals), true, nil
}

func (d *DistanceCompute) Close() error { return d.child.Close() }
