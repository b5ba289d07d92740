package index

import (
	"encoding/binary"

	"github.com/latticedb/lattice/pkg/catalog"
	"github.com/latticedb/lattice/pkg/column"
	"github.com/latticedb/lattice/pkg/types"
)

// Cost model units, fixed per spec §4.4.3's cost formulas.
const (
	ioUnit   = 1.0
	cpuUnit  = 1.0
	memUnit  = 1.0
	flopUnit = 1.0
)

// base holds the identity and column handles every index variant needs:
// its catalog name/type, the indexed column(s), and a bucket key for its
// own persisted structure.
type base struct {
	name    catalog.IndexName
	typ     catalog.IndexType
	col     *column.Column // the single indexed column (all six variants index exactly one)
	colDef  types.ColumnDef
	bucket  []byte
}

func newBase(name catalog.IndexName, typ catalog.IndexType, col *column.Column, colDef types.ColumnDef) base {
	return base{name: name, typ: typ, col: col, colDef: colDef, bucket: name.StoreKey()}
}

func (b base) Name() catalog.IndexName { return b.name }
func (b base) Type() catalog.IndexType { return b.typ }
func (b base) Produces() []types.ColumnDef { return []types.ColumnDef{b.colDef} }

func tupleBytes(id types.TupleId) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(id))
	return buf[:]
}

func bytesToTuple(b []byte) types.TupleId {
	return types.TupleId(binary.BigEndian.Uint64(b))
}
