package catalog

import (
	"encoding/json"
	"time"

	"github.com/latticedb/lattice/pkg/types"
)

// IndexType enumerates the index subsystem's variants (spec §4.4).
type IndexType string

const (
	IndexUniqueHash    IndexType = "UNIQUE_HASH"
	IndexNonUniqueHash IndexType = "NON_UNIQUE_HASH"
	IndexVAFile        IndexType = "VA_FILE"
	IndexPQ            IndexType = "PRODUCT_QUANTIZATION"
	IndexGrouping      IndexType = "GROUPING"
	IndexLSH           IndexType = "SUPER_BIT_LSH"
)

// IndexState is the index lifecycle state (spec §4.4: "FRESH --rebuild-->
// CLEAN --update(unsupported)--> STALE --rebuild--> CLEAN").
type IndexState string

const (
	IndexFresh IndexState = "FRESH"
	IndexClean IndexState = "CLEAN"
	IndexStale IndexState = "STALE"
)

type schemaRecord struct {
	Name SchemaName `json:"name"`
}

type columnSpec struct {
	Name     string     `json:"name"`
	Kind     types.Kind `json:"kind"`
	Dim      int        `json:"dim"`
	Nullable bool       `json:"nullable"`
	Primary  bool       `json:"primary"`
}

func toColumnSpec(cd types.ColumnDef) columnSpec {
	return columnSpec{
		Name:     cd.Name(),
		Kind:     cd.Type().Kind,
		Dim:      cd.Type().LogicalSize,
		Nullable: cd.Nullable(),
		Primary:  cd.Primary(),
	}
}

func (s columnSpec) toColumnDef() (types.ColumnDef, error) {
	var typ types.Type
	if s.Kind.IsVector() {
		typ = types.Vector(s.Kind, s.Dim)
	} else {
		typ = types.Scalar(s.Kind)
	}
	return types.NewColumnDef(s.Name, typ, s.Nullable, s.Primary)
}

type entityRecord struct {
	Name    EntityName   `json:"name"`
	Created time.Time    `json:"created"`
	Columns []columnSpec `json:"columns"`
	Indexes []string     `json:"indexes"` // unqualified index names belonging to this entity
}

type columnRecord struct {
	Name columnSpec `json:"spec"`
}

type indexRecord struct {
	Name    IndexName         `json:"name"`
	Type    IndexType         `json:"type"`
	State   IndexState        `json:"state"`
	Columns []string          `json:"columns"` // unqualified column names the index covers
	Config  map[string]string `json:"config"`
}

// statsRecord is the JSON-serializable projection of types.ValueStatistics
// used for catalog persistence; the live in-memory copy used by pkg/column
// is reconstructed from it via encodeStats/decodeStats in stats.go.
type statsRecord struct {
	NumNull    int64     `json:"num_null"`
	NumNonNull int64     `json:"num_non_null"`
	HasScalar  bool      `json:"has_scalar"`
	MinEncoded []byte    `json:"min_encoded,omitempty"`
	MaxEncoded []byte    `json:"max_encoded,omitempty"`
	DimMin     []float64 `json:"dim_min,omitempty"`
	DimMax     []float64 `json:"dim_max,omitempty"`
	DimSum     []float64 `json:"dim_sum,omitempty"`
	MinWidth   int       `json:"min_width"`
	MaxWidth   int       `json:"max_width"`
	Fresh      bool      `json:"fresh"`
}

func marshalJSON(v any) ([]byte, error) { return json.Marshal(v) }

func unmarshalJSON(data []byte, v any) error { return json.Unmarshal(data, v) }
