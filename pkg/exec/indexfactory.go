package exec

import (
	"fmt"
	"strconv"

	"github.com/latticedb/lattice/pkg/catalog"
	"github.com/latticedb/lattice/pkg/column"
	"github.com/latticedb/lattice/pkg/index"
	"github.com/latticedb/lattice/pkg/types"
)

func configInt(cfg map[string]string, key string, def int) int {
	if v, ok := cfg[key]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func configInt64(cfg map[string]string, key string, def int64) int64 {
	if v, ok := cfg[key]; ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func configBool(cfg map[string]string, key string, def bool) bool {
	if v, ok := cfg[key]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// buildIndex reconstructs a live index.Index handle from its catalog row.
// One column is assumed per index (every variant in pkg/index indexes
// exactly one column, spec §4.4).
func buildIndex(name catalog.IndexName, typ catalog.IndexType, cols []string, cfg map[string]string, col *column.Column, colDef types.ColumnDef) (index.Index, error) {
	if len(cols) != 1 {
		return nil, fmt.Errorf("exec: index %q: expected exactly one column, got %d", name, len(cols))
	}
	switch typ {
	case catalog.IndexUniqueHash:
		return index.NewUniqueHash(name, col, colDef), nil
	case catalog.IndexNonUniqueHash:
		return index.NewNonUniqueHash(name, col, colDef), nil
	case catalog.IndexVAFile:
		marksPerDim := configInt(cfg, "marks_per_dimension", 8)
		return index.NewVAFile(name, col, colDef, marksPerDim), nil
	case catalog.IndexPQ:
		numSubspaces := configInt(cfg, "num_subspaces", 1)
		numCentroids := configInt(cfg, "num_centroids", 16)
		sampleSize := configInt(cfg, "sample_size", 1000)
		seed := configInt64(cfg, "seed", 0)
		return index.NewPQIndex(name, col, colDef, numSubspaces, numCentroids, sampleSize, seed)
	case catalog.IndexGrouping:
		numGroups := configInt(cfg, "num_groups", 16)
		seed := configInt64(cfg, "seed", 0)
		return index.NewGrouping(name, col, colDef, numGroups, seed)
	case catalog.IndexLSH:
		stages := configInt(cfg, "stages", 4)
		buckets := configInt(cfg, "buckets", 16)
		seed := configInt64(cfg, "seed", 0)
		considerImaginary := configBool(cfg, "consider_imaginary", false)
		sampling := index.SamplingGaussian
		if cfg["sampling_method"] == "rademacher" {
			sampling = index.SamplingRademacher
		}
		return index.NewLSH(name, col, colDef, stages, buckets, seed, considerImaginary, sampling)
	default:
		return nil, fmt.Errorf("exec: unknown index type %q", typ)
	}
}
