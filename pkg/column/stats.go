package column

import (
	"github.com/latticedb/lattice/pkg/storage"
	"github.com/latticedb/lattice/pkg/types"
)

// updateStats folds an insert/modify into the column's persisted
// statistics (spec §4.3's update protocol).
func (c *Column) updateStats(tx storage.Tx, old, new Value) error {
	stats, err := c.cat.Statistics(tx, c.name, c.def.Type().Kind)
	if err != nil {
		return err
	}
	stats.Update(old, new)
	return c.cat.PutStatistics(tx, c.name, c.def.Type().Kind, stats)
}

// deleteStats folds a retraction into the column's persisted statistics.
func (c *Column) deleteStats(tx storage.Tx, old Value) error {
	stats, err := c.cat.Statistics(tx, c.name, c.def.Type().Kind)
	if err != nil {
		return err
	}
	stats.Delete(old)
	return c.cat.PutStatistics(tx, c.name, c.def.Type().Kind, stats)
}

// Statistics returns the column's current ValueStatistics, transparently
// recomputing from a full scan first if the persisted copy has gone stale
// (spec §4.3: "rebuilt lazily when fresh==false").
func (c *Column) Statistics(tx storage.Tx) (*types.ValueStatistics, error) {
	stats, err := c.cat.Statistics(tx, c.name, c.def.Type().Kind)
	if err != nil {
		return nil, err
	}
	if stats.Fresh() {
		return stats, nil
	}
	return c.recompute(tx, tx.Writable())
}

// recompute rescans the column and rebuilds its statistics from scratch.
// persist controls whether the result is written back to the catalog: a
// caller holding only a read transaction still gets a correct answer for
// its own call, but the persisted copy stays stale until some writer
// recomputes it (the statistics scrubber, pkg/scrubber, does this via an
// Update tx).
func (c *Column) recompute(tx storage.Tx, persist bool) (*types.ValueStatistics, error) {
	cur, err := c.Cursor(tx, nil)
	if err != nil {
		return nil, err
	}
	var values []Value
	for cur.Valid() {
		_, v, err := cur.Entry()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		cur.Next()
	}
	stats := types.NewValueStatistics()
	stats.Recompute(values)
	if persist {
		if err := c.cat.PutStatistics(tx, c.name, c.def.Type().Kind, stats); err != nil {
			return nil, err
		}
	}
	return stats, nil
}
