package planner

import (
	"github.com/latticedb/lattice/pkg/catalog"
	"github.com/latticedb/lattice/pkg/exec"
	"github.com/latticedb/lattice/pkg/metrics"
	"github.com/latticedb/lattice/pkg/storage"
	"github.com/latticedb/lattice/pkg/txn"
)

// Config holds the planner's spec §6.3 knobs.
type Config struct {
	// PlanCacheSize bounds the number of non-pinned cache entries kept.
	// Zero or negative selects a built-in default.
	PlanCacheSize int
	// BypassCache skips both cache lookup and cache insertion entirely.
	BypassCache bool
	// PersistPlan pins every plan this Planner produces so the cache's
	// LRU eviction never reclaims it (see planCache's doc comment for why
	// this does not mean writing to disk).
	PersistPlan bool
	// IndexScanPartitions is how many disjoint sub-ranges a partitioning-
	// capable index scan (VAFile, PQIndex) is split across, each read
	// inside its own independent Store.View (spec §4.4.3). Values <= 1
	// disable partitioned-scan candidates entirely, falling back to the
	// single-snapshot PhysIndexScan.
	IndexScanPartitions int
}

const defaultPlanCacheSize = 256

// Planner implements spec §4.5's explore/implement/filter/select steps
// over a whole logical tree (it does not decompose the tree into groups),
// producing the minimum-cost executable physical tree, with the result
// cached by logical digest.
type Planner struct {
	cat   *catalog.Catalog
	cache *planCache
	cfg   Config
}

// New builds a Planner backed by cat for resolving entity/index metadata.
func New(cat *catalog.Catalog, cfg Config) *Planner {
	size := cfg.PlanCacheSize
	if size <= 0 {
		size = defaultPlanCacheSize
	}
	return &Planner{cat: cat, cache: newPlanCache(size), cfg: cfg}
}

// Plan turns logical into a chosen Physical tree plus the Context needed
// to materialize it into an exec.Operator, opening every Entity DBO the
// tree references against tx along the way. store is only consulted if
// the chosen plan contains a PhysPartitionedIndexScan node; pass the same
// Store tx was opened from.
func (p *Planner) Plan(tx storage.Tx, txnH *txn.Transaction, logical Logical, store storage.Store) (Physical, *Context, error) {
	entities, err := p.openEntities(tx, logical)
	if err != nil {
		return nil, nil, err
	}
	ctx := &Context{Tx: tx, Txn: txnH, Entities: entities, Store: store}

	digest := logical.Digest()
	if !p.cfg.BypassCache {
		if cached, ok := p.cache.Get(digest); ok {
			metrics.PlanCacheHitsTotal.Inc()
			return cached, ctx, nil
		}
	}
	metrics.PlanCacheMissesTotal.Inc()

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.PlanningDuration)

	parts := p.cfg.IndexScanPartitions
	if parts < 1 {
		parts = 1
	}
	best, err := p.selectBest(tx, logical, entities, parts)
	if err != nil {
		metrics.PlanningFailuresTotal.Inc()
		return nil, nil, err
	}

	if !p.cfg.BypassCache {
		p.cache.Put(digest, best, p.cfg.PersistPlan)
	}
	return best, ctx, nil
}

// selectBest runs explore -> implement -> filter-executable -> pick
// minimum total cost over logical's rewrite closure.
func (p *Planner) selectBest(tx storage.Tx, logical Logical, entities map[catalog.EntityName]*exec.Entity, parts int) (Physical, error) {
	var best Physical
	var bestCost float64
	found := false

	for _, candidate := range explore(logical) {
		physCandidates, err := implement(tx, candidate, entities, parts)
		if err != nil {
			return nil, err
		}
		for _, phys := range physCandidates {
			if !executableOf(phys) {
				continue
			}
			cost := costOf(phys).TotalCost()
			if !found || cost < bestCost {
				best, bestCost, found = phys, cost, true
			}
		}
	}

	if !found {
		return nil, errNoExecutablePlan(logical.Digest())
	}
	return best, nil
}

// openEntities opens every Entity DBO a LogicalScan in the tree refers to.
func (p *Planner) openEntities(tx storage.Tx, logical Logical) (map[catalog.EntityName]*exec.Entity, error) {
	names := make(map[catalog.EntityName]bool)
	collectScans(logical, names)

	entities := make(map[catalog.EntityName]*exec.Entity, len(names))
	for name := range names {
		e, err := exec.OpenEntity(tx, p.cat, name)
		if err != nil {
			return nil, err
		}
		entities[name] = e
	}
	return entities, nil
}

func collectScans(node Logical, into map[catalog.EntityName]bool) {
	if scan, ok := node.(LogicalScan); ok {
		into[scan.Entity] = true
	}
	for _, c := range node.Children() {
		collectScans(c, into)
	}
}

// InvalidatePlansFor drops every cached plan for digest; callers hold a
// digest, not an entity name, because the cache is keyed structurally —
// a caller invalidating after a DDL change (CreateIndex/DropIndex) should
// invalidate the specific logical digests it knows touch that entity.
func (p *Planner) InvalidatePlansFor(digest string) {
	p.cache.Invalidate(digest)
}
