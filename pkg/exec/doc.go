// Package exec builds the physical operator tree over pkg/catalog,
// pkg/column and pkg/index (spec §4.6): Entity composes a row-oriented
// view from the entity's per-column stores and indexes, and Operator is
// the pull-based Record source/transform every query plan compiles down
// to. Operators cooperate with pkg/txn's cancellation check at each
// yield boundary instead of supporting mid-call preemption (spec §5).
package exec
