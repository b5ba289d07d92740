// Package planner turns a logical plan tree into the minimum-cost
// executable physical plan (spec §4.5): explore the whole tree's rewrite
// closure (memoized by structural digest), implement every candidate into
// a physical tree, keep only executable candidates and pick the minimum
// total cost. The tree is explored as one unit: binary and NAry inputs are
// not split into separate groups, and there is no recompose step.
// Results are cached by logical digest, subject to the bypass_cache and
// persist_plan configuration knobs (spec §6.3).
package planner
