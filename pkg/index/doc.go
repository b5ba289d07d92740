// Package index implements the uniform index contract (spec §4.4) and its
// six variants: unique hash, non-unique hash, VA-file (approximate k-NN),
// product quantization, grouping, and super-bit LSH. Every variant is a
// Index over the same small contract so the planner and executor never
// need a type switch on index kind — only on supported predicate shape.
package index
