/*
Package types implements the engine's closed value-type system (spec §3):
TupleId, Type (the tagged scalar/vector discriminator), Value (a typed
payload), ColumnDef and ValueStatistics.

Type identity is the (Kind, LogicalSize) pair — LogicalSize is the vector
dimension, or 1 for scalars. Dispatch over Kind (serialization, null
sentinels, zero values) is done through small ordinal-keyed tables in this
package rather than per-type singletons, per the "companion/singleton
bindings" guidance: one dispatch table keyed by Type ordinal, not a static
per type.
*/
package types
