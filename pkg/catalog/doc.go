/*
Package catalog is the single source of truth for schema, entity, column,
statistics, index and sequence metadata (spec §4.2). Every other subsystem
(column, index, planner, exec) opens its handles by reading catalog rows;
there is no duplicated on-disk header anywhere else.

The catalog is six independently keyed metadata stores layered over
pkg/storage buckets:

	schemas    SchemaName -> schemaRecord
	entities   EntityName -> entityRecord
	columns    ColumnName -> columnRecord
	statistics ColumnName -> statsRecord
	indexes    IndexName  -> indexRecord
	sequences  name       -> int64 counter

All six buckets are created by Bootstrap the first time an environment is
opened, alongside a db_version marker; a later Bootstrap against a
mismatched version fails with dberrors.KindVersionMismatch rather than attempting an
automatic migration.
*/
package catalog
