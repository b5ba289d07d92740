package catalog

import (
	"fmt"
	"strings"
)

// SchemaName is a top-level namespace ("warehouse").
type SchemaName string

// EntityName is schema-qualified ("warehouse.products").
type EntityName string

// ColumnName is entity-qualified ("warehouse.products.embedding").
type ColumnName string

// IndexName is entity-qualified, independent from column names
// ("warehouse.products.embedding_vaf").
type IndexName string

// NewEntityName joins a schema and an unqualified entity name.
func NewEntityName(schema SchemaName, entity string) EntityName {
	return EntityName(string(schema) + "." + entity)
}

// NewColumnName joins an entity and an unqualified column name.
func NewColumnName(entity EntityName, column string) ColumnName {
	return ColumnName(string(entity) + "." + column)
}

// NewIndexName joins an entity and an unqualified index name.
func NewIndexName(entity EntityName, index string) IndexName {
	return IndexName(string(entity) + "." + index)
}

// Schema returns the schema component of e.
func (e EntityName) Schema() SchemaName {
	if i := strings.IndexByte(string(e), '.'); i >= 0 {
		return SchemaName(e[:i])
	}
	return SchemaName(e)
}

// Short returns the unqualified entity name.
func (e EntityName) Short() string {
	if i := strings.IndexByte(string(e), '.'); i >= 0 {
		return string(e[i+1:])
	}
	return string(e)
}

// Entity returns the entity component of c.
func (c ColumnName) Entity() EntityName {
	i := strings.LastIndexByte(string(c), '.')
	if i < 0 {
		return EntityName(c)
	}
	return EntityName(c[:i])
}

// Short returns the unqualified column name.
func (c ColumnName) Short() string {
	i := strings.LastIndexByte(string(c), '.')
	if i < 0 {
		return string(c)
	}
	return string(c[i+1:])
}

// StoreKey is the column's deterministically derived dedicated-store
// bucket name (spec §4.3: "col_<schema>_<entity>_<column>").
func (c ColumnName) StoreKey() []byte {
	entity := c.Entity()
	return []byte(fmt.Sprintf("col_%s_%s_%s", entity.Schema(), entity.Short(), c.Short()))
}

// Entity returns the entity component of ix.
func (ix IndexName) Entity() EntityName {
	i := strings.LastIndexByte(string(ix), '.')
	if i < 0 {
		return EntityName(ix)
	}
	return EntityName(ix[:i])
}

// Short returns the unqualified index name.
func (ix IndexName) Short() string {
	i := strings.LastIndexByte(string(ix), '.')
	if i < 0 {
		return string(ix)
	}
	return string(ix[i+1:])
}

// StoreKey is the index's deterministically derived dedicated-store
// bucket name.
func (ix IndexName) StoreKey() []byte {
	entity := ix.Entity()
	return []byte(fmt.Sprintf("idx_%s_%s_%s", entity.Schema(), entity.Short(), ix.Short()))
}
