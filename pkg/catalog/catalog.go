package catalog

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/latticedb/lattice/pkg/dberrors"
	"github.com/latticedb/lattice/pkg/log"
	"github.com/latticedb/lattice/pkg/storage"
	"github.com/latticedb/lattice/pkg/types"
)

const dbVersion = 1

var (
	bucketSchemas    = []byte("catalog.schemas")
	bucketEntities   = []byte("catalog.entities")
	bucketColumns    = []byte("catalog.columns")
	bucketStatistics = []byte("catalog.statistics")
	bucketIndexes    = []byte("catalog.indexes")
	bucketSequences  = []byte("catalog.sequences")
	bucketMeta       = []byte("catalog.meta")

	keyDBVersion = []byte("db_version")
)

// Catalog is the single source of truth for schema, entity, column,
// statistics, index and sequence metadata. All operations take the
// caller's transaction (pkg/txn owns transaction lifecycle); Catalog
// itself holds no transaction state.
type Catalog struct {
	store storage.Store
	log   zerolog.Logger
}

// New wraps store with catalog operations. Callers must call Bootstrap
// once before first use against a fresh store.
func New(store storage.Store) *Catalog {
	return &Catalog{store: store, log: log.WithComponent("catalog")}
}

// Bootstrap initializes all six metadata stores and writes the db_version
// marker on first open, or validates it on subsequent opens. A version
// mismatch never attempts an automatic migration (spec §4.2).
func (c *Catalog) Bootstrap() error {
	return c.store.Update(func(tx storage.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		for _, b := range [][]byte{bucketSchemas, bucketEntities, bucketColumns, bucketStatistics, bucketIndexes, bucketSequences} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		existing := meta.Get(keyDBVersion)
		if existing == nil {
			c.log.Info().Int("version", dbVersion).Msg("bootstrapping new catalog")
			return meta.Put(keyDBVersion, []byte{byte(dbVersion)})
		}
		if existing[0] != byte(dbVersion) {
			return dberrors.New(dberrors.KindVersionMismatch, "catalog.Bootstrap",
				fmt.Errorf("on-disk db_version %d does not match engine version %d", existing[0], dbVersion))
		}
		return nil
	})
}

// --- schemas ---

// ListSchemas returns every schema name in the catalog.
func (c *Catalog) ListSchemas(tx storage.Tx) ([]SchemaName, error) {
	b := tx.Bucket(bucketSchemas)
	var out []SchemaName
	cur := b.Cursor()
	for k, _ := cur.First(); k != nil; k, _ = cur.Next() {
		out = append(out, SchemaName(k))
	}
	return out, nil
}

// Schema returns whether name exists.
func (c *Catalog) Schema(tx storage.Tx, name SchemaName) (bool, error) {
	b := tx.Bucket(bucketSchemas)
	return b.Get([]byte(name)) != nil, nil
}

// CreateSchema registers a new schema. Fails with KindSchemaAlreadyExists
// if it is already present.
func (c *Catalog) CreateSchema(tx storage.Tx, name SchemaName) error {
	b := tx.Bucket(bucketSchemas)
	if b.Get([]byte(name)) != nil {
		return dberrors.New(dberrors.KindSchemaAlreadyExists, "catalog.CreateSchema", fmt.Errorf("schema %q", name))
	}
	data, err := marshalJSON(schemaRecord{Name: name})
	if err != nil {
		return err
	}
	return b.Put([]byte(name), data)
}

// DropSchema removes a schema and cascades to every entity within it
// (spec §4.2: "drop cascades to entities").
func (c *Catalog) DropSchema(tx storage.Tx, name SchemaName) error {
	b := tx.Bucket(bucketSchemas)
	if b.Get([]byte(name)) == nil {
		return dberrors.New(dberrors.KindSchemaDoesNotExist, "catalog.DropSchema", fmt.Errorf("schema %q", name))
	}
	entities, err := c.ListEntities(tx, name)
	if err != nil {
		return err
	}
	for _, e := range entities {
		if err := c.DropEntity(tx, e); err != nil {
			return err
		}
	}
	return b.Delete([]byte(name))
}

// --- entities ---

// ListEntities returns every entity belonging to schema.
func (c *Catalog) ListEntities(tx storage.Tx, schema SchemaName) ([]EntityName, error) {
	b := tx.Bucket(bucketEntities)
	var out []EntityName
	prefix := []byte(string(schema) + ".")
	storage.PrefixScan(b.Cursor(), prefix, func(k, v []byte) bool {
		out = append(out, EntityName(k))
		return true
	})
	return out, nil
}

// Entity loads the entity's column definitions. ok is false if it does
// not exist.
func (c *Catalog) Entity(tx storage.Tx, name EntityName) (columns []types.ColumnDef, ok bool, err error) {
	b := tx.Bucket(bucketEntities)
	data := b.Get([]byte(name))
	if data == nil {
		return nil, false, nil
	}
	var rec entityRecord
	if err := unmarshalJSON(data, &rec); err != nil {
		return nil, false, err
	}
	columns = make([]types.ColumnDef, 0, len(rec.Columns))
	for _, cs := range rec.Columns {
		cd, err := cs.toColumnDef()
		if err != nil {
			return nil, false, err
		}
		columns = append(columns, cd)
	}
	return columns, true, nil
}

// CreateEntity registers a new entity with its column set. Fails with
// KindEntityAlreadyExists if the name is taken, and initializes a
// catalog-row + fresh statistics entry for every column.
func (c *Catalog) CreateEntity(tx storage.Tx, name EntityName, columns []types.ColumnDef) error {
	eb := tx.Bucket(bucketEntities)
	if eb.Get([]byte(name)) != nil {
		return dberrors.New(dberrors.KindEntityAlreadyExists, "catalog.CreateEntity", fmt.Errorf("entity %q", name))
	}
	if ok, err := c.Schema(tx, name.Schema()); err != nil {
		return err
	} else if !ok {
		return dberrors.New(dberrors.KindSchemaDoesNotExist, "catalog.CreateEntity", fmt.Errorf("schema %q", name.Schema()))
	}

	specs := make([]columnSpec, 0, len(columns))
	cb := tx.Bucket(bucketColumns)
	sb := tx.Bucket(bucketStatistics)
	for _, cd := range columns {
		spec := toColumnSpec(cd)
		specs = append(specs, spec)

		colName := NewColumnName(name, cd.Name())
		crData, err := marshalJSON(columnRecord{Name: spec})
		if err != nil {
			return err
		}
		if err := cb.Put([]byte(colName), crData); err != nil {
			return err
		}
		statsData, err := marshalJSON(encodeStats(cd.Type().Kind, types.NewValueStatistics()))
		if err != nil {
			return err
		}
		if err := sb.Put([]byte(colName), statsData); err != nil {
			return err
		}
	}

	rec := entityRecord{Name: name, Columns: specs}
	data, err := marshalJSON(rec)
	if err != nil {
		return err
	}
	return eb.Put([]byte(name), data)
}

// DropEntity removes an entity, cascading to its indexes and truncating
// its column stores (spec §4.2). Column store truncation itself is
// performed by the caller (pkg/column) since Catalog has no reference to
// per-column keyed stores; DropEntity only removes the catalog rows (the
// entity, its indexes via DropIndex, and its column and statistics rows)
// and returns nothing but an error.
func (c *Catalog) DropEntity(tx storage.Tx, name EntityName) error {
	eb := tx.Bucket(bucketEntities)
	data := eb.Get([]byte(name))
	if data == nil {
		return dberrors.New(dberrors.KindEntityDoesNotExist, "catalog.DropEntity", fmt.Errorf("entity %q", name))
	}
	var rec entityRecord
	if err := unmarshalJSON(data, &rec); err != nil {
		return err
	}

	for _, ixName := range rec.Indexes {
		if err := c.DropIndex(tx, NewIndexName(name, ixName)); err != nil {
			return err
		}
	}

	cb := tx.Bucket(bucketColumns)
	sb := tx.Bucket(bucketStatistics)
	for _, cs := range rec.Columns {
		colName := NewColumnName(name, cs.Name)
		_ = cb.Delete([]byte(colName))
		_ = sb.Delete([]byte(colName))
	}

	return eb.Delete([]byte(name))
}

// --- indexes ---

// CreateIndex registers a new index over entity's columns. New indexes
// begin in state FRESH (spec §4.2).
func (c *Catalog) CreateIndex(tx storage.Tx, name IndexName, typ IndexType, columns []string, config map[string]string) error {
	ib := tx.Bucket(bucketIndexes)
	if ib.Get([]byte(name)) != nil {
		return dberrors.New(dberrors.KindIndexAlreadyExists, "catalog.CreateIndex", fmt.Errorf("index %q", name))
	}
	rec := indexRecord{Name: name, Type: typ, State: IndexFresh, Columns: columns, Config: config}
	data, err := marshalJSON(rec)
	if err != nil {
		return err
	}
	if err := ib.Put([]byte(name), data); err != nil {
		return err
	}

	eb := tx.Bucket(bucketEntities)
	entityName := name.Entity()
	edata := eb.Get([]byte(entityName))
	if edata == nil {
		return dberrors.New(dberrors.KindEntityDoesNotExist, "catalog.CreateIndex", fmt.Errorf("entity %q", entityName))
	}
	var erec entityRecord
	if err := unmarshalJSON(edata, &erec); err != nil {
		return err
	}
	erec.Indexes = append(erec.Indexes, name.Short())
	newData, err := marshalJSON(erec)
	if err != nil {
		return err
	}
	return eb.Put([]byte(entityName), newData)
}

// ListIndexes returns the unqualified names of every index registered
// against entity.
func (c *Catalog) ListIndexes(tx storage.Tx, entity EntityName) ([]string, error) {
	eb := tx.Bucket(bucketEntities)
	data := eb.Get([]byte(entity))
	if data == nil {
		return nil, dberrors.New(dberrors.KindEntityDoesNotExist, "catalog.ListIndexes", fmt.Errorf("entity %q", entity))
	}
	var rec entityRecord
	if err := unmarshalJSON(data, &rec); err != nil {
		return nil, err
	}
	out := make([]string, len(rec.Indexes))
	copy(out, rec.Indexes)
	return out, nil
}

// Index loads an index's catalog row. ok is false if it does not exist.
func (c *Catalog) Index(tx storage.Tx, name IndexName) (typ IndexType, state IndexState, columns []string, config map[string]string, ok bool, err error) {
	ib := tx.Bucket(bucketIndexes)
	data := ib.Get([]byte(name))
	if data == nil {
		return "", "", nil, nil, false, nil
	}
	var rec indexRecord
	if err := unmarshalJSON(data, &rec); err != nil {
		return "", "", nil, nil, false, err
	}
	return rec.Type, rec.State, rec.Columns, rec.Config, true, nil
}

// SetIndexState transitions an index's lifecycle state (spec §4.4's
// FRESH/CLEAN/STALE state machine).
func (c *Catalog) SetIndexState(tx storage.Tx, name IndexName, state IndexState) error {
	ib := tx.Bucket(bucketIndexes)
	data := ib.Get([]byte(name))
	if data == nil {
		return dberrors.New(dberrors.KindIndexDoesNotExist, "catalog.SetIndexState", fmt.Errorf("index %q", name))
	}
	var rec indexRecord
	if err := unmarshalJSON(data, &rec); err != nil {
		return err
	}
	rec.State = state
	newData, err := marshalJSON(rec)
	if err != nil {
		return err
	}
	return ib.Put([]byte(name), newData)
}

// DropIndex removes an index's catalog row and its entity backreference.
func (c *Catalog) DropIndex(tx storage.Tx, name IndexName) error {
	ib := tx.Bucket(bucketIndexes)
	if ib.Get([]byte(name)) == nil {
		return dberrors.New(dberrors.KindIndexDoesNotExist, "catalog.DropIndex", fmt.Errorf("index %q", name))
	}
	if err := ib.Delete([]byte(name)); err != nil {
		return err
	}

	eb := tx.Bucket(bucketEntities)
	entityName := name.Entity()
	edata := eb.Get([]byte(entityName))
	if edata == nil {
		return nil
	}
	var erec entityRecord
	if err := unmarshalJSON(edata, &erec); err != nil {
		return err
	}
	filtered := erec.Indexes[:0]
	for _, ixName := range erec.Indexes {
		if ixName != name.Short() {
			filtered = append(filtered, ixName)
		}
	}
	erec.Indexes = filtered
	newData, err := marshalJSON(erec)
	if err != nil {
		return err
	}
	return eb.Put([]byte(entityName), newData)
}

// --- statistics ---

// Statistics loads a column's persisted ValueStatistics.
func (c *Catalog) Statistics(tx storage.Tx, column ColumnName, kind types.Kind) (*types.ValueStatistics, error) {
	sb := tx.Bucket(bucketStatistics)
	data := sb.Get([]byte(column))
	if data == nil {
		return types.NewValueStatistics(), nil
	}
	var rec statsRecord
	if err := unmarshalJSON(data, &rec); err != nil {
		return nil, err
	}
	return decodeStats(kind, rec), nil
}

// PutStatistics persists column's current ValueStatistics.
func (c *Catalog) PutStatistics(tx storage.Tx, column ColumnName, kind types.Kind, s *types.ValueStatistics) error {
	sb := tx.Bucket(bucketStatistics)
	data, err := marshalJSON(encodeStats(kind, s))
	if err != nil {
		return err
	}
	return sb.Put([]byte(column), data)
}

// --- sequences ---

// SequenceNext returns the next value of the named monotonic counter,
// used to assign new TupleIds and catalog object ids (spec §4.2).
func (c *Catalog) SequenceNext(tx storage.Tx, name string) (int64, error) {
	sb := tx.Bucket(bucketSequences)
	key := []byte(name)
	var v int64
	for _, b := range sb.Get(key) {
		v = v<<8 | int64(b)
	}
	v++
	buf := make([]byte, 8)
	x := v
	for i := 7; i >= 0; i-- {
		buf[i] = byte(x)
		x >>= 8
	}
	if err := sb.Put(key, buf); err != nil {
		return 0, err
	}
	return v, nil
}
