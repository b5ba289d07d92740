/*
Package storage is the ordered key-value substrate every other subsystem
(catalog, column, index, txn) is built on top of (spec §4.1).

It generalizes BoltDB's bucket model one level: a Store opens named,
independently-ordered Buckets inside ACID transactions, and every Bucket
exposes forward/backward Cursor iteration plus nested buckets. Nested
buckets exist because BoltDB has no native LMDB-style MDB_DUPSORT: a
non-unique hash index stores its duplicate TupleIds as a nested bucket
keyed by the index key rather than as repeated flat-bucket entries.

	store, _ := storage.Open("lattice.db")
	store.Update(func(tx storage.Tx) error {
		b, _ := tx.CreateBucketIfNotExists([]byte("catalog.schema"))
		return b.Put([]byte("s1"), encoded)
	})

Readers (View) never block writers and vice versa; BoltDB's single-writer,
multi-reader MVCC model gives every View transaction a consistent
point-in-time snapshot of the whole store, which is what lets
pkg/txn hand out consistent multi-bucket reads without its own MVCC layer.
*/
package storage
