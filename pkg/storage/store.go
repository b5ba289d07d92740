package storage

// Store is the transactional key-value substrate. Every catalog, column
// and index component opens its own named Buckets against one shared
// Store; bucket namespacing (not separate files) is what lets a single
// Update transaction span a schema change, a column write and an index
// update atomically.
type Store interface {
	// View runs fn in a read-only transaction. Concurrent View
	// transactions never block each other or a running Update.
	View(fn func(Tx) error) error
	// Update runs fn in a read-write transaction. Only one Update
	// transaction runs at a time; fn's returned error rolls the
	// transaction back, nil commits it.
	Update(fn func(Tx) error) error
	Close() error
	Path() string
}

// Tx is a single Store transaction.
type Tx interface {
	Bucket(name []byte) Bucket
	CreateBucketIfNotExists(name []byte) (Bucket, error)
	DeleteBucket(name []byte) error
	Writable() bool
}

// Bucket is one ordered keyspace within a Tx.
type Bucket interface {
	Get(key []byte) []byte
	Put(key, value []byte) error
	Delete(key []byte) error
	Cursor() Cursor

	// NestedBucket and CreateNestedBucketIfNotExists let one key fan out
	// into its own ordered keyspace, used by the non-unique hash index to
	// hold the set of TupleIds sharing a key (spec §4.4).
	NestedBucket(key []byte) Bucket
	CreateNestedBucketIfNotExists(key []byte) (Bucket, error)
	DeleteNestedBucket(key []byte) error

	// NextSequence returns a per-bucket monotonically increasing counter.
	// TupleIds are not drawn from it; they come from the catalog's
	// sequences bucket (catalog.SequenceNext).
	NextSequence() (uint64, error)
}

// Cursor iterates a Bucket's keys in sorted order. A nil key from any
// method marks exhaustion.
type Cursor interface {
	First() (key, value []byte)
	Last() (key, value []byte)
	Next() (key, value []byte)
	Prev() (key, value []byte)
	Seek(key []byte) (key2, value []byte)
}

// PrefixScan walks c forward starting at prefix, invoking fn for every key
// that has prefix as a prefix, stopping early if fn returns false. It is
// the building block for the non-unique hash index's LIKE 'prefix%' scan
// (spec §4.4).
func PrefixScan(c Cursor, prefix []byte, fn func(key, value []byte) bool) {
	for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
		if !fn(k, v) {
			return
		}
	}
}

func hasPrefix(k, prefix []byte) bool {
	if len(k) < len(prefix) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}
