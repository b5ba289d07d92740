package storage

import (
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/latticedb/lattice/pkg/dberrors"
)

// BoltStore implements Store using BoltDB.
type BoltStore struct {
	db   *bolt.DB
	path string
}

// Open opens (creating if absent) a BoltDB-backed Store at path.
func Open(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, dberrors.New(dberrors.KindInvalidFile, "storage.Open", fmt.Errorf("open %s: %w", path, err))
	}
	return &BoltStore{db: db, path: path}, nil
}

func (s *BoltStore) Path() string { return s.path }

func (s *BoltStore) View(fn func(Tx) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return fn(&boltTx{tx: tx})
	})
}

func (s *BoltStore) Update(fn func(Tx) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return fn(&boltTx{tx: tx})
	})
}

func (s *BoltStore) Close() error { return s.db.Close() }

type boltTx struct{ tx *bolt.Tx }

func (t *boltTx) Writable() bool { return t.tx.Writable() }

func (t *boltTx) Bucket(name []byte) Bucket {
	b := t.tx.Bucket(name)
	if b == nil {
		return nil
	}
	return &boltBucket{b: b}
}

func (t *boltTx) CreateBucketIfNotExists(name []byte) (Bucket, error) {
	b, err := t.tx.CreateBucketIfNotExists(name)
	if err != nil {
		return nil, fmt.Errorf("storage: create bucket %s: %w", name, err)
	}
	return &boltBucket{b: b}, nil
}

func (t *boltTx) DeleteBucket(name []byte) error {
	err := t.tx.DeleteBucket(name)
	if err != nil {
		return fmt.Errorf("storage: delete bucket %s: %w", name, err)
	}
	return nil
}

type boltBucket struct{ b *bolt.Bucket }

func (bk *boltBucket) Get(key []byte) []byte { return bk.b.Get(key) }

func (bk *boltBucket) Put(key, value []byte) error {
	return bk.b.Put(key, value)
}

func (bk *boltBucket) Delete(key []byte) error { return bk.b.Delete(key) }

func (bk *boltBucket) Cursor() Cursor { return &boltCursor{c: bk.b.Cursor()} }

func (bk *boltBucket) NestedBucket(key []byte) Bucket {
	nb := bk.b.Bucket(key)
	if nb == nil {
		return nil
	}
	return &boltBucket{b: nb}
}

func (bk *boltBucket) CreateNestedBucketIfNotExists(key []byte) (Bucket, error) {
	nb, err := bk.b.CreateBucketIfNotExists(key)
	if err != nil {
		return nil, fmt.Errorf("storage: create nested bucket %s: %w", key, err)
	}
	return &boltBucket{b: nb}, nil
}

func (bk *boltBucket) DeleteNestedBucket(key []byte) error {
	return bk.b.DeleteBucket(key)
}

func (bk *boltBucket) NextSequence() (uint64, error) {
	return bk.b.NextSequence()
}

type boltCursor struct{ c *bolt.Cursor }

func (c *boltCursor) First() ([]byte, []byte)       { return c.c.First() }
func (c *boltCursor) Last() ([]byte, []byte)        { return c.c.Last() }
func (c *boltCursor) Next() ([]byte, []byte)        { return c.c.Next() }
func (c *boltCursor) Prev() ([]byte, []byte)        { return c.c.Prev() }
func (c *boltCursor) Seek(key []byte) ([]byte, []byte) { return c.c.Seek(key) }
