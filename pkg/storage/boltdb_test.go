package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBucketPutGet(t *testing.T) {
	s := openTestStore(t)

	err := s.Update(func(tx Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte("catalog.schema"))
		if err != nil {
			return err
		}
		return b.Put([]byte("s1"), []byte("payload"))
	})
	require.NoError(t, err)

	err = s.View(func(tx Tx) error {
		b := tx.Bucket([]byte("catalog.schema"))
		require.NotNil(t, b)
		require.Equal(t, []byte("payload"), b.Get([]byte("s1")))
		return nil
	})
	require.NoError(t, err)
}

func TestNestedBucketDuplicateKeys(t *testing.T) {
	s := openTestStore(t)

	err := s.Update(func(tx Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte("idx.author"))
		if err != nil {
			return err
		}
		nb, err := b.CreateNestedBucketIfNotExists([]byte("tolkien"))
		if err != nil {
			return err
		}
		if err := nb.Put([]byte{0, 0, 0, 0, 0, 0, 0, 1}, nil); err != nil {
			return err
		}
		return nb.Put([]byte{0, 0, 0, 0, 0, 0, 0, 2}, nil)
	})
	require.NoError(t, err)

	err = s.View(func(tx Tx) error {
		b := tx.Bucket([]byte("idx.author"))
		nb := b.NestedBucket([]byte("tolkien"))
		require.NotNil(t, nb)
		c := nb.Cursor()
		count := 0
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			count++
		}
		require.Equal(t, 2, count)
		return nil
	})
	require.NoError(t, err)
}

func TestPrefixScan(t *testing.T) {
	s := openTestStore(t)
	err := s.Update(func(tx Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte("idx.title"))
		if err != nil {
			return err
		}
		for _, k := range []string{"foo1", "foo2", "bar1"} {
			if err := b.Put([]byte(k), nil); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	var matched []string
	err = s.View(func(tx Tx) error {
		b := tx.Bucket([]byte("idx.title"))
		PrefixScan(b.Cursor(), []byte("foo"), func(k, v []byte) bool {
			matched = append(matched, string(k))
			return true
		})
		return nil
	})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"foo1", "foo2"}, matched)
}

func TestNextSequenceMonotonic(t *testing.T) {
	s := openTestStore(t)
	var first, second uint64
	err := s.Update(func(tx Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte("seq"))
		if err != nil {
			return err
		}
		first, err = b.NextSequence()
		if err != nil {
			return err
		}
		second, err = b.NextSequence()
		return err
	})
	require.NoError(t, err)
	require.Greater(t, second, first)
}
