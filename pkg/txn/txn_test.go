package txn

import (
	"sync"
	"testing"
	"time"

	"github.com/latticedb/lattice/pkg/dberrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopSubTx struct {
	finalized *[]string
	name      string
}

func (s noopSubTx) Finalize(commit bool) error {
	*s.finalized = append(*s.finalized, s.name)
	return nil
}

func TestTransactionLifecycleCommit(t *testing.T) {
	mgr := NewTransactionManager(10)
	tx, err := mgr.Begin(UserImplicit)
	require.NoError(t, err)
	assert.Equal(t, StateRunning, tx.State())

	var order []string
	_, err = tx.GetTx("schema.t.idx_a", func() (SubTx, error) { return noopSubTx{&order, "idx_a"}, nil })
	require.NoError(t, err)
	_, err = tx.GetTx("schema.t", func() (SubTx, error) { return noopSubTx{&order, "entity"}, nil })
	require.NoError(t, err)

	require.NoError(t, tx.Commit())
	assert.Equal(t, StateCommitted, tx.State())
	assert.Equal(t, []string{"entity", "idx_a"}, order) // LIFO: entity's sub-tx was opened second, so it finalizes first

	_, stillLive := mgr.Get(tx.ID())
	assert.False(t, stillLive)
	assert.Len(t, mgr.History(), 1)
}

func TestTransactionGetTxReturnsSameHandle(t *testing.T) {
	mgr := NewTransactionManager(0)
	tx, err := mgr.Begin(UserImplicit)
	require.NoError(t, err)

	calls := 0
	factory := func() (SubTx, error) {
		calls++
		return noopSubTx{&[]string{}, "x"}, nil
	}
	h1, err := tx.GetTx("a", factory)
	require.NoError(t, err)
	h2, err := tx.GetTx("a", factory)
	require.NoError(t, err)
	assert.Same(t, h1, h2)
	assert.Equal(t, 1, calls)
	require.NoError(t, tx.Rollback())
}

func TestTransactionCommitRejectedFromError(t *testing.T) {
	mgr := NewTransactionManager(0)
	tx, err := mgr.Begin(UserImplicit)
	require.NoError(t, err)
	tx.Fail(assertErr)
	err = tx.Commit()
	require.Error(t, err)
	kind, ok := dberrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, dberrors.KindWrongTxState, kind)
}

func TestTransactionKillObservedAsCancellation(t *testing.T) {
	mgr := NewTransactionManager(0)
	tx, err := mgr.Begin(UserExplicit)
	require.NoError(t, err)
	require.NoError(t, mgr.Kill(tx.ID()))
	err = tx.CheckCancellation()
	require.Error(t, err)
	assert.True(t, dberrors.Is(err, dberrors.KindCancellation))
}

func TestLockManagerCompatibility(t *testing.T) {
	lm := NewLockManager()
	require.NoError(t, lm.Acquire(1, "dbo", Shared))
	require.NoError(t, lm.Acquire(2, "dbo", Shared))
	lm.ReleaseAll(1)
	lm.ReleaseAll(2)
}

func TestLockManagerDeadlockDetection(t *testing.T) {
	lm := NewLockManager()
	require.NoError(t, lm.Acquire(1, "A", Exclusive))
	require.NoError(t, lm.Acquire(2, "B", Exclusive))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = lm.Acquire(1, "B", Exclusive) // blocks behind tx 2
	}()
	time.Sleep(20 * time.Millisecond)

	err := lm.Acquire(2, "A", Exclusive) // would close the cycle 2->1->2
	require.Error(t, err)
	assert.True(t, dberrors.Is(err, dberrors.KindDeadlock))

	lm.ReleaseAll(1)
	lm.ReleaseAll(2)
	wg.Wait()
}

var assertErr = dberrors.New(dberrors.KindValidation, "test", nil)
