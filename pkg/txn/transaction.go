package txn

import (
	"fmt"
	"sync"
	"time"

	"github.com/latticedb/lattice/pkg/dberrors"
)

// TxID is a transaction's identity within a single TransactionManager.
type TxID int64

// SubTx is the per-DBO sub-transaction handle a caller (the catalog,
// entity, or index layer) registers with a Transaction the first time it
// touches that DBO. Finalize is invoked once, in LIFO creation order,
// when the owning Transaction commits or rolls back.
type SubTx interface {
	Finalize(commit bool) error
}

// Transaction tracks one client or system unit of work: its lifecycle
// state, the per-DBO sub-transactions it has lazily opened, and the
// locks it holds (spec §4.7).
type Transaction struct {
	id      TxID
	kind    Type
	manager *TransactionManager

	mu       sync.Mutex
	state    State
	created  time.Time
	ended    time.Time
	dboOrder []DBOName
	subTx    map[DBOName]SubTx
	err      error
}

func newTransaction(id TxID, kind Type, mgr *TransactionManager) *Transaction {
	return &Transaction{
		id:      id,
		kind:    kind,
		manager: mgr,
		state:   StateReady,
		created: time.Now(),
		subTx:   make(map[DBOName]SubTx),
	}
}

func (tx *Transaction) ID() TxID     { return tx.id }
func (tx *Transaction) Type() Type   { return tx.kind }
func (tx *Transaction) State() State {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.state
}

// Begin transitions READY -> RUNNING; only a RUNNING transaction may
// read or write.
func (tx *Transaction) Begin() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.state != StateReady {
		return dberrors.New(dberrors.KindWrongTxState, "Transaction.Begin",
			fmt.Errorf("expected READY, got %s", tx.state))
	}
	tx.state = StateRunning
	return nil
}

// Fail transitions RUNNING -> ERROR; subsequent operator execution
// within this transaction must stop.
func (tx *Transaction) Fail(cause error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.state == StateRunning {
		tx.state = StateError
		tx.err = cause
	}
}

// Kill transitions RUNNING -> KILLED; checked by the executor between
// yielded records (spec §5: "kill(txId) sets state to KILLED").
func (tx *Transaction) Kill() {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.state == StateRunning || tx.state == StateReady {
		tx.state = StateKilled
	}
}

// CheckCancellation returns CancellationError once this transaction has
// been killed; operator execution calls this at each yield boundary.
func (tx *Transaction) CheckCancellation() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.state == StateKilled {
		return dberrors.New(dberrors.KindCancellation, "Transaction.CheckCancellation",
			fmt.Errorf("transaction %d was killed", tx.id))
	}
	return nil
}

// GetTx returns the sub-transaction registered for dbo, lazily creating
// it via factory on first touch (spec §4.7: "exactly one such handle per
// (transaction, DBO)").
func (tx *Transaction) GetTx(dbo DBOName, factory func() (SubTx, error)) (SubTx, error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.state != StateRunning {
		return nil, dberrors.New(dberrors.KindWrongTxState, "Transaction.GetTx",
			fmt.Errorf("transaction %d is %s, not RUNNING", tx.id, tx.state))
	}
	if sub, ok := tx.subTx[dbo]; ok {
		return sub, nil
	}
	sub, err := factory()
	if err != nil {
		return nil, err
	}
	tx.subTx[dbo] = sub
	tx.dboOrder = append(tx.dboOrder, dbo)
	return sub, nil
}

// Commit finalizes every sub-transaction in reverse creation order
// (LIFO: indexes before their entity, entities before their schema),
// then releases every lock this transaction held. Only RUNNING may
// commit.
func (tx *Transaction) Commit() error {
	tx.mu.Lock()
	if tx.state != StateRunning {
		st := tx.state
		tx.mu.Unlock()
		return dberrors.New(dberrors.KindWrongTxState, "Transaction.Commit",
			fmt.Errorf("expected RUNNING, got %s", st))
	}
	tx.state = StateFinalizing
	tx.mu.Unlock()

	err := tx.finalize(true)

	tx.mu.Lock()
	if err != nil {
		tx.state = StateRolledBack
	} else {
		tx.state = StateCommitted
	}
	tx.ended = time.Now()
	tx.mu.Unlock()

	tx.manager.onFinalize(tx)
	return err
}

// Rollback finalizes every sub-transaction discarding its writes.
// RUNNING, ERROR, or KILLED transactions may roll back.
func (tx *Transaction) Rollback() error {
	tx.mu.Lock()
	if tx.state != StateRunning && tx.state != StateError && tx.state != StateKilled {
		st := tx.state
		tx.mu.Unlock()
		return dberrors.New(dberrors.KindWrongTxState, "Transaction.Rollback",
			fmt.Errorf("expected RUNNING, ERROR or KILLED, got %s", st))
	}
	tx.state = StateFinalizing
	tx.mu.Unlock()

	err := tx.finalize(false)

	tx.mu.Lock()
	tx.state = StateRolledBack
	tx.ended = time.Now()
	tx.mu.Unlock()

	tx.manager.onFinalize(tx)
	return err
}

func (tx *Transaction) finalize(commit bool) error {
	var firstErr error
	for i := len(tx.dboOrder) - 1; i >= 0; i-- {
		sub := tx.subTx[tx.dboOrder[i]]
		if err := sub.Finalize(commit); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	tx.manager.locks.ReleaseAll(tx.id)
	return firstErr
}

// subTxCount is used by the transaction history ring buffer.
func (tx *Transaction) subTxCount() int {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return len(tx.dboOrder)
}
