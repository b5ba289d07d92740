package txn

import (
	"sync"
	"time"

	"github.com/latticedb/lattice/pkg/dberrors"
	"github.com/latticedb/lattice/pkg/log"
	"github.com/latticedb/lattice/pkg/metrics"
	"github.com/rs/zerolog"
)

// HistoryEntry is a snapshot of a finalized transaction kept in the
// TransactionManager's fixed-capacity ring buffer (spec §4.7).
type HistoryEntry struct {
	ID        TxID
	Type      Type
	State     State
	Created   time.Time
	Ended     time.Time
	SubTxCount int
}

// TransactionManager owns the global registry of live transactions and
// the shared LockManager they all contend on.
type TransactionManager struct {
	mu      sync.Mutex
	next    TxID
	live    map[TxID]*Transaction
	locks   *LockManager
	log     zerolog.Logger

	history     []HistoryEntry
	historyNext int
	historyCap  int
}

// NewTransactionManager constructs a manager with a history ring buffer
// of the given capacity (0 disables history retention).
func NewTransactionManager(historyCap int) *TransactionManager {
	if historyCap < 0 {
		historyCap = 0
	}
	return &TransactionManager{
		live:       make(map[TxID]*Transaction),
		locks:      NewLockManager(),
		log:        log.WithComponent("txn"),
		historyCap: historyCap,
	}
}

// Begin allocates a new Transaction of the given type and moves it to
// RUNNING.
func (m *TransactionManager) Begin(kind Type) (*Transaction, error) {
	m.mu.Lock()
	m.next++
	id := m.next
	tx := newTransaction(id, kind, m)
	m.live[id] = tx
	m.mu.Unlock()

	if err := tx.Begin(); err != nil {
		return nil, err
	}
	m.log.Debug().Int64("tx_id", int64(id)).Str("type", kind.String()).Msg("transaction started")
	return tx, nil
}

// Get looks up a live transaction by id.
func (m *TransactionManager) Get(id TxID) (*Transaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.live[id]
	return tx, ok
}

// Kill transitions a live transaction to KILLED (spec §5: "kill(txId)").
func (m *TransactionManager) Kill(id TxID) error {
	tx, ok := m.Get(id)
	if !ok {
		return dberrors.New(dberrors.KindWrongTxState, "TransactionManager.Kill", errUnknownTx(id))
	}
	tx.Kill()
	return nil
}

// Locks returns the shared LockManager, for callers (catalog, entity,
// index implementations) that need to acquire per-DBO locks on behalf of
// a transaction.
func (m *TransactionManager) Locks() *LockManager { return m.locks }

func (m *TransactionManager) onFinalize(tx *Transaction) {
	if tx.State() == StateCommitted {
		metrics.TxCommitsTotal.Inc()
	} else {
		metrics.TxRollbacksTotal.Inc()
	}
	metrics.TxDuration.Observe(tx.ended.Sub(tx.created).Seconds())

	m.mu.Lock()
	delete(m.live, tx.id)
	if m.historyCap > 0 {
		entry := HistoryEntry{
			ID:         tx.id,
			Type:       tx.kind,
			State:      tx.State(),
			Created:    tx.created,
			Ended:      tx.ended,
			SubTxCount: tx.subTxCount(),
		}
		if len(m.history) < m.historyCap {
			m.history = append(m.history, entry)
		} else {
			m.history[m.historyNext] = entry
			m.historyNext = (m.historyNext + 1) % m.historyCap
		}
	}
	m.mu.Unlock()
}

// History returns a snapshot of the recent-transaction ring buffer, most
// recent last.
func (m *TransactionManager) History() []HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]HistoryEntry, 0, len(m.history))
	out = append(out, m.history[m.historyNext:]...)
	out = append(out, m.history[:m.historyNext]...)
	return out
}

type errUnknownTx TxID

func (e errUnknownTx) Error() string {
	return "txn: unknown transaction id"
}
