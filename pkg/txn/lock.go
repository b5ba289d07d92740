package txn

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/latticedb/lattice/pkg/dberrors"
	"github.com/latticedb/lattice/pkg/metrics"
)

// LockMode is one of the four modes the LockManager mediates per DBO
// (spec §4.7, §5).
type LockMode int

const (
	Shared LockMode = iota
	Exclusive
	IntentionShared
	IntentionExclusive
)

func (m LockMode) String() string {
	switch m {
	case Shared:
		return "SHARED"
	case Exclusive:
		return "EXCLUSIVE"
	case IntentionShared:
		return "INTENTION_SHARED"
	case IntentionExclusive:
		return "INTENTION_EXCLUSIVE"
	default:
		return "UNKNOWN"
	}
}

// compatible reports whether a holder in mode held and a requester in
// mode want may both hold the same DBO's lock simultaneously. This is
// the standard multi-granularity lock compatibility matrix.
func compatible(held, want LockMode) bool {
	switch held {
	case Shared:
		return want == Shared || want == IntentionShared
	case IntentionShared:
		return want != Exclusive
	case IntentionExclusive:
		return want == IntentionShared || want == IntentionExclusive
	case Exclusive:
		return false
	default:
		return false
	}
}

// DBOName identifies a lockable resource: a catalog row, an entity, or
// an index, keyed by its fully-qualified name.
type DBOName string

type lockEntry struct {
	holders map[TxID]LockMode
}

// LockManager mediates per-DBO locks across all live transactions and
// detects deadlocks via the wait-for graph formed by blocked requesters.
type LockManager struct {
	mu      sync.Mutex
	entries map[DBOName]*lockEntry
	waitFor map[TxID]map[TxID]bool // requester -> set of txns it is blocked behind
}

func NewLockManager() *LockManager {
	return &LockManager{
		entries: make(map[DBOName]*lockEntry),
		waitFor: make(map[TxID]map[TxID]bool),
	}
}

// Acquire blocks the caller until dbo can be locked in mode by tx, or
// returns a DeadlockError immediately if granting the request would
// close a cycle in the wait-for graph (spec: "deadlock detection aborts
// one participant with DeadlockError").
func (lm *LockManager) Acquire(tx TxID, dbo DBOName, mode LockMode) error {
	for {
		lm.mu.Lock()
		e, ok := lm.entries[dbo]
		if !ok {
			e = &lockEntry{holders: make(map[TxID]LockMode)}
			lm.entries[dbo] = e
		}
		if existing, held := e.holders[tx]; held && existing == mode {
			lm.mu.Unlock()
			return nil
		}

		blocked := false
		for holder, held := range e.holders {
			if holder == tx {
				continue
			}
			if !compatible(held, mode) {
				blocked = true
				if lm.wouldDeadlock(tx, holder) {
					lm.mu.Unlock()
					metrics.TxDeadlocksTotal.Inc()
					return dberrors.New(dberrors.KindDeadlock, "LockManager.Acquire",
						fmt.Errorf("tx %d would deadlock waiting on tx %d for %q", tx, holder, dbo))
				}
				lm.addWait(tx, holder)
			}
		}
		if !blocked {
			e.holders[tx] = mode
			lm.clearWait(tx)
			lm.mu.Unlock()
			return nil
		}
		lm.mu.Unlock()
		// Busy-wait with no sleep would spin; yield the scheduler briefly.
		// A condition variable per dbo would avoid this, but the lock set
		// touched per transaction is small (a handful of DBOs), so a short
		// retry loop keeps the implementation simple and correct.
		runtime.Gosched()
	}
}

// wouldDeadlock reports whether tx waiting on blocker would close a
// cycle in the wait-for graph (blocker, transitively, already waits on
// tx). Caller holds lm.mu.
func (lm *LockManager) wouldDeadlock(tx, blocker TxID) bool {
	visited := map[TxID]bool{blocker: true}
	queue := []TxID{blocker}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == tx {
			return true
		}
		for next := range lm.waitFor[cur] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

func (lm *LockManager) addWait(tx, blocker TxID) {
	if lm.waitFor[tx] == nil {
		lm.waitFor[tx] = make(map[TxID]bool)
	}
	lm.waitFor[tx][blocker] = true
}

func (lm *LockManager) clearWait(tx TxID) {
	delete(lm.waitFor, tx)
}

// ReleaseAll releases every lock tx holds, regardless of outcome (spec:
// "all locks held by a transaction are released on finalize regardless
// of outcome").
func (lm *LockManager) ReleaseAll(tx TxID) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	for _, e := range lm.entries {
		delete(e.holders, tx)
	}
	lm.clearWait(tx)
}
