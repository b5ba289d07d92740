package rpc

import (
	"github.com/rs/zerolog"

	"github.com/latticedb/lattice/pkg/catalog"
	"github.com/latticedb/lattice/pkg/dberrors"
	"github.com/latticedb/lattice/pkg/exec"
	"github.com/latticedb/lattice/pkg/log"
	"github.com/latticedb/lattice/pkg/metrics"
	"github.com/latticedb/lattice/pkg/planner"
	"github.com/latticedb/lattice/pkg/storage"
	"github.com/latticedb/lattice/pkg/txn"
	"github.com/latticedb/lattice/pkg/types"
)

// Service is the DQL/DML/DDL boundary spec §6 asks for: every mutating
// or querying call takes a txn.TxID (zero meaning "run as its own
// implicit transaction") and returns either an error a caller maps
// through StatusOf, or, for Query, a materialized result set.
//
// A real wire transport would marshal these same arguments off a
// protobuf message; this interface is the part of that boundary the
// spec asks to be specified, not the transport itself.
type Service interface {
	Begin(kind txn.Type) (txn.TxID, error)
	Commit(id txn.TxID) error
	Rollback(id txn.TxID) error
	Kill(id txn.TxID) error

	CreateSchema(id txn.TxID, name catalog.SchemaName) error
	DropSchema(id txn.TxID, name catalog.SchemaName) error
	CreateEntity(id txn.TxID, name catalog.EntityName, columns []types.ColumnDef) error
	DropEntity(id txn.TxID, name catalog.EntityName) error
	CreateIndex(id txn.TxID, entity catalog.EntityName, short string, typ catalog.IndexType, column string, cfg map[string]string) error
	DropIndex(id txn.TxID, entity catalog.EntityName, short string) error

	Insert(id txn.TxID, entity catalog.EntityName, values []types.Value) (types.TupleId, error)
	Update(id txn.TxID, entity catalog.EntityName, tid types.TupleId, values []types.Value) error
	Delete(id txn.TxID, entity catalog.EntityName, tid types.TupleId) error

	Query(id txn.TxID, logical planner.Logical) ([]types.Record, error)
}

// InProcessService is the one adapter this boundary ships: everything
// runs in this process against a single Store, with no network hop.
// Holding an explicit transaction open across two separate calls does
// not hold the underlying bbolt transaction open between them — Store
// only exposes callback-scoped View/Update (see pkg/storage) — so each
// call still commits its own physical write immediately. What an
// explicit txn.TxID buys a caller here is DBO-level lock attribution and
// lifecycle bookkeeping (Begin/Commit/Rollback/Kill, history, metrics),
// not cross-call atomicity; a real wire boundary that wants the latter
// would need to keep a goroutine parked inside one Store.Update for the
// session's lifetime, which is out of scope for what this boundary is
// required to specify.
type InProcessService struct {
	store   storage.Store
	cat     *catalog.Catalog
	txns    *txn.TransactionManager
	planner *planner.Planner
	log     zerolog.Logger
}

// NewInProcessService wires a Service directly over an already-bootstrapped
// catalog and transaction manager.
func NewInProcessService(store storage.Store, cat *catalog.Catalog, txns *txn.TransactionManager, p *planner.Planner) *InProcessService {
	return &InProcessService{store: store, cat: cat, txns: txns, planner: p, log: log.WithComponent("rpc")}
}

func (s *InProcessService) Begin(kind txn.Type) (txn.TxID, error) {
	t, err := s.txns.Begin(kind)
	if err != nil {
		return 0, err
	}
	s.log.Debug().Int64("tx_id", int64(t.ID())).Str("type", kind.String()).Msg("rpc transaction opened")
	return t.ID(), nil
}

func (s *InProcessService) Commit(id txn.TxID) error {
	t, ok := s.txns.Get(id)
	if !ok {
		return dberrors.New(dberrors.KindWrongTxState, "rpc.Commit", errUnknownTransaction)
	}
	return t.Commit()
}

func (s *InProcessService) Rollback(id txn.TxID) error {
	t, ok := s.txns.Get(id)
	if !ok {
		return dberrors.New(dberrors.KindWrongTxState, "rpc.Rollback", errUnknownTransaction)
	}
	return t.Rollback()
}

func (s *InProcessService) Kill(id txn.TxID) error {
	return s.txns.Kill(id)
}

// withTx resolves id to a live *txn.Transaction — beginning and
// finalizing an implicit one around fn when id is zero — then runs fn
// inside a single Store.View (readOnly) or Store.Update transaction.
func (s *InProcessService) withTx(id txn.TxID, readOnly bool, fn func(tx storage.Tx, t *txn.Transaction) error) (err error) {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDurationVec(metrics.RPCRequestDuration, requestLabel(readOnly))
		if err != nil {
			metrics.RPCRequestsFailedTotal.WithLabelValues(StatusOf(err).String()).Inc()
		}
	}()

	if id == 0 {
		t, err := s.txns.Begin(txn.UserImplicit)
		if err != nil {
			return err
		}
		runner := s.store.Update
		if readOnly {
			runner = s.store.View
		}
		if err := runner(func(stx storage.Tx) error { return fn(stx, t) }); err != nil {
			_ = t.Rollback()
			return err
		}
		return t.Commit()
	}

	t, ok := s.txns.Get(id)
	if !ok {
		return dberrors.New(dberrors.KindWrongTxState, "rpc", errUnknownTransaction)
	}
	if err := t.CheckCancellation(); err != nil {
		return err
	}
	runner := s.store.Update
	if readOnly {
		runner = s.store.View
	}
	return runner(func(stx storage.Tx) error { return fn(stx, t) })
}

// openEntity registers entity with t as its per-DBO sub-transaction
// (spec §4.7/§6.2), lazily opening it on first touch within t.
func openEntity(stx storage.Tx, cat *catalog.Catalog, t *txn.Transaction, name catalog.EntityName) (*exec.Entity, error) {
	sub, err := t.GetTx(txn.DBOName(name), func() (txn.SubTx, error) {
		return exec.OpenEntity(stx, cat, name)
	})
	if err != nil {
		return nil, err
	}
	return sub.(*exec.Entity), nil
}

func (s *InProcessService) CreateSchema(id txn.TxID, name catalog.SchemaName) error {
	return s.withTx(id, false, func(stx storage.Tx, _ *txn.Transaction) error {
		return s.cat.CreateSchema(stx, name)
	})
}

func (s *InProcessService) DropSchema(id txn.TxID, name catalog.SchemaName) error {
	return s.withTx(id, false, func(stx storage.Tx, _ *txn.Transaction) error {
		return s.cat.DropSchema(stx, name)
	})
}

func (s *InProcessService) CreateEntity(id txn.TxID, name catalog.EntityName, columns []types.ColumnDef) error {
	return s.withTx(id, false, func(stx storage.Tx, _ *txn.Transaction) error {
		return s.cat.CreateEntity(stx, name, columns)
	})
}

func (s *InProcessService) DropEntity(id txn.TxID, name catalog.EntityName) error {
	return s.withTx(id, false, func(stx storage.Tx, _ *txn.Transaction) error {
		return s.cat.DropEntity(stx, name)
	})
}

func (s *InProcessService) CreateIndex(id txn.TxID, entity catalog.EntityName, short string, typ catalog.IndexType, column string, cfg map[string]string) error {
	return s.withTx(id, false, func(stx storage.Tx, t *txn.Transaction) error {
		e, err := openEntity(stx, s.cat, t, entity)
		if err != nil {
			return err
		}
		return e.CreateIndex(stx, short, typ, column, cfg)
	})
}

func (s *InProcessService) DropIndex(id txn.TxID, entity catalog.EntityName, short string) error {
	return s.withTx(id, false, func(stx storage.Tx, t *txn.Transaction) error {
		e, err := openEntity(stx, s.cat, t, entity)
		if err != nil {
			return err
		}
		return e.DropIndex(stx, short)
	})
}

func (s *InProcessService) Insert(id txn.TxID, entity catalog.EntityName, values []types.Value) (types.TupleId, error) {
	var tid types.TupleId
	err := s.withTx(id, false, func(stx storage.Tx, t *txn.Transaction) error {
		e, err := openEntity(stx, s.cat, t, entity)
		if err != nil {
			return err
		}
		tid, err = e.Insert(stx, values)
		return err
	})
	return tid, err
}

func (s *InProcessService) Update(id txn.TxID, entity catalog.EntityName, tid types.TupleId, values []types.Value) error {
	return s.withTx(id, false, func(stx storage.Tx, t *txn.Transaction) error {
		e, err := openEntity(stx, s.cat, t, entity)
		if err != nil {
			return err
		}
		return e.Update(stx, tid, values)
	})
}

func (s *InProcessService) Delete(id txn.TxID, entity catalog.EntityName, tid types.TupleId) error {
	return s.withTx(id, false, func(stx storage.Tx, t *txn.Transaction) error {
		e, err := openEntity(stx, s.cat, t, entity)
		if err != nil {
			return err
		}
		return e.Delete(stx, tid)
	})
}

// Query plans and runs logical, materializing every record before
// returning — a streaming rpc.Service would hand back a cursor instead,
// but a cursor can't outlive the Store.View call it was produced inside
// (see withTx's doc comment), so the in-process adapter drains it first.
func (s *InProcessService) Query(id txn.TxID, logical planner.Logical) ([]types.Record, error) {
	var out []types.Record
	err := s.withTx(id, true, func(stx storage.Tx, t *txn.Transaction) error {
		phys, ctx, err := s.planner.Plan(stx, t, logical, s.store)
		if err != nil {
			return dberrors.New(dberrors.KindPlanningFailure, "rpc.Query", err)
		}
		op, err := phys.ToOperator(ctx)
		if err != nil {
			return dberrors.New(dberrors.KindExecutionError, "rpc.Query", err)
		}
		if err := op.Open(); err != nil {
			return dberrors.New(dberrors.KindExecutionError, "rpc.Query", err)
		}
		defer op.Close()
		for {
			rec, ok, err := op.Next()
			if err != nil {
				return dberrors.New(dberrors.KindExecutionError, "rpc.Query", err)
			}
			if !ok {
				return nil
			}
			out = append(out, rec)
		}
	})
	return out, err
}

func requestLabel(readOnly bool) string {
	if readOnly {
		return "query"
	}
	return "write"
}
