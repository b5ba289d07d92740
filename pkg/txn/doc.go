// Package txn owns the global registry of live transactions and the
// LockManager that mediates per-DBO access across them (spec §4.7, §5).
//
// A Transaction moves through a fixed state machine: Begin moves it from
// READY to RUNNING, where it stays between operations (it does not return
// to READY); a failure moves it to ERROR and Kill moves a READY or RUNNING
// transaction to KILLED; commit and rollback pass through FINALIZING to
// COMMIT or ROLLBACK. Only RUNNING may read/write, only RUNNING/ERROR/
// KILLED may roll back, and only RUNNING may commit. Every DBO (catalog, entity, column, index) a transaction
// touches gets exactly one lazily-created per-DBO sub-transaction handle,
// finalized in LIFO order on commit or rollback so indexes finalize
// before their parent entity and entities before their schema.
package txn
