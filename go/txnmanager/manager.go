// Package txnmanager defines the per-cell transaction-manager adapter
// (spec.md §4.3, component C3): the hook the coordinator calls to
// prepare/commit/abort a transaction's local effects (MVCC, row locks,
// whatever a cell actually stores). Its internals are explicitly out of
// scope (spec.md §1); this package only fixes the interface and its
// documented failure semantics, plus one in-memory implementation
// (package txnmanager/fake) good enough to drive the coordinator in tests
// and local runs.
package txnmanager

import "github.com/hiveprotocol/hive/go/hiveid"

// Manager is the contract the coordinator depends on. Every method may be
// called from the cell's serialized executor only.
type Manager interface {
	// PrepareCommit validates that transactionId can be committed and
	// stages its effects. persistent distinguishes a distributed commit
	// (logged, survives leader failover) from a simple one. An error
	// aborts the commit (spec.md §4.4.5); it must never be returned once
	// CommitTransaction below has been called for the same transaction.
	PrepareCommit(transactionId hiveid.TransactionId, persistent bool, prepareTimestamp hiveid.Timestamp) error

	// CommitTransaction durably applies a transaction's effects at
	// commitTimestamp. It must not fail once PrepareCommit has
	// succeeded for the same transaction id — spec.md §4.3 documents
	// this as a fatal assertion, not a recoverable error, and
	// implementations in this repository treat a returned error here as
	// a programming error in the adapter, not in the coordinator.
	CommitTransaction(transactionId hiveid.TransactionId, commitTimestamp hiveid.Timestamp) error

	// AbortTransaction discards a transaction's staged or committed
	// effects. It is idempotent: aborting an unknown or already-aborted
	// transaction id is not an error. force is set when the coordinator
	// is force-aborting post-prepare-failure cleanup, where
	// preconditions that would otherwise be checked must be skipped.
	AbortTransaction(transactionId hiveid.TransactionId, force bool) error

	// PingTransaction renews a transaction's lease. pingAncestors is
	// always false for tablet transactions (spec.md §9, Open Question
	// resolution: "this spec forbids PingAncestors for tablet
	// transactions"). Returning ErrTransactionUnknown signals the
	// transaction is already gone locally.
	PingTransaction(transactionId hiveid.TransactionId, pingAncestors bool) error
}
