package txnmanager

import "github.com/pkg/errors"

// ErrTransactionUnknown is returned by PingTransaction or AbortTransaction
// when the target transaction id is not known locally — either it never
// existed here or it already finished. spec.md §7 classifies this as the
// TransactionUnknown error kind: treated as "done" on Abort, and as a
// signal to locally abort on Ping.
var ErrTransactionUnknown = errors.New("transaction unknown")

// ErrPrepareRejected is returned by PrepareCommit when the adapter
// declines to prepare a transaction (conflicting lock, expired lease,
// failed validation, ...). spec.md §7 classifies this as PrepareRejected:
// it aborts the commit and is surfaced to the client as the commit RPC's
// error.
var ErrPrepareRejected = errors.New("prepare rejected")
