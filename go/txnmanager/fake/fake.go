// Package fake provides an in-memory txnmanager.Manager sufficient to
// drive the coordinator end-to-end in tests and local hived runs, the way
// estuary-flow's go/connector/proxy.go stands in for an out-of-process
// connector it doesn't implement.
package fake

import (
	"sync"

	"github.com/hiveprotocol/hive/go/hiveid"
	"github.com/hiveprotocol/hive/go/txnmanager"
)

type txnState int

const (
	stateUnknown txnState = iota
	statePrepared
	stateCommitted
)

// Manager is a trivial, in-memory txnmanager.Manager. It tracks which
// transactions have been prepared or committed and enforces the
// documented failure contract: PrepareCommit may be configured to reject
// specific transaction ids (RejectPrepare), but CommitTransaction never
// fails once PrepareCommit has succeeded.
type Manager struct {
	mu    sync.Mutex
	state map[hiveid.TransactionId]txnState

	// RejectPrepare, if set, is consulted by PrepareCommit; returning a
	// non-nil error fails the prepare for that transaction id.
	RejectPrepare func(hiveid.TransactionId) error
}

// New returns an empty Manager.
func New() *Manager {
	return &Manager{state: make(map[hiveid.TransactionId]txnState)}
}

func (m *Manager) PrepareCommit(txID hiveid.TransactionId, persistent bool, prepareTimestamp hiveid.Timestamp) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.RejectPrepare != nil {
		if err := m.RejectPrepare(txID); err != nil {
			return err
		}
	}
	m.state[txID] = statePrepared
	return nil
}

func (m *Manager) CommitTransaction(txID hiveid.TransactionId, commitTimestamp hiveid.Timestamp) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Per the adapter contract, this must never be called without a
	// prior successful PrepareCommit; a fake that observes otherwise
	// has a test bug, not a recoverable runtime condition.
	if m.state[txID] != statePrepared {
		panic("fake txnmanager: CommitTransaction without a prior successful PrepareCommit")
	}
	m.state[txID] = stateCommitted
	return nil
}

func (m *Manager) AbortTransaction(txID hiveid.TransactionId, force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.state, txID)
	return nil
}

func (m *Manager) PingTransaction(txID hiveid.TransactionId, pingAncestors bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.state[txID]; !ok {
		return txnmanager.ErrTransactionUnknown
	}
	return nil
}

// Has reports whether txID is tracked at all (prepared or committed),
// for test assertions.
func (m *Manager) Has(txID hiveid.TransactionId) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.state[txID]
	return ok
}

// Committed reports whether txID reached the committed state.
func (m *Manager) Committed(txID hiveid.TransactionId) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state[txID] == stateCommitted
}

var _ txnmanager.Manager = (*Manager)(nil)
