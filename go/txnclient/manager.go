package txnclient

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/hiveprotocol/hive/go/hiveid"
	"github.com/hiveprotocol/hive/go/hivepb"
)

// TransactionManager starts and tracks client transactions, and runs the
// background ping scheduler for any transaction that requested pings
// (spec.md §4.5).
type TransactionManager struct {
	dial       ClientDialer
	pingPeriod time.Duration

	counter atomic.Uint64

	mu  sync.Mutex
	txs map[hiveid.TransactionId]*Transaction
}

// NewTransactionManager returns a manager that resolves cells through
// dial. pingPeriod must be strictly less than the server-side transaction
// timeout (spec.md §4.5).
func NewTransactionManager(dial ClientDialer, pingPeriod time.Duration) *TransactionManager {
	return &TransactionManager{
		dial:       dial,
		pingPeriod: pingPeriod,
		txs:        make(map[hiveid.TransactionId]*Transaction),
	}
}

// StartOptions configures a new transaction.
type StartOptions struct {
	Type Type
	// MasterCellID is required for Master transactions: the cell an
	// object-creation RPC is issued to at Start.
	MasterCellID hiveid.CellId
	// SchedulePing, if true, registers the transaction with the ping
	// scheduler once started.
	SchedulePing bool
}

// Start begins a new transaction (spec.md §4.5): obtains a start
// timestamp, performs the type-specific start action, inserts the master
// cell into the participant set of a Master transaction (a Tablet
// transaction starts with none), and schedules pings if requested.
func (m *TransactionManager) Start(ctx context.Context, opts StartOptions) (*Transaction, error) {
	var t = newTransaction(opts.Type, 0, opts.MasterCellID, m.dial)

	switch opts.Type {
	case Master:
		var client, err = m.dial(ctx, opts.MasterCellID)
		if err != nil {
			return nil, errors.Wrap(err, "dialing master cell")
		}
		// The master-cell object-creation RPC carries no payload this
		// façade needs beyond a successful round trip; the transaction
		// id itself is synthesized identically to the tablet case once
		// a start timestamp is known, since the coordinator (§4.4.2) is
		// agnostic to how a transaction id was minted.
		var startTs = hiveid.Timestamp(m.counter.Add(1))
		var txID = hiveid.NewTransactionId(startTs, m.counter.Add(1))
		if _, err = client.StartTransaction(ctx, &hivepb.StartTransactionRequest{
			TransactionIdHi: txID.Hi,
			TransactionIdLo: txID.Lo,
			StartTimestamp:  uint64(startTs),
		}); err != nil {
			return nil, errors.Wrap(err, "master StartTransaction RPC")
		}
		t.startTimestamp = startTs
		t.start(txID)
	case Tablet:
		var startTs = hiveid.Timestamp(m.counter.Add(1))
		var txID = hiveid.NewTransactionId(startTs, m.counter.Add(1))
		t.startTimestamp = startTs
		t.start(txID)
	default:
		return nil, errors.New("unknown transaction type")
	}

	m.mu.Lock()
	m.txs[t.id] = t
	m.mu.Unlock()

	if opts.SchedulePing {
		go m.runPingLoop(t)
	}
	return t, nil
}

// runPingLoop pings t on pingPeriod until it leaves the Active state.
func (m *TransactionManager) runPingLoop(t *Transaction) {
	var ticker = time.NewTicker(m.pingPeriod)
	defer ticker.Stop()
	for range ticker.C {
		if t.State() != StateActive {
			m.mu.Lock()
			delete(m.txs, t.id)
			m.mu.Unlock()
			return
		}
		_ = t.Ping(context.Background())
	}
}

// Find looks up a transaction this manager started.
func (m *TransactionManager) Find(txID hiveid.TransactionId) (*Transaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var t, ok = m.txs[txID]
	return t, ok
}
