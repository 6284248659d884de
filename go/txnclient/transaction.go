// Package txnclient implements the client-side transaction façade
// (spec.md §4.5, component C5): Transaction and TransactionManager track
// a client transaction's lifecycle and talk to cells purely over the
// TransactionSupervisor gRPC service.
package txnclient

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/hiveprotocol/hive/go/hiveid"
	"github.com/hiveprotocol/hive/go/hivepb"
	"github.com/hiveprotocol/hive/go/txnmanager"
)

// Type distinguishes a Master transaction (global, object-creation RPC on
// start) from a Tablet transaction (locally synthesized id, no RPC).
type Type int

const (
	Master Type = iota
	Tablet
)

// State is the client transaction's lifecycle (spec.md §4.5): linear
// except that Active may transition to Aborted asynchronously at any
// time via the Aborted signal.
type State int

const (
	StateInitializing State = iota
	StateActive
	StateAborted
	StateCommitting
	StateCommitted
	StateDetached
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "Initializing"
	case StateActive:
		return "Active"
	case StateAborted:
		return "Aborted"
	case StateCommitting:
		return "Committing"
	case StateCommitted:
		return "Committed"
	case StateDetached:
		return "Detached"
	default:
		return "Unknown"
	}
}

// CellClient is the narrow view of a cell's TransactionSupervisor this
// package needs, satisfied by hivepb.TransactionSupervisorClient.
type CellClient = hivepb.TransactionSupervisorClient

// ClientDialer resolves a CellId to an RPC client, e.g. by going through
// a celldirectory.Directory and grpc.Dial.
type ClientDialer func(ctx context.Context, cellID hiveid.CellId) (CellClient, error)

// Transaction tracks one client transaction end-to-end.
type Transaction struct {
	mu sync.Mutex

	id              hiveid.TransactionId
	kind            Type
	startTimestamp  hiveid.Timestamp
	masterCellID    hiveid.CellId
	participants    map[hiveid.CellId]struct{}
	state           State
	dial            ClientDialer
	abortedHandlers []func()
}

func newTransaction(kind Type, startTimestamp hiveid.Timestamp, masterCellID hiveid.CellId, dial ClientDialer) *Transaction {
	return &Transaction{
		kind:           kind,
		startTimestamp: startTimestamp,
		masterCellID:   masterCellID,
		participants:   make(map[hiveid.CellId]struct{}),
		state:          StateInitializing,
		dial:           dial,
	}
}

// ID returns the transaction id assigned at Start.
func (t *Transaction) ID() hiveid.TransactionId {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.id
}

// State returns the transaction's current lifecycle state.
func (t *Transaction) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// OnAborted registers a handler fired the moment the transaction
// transitions to Aborted, from whatever goroutine observes the failure
// (spec.md §4.5: "Active → Aborted may occur at any time asynchronously").
func (t *Transaction) OnAborted(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateAborted {
		t.mu.Unlock()
		fn()
		t.mu.Lock()
		return
	}
	t.abortedHandlers = append(t.abortedHandlers, fn)
}

func (t *Transaction) markAborted() {
	t.mu.Lock()
	if t.state == StateAborted || t.state == StateCommitted {
		t.mu.Unlock()
		return
	}
	t.state = StateAborted
	var handlers = t.abortedHandlers
	t.mu.Unlock()
	for _, h := range handlers {
		h()
	}
}

// start assigns a transaction id via the given type-specific strategy and,
// for Master transactions, inserts the coordinator (master) cell into the
// participant set (spec.md §4.5). Tablet transactions start with an empty
// participant set, populated later via AddTabletParticipant.
func (t *Transaction) start(id hiveid.TransactionId) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.id = id
	if t.kind == Master {
		t.participants[t.masterCellID] = struct{}{}
	}
	t.state = StateActive
}

// AddTabletParticipant registers cellID as a participant of a Tablet
// transaction (spec.md §4.5). It is idempotent: calling it again for an
// already-registered cell is a no-op. On RPC failure, the transaction is
// aborted locally and the error is returned.
func (t *Transaction) AddTabletParticipant(ctx context.Context, cellID hiveid.CellId, timeoutMs uint64) error {
	t.mu.Lock()
	if _, ok := t.participants[cellID]; ok {
		t.mu.Unlock()
		return nil
	}
	if t.kind != Tablet {
		t.mu.Unlock()
		return errors.New("AddTabletParticipant is only valid for Tablet transactions")
	}
	var txID, startTs = t.id, t.startTimestamp
	t.mu.Unlock()

	var client, err = t.dial(ctx, cellID)
	if err != nil {
		t.markAborted()
		return errors.Wrap(err, "dialing tablet participant")
	}
	if _, err = client.StartTransaction(ctx, &hivepb.StartTransactionRequest{
		TransactionIdHi: txID.Hi,
		TransactionIdLo: txID.Lo,
		StartTimestamp:  uint64(startTs),
		TimeoutMs:       timeoutMs,
	}); err != nil {
		t.markAborted()
		return errors.Wrap(err, "StartTransaction RPC")
	}

	t.mu.Lock()
	t.participants[cellID] = struct{}{}
	t.mu.Unlock()
	return nil
}

// coordinator selects which cell drives the two-phase commit: the master
// cell for Master transactions, or the participant with the lowest
// CellId for Tablet transactions (see DESIGN.md, "tablet coordinator
// selection" — the Open Question in spec.md §9 resolved deterministically
// rather than by iteration order).
func (t *Transaction) coordinator() hiveid.CellId {
	if t.kind == Master {
		return t.masterCellID
	}
	var lowest hiveid.CellId
	var first = true
	for cellID := range t.participants {
		if first || cellID.Less(lowest) {
			lowest = cellID
			first = false
		}
	}
	return lowest
}

// otherParticipants returns every participant except the coordinator, in
// the order CommitTransactionRequest expects them (spec.md §4.4.2
// distinguishes the coordinator's own local prepare from the participants
// it must message).
func (t *Transaction) otherParticipants(coordinator hiveid.CellId) []hiveid.CellId {
	var out = make([]hiveid.CellId, 0, len(t.participants))
	for cellID := range t.participants {
		if cellID != coordinator {
			out = append(out, cellID)
		}
	}
	return out
}

// Commit drives the transaction's two-phase commit to completion
// (spec.md §4.5). mutationID, if zero, is replaced with a freshly
// generated one that is not returned to the caller. Commit moves the
// transaction out of Active, so a second Commit call is refused.
func (t *Transaction) Commit(ctx context.Context, mutationID hiveid.MutationId) (hiveid.Timestamp, error) {
	t.mu.Lock()
	if t.state != StateActive {
		t.mu.Unlock()
		return hiveid.TimestampNull, fmt.Errorf("cannot commit transaction in state %s", t.state)
	}
	t.state = StateCommitting
	var coordinatorID = t.coordinator()
	var others = t.otherParticipants(coordinatorID)
	t.mu.Unlock()

	if mutationID.IsNull() {
		mutationID = newMutationID()
	}

	var client, err = t.dial(ctx, coordinatorID)
	if err != nil {
		t.markAborted()
		return hiveid.TimestampNull, errors.Wrap(err, "dialing commit coordinator")
	}

	var his = make([]uint64, len(others))
	var los = make([]uint64, len(others))
	for i, p := range others {
		his[i], los[i] = p.Hi, p.Lo
	}

	var resp *hivepb.CommitTransactionResponse
	resp, err = client.CommitTransaction(ctx, &hivepb.CommitTransactionRequest{
		TransactionIdHi:    t.id.Hi,
		TransactionIdLo:    t.id.Lo,
		MutationIdHi:       mutationID.Hi,
		MutationIdLo:       mutationID.Lo,
		ParticipantCellIds: his,
		ParticipantCellLos: los,
	})
	if err != nil {
		t.markAborted()
		return hiveid.TimestampNull, errors.Wrap(err, "CommitTransaction RPC")
	}

	t.mu.Lock()
	t.state = StateCommitted
	t.mu.Unlock()
	return hiveid.Timestamp(resp.CommitTimestamp), nil
}

// Abort posts AbortTransaction to every participant in parallel (spec.md
// §4.5), tolerating per-cell errors that indicate the transaction is
// already gone there, then fires the Aborted signal.
func (t *Transaction) Abort(ctx context.Context, mutationID hiveid.MutationId) error {
	t.mu.Lock()
	var participants = make([]hiveid.CellId, 0, len(t.participants))
	for cellID := range t.participants {
		participants = append(participants, cellID)
	}
	t.mu.Unlock()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	for _, cellID := range participants {
		wg.Add(1)
		go func(cellID hiveid.CellId) {
			defer wg.Done()
			var client, err = t.dial(ctx, cellID)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			if _, err = client.AbortTransaction(ctx, &hivepb.AbortTransactionRequest{
				TransactionIdHi: t.id.Hi,
				TransactionIdLo: t.id.Lo,
			}); err != nil {
				// A cell that no longer knows this transaction is not a
				// failure to abort there — it is already gone, exactly
				// the outcome Abort was asking for (same classification
				// Ping uses to detect a remote cell considers this
				// transaction dead).
				if strings.Contains(err.Error(), txnmanager.ErrTransactionUnknown.Error()) {
					return
				}
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(cellID)
	}
	wg.Wait()

	t.markAborted()
	return firstErr
}

// Ping posts PingTransaction to every participant in parallel (spec.md
// §4.5). pingAncestors is always false: tablet transactions never ping
// ancestors (DESIGN.md, Open Question resolution). A resolve error on any
// cell means the transaction is known dead there, and the whole
// transaction is aborted locally; other errors are returned for the
// caller's retry scheduler to log and retry on the next tick.
func (t *Transaction) Ping(ctx context.Context) error {
	t.mu.Lock()
	var participants = make([]hiveid.CellId, 0, len(t.participants))
	for cellID := range t.participants {
		participants = append(participants, cellID)
	}
	t.mu.Unlock()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	var knownDead bool
	for _, cellID := range participants {
		wg.Add(1)
		go func(cellID hiveid.CellId) {
			defer wg.Done()
			var client, err = t.dial(ctx, cellID)
			if err == nil {
				_, err = client.PingTransaction(ctx, &hivepb.PingTransactionRequest{
					TransactionIdHi: t.id.Hi,
					TransactionIdLo: t.id.Lo,
					PingAncestors:   false,
				})
			}
			if err != nil {
				mu.Lock()
				if strings.Contains(err.Error(), txnmanager.ErrTransactionUnknown.Error()) {
					knownDead = true
				} else if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(cellID)
	}
	wg.Wait()

	if knownDead {
		t.markAborted()
	}
	return firstErr
}

func newMutationID() hiveid.MutationId {
	var id = uuid.New()
	return hiveid.MutationId{
		Hi: uint64(id[0])<<56 | uint64(id[1])<<48 | uint64(id[2])<<40 | uint64(id[3])<<32 |
			uint64(id[4])<<24 | uint64(id[5])<<16 | uint64(id[6])<<8 | uint64(id[7]),
		Lo: uint64(id[8])<<56 | uint64(id[9])<<48 | uint64(id[10])<<40 | uint64(id[11])<<32 |
			uint64(id[12])<<24 | uint64(id[13])<<16 | uint64(id[14])<<8 | uint64(id[15]),
	}
}
