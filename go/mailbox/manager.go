package mailbox

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/hiveprotocol/hive/go/hiveid"
)

// Dispatcher applies one inbound mailbox message as a mutation on the
// local replicated state machine (spec.md §4.1: "executes the message's
// handler, e.g. applies a Hydra-replicated Prepare/Commit/Abort
// mutation"). Implementations are expected to route by payloadType to
// the matching handler registered on the cell's replicatedlog.Log, and
// to block until the mutation has been applied — callers rely on that to
// know when it is safe to advance next_expected_incoming.
type Dispatcher interface {
	Dispatch(sender hiveid.CellId, payloadType string, payload []byte)
}

// Manager owns one Mailbox per peer cell a local cell has ever
// communicated with, per spec.md §4.1's "each cell hosts a manager
// owning one mailbox per peer cell it has ever communicated with."
type Manager struct {
	mu         sync.Mutex
	self       hiveid.CellId
	mailboxes  map[hiveid.CellId]*Mailbox
	dispatcher Dispatcher
	logger     *log.Entry
}

// NewManager returns a Manager for the local cell self, delivering
// applied messages to dispatcher.
func NewManager(self hiveid.CellId, dispatcher Dispatcher, logger *log.Entry) *Manager {
	return &Manager{
		self:       self,
		mailboxes:  make(map[hiveid.CellId]*Mailbox),
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// GetOrCreateMailbox returns the mailbox for peer, creating it lazily.
// Per spec.md §4.1, a mailbox for an unknown cell is not an error — the
// manager simply starts tracking the pair from sequence zero.
func (mgr *Manager) GetOrCreateMailbox(peer hiveid.CellId) *Mailbox {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	return mgr.getOrCreateLocked(peer)
}

func (mgr *Manager) getOrCreateLocked(peer hiveid.CellId) *Mailbox {
	var mb, ok = mgr.mailboxes[peer]
	if !ok {
		mb = newMailbox(peer)
		mgr.mailboxes[peer] = mb
	}
	return mb
}

// PostMessage appends a message to the pending_outgoing queue of the
// mailbox addressed to peer. Callers must invoke this from within the
// same mutation application that produced the message, so the entry is
// part of the cell's replicated state and survives leader failover
// (spec.md §4.1).
func (mgr *Manager) PostMessage(peer hiveid.CellId, payloadType string, payload []byte) Message {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	var mb = mgr.getOrCreateLocked(peer)
	return mb.enqueue(payloadType, payload)
}

// ReceiveMessages is the handler backing the ReceiveMessages RPC
// (spec.md §4.1). It applies every message that can be applied in
// order, buffers the rest, and returns the sequence the mailbox is now
// waiting for.
func (mgr *Manager) ReceiveMessages(sender hiveid.CellId, messages []Message) (nextExpected uint64) {
	mgr.mu.Lock()
	var mb = mgr.getOrCreateLocked(sender)
	mgr.mu.Unlock()

	for _, msg := range messages {
		mgr.offer(mb, sender, msg)
	}
	return mb.NextExpectedIncoming()
}

// offer applies msg if it is the next expected sequence, discards it if
// it is a duplicate of an already-applied sequence, or buffers it for
// later if it arrived out of order; then drains any now-contiguous run
// of previously buffered messages.
func (mgr *Manager) offer(mb *Mailbox, sender hiveid.CellId, msg Message) {
	mgr.mu.Lock()
	switch {
	case msg.Sequence < mb.nextExpectedIncoming:
		mgr.mu.Unlock()
		return
	case msg.Sequence > mb.nextExpectedIncoming:
		if mgr.logger != nil && len(mb.reordered) >= reorderBufferWarnThreshold {
			mgr.logger.WithFields(log.Fields{
				"sender":   sender.String(),
				"sequence": msg.Sequence,
				"expected": mb.nextExpectedIncoming,
				"buffered": len(mb.reordered),
			}).Warn("mailbox reorder buffer past warn threshold, still waiting for gap")
		}
		mb.reordered[msg.Sequence] = msg
		mgr.mu.Unlock()
		return
	}

	// msg.Sequence == mb.nextExpectedIncoming: apply, then drain any
	// contiguous run that was waiting in the reorder buffer. The buffer
	// never evicts, so a message held here is never lost, only delayed
	// until the gap closes.
	mb.nextExpectedIncoming++
	mgr.mu.Unlock()
	mgr.dispatcher.Dispatch(sender, msg.PayloadType, msg.Payload)

	for {
		mgr.mu.Lock()
		var next, ok = mb.reordered[mb.nextExpectedIncoming]
		if ok {
			delete(mb.reordered, mb.nextExpectedIncoming)
			mb.nextExpectedIncoming++
		}
		mgr.mu.Unlock()
		if !ok {
			return
		}
		mgr.dispatcher.Dispatch(sender, next.PayloadType, next.Payload)
	}
}

// AcknowledgeMessages retires acknowledged entries from the pending
// outgoing queue of the mailbox addressed to peer.
func (mgr *Manager) AcknowledgeMessages(peer hiveid.CellId, upToSequence uint64) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	var mb = mgr.getOrCreateLocked(peer)
	mb.acknowledge(upToSequence)
}

// PendingOutgoing returns, for every peer with unacknowledged outgoing
// messages, the backlog to resend — used after a leader failover
// (spec.md §4.4.4: "the new leader resends everything in
// pending_outgoing from its persisted state").
func (mgr *Manager) PendingOutgoing() map[hiveid.CellId][]Message {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	var out = make(map[hiveid.CellId][]Message, len(mgr.mailboxes))
	for peer, mb := range mgr.mailboxes {
		if pending := mb.PendingOutgoing(); len(pending) > 0 {
			out[peer] = pending
		}
	}
	return out
}
