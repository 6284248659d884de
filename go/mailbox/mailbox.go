// Package mailbox implements the inter-cell messaging layer (spec.md
// §4.1, component C1): per-peer FIFO, exactly-once-in-order delivery on
// top of a transport that may reorder, duplicate, drop, or delay
// messages arbitrarily.
package mailbox

import (
	"github.com/hiveprotocol/hive/go/hiveid"
)

// reorderBufferWarnThreshold is the out-of-order buffer size past which
// a mailbox starts logging a warning on every new arrival (spec.md's
// "bounded to cap memory" requirement is a soft, logged bound: the
// buffer is keyed by sequence number, so any eviction policy that could
// silently drop an entry (e.g. an LRU cache) would permanently stall
// that peer pair once the gap it is waiting for was evicted. A plain
// map never evicts; it only ever shrinks when offer() drains a
// contiguous run, so no sequence is ever lost).
const reorderBufferWarnThreshold = 1024

// Message is a single mailbox entry: a gogo-serialized payload tagged
// with the name of the hivepb message it carries, so the receiver's
// dispatcher (the two-phase commit engine) knows which mutation handler
// to invoke.
type Message struct {
	Sequence    uint64
	PayloadType string
	Payload     []byte
}

// Mailbox tracks the channel state for one ordered pair of cells: Peer is
// the cell on the other end, and the two directions (what we've sent to
// Peer, what we've received from Peer) are tracked independently.
type Mailbox struct {
	Peer hiveid.CellId

	// Outgoing direction.
	nextOutgoingSequence uint64
	pendingOutgoing      []Message // not yet acknowledged by the peer

	// Incoming direction.
	nextExpectedIncoming uint64
	reordered            map[uint64]Message
}

// newMailbox returns a fresh mailbox for peer, with both sequence
// counters starting at zero (spec.md does not mandate a particular
// origin; zero is the natural one since cells have no notion of their
// peer's message history before they ever contact each other).
func newMailbox(peer hiveid.CellId) *Mailbox {
	return &Mailbox{
		Peer:      peer,
		reordered: make(map[uint64]Message),
	}
}

// enqueue appends a new outgoing message under the mailbox's own
// sequence counter and returns it. Called while holding the manager's
// owning mutation's serialization — always paired with the mutation
// that produced it, per spec.md §4.1's "atomically with the mutation
// that produced it".
func (m *Mailbox) enqueue(payloadType string, payload []byte) Message {
	var msg = Message{
		Sequence:    m.nextOutgoingSequence,
		PayloadType: payloadType,
		Payload:     payload,
	}
	m.nextOutgoingSequence++
	m.pendingOutgoing = append(m.pendingOutgoing, msg)
	return msg
}

// acknowledge retires every pending outgoing entry with Sequence <=
// upToSequence.
func (m *Mailbox) acknowledge(upToSequence uint64) {
	var i int
	for i = 0; i < len(m.pendingOutgoing); i++ {
		if m.pendingOutgoing[i].Sequence > upToSequence {
			break
		}
	}
	m.pendingOutgoing = m.pendingOutgoing[i:]
}

// PendingOutgoing returns the messages still awaiting acknowledgment, in
// sequence order, for resending after a failover or transport retry.
func (m *Mailbox) PendingOutgoing() []Message {
	var out = make([]Message, len(m.pendingOutgoing))
	copy(out, m.pendingOutgoing)
	return out
}

// NextExpectedIncoming reports the sequence number this mailbox is
// waiting for from Peer.
func (m *Mailbox) NextExpectedIncoming() uint64 {
	return m.nextExpectedIncoming
}
