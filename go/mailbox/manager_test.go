package mailbox

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hiveprotocol/hive/go/hiveid"
)

type recordingDispatcher struct {
	applied []Message
}

func (d *recordingDispatcher) Dispatch(sender hiveid.CellId, payloadType string, payload []byte) {
	d.applied = append(d.applied, Message{PayloadType: payloadType, Payload: payload})
}

func TestPostMessageAssignsSequenceAndManagerAppliesInOrder(t *testing.T) {
	var selfID = hiveid.NewCellId(hiveid.CellTagTablet)
	var peerID = hiveid.NewCellId(hiveid.CellTagTablet)

	var producerDispatcher = &recordingDispatcher{}
	var producer = NewManager(selfID, producerDispatcher, nil)

	var m0 = producer.PostMessage(peerID, "Prepare", []byte("a"))
	var m1 = producer.PostMessage(peerID, "Commit", []byte("b"))

	require.Equal(t, uint64(0), m0.Sequence)
	require.Equal(t, uint64(1), m1.Sequence)

	var consumerDispatcher = &recordingDispatcher{}
	var consumer = NewManager(peerID, consumerDispatcher, nil)

	// Deliver out of order: m1 before m0.
	var next = consumer.ReceiveMessages(selfID, []Message{m1})
	require.Equal(t, uint64(0), next, "m1 must be buffered, not applied, until m0 arrives")
	require.Empty(t, consumerDispatcher.applied)

	next = consumer.ReceiveMessages(selfID, []Message{m0})
	require.Equal(t, uint64(2), next)
	require.Equal(t, []Message{
		{PayloadType: "Prepare", Payload: []byte("a")},
		{PayloadType: "Commit", Payload: []byte("b")},
	}, consumerDispatcher.applied)
}

func TestReceiveMessagesIgnoresDuplicates(t *testing.T) {
	var selfID = hiveid.NewCellId(hiveid.CellTagTablet)
	var peerID = hiveid.NewCellId(hiveid.CellTagTablet)

	var d = &recordingDispatcher{}
	var mgr = NewManager(peerID, d, nil)

	var msg = Message{Sequence: 0, PayloadType: "Prepare", Payload: []byte("a")}
	mgr.ReceiveMessages(selfID, []Message{msg})
	mgr.ReceiveMessages(selfID, []Message{msg})

	require.Len(t, d.applied, 1)
}

func TestAcknowledgeMessagesRetiresPending(t *testing.T) {
	var selfID = hiveid.NewCellId(hiveid.CellTagTablet)
	var peerID = hiveid.NewCellId(hiveid.CellTagTablet)

	var mgr = NewManager(selfID, &recordingDispatcher{}, nil)
	mgr.PostMessage(peerID, "Prepare", []byte("a"))
	mgr.PostMessage(peerID, "Commit", []byte("b"))

	mgr.AcknowledgeMessages(peerID, 0)
	require.Len(t, mgr.GetOrCreateMailbox(peerID).PendingOutgoing(), 1)

	mgr.AcknowledgeMessages(peerID, 1)
	require.Empty(t, mgr.GetOrCreateMailbox(peerID).PendingOutgoing())
}
