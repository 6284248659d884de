package supervisor

import (
	"context"
	"os"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/hiveprotocol/hive/go/hiveid"
	"github.com/hiveprotocol/hive/go/hivepb"
	"github.com/hiveprotocol/hive/go/mailbox"
	"github.com/hiveprotocol/hive/go/replicatedlog"
	"github.com/hiveprotocol/hive/go/timestamp"
	"github.com/hiveprotocol/hive/go/txnmanager/fake"
)

// cellFixture wires one cell's replicated log, mailbox manager and
// supervisor together for in-process tests; its mailbox Sender is
// replaced by a direct call into the peer's Manager.ReceiveMessages to
// avoid standing up real gRPC servers.
type cellFixture struct {
	id   hiveid.CellId
	log  *replicatedlog.Log
	mgr  *mailbox.Manager
	sup  *Supervisor
	fake *fake.Manager
}

func newCellFixture(t *testing.T, id hiveid.CellId) *cellFixture {
	t.Helper()
	var dir = t.TempDir()
	var entry = log.NewEntry(log.New())
	entry.Logger.SetOutput(os.Stderr)

	var l, err = replicatedlog.Open(dir, entry)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	l.BecomeLeader()

	var fakeMgr = fake.New()
	var cf = &cellFixture{id: id, log: l, fake: fakeMgr}
	cf.mgr = mailbox.NewManager(id, cf, entry)
	cf.sup = New(id, l, fakeMgr, timestamp.NewMonotonicClock(), cf.mgr, entry)
	return cf
}

// Dispatch satisfies mailbox.Dispatcher by forwarding to the supervisor,
// which proposes the mutation on this cell's own log.
func (c *cellFixture) Dispatch(sender hiveid.CellId, payloadType string, payload []byte) {
	c.sup.Dispatch(sender, payloadType, payload)
}

// wirePeer makes every message c posts to peer.id land directly on
// peer's Manager, standing in for the gRPC mailbox.Sender/Server pair.
func wirePeer(c, peer *cellFixture) {
	go func() {
		var last uint64
		var ticker = time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			var pending = c.mgr.GetOrCreateMailbox(peer.id).PendingOutgoing()
			var fresh []mailbox.Message
			for _, m := range pending {
				if m.Sequence >= last {
					fresh = append(fresh, m)
				}
			}
			if len(fresh) == 0 {
				continue
			}
			var next = peer.mgr.ReceiveMessages(c.id, fresh)
			c.mgr.AcknowledgeMessages(peer.id, next-1)
			last = next
		}
	}()
}

func TestSimpleCommitHappyPath(t *testing.T) {
	var cellID = hiveid.NewCellId(hiveid.CellTagTablet)
	var cell = newCellFixture(t, cellID)

	var txID = hiveid.NewTransactionId(hiveid.Timestamp(1), 1)
	var resp, err = cell.sup.CommitTransaction(context.Background(), &hivepb.CommitTransactionRequest{
		TransactionIdHi: txID.Hi,
		TransactionIdLo: txID.Lo,
	})
	require.NoError(t, err)
	require.Greater(t, resp.CommitTimestamp, uint64(0))
	require.True(t, cell.fake.Committed(txID))
}

func TestDistributedCommitHappyPath(t *testing.T) {
	var coordID = hiveid.NewCellId(hiveid.CellTagTablet)
	var participantID = hiveid.NewCellId(hiveid.CellTagTablet)

	var coordinator = newCellFixture(t, coordID)
	var participant = newCellFixture(t, participantID)

	wirePeer(coordinator, participant)
	wirePeer(participant, coordinator)

	var txID = hiveid.NewTransactionId(hiveid.Timestamp(1), 1)
	var req = &hivepb.CommitTransactionRequest{
		TransactionIdHi:    txID.Hi,
		TransactionIdLo:    txID.Lo,
		ParticipantCellIds: []uint64{participantID.Hi},
		ParticipantCellLos: []uint64{participantID.Lo},
	}

	var done = make(chan struct{})
	var resp *hivepb.CommitTransactionResponse
	var callErr error
	go func() {
		resp, callErr = coordinator.sup.CommitTransaction(context.Background(), req)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("distributed commit did not complete in time")
	}

	require.NoError(t, callErr)
	require.Greater(t, resp.CommitTimestamp, uint64(0))
	require.True(t, coordinator.fake.Committed(txID))
	// The coordinator replies once CommitPreparedTransaction is posted to
	// the participant's mailbox; delivery to the participant is
	// asynchronous.
	require.Eventually(t, func() bool { return participant.fake.Committed(txID) },
		5*time.Second, time.Millisecond)
}

func TestDistributedCommitParticipantRejectsPrepare(t *testing.T) {
	var coordID = hiveid.NewCellId(hiveid.CellTagTablet)
	var participantID = hiveid.NewCellId(hiveid.CellTagTablet)

	var coordinator = newCellFixture(t, coordID)
	var participant = newCellFixture(t, participantID)
	participant.fake.RejectPrepare = func(hiveid.TransactionId) error {
		return context.DeadlineExceeded
	}

	wirePeer(coordinator, participant)
	wirePeer(participant, coordinator)

	var txID = hiveid.NewTransactionId(hiveid.Timestamp(1), 1)
	var req = &hivepb.CommitTransactionRequest{
		TransactionIdHi:    txID.Hi,
		TransactionIdLo:    txID.Lo,
		ParticipantCellIds: []uint64{participantID.Hi},
		ParticipantCellLos: []uint64{participantID.Lo},
	}

	var done = make(chan struct{})
	var callErr error
	go func() {
		_, callErr = coordinator.sup.CommitTransaction(context.Background(), req)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("commit did not resolve in time")
	}

	require.Error(t, callErr)
	require.False(t, coordinator.fake.Committed(txID))
}
