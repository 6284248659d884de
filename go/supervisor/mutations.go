package supervisor

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/hiveprotocol/hive/go/commit"
	"github.com/hiveprotocol/hive/go/hiveid"
	"github.com/hiveprotocol/hive/go/hivepb"
)

// These handlers are registered with the cell's replicatedlog.Log and
// run on its single-goroutine automaton (spec.md §5). They must never
// block: asynchronous work (timestamp generation) is kicked off in its
// own goroutine and its result is fed back in with another
// ProposeMutation call, never awaited here directly.

func decodeCellIds(his, los []uint64) []hiveid.CellId {
	var out = make([]hiveid.CellId, len(his))
	for i := range his {
		out[i] = hiveid.CellId{Hi: his[i], Lo: los[i]}
	}
	return out
}

func (s *Supervisor) logEntry(txID hiveid.TransactionId) *log.Entry {
	return s.logger.WithField("transaction_id", txID.String())
}

// debugUnlessRecovering logs msg at debug level, suppressing it entirely
// during recovery replay (the original's LOG_DEBUG_UNLESS(IsRecovery(), ...)):
// replaying the log on leader takeover re-applies every mutation since the
// last snapshot, so a failure logged once when the mutation was first
// applied would otherwise be logged again, at the same level, on every
// subsequent replay.
func (s *Supervisor) debugUnlessRecovering(txID hiveid.TransactionId, recovering bool, err error, msg string) {
	if recovering {
		return
	}
	s.logEntry(txID).WithField("error", err).Debug(msg)
}

// applyStartDistributedCommit implements spec.md §4.4.2 step 3: creates
// the persistent commit, prepares locally, and fans PrepareTransactionCommit
// out to every participant.
func (s *Supervisor) applyStartDistributedCommit(payload []byte, recovering bool) {
	var m hivepb.StartDistributedCommit
	if err := hivepb.Unmarshal(payload, &m); err != nil {
		s.logger.WithField("error", err).Error("corrupt StartDistributedCommit mutation")
		return
	}
	var txID = hiveid.TransactionId{Hi: m.TransactionIdHi, Lo: m.TransactionIdLo}
	var mutationID = hiveid.MutationId{Hi: m.MutationIdHi, Lo: m.MutationIdLo}
	var participants = decodeCellIds(m.ParticipantCellHis, m.ParticipantCellLos)
	var prepareTs = hiveid.Timestamp(m.PrepareTimestamp)

	if s.registry.FindDistributed(txID) != nil {
		return // already applied (replay or duplicate mutation)
	}

	var c = commit.New(txID, mutationID, participants)
	c.TransientState = commit.StatePrepare
	c.PersistentState = commit.StatePrepare
	s.registry.InsertDistributed(c)
	s.metrics.started.Inc()
	s.metrics.inFlight.Inc()

	if err := s.txnMgr.PrepareCommit(txID, true, prepareTs); err != nil {
		s.debugUnlessRecovering(txID, recovering, err, "local prepare failed for distributed commit")
		s.failDistributed(c, err)
		return
	}

	for _, p := range participants {
		var req = hivepb.PrepareTransactionCommit{
			TransactionIdHi:     txID.Hi,
			TransactionIdLo:     txID.Lo,
			PrepareTimestamp:    uint64(prepareTs),
			CoordinatorCellIdHi: s.self.Hi,
			CoordinatorCellIdLo: s.self.Lo,
		}
		var b, _ = hivepb.Marshal(&req)
		s.mailMgr.PostMessage(p, tagPrepareTransactionCommit, b)
	}
}

// applyPrepareTransactionCommit implements spec.md §4.4.3: a
// participant's reaction to the coordinator's prepare fan-out.
func (s *Supervisor) applyPrepareTransactionCommit(payload []byte, recovering bool) {
	var m hivepb.PrepareTransactionCommit
	if err := hivepb.Unmarshal(payload, &m); err != nil {
		s.logger.WithField("error", err).Error("corrupt PrepareTransactionCommit mutation")
		return
	}
	var txID = hiveid.TransactionId{Hi: m.TransactionIdHi, Lo: m.TransactionIdLo}
	var coordinator = hiveid.CellId{Hi: m.CoordinatorCellIdHi, Lo: m.CoordinatorCellIdLo}

	var resp = hivepb.OnTransactionCommitPrepared{
		TransactionIdHi:     txID.Hi,
		TransactionIdLo:     txID.Lo,
		ParticipantCellIdHi: s.self.Hi,
		ParticipantCellIdLo: s.self.Lo,
	}
	if err := s.txnMgr.PrepareCommit(txID, true, hiveid.Timestamp(m.PrepareTimestamp)); err != nil {
		resp.HasError = true
		resp.ErrorMessage = err.Error()
		s.debugUnlessRecovering(txID, recovering, err, "participant prepare failed")
	}
	var b, _ = hivepb.Marshal(&resp)
	s.mailMgr.PostMessage(coordinator, tagOnCommitPrepared, b)
}

// applyOnTransactionCommitPrepared implements spec.md §4.4.2 step 4.
func (s *Supervisor) applyOnTransactionCommitPrepared(payload []byte, recovering bool) {
	var m hivepb.OnTransactionCommitPrepared
	if err := hivepb.Unmarshal(payload, &m); err != nil {
		s.logger.WithField("error", err).Error("corrupt OnTransactionCommitPrepared mutation")
		return
	}
	var txID = hiveid.TransactionId{Hi: m.TransactionIdHi, Lo: m.TransactionIdLo}
	var participant = hiveid.CellId{Hi: m.ParticipantCellIdHi, Lo: m.ParticipantCellIdLo}

	var c = s.registry.FindDistributed(txID)
	if c == nil {
		return // commit already finished or aborted; a late/duplicate response
	}
	if m.HasError {
		s.failDistributed(c, fmt.Errorf("participant %s: %s", participant.String(), m.ErrorMessage))
		return
	}
	if allResponded := c.MarkResponded(participant); allResponded && s.log.IsLeader() {
		s.beginSecondPhase(c)
	}
}

// beginSecondPhase requests a commit timestamp and, on success, proposes
// the FinalizeDistributedCommit mutation (spec.md §4.4.2 step 5). The
// timestamp request runs off the automaton goroutine so it never blocks
// other mutations.
func (s *Supervisor) beginSecondPhase(c *commit.Commit) {
	go func() {
		var ts, err = s.clock.GenerateTimestamps(context.Background())
		if err != nil {
			s.log.Executor().Run(func() { s.failDistributed(c, err) })
			return
		}
		var m = hivepb.FinalizeDistributedCommit{
			TransactionIdHi: c.TransactionId.Hi,
			TransactionIdLo: c.TransactionId.Lo,
			CommitTimestamp: uint64(ts),
		}
		var b, _ = hivepb.Marshal(&m)
		s.log.Executor().Run(func() {
			if err := s.log.ProposeMutation(tagFinalizeDistributedCmt, b); err != nil {
				s.logger.WithField("error", err).Error("failed to propose FinalizeDistributedCommit")
			}
		})
	}()
}

// applyFinalizeDistributedCommit implements spec.md §4.4.2 step 6.
func (s *Supervisor) applyFinalizeDistributedCommit(payload []byte, recovering bool) {
	var m hivepb.FinalizeDistributedCommit
	if err := hivepb.Unmarshal(payload, &m); err != nil {
		s.logger.WithField("error", err).Error("corrupt FinalizeDistributedCommit mutation")
		return
	}
	var txID = hiveid.TransactionId{Hi: m.TransactionIdHi, Lo: m.TransactionIdLo}
	var ts = hiveid.Timestamp(m.CommitTimestamp)

	var c = s.registry.FindDistributed(txID)
	if c == nil {
		return
	}
	c.PersistentState = commit.StateCommit
	c.CommitTimestamp = ts

	// Post-prepare commit failure is fatal: the adapter's contract
	// (spec.md §4.3) forbids it.
	if err := s.txnMgr.CommitTransaction(txID, ts); err != nil {
		s.logger.WithFields(log.Fields{"transaction_id": txID.String(), "error": err}).
			Fatal("transaction manager rejected commit after successful prepare")
	}

	for _, p := range c.ParticipantCellIds {
		var msg = hivepb.CommitPreparedTransaction{
			TransactionIdHi: txID.Hi,
			TransactionIdLo: txID.Lo,
			CommitTimestamp: uint64(ts),
			IsDistributed:   true,
		}
		var b, _ = hivepb.Marshal(&msg)
		s.mailMgr.PostMessage(p, tagCommitPreparedTxn, b)
	}

	s.resolveAndRemove(c, nil)
}

// applyCommitPreparedTransaction implements spec.md §4.4.1 step 5 (simple
// commit, same cell) and §4.4.3 (participant of a distributed commit —
// which keeps no commit object of its own).
func (s *Supervisor) applyCommitPreparedTransaction(payload []byte, recovering bool) {
	var m hivepb.CommitPreparedTransaction
	if err := hivepb.Unmarshal(payload, &m); err != nil {
		s.logger.WithField("error", err).Error("corrupt CommitPreparedTransaction mutation")
		return
	}
	var txID = hiveid.TransactionId{Hi: m.TransactionIdHi, Lo: m.TransactionIdLo}
	var ts = hiveid.Timestamp(m.CommitTimestamp)

	if c := s.registry.FindSimple(txID); c != nil {
		if err := s.txnMgr.CommitTransaction(txID, ts); err != nil {
			s.logger.WithFields(log.Fields{"transaction_id": txID.String(), "error": err}).
				Fatal("transaction manager rejected commit after successful prepare")
		}
		s.resolveAndRemove(c, nil)
		return
	}

	// Participant path: no locally tracked commit object.
	if err := s.txnMgr.CommitTransaction(txID, ts); err != nil {
		s.logger.WithFields(log.Fields{"transaction_id": txID.String(), "error": err}).
			Fatal("transaction manager rejected commit after successful prepare")
	}
}

// applyAbortFailedTransaction implements spec.md §4.4.5's prepare-failure
// path: abort locally (swallowing any adapter error) and, on the
// coordinator, fan the abort out to every participant.
func (s *Supervisor) applyAbortFailedTransaction(payload []byte, recovering bool) {
	var m hivepb.AbortFailedTransaction
	if err := hivepb.Unmarshal(payload, &m); err != nil {
		s.logger.WithField("error", err).Error("corrupt AbortFailedTransaction mutation")
		return
	}
	var txID = hiveid.TransactionId{Hi: m.TransactionIdHi, Lo: m.TransactionIdLo}

	if err := s.txnMgr.AbortTransaction(txID, true); err != nil {
		s.debugUnlessRecovering(txID, recovering, err, "abort adapter call failed, ignoring")
	}

	var c = s.registry.Find(txID)
	if c == nil {
		return
	}
	if c.IsDistributed() && s.log.IsLeader() {
		for _, p := range c.ParticipantCellIds {
			var msg = hivepb.AbortFailedTransaction{TransactionIdHi: txID.Hi, TransactionIdLo: txID.Lo, ErrorMessage: m.ErrorMessage}
			var b, _ = hivepb.Marshal(&msg)
			s.mailMgr.PostMessage(p, tagAbortFailedTxn, b)
		}
	}
	s.resolveAndRemove(c, fmt.Errorf("%s", m.ErrorMessage))
}

// failDistributed proposes the AbortFailedTransaction mutation that
// unwinds a distributed commit after a local or remote prepare failure.
func (s *Supervisor) failDistributed(c *commit.Commit, cause error) {
	var msg = hivepb.AbortFailedTransaction{
		TransactionIdHi: c.TransactionId.Hi,
		TransactionIdLo: c.TransactionId.Lo,
		ErrorMessage:    cause.Error(),
	}
	var b, _ = hivepb.Marshal(&msg)
	if err := s.log.ProposeMutation(tagAbortFailedTxn, b); err != nil {
		s.logger.WithField("error", err).Error("failed to propose AbortFailedTransaction")
	}
}

// resolveAndRemove resolves c's client response promise and deletes it
// from the registry: with failure when failure is non-nil, otherwise
// with a CommitTransactionResponse carrying c.CommitTimestamp (also kept
// for replay when c has a mutation id).
func (s *Supervisor) resolveAndRemove(c *commit.Commit, failure error) {
	if failure != nil {
		c.Response().Resolve(nil, failure)
		s.registry.Remove(c)
		s.metrics.finished.WithLabelValues("aborted").Inc()
		s.metrics.inFlight.Dec()
		return
	}
	var resp = hivepb.CommitTransactionResponse{CommitTimestamp: uint64(c.CommitTimestamp)}
	var b, _ = hivepb.Marshal(&resp)
	if !c.MutationId.IsNull() {
		s.log.RegisterKeptResponse(c.MutationId, b)
	}
	c.Response().Resolve(b, nil)
	s.registry.Remove(c)
	s.metrics.finished.WithLabelValues("committed").Inc()
	s.metrics.inFlight.Dec()
}
