package supervisor

import (
	"context"

	"github.com/hiveprotocol/hive/go/commit"
	"github.com/hiveprotocol/hive/go/hiveid"
	"github.com/hiveprotocol/hive/go/hivepb"
)

// startSimpleCommit implements spec.md §4.4.1 steps 2–4. It must be
// called from the automaton goroutine (i.e. from within
// s.log.Executor().Run).
func (s *Supervisor) startSimpleCommit(txID hiveid.TransactionId, mutationID hiveid.MutationId) *commit.Commit {
	var c = commit.New(txID, mutationID, nil)
	s.registry.InsertSimple(c)
	s.metrics.started.Inc()
	s.metrics.inFlight.Inc()

	c.TransientState = commit.StatePrepare
	if err := s.txnMgr.PrepareCommit(txID, false, s.clock.GetLatestTimestamp()); err != nil {
		s.failSimple(c, err)
		return c
	}

	go s.finishSimpleCommit(c)
	return c
}

// finishSimpleCommit implements spec.md §4.4.1 step 4: requests a commit
// timestamp off the automaton goroutine, then proposes the
// CommitPreparedTransaction mutation that finalizes it.
func (s *Supervisor) finishSimpleCommit(c *commit.Commit) {
	var ts, err = s.clock.GenerateTimestamps(context.Background())
	if err != nil {
		s.log.Executor().Run(func() { s.failSimple(c, err) })
		return
	}
	var m = hivepb.CommitPreparedTransaction{
		TransactionIdHi: c.TransactionId.Hi,
		TransactionIdLo: c.TransactionId.Lo,
		CommitTimestamp: uint64(ts),
		IsDistributed:   false,
	}
	var b, _ = hivepb.Marshal(&m)
	c.CommitTimestamp = ts
	s.log.Executor().Run(func() {
		if err := s.log.ProposeMutation(tagCommitPreparedTxn, b); err != nil {
			s.logger.WithField("error", err).Error("failed to propose CommitPreparedTransaction")
		}
	})
}

// failSimple unwinds a simple commit after a local prepare or timestamp
// failure (spec.md §4.4.5). Proposing AbortFailedTransaction synchronously
// resolves and removes the commit via applyAbortFailedTransaction.
func (s *Supervisor) failSimple(c *commit.Commit, cause error) {
	var m = hivepb.AbortFailedTransaction{
		TransactionIdHi: c.TransactionId.Hi,
		TransactionIdLo: c.TransactionId.Lo,
		ErrorMessage:    cause.Error(),
	}
	var b, _ = hivepb.Marshal(&m)
	if err := s.log.ProposeMutation(tagAbortFailedTxn, b); err != nil {
		s.logger.WithField("error", err).Error("failed to propose AbortFailedTransaction")
	}
}

// startDistributedCommit implements spec.md §4.4.2 steps 1–2: it logs
// StartDistributedCommit, whose application (applyStartDistributedCommit)
// creates the persistent commit object synchronously. Must be called
// from the automaton goroutine, and only when s.log.IsLeader().
func (s *Supervisor) startDistributedCommit(txID hiveid.TransactionId, mutationID hiveid.MutationId, participants []hiveid.CellId) *commit.Commit {
	var his = make([]uint64, len(participants))
	var los = make([]uint64, len(participants))
	for i, p := range participants {
		his[i], los[i] = p.Hi, p.Lo
	}
	var m = hivepb.StartDistributedCommit{
		TransactionIdHi:    txID.Hi,
		TransactionIdLo:    txID.Lo,
		MutationIdHi:       mutationID.Hi,
		MutationIdLo:       mutationID.Lo,
		ParticipantCellHis: his,
		ParticipantCellLos: los,
		PrepareTimestamp:   uint64(s.clock.GetLatestTimestamp()),
	}
	var b, _ = hivepb.Marshal(&m)
	if err := s.log.ProposeMutation(tagStartDistributedCommit, b); err != nil {
		s.logger.WithField("error", err).Error("failed to propose StartDistributedCommit")
		return nil
	}
	return s.registry.FindDistributed(txID)
}
