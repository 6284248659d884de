package supervisor

import (
	"context"
	"errors"

	"github.com/hiveprotocol/hive/go/commit"
	"github.com/hiveprotocol/hive/go/hiveid"
	"github.com/hiveprotocol/hive/go/hivepb"
	"github.com/hiveprotocol/hive/go/txnmanager"
)

// StartTransaction registers the local cell as a participant in a
// client's tablet transaction (spec.md §4.5's AddTabletParticipant). The
// coordinator adapter (C3) has no locking/reservation concept in scope
// (spec.md §1), so this is a pure liveness acknowledgment: returning
// successfully tells the client this cell will honor a later
// PrepareTransactionCommit for transactionId.
func (s *Supervisor) StartTransaction(ctx context.Context, req *hivepb.StartTransactionRequest) (*hivepb.StartTransactionResponse, error) {
	if !s.log.IsLeader() {
		return nil, errNotLeader
	}
	return &hivepb.StartTransactionResponse{}, nil
}

// CommitTransaction implements the client-facing RPC (spec.md §4.4.1 and
// §4.4.2's entry points), dispatching to a simple or distributed commit
// depending on whether participant cells were supplied.
func (s *Supervisor) CommitTransaction(ctx context.Context, req *hivepb.CommitTransactionRequest) (*hivepb.CommitTransactionResponse, error) {
	var txID = hiveid.TransactionId{Hi: req.TransactionIdHi, Lo: req.TransactionIdLo}
	var mutationID = hiveid.MutationId{Hi: req.MutationIdHi, Lo: req.MutationIdLo}
	var participants = decodeCellIds(req.ParticipantCellIds, req.ParticipantCellLos)

	var existingOrNew *commitHandle
	s.log.Executor().Run(func() {
		existingOrNew = s.beginOrAttachCommit(txID, mutationID, participants)
	})

	if existingOrNew.notLeader {
		return nil, errNotLeader
	}
	if existingOrNew.keptResponse != nil {
		var resp hivepb.CommitTransactionResponse
		if err := hivepb.Unmarshal(existingOrNew.keptResponse, &resp); err != nil {
			return nil, err
		}
		return &resp, nil
	}

	var respBytes, err = existingOrNew.commit.Response().Wait()
	if err != nil {
		return nil, err
	}
	var resp hivepb.CommitTransactionResponse
	if err := hivepb.Unmarshal(respBytes, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// commitHandle is the outcome of dispatching a CommitTransaction call:
// exactly one of keptResponse, commit, or notLeader is set.
type commitHandle struct {
	keptResponse []byte
	commit       *commit.Commit
	notLeader    bool
}

func (s *Supervisor) beginOrAttachCommit(txID hiveid.TransactionId, mutationID hiveid.MutationId, participants []hiveid.CellId) *commitHandle {
	if !mutationID.IsNull() {
		if kept, ok := s.log.FindKeptResponse(mutationID); ok {
			return &commitHandle{keptResponse: kept}
		}
	}
	if existing := s.registry.Find(txID); existing != nil {
		return &commitHandle{commit: existing}
	}
	if len(participants) == 0 {
		return &commitHandle{commit: s.startSimpleCommit(txID, mutationID)}
	}
	if !s.log.IsLeader() {
		return &commitHandle{notLeader: true}
	}
	var c = s.startDistributedCommit(txID, mutationID, participants)
	if c == nil {
		return &commitHandle{notLeader: true}
	}
	return &commitHandle{commit: c}
}

// AbortTransaction implements the client-facing abort RPC by invoking
// C3 directly and, if a commit for this transaction is in flight,
// unblocking its client with a failure (spec.md §4.3: idempotent).
func (s *Supervisor) AbortTransaction(ctx context.Context, req *hivepb.AbortTransactionRequest) (*hivepb.AbortTransactionResponse, error) {
	var txID = hiveid.TransactionId{Hi: req.TransactionIdHi, Lo: req.TransactionIdLo}
	var callErr error
	s.log.Executor().Run(func() {
		callErr = s.txnMgr.AbortTransaction(txID, req.Force)
		if c := s.registry.Find(txID); c != nil {
			c.Response().Resolve(nil, errAbortedByClient)
			s.registry.Remove(c)
		}
	})
	// A cell that has never heard of txID is already in the state Abort
	// asked for (spec.md §7: TransactionUnknown is not surfaced on
	// Abort, unlike Ping where it is the abort signal itself).
	if callErr != nil && !errors.Is(callErr, txnmanager.ErrTransactionUnknown) {
		return nil, callErr
	}
	return &hivepb.AbortTransactionResponse{}, nil
}

// PingTransaction implements the client-facing ping RPC (spec.md §4.3):
// a liveness probe that never touches the replicated log.
func (s *Supervisor) PingTransaction(ctx context.Context, req *hivepb.PingTransactionRequest) (*hivepb.PingTransactionResponse, error) {
	var txID = hiveid.TransactionId{Hi: req.TransactionIdHi, Lo: req.TransactionIdLo}
	var err error
	s.log.Executor().Run(func() {
		err = s.txnMgr.PingTransaction(txID, req.PingAncestors)
	})
	if err != nil {
		return nil, err
	}
	return &hivepb.PingTransactionResponse{}, nil
}

var _ hivepb.TransactionSupervisorServer = (*Supervisor)(nil)
