// Package supervisor implements the two-phase commit engine (spec.md
// §4.4, component C4): the per-cell automaton that drives simple and
// distributed commits to completion by combining the commit registry
// (go/commit), the mailbox layer (go/mailbox), the transaction-manager
// adapter (go/txnmanager) and the timestamp provider (go/timestamp) on
// top of one replicated log (go/replicatedlog) per cell.
package supervisor

import (
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/hiveprotocol/hive/go/commit"
	"github.com/hiveprotocol/hive/go/hiveid"
	"github.com/hiveprotocol/hive/go/mailbox"
	"github.com/hiveprotocol/hive/go/replicatedlog"
	"github.com/hiveprotocol/hive/go/timestamp"
	"github.com/hiveprotocol/hive/go/txnmanager"
)

// Payload type tags carried in mailbox.Message.PayloadType and used as
// the replicatedlog.Log mutation tag for each hivepb message (spec.md
// §6's "the following mutations are applied to the replicated log").
const (
	tagStartDistributedCommit   = "StartDistributedCommit"
	tagPrepareTransactionCommit = "PrepareTransactionCommit"
	tagOnCommitPrepared         = "OnTransactionCommitPrepared"
	tagCommitPreparedTxn        = "CommitPreparedTransaction"
	tagAbortFailedTxn           = "AbortFailedTransaction"
	tagFinalizeDistributedCmt   = "FinalizeDistributedCommit"
)

// Supervisor is the C4 engine for a single cell.
type Supervisor struct {
	self     hiveid.CellId
	log      *replicatedlog.Log
	registry *commit.Registry
	txnMgr   txnmanager.Manager
	clock    timestamp.Provider
	mailMgr  *mailbox.Manager
	metrics  *metrics
	logger   *log.Entry
}

// New wires a Supervisor for cell self. mailMgr's Dispatcher must route
// back into this Supervisor's mutation handlers (see Dispatch below).
// Since New takes an already-built Manager, callers give the Manager a
// forwarding Dispatcher and point it at the Supervisor once New returns.
func New(self hiveid.CellId, replicated *replicatedlog.Log, txnMgr txnmanager.Manager, clock timestamp.Provider, mailMgr *mailbox.Manager, logger *log.Entry) *Supervisor {
	var s = &Supervisor{
		self:     self,
		log:      replicated,
		registry: commit.NewRegistry(),
		txnMgr:   txnMgr,
		clock:    clock,
		mailMgr:  mailMgr,
		metrics:  newMetrics(),
		logger:   logger,
	}
	s.registerMutationHandlers()
	s.registerSnapshot()
	replicated.OnLeaderActive(s.onLeaderActive)
	replicated.OnStopLeading(s.onStopLeading)
	return s
}

// MustRegister registers this Supervisor's metrics with reg.
func (s *Supervisor) MustRegister(reg prometheus.Registerer) {
	s.metrics.MustRegister(reg)
}

// Dispatch implements mailbox.Dispatcher: it applies an inbound message
// as the replicated mutation it carries, by proposing it on this cell's
// log under the message's payload type tag (spec.md §4.1: "executes the
// message's handler ... applies a Hydra-replicated Prepare/Commit/Abort
// mutation").
func (s *Supervisor) Dispatch(sender hiveid.CellId, payloadType string, payload []byte) {
	if err := s.log.ProposeMutation(payloadType, payload); err != nil {
		s.logger.WithFields(log.Fields{
			"sender":  sender.String(),
			"payload": payloadType,
			"error":   err,
		}).Error("failed to apply inbound mailbox mutation")
	}
}

func (s *Supervisor) registerMutationHandlers() {
	s.log.RegisterMutationHandler(tagStartDistributedCommit, s.applyStartDistributedCommit)
	s.log.RegisterMutationHandler(tagPrepareTransactionCommit, s.applyPrepareTransactionCommit)
	s.log.RegisterMutationHandler(tagOnCommitPrepared, s.applyOnTransactionCommitPrepared)
	s.log.RegisterMutationHandler(tagCommitPreparedTxn, s.applyCommitPreparedTransaction)
	s.log.RegisterMutationHandler(tagAbortFailedTxn, s.applyAbortFailedTransaction)
	s.log.RegisterMutationHandler(tagFinalizeDistributedCmt, s.applyFinalizeDistributedCommit)
}

// onLeaderActive re-enters the "request timestamp" step for every
// distributed commit whose participants have all responded but which
// never reached the second phase on the previous leader (spec.md
// §4.4.4). Simple commits are never recovered: simple_commits starts
// empty on every new leader.
func (s *Supervisor) onLeaderActive() {
	for _, c := range s.registry.Distributed() {
		if c.PersistentState == commit.StatePrepare {
			if allResponded := len(c.RespondedCellIds) == len(c.ParticipantCellIds); allResponded {
				s.beginSecondPhase(c)
			}
		}
	}
}

// onStopLeading discards simple_commits (spec.md §4.4.4: "simple_commits
// is empty" after a failover) and resolves their promises with a
// transport failure so blocked clients don't hang forever.
func (s *Supervisor) onStopLeading() {
	for _, c := range s.registry.SimpleSnapshot() {
		c.Response().Resolve(nil, errStoppedLeading)
	}
	s.registry.ClearSimple()
}
