// Package commit implements the commit registry (spec.md §4.2, component
// C2): the in-memory (plus, for distributed commits, persisted) map of
// in-flight commits, each holding its own small state machine and the
// client's response promise.
package commit

import (
	"github.com/hiveprotocol/hive/go/hiveid"
)

// State is the commit's state machine (spec.md §3, §4.4). transient and
// persistent fields share this type; transient ⊇ persistent (GenerateCommitTimestamp
// and Finish are transient-only).
type State int

const (
	StateStart State = iota
	StatePrepare
	StateGenerateCommitTimestamp // transient only
	StateCommit
	StateAbort
	StateFinish // transient only
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "Start"
	case StatePrepare:
		return "Prepare"
	case StateGenerateCommitTimestamp:
		return "GenerateCommitTimestamp"
	case StateCommit:
		return "Commit"
	case StateAbort:
		return "Abort"
	case StateFinish:
		return "Finish"
	default:
		return "Unknown"
	}
}

// Commit is the C2 entity described in spec.md §3. A simple commit has an
// empty ParticipantCellIds; IsDistributed reports the opposite.
type Commit struct {
	TransactionId      hiveid.TransactionId
	MutationId         hiveid.MutationId
	ParticipantCellIds []hiveid.CellId

	CommitTimestamp hiveid.Timestamp

	TransientState  State
	PersistentState State

	RespondedCellIds map[hiveid.CellId]struct{}

	// Persistent is true once this commit has been journaled on the
	// coordinator (distributed commits only; spec.md §3 invariant: "A
	// simple commit never appears in the persisted map").
	Persistent bool

	response *Promise
}

// New constructs a fresh commit in the Start state with its response
// promise ready to be awaited or resolved.
func New(txID hiveid.TransactionId, mutationID hiveid.MutationId, participants []hiveid.CellId) *Commit {
	return &Commit{
		TransactionId:      txID,
		MutationId:         mutationID,
		ParticipantCellIds: participants,
		TransientState:     StateStart,
		PersistentState:    StateStart,
		RespondedCellIds:   make(map[hiveid.CellId]struct{}),
		response:           NewPromise(),
	}
}

// IsDistributed reports whether this commit has any participants, per
// spec.md §3: "participant_cell_ids (set; empty ⇒ simple commit)".
func (c *Commit) IsDistributed() bool {
	return len(c.ParticipantCellIds) > 0
}

// Response returns the commit's single-shot response promise.
func (c *Commit) Response() *Promise {
	return c.response
}

// MarkResponded inserts cellId into RespondedCellIds and reports whether
// every participant has now responded (spec.md §4.4.2 step 4).
func (c *Commit) MarkResponded(cellId hiveid.CellId) (allResponded bool) {
	c.RespondedCellIds[cellId] = struct{}{}
	return len(c.RespondedCellIds) == len(c.ParticipantCellIds)
}
