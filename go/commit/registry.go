package commit

import (
	"github.com/pkg/errors"

	"github.com/hiveprotocol/hive/go/hiveid"
)

// ErrAlreadyExists is returned by Insert when a commit for the same
// transaction id is already registered in either map, enforcing spec.md
// §3's invariant: "At most one commit object per transaction id at any
// cell at any time."
var ErrAlreadyExists = errors.New("commit already registered for this transaction id")

// Registry holds the two disjoint commit maps described in spec.md §4.2:
// simple (never persisted, discarded on step-down) and distributed
// (persisted as part of the coordinator cell's replicated state).
type Registry struct {
	simple      map[hiveid.TransactionId]*Commit
	distributed map[hiveid.TransactionId]*Commit
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		simple:      make(map[hiveid.TransactionId]*Commit),
		distributed: make(map[hiveid.TransactionId]*Commit),
	}
}

// Find scans both maps, per spec.md §4.2's Find(tx_id) API.
func (r *Registry) Find(txID hiveid.TransactionId) *Commit {
	if c, ok := r.distributed[txID]; ok {
		return c
	}
	if c, ok := r.simple[txID]; ok {
		return c
	}
	return nil
}

// FindDistributed looks up only the persisted map, used by mutation
// handlers that only ever apply to distributed commits.
func (r *Registry) FindDistributed(txID hiveid.TransactionId) *Commit {
	return r.distributed[txID]
}

// FindSimple looks up only the non-persisted map.
func (r *Registry) FindSimple(txID hiveid.TransactionId) *Commit {
	return r.simple[txID]
}

// InsertSimple registers a new non-persistent commit. The registries are
// disjoint by construction: callers must not have a distributed commit
// for the same id (enforced by the supervisor's dedup check before ever
// reaching here; this call panics on violation since it would indicate an
// engine bug, not a runtime condition).
func (r *Registry) InsertSimple(c *Commit) {
	if _, ok := r.distributed[c.TransactionId]; ok {
		panic("commit registry: simple commit collides with an existing distributed commit")
	}
	r.simple[c.TransactionId] = c
}

// InsertDistributed registers a new persistent commit.
func (r *Registry) InsertDistributed(c *Commit) {
	if _, ok := r.simple[c.TransactionId]; ok {
		panic("commit registry: distributed commit collides with an existing simple commit")
	}
	c.Persistent = true
	r.distributed[c.TransactionId] = c
}

// Remove deletes c from whichever map it belongs to, per spec.md §4.2:
// commits are destroyed on Finish or Abort.
func (r *Registry) Remove(c *Commit) {
	if c.IsDistributed() {
		delete(r.distributed, c.TransactionId)
	} else {
		delete(r.simple, c.TransactionId)
	}
}

// ClearSimple discards every simple commit, used when a cell steps down
// as leader (spec.md §4.4.4: "simple_commits is empty" after failover;
// §4.2: "never persisted, discarded on step-down").
func (r *Registry) ClearSimple() {
	r.simple = make(map[hiveid.TransactionId]*Commit)
}

// SimpleSnapshot returns every currently tracked simple commit, used when
// stepping down as leader to resolve their client promises before
// discarding them (spec.md §4.4.4).
func (r *Registry) SimpleSnapshot() []*Commit {
	var out = make([]*Commit, 0, len(r.simple))
	for _, c := range r.simple {
		out = append(out, c)
	}
	return out
}

// Distributed returns every currently tracked distributed commit, used by
// OnLeaderActive recovery (spec.md §4.4.4) to re-check second-phase-start
// for every commit still waiting on it.
func (r *Registry) Distributed() []*Commit {
	var out = make([]*Commit, 0, len(r.distributed))
	for _, c := range r.distributed {
		out = append(out, c)
	}
	return out
}

// Clear empties both maps, used when a cell's automaton part is reset
// (e.g. on log recovery startup).
func (r *Registry) Clear() {
	r.simple = make(map[hiveid.TransactionId]*Commit)
	r.distributed = make(map[hiveid.TransactionId]*Commit)
}
