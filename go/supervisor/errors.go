package supervisor

import "github.com/pkg/errors"

// errStoppedLeading resolves any simple commit's client promise when the
// local cell steps down before the commit could finish (spec.md §4.4.4).
var errStoppedLeading = errors.New("cell stopped leading before commit finished")

// errNotLeader is returned by CommitTransaction when a distributed
// commit is requested on a follower, matching spec.md §4.4.2's "the
// coordinator must be a leader to originate one."
var errNotLeader = errors.New("cell is not the leader")

// errAbortedByClient resolves a commit's promise when its transaction is
// aborted out from under it by a concurrent AbortTransaction RPC.
var errAbortedByClient = errors.New("transaction aborted by client request")
