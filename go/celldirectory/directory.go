// Package celldirectory resolves a CellId to the gRPC address of its
// current leader, and runs the leader election each cell process uses to
// decide whether it is the one driving its replicatedlog.Log. Both are
// backed by etcd (go.etcd.io/etcd/client/v3), the analogue of the
// etcd-backed keyspace go.gazette.dev/core/allocator uses to resolve
// shard assignment.
package celldirectory

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/hiveprotocol/hive/go/hiveid"
)

// ErrNoLeader is returned by Resolve when no cell process currently
// holds the leader key for the requested cell. This is a transport-level
// condition, not the "mailbox for an unknown cell is not an error"
// invariant (spec.md §4.1) — that invariant concerns local mailbox
// creation, handled entirely within mailbox.Manager.
var ErrNoLeader = errors.New("no leader registered for cell")

// Directory resolves cells to addresses under a single etcd key prefix,
// one leader key per cell: "<prefix>/<cell-id>/leader".
type Directory struct {
	client *clientv3.Client
	prefix string
}

// New returns a Directory rooted at prefix (e.g. "/hive/cells").
func New(client *clientv3.Client, prefix string) *Directory {
	return &Directory{client: client, prefix: prefix}
}

func (d *Directory) leaderKey(cellID hiveid.CellId) string {
	return fmt.Sprintf("%s/%s/leader", d.prefix, cellID.String())
}

// Resolve returns the gRPC address the given cell's current leader is
// serving on, satisfying mailbox.Resolver.
func (d *Directory) Resolve(ctx context.Context, cellID hiveid.CellId) (string, error) {
	var resp, err = d.client.Get(ctx, d.leaderKey(cellID))
	if err != nil {
		return "", errors.Wrap(err, "etcd get leader key")
	}
	if len(resp.Kvs) == 0 {
		return "", ErrNoLeader
	}
	return string(resp.Kvs[0].Value), nil
}

// Watch streams address changes for cellID until ctx is cancelled,
// invoking onChange with the new address (or "" when the leader key is
// deleted) for every update. Nothing in this module calls it:
// mailbox.Sender only uses Resolve, so a peer failover is noticed on the
// next delivery attempt.
func (d *Directory) Watch(ctx context.Context, cellID hiveid.CellId, onChange func(address string)) {
	var watch = d.client.Watch(ctx, d.leaderKey(cellID))
	for resp := range watch {
		for _, ev := range resp.Events {
			if ev.Type == clientv3.EventTypeDelete {
				onChange("")
			} else {
				onChange(string(ev.Kv.Value))
			}
		}
	}
}
