package celldirectory

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"

	"github.com/hiveprotocol/hive/go/hiveid"
)

// sessionTTLSeconds bounds how long a cell may hold leadership after its
// process stops renewing its etcd lease, before another replica is
// allowed to campaign successfully.
const sessionTTLSeconds = 10

// Election campaigns for leadership of one cell, publishing selfAddress
// to the cell's leader key for the duration of the term and invoking
// onElected/onStepDown the way a replicatedlog.Log expects to be driven
// (spec.md §4.4.4 ties all leader-change behavior to these two
// transitions).
type Election struct {
	client    *clientv3.Client
	prefix    string
	cellID    hiveid.CellId
	address   string
	logger    *log.Entry
	onElected func()
	onStep    func()
}

// NewElection returns an Election for cellID, publishing selfAddress
// once it wins.
func NewElection(client *clientv3.Client, prefix string, cellID hiveid.CellId, selfAddress string, logger *log.Entry, onElected, onStepDown func()) *Election {
	return &Election{
		client:    client,
		prefix:    prefix,
		cellID:    cellID,
		address:   selfAddress,
		logger:    logger,
		onElected: onElected,
		onStep:    onStepDown,
	}
}

// Run campaigns repeatedly until ctx is cancelled: on winning, it calls
// onElected, serves as leader until the session is lost (network
// partition, process exit, or ctx cancellation), calls onStepDown, and —
// if ctx is still live — campaigns again.
func (e *Election) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		if err := e.term(ctx); err != nil && ctx.Err() == nil {
			if e.logger != nil {
				e.logger.WithField("error", err).Warn("cell leader election session ended, retrying")
			}
		}
	}
	return ctx.Err()
}

func (e *Election) term(ctx context.Context) error {
	var session, err = concurrency.NewSession(e.client, concurrency.WithTTL(sessionTTLSeconds))
	if err != nil {
		return errors.Wrap(err, "creating etcd session")
	}
	defer session.Close()

	var election = concurrency.NewElection(session, e.prefix+"/"+e.cellID.String()+"/campaign")
	if err = election.Campaign(ctx, e.address); err != nil {
		return errors.Wrap(err, "campaigning for cell leadership")
	}

	if _, err = e.client.Put(ctx, e.prefix+"/"+e.cellID.String()+"/leader", e.address, clientv3.WithLease(session.Lease())); err != nil {
		return errors.Wrap(err, "publishing leader address")
	}

	e.onElected()
	defer e.onStep()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-session.Done():
		return errors.New("etcd session lost")
	}
}
