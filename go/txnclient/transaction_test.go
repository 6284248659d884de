package txnclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"github.com/hiveprotocol/hive/go/hiveid"
	"github.com/hiveprotocol/hive/go/hivepb"
)

// stubClient is a minimal in-memory hivepb.TransactionSupervisorClient
// for exercising the façade without a real gRPC server.
type stubClient struct {
	commitTimestamp uint64
	commitErr       error
	aborted         bool
	pinged          bool
	started         bool
}

func (c *stubClient) StartTransaction(ctx context.Context, in *hivepb.StartTransactionRequest, opts ...grpc.CallOption) (*hivepb.StartTransactionResponse, error) {
	c.started = true
	return &hivepb.StartTransactionResponse{}, nil
}

func (c *stubClient) CommitTransaction(ctx context.Context, in *hivepb.CommitTransactionRequest, opts ...grpc.CallOption) (*hivepb.CommitTransactionResponse, error) {
	if c.commitErr != nil {
		return nil, c.commitErr
	}
	return &hivepb.CommitTransactionResponse{CommitTimestamp: c.commitTimestamp}, nil
}

func (c *stubClient) AbortTransaction(ctx context.Context, in *hivepb.AbortTransactionRequest, opts ...grpc.CallOption) (*hivepb.AbortTransactionResponse, error) {
	c.aborted = true
	return &hivepb.AbortTransactionResponse{}, nil
}

func (c *stubClient) PingTransaction(ctx context.Context, in *hivepb.PingTransactionRequest, opts ...grpc.CallOption) (*hivepb.PingTransactionResponse, error) {
	c.pinged = true
	return &hivepb.PingTransactionResponse{}, nil
}

func TestTabletCommitPicksLowestCellIdAsCoordinator(t *testing.T) {
	var low = hiveid.CellId{Hi: 1, Lo: 1}
	var high = hiveid.CellId{Hi: 2, Lo: 1}

	var lowClient = &stubClient{commitTimestamp: 42}
	var highClient = &stubClient{commitTimestamp: 99}

	var dial ClientDialer = func(ctx context.Context, cellID hiveid.CellId) (CellClient, error) {
		if cellID == low {
			return lowClient, nil
		}
		return highClient, nil
	}

	var mgr = NewTransactionManager(dial, time.Second)
	var tx, err = mgr.Start(context.Background(), StartOptions{Type: Tablet})
	require.NoError(t, err)

	require.NoError(t, tx.AddTabletParticipant(context.Background(), high, 1000))
	require.NoError(t, tx.AddTabletParticipant(context.Background(), low, 1000))

	var ts, commitErr = tx.Commit(context.Background(), hiveid.MutationId{})
	require.NoError(t, commitErr)
	require.Equal(t, hiveid.Timestamp(42), ts, "lowest CellId must be the coordinator")
	require.Equal(t, StateCommitted, tx.State())
}

func TestAbortFiresAbortedSignal(t *testing.T) {
	var cellID = hiveid.NewCellId(hiveid.CellTagTablet)
	var client = &stubClient{}
	var dial ClientDialer = func(ctx context.Context, cellID hiveid.CellId) (CellClient, error) {
		return client, nil
	}

	var mgr = NewTransactionManager(dial, time.Second)
	var tx, err = mgr.Start(context.Background(), StartOptions{Type: Master, MasterCellID: cellID})
	require.NoError(t, err)

	var fired bool
	tx.OnAborted(func() { fired = true })

	require.NoError(t, tx.Abort(context.Background(), hiveid.MutationId{}))
	require.True(t, client.aborted)
	require.True(t, fired)
	require.Equal(t, StateAborted, tx.State())
}
