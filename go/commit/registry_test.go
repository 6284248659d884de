package commit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hiveprotocol/hive/go/hiveid"
)

func TestRegistryFindIsDisjoint(t *testing.T) {
	var r = NewRegistry()

	var simpleTx = hiveid.NewTransactionId(hiveid.Timestamp(1), 1)
	var distTx = hiveid.NewTransactionId(hiveid.Timestamp(1), 2)

	var simpleCommit = New(simpleTx, hiveid.MutationId{}, nil)
	var distCommit = New(distTx, hiveid.MutationId{}, []hiveid.CellId{hiveid.NewCellId(hiveid.CellTagTablet)})

	r.InsertSimple(simpleCommit)
	r.InsertDistributed(distCommit)

	require.Same(t, simpleCommit, r.Find(simpleTx))
	require.Same(t, distCommit, r.Find(distTx))
	require.False(t, simpleCommit.IsDistributed())
	require.True(t, distCommit.IsDistributed())
	require.True(t, distCommit.Persistent)
	require.False(t, simpleCommit.Persistent)

	require.Len(t, r.Distributed(), 1)
}

func TestRegistryRemoveDispatchesByKind(t *testing.T) {
	var r = NewRegistry()

	var tx = hiveid.NewTransactionId(hiveid.Timestamp(1), 1)
	var c = New(tx, hiveid.MutationId{}, []hiveid.CellId{hiveid.NewCellId(hiveid.CellTagTablet)})
	r.InsertDistributed(c)
	require.NotNil(t, r.Find(tx))

	r.Remove(c)
	require.Nil(t, r.Find(tx))
	require.Empty(t, r.Distributed())
}

func TestRegistryClearSimpleLeavesDistributed(t *testing.T) {
	var r = NewRegistry()

	var simpleTx = hiveid.NewTransactionId(hiveid.Timestamp(1), 1)
	var distTx = hiveid.NewTransactionId(hiveid.Timestamp(1), 2)

	r.InsertSimple(New(simpleTx, hiveid.MutationId{}, nil))
	r.InsertDistributed(New(distTx, hiveid.MutationId{}, []hiveid.CellId{hiveid.NewCellId(hiveid.CellTagTablet)}))

	r.ClearSimple()

	require.Nil(t, r.Find(simpleTx))
	require.NotNil(t, r.Find(distTx))
}

func TestCommitMarkResponded(t *testing.T) {
	var a = hiveid.NewCellId(hiveid.CellTagTablet)
	var b = hiveid.NewCellId(hiveid.CellTagTablet)

	var c = New(hiveid.NewTransactionId(hiveid.Timestamp(1), 1), hiveid.MutationId{}, []hiveid.CellId{a, b})

	require.False(t, c.MarkResponded(a))
	require.True(t, c.MarkResponded(b))
}

func TestPromiseResolveIsIdempotent(t *testing.T) {
	var p = NewPromise()

	p.Resolve([]byte("first"), nil)
	p.Resolve([]byte("second"), nil)

	resp, err := p.Wait()
	require.NoError(t, err)
	require.Equal(t, []byte("first"), resp)
}
