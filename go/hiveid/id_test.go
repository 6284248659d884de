package hiveid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCellIdTag(t *testing.T) {
	var id = NewCellId(CellTagTablet)
	require.Equal(t, CellTagTablet, id.Tag())
	require.False(t, id.IsNull())
}

func TestCellIdOrdering(t *testing.T) {
	var a = CellId{Hi: 1, Lo: 2}
	var b = CellId{Hi: 1, Lo: 3}
	require.True(t, a.Less(b))
	require.False(t, b.Less(a))
}

func TestMutationIdRoundTrip(t *testing.T) {
	var m = MutationId{Hi: 0xdeadbeef, Lo: 0xcafef00d}
	parsed, err := ParseMutationId(m.String())
	require.NoError(t, err)
	require.Equal(t, m, parsed)
}

func TestTimestampFlags(t *testing.T) {
	var ts = Timestamp(42) | tombstoneFlag
	require.True(t, ts.Tombstone())
	require.False(t, ts.Incremental())
	require.Equal(t, Timestamp(42), ts.Value())
}
