// Package hiveid defines the opaque identifiers shared by every component
// of the coordinator: cells, transactions, mutations and timestamps.
package hiveid

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// CellTag distinguishes the kind of replicated state machine a CellId
// refers to. The coordinator never branches on this beyond logging it.
type CellTag uint16

const (
	// CellTagUnknown is the zero value; never assigned deliberately.
	CellTagUnknown CellTag = iota
	// CellTagMaster identifies a master cell.
	CellTagMaster
	// CellTagTablet identifies a tablet cell.
	CellTagTablet
)

func (t CellTag) String() string {
	switch t {
	case CellTagMaster:
		return "master"
	case CellTagTablet:
		return "tablet"
	default:
		return "unknown"
	}
}

// CellId is a stable 128-bit identifier for a cell. Its high 16 bits of
// Lo carry a CellTag; the coordinator treats the rest as opaque.
type CellId struct {
	Hi uint64
	Lo uint64
}

// NullCellId is the zero CellId, never a valid cell.
var NullCellId = CellId{}

// Tag returns the CellTag embedded in the id.
func (c CellId) Tag() CellTag {
	return CellTag(c.Lo >> 48)
}

// IsNull reports whether c is the zero value.
func (c CellId) IsNull() bool {
	return c == NullCellId
}

// Less gives a total, deterministic order over CellIds. It is used to pick
// a deterministic coordinator among a tablet transaction's participants
// (see DESIGN.md, "tablet coordinator selection").
func (c CellId) Less(o CellId) bool {
	if c.Hi != o.Hi {
		return c.Hi < o.Hi
	}
	return c.Lo < o.Lo
}

func (c CellId) String() string {
	return fmt.Sprintf("%016x-%016x", c.Hi, c.Lo)
}

// NewCellId generates a random CellId carrying the given tag.
func NewCellId(tag CellTag) CellId {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(fmt.Sprintf("hiveid: reading random bytes: %v", err))
	}
	var id = CellId{
		Hi: binary.BigEndian.Uint64(buf[0:8]),
		Lo: binary.BigEndian.Uint64(buf[8:16]),
	}
	id.Lo = (id.Lo &^ (0xffff << 48)) | (uint64(tag) << 48)
	return id
}

// TransactionId is a 128-bit identifier chosen by the originating
// authority. The coordinator treats it as opaque beyond equality and
// ordering; it is never parsed for the cell tag / timestamp fragment it
// may embed client-side.
type TransactionId struct {
	Hi uint64
	Lo uint64
}

// NullTransactionId is the zero TransactionId.
var NullTransactionId = TransactionId{}

func (t TransactionId) IsNull() bool {
	return t == NullTransactionId
}

func (t TransactionId) String() string {
	return fmt.Sprintf("%016x-%016x", t.Hi, t.Lo)
}

// NewTransactionId synthesizes a transaction id embedding a start
// timestamp fragment and a locally incremented counter, per spec.md
// §4.5's description of tablet transaction id synthesis.
func NewTransactionId(startTimestamp Timestamp, counter uint64) TransactionId {
	return TransactionId{
		Hi: uint64(startTimestamp),
		Lo: counter,
	}
}

// MutationId is an optional, client-supplied idempotency key. The zero
// value means "no mutation id was supplied" and disables kept-response
// replay for that call.
type MutationId struct {
	Hi uint64
	Lo uint64
}

// NullMutationId is the zero MutationId.
var NullMutationId = MutationId{}

func (m MutationId) IsNull() bool {
	return m == NullMutationId
}

func (m MutationId) String() string {
	if m.IsNull() {
		return "<null>"
	}
	return fmt.Sprintf("%016x-%016x", m.Hi, m.Lo)
}

// ParseMutationId parses a hex-encoded "hi-lo" MutationId produced by
// String, primarily for CLI round-tripping.
func ParseMutationId(s string) (MutationId, error) {
	var hi, lo uint64
	if _, err := fmt.Sscanf(s, "%016x-%016x", &hi, &lo); err != nil {
		return MutationId{}, fmt.Errorf("parsing mutation id %q: %w", s, err)
	}
	return MutationId{Hi: hi, Lo: lo}, nil
}

// RandomHex returns n random bytes hex-encoded, a small helper used by
// callers that need a fresh identifier-shaped string (e.g. test fixtures).
func RandomHex(n int) string {
	var buf = make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("hiveid: reading random bytes: %v", err))
	}
	return hex.EncodeToString(buf)
}
