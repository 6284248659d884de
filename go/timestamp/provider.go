// Package timestamp defines the coordinator's only dependency on the
// timestamp oracle (spec.md §6: "ITimestampProvider.GenerateTimestamps()
// → Timestamp (async, may fail — failure aborts the commit)"). The oracle
// itself is an external collaborator (spec.md §1); this package fixes the
// interface and ships an in-memory monotonic implementation adequate for
// tests and single-binary local runs.
package timestamp

import (
	"context"

	"github.com/hiveprotocol/hive/go/hiveid"
)

// Provider is the coordinator's view of the timestamp oracle.
type Provider interface {
	// GenerateTimestamps asynchronously requests a fresh commit
	// timestamp. A non-nil error is classified as TimestampUnavailable
	// (spec.md §7) and aborts the commit in progress.
	GenerateTimestamps(ctx context.Context) (hiveid.Timestamp, error)

	// GetLatestTimestamp returns the most recent timestamp known
	// locally without a round trip, used to stamp Prepare (spec.md
	// §4.4.1 step 3, §4.4.2 step 2: "prepare_timestamp is read from the
	// timestamp provider before the mutation is proposed").
	GetLatestTimestamp() hiveid.Timestamp
}
