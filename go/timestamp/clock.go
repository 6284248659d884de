package timestamp

import (
	"context"
	"sync/atomic"

	"github.com/hiveprotocol/hive/go/hiveid"
)

// MonotonicClock is a trivial in-memory Provider backed by an atomic
// counter. It never fails, which is enough to exercise the happy path in
// tests; FailingClock below exercises the TimestampUnavailable path.
type MonotonicClock struct {
	counter atomic.Uint64
}

// NewMonotonicClock returns a clock whose latest timestamp starts at
// hiveid.TimestampMinValid; the first one GenerateTimestamps issues is
// the value after it.
func NewMonotonicClock() *MonotonicClock {
	var c = &MonotonicClock{}
	c.counter.Store(uint64(hiveid.TimestampMinValid))
	return c
}

func (c *MonotonicClock) GenerateTimestamps(ctx context.Context) (hiveid.Timestamp, error) {
	return hiveid.Timestamp(c.counter.Add(1)), nil
}

func (c *MonotonicClock) GetLatestTimestamp() hiveid.Timestamp {
	return hiveid.Timestamp(c.counter.Load())
}

var _ Provider = (*MonotonicClock)(nil)

// FailingClock wraps a Provider and fails GenerateTimestamps whenever
// Fail is true, for exercising spec.md §4.4.5's TimestampUnavailable path.
type FailingClock struct {
	Provider
	Fail bool
	err  error
}

func (c *FailingClock) GenerateTimestamps(ctx context.Context) (hiveid.Timestamp, error) {
	if c.Fail {
		if c.err == nil {
			c.err = errTimestampUnavailable
		}
		return hiveid.TimestampNull, c.err
	}
	return c.Provider.GenerateTimestamps(ctx)
}

var errTimestampUnavailable = errTimestampUnavailableType{}

type errTimestampUnavailableType struct{}

func (errTimestampUnavailableType) Error() string { return "timestamp provider unavailable" }

var _ Provider = (*FailingClock)(nil)
