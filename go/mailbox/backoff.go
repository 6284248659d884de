package mailbox

import (
	"math/rand"
	"time"
)

// backoff produces capped exponential retry delays with jitter, in the
// shape of the retry loops gazette's broker/client package uses around
// its Append/Read RPCs — reimplemented here as a self-contained helper
// rather than importing the whole broker client for one loop.
type backoff struct {
	base, max time.Duration
	attempt   int
}

func newBackoff() *backoff {
	return &backoff{base: 100 * time.Millisecond, max: 30 * time.Second}
}

// Next returns the delay to wait before the next attempt and advances
// the internal attempt counter.
func (b *backoff) Next() time.Duration {
	var d = b.base << b.attempt
	if d <= 0 || d > b.max {
		d = b.max
	}
	b.attempt++
	return d/2 + time.Duration(rand.Int63n(int64(d/2+1)))
}

// Reset zeroes the attempt counter after a successful delivery.
func (b *backoff) Reset() {
	b.attempt = 0
}
