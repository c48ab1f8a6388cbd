package retry

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"time"
)

// Policy is a bounded retry with exponential backoff and jitter. An Attempts
// of 2 means one initial call plus up to two retries.
type Policy struct {
	Attempts    int
	BackoffBase time.Duration
}

// Do runs fn until it succeeds, returns a non-retryable error, the retry
// budget is exhausted, or ctx is cancelled. retryable decides which errors
// are worth another attempt; a nil retryable retries everything.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error, retryable func(error) bool) error {
	var err error
	for attempt := 0; attempt <= p.Attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if attempt == p.Attempts {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff(attempt, p.BackoffBase)):
		}
	}
	return err
}

func backoff(attempt int, base time.Duration) time.Duration {
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	wait := time.Duration(1<<attempt) * base
	return wait + time.Duration(cryptoRandInt63n(int64(wait/5)))
}

func cryptoRandInt63n(n int64) int64 {
	if n <= 0 {
		return 0
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	uval := binary.BigEndian.Uint64(buf[:]) & 0x7FFFFFFFFFFFFFFF
	// #nosec G115 -- Intentionally safe conversion after masking
	return int64(uval) % n
}
