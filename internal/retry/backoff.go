package retry

import (
	"context"
	"strconv"
	"time"
)

// Backoff is an exponential schedule: retry i (0-indexed) waits Base*2^i,
// capped at Max. Attempts is the total number of tries including the first.
type Backoff struct {
	Base     time.Duration
	Max      time.Duration
	Attempts int
}

// Delay returns the wait before retry i.
func (b Backoff) Delay(i int) time.Duration {
	if b.Base <= 0 {
		return 0
	}
	d := b.Base
	for n := 0; n < i; n++ {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			return b.Max
		}
	}
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}

// Wait returns the delay before retry i, preferring a server-supplied hint
// (Retry-After) when it is set. The result never exceeds Max.
func (b Backoff) Wait(i int, hint time.Duration) time.Duration {
	d := b.Delay(i)
	if hint > 0 {
		d = hint
	}
	if b.Max > 0 && d > b.Max {
		d = b.Max
	}
	return d
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the default Sleeper. It is a cooperative wait that returns
// ctx.Err() as soon as the context is cancelled.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ParseRetryAfterHeader parses a Retry-After header value into seconds.
// Returns 0 if the value is empty or not a valid integer.
func ParseRetryAfterHeader(val string) int {
	if val == "" {
		return 0
	}
	secs, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return secs
}
