package realtime

import "time"

// Backoff computes exponential resubscription delays and tracks
// consecutive failures. It is not safe for concurrent use.
type Backoff struct {
	// Initial is the delay after the first failure. Defaults to 500ms.
	Initial time.Duration
	// Max caps the delay. Defaults to 30s.
	Max time.Duration
	// StaleAfter is the number of consecutive failures after which data
	// should be considered stale. Zero disables the indicator.
	StaleAfter int

	failures int
	current  time.Duration
}

// Next records a failure and returns how long to wait before retrying.
func (b *Backoff) Next() time.Duration {
	initial, maxDelay := b.Initial, b.Max
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	b.failures++
	if b.current == 0 {
		b.current = initial
	} else {
		b.current *= 2
	}
	if b.current > maxDelay {
		b.current = maxDelay
	}
	return b.current
}

// Reset clears the failure streak after a successful subscription.
func (b *Backoff) Reset() {
	b.failures = 0
	b.current = 0
}

// Failures returns the number of consecutive failures.
func (b *Backoff) Failures() int { return b.failures }

// Stale reports whether the failure streak reached StaleAfter.
func (b *Backoff) Stale() bool {
	return b.StaleAfter > 0 && b.failures >= b.StaleAfter
}
