package transport

import "time"

// reconnectionBudget bounds automatic reconnection. The attempt counter
// resets to zero on every successful authenticated connection and otherwise
// increments monotonically up to maxRetries.
type reconnectionBudget struct {
	attempt    int
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// Attempt returns the current attempt counter.
func (b *reconnectionBudget) Attempt() int {
	return b.attempt
}

// Reset clears the attempt counter after a successful authentication.
func (b *reconnectionBudget) Reset() {
	b.attempt = 0
}

// Exhausted reports whether no further attempts are permitted.
func (b *reconnectionBudget) Exhausted() bool {
	return b.attempt >= b.maxRetries
}

// Next returns the delay for the next attempt and consumes it.
func (b *reconnectionBudget) Next() time.Duration {
	d := backoffDelay(b.baseDelay, b.maxDelay, b.attempt)
	b.attempt++
	return d
}

// backoffDelay computes min(base * 2^attempt, max). No jitter: reconnection
// is client-initiated and already staggered by when each client's link
// dropped; jitter is applied to the heartbeat instead.
func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	if attempt >= 63 {
		return max
	}
	d := base << uint(attempt)
	if d <= 0 || d > max || d>>uint(attempt) != base {
		return max
	}
	return d
}
