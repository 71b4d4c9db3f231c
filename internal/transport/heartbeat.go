package transport

import (
	"math/rand"
	"time"
)

// livenessState tracks heartbeat confirmations for the current link.
type livenessState struct {
	lastConfirmationAt time.Time
	missed             int
}

// reset clears the miss counter when a link goes live or a confirmation
// arrives.
func (l *livenessState) reset(now time.Time) {
	l.lastConfirmationAt = now
	l.missed = 0
}

// probePeriod returns interval +/- uniform jitter, avoiding synchronized
// probe storms across many clients after a shared network blip.
func probePeriod(interval, jitter time.Duration) time.Duration {
	if jitter <= 0 {
		return interval
	}
	return interval + time.Duration(rand.Int63n(int64(2*jitter))) - jitter
}
