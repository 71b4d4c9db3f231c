package transport

import (
	"sync"

	"github.com/feltworks/tablelink/internal/envelope"
)

// outboundQueue is a bounded FIFO of frames awaiting transmission.
//
// When full, new entries are rejected with ErrQueueFull; existing entries
// are never overwritten and callers are never blocked. Entries are removed
// only after a successful socket write (Peek then Dequeue), so a failed
// flush leaves the remainder intact and ordered.
type outboundQueue struct {
	mu       sync.Mutex
	buf      []envelope.Envelope
	head     int
	tail     int
	count    int
	capacity int
}

// newOutboundQueue creates a queue with the given capacity bound.
func newOutboundQueue(capacity int) *outboundQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &outboundQueue{
		buf:      make([]envelope.Envelope, capacity),
		capacity: capacity,
	}
}

// Enqueue appends a frame, or returns ErrQueueFull at capacity.
func (q *outboundQueue) Enqueue(env envelope.Envelope) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == q.capacity {
		return ErrQueueFull
	}

	q.buf[q.tail] = env
	q.tail = (q.tail + 1) % q.capacity
	q.count++
	return nil
}

// Peek returns the oldest frame without removing it.
func (q *outboundQueue) Peek() (envelope.Envelope, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return envelope.Envelope{}, false
	}
	return q.buf[q.head], true
}

// Dequeue removes and returns the oldest frame.
func (q *outboundQueue) Dequeue() (envelope.Envelope, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return envelope.Envelope{}, false
	}

	env := q.buf[q.head]
	q.buf[q.head] = envelope.Envelope{} // clear reference for GC
	q.head = (q.head + 1) % q.capacity
	q.count--
	return env, true
}

// Len returns the number of queued frames.
func (q *outboundQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Clear discards all queued frames.
func (q *outboundQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	clear(q.buf)
	q.head = 0
	q.tail = 0
	q.count = 0
}
