package transport

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected  = errors.New("not connected")
	ErrNotRetrying   = errors.New("not connected and not retrying")
	ErrQueueFull     = errors.New("outbound queue full")
	ErrAlreadyClosed = errors.New("already closed")
	ErrBadAddress    = errors.New("invalid server address")
)

// errConnectionClosed stands in when the read loop exits without a
// recorded cause.
var errConnectionClosed = errors.New("connection closed")

// Close codes sent by the client, beyond the standard WebSocket set.
const (
	closeMissingCredential = 4001 // connect attempted with no credential
	closeAuthRejected      = 4002 // server rejected the auth handshake
	closeLivenessTimeout   = 4003 // too many consecutive missed heartbeats
)

// Options configures a Manager.
type Options struct {
	MaxRetries          int           // reconnection attempts before giving up; 0 disables automatic reconnection, negative selects the default
	BaseDelay           time.Duration // first reconnection delay
	MaxDelay            time.Duration // reconnection delay cap
	HeartbeatInterval   time.Duration // base period between liveness probes
	HeartbeatJitter     time.Duration // uniform jitter applied to each probe period
	HeartbeatTimeout    time.Duration // max wait for a probe confirmation
	MaxMissedHeartbeats int           // consecutive misses before forcing a reconnect
	QueueCapacity       int           // outbound queue bound
	WriteTimeout        time.Duration // write deadline for socket sends
	HandshakeTimeout    time.Duration // WebSocket dial deadline
	SocketBufferSize    int           // inbound message channel buffer
	NotifyBufferSize    int           // state notification channel buffer
}

// DefaultOptions returns the recommended defaults.
func DefaultOptions() Options {
	return Options{
		MaxRetries:          10,
		BaseDelay:           1 * time.Second,
		MaxDelay:            30 * time.Second,
		HeartbeatInterval:   7 * time.Second,
		HeartbeatJitter:     400 * time.Millisecond,
		HeartbeatTimeout:    15 * time.Second,
		MaxMissedHeartbeats: 3,
		QueueCapacity:       100,
		WriteTimeout:        5 * time.Second,
		HandshakeTimeout:    10 * time.Second,
		SocketBufferSize:    256,
		NotifyBufferSize:    64,
	}
}

// withDefaults fills zero-valued fields from DefaultOptions.
func (o Options) withDefaults() Options {
	def := DefaultOptions()

	// Zero is meaningful for MaxRetries: never reconnect automatically.
	if o.MaxRetries < 0 {
		o.MaxRetries = def.MaxRetries
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = def.BaseDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = def.MaxDelay
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = def.HeartbeatInterval
	}
	if o.HeartbeatJitter < 0 {
		o.HeartbeatJitter = def.HeartbeatJitter
	}
	if o.HeartbeatTimeout <= 0 {
		o.HeartbeatTimeout = def.HeartbeatTimeout
	}
	if o.MaxMissedHeartbeats <= 0 {
		o.MaxMissedHeartbeats = def.MaxMissedHeartbeats
	}
	if o.QueueCapacity <= 0 {
		o.QueueCapacity = def.QueueCapacity
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = def.WriteTimeout
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = def.HandshakeTimeout
	}
	if o.SocketBufferSize <= 0 {
		o.SocketBufferSize = def.SocketBufferSize
	}
	if o.NotifyBufferSize <= 0 {
		o.NotifyBufferSize = def.NotifyBufferSize
	}

	return o
}
