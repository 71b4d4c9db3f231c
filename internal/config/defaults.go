package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultHandshakeTimeout    = 10 * time.Second
	DefaultMaxRetries          = 10
	DefaultReconnectBaseDelay  = 1 * time.Second
	DefaultReconnectMaxDelay   = 30 * time.Second
	DefaultHeartbeatInterval   = 7 * time.Second
	DefaultHeartbeatJitter     = 400 * time.Millisecond
	DefaultHeartbeatTimeout    = 15 * time.Second
	DefaultMaxMissedHeartbeats = 3
	DefaultQueueCapacity       = 100
	DefaultWriteTimeout        = 5 * time.Second
	DefaultLogLevel            = "info"
)

func (c *ClientConfig) applyDefaults() {
	if c.Server.HandshakeTimeout == 0 {
		c.Server.HandshakeTimeout = DefaultHandshakeTimeout
	}

	if c.Session.MaxRetries == nil {
		v := DefaultMaxRetries
		c.Session.MaxRetries = &v
	}
	if c.Session.ReconnectBaseDelay == 0 {
		c.Session.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Session.ReconnectMaxDelay == 0 {
		c.Session.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Session.HeartbeatInterval == 0 {
		c.Session.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.Session.HeartbeatJitter == 0 {
		c.Session.HeartbeatJitter = DefaultHeartbeatJitter
	}
	if c.Session.HeartbeatTimeout == 0 {
		c.Session.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	if c.Session.MaxMissedHeartbeats == 0 {
		c.Session.MaxMissedHeartbeats = DefaultMaxMissedHeartbeats
	}
	if c.Session.QueueCapacity == 0 {
		c.Session.QueueCapacity = DefaultQueueCapacity
	}
	if c.Session.WriteTimeout == 0 {
		c.Session.WriteTimeout = DefaultWriteTimeout
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}
