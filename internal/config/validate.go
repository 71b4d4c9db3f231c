package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks that all required fields are set and values are valid.
func (c *ClientConfig) Validate() error {
	if c.Server.URL == "" {
		return errors.New("server.url is required")
	}
	u, err := url.Parse(c.Server.URL)
	if err != nil {
		return fmt.Errorf("server.url is not a valid URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("server.url scheme must be ws or wss, got %q", u.Scheme)
	}
	if u.RawQuery != "" {
		return errors.New("server.url must not carry a query string; credentials go in auth.token")
	}

	if c.Auth.Token == "" && c.Auth.TokenFile == "" {
		return errors.New("auth.token or auth.token_file is required")
	}

	if c.Session.MaxRetries != nil && *c.Session.MaxRetries < 0 {
		return errors.New("session.max_retries must be >= 0")
	}
	if c.Session.ReconnectBaseDelay <= 0 {
		return errors.New("session.reconnect_base_delay must be > 0")
	}
	if c.Session.ReconnectMaxDelay < c.Session.ReconnectBaseDelay {
		return fmt.Errorf("session.reconnect_max_delay (%v) cannot be less than reconnect_base_delay (%v)",
			c.Session.ReconnectMaxDelay, c.Session.ReconnectBaseDelay)
	}
	if c.Session.HeartbeatInterval <= 0 {
		return errors.New("session.heartbeat_interval must be > 0")
	}
	if c.Session.HeartbeatJitter < 0 {
		return errors.New("session.heartbeat_jitter must be >= 0")
	}
	if c.Session.HeartbeatJitter >= c.Session.HeartbeatInterval {
		return fmt.Errorf("session.heartbeat_jitter (%v) must be less than heartbeat_interval (%v)",
			c.Session.HeartbeatJitter, c.Session.HeartbeatInterval)
	}
	if c.Session.HeartbeatTimeout <= 0 {
		return errors.New("session.heartbeat_timeout must be > 0")
	}
	if c.Session.MaxMissedHeartbeats < 1 {
		return errors.New("session.max_missed_heartbeats must be >= 1")
	}
	if c.Session.QueueCapacity < 1 {
		return errors.New("session.queue_capacity must be >= 1")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}

	return nil
}
