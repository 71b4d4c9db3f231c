package config

import "time"

// ClientConfig is the root configuration for a table link client.
type ClientConfig struct {
	Client  IdentityConfig `yaml:"client"`
	Server  ServerConfig   `yaml:"server"`
	Auth    AuthConfig     `yaml:"auth"`
	Session SessionConfig  `yaml:"session"`
	Log     LogConfig      `yaml:"log"`
}

// IdentityConfig identifies this client instance in logs.
type IdentityConfig struct {
	ID string `yaml:"id"`
}

// ServerConfig holds the game server endpoint settings.
type ServerConfig struct {
	URL              string        `yaml:"url"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
}

// AuthConfig holds the session credential. Token takes precedence over
// TokenFile when both are set.
type AuthConfig struct {
	Token     string `yaml:"token"`
	TokenFile string `yaml:"token_file"`
}

// SessionConfig holds reconnection, heartbeat, and outbound queue settings.
// MaxRetries is a pointer so an explicit 0 ("never reconnect automatically")
// is distinguishable from the field being absent.
type SessionConfig struct {
	MaxRetries          *int          `yaml:"max_retries"`
	ReconnectBaseDelay  time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay   time.Duration `yaml:"reconnect_max_delay"`
	HeartbeatInterval   time.Duration `yaml:"heartbeat_interval"`
	HeartbeatJitter     time.Duration `yaml:"heartbeat_jitter"`
	HeartbeatTimeout    time.Duration `yaml:"heartbeat_timeout"`
	MaxMissedHeartbeats int           `yaml:"max_missed_heartbeats"`
	QueueCapacity       int           `yaml:"queue_capacity"`
	WriteTimeout        time.Duration `yaml:"write_timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}
