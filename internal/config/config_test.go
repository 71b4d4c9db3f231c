package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
client:
  id: test-client
server:
  url: wss://play.example.com/session
auth:
  token: abc123
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Client.ID != "test-client" {
		t.Errorf("Client.ID = %q, want %q", cfg.Client.ID, "test-client")
	}
	if cfg.Server.URL != "wss://play.example.com/session" {
		t.Errorf("Server.URL = %q, want %q", cfg.Server.URL, "wss://play.example.com/session")
	}
	if cfg.Auth.Token != "abc123" {
		t.Errorf("Auth.Token = %q, want %q", cfg.Auth.Token, "abc123")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_SESSION_TOKEN", "secret123")

	yaml := `
server:
  url: wss://play.example.com/session
auth:
  token: ${TEST_SESSION_TOKEN}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Auth.Token != "secret123" {
		t.Errorf("Auth.Token = %q, want %q", cfg.Auth.Token, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
server:
  url: wss://play.example.com/session
auth:
  token: abc123
session:
  queue_capacity: 250
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.Server.HandshakeTimeout != DefaultHandshakeTimeout {
		t.Errorf("Server.HandshakeTimeout = %v, want default %v", cfg.Server.HandshakeTimeout, DefaultHandshakeTimeout)
	}
	if cfg.Session.MaxRetries == nil || *cfg.Session.MaxRetries != DefaultMaxRetries {
		t.Errorf("Session.MaxRetries = %v, want default %d", cfg.Session.MaxRetries, DefaultMaxRetries)
	}
	if cfg.Session.HeartbeatInterval != DefaultHeartbeatInterval {
		t.Errorf("Session.HeartbeatInterval = %v, want default %v", cfg.Session.HeartbeatInterval, DefaultHeartbeatInterval)
	}
	if cfg.Session.HeartbeatJitter != DefaultHeartbeatJitter {
		t.Errorf("Session.HeartbeatJitter = %v, want default %v", cfg.Session.HeartbeatJitter, DefaultHeartbeatJitter)
	}
	if cfg.Log.Level != DefaultLogLevel {
		t.Errorf("Log.Level = %q, want default %q", cfg.Log.Level, DefaultLogLevel)
	}

	// Explicit values are not overwritten
	if cfg.Session.QueueCapacity != 250 {
		t.Errorf("Session.QueueCapacity = %d, want 250", cfg.Session.QueueCapacity)
	}
}

func TestLoadAndValidate(t *testing.T) {
	yaml := `
server:
  url: wss://play.example.com/session
auth:
  token: abc123
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadAndValidate(path)
	if err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}
	if cfg.Session.QueueCapacity != DefaultQueueCapacity {
		t.Errorf("Session.QueueCapacity = %d, want default %d", cfg.Session.QueueCapacity, DefaultQueueCapacity)
	}
}

func TestLoadExplicitZeroMaxRetries(t *testing.T) {
	yaml := `
server:
  url: wss://play.example.com/session
auth:
  token: abc123
session:
  max_retries: 0
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadAndValidate(path)
	if err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}

	// An explicit zero means "never reconnect" and must survive defaulting.
	if cfg.Session.MaxRetries == nil || *cfg.Session.MaxRetries != 0 {
		t.Errorf("Session.MaxRetries = %v, want explicit 0", cfg.Session.MaxRetries)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load of missing file succeeded, want error")
	}
}

func intp(v int) *int { return &v }

func validSession() SessionConfig {
	return SessionConfig{
		MaxRetries:          intp(10),
		ReconnectBaseDelay:  time.Second,
		ReconnectMaxDelay:   30 * time.Second,
		HeartbeatInterval:   7 * time.Second,
		HeartbeatJitter:     400 * time.Millisecond,
		HeartbeatTimeout:    15 * time.Second,
		MaxMissedHeartbeats: 3,
		QueueCapacity:       100,
		WriteTimeout:        5 * time.Second,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ClientConfig
		wantErr string
	}{
		{
			name:    "missing server url",
			cfg:     ClientConfig{},
			wantErr: "server.url is required",
		},
		{
			name: "wrong scheme",
			cfg: ClientConfig{
				Server: ServerConfig{URL: "https://play.example.com/session"},
			},
			wantErr: `server.url scheme must be ws or wss, got "https"`,
		},
		{
			name: "credential in url query",
			cfg: ClientConfig{
				Server: ServerConfig{URL: "wss://play.example.com/session?token=abc"},
			},
			wantErr: "server.url must not carry a query string; credentials go in auth.token",
		},
		{
			name: "missing credential",
			cfg: ClientConfig{
				Server:  ServerConfig{URL: "wss://play.example.com/session"},
				Session: validSession(),
				Log:     LogConfig{Level: "info"},
			},
			wantErr: "auth.token or auth.token_file is required",
		},
		{
			name: "negative max retries",
			cfg: ClientConfig{
				Server:  ServerConfig{URL: "wss://play.example.com/session"},
				Auth:    AuthConfig{Token: "abc"},
				Session: SessionConfig{MaxRetries: intp(-1)},
				Log:     LogConfig{Level: "info"},
			},
			wantErr: "session.max_retries must be >= 0",
		},
		{
			name: "jitter exceeds interval",
			cfg: ClientConfig{
				Server: ServerConfig{URL: "wss://play.example.com/session"},
				Auth:   AuthConfig{Token: "abc"},
				Session: SessionConfig{
					MaxRetries:          intp(10),
					ReconnectBaseDelay:  time.Second,
					ReconnectMaxDelay:   30 * time.Second,
					HeartbeatInterval:   time.Second,
					HeartbeatJitter:     2 * time.Second,
					HeartbeatTimeout:    15 * time.Second,
					MaxMissedHeartbeats: 3,
					QueueCapacity:       100,
				},
				Log: LogConfig{Level: "info"},
			},
			wantErr: "session.heartbeat_jitter (2s) must be less than heartbeat_interval (1s)",
		},
		{
			name: "max delay below base delay",
			cfg: ClientConfig{
				Server: ServerConfig{URL: "wss://play.example.com/session"},
				Auth:   AuthConfig{Token: "abc"},
				Session: SessionConfig{
					MaxRetries:         intp(10),
					ReconnectBaseDelay: 10 * time.Second,
					ReconnectMaxDelay:  time.Second,
				},
				Log: LogConfig{Level: "info"},
			},
			wantErr: "session.reconnect_max_delay (1s) cannot be less than reconnect_base_delay (10s)",
		},
		{
			name: "bad log level",
			cfg: ClientConfig{
				Server:  ServerConfig{URL: "wss://play.example.com/session"},
				Auth:    AuthConfig{Token: "abc"},
				Session: validSession(),
				Log:     LogConfig{Level: "verbose"},
			},
			wantErr: `log.level must be one of debug, info, warn, error, got "verbose"`,
		},
		{
			name: "valid config",
			cfg: ClientConfig{
				Server:  ServerConfig{URL: "wss://play.example.com/session"},
				Auth:    AuthConfig{Token: "abc"},
				Session: validSession(),
				Log:     LogConfig{Level: "info"},
			},
			wantErr: "",
		},
		{
			name: "token file alone satisfies auth",
			cfg: ClientConfig{
				Server:  ServerConfig{URL: "wss://play.example.com/session"},
				Auth:    AuthConfig{TokenFile: "/etc/tablelink/token"},
				Session: validSession(),
				Log:     LogConfig{Level: "debug"},
			},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}
