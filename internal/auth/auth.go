// Package auth loads and holds the session credential used in the
// authentication handshake. The token is transmitted only inside the
// first frame after the socket opens, never in a URL or query string.
package auth

import (
	"fmt"
	"os"
	"strings"
)

// Credential holds the session token presented during the handshake.
type Credential struct {
	token string
}

// NewCredential wraps a raw session token.
func NewCredential(token string) (*Credential, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("session token is required")
	}
	return &Credential{token: token}, nil
}

// LoadCredential reads a session token from a file.
func LoadCredential(path string) (*Credential, error) {
	if path == "" {
		return nil, fmt.Errorf("token file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}

	return NewCredential(string(data))
}

// FromEnv reads a session token from an environment variable.
func FromEnv(name string) (*Credential, error) {
	value, ok := os.LookupEnv(name)
	if !ok {
		return nil, fmt.Errorf("environment variable %s is not set", name)
	}
	return NewCredential(value)
}

// Token returns the raw token for inclusion in the auth frame payload.
func (c *Credential) Token() string {
	return c.token
}

// Redacted returns a log-safe form of the token.
func (c *Credential) Redacted() string {
	if len(c.token) <= 8 {
		return "****"
	}
	return c.token[:4] + "****"
}

// String implements fmt.Stringer so formatting a credential with %v or %s
// never leaks the token into logs.
func (c *Credential) String() string {
	return c.Redacted()
}
