package transport

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Socket is a single WebSocket connection to the game server. Each
// connection attempt gets a fresh Socket; the Manager is its only owner.
type Socket interface {
	// Connect establishes the WebSocket connection.
	Connect(ctx context.Context) error

	// Close closes the connection with a normal status code.
	Close() error

	// CloseWithCode closes the connection with a specific status code.
	CloseWithCode(code int, reason string) error

	// Send writes one text frame. Non-blocking beyond the write deadline.
	Send(data []byte) error

	// Messages returns the inbound frame channel. It is closed when the
	// read loop exits for any reason.
	Messages() <-chan []byte

	// Errors returns a channel carrying the read error, if any, that
	// terminated the connection.
	Errors() <-chan error
}

// socketConfig configures a single socket.
type socketConfig struct {
	URL              string
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	BufferSize       int
}

// gorillaSocket implements Socket over github.com/gorilla/websocket.
type gorillaSocket struct {
	cfg    socketConfig
	logger *slog.Logger

	conn *websocket.Conn

	messages chan []byte
	errors   chan error
	done     chan struct{}

	// Write serialization
	writeMu sync.Mutex

	mu        sync.RWMutex
	connected bool
	closed    bool
}

// newSocket creates an unconnected socket.
func newSocket(cfg socketConfig, logger *slog.Logger) Socket {
	if logger == nil {
		logger = slog.Default()
	}

	return &gorillaSocket{
		cfg:      cfg,
		logger:   logger,
		messages: make(chan []byte, cfg.BufferSize),
		errors:   make(chan error, 1),
		done:     make(chan struct{}),
	}
}

// Connect dials the server and starts the read loop.
func (s *gorillaSocket) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrAlreadyClosed
	}
	s.mu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: s.cfg.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()

	go s.readLoop()

	s.logger.Debug("websocket connected", "url", s.cfg.URL)
	return nil
}

// Close closes the connection with a normal status code.
func (s *gorillaSocket) Close() error {
	return s.CloseWithCode(websocket.CloseNormalClosure, "")
}

// CloseWithCode closes the connection with a specific status code.
func (s *gorillaSocket) CloseWithCode(code int, reason string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.connected = false
	s.mu.Unlock()

	close(s.done)

	if s.conn != nil {
		s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason),
			time.Now().Add(time.Second),
		)
		return s.conn.Close()
	}

	return nil
}

// Send writes one text frame to the connection.
func (s *gorillaSocket) Send(data []byte) error {
	s.mu.RLock()
	if !s.connected {
		s.mu.RUnlock()
		return ErrNotConnected
	}
	s.mu.RUnlock()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Messages returns the inbound frame channel.
func (s *gorillaSocket) Messages() <-chan []byte {
	return s.messages
}

// Errors returns the terminal read error channel.
func (s *gorillaSocket) Errors() <-chan error {
	return s.errors
}

// readLoop reads inbound frames until the connection dies or Close is
// called. It closes the messages channel on exit so the owner observes
// termination; an unexpected read error is published first.
func (s *gorillaSocket) readLoop() {
	defer close(s.messages)
	defer func() {
		s.mu.Lock()
		s.connected = false
		s.mu.Unlock()
	}()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			// Ignore errors after Close() is called.
			select {
			case <-s.done:
			default:
				select {
				case s.errors <- err:
				default:
				}
			}
			return
		}

		select {
		case s.messages <- data:
		case <-s.done:
			return
		}
	}
}
