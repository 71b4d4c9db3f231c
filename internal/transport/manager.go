package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/feltworks/tablelink/internal/auth"
	"github.com/feltworks/tablelink/internal/dispatch"
	"github.com/feltworks/tablelink/internal/envelope"
)

// Manager owns the socket and drives the connection lifecycle:
// open, authenticate, probe liveness, reconnect with backoff, flush the
// outbound queue, and coordinate state recovery after reconnection.
//
// All socket I/O and timer callbacks serialize on one mutex, so the
// manager behaves as a single logical actor. No other component touches
// the socket directly.
type Manager struct {
	opts   Options
	logger *slog.Logger

	dispatcher *dispatch.Dispatcher
	notify     chan StateChange

	mu         sync.Mutex
	state      State
	terminal   bool   // fatal failure or exhausted budget; cleared by Connect
	generation uint64 // bumped on Connect/Disconnect/fatal to invalidate stale callbacks
	address    string
	cred       *auth.Credential
	socket     Socket

	budget   reconnectionBudget
	liveness livenessState
	queue    *outboundQueue
	recovery recoveryCoordinator

	probeTimer     *timerHandle
	confirmTimer   *timerHandle
	authTimer      *timerHandle
	reconnectTimer *timerHandle
}

// NewManager creates a transport manager. Zero-valued options fall back to
// DefaultOptions, except MaxRetries, where zero means the link is never
// reconnected automatically. The manager is inert until Connect is called.
func NewManager(opts Options, logger *slog.Logger) *Manager {
	opts = opts.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		opts:       opts,
		logger:     logger,
		dispatcher: dispatch.NewDispatcher(logger),
		notify:     make(chan StateChange, opts.NotifyBufferSize),
		queue:      newOutboundQueue(opts.QueueCapacity),
		budget: reconnectionBudget{
			maxRetries: opts.MaxRetries,
			baseDelay:  opts.BaseDelay,
			maxDelay:   opts.MaxDelay,
		},
	}
}

// Connect starts a connection attempt. It returns immediately; completion
// is observed through Notifications. Calling Connect while a connection is
// already in progress or live is a no-op, except that a non-nil credential
// is stored for use on the next attempt.
func (m *Manager) Connect(address string, cred *auth.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cred != nil {
		m.cred = cred
	}

	switch m.state {
	case StateConnecting, StateAwaitingAuth, StateLive, StateReconnecting:
		return nil
	}

	addr, err := sanitizeAddress(address)
	if err != nil {
		return err
	}

	m.address = addr
	m.terminal = false
	m.budget.Reset()
	m.generation++
	gen := m.generation
	m.setStateLocked(StateConnecting, ReasonConnectRequested)

	go m.dial(gen)
	return nil
}

// Disconnect performs a clean shutdown: cancels both timers and any
// recovery in flight, clears the outbound queue, closes the socket with a
// normal status, and suppresses reconnection. A fresh Connect immediately
// afterward starts from a clean state.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.generation++
	m.stopLinkTimersLocked()
	m.reconnectTimer.Cancel()
	m.reconnectTimer = nil
	m.recovery.finish()
	m.queue.Clear()
	m.terminal = false
	m.closeSocketLocked(0, "")

	if m.state != StateDisconnected {
		m.setStateLocked(StateDisconnected, ReasonCleanClose)
	}
}

// Send wraps payload in a fresh envelope and transmits it, queueing while
// the link is not live. Delivery must not be assumed when it returns.
func (m *Manager) Send(frameType string, payload any) error {
	env, err := envelope.New(frameType, payload)
	if err != nil {
		return err
	}
	return m.SendEnvelope(env)
}

// SendRequest is Send plus a request ID for frames expecting a response.
// It returns the generated request ID for correlation.
func (m *Manager) SendRequest(frameType string, payload any) (string, error) {
	env, err := envelope.NewRequest(frameType, payload)
	if err != nil {
		return "", err
	}
	return env.RequestID, m.SendEnvelope(env)
}

// SendEnvelope transmits a prebuilt envelope. While the link is live the
// frame is written immediately; otherwise it is queued in admission order.
// After a fatal failure or an exhausted reconnection budget it returns
// ErrNotRetrying until the application calls Connect again.
func (m *Manager) SendEnvelope(env envelope.Envelope) error {
	if env.Type == "" {
		return envelope.ErrEmptyType
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.terminal {
		return ErrNotRetrying
	}

	// A halted flush can leave entries queued while live; queue behind
	// them so admission order holds.
	if m.state == StateLive && m.queue.Len() == 0 {
		return m.writeLocked(env)
	}

	return m.queue.Enqueue(env)
}

// On registers a handler for a frame type. Handlers run synchronously in
// registration order, in wire order, on the read loop.
func (m *Manager) On(frameType string, h dispatch.Handler) dispatch.Subscription {
	return m.dispatcher.On(frameType, h)
}

// Off removes a single handler registration.
func (m *Manager) Off(sub dispatch.Subscription) {
	m.dispatcher.Off(sub)
}

// OffAll removes every handler for a frame type.
func (m *Manager) OffAll(frameType string) {
	m.dispatcher.OffAll(frameType)
}

// Notifications returns the read-only connection state stream. A slow
// consumer drops notifications rather than stalling the manager.
func (m *Manager) Notifications() <-chan StateChange {
	return m.notify
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsConnected reports whether the socket is established (authenticated or
// awaiting authentication).
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateAwaitingAuth || m.state == StateLive
}

// IsAuthenticated reports whether the link is live.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateLive
}

// QueueLen returns the number of frames awaiting transmission.
func (m *Manager) QueueLen() int {
	return m.queue.Len()
}

// UpdateRecoveryState records how far the application has observed state
// for a subject. Called by the application whenever it processes a
// state-bearing frame.
func (m *Manager) UpdateRecoveryState(subjectID string, stateVersion int64, lastActionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recovery.update(subjectID, stateVersion, lastActionID)
}

// RecoveryState returns the current recovery cursor.
func (m *Manager) RecoveryState() RecoveryCursor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recovery.cursor
}

// ClearRecoveryState forgets the recovery subject, e.g. when the player
// leaves the table.
func (m *Manager) ClearRecoveryState() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recovery.clear()
}

// dial establishes the socket for one connection attempt and sends the
// authentication frame the instant the transport opens.
func (m *Manager) dial(gen uint64) {
	m.mu.Lock()
	if gen != m.generation || m.state != StateConnecting {
		m.mu.Unlock()
		return
	}
	sock := newSocket(socketConfig{
		URL:              m.address,
		HandshakeTimeout: m.opts.HandshakeTimeout,
		WriteTimeout:     m.opts.WriteTimeout,
		BufferSize:       m.opts.SocketBufferSize,
	}, m.logger)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.opts.HandshakeTimeout)
	err := sock.Connect(ctx)
	cancel()

	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation || m.state != StateConnecting {
		if err == nil {
			sock.Close()
		}
		return
	}

	if err != nil {
		// Transport-level dial failures feed the same path as an unclean close.
		m.logger.Warn("dial failed", "url", m.address, "error", err)
		m.scheduleReconnectLocked(ReasonUncleanClose)
		return
	}

	if m.cred == nil {
		// Fatal misuse, not a retryable condition.
		m.logger.Error("connect attempted without a credential")
		m.terminal = true
		sock.CloseWithCode(closeMissingCredential, "missing credential")
		m.setStateLocked(StateDisconnected, ReasonMissingCredential)
		return
	}

	m.socket = sock
	m.setStateLocked(StateAwaitingAuth, ReasonTransportOpen)

	// The confirmation must arrive within a bounded window; a server that
	// upgrades but never answers the auth frame is treated like a dead link.
	var at *timerHandle
	at = afterTimer(m.opts.HeartbeatTimeout, func() { m.authTick(gen, at) })
	m.authTimer = at

	go m.readLoop(sock, gen)

	env, err := envelope.New(envelope.TypeAuth, envelope.AuthPayload{Token: m.cred.Token()})
	if err == nil {
		err = m.writeLocked(env)
	}
	if err != nil {
		// The read loop observes the dead socket and drives reconnection.
		m.logger.Warn("auth frame send failed", "error", err)
	}
}

// readLoop consumes inbound frames from one socket until it dies.
func (m *Manager) readLoop(sock Socket, gen uint64) {
	for data := range sock.Messages() {
		m.handleFrame(sock, data, gen)
	}

	var err error
	select {
	case err = <-sock.Errors():
	default:
		err = errConnectionClosed
	}
	m.socketClosed(sock, err, gen)
}

// socketClosed reacts to the read loop exiting. Closure is attributed to
// the socket itself, not just the generation: a force-closed socket's read
// loop can outlive its replacement while draining buffered frames, and its
// eventual exit must not tear down the healthy new link.
func (m *Manager) socketClosed(sock Socket, err error, gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation || sock != m.socket {
		return
	}

	switch m.state {
	case StateAwaitingAuth, StateLive:
		m.logger.Warn("connection lost", "state", m.state, "error", err)
		m.closeSocketLocked(0, "")
		m.scheduleReconnectLocked(ReasonUncleanClose)
	}
}

// handleFrame decodes one inbound frame, applies transport-internal
// bookkeeping, then fans it out to application handlers. A malformed frame
// is logged and dropped; it never crashes the transport. Frames still
// buffered from a socket the manager has already replaced are discarded:
// a stale pong or connection confirmation must not be taken for the
// current link's.
func (m *Manager) handleFrame(sock Socket, data []byte, gen uint64) {
	env, err := envelope.Decode(data)
	if err != nil {
		m.logger.Warn("malformed frame dropped", "error", err)
		return
	}

	m.mu.Lock()
	if gen != m.generation || sock != m.socket {
		m.mu.Unlock()
		return
	}

	switch env.Type {
	case envelope.TypeConnection:
		m.handleConnectionLocked(env, gen)
	case envelope.TypePong:
		m.handlePongLocked(gen)
	case envelope.TypeError:
		if m.state == StateAwaitingAuth {
			var p envelope.ErrorPayload
			json.Unmarshal(env.Payload, &p)
			m.failAuthLocked(p.Message)
		}
	case envelope.TypeRecoveryResponse:
		if m.recovery.inFlight {
			m.recovery.finish()
			m.logger.Info("recovery response received", "trace_id", env.TraceID)
		}
	}
	m.mu.Unlock()

	// Fan out after bookkeeping so handlers observe the updated state.
	m.dispatcher.Dispatch(env)
}

// handleConnectionLocked processes the server's connection confirmation.
func (m *Manager) handleConnectionLocked(env envelope.Envelope, gen uint64) {
	if m.state != StateAwaitingAuth {
		return
	}

	var payload envelope.ConnectionPayload
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			m.logger.Warn("bad connection payload", "error", err)
		}
	}

	if payload.State != envelope.StateConnected {
		// Anything other than an explicit confirmation fails closed.
		m.failAuthLocked(payload.Reason)
		return
	}

	m.goLiveLocked(gen)
}

// failAuthLocked handles a rejected handshake: terminal, never retried.
func (m *Manager) failAuthLocked(reason string) {
	m.logger.Error("authentication rejected", "reason", reason)

	m.terminal = true
	m.generation++
	m.stopLinkTimersLocked()
	m.reconnectTimer.Cancel()
	m.reconnectTimer = nil
	m.closeSocketLocked(closeAuthRejected, "authentication rejected")
	m.setStateLocked(StateDisconnected, ReasonAuthRejected)
}

// goLiveLocked performs the AwaitingAuth -> Live side effects: reset the
// reconnection budget and liveness state, start the heartbeat, flush the
// queue, and trigger recovery after a genuine reconnection.
func (m *Manager) goLiveLocked(gen uint64) {
	m.authTimer.Cancel()
	m.authTimer = nil

	wasReconnect := m.budget.Attempt() > 0
	m.budget.Reset()
	m.liveness.reset(time.Now())
	m.setStateLocked(StateLive, ReasonEstablished)

	m.scheduleProbeLocked(gen)
	m.flushLocked()

	if wasReconnect && m.recovery.shouldRequest() {
		m.requestRecoveryLocked()
	}
}

// requestRecoveryLocked sends one recovery request carrying the cursor.
func (m *Manager) requestRecoveryLocked() {
	cur := m.recovery.cursor
	env, err := envelope.NewRequest(envelope.TypeRecoveryRequest, envelope.RecoveryRequestPayload{
		TableID:      cur.SubjectID,
		StateVersion: cur.StateVersion,
		LastActionID: cur.LastActionID,
	})
	if err != nil {
		m.logger.Error("build recovery request", "error", err)
		return
	}

	m.recovery.begin()
	if err := m.writeLocked(env); err != nil {
		// The request never left; let the next reconnection retry it.
		m.recovery.finish()
		m.logger.Warn("recovery request send failed", "error", err)
		return
	}

	m.logger.Info("recovery requested",
		"subject", cur.SubjectID,
		"state_version", cur.StateVersion,
		"last_action_id", cur.LastActionID,
	)
}

// flushLocked transmits queued frames strictly in admission order. Entries
// leave the queue only after a successful write; a failure halts the flush
// and the remainder stays queued for the next Live transition.
func (m *Manager) flushLocked() {
	for {
		env, ok := m.queue.Peek()
		if !ok {
			return
		}
		if err := m.writeLocked(env); err != nil {
			m.logger.Warn("flush halted", "queued", m.queue.Len(), "error", err)
			return
		}
		m.queue.Dequeue()
	}
}

// writeLocked encodes and writes one frame to the current socket.
func (m *Manager) writeLocked(env envelope.Envelope) error {
	if m.socket == nil {
		return ErrNotConnected
	}
	data, err := env.Encode()
	if err != nil {
		return err
	}
	return m.socket.Send(data)
}

// scheduleProbeLocked arms the next liveness probe at interval +/- jitter.
func (m *Manager) scheduleProbeLocked(gen uint64) {
	m.probeTimer.Cancel()

	d := probePeriod(m.opts.HeartbeatInterval, m.opts.HeartbeatJitter)
	var h *timerHandle
	h = afterTimer(d, func() { m.probeTick(gen, h) })
	m.probeTimer = h
}

// probeTick sends a liveness probe and arms its confirmation timeout.
func (m *Manager) probeTick(gen uint64, h *timerHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h.Canceled() || gen != m.generation || m.state != StateLive {
		return
	}

	env, err := envelope.New(envelope.TypePing, nil)
	if err == nil {
		err = m.writeLocked(env)
	}
	if err != nil {
		m.logger.Debug("liveness probe send failed", "error", err)
	}

	m.confirmTimer.Cancel()
	var ct *timerHandle
	ct = afterTimer(m.opts.HeartbeatTimeout, func() { m.confirmTick(gen, ct) })
	m.confirmTimer = ct
}

// confirmTick fires when a probe went unconfirmed for the full timeout.
func (m *Manager) confirmTick(gen uint64, h *timerHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h.Canceled() || gen != m.generation || m.state != StateLive {
		return
	}

	m.liveness.missed++
	m.logger.Warn("liveness probe unconfirmed",
		"missed", m.liveness.missed,
		"max", m.opts.MaxMissedHeartbeats,
	)

	if m.liveness.missed >= m.opts.MaxMissedHeartbeats {
		m.logger.Error("link declared dead, forcing reconnect",
			"missed", m.liveness.missed,
			"last_confirmation", m.liveness.lastConfirmationAt,
		)
		m.closeSocketLocked(closeLivenessTimeout, "liveness timeout")
		m.scheduleReconnectLocked(ReasonLivenessTimeout)
		return
	}

	// A single miss is normal under transient congestion; probe again.
	m.scheduleProbeLocked(gen)
}

// handlePongLocked records a liveness confirmation.
func (m *Manager) handlePongLocked(gen uint64) {
	if m.state != StateLive {
		return
	}

	m.confirmTimer.Cancel()
	m.confirmTimer = nil
	m.liveness.reset(time.Now())
	m.scheduleProbeLocked(gen)
}

// authTick fires when the server never confirmed the auth handshake.
func (m *Manager) authTick(gen uint64, h *timerHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h.Canceled() || gen != m.generation || m.state != StateAwaitingAuth {
		return
	}

	m.logger.Warn("no connection confirmation, forcing reconnect",
		"timeout", m.opts.HeartbeatTimeout,
	)
	m.closeSocketLocked(0, "")
	m.scheduleReconnectLocked(ReasonUncleanClose)
}

// stopLinkTimersLocked cancels the liveness and auth-confirmation timers.
func (m *Manager) stopLinkTimersLocked() {
	m.probeTimer.Cancel()
	m.confirmTimer.Cancel()
	m.authTimer.Cancel()
	m.probeTimer = nil
	m.confirmTimer = nil
	m.authTimer = nil
}

// scheduleReconnectLocked arms the backoff timer for the next attempt, or
// gives up when the budget is exhausted.
func (m *Manager) scheduleReconnectLocked(reason Reason) {
	m.stopLinkTimersLocked()
	m.reconnectTimer.Cancel()

	if m.budget.Exhausted() {
		m.terminal = true
		m.logger.Error("reconnection budget exhausted", "attempts", m.budget.Attempt())
		m.setStateLocked(StateDisconnected, ReasonRetriesExhausted)
		return
	}

	delay := m.budget.Next()
	m.setStateLocked(StateReconnecting, reason)

	gen := m.generation
	var h *timerHandle
	h = afterTimer(delay, func() { m.reconnectTick(gen, h) })
	m.reconnectTimer = h

	m.logger.Info("reconnect scheduled",
		"attempt", m.budget.Attempt(),
		"delay", delay,
	)
}

// reconnectTick fires when the backoff delay elapses.
func (m *Manager) reconnectTick(gen uint64, h *timerHandle) {
	m.mu.Lock()
	if h.Canceled() || gen != m.generation || m.state != StateReconnecting {
		m.mu.Unlock()
		return
	}
	m.setStateLocked(StateConnecting, ReasonRetry)
	m.mu.Unlock()

	m.dial(gen)
}

// setStateLocked mutates the connection state and publishes the change on
// the notification stream without blocking.
func (m *Manager) setStateLocked(state State, reason Reason) {
	m.state = state
	m.logger.Info("connection state changed",
		"state", state,
		"reason", string(reason),
		"attempt", m.budget.Attempt(),
	)

	change := StateChange{State: state, Reason: reason, Attempt: m.budget.Attempt()}
	select {
	case m.notify <- change:
	default:
		m.logger.Warn("state notification dropped, consumer too slow", "state", state)
	}
}

// closeSocketLocked closes and releases the current socket, if any. A zero
// code means a normal closure.
func (m *Manager) closeSocketLocked(code int, reason string) {
	if m.socket == nil {
		return
	}
	if code == 0 {
		m.socket.Close()
	} else {
		m.socket.CloseWithCode(code, reason)
	}
	m.socket = nil
}

// sanitizeAddress validates the server address and strips any query
// parameters: credentials and connection identifiers must never travel in
// a URL where intermediary logs could capture them.
func sanitizeAddress(address string) (string, error) {
	u, err := url.Parse(address)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadAddress, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("%w: scheme %q", ErrBadAddress, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrBadAddress)
	}

	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}
