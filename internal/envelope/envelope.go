package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProtocolVersion is the wire protocol revision this client speaks.
const ProtocolVersion = 1

// System frame types originated by the transport itself. Application
// frame types (game actions, lobby updates) pass through opaquely.
const (
	TypeAuth             = "auth"
	TypeConnection       = "connection"
	TypePing             = "ping"
	TypePong             = "pong"
	TypeRecoveryRequest  = "recovery_request"
	TypeRecoveryResponse = "recovery_response"
	TypeError            = "error"
)

// Connection confirmation states carried in a TypeConnection payload.
const (
	StateConnected = "connected"
	StateRejected  = "rejected"
)

// Errors
var (
	ErrEmptyType = errors.New("envelope type is empty")
)

// Envelope wraps every frame exchanged over the transport.
type Envelope struct {
	Type            string          `json:"type"`
	Timestamp       int64           `json:"timestamp"` // unix ms, stamped by the originating side
	TraceID         string          `json:"traceId"`
	RequestID       string          `json:"requestId,omitempty"` // present only on frames expecting a response
	Payload         json.RawMessage `json:"payload,omitempty"`
	ProtocolVersion int             `json:"protocolVersion"`
}

// New builds an envelope of the given type, stamping the current time and
// a fresh trace ID. payload may be nil for frames with no body.
func New(frameType string, payload any) (Envelope, error) {
	if frameType == "" {
		return Envelope{}, ErrEmptyType
	}

	env := Envelope{
		Type:            frameType,
		Timestamp:       time.Now().UnixMilli(),
		TraceID:         uuid.NewString(),
		ProtocolVersion: ProtocolVersion,
	}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, fmt.Errorf("marshal payload: %w", err)
		}
		env.Payload = data
	}

	return env, nil
}

// NewRequest is New plus a request ID, for frames that expect a matching
// response. The server uses the request ID as an idempotency key.
func NewRequest(frameType string, payload any) (Envelope, error) {
	env, err := New(frameType, payload)
	if err != nil {
		return Envelope{}, err
	}
	env.RequestID = uuid.NewString()
	return env, nil
}

// Encode serializes the envelope to a UTF-8 JSON frame.
func (e Envelope) Encode() ([]byte, error) {
	if e.Type == "" {
		return nil, ErrEmptyType
	}
	return json.Marshal(e)
}

// Decode parses a wire frame into an Envelope.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("parse envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, ErrEmptyType
	}
	return env, nil
}

// AuthPayload carries the session credential inside the first frame sent
// after the socket opens. The credential never travels in a URL.
type AuthPayload struct {
	Token string `json:"token"`
}

// ConnectionPayload is the body of a server TypeConnection confirmation.
type ConnectionPayload struct {
	State  string `json:"state"`
	Reason string `json:"reason,omitempty"`
}

// RecoveryRequestPayload asks the server to replay state the client may
// have missed while disconnected.
type RecoveryRequestPayload struct {
	TableID      string `json:"tableId"`
	StateVersion int64  `json:"stateVersion"`
	LastActionID string `json:"lastActionId,omitempty"`
}

// ErrorPayload is the body of a server TypeError frame.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
