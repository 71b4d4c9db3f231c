package transport

// State is the connection state, owned exclusively by the Manager.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateAwaitingAuth
	StateLive
	StateReconnecting
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAwaitingAuth:
		return "awaiting_auth"
	case StateLive:
		return "live"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Reason explains why a state transition happened.
type Reason string

const (
	ReasonConnectRequested  Reason = "connect_requested"
	ReasonTransportOpen     Reason = "transport_open"
	ReasonEstablished       Reason = "established"
	ReasonCleanClose        Reason = "clean_close"
	ReasonUncleanClose      Reason = "unclean_close"
	ReasonLivenessTimeout   Reason = "liveness_timeout"
	ReasonAuthRejected      Reason = "auth_rejected"
	ReasonMissingCredential Reason = "missing_credential"
	ReasonRetriesExhausted  Reason = "retries_exhausted"
	ReasonRetry             Reason = "retry"
)

// Fatal reports whether the reason marks a terminal failure that will not
// be retried automatically.
func (r Reason) Fatal() bool {
	switch r {
	case ReasonAuthRejected, ReasonMissingCredential, ReasonRetriesExhausted:
		return true
	}
	return false
}

// StateChange is a read-only notification of a connection state transition.
type StateChange struct {
	State   State
	Reason  Reason
	Attempt int // reconnection attempt counter at the time of the change
}
