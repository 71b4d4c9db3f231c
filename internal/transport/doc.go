// Package transport implements the real-time session transport: a durable,
// authenticated WebSocket channel to the game server that survives network
// interruptions and resynchronizes state after reconnecting.
//
// The Manager:
//   - Owns the socket and the connection state machine
//   - Authenticates immediately after the transport opens
//   - Probes liveness with jittered application-level pings
//   - Buffers outbound frames while the link is down and flushes them in order
//   - Requests state recovery after a genuine reconnection
//   - Fans inbound frames out to handlers registered by frame type
package transport
