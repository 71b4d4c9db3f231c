// Package dispatch fans decoded inbound frames out to registered handlers,
// keyed by frame type. Dispatch is synchronous and preserves both wire
// order and handler registration order.
package dispatch
