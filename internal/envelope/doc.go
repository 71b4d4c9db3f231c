// Package envelope defines the wire format shared by every frame the
// transport exchanges with the game server: a thin JSON header carrying
// the frame type, timing, and trace identifiers around an opaque payload.
package envelope
