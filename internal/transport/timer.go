package transport

import "time"

// timerHandle wraps a one-shot timer so cancellation is an explicit,
// observable operation. The canceled flag is guarded by the Manager's
// mutex: Cancel is called with it held, and timer callbacks re-check
// Canceled after acquiring it, so a callback that was already in flight
// when Cancel ran becomes a no-op.
type timerHandle struct {
	timer    *time.Timer
	canceled bool
}

// afterTimer schedules fn once after d and returns its handle.
func afterTimer(d time.Duration, fn func()) *timerHandle {
	return &timerHandle{timer: time.AfterFunc(d, fn)}
}

// Cancel stops the timer. Safe on a nil handle.
func (h *timerHandle) Cancel() {
	if h == nil {
		return
	}
	h.canceled = true
	h.timer.Stop()
}

// Canceled reports whether the handle was canceled (or never armed).
func (h *timerHandle) Canceled() bool {
	return h == nil || h.canceled
}
