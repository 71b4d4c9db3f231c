package transport

// RecoveryCursor records how far the client believes it has observed state
// for a game subject (e.g. an active table). It is updated by the
// application as it processes state-bearing frames, survives reconnect
// cycles, and is cleared only when the application leaves the subject.
type RecoveryCursor struct {
	SubjectID    string
	StateVersion int64
	LastActionID string
}

// recoveryCoordinator decides when a recovery request may be issued and
// suppresses duplicates while one is in flight.
type recoveryCoordinator struct {
	cursor   RecoveryCursor
	inFlight bool
}

// update replaces the cursor from an application bookkeeping call.
func (r *recoveryCoordinator) update(subjectID string, stateVersion int64, lastActionID string) {
	r.cursor = RecoveryCursor{
		SubjectID:    subjectID,
		StateVersion: stateVersion,
		LastActionID: lastActionID,
	}
}

// clear forgets the subject.
func (r *recoveryCoordinator) clear() {
	r.cursor = RecoveryCursor{}
}

// shouldRequest reports whether a recovery request may be sent now: a
// subject must be set and no request may already be in flight. The caller
// supplies the reconnection condition (attempt > 0 at re-auth).
func (r *recoveryCoordinator) shouldRequest() bool {
	return r.cursor.SubjectID != "" && !r.inFlight
}

// begin marks a request in flight.
func (r *recoveryCoordinator) begin() {
	r.inFlight = true
}

// finish marks the in-flight request answered.
func (r *recoveryCoordinator) finish() {
	r.inFlight = false
}
