package actor

// Join is a count-down barrier over a fixed respondent set, captured at
// construction. Ack marks one respondent and reports true exactly once,
// when the last expected respondent has answered. Duplicate acks and acks
// from ids outside the captured set are ignored, so a stray or repeated
// acknowledgment can never cause early or doubled completion.
//
// Join is used from inside machine Receive methods, which all run on the
// loop's single logical thread, so it needs no locking.
type Join struct {
	pending map[string]struct{}
	fired   bool
}

// NewJoin captures the expected respondent set. An empty set is already
// complete: the first call to Ack (or Done) observes completion, and
// callers expecting zero respondents should check Done immediately.
func NewJoin(ids []string) *Join {
	pending := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		pending[id] = struct{}{}
	}
	return &Join{pending: pending}
}

// Ack records a response from id. Returns true exactly once, on the ack
// that exhausts the set.
func (j *Join) Ack(id string) bool {
	if _, expected := j.pending[id]; !expected {
		return false
	}
	delete(j.pending, id)
	if len(j.pending) == 0 && !j.fired {
		j.fired = true
		return true
	}
	return false
}

// Done reports whether every expected respondent has acked
func (j *Join) Done() bool {
	return len(j.pending) == 0
}

// Pending returns how many respondents have not yet acked
func (j *Join) Pending() int {
	return len(j.pending)
}
