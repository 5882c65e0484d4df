package worker

import (
	"time"
)

// Deduplicator suppresses re-submission of the same plate text within a
// time window. State is owned by exactly one camera worker, so no locking;
// two cameras seeing the same plate are deliberately not deduplicated
// against each other.
//
// The timestamp is recorded only after a successful submission
// (MarkSubmitted), so a dropped event is naturally retried on the next
// frame instead of being silenced for a full window.
type Deduplicator struct {
	window        time.Duration
	lastSubmitted map[string]time.Time
}

func NewDeduplicator(window time.Duration) *Deduplicator {
	return &Deduplicator{
		window:        window,
		lastSubmitted: make(map[string]time.Time),
	}
}

// ShouldSubmit reports whether the plate is outside its suppression window.
func (d *Deduplicator) ShouldSubmit(plateText string, now time.Time) bool {
	last, ok := d.lastSubmitted[plateText]
	if !ok {
		return true
	}
	return now.Sub(last) > d.window
}

// MarkSubmitted records a successful submission.
func (d *Deduplicator) MarkSubmitted(plateText string, now time.Time) {
	d.lastSubmitted[plateText] = now
}
