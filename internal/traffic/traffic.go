package traffic

import (
	"sync"
	"time"
)

// Outcome classifies one request on the /weather routes.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure" // location unavailable or network error
	OutcomeDenied  Outcome = "denied"  // rate limited (429)
)

// Retention bounds how far back any window query can see.
const Retention = 5 * time.Minute

var defaultTracker = NewTracker()

// Record records one outcome on the process-wide tracker.
func Record(o Outcome) {
	defaultTracker.Record(o)
}

// Count returns the number of o outcomes within the window.
func Count(o Outcome, window time.Duration) int {
	return defaultTracker.Count(o, window)
}

// RequestCount returns all outcomes within the window.
func RequestCount(window time.Duration) int {
	return defaultTracker.RequestCount(window)
}

// FailureRate returns (failures, successes+failures) within the window. Denials are excluded.
func FailureRate(window time.Duration) (failures, total int) {
	return defaultTracker.FailureRate(window)
}

// Reset clears the process-wide tracker. For tests only.
func Reset() {
	defaultTracker.Reset()
}

// Tracker keeps a sliding window of timestamps per outcome.
type Tracker struct {
	mu    sync.Mutex
	times map[Outcome][]time.Time
	now   func() time.Time
}

// NewTracker returns an empty tracker using the wall clock.
func NewTracker() *Tracker {
	return &Tracker{times: make(map[Outcome][]time.Time), now: time.Now}
}

// Record appends the current time for o and prunes entries older than Retention.
func (t *Tracker) Record(o Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.times[o] = append(t.times[o], now)
	t.pruneLocked(now)
}

// Count returns the number of o outcomes not older than window.
func (t *Tracker) Count(o Outcome, window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return countSince(t.times[o], t.now().Add(-window))
}

// RequestCount returns the number of outcomes of any kind not older than window.
func (t *Tracker) RequestCount(window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-window)
	n := 0
	for _, times := range t.times {
		n += countSince(times, cutoff)
	}
	return n
}

// FailureRate returns (failures, successes+failures) not older than window.
func (t *Tracker) FailureRate(window time.Duration) (failures, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-window)
	failures = countSince(t.times[OutcomeFailure], cutoff)
	return failures, failures + countSince(t.times[OutcomeSuccess], cutoff)
}

// Reset clears all outcomes.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.times = make(map[Outcome][]time.Time)
}

func countSince(times []time.Time, cutoff time.Time) int {
	n := 0
	for _, ts := range times {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// pruneLocked drops timestamps older than Retention. Timestamps are appended in order.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-Retention)
	for o, times := range t.times {
		i := 0
		for ; i < len(times) && times[i].Before(cutoff); i++ {
		}
		if i > 0 {
			t.times[o] = append(times[:0], times[i:]...)
		}
	}
}
