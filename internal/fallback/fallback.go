// Package fallback tracks how often results were served live versus from the
// synthetic generator. The health endpoint reports degraded when the
// synthetic share inside a sliding window breaches the configured threshold.
package fallback

import (
	"sync"
	"time"
)

// Tracker maintains sliding windows of serve-outcome timestamps. Constructed
// per service instance rather than held in package state so independent
// instances (and tests) do not share counters.
type Tracker struct {
	mu             sync.Mutex
	liveTimes      []time.Time
	syntheticTimes []time.Time
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// RecordLive records a result served from the live upstream.
func (t *Tracker) RecordLive() {
	t.record(&t.liveTimes)
}

// RecordSynthetic records a result served from the synthetic generator.
func (t *Tracker) RecordSynthetic() {
	t.record(&t.syntheticTimes)
}

// Rate returns (synthetic, total) serve counts within the window.
func (t *Tracker) Rate(window time.Duration) (synthetic, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := time.Now().Add(-window)
	syn := countInWindow(t.syntheticTimes, cutoff)
	live := countInWindow(t.liveTimes, cutoff)
	return syn, syn + live
}

// SyntheticPct returns the synthetic share within the window as a percentage,
// or 0 when nothing was served.
func (t *Tracker) SyntheticPct(window time.Duration) int {
	syn, total := t.Rate(window)
	if total == 0 {
		return 0
	}
	return syn * 100 / total
}

// Reset clears all recorded outcomes. For tests only.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.liveTimes = nil
	t.syntheticTimes = nil
}

func (t *Tracker) record(slice *[]time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	*slice = append(*slice, now)
	t.pruneLocked(now)
}

func countInWindow(times []time.Time, cutoff time.Time) int {
	n := 0
	for _, ts := range times {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// pruneLocked drops timestamps older than 5 minutes. Must hold mu.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-5 * time.Minute)
	prune := func(slice *[]time.Time) {
		times := *slice
		i := 0
		for ; i < len(times) && times[i].Before(cutoff); i++ {
		}
		if i > 0 {
			*slice = append(times[:0], times[i:]...)
		}
	}
	prune(&t.liveTimes)
	prune(&t.syntheticTimes)
}
