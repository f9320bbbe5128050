package fallback

import (
	"testing"
	"time"
)

// TestTracker_Rate verifies counts inside the window.
func TestTracker_Rate(t *testing.T) {
	tr := NewTracker()
	tr.RecordLive()
	tr.RecordLive()
	tr.RecordSynthetic()

	syn, total := tr.Rate(time.Minute)
	if syn != 1 || total != 3 {
		t.Fatalf("Rate = (%d, %d), want (1, 3)", syn, total)
	}
}

// TestTracker_SyntheticPct verifies percentage calculation and the empty case.
func TestTracker_SyntheticPct(t *testing.T) {
	tr := NewTracker()
	if got := tr.SyntheticPct(time.Minute); got != 0 {
		t.Fatalf("empty SyntheticPct = %d, want 0", got)
	}

	tr.RecordSynthetic()
	tr.RecordSynthetic()
	tr.RecordSynthetic()
	tr.RecordLive()
	if got := tr.SyntheticPct(time.Minute); got != 75 {
		t.Fatalf("SyntheticPct = %d, want 75", got)
	}
}

// TestTracker_WindowExcludesOld verifies outcomes age out of the window.
func TestTracker_WindowExcludesOld(t *testing.T) {
	tr := NewTracker()
	tr.RecordSynthetic()
	time.Sleep(30 * time.Millisecond)
	tr.RecordLive()

	syn, total := tr.Rate(20 * time.Millisecond)
	if syn != 0 || total != 1 {
		t.Fatalf("Rate = (%d, %d), want (0, 1)", syn, total)
	}
}

// TestTracker_Reset verifies all state clears.
func TestTracker_Reset(t *testing.T) {
	tr := NewTracker()
	tr.RecordLive()
	tr.RecordSynthetic()
	tr.Reset()

	if _, total := tr.Rate(time.Minute); total != 0 {
		t.Fatalf("total after reset = %d, want 0", total)
	}
}
