package hooks

import (
	"testing"
	"time"
)

func TestDurationTrackerRollingAverage(t *testing.T) {
	tracker := NewDurationTracker()

	if got := tracker.Estimate("build"); got != 0 {
		t.Errorf("Estimate() before any sample = %v, want 0", got)
	}

	tracker.Record("build", 10*time.Second)
	tracker.Record("build", 20*time.Second)

	if got := tracker.Estimate("build"); got != 15*time.Second {
		t.Errorf("Estimate() = %v, want 15s", got)
	}
	if got := tracker.Observations("build"); got != 2 {
		t.Errorf("Observations() = %d, want 2", got)
	}
	if got := tracker.Observations("other"); got != 0 {
		t.Errorf("Observations(other) = %d, want 0", got)
	}
}

func TestTriggerValid(t *testing.T) {
	for _, trig := range Triggers() {
		if !trig.Valid() {
			t.Errorf("Valid(%s) = false, want true", trig)
		}
	}
	if Trigger("made_up").Valid() {
		t.Error("Valid(made_up) = true, want false")
	}
}
