// File: backoff/strategy_test.go
// Author: momentics <momentics@gmail.com>

package backoff

import "testing"

func TestLinearBackoffWithCap(t *testing.T) {
	l := Linear{BaseDelay: 500, MaxAttempts: 3}
	for attempt := 1; attempt <= 3; attempt++ {
		if got := l.Delay(attempt); got != 500 {
			t.Errorf("Delay(%d) = %d, want 500", attempt, got)
		}
	}
	if l.MaxRetries() != 3 {
		t.Errorf("MaxRetries() = %d, want 3", l.MaxRetries())
	}
}

func TestExponentialBackoff(t *testing.T) {
	e := Exponential{BaseDelay: 1000, MaxDelay: 30000, MaxAttempts: 10}

	assertInRange(t, e.Delay(1), 800, 1000)
	assertInRange(t, e.Delay(2), 1600, 2000)
	assertInRange(t, e.Delay(5), 12800, 16000)
	assertInRange(t, e.Delay(10), 24000, 30000)
}

func assertInRange(t *testing.T, got, lo, hi int64) {
	t.Helper()
	if got < lo || got > hi {
		t.Errorf("got %d, want in [%d, %d]", got, lo, hi)
	}
}

func TestJitteredBackoff(t *testing.T) {
	j := Jittered{BaseDelay: 500, JitterFactor: 0.5, MaxAttempts: 5}
	for attempt := 1; attempt <= 5; attempt++ {
		d := j.Delay(attempt)
		lo := int64(500 * attempt)
		hi := lo + int64(500*0.5)
		if d < lo || d > hi {
			t.Errorf("Delay(%d) = %d, want in [%d, %d]", attempt, d, lo, hi)
		}
	}
}
