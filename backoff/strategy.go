// Package backoff implements three ReconnectionStrategy delay formulas.
// Each exposes the identical delay(attempt) -> ms signature so
// ConnectionManager can swap strategies without caring which one is
// configured, in the spirit of small, interchangeable single-purpose
// structs like control.MetricsRegistry / DebugProbes.
// Author: momentics <momentics@gmail.com>
package backoff

import (
	"math/rand"
	"time"
)

// Strategy computes the delay before reconnect attempt N (1-based).
type Strategy interface {
	// Delay returns the backoff in milliseconds for the given 1-based
	// attempt number.
	Delay(attempt int) int64
	// MaxRetries reports the attempt count beyond which a caller must treat
	// the connection as terminally exhausted. -1 means unbounded.
	MaxRetries() int
}

// Linear always returns BaseDelay, capped by MaxAttempts.
type Linear struct {
	BaseDelay   int64
	MaxAttempts int
}

func (l Linear) Delay(attempt int) int64 { return l.BaseDelay }
func (l Linear) MaxRetries() int         { return l.MaxAttempts }

// Exponential doubles per attempt, capped at MaxDelay, with bounded jitter
// sampled uniformly in [0.8*raw, raw] to mitigate thundering-herd
// reconnect storms against a single exchange endpoint.
type Exponential struct {
	BaseDelay   int64
	MaxDelay    int64
	MaxAttempts int
	// Rand is used for jitter sampling; nil uses the package-level source.
	Rand *rand.Rand
}

func (e Exponential) Delay(attempt int) int64 {
	raw := e.BaseDelay
	for i := 1; i < attempt; i++ {
		raw *= 2
		if raw >= e.MaxDelay {
			raw = e.MaxDelay
			break
		}
	}
	if raw > e.MaxDelay {
		raw = e.MaxDelay
	}
	lo := float64(raw) * 0.8
	span := float64(raw) - lo
	return int64(lo + e.rand().Float64()*span)
}

func (e Exponential) MaxRetries() int { return e.MaxAttempts }

func (e Exponential) rand() *rand.Rand {
	if e.Rand != nil {
		return e.Rand
	}
	return globalRand
}

// Jittered adds uniform jitter on top of a linear ramp: base*attempt plus
// U(0, base*jitter_factor).
type Jittered struct {
	BaseDelay    int64
	JitterFactor float64
	MaxAttempts  int
	Rand         *rand.Rand
}

func (j Jittered) Delay(attempt int) int64 {
	raw := j.BaseDelay * int64(attempt)
	jitterSpan := float64(j.BaseDelay) * j.JitterFactor
	return raw + int64(j.rand().Float64()*jitterSpan)
}

func (j Jittered) MaxRetries() int { return j.MaxAttempts }

func (j Jittered) rand() *rand.Rand {
	if j.Rand != nil {
		return j.Rand
	}
	return globalRand
}

var globalRand = rand.New(rand.NewSource(time.Now().UnixNano()))
