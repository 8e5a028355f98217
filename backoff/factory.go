// File: backoff/factory.go
// Author: momentics <momentics@gmail.com>

package backoff

import "github.com/momentics/wsconnect/api"

// FromPolicy builds the Strategy named by an api.ReconnectionPolicy.
func FromPolicy(p api.ReconnectionPolicy) Strategy {
	switch p.Strategy {
	case api.BackoffExponential:
		return Exponential{BaseDelay: p.BaseDelay, MaxDelay: p.MaxDelay, MaxAttempts: p.MaxAttempts}
	case api.BackoffJittered:
		return Jittered{BaseDelay: p.BaseDelay, JitterFactor: p.JitterFactor, MaxAttempts: p.MaxAttempts}
	default:
		return Linear{BaseDelay: p.BaseDelay, MaxAttempts: p.MaxAttempts}
	}
}
