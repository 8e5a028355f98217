// File: client/options.go
// Author: momentics <momentics@gmail.com>
//
// ConnectionOptions is the raw, caller-facing configuration for Open.
// ParseAndValidate fills in the documented defaults and rejects invalid
// combinations; everything it retains lands on Normalized, the only shape
// the rest of this package looks at.

package client

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/momentics/wsconnect/api"
	"github.com/momentics/wsconnect/ratelimit"
	"github.com/momentics/wsconnect/supervisor"
)

// RetryInfinite is the ∞ sentinel for ConnectionOptions.Retry.
const RetryInfinite = -1

// TransportOpts holds the dial-level settings: TLS configuration, as
// distinct from per-behavior settings bags. The 5s bound on the
// dial+handshake itself is fixed, not configurable here.
type TransportOpts struct {
	TLSConfig *tls.Config
}

// ConnectionOptions is the closed whitelist of keys Open accepts.
// Anything not named here belongs in a per-handler settings bag
// (api.ClientConn.Settings), never bolted onto this struct.
type ConnectionOptions struct {
	Endpoints     []api.Endpoint
	Transport     api.TransportKind
	TransportOpts TransportOpts
	Protocols     []string
	Retry         int // non-negative, or RetryInfinite
	Headers       http.Header
	Reconnection  api.ReconnectionPolicy
	Handlers      api.HandlerSet
	RateLimit     ratelimit.Config
	Settings      map[string]map[string]any

	HandshakeTimeout        time.Duration
	SubscriptionTimeout     time.Duration
	RateLimiterTickInterval time.Duration

	// Restart bounds ConnectionSupervisor's restart budget for this
	// connection. The zero value is replaced by 5 restarts within 60
	// seconds; MaxRestarts == 0 with a non-zero MaxSeconds means Supervise
	// never rebuilds.
	Restart supervisor.RestartPolicy
}

// Normalized is the validated, defaulted result of ParseAndValidate, the
// only form ConnectionOptions takes once it crosses into Open.
type Normalized struct {
	Endpoints               []api.Endpoint
	TransportOpts           TransportOpts
	Protocols               []string
	Retry                   int
	Headers                 http.Header
	Reconnection            api.ReconnectionPolicy
	Handlers                api.HandlerSet
	RateLimit               ratelimit.Config
	Settings                map[string]map[string]any
	HandshakeTimeout        time.Duration
	SubscriptionTimeout     time.Duration
	RateLimiterTickInterval time.Duration
	Restart                 supervisor.RestartPolicy
}

// ParseAndValidate normalizes and validates opts, applying the documented
// defaults: protocols=[http], retry=5, backoff_type=exponential,
// base_backoff=1000ms.
func (o ConnectionOptions) ParseAndValidate() (Normalized, error) {
	if len(o.Endpoints) == 0 {
		return Normalized{}, api.NewError(api.ErrCodeInvalidArgument, "at least one endpoint is required")
	}
	switch o.Transport {
	case api.TransportPlaintext, api.TransportTLS:
	default:
		return Normalized{}, api.NewError(api.ErrCodeInvalidArgument, "transport must be plaintext or TLS")
	}

	endpoints := make([]api.Endpoint, len(o.Endpoints))
	for i, ep := range o.Endpoints {
		if ep.Transport != api.TransportPlaintext && ep.Transport != api.TransportTLS {
			ep.Transport = o.Transport
		}
		endpoints[i] = ep
	}

	protocols := o.Protocols
	if protocols == nil {
		protocols = []string{"http"}
	}

	retry := o.Retry
	if retry == 0 {
		retry = 5
	}
	if retry < 0 && retry != RetryInfinite {
		return Normalized{}, api.NewError(api.ErrCodeInvalidArgument, "retry must be non-negative or infinite")
	}

	reconnection := o.Reconnection
	if reconnection.BaseDelay == 0 {
		reconnection.Strategy = api.BackoffExponential
		reconnection.BaseDelay = 1000
		reconnection.MaxDelay = 30000
	}
	if reconnection.BaseDelay <= 0 {
		return Normalized{}, api.NewError(api.ErrCodeInvalidArgument, "base_backoff must be a positive integer")
	}
	if reconnection.MaxAttempts == 0 {
		reconnection.MaxAttempts = retry
	}

	restart := o.Restart
	if restart.MaxRestarts == 0 && restart.MaxSeconds == 0 {
		restart = supervisor.RestartPolicy{MaxRestarts: 5, MaxSeconds: 60}
	}

	handshakeTimeout := o.HandshakeTimeout
	if handshakeTimeout == 0 {
		handshakeTimeout = 5 * time.Second
	}
	subscriptionTimeout := o.SubscriptionTimeout
	if subscriptionTimeout == 0 {
		subscriptionTimeout = 30 * time.Second
	}
	rateLimiterTick := o.RateLimiterTickInterval
	if rateLimiterTick == 0 {
		rateLimiterTick = 100 * time.Millisecond
	}

	return Normalized{
		Endpoints:               endpoints,
		TransportOpts:           o.TransportOpts,
		Protocols:               protocols,
		Retry:                   retry,
		Headers:                 o.Headers,
		Reconnection:            reconnection,
		Handlers:                o.Handlers,
		RateLimit:               o.RateLimit,
		Settings:                o.Settings,
		HandshakeTimeout:        handshakeTimeout,
		SubscriptionTimeout:     subscriptionTimeout,
		RateLimiterTickInterval: rateLimiterTick,
		Restart:                 restart,
	}, nil
}
