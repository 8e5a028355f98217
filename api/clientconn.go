// Package api
// Author: momentics <momentics@gmail.com>
//
// ClientConn is the canonical, per-connection session state that survives
// reconnection. It is pure data: the api package defines the shape, the
// session package owns mutation and the invariants around it.
// ConnectionRuntime is the only writer; all other observers read a
// Snapshot(), never the live pointer.

package api

// Credentials is a free-form, write-only-to-the-actor credential bag. It is
// never logged and never serialized by anything outside an AuthHandler.
type Credentials map[string]any

// ReconnectionPolicy configures the ReconnectionStrategy used by this
// connection.
type ReconnectionPolicy struct {
	Strategy     BackoffKind
	BaseDelay    int64 // ms
	MaxDelay     int64 // ms
	MaxAttempts  int   // -1 means unbounded (∞)
	JitterFactor float64
}

// HandlerSet names the eight pluggable behavior implementations by
// reference; ClientConn stores the implementations themselves rather than
// any state belonging to them.
type HandlerSet struct {
	Connection   ConnectionHandler
	Message      MessageHandler
	Error        ErrorHandler
	Auth         AuthHandler
	Subscription SubscriptionHandler
	RateLimit    RateLimitHandler
	Logging      LoggingHandler
	Metrics      MetricsCollector
}

// ClientConn is the canonical session. The two load-bearing invariants
// enforced by callers rather than the type system are: ID never changes
// after construction, and Callbacks never contains a duplicate recipient.
type ClientConn struct {
	ID            string
	Endpoints     []Endpoint
	Credentials   Credentials
	AdapterState  map[string]any
	Subscriptions map[string]*Subscription // keyed by subscription ID
	Handlers      HandlerSet
	Callbacks     map[string]chan CallbackEvent // recipient name -> channel
	Reconnection  ReconnectionPolicy
	LastError     error
	Settings      map[string]map[string]any // per-behavior settings bags
}

// NewClientConn constructs an empty, valid ClientConn for the given stable
// ID. Callers fill in Endpoints/Handlers/Credentials before first dial.
func NewClientConn(id string) *ClientConn {
	return &ClientConn{
		ID:            id,
		AdapterState:  make(map[string]any),
		Subscriptions: make(map[string]*Subscription),
		Callbacks:     make(map[string]chan CallbackEvent),
		Settings:      make(map[string]map[string]any),
	}
}

// Snapshot returns a shallow copy safe for concurrent external reads.
// Endpoints, AdapterState, Subscriptions (with each History) and Callbacks
// are copied one level deep; Credentials is cleared; Settings, behavior
// implementations and channel values are shared by reference. External readers get a snapshot, never a
// mutable handle, for the scalar/collection fields that matter to status
// queries.
func (c *ClientConn) Snapshot() ClientConn {
	cp := *c
	cp.Credentials = nil // credentials never leave the actor boundary except via AuthHandler
	cp.Endpoints = append([]Endpoint(nil), c.Endpoints...)
	cp.AdapterState = copyAnyMap(c.AdapterState)
	cp.Subscriptions = make(map[string]*Subscription, len(c.Subscriptions))
	for k, v := range c.Subscriptions {
		sub := *v
		sub.History = append([]SubscriptionEvent(nil), v.History...)
		cp.Subscriptions[k] = &sub
	}
	cp.Callbacks = make(map[string]chan CallbackEvent, len(c.Callbacks))
	for k, v := range c.Callbacks {
		cp.Callbacks[k] = v
	}
	return cp
}

func copyAnyMap(m map[string]any) map[string]any {
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
