// Package api
// Author: momentics <momentics@gmail.com>
//
// The eight pluggable behavior contracts BehaviorBridge dispatches to.
// Every method set is total: defaults for each live in the behavior
// package so a consumer can embed behavior.Default* and override a single
// method.

package api

// ConnectionHandler reacts to transport-up, websocket-upgrade, and
// transport-down events.
type ConnectionHandler interface {
	HandleConnect(conn *ClientConn, protocol string, streamRef string, headers map[string][]string) ConnectDirective
	HandleDisconnect(conn *ClientConn, reason DisconnectReason) DisconnectDirective
}

// MessageHandler encodes/decodes/validates and reacts to application
// messages carried over text frames, and to raw frames of any type.
type MessageHandler interface {
	HandleFrame(conn *ClientConn, frame Frame) FrameDirective
	ValidateMessage(conn *ClientConn, raw map[string]any) error
	HandleMessage(conn *ClientConn, msg map[string]any) MessageDirective
	EncodeMessage(conn *ClientConn, msg any) (Frame, error)
}

// ErrorHandler logs and reacts to transport/protocol errors.
type ErrorHandler interface {
	LogError(conn *ClientConn, kind ErrorKind, err error)
	HandleError(conn *ClientConn, kind ErrorKind, err error) ErrorDirective
}

// AuthHandler builds and validates authentication requests. Credentials
// never leave the actor boundary except through this interface.
type AuthHandler interface {
	BuildAuthRequest(conn *ClientConn, creds Credentials) (Frame, error)
	HandleAuthResult(conn *ClientConn, msg map[string]any) error
}

// SubscriptionHandler builds subscribe/unsubscribe requests and recognizes
// their acknowledgements in inbound messages.
type SubscriptionHandler interface {
	BuildSubscribeRequest(conn *ClientConn, sub *Subscription) (Frame, error)
	BuildUnsubscribeRequest(conn *ClientConn, sub *Subscription) (Frame, error)
	MatchAck(conn *ClientConn, msg map[string]any) (subscriptionID string, confirmed bool, ok bool)
}

// RateLimitHandler lets a consumer set request priority without
// reimplementing the token bucket itself. The runtime calls PriorityOf for
// every outbound request; it does not call CostOf, since request costs come
// from ratelimit.Config.CostMap.
type RateLimitHandler interface {
	CostOf(kind RequestKind) int
	PriorityOf(kind RequestKind) int
}

// LoggingHandler receives log events from the runtime. The runtime calls
// LogEvent when a reply_many directive is cut to its first reply; it does
// not call LogTransition on state changes. The default implementation logs
// through logrus.
type LoggingHandler interface {
	LogTransition(connID string, from, to ConnState)
	LogEvent(connID string, message string, fields map[string]any)
}

// MetricsCollector is a minimal counter/histogram interface metrics sinks
// implement. The default implementation is backed by prometheus/client_golang.
type MetricsCollector interface {
	IncCounter(name string, labels map[string]string)
	ObserveHistogram(name string, labels map[string]string, value float64)
}
