// File: api/events.go
// Package api defines the callback events delivered to a ClientConn's
// registered recipients.
// Author: momentics <momentics@gmail.com>

package api

// CallbackEvent is the marker interface implemented by every event that
// session.Broadcast delivers to a registered callback recipient. Consumers
// type-switch on the concrete type; the set is closed and total, mirroring
// the bridge's own return-contract dispatch. The runtime in this module does
// not call session.Broadcast, so none of these events is delivered during a
// connection's life.
type CallbackEvent interface {
	callbackEvent()
}

// ConnectionUpEvent reports the subprotocol negotiated at upgrade (or none).
type ConnectionUpEvent struct {
	Protocol string
}

// ConnectionDownEvent reports a lost transport and its reason.
type ConnectionDownEvent struct {
	Reason DisconnectReason
}

// WebSocketUpgradeEvent reports a completed WebSocket handshake.
type WebSocketUpgradeEvent struct {
	StreamRef string
	Headers   map[string][]string
}

// WebSocketFrameEvent carries a decoded inbound frame.
type WebSocketFrameEvent struct {
	StreamRef string
	Frame     Frame
}

// ErrorEvent surfaces a transport or protocol error tied to a stream.
type ErrorEvent struct {
	StreamRef string
	Reason    error
}

// HTTPResponseEvent surfaces the upgrade response's status/headers, for
// consumers that want to inspect the handshake itself.
type HTTPResponseEvent struct {
	StreamRef string
	Final     bool
	Status    int
	Headers   map[string][]string
}

// HTTPDataEvent carries any body bytes observed during the upgrade exchange.
type HTTPDataEvent struct {
	StreamRef string
	Final     bool
	Data      []byte
}

func (ConnectionUpEvent) callbackEvent()      {}
func (ConnectionDownEvent) callbackEvent()    {}
func (WebSocketUpgradeEvent) callbackEvent()  {}
func (WebSocketFrameEvent) callbackEvent()    {}
func (ErrorEvent) callbackEvent()             {}
func (HTTPResponseEvent) callbackEvent()      {}
func (HTTPDataEvent) callbackEvent()          {}
