// Package api
// Author: momentics <momentics@gmail.com>
//
// ConnectionState is transport-local state, discarded and rebuilt on every
// reconnect. By construction it carries no credentials, no subscriptions,
// and no user adapter state: the two-layer split between durable session
// state and transient transport state is enforced here simply by not
// giving this struct fields to hold that data.

package api

import "time"

// StreamKind identifies what a stream in ConnectionState.ActiveStreams is
// for; today only "websocket" is produced, but the field exists so a future
// extension (e.g. a plain HTTP stream during upgrade) has somewhere to live.
type StreamKind string

const StreamWebSocket StreamKind = "websocket"

// StreamMeta is the metadata kept per active stream.
type StreamMeta struct {
	Kind      StreamKind
	CreatedAt time.Time
}

// Transport is the minimal contract ConnectionState needs from its
// transport handle; transportio.Transport implements it over
// gorilla/websocket.
type Transport interface {
	Send(Frame) error
	Close() error
}

// ConnectionState is rebuilt fresh every time a new transport is dialed.
type ConnectionState struct {
	Transport      Transport
	Monitored      bool // true once a monitor goroutine is watching Transport
	Status         ConnState
	ActiveStreams  map[string]StreamMeta // stream ref -> metadata
	LastError      error
	BoundCallback  string // recipient name bound as the single transport-level callback target
}

// NewConnectionState returns a fresh, initialized ConnectionState.
func NewConnectionState() *ConnectionState {
	return &ConnectionState{
		Status:        StateInitialized,
		ActiveStreams: make(map[string]StreamMeta),
	}
}

// MainStreamRef returns the first websocket-typed stream ref, or "" if none,
// the main WebSocket stream reference StateSync resolves against.
func (s *ConnectionState) MainStreamRef() string {
	for ref, meta := range s.ActiveStreams {
		if meta.Kind == StreamWebSocket {
			return ref
		}
	}
	return ""
}
