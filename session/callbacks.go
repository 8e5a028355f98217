// File: session/callbacks.go
// Author: momentics <momentics@gmail.com>
//
// Callback recipient registration, kept a set (no duplicates).

package session

import "github.com/momentics/wsconnect/api"

// RegisterCallback adds (or replaces) a named recipient's event channel.
func RegisterCallback(conn *api.ClientConn, name string, ch chan api.CallbackEvent) {
	conn.Callbacks[name] = ch
}

// UnregisterCallback removes a named recipient.
func UnregisterCallback(conn *api.ClientConn, name string) {
	delete(conn.Callbacks, name)
}

// Broadcast delivers an event to every registered recipient, non-blocking:
// a recipient with a full channel drops the event rather than stalling the
// runtime (the runtime is the single writer and must never block on a slow
// consumer).
func Broadcast(conn *api.ClientConn, evt api.CallbackEvent) {
	for _, ch := range conn.Callbacks {
		select {
		case ch <- evt:
		default:
		}
	}
}
