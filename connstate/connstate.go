// Package connstate provides the free functions that mutate
// api.ConnectionState's transport-local bookkeeping: active stream
// registration and the main-stream-ref contract StateSync relies on. Kept
// separate from connmanager because "track active streams" and "decide
// the next lifecycle state" are distinct concerns, and because
// ownership-transfer code only needs this half.
// Author: momentics <momentics@gmail.com>
package connstate

import (
	"time"

	"github.com/momentics/wsconnect/api"
)

// RegisterStream adds a new active stream, keyed by an opaque ref (the
// runtime mints a fresh UUID for each upgraded connection).
func RegisterStream(state *api.ConnectionState, ref string, kind api.StreamKind) {
	state.ActiveStreams[ref] = api.StreamMeta{Kind: kind, CreatedAt: time.Now()}
}

// RemoveStream drops a stream, e.g. once its close handshake completes.
func RemoveStream(state *api.ConnectionState, ref string) {
	delete(state.ActiveStreams, ref)
}

// ClearStreams discards every tracked stream; called when a transport is
// torn down so the next reconnect starts from an empty ConnectionState:
// transport-local state does not survive reconnects.
func ClearStreams(state *api.ConnectionState) {
	state.ActiveStreams = make(map[string]api.StreamMeta)
}

// HasStream reports whether ref is currently tracked.
func HasStream(state *api.ConnectionState, ref string) bool {
	_, ok := state.ActiveStreams[ref]
	return ok
}

// Reset tears a ConnectionState down to its post-disconnect shape: streams
// cleared, transport handle dropped, no longer monitored. The Status field
// is left for connmanager.Transition to set.
func Reset(state *api.ConnectionState) {
	ClearStreams(state)
	state.Transport = nil
	state.Monitored = false
}
