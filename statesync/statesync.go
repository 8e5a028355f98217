// Package statesync implements the ClientConn <-> ConnectionState
// synchronization and callback-binding functions, as free functions over the
// two plain-data structs in api: no method receivers, no implicit state.
// Generalized from small stateless helper functions like
// protocol.DecodeFrameFromBytes rather than any one stateful type.
// Author: momentics <momentics@gmail.com>
package statesync

import "github.com/momentics/wsconnect/api"

// TransportConfig is what a ConnectionRuntime needs to dial: the ordered
// endpoint set, one callback target, and the handler references a fresh
// ConnectionState's behaviors will be invoked through.
type TransportConfig struct {
	Endpoints    []api.Endpoint
	Subprotocols []string
	Callback     chan api.CallbackEvent
	Handlers     api.HandlerSet
}

// ExtractTransportState reads the fields a dial needs out of a ClientConn.
// "one callback target" picks an arbitrary registered recipient when more
// than one exists; callers that need a specific recipient should pass it
// explicitly rather than relying on this.
func ExtractTransportState(conn *api.ClientConn, subprotocols []string) TransportConfig {
	cfg := TransportConfig{
		Endpoints:    append([]api.Endpoint(nil), conn.Endpoints...),
		Subprotocols: subprotocols,
		Handlers:     conn.Handlers,
	}
	for _, ch := range conn.Callbacks {
		cfg.Callback = ch
		break
	}
	return cfg
}

// UpdateClientConnFromTransport propagates status, last error, and the main
// WebSocket stream reference from state back onto conn.
func UpdateClientConnFromTransport(conn *api.ClientConn, state *api.ConnectionState) {
	conn.LastError = state.LastError
	if conn.AdapterState == nil {
		conn.AdapterState = make(map[string]any)
	}
	conn.AdapterState["status"] = state.Status
	conn.AdapterState["main_stream_ref"] = state.MainStreamRef()
}

// SyncConnectionStateFromClient changes nothing on state: ConnectionState
// holds no configuration-derived fields to rewrite from conn, and its
// transport handle, monitor flag, and active streams are left as they are.
func SyncConnectionStateFromClient(state *api.ConnectionState, conn *api.ClientConn) {
	_ = conn // nothing configuration-derived currently lives outside state today;
	// kept as a parameter so a future per-connection option (e.g. a runtime
	// read/write deadline) has somewhere to flow from without an API break.
}

// RegisterCallback mirrors session.RegisterCallback but also binds the
// recipient as ConnectionState's single transport-level callback target
// when none is bound yet.
func RegisterCallback(conn *api.ClientConn, state *api.ConnectionState, name string, ch chan api.CallbackEvent) {
	conn.Callbacks[name] = ch
	if state.BoundCallback == "" {
		state.BoundCallback = name
	}
}

// UnregisterCallback mirrors session.UnregisterCallback but also clears
// ConnectionState's bound callback target if the removed recipient was it.
func UnregisterCallback(conn *api.ClientConn, state *api.ConnectionState, name string) {
	delete(conn.Callbacks, name)
	if state.BoundCallback == name {
		state.BoundCallback = ""
	}
}

// CreateClientConn builds (or reuses) a ClientConn during ownership
// transfer: if existing is non-nil its identity and configuration are kept,
// otherwise a fresh ClientConn is minted from state's main stream alone.
func CreateClientConn(existing *api.ClientConn, state *api.ConnectionState) *api.ClientConn {
	if existing != nil {
		UpdateClientConnFromTransport(existing, state)
		return existing
	}
	conn := api.NewClientConn("")
	UpdateClientConnFromTransport(conn, state)
	return conn
}
