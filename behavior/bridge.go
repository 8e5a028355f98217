// File: behavior/bridge.go
// Author: momentics <momentics@gmail.com>

package behavior

import (
	"encoding/json"
	"errors"

	"github.com/momentics/wsconnect/api"
	"github.com/momentics/wsconnect/connstate"
	"github.com/momentics/wsconnect/session"
)

// Bridge translates the six incoming transport events into calls on
// whichever of the eight behaviors a ClientConn installs, applying
// their return contracts. Every dispatch falls back to "continue" for an
// unrecognized directive kind, so an unknown shape never wedges the runtime.
type Bridge struct {
	Conn *api.ClientConn
}

// New constructs a Bridge over conn.
func New(conn *api.ClientConn) *Bridge {
	return &Bridge{Conn: conn}
}

// TransportUp handles transport_up(protocol).
func (b *Bridge) TransportUp(protocol string) api.ConnectDirective {
	h := b.Conn.Handlers.Connection
	if h == nil {
		return api.ConnectDirective{Kind: api.DirOK}
	}
	return h.HandleConnect(b.Conn, protocol, "", nil)
}

// NormalizeDownReason maps a raw transport-down reason onto the closed
// DisconnectReason shape: normal/closed become a remote close with code
// 1000, timeout and econnrefused get their own kinds, and
// anything else is carried as a generic error.
func NormalizeDownReason(raw string) api.DisconnectReason {
	switch raw {
	case "normal", "closed":
		return api.DisconnectReason{Kind: "remote", Code: 1000}
	case "timeout":
		return api.DisconnectReason{Kind: "timeout"}
	case "econnrefused":
		return api.DisconnectReason{Kind: "connection_refused"}
	default:
		return api.DisconnectReason{Kind: "error", Other: errors.New(raw)}
	}
}

// TransportDown handles transport_down(reason, killed_streams): it removes
// the killed streams from state, normalizes the reason, and invokes
// HandleDisconnect.
func (b *Bridge) TransportDown(state *api.ConnectionState, rawReason string, killedStreams []string) api.DisconnectDirective {
	for _, ref := range killedStreams {
		connstate.RemoveStream(state, ref)
	}
	reason := NormalizeDownReason(rawReason)
	state.LastError = errors.New(rawReason)

	h := b.Conn.Handlers.Connection
	if h == nil {
		return api.DisconnectDirective{Kind: api.DirOK}
	}
	return h.HandleDisconnect(b.Conn, reason)
}

// WSUpgrade handles ws_upgrade(stream_ref, headers): it registers the new
// stream and invokes HandleConnect with the stream ref attached.
func (b *Bridge) WSUpgrade(state *api.ConnectionState, streamRef string, headers map[string][]string, protocol string) api.ConnectDirective {
	connstate.RegisterStream(state, streamRef, api.StreamWebSocket)

	h := b.Conn.Handlers.Connection
	if h == nil {
		return api.ConnectDirective{Kind: api.DirOK}
	}
	return h.HandleConnect(b.Conn, protocol, streamRef, headers)
}

// WSFrame handles ws_frame(stream_ref, frame): it always calls HandleFrame
// first; for text frames whose handler returned {ok}, it additionally
// attempts JSON decode -> ValidateMessage -> HandleMessage, mapping the
// result onto MessageDirective.
func (b *Bridge) WSFrame(frame api.Frame) api.MessageDirective {
	mh := b.Conn.Handlers.Message
	if mh == nil {
		return api.MessageDirective{Kind: api.DirOK}
	}

	fd := mh.HandleFrame(b.Conn, frame)
	if fd.Kind != api.DirOK {
		return api.MessageDirective{Kind: fd.Kind, Code: fd.Code, Reason: fd.Reason}
	}
	if frame.Type != api.FrameText {
		return api.MessageDirective{Kind: api.DirOK}
	}

	var msg map[string]any
	if err := json.Unmarshal(frame.Data, &msg); err != nil {
		return api.MessageDirective{Kind: api.DirClose, Reason: api.ErrInvalidTextData.Error(), Err: api.ErrInvalidTextData}
	}
	if err := mh.ValidateMessage(b.Conn, msg); err != nil {
		return api.MessageDirective{Kind: api.DirClose, Reason: err.Error(), Err: err}
	}

	b.matchSubscriptionAck(msg)
	return mh.HandleMessage(b.Conn, msg)
}

// matchSubscriptionAck lets SubscriptionHandler recognize a subscribe/
// unsubscribe acknowledgement in an inbound message independently of
// whatever MessageHandler.HandleMessage does with it.
func (b *Bridge) matchSubscriptionAck(msg map[string]any) {
	sh := b.Conn.Handlers.Subscription
	if sh == nil {
		return
	}
	subID, confirmed, ok := sh.MatchAck(b.Conn, msg)
	if !ok {
		return
	}
	if confirmed {
		session.Confirm(b.Conn, subID)
	} else {
		session.Fail(b.Conn, subID)
	}
}

// ResolveReply turns a {reply, msg} or {reply_many, msgs} MessageDirective
// into the single outbound frame to actually send. reply_many only ever
// sends the first message: there is no multi-frame fan-out for a single
// inbound message in this wire protocol, so anything past the first is
// dropped (open question in the design notes this runtime was built from).
// The drop is reported through the LoggingHandler's LogEvent with the total
// reply count; with no LoggingHandler installed nothing is logged.
// TODO(bridge): revisit reply_many truncation if a transport is added that
// supports batched frame fan-out.
func (b *Bridge) ResolveReply(md api.MessageDirective) (*api.Frame, error) {
	mh := b.Conn.Handlers.Message
	if mh == nil {
		return nil, nil
	}

	switch md.Kind {
	case api.DirReply:
		frame, err := mh.EncodeMessage(b.Conn, md.Reply)
		if err != nil {
			return nil, err
		}
		return &frame, nil
	case api.DirReplyMany:
		if len(md.Replies) == 0 {
			return nil, nil
		}
		if len(md.Replies) > 1 {
			b.logTruncation(len(md.Replies))
		}
		frame, err := mh.EncodeMessage(b.Conn, md.Replies[0])
		if err != nil {
			return nil, err
		}
		return &frame, nil
	default:
		return nil, nil
	}
}

func (b *Bridge) logTruncation(total int) {
	lg := b.Conn.Handlers.Logging
	if lg == nil {
		return
	}
	lg.LogEvent(b.Conn.ID, "reply_many truncated to first reply", map[string]any{"total": total})
}

// TransportError handles transport_error(reason, context): it logs then
// invokes HandleError and returns its ErrorDirective unchanged, {retry,
// delay} included.
func (b *Bridge) TransportError(kind api.ErrorKind, reason error) api.ErrorDirective {
	eh := b.Conn.Handlers.Error
	if eh == nil {
		return api.ErrorDirective{Kind: api.DirOK}
	}
	eh.LogError(b.Conn, kind, reason)
	return eh.HandleError(b.Conn, kind, reason)
}
