// Package transportio implements api.Transport over gorilla/websocket: RFC
// 6455 dial, subprotocol negotiation, and frame I/O. Adapted from
// client.WebSocketClient.dialAndHandshake (client/client.go), which
// hand-rolls the TCP dial + HTTP/1.1 Upgrade handshake itself; here that
// handshake is delegated to gorilla/websocket.Dialer, the library the rest
// of this codebase is grounded on for the wire transport, while the
// surrounding shape stays the same: a per-connection struct wrapping one
// net.Conn, a recv loop pushing decoded frames onto a channel, and a
// close-once guard.
// Author: momentics <momentics@gmail.com>
package transportio

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/momentics/wsconnect/api"
	"github.com/momentics/wsconnect/frame"
)

// EventKind tags a Transport-emitted event.
type EventKind int

const (
	EventUp EventKind = iota
	EventFrame
	EventDown
	EventError
)

// Event is what ReadLoop pushes to its Events() channel; ConnectionRuntime
// consumes these and routes them to BehaviorBridge.
type Event struct {
	Kind     EventKind
	Protocol string
	Frame    api.Frame
	Reason   string // set when Kind == EventDown
	Err      error
}

// Config configures Dial.
type Config struct {
	Endpoint         api.Endpoint
	Subprotocols     []string
	Header           http.Header
	HandshakeTimeout time.Duration
	TLSClientConfig  *tls.Config
	// Codec validates and (de)serializes frame payloads per opcode. Nil
	// uses frame.NewCodec()'s five RFC 6455 defaults; a caller wanting a
	// custom opcode handler (e.g. permessage-deflate) supplies its own
	// codec with that handler registered instead.
	Codec *frame.Codec
}

// Transport wraps one gorilla/websocket connection and satisfies
// api.Transport.
type Transport struct {
	conn      *websocket.Conn
	codec     *frame.Codec
	events    chan Event
	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Dial opens a WebSocket connection to cfg.Endpoint, negotiating one of
// cfg.Subprotocols via Sec-WebSocket-Protocol. It returns the upgrade
// response alongside the Transport so the caller can read the negotiated
// protocol and any headers the server sent back.
func Dial(ctx context.Context, cfg Config) (*Transport, *http.Response, error) {
	scheme := "ws"
	if cfg.Endpoint.Transport == api.TransportTLS {
		scheme = "wss"
	}
	u := url.URL{
		Scheme: scheme,
		Host:   fmt.Sprintf("%s:%d", cfg.Endpoint.Host, cfg.Endpoint.Port),
		Path:   cfg.Endpoint.Path,
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
		Subprotocols:     cfg.Subprotocols,
		TLSClientConfig:  cfg.TLSClientConfig,
	}

	conn, resp, err := dialer.DialContext(ctx, u.String(), cfg.Header)
	if err != nil {
		return nil, resp, err
	}

	codec := cfg.Codec
	if codec == nil {
		codec = frame.NewCodec()
	}

	t := &Transport{
		conn:   conn,
		codec:  codec,
		events: make(chan Event, 64),
	}
	return t, resp, nil
}

// Events returns the channel ReadLoop publishes decoded frames and
// transport-down/error notifications on.
func (t *Transport) Events() <-chan Event {
	return t.events
}

// Send implements api.Transport. The frame is encoded and validated by this
// Transport's Codec (size ceilings, close-code legality, UTF-8 text) before
// a single byte reaches the wire.
func (t *Transport) Send(f api.Frame) error {
	opcode := frame.OpcodeFor(f.Type)
	if opcode < 0 {
		return api.ErrInvalidFrame
	}
	payload, err := t.codec.Encode(f)
	if err != nil {
		return err
	}

	t.writeMu.Lock()
	err = t.conn.WriteMessage(opcode, payload)
	t.writeMu.Unlock()
	t.codec.ReleasePayload(opcode, payload)
	return err
}

// Close implements api.Transport. Idempotent: a second call is a no-op.
func (t *Transport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		_ = t.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err = t.conn.Close()
		close(t.events)
	})
	return err
}

// ReadLoop decodes inbound frames until the connection fails, classifying
// the terminating error onto the closed reason set the EventDown consumer
// (behavior.Bridge.TransportDown) normalizes: closed, timeout,
// econnrefused, or fatal_error. Run it in its own
// goroutine; it returns once the connection is down.
func (t *Transport) ReadLoop() {
	for {
		mt, data, err := t.conn.ReadMessage()
		if err != nil {
			t.emit(Event{Kind: EventDown, Reason: classifyReadErr(err), Err: err})
			return
		}

		f, err := t.codec.Decode(mt, data)
		if err != nil {
			t.emit(Event{Kind: EventError, Err: err})
			continue
		}
		t.emit(Event{Kind: EventFrame, Frame: f})
	}
}

func classifyReadErr(err error) string {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return api.ReasonClosed
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return api.ReasonConnRefused
	}
	return api.ReasonFatalError
}

func (t *Transport) emit(e Event) {
	select {
	case t.events <- e:
	default:
	}
}
