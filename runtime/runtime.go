// Package runtime implements ConnectionRuntime, the per-connection actor
// that owns one ClientConn/ConnectionState pair, serializes every mutation
// through a single dispatch loop, and drives ConnectionManager,
// BehaviorBridge, and RateLimiter: an owning object with a typed command
// channel, an event channel for transport inputs, and cooperative task
// scheduling, in the single-goroutine-per-connection shape of
// client.WebSocketClient (one struct, one set of loop goroutines, a
// closeChan signaling shutdown to all of them).
// Author: momentics <momentics@gmail.com>
package runtime

import (
	"context"
	"crypto/tls"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/momentics/wsconnect/api"
	"github.com/momentics/wsconnect/behavior"
	"github.com/momentics/wsconnect/connmanager"
	"github.com/momentics/wsconnect/connstate"
	"github.com/momentics/wsconnect/pool"
	"github.com/momentics/wsconnect/ratelimit"
	"github.com/momentics/wsconnect/session"
	"github.com/momentics/wsconnect/statesync"
	"github.com/momentics/wsconnect/transportio"
)

// transport is the narrow contract Runtime needs beyond api.Transport: a
// readable event stream. transportio.Transport satisfies it; tests supply
// a fake that does too.
type transport interface {
	api.Transport
	Events() <-chan transportio.Event
}

// Options configures a Runtime. Zero-value fields fall back to the defaults
// noted alongside each.
type Options struct {
	Subprotocols            []string
	Header                  http.Header
	HandshakeTimeout        time.Duration // default 5s
	SubscriptionTimeout     time.Duration // default 30s
	RateLimiterTickInterval time.Duration // default 100ms
	RateLimit               ratelimit.Config
	TLSConfig               *tls.Config
}

// connmanagerStrategy is structurally identical to backoff.Strategy; named
// locally so this package doesn't need to import backoff just to spell out
// New's parameter type (callers pass a backoff.Strategy value directly).
type connmanagerStrategy = interface {
	Delay(attempt int) int64
	MaxRetries() int
}

// Runtime is the ConnectionRuntime actor for one ClientConn.
type Runtime struct {
	conn    *api.ClientConn
	state   *api.ConnectionState
	manager *connmanager.Manager
	bridge  *behavior.Bridge
	limiter *ratelimit.Limiter
	opts    Options

	liveTransport      transport
	negotiatedProtocol string
	dialFunc           connmanager.Dialer

	commands  chan command
	closeCh   chan struct{}
	closeOnce sync.Once

	terminalCh   chan struct{}
	terminalOnce sync.Once

	waitQueue map[string]queuedSend
	waitSeq   uint64

	// errResults pools the chan error every blocking command (SendFrame,
	// Unsubscribe, Authenticate, Close) hands the dispatch loop and then
	// immediately receives from. A fresh make(chan error, 1) per call on a
	// connection pushing a steady frame rate is exactly the allocation
	// pool.SyncPool exists to absorb.
	errResults *pool.SyncPool[chan error]
}

type queuedSend struct {
	frame  api.Frame
	result chan error
}

// New constructs a Runtime for conn, driven by the given reconnection
// strategy.
func New(conn *api.ClientConn, strategy connmanagerStrategy, opts Options) *Runtime {
	if opts.HandshakeTimeout == 0 {
		opts.HandshakeTimeout = 5 * time.Second
	}
	if opts.SubscriptionTimeout == 0 {
		opts.SubscriptionTimeout = 30 * time.Second
	}
	if opts.RateLimiterTickInterval == 0 {
		opts.RateLimiterTickInterval = 100 * time.Millisecond
	}

	r := &Runtime{
		conn:      conn,
		state:     api.NewConnectionState(),
		manager:   connmanager.New(strategy),
		bridge:    behavior.New(conn),
		limiter:   ratelimit.New(opts.RateLimit),
		opts:      opts,
		commands:   make(chan command),
		closeCh:    make(chan struct{}),
		terminalCh: make(chan struct{}),
		waitQueue:  make(map[string]queuedSend),
		errResults: pool.NewSyncPool(func() chan error { return make(chan error, 1) }),
	}
	r.dialFunc = r.dialAny
	return r
}

// Done returns a channel closed when this Runtime gives up permanently:
// the reconnection strategy's attempts are exhausted, or the last observed
// error is one of the terminal reasons. ConnectionSupervisor watches this
// to decide when to build and start a replacement Runtime for the same
// stable connection ID. It is never closed by an explicit Close() call;
// that is a normal shutdown, not a failure.
func (r *Runtime) Done() <-chan struct{} {
	return r.terminalCh
}

func (r *Runtime) markTerminal() {
	r.terminalOnce.Do(func() { close(r.terminalCh) })
}

// Start performs the initial dial (bounded to HandshakeTimeout per
// endpoint, 5s by default) and, on success, launches the dispatch loop.
func (r *Runtime) Start() error {
	if err := r.manager.StartConnection(r.state, r.dialFunc); err != nil {
		return err
	}
	r.onDialSucceeded()
	go r.run()
	return nil
}

func (r *Runtime) dialAny(ctx context.Context) (api.Transport, error) {
	var lastErr error
	for _, ep := range r.conn.Endpoints {
		t, resp, err := transportio.Dial(ctx, transportio.Config{
			Endpoint:         ep,
			Subprotocols:     r.opts.Subprotocols,
			Header:           r.opts.Header,
			HandshakeTimeout: r.opts.HandshakeTimeout,
			TLSClientConfig:  r.opts.TLSConfig,
		})
		if err != nil {
			lastErr = err
			continue
		}
		r.liveTransport = t
		r.negotiatedProtocol = resp.Header.Get("Sec-WebSocket-Protocol")
		go t.ReadLoop()
		return t, nil
	}
	if lastErr == nil {
		lastErr = api.ErrNotConnected
	}
	return nil, lastErr
}

// onDialSucceeded synthesizes the transport_up and ws_upgrade events that
// gorilla/websocket's single-round-trip Dial collapses into one call
// (unlike the two-phase gun_up/ws_upgrade this runtime's design notes
// describe), then re-issues any subscriptions left over from a prior
// connection.
func (r *Runtime) onDialSucceeded() {
	_ = r.manager.Transition(r.state, api.StateConnected, nil)
	r.applyConnectDirective(r.bridge.TransportUp(r.negotiatedProtocol))

	streamRef := uuid.NewString()
	_ = r.manager.Transition(r.state, api.StateWebSocketConnected, nil)
	r.applyConnectDirective(r.bridge.WSUpgrade(r.state, streamRef, nil, r.negotiatedProtocol))

	for _, sub := range session.ReissueAfterReconnect(r.conn) {
		r.sendSubscribeRequest(sub)
	}
	statesync.UpdateClientConnFromTransport(r.conn, r.state)
}

func (r *Runtime) sendSubscribeRequest(sub *api.Subscription) {
	sh := r.conn.Handlers.Subscription
	if sh == nil {
		return
	}
	frame, err := sh.BuildSubscribeRequest(r.conn, sub)
	if err != nil {
		session.Fail(r.conn, sub.ID)
		return
	}
	r.enqueueOutbound(api.RequestSubscription, frame, nil)
}

func (r *Runtime) eventsChan() <-chan transportio.Event {
	if r.liveTransport == nil {
		return nil
	}
	return r.liveTransport.Events()
}

// run is the single dispatch loop: a typed command channel, the transport's
// event channel, and the runtime's three timers, all in one select.
func (r *Runtime) run() {
	subTicker := time.NewTicker(r.opts.SubscriptionTimeout / 3)
	defer subTicker.Stop()
	rateTicker := time.NewTicker(r.opts.RateLimiterTickInterval)
	defer rateTicker.Stop()

	var reconnectTimer *time.Timer

	for {
		select {
		case cmd := <-r.commands:
			r.dispatchCommand(cmd)
			if cmd.kind == cmdClose {
				if reconnectTimer != nil {
					reconnectTimer.Stop()
				}
				return
			}

		case evt, ok := <-r.eventsChan():
			if !ok {
				continue
			}
			r.handleTransportEvent(evt, &reconnectTimer)

		case <-r.reconnectTimerC(reconnectTimer):
			reconnectTimer = nil
			r.attemptReconnect(&reconnectTimer)

		case <-r.terminalCh:
			if reconnectTimer != nil {
				reconnectTimer.Stop()
			}
			return

		case <-subTicker.C:
			r.scanSubscriptionTimeouts()

		case <-rateTicker.C:
			r.drainRateLimiterQueue()

		case <-r.closeCh:
			if reconnectTimer != nil {
				reconnectTimer.Stop()
			}
			return
		}
	}
}

// reconnectTimerC returns t.C, or nil (a channel that never fires) when no
// reconnect is currently scheduled, letting the select above omit that
// case cleanly instead of branching on a nil timer directly.
func (r *Runtime) reconnectTimerC(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

func (r *Runtime) handleTransportEvent(evt transportio.Event, reconnectTimer **time.Timer) {
	switch evt.Kind {
	case transportio.EventFrame:
		md := r.bridge.WSFrame(evt.Frame)
		r.applyMessageDirective(md)

	case transportio.EventDown:
		killed := []string{}
		if ref := r.state.MainStreamRef(); ref != "" {
			killed = append(killed, ref)
		}
		dd := r.bridge.TransportDown(r.state, evt.Reason, killed)
		r.applyDisconnectDirective(dd, reconnectTimer)

	case transportio.EventError:
		ed := r.bridge.TransportError(api.KindConnection, evt.Err)
		r.applyErrorDirective(ed, reconnectTimer)
	}
}

func (r *Runtime) applyDisconnectDirective(d api.DisconnectDirective, reconnectTimer **time.Timer) {
	switch d.Kind {
	case api.DirStop:
		_ = r.manager.Transition(r.state, api.StateError, nil)
		r.markTerminal()
	case api.DirReconnect:
		r.scheduleReconnect(reconnectTimer)
	default:
		_ = r.manager.Transition(r.state, api.StateDisconnected, nil)
	}
	statesync.UpdateClientConnFromTransport(r.conn, r.state)
}

func (r *Runtime) applyErrorDirective(d api.ErrorDirective, reconnectTimer **time.Timer) {
	switch d.Kind {
	case api.DirReconnect, api.DirRetry:
		r.scheduleReconnect(reconnectTimer)
	case api.DirStop:
		_ = r.manager.Transition(r.state, api.StateError, nil)
		r.markTerminal()
	}
}

// scheduleReconnect runs the reconnection decision ladder and,
// if it permits another attempt, arms reconnectTimer. If HandleReconnection
// refuses (a terminal reason was observed, or the backoff strategy's
// attempts are exhausted), this connection is permanently down: markTerminal
// signals ConnectionSupervisor via Done().
func (r *Runtime) scheduleReconnect(reconnectTimer **time.Timer) {
	if *reconnectTimer != nil {
		return
	}
	_ = r.manager.Transition(r.state, api.StateDisconnected, r.state.LastError)
	delay, err := r.manager.HandleReconnection(r.state)
	if err != nil {
		r.markTerminal()
		return
	}
	connstate.Reset(r.state)
	*reconnectTimer = time.NewTimer(time.Duration(delay) * time.Millisecond)
}

// attemptReconnect performs the dial itself. A failed dial does not end the
// connection outright: it resets status to disconnected and re-enters the
// reconnection ladder, so a single flaky dial doesn't prematurely exhaust
// what the backoff strategy would otherwise still permit.
func (r *Runtime) attemptReconnect(reconnectTimer **time.Timer) {
	if err := r.manager.StartConnection(r.state, r.dialFunc); err != nil {
		r.state.Status = api.StateDisconnected
		r.scheduleReconnect(reconnectTimer)
		return
	}
	r.onDialSucceeded()
}

func (r *Runtime) scanSubscriptionTimeouts() {
	for _, sub := range r.conn.Subscriptions {
		if sub.Status != api.SubPending {
			continue
		}
		if time.Since(sub.CreatedAt) >= r.opts.SubscriptionTimeout {
			session.Timeout(r.conn, sub.ID)
		}
	}
}

func (r *Runtime) drainRateLimiterQueue() {
	for {
		req := r.limiter.Tick(time.Now())
		if req == nil {
			return
		}
		qs, ok := r.waitQueue[req.ID]
		if !ok {
			continue
		}
		delete(r.waitQueue, req.ID)
		err := r.sendNow(qs.frame)
		if qs.result != nil {
			qs.result <- err
		}
	}
}
