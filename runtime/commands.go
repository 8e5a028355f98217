// File: runtime/commands.go
// Author: momentics <momentics@gmail.com>
//
// The public Runtime API and the typed command channel it is built on:
// send_frame, subscribe, unsubscribe, authenticate, status, close all
// cross into the dispatch loop as one of these, never by touching
// ClientConn/ConnectionState directly from the caller's goroutine.

package runtime

import (
	"strconv"
	"time"

	"github.com/momentics/wsconnect/api"
	"github.com/momentics/wsconnect/ratelimit"
	"github.com/momentics/wsconnect/session"
)

type cmdKind int

const (
	cmdSendFrame cmdKind = iota
	cmdSubscribe
	cmdUnsubscribe
	cmdAuthenticate
	cmdStatus
	cmdClose
	cmdTransferOwnership
	cmdReceiveOwnership
)

type subscribeOutcome struct {
	sub *api.Subscription
	err error
}

// statusSnapshot is what one cmdStatus round trip returns: the session
// snapshot and the current one of the seven ConnState values, read together
// on the dispatch loop. Status and ConnState each make their own round trip
// and keep one half of it.
type statusSnapshot struct {
	conn  api.ClientConn
	state api.ConnState
}

type command struct {
	kind cmdKind

	frame   api.Frame
	channel string
	params  map[string]any
	subID   string
	creds   api.Credentials
	handle  *OwnershipHandle

	errResult      chan error
	subResult      chan subscribeOutcome
	statusResult   chan statusSnapshot
	transferResult chan transferOutcome
	transferTimeout time.Duration
}

// SendFrame submits frame for rate-limited transmission on the current
// WebSocket stream. It blocks until the frame is sent, rejected, or the
// connection is closed.
func (r *Runtime) SendFrame(frame api.Frame) error {
	result := r.errResults.Get()
	r.commands <- command{kind: cmdSendFrame, frame: frame, errResult: result}
	err := <-result
	r.errResults.Put(result)
	return err
}

// Subscribe declares a new channel subscription and sends the initial
// subscribe request. It returns a copy of the subscription as it stood once
// the request was queued.
func (r *Runtime) Subscribe(channel string, params map[string]any) (*api.Subscription, error) {
	result := make(chan subscribeOutcome, 1)
	r.commands <- command{kind: cmdSubscribe, channel: channel, params: params, subResult: result}
	out := <-result
	return out.sub, out.err
}

// Unsubscribe ends a channel subscription.
func (r *Runtime) Unsubscribe(subscriptionID string) error {
	result := r.errResults.Get()
	r.commands <- command{kind: cmdUnsubscribe, subID: subscriptionID, errResult: result}
	err := <-result
	r.errResults.Put(result)
	return err
}

// Authenticate submits credentials and sends the resulting auth request.
func (r *Runtime) Authenticate(creds api.Credentials) error {
	result := r.errResults.Get()
	r.commands <- command{kind: cmdAuthenticate, creds: creds, errResult: result}
	err := <-result
	r.errResults.Put(result)
	return err
}

// Status returns a snapshot of the canonical ClientConn.
func (r *Runtime) Status() api.ClientConn {
	return r.snapshot().conn
}

// ConnState returns the current one of the seven connection lifecycle
// states.
func (r *Runtime) ConnState() api.ConnState {
	return r.snapshot().state
}

func (r *Runtime) snapshot() statusSnapshot {
	result := make(chan statusSnapshot, 1)
	r.commands <- command{kind: cmdStatus, statusResult: result}
	return <-result
}

// Close stops the dispatch loop and tears down the transport. A second
// call, or a call after Done has closed, returns nil without touching the
// transport.
func (r *Runtime) Close() error {
	result := r.errResults.Get()
	select {
	case r.commands <- command{kind: cmdClose, errResult: result}:
	case <-r.closeCh:
		r.errResults.Put(result)
		return nil
	case <-r.terminalCh:
		r.errResults.Put(result)
		r.closeOnce.Do(func() { close(r.closeCh) })
		return nil
	}
	err := <-result
	r.errResults.Put(result)
	r.closeOnce.Do(func() { close(r.closeCh) })
	return err
}

func (r *Runtime) dispatchCommand(cmd command) {
	switch cmd.kind {
	case cmdSendFrame:
		r.enqueueOutbound(api.RequestOther, cmd.frame, cmd.errResult)

	case cmdSubscribe:
		sub := session.Subscribe(r.conn, cmd.channel, cmd.params)
		r.sendSubscribeRequest(sub)
		cp := *sub
		cp.History = append([]api.SubscriptionEvent(nil), sub.History...)
		cmd.subResult <- subscribeOutcome{sub: &cp}

	case cmdUnsubscribe:
		sub, ok := r.conn.Subscriptions[cmd.subID]
		if !ok {
			cmd.errResult <- api.ErrSubscriptionNotFound
			return
		}
		if sh := r.conn.Handlers.Subscription; sh != nil {
			if frame, err := sh.BuildUnsubscribeRequest(r.conn, sub); err == nil {
				r.enqueueOutbound(api.RequestOther, frame, nil)
			}
		}
		cmd.errResult <- session.Unsubscribe(r.conn, cmd.subID)

	case cmdAuthenticate:
		session.SetCredentials(r.conn, cmd.creds)
		ah := r.conn.Handlers.Auth
		if ah == nil {
			cmd.errResult <- api.ErrMissingCredentials
			return
		}
		frame, err := ah.BuildAuthRequest(r.conn, cmd.creds)
		if err != nil {
			cmd.errResult <- err
			return
		}
		r.enqueueOutbound(api.RequestAuth, frame, cmd.errResult)

	case cmdStatus:
		cmd.statusResult <- statusSnapshot{conn: r.conn.Snapshot(), state: r.state.Status}

	case cmdClose:
		for id, qs := range r.waitQueue {
			delete(r.waitQueue, id)
			if qs.result != nil {
				qs.result <- api.ErrNotConnected
			}
		}
		if r.state.Transport != nil {
			cmd.errResult <- r.state.Transport.Close()
			return
		}
		cmd.errResult <- nil

	case cmdTransferOwnership:
		if r.liveTransport == nil {
			cmd.transferResult <- transferOutcome{err: api.ErrNotConnected}
			return
		}
		handle := &OwnershipHandle{
			transport: r.liveTransport,
			state:     r.state,
			deadline:  time.Now().Add(cmd.transferTimeout),
		}
		r.liveTransport = nil
		r.state = api.NewConnectionState()
		cmd.transferResult <- transferOutcome{handle: handle}

	case cmdReceiveOwnership:
		if cmd.handle == nil || cmd.handle.Expired() {
			cmd.errResult <- api.ErrInvalidState
			return
		}
		r.liveTransport = cmd.handle.transport
		r.state = cmd.handle.state
		cmd.errResult <- nil
	}
}

// enqueueOutbound runs frame through the RateLimiter and either sends it
// immediately, parks it in the wait queue for the next tick/refill, or
// rejects it synchronously. Every outbound frame passes through the
// RateLimiter first.
func (r *Runtime) enqueueOutbound(kind api.RequestKind, frame api.Frame, result chan error) {
	priority := 0
	if rl := r.conn.Handlers.RateLimit; rl != nil {
		priority = rl.PriorityOf(kind)
	}

	r.waitSeq++
	id := strconv.FormatUint(r.waitSeq, 10)
	decision := r.limiter.Check(ratelimit.Request{Kind: kind, Priority: priority, ID: id})

	switch decision.Action {
	case ratelimit.ActionAllow:
		err := r.sendNow(frame)
		if result != nil {
			result <- err
		}
	case ratelimit.ActionQueue:
		r.waitQueue[id] = queuedSend{frame: frame, result: result}
	case ratelimit.ActionReject:
		if result != nil {
			result <- decision.Reason
		}
	}
}

func (r *Runtime) sendNow(frame api.Frame) error {
	if r.state.Transport == nil {
		return api.ErrNotConnected
	}
	return r.state.Transport.Send(frame)
}

func (r *Runtime) applyConnectDirective(d api.ConnectDirective) {
	switch d.Kind {
	case api.DirReply:
		if d.Frame != nil {
			r.enqueueOutbound(api.RequestOther, *d.Frame, nil)
		}
	case api.DirClose:
		r.sendCloseFrame(d.Code, d.Reason)
		_ = r.manager.Transition(r.state, api.StateDisconnected, nil)
	case api.DirStop:
		_ = r.manager.Transition(r.state, api.StateError, nil)
	}
}

func (r *Runtime) applyMessageDirective(md api.MessageDirective) {
	switch md.Kind {
	case api.DirReply, api.DirReplyMany:
		frame, err := r.bridge.ResolveReply(md)
		if err == nil && frame != nil {
			r.enqueueOutbound(api.RequestOther, *frame, nil)
		}
	case api.DirClose:
		r.sendCloseFrame(md.Code, md.Reason)
	}
}

func (r *Runtime) sendCloseFrame(code int, reason string) {
	if r.state.Transport == nil {
		return
	}
	_ = r.state.Transport.Send(api.Frame{Type: api.FrameClose, CloseCode: code, CloseText: reason})
}
