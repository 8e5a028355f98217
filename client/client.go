// File: client/client.go
// Author: momentics <momentics@gmail.com>
//
// Package client is the public façade: open, close, send_frame, subscribe,
// unsubscribe, authenticate, status, and the ownership-transfer pair, all
// addressed by the connection_id Open hands back. Grounded on
// WebSocketClient's overall shape (client/client.go): one struct per
// connection, options-driven construction, lifecycle methods that
// delegate to the machinery underneath. Everything underneath here is
// runtime.Runtime and supervisor.Supervisor rather than a zero-copy batch
// pipeline.
package client

import (
	"time"

	"github.com/google/uuid"

	"github.com/momentics/wsconnect/api"
	"github.com/momentics/wsconnect/backoff"
	"github.com/momentics/wsconnect/runtime"
	"github.com/momentics/wsconnect/supervisor"
)

func durationMillis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// Client is one supervised connection. Its identity (ID) is the
// connection_id every operation is addressed by; each operation is a
// method here instead of a free function taking an id, the idiomatic Go
// rendering of the same contract.
type Client struct {
	id   string
	conn *api.ClientConn
	sup  *supervisor.Supervisor
}

// Open normalizes and validates opts, dials the first reachable endpoint,
// and returns a Client wrapping the running connection. The connection is
// registered with a ConnectionSupervisor from the first call: an abnormal
// termination (runtime.Runtime.Done() firing without an explicit Close)
// rebuilds a fresh Runtime in place, up to opts.Restart's budget.
func Open(opts ConnectionOptions) (*Client, error) {
	norm, err := opts.ParseAndValidate()
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	conn := api.NewClientConn(id)
	conn.Endpoints = norm.Endpoints
	conn.Reconnection = norm.Reconnection
	conn.Handlers = norm.Handlers
	if norm.Settings != nil {
		conn.Settings = norm.Settings
	}

	factory := func(_ string) (*runtime.Runtime, error) {
		rt := runtime.New(conn, backoff.FromPolicy(norm.Reconnection), runtime.Options{
			Subprotocols:            norm.Protocols,
			Header:                  norm.Headers,
			HandshakeTimeout:        norm.HandshakeTimeout,
			SubscriptionTimeout:     norm.SubscriptionTimeout,
			RateLimiterTickInterval: norm.RateLimiterTickInterval,
			RateLimit:               norm.RateLimit,
			TLSConfig:               norm.TransportOpts.TLSConfig,
		})
		if err := rt.Start(); err != nil {
			return nil, err
		}
		return rt, nil
	}

	rt, err := factory(id)
	if err != nil {
		return nil, err
	}

	sup := supervisor.New(factory, norm.Restart)
	sup.Supervise(id, rt)

	return &Client{id: id, conn: conn, sup: sup}, nil
}

// ID returns the stable connection_id this Client was opened with.
func (c *Client) ID() string {
	return c.id
}

// live resolves the Runtime currently serving this connection, following
// ConnectionSupervisor past any restart since the caller's last call.
func (c *Client) live() (*runtime.Runtime, error) {
	rt, ok := c.sup.Registry.Get(c.id)
	if !ok {
		return nil, api.ErrNotConnected
	}
	return rt, nil
}

// SendFrame submits frame for rate-limited transmission.
func (c *Client) SendFrame(frame api.Frame) error {
	rt, err := c.live()
	if err != nil {
		return err
	}
	return rt.SendFrame(frame)
}

// Subscribe declares a new channel subscription.
func (c *Client) Subscribe(channel string, params map[string]any) (*api.Subscription, error) {
	rt, err := c.live()
	if err != nil {
		return nil, err
	}
	return rt.Subscribe(channel, params)
}

// Unsubscribe ends a channel subscription.
func (c *Client) Unsubscribe(subscriptionID string) error {
	rt, err := c.live()
	if err != nil {
		return err
	}
	return rt.Unsubscribe(subscriptionID)
}

// Authenticate submits credentials and sends the resulting auth request.
func (c *Client) Authenticate(creds api.Credentials) error {
	rt, err := c.live()
	if err != nil {
		return err
	}
	return rt.Authenticate(creds)
}

// Status returns a snapshot of the canonical ClientConn.
func (c *Client) Status() api.ClientConn {
	rt, err := c.live()
	if err != nil {
		return c.conn.Snapshot()
	}
	return rt.Status()
}

// ConnState returns the current one of the seven connection lifecycle
// states. A connection the Supervisor has permanently marked down reports
// StateError.
func (c *Client) ConnState() api.ConnState {
	rt, err := c.live()
	if err != nil {
		return api.StateError
	}
	return rt.ConnState()
}

// TransferOwnership releases this connection's transport for adoption by
// another Client's ReceiveOwnership.
func (c *Client) TransferOwnership(timeout int64) (*runtime.OwnershipHandle, error) {
	rt, err := c.live()
	if err != nil {
		return nil, err
	}
	return rt.TransferOwnership(durationMillis(timeout))
}

// ReceiveOwnership adopts a handle produced by another Client's
// TransferOwnership, provided its deadline has not passed.
func (c *Client) ReceiveOwnership(handle *runtime.OwnershipHandle) error {
	rt, err := c.live()
	if err != nil {
		return err
	}
	return rt.ReceiveOwnership(handle)
}

// Close stops supervision and tears down the connection. A connection
// already marked permanently down by its Supervisor is a no-op.
func (c *Client) Close() error {
	c.sup.Stop(c.id)
	rt, ok := c.sup.Registry.Get(c.id)
	if !ok {
		return nil
	}
	return rt.Close()
}
