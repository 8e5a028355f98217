// File: client/client_test.go
// Author: momentics <momentics@gmail.com>

package client

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/momentics/wsconnect/api"
	"github.com/momentics/wsconnect/behavior"
	"github.com/momentics/wsconnect/ratelimit"
)

func echoServer(t *testing.T) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
}

func endpointFor(t *testing.T, srv *httptest.Server) api.Endpoint {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("bad server URL: %v", err)
	}
	idx := strings.LastIndex(u.Host, ":")
	host, portStr := u.Host[:idx], u.Host[idx+1:]
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("bad port: %v", err)
	}
	return api.Endpoint{Host: host, Port: port, Path: "/", Transport: api.TransportPlaintext}
}

func TestOpenSendFrameAndClose(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	c, err := Open(ConnectionOptions{
		Endpoints: []api.Endpoint{endpointFor(t, srv)},
		Transport: api.TransportPlaintext,
		RateLimit: ratelimit.Config{Mode: ratelimit.ModeAlwaysAllow},
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer c.Close()

	if c.ID() == "" {
		t.Fatal("expected a non-empty connection id")
	}

	if err := c.SendFrame(api.Frame{Type: api.FrameText, Data: []byte("hello")}); err != nil {
		t.Fatalf("SendFrame failed: %v", err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestOpenRejectsMissingEndpoints(t *testing.T) {
	_, err := Open(ConnectionOptions{Transport: api.TransportPlaintext})
	if err == nil {
		t.Fatal("expected Open to reject a request with no endpoints")
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	c, err := Open(ConnectionOptions{
		Endpoints:           []api.Endpoint{endpointFor(t, srv)},
		Transport:           api.TransportPlaintext,
		RateLimit:           ratelimit.Config{Mode: ratelimit.ModeAlwaysAllow},
		SubscriptionTimeout: time.Second,
		Handlers: api.HandlerSet{
			Subscription: behavior.DefaultSubscriptionHandler{},
		},
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer c.Close()

	sub, err := c.Subscribe("book.BTC", nil)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if sub.Status != api.SubPending {
		t.Fatalf("expected a freshly subscribed subscription to be pending, got %v", sub.Status)
	}

	if err := c.Unsubscribe(sub.ID); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}
	if err := c.Unsubscribe("does-not-exist"); err != api.ErrSubscriptionNotFound {
		t.Fatalf("Unsubscribe(unknown) = %v, want ErrSubscriptionNotFound", err)
	}
}

func TestStatusReflectsConnection(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	c, err := Open(ConnectionOptions{
		Endpoints: []api.Endpoint{endpointFor(t, srv)},
		Transport: api.TransportPlaintext,
		RateLimit: ratelimit.Config{Mode: ratelimit.ModeAlwaysAllow},
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer c.Close()

	if state := c.ConnState(); state != api.StateWebSocketConnected {
		t.Fatalf("expected websocket_connected after a successful Open, got %v", state)
	}
}
