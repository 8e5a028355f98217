// File: supervisor/supervisor_test.go
// Author: momentics <momentics@gmail.com>

package supervisor

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/momentics/wsconnect/api"
	"github.com/momentics/wsconnect/backoff"
	"github.com/momentics/wsconnect/behavior"
	"github.com/momentics/wsconnect/ratelimit"
	"github.com/momentics/wsconnect/runtime"
)

func TestAllowBudgetWithinWindow(t *testing.T) {
	s := New(nil, RestartPolicy{MaxRestarts: 2, MaxSeconds: 60})

	if !s.allow("c1") {
		t.Fatal("first restart should be allowed")
	}
	if !s.allow("c1") {
		t.Fatal("second restart should be allowed")
	}
	if s.allow("c1") {
		t.Fatal("third restart should be refused, budget is 2")
	}
}

func TestAllowBudgetPrunesOldEntries(t *testing.T) {
	s := New(nil, RestartPolicy{MaxRestarts: 1, MaxSeconds: 60})

	s.mu.Lock()
	s.window["c1"] = []time.Time{time.Now().Add(-2 * time.Minute)}
	s.mu.Unlock()

	if !s.allow("c1") {
		t.Fatal("stale restart outside the window should not count against the budget")
	}
}

func TestRegistryPutGetMarkDown(t *testing.T) {
	reg := NewRegistry()
	if _, ok := reg.Get("c1"); ok {
		t.Fatal("Get on empty registry should report not found")
	}

	reg.put("c1", nil)
	if _, ok := reg.Get("c1"); !ok {
		t.Fatal("Get should find an entry just put")
	}
	if reg.IsDown("c1") {
		t.Fatal("freshly put entry should not be marked down")
	}

	reg.markDown("c1")
	if _, ok := reg.Get("c1"); ok {
		t.Fatal("markDown should remove the live entry")
	}
	if !reg.IsDown("c1") {
		t.Fatal("markDown should record the id as permanently down")
	}
}

// diesImmediatelyServer upgrades once and closes the connection right away,
// simulating a server that can never sustain a session: every dial and
// every reconnect fails at the websocket layer.
func diesImmediatelyServer(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
}

func endpointFor(t *testing.T, srv *httptest.Server) api.Endpoint {
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

func TestSupervisorRestartsThenMarksDownOnBudgetExhaustion(t *testing.T) {
	srv := diesImmediatelyServer(t)
	defer srv.Close()

	endpoint := endpointFor(t, srv)
	var buildsSeen atomic.Int32

	factory := func(id string) (*runtime.Runtime, error) {
		buildsSeen.Add(1)
		conn := api.NewClientConn(id)
		conn.Endpoints = []api.Endpoint{endpoint}
		conn.Handlers.Connection = behavior.DefaultConnectionHandler{}
		rt := runtime.New(conn, backoff.Linear{BaseDelay: 1, MaxAttempts: 0}, runtime.Options{
			HandshakeTimeout:        time.Second,
			SubscriptionTimeout:     time.Second,
			RateLimiterTickInterval: 5 * time.Millisecond,
			RateLimit:               ratelimit.Config{Mode: ratelimit.ModeAlwaysAllow},
		})
		if err := rt.Start(); err != nil {
			return nil, err
		}
		return rt, nil
	}

	s := New(factory, RestartPolicy{MaxRestarts: 2, MaxSeconds: 60})

	initial, err := factory("conn-1")
	if err != nil {
		t.Fatalf("initial factory call unexpected error: %v", err)
	}
	s.Supervise("conn-1", initial)

	deadline := time.After(3 * time.Second)
	for !s.Registry.IsDown("conn-1") {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for restart budget to exhaust, builds seen = %d", buildsSeen.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}

	// one initial build plus exactly MaxRestarts (2) retries.
	if got := buildsSeen.Load(); got != 3 {
		t.Fatalf("builds seen = %d, want 3 (initial + 2 restarts)", got)
	}
}
