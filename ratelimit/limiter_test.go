// File: ratelimit/limiter_test.go
// Author: momentics <momentics@gmail.com>

package ratelimit

import (
	"testing"
	"time"

	"github.com/momentics/wsconnect/api"
)

func TestTokenBucketScenario(t *testing.T) {
	start := time.Now()
	l := New(Config{
		Capacity:       60,
		RefillRate:     1,
		RefillInterval: time.Second,
		// No wait queue: the 13th subscription is rejected rather than
		// parked, so the later refill is not spent on it by Tick.
		QueueLimit: 0,
		CostMap:    map[api.RequestKind]int{api.RequestSubscription: 5, api.RequestAuth: 10, api.RequestQuery: 1},
	})
	l.lastRefill = start

	for i := 0; i < 12; i++ {
		d := l.Check(Request{Kind: api.RequestSubscription})
		if d.Action != ActionAllow {
			t.Fatalf("request %d: got %v, want ActionAllow", i, d.Action)
		}
	}
	if got := l.Tokens(); got != 0 {
		t.Fatalf("tokens after 12 subscriptions = %d, want 0", got)
	}

	d := l.Check(Request{Kind: api.RequestSubscription})
	if d.Action == ActionAllow {
		t.Fatalf("13th subscription should not be allowed immediately")
	}

	l.Tick(start.Add(5000 * time.Millisecond))
	if got := l.Tokens(); got != 5 {
		t.Fatalf("tokens after 5000ms = %d, want 5", got)
	}

	d = l.Check(Request{Kind: api.RequestSubscription})
	if d.Action != ActionAllow {
		t.Fatalf("subscription after refill should be allowed, got %v", d.Action)
	}
	if got := l.Tokens(); got != 0 {
		t.Fatalf("tokens after final subscription = %d, want 0", got)
	}
}

func TestQueueFull(t *testing.T) {
	l := New(Config{Capacity: 1, RefillRate: 0, RefillInterval: time.Second, QueueLimit: 1})
	if d := l.Check(Request{Kind: api.RequestQuery}); d.Action != ActionAllow {
		t.Fatalf("first request should be allowed, got %v", d.Action)
	}
	if d := l.Check(Request{Kind: api.RequestQuery}); d.Action != ActionQueue {
		t.Fatalf("second request should queue, got %v", d.Action)
	}
	d := l.Check(Request{Kind: api.RequestQuery})
	if d.Action != ActionReject || d.Reason != api.ErrQueueFull {
		t.Fatalf("third request should reject queue_full, got %v %v", d.Action, d.Reason)
	}
}

func TestPriorityOrdering(t *testing.T) {
	l := New(Config{Capacity: 5, RefillRate: 1, RefillInterval: time.Millisecond, QueueLimit: 10, Mode: ModeAlwaysQueue})
	low := Request{Kind: api.RequestQuery, Priority: 0}
	high := Request{Kind: api.RequestQuery, Priority: 10}

	if d := l.Check(low); d.Action != ActionQueue {
		t.Fatalf("low priority should queue, got %v", d.Action)
	}
	if d := l.Check(high); d.Action != ActionQueue {
		t.Fatalf("high priority should queue, got %v", d.Action)
	}

	processed := l.Tick(time.Now().Add(time.Second))
	if processed == nil || processed.Priority != 10 {
		t.Fatalf("expected high priority request to process first, got %+v", processed)
	}
}

func TestAlwaysRejectMode(t *testing.T) {
	l := New(Config{Capacity: 10, Mode: ModeAlwaysReject})
	d := l.Check(Request{Kind: api.RequestQuery})
	if d.Action != ActionReject {
		t.Fatalf("always_reject should reject, got %v", d.Action)
	}
}

func TestNeverExceedsCapacity(t *testing.T) {
	l := New(Config{Capacity: 10, RefillRate: 100, RefillInterval: time.Millisecond, QueueLimit: 1})
	l.Tick(time.Now().Add(time.Hour))
	if got := l.Tokens(); got != 10 {
		t.Fatalf("tokens = %d, want capped at capacity 10", got)
	}
}
