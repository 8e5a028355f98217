// File: session/session_test.go
// Author: momentics <momentics@gmail.com>

package session

import (
	"testing"

	"github.com/momentics/wsconnect/api"
)

func TestSubscriptionLifecycle(t *testing.T) {
	conn := api.NewClientConn("conn-1")
	sub := Subscribe(conn, "book.BTC", nil)
	if sub.Status != api.SubPending {
		t.Fatalf("new subscription status = %v, want pending", sub.Status)
	}

	if !Confirm(conn, sub.ID) {
		t.Fatalf("Confirm should succeed for known subscription")
	}
	if conn.Subscriptions[sub.ID].Status != api.SubConfirmed {
		t.Fatalf("status after confirm = %v, want confirmed", conn.Subscriptions[sub.ID].Status)
	}
	if len(conn.Subscriptions[sub.ID].History) != 2 {
		t.Fatalf("history length = %d, want 2 (append-only)", len(conn.Subscriptions[sub.ID].History))
	}
}

func TestReissueAfterReconnect(t *testing.T) {
	conn := api.NewClientConn("conn-1")
	sub := Subscribe(conn, "book.BTC", nil)
	Confirm(conn, sub.ID)

	reissued := ReissueAfterReconnect(conn)
	if len(reissued) != 1 || reissued[0].ID != sub.ID {
		t.Fatalf("expected exactly the one confirmed subscription to be reissued")
	}
	if conn.Subscriptions[sub.ID].Status != api.SubPending {
		t.Fatalf("status after reissue = %v, want pending", conn.Subscriptions[sub.ID].Status)
	}
}

func TestUnsubscribeUnknown(t *testing.T) {
	conn := api.NewClientConn("conn-1")
	if err := Unsubscribe(conn, "missing"); err != api.ErrSubscriptionNotFound {
		t.Fatalf("Unsubscribe(missing) = %v, want ErrSubscriptionNotFound", err)
	}
}

func TestCallbackSetHasNoDuplicates(t *testing.T) {
	conn := api.NewClientConn("conn-1")
	ch := make(chan api.CallbackEvent, 1)
	RegisterCallback(conn, "recipient-a", ch)
	RegisterCallback(conn, "recipient-a", ch)
	if len(conn.Callbacks) != 1 {
		t.Fatalf("Callbacks length = %d, want 1 (set semantics)", len(conn.Callbacks))
	}
}
