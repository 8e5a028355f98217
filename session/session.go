// Package session owns the logic around api.ClientConn: subscription
// lifecycle, credential handling, and callback registration, while the
// struct itself stays a plain data type in api, mirroring StateSync's own
// free-functions-over-ConnectionState/ClientConn shape rather than
// methods. Adapted in spirit from internal/session's contextStore: a
// thread-safe keyed bag with explicit lifecycle operations, generalized
// from request-scoped context values to subscription records.
// Author: momentics <momentics@gmail.com>
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/momentics/wsconnect/api"
)

// Subscribe creates a new pending subscription and adds it to conn. It
// returns the minted subscription so the caller can hand its ID back to
// the user.
func Subscribe(conn *api.ClientConn, channel string, params map[string]any) *api.Subscription {
	sub := &api.Subscription{
		ID:        uuid.NewString(),
		Channel:   channel,
		Params:    params,
		Status:    api.SubPending,
		CreatedAt: time.Now(),
	}
	sub.History = append(sub.History, api.SubscriptionEvent{Status: api.SubPending, Timestamp: sub.CreatedAt})
	conn.Subscriptions[sub.ID] = sub
	return sub
}

// transition appends an event to a subscription's append-only history and
// updates its current status.
func transition(sub *api.Subscription, status api.SubscriptionStatus) {
	sub.Status = status
	sub.History = append(sub.History, api.SubscriptionEvent{Status: status, Timestamp: time.Now()})
}

// Confirm marks a subscription confirmed on server acknowledgement.
func Confirm(conn *api.ClientConn, subscriptionID string) bool {
	sub, ok := conn.Subscriptions[subscriptionID]
	if !ok {
		return false
	}
	transition(sub, api.SubConfirmed)
	return true
}

// Fail marks a subscription failed on negative acknowledgement.
func Fail(conn *api.ClientConn, subscriptionID string) bool {
	sub, ok := conn.Subscriptions[subscriptionID]
	if !ok {
		return false
	}
	transition(sub, api.SubFailed)
	return true
}

// Timeout marks a pending subscription timed out; callers are expected to
// only invoke this for subscriptions still in SubPending after
// subscription_timeout seconds.
func Timeout(conn *api.ClientConn, subscriptionID string) bool {
	sub, ok := conn.Subscriptions[subscriptionID]
	if !ok || sub.Status != api.SubPending {
		return false
	}
	transition(sub, api.SubTimeout)
	return true
}

// Unsubscribe marks a subscription unsubscribed after a successful
// unsubscribe round-trip, or reports api.ErrSubscriptionNotFound.
func Unsubscribe(conn *api.ClientConn, subscriptionID string) error {
	sub, ok := conn.Subscriptions[subscriptionID]
	if !ok {
		return api.ErrSubscriptionNotFound
	}
	transition(sub, api.SubUnsubscribed)
	return nil
}

// ConfirmedSubscriptions returns every subscription currently confirmed:
// only confirmed subscriptions count as active.
func ConfirmedSubscriptions(conn *api.ClientConn) []*api.Subscription {
	var out []*api.Subscription
	for _, sub := range conn.Subscriptions {
		if sub.Status == api.SubConfirmed {
			out = append(out, sub)
		}
	}
	return out
}

// ReissueAfterReconnect re-marks every confirmed subscription pending:
// every subscription that was confirmed before disconnection is re-issued
// exactly once and its status becomes pending. It returns the
// subscriptions that need a fresh subscribe request sent.
func ReissueAfterReconnect(conn *api.ClientConn) []*api.Subscription {
	confirmed := ConfirmedSubscriptions(conn)
	for _, sub := range confirmed {
		transition(sub, api.SubPending)
	}
	return confirmed
}

// SetCredentials installs credentials on the connection. Credentials never
// leave the actor boundary except through an AuthHandler (see
// api.ClientConn.Snapshot).
func SetCredentials(conn *api.ClientConn, creds api.Credentials) {
	conn.Credentials = creds
}

// RecordError stores the most recent error observed by the connection.
func RecordError(conn *api.ClientConn, err error) {
	conn.LastError = err
}
