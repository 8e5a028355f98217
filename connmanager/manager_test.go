// File: connmanager/manager_test.go
// Author: momentics <momentics@gmail.com>

package connmanager

import (
	"context"
	"errors"
	"testing"

	"github.com/momentics/wsconnect/api"
	"github.com/momentics/wsconnect/backoff"
)

func TestValidTransitionSequence(t *testing.T) {
	state := api.NewConnectionState()
	m := New(backoff.Linear{BaseDelay: 100, MaxAttempts: 3})

	steps := []api.ConnState{api.StateConnecting, api.StateConnected, api.StateWebSocketConnected}
	for _, s := range steps {
		if err := m.Transition(state, s, nil); err != nil {
			t.Fatalf("Transition(%v) unexpected error: %v", s, err)
		}
	}
	if state.Status != api.StateWebSocketConnected {
		t.Fatalf("final status = %v, want websocket_connected", state.Status)
	}
}

func TestInvalidTransitionRejected(t *testing.T) {
	state := api.NewConnectionState()
	m := New(backoff.Linear{BaseDelay: 100, MaxAttempts: 3})

	if err := m.Transition(state, api.StateWebSocketConnected, nil); err != api.ErrInvalidTransition {
		t.Fatalf("Transition from initialized to websocket_connected = %v, want ErrInvalidTransition", err)
	}
}

func TestAnyStateCanGoToError(t *testing.T) {
	state := api.NewConnectionState()
	m := New(backoff.Linear{BaseDelay: 100, MaxAttempts: 3})

	reason := errors.New("boom")
	if err := m.Transition(state, api.StateError, reason); err != nil {
		t.Fatalf("Transition to error unexpected error: %v", err)
	}
	if state.LastError != reason {
		t.Fatalf("LastError = %v, want %v", state.LastError, reason)
	}
}

func TestHandleReconnectionTerminalReason(t *testing.T) {
	state := api.NewConnectionState()
	state.Status = api.StateDisconnected
	state.LastError = errors.New(api.ReasonNXDomain)
	m := New(backoff.Linear{BaseDelay: 100, MaxAttempts: 5})

	_, err := m.HandleReconnection(state)
	if err != api.ErrTerminalError {
		t.Fatalf("HandleReconnection = %v, want ErrTerminalError", err)
	}
	if state.Status != api.StateError {
		t.Fatalf("status = %v, want error", state.Status)
	}
}

func TestHandleReconnectionExhaustsAttempts(t *testing.T) {
	state := api.NewConnectionState()
	state.Status = api.StateDisconnected
	m := New(backoff.Linear{BaseDelay: 10, MaxAttempts: 2})

	for i := 0; i < 2; i++ {
		state.Status = api.StateDisconnected
		if _, err := m.HandleReconnection(state); err != nil {
			t.Fatalf("attempt %d unexpected error: %v", i, err)
		}
	}

	state.Status = api.StateDisconnected
	_, err := m.HandleReconnection(state)
	if err != api.ErrMaxAttemptsReached {
		t.Fatalf("HandleReconnection after exhausting attempts = %v, want ErrMaxAttemptsReached", err)
	}
	if state.Status != api.StateError {
		t.Fatalf("status = %v, want error", state.Status)
	}
}

func TestHandleReconnectionSuccessResetsAttempts(t *testing.T) {
	state := api.NewConnectionState()
	state.Status = api.StateDisconnected
	m := New(backoff.Linear{BaseDelay: 10, MaxAttempts: 5})

	if _, err := m.HandleReconnection(state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Attempts() != 1 {
		t.Fatalf("attempts = %d, want 1", m.Attempts())
	}

	if err := m.Transition(state, api.StateConnecting, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Transition(state, api.StateConnected, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Attempts() != 0 {
		t.Fatalf("attempts after reconnect success = %d, want 0", m.Attempts())
	}
}

func TestStartConnectionSuccess(t *testing.T) {
	state := api.NewConnectionState()
	m := New(backoff.Linear{BaseDelay: 10, MaxAttempts: 3})

	fake := &fakeTransport{}
	err := m.StartConnection(state, func(ctx context.Context) (api.Transport, error) {
		return fake, nil
	})
	if err != nil {
		t.Fatalf("StartConnection unexpected error: %v", err)
	}
	if state.Transport != fake || !state.Monitored {
		t.Fatalf("StartConnection should install transport and mark monitored")
	}
	if state.Status != api.StateConnecting {
		t.Fatalf("status = %v, want connecting (caller transitions onward on upgrade)", state.Status)
	}
}

type fakeTransport struct{}

func (f *fakeTransport) Send(api.Frame) error { return nil }
func (f *fakeTransport) Close() error         { return nil }
